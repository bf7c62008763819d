package estimate

import (
	"time"

	"github.com/sevencars/estimation/internal/pricing"
)

// Record is the flattened estimation consumed identically by the document
// exporters and the history log. Amounts are stored already rounded to the
// franc so that the log, the exports and the screen always agree.
type Record struct {
	ID                int64
	CreatedAt         time.Time
	Reference         string
	Garage            string
	Brand             string
	Model             string
	Year              int
	Mileage           int
	Regime            pricing.VATRegime
	ResalePrice       float64
	RefurbishmentCost float64
	TotalCosts        float64
	TargetMargin      float64
	VATPayable        float64
	MaxPurchasePrice  float64
}

// Headers returns the fixed ordered column labels shared by the XLSX export,
// the PDF export and the history log.
func Headers() []string {
	return []string{
		"Date estimation",
		"Référence",
		"Garage",
		"Marque",
		"Modèle",
		"Année",
		"Kilométrage",
		"Origine TVA",
		"Prix de revente estimé (CHF)",
		"Frais remise en état (CHF)",
		"Frais fixes + sécurité (CHF)",
		"Marge visée nette (CHF)",
		"TVA à reverser (CHF)",
		"Offre d'achat maximale (CHF)",
	}
}

// Values returns the record's field values in the same order as Headers.
func (r Record) Values() []any {
	return []any{
		r.CreatedAt.Format("02.01.2006 15:04"),
		r.Reference,
		r.Garage,
		r.Brand,
		r.Model,
		r.Year,
		r.Mileage,
		r.Regime.Label(),
		r.ResalePrice,
		r.RefurbishmentCost,
		r.TotalCosts,
		r.TargetMargin,
		r.VATPayable,
		r.MaxPurchasePrice,
	}
}
