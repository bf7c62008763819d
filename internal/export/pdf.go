package export

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"

	"github.com/sevencars/estimation/internal/currency"
	"github.com/sevencars/estimation/internal/estimate"
)

// PDF serializes one estimation record as a one-page A4 summary document
// with the same field set as the XLSX export.
func PDF(w io.Writer, record estimate.Record) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	// Core fonts are cp1252; translate the French labels.
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr("Estimation de reprise"), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 7, tr(record.Garage), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	headers := estimate.Headers()
	values := record.Values()
	for i := range headers {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(85, 8, tr(headers[i]), "1", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(95, 8, tr(fieldText(values[i])), "1", 1, "L", false, 0, "")
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 10, tr("Offre d'achat maximale : "+currency.CHF(record.MaxPurchasePrice)), "", 1, "L", false, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}

	return nil
}

func fieldText(value any) string {
	switch v := value.(type) {
	case float64:
		return currency.CHF(v)
	case int:
		return fmt.Sprintf("%d", v)
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
