package pricing

import "math"

// VATRegime selects how Swiss VAT is accounted for in the offer computation.
type VATRegime int

const (
	// RegimeMargin applies when the vehicle is bought from a private
	// individual: VAT is owed only on the dealer's margin.
	RegimeMargin VATRegime = iota
	// RegimeStandard applies when the vehicle is bought from a business:
	// VAT is applied on the full sale price.
	RegimeStandard
)

// Label returns the human-readable label used on screen, in exports and in
// the history log.
func (r VATRegime) Label() string {
	if r == RegimeMargin {
		return "TVA sur marge (achat à un particulier)"
	}
	return "TVA standard (achat à un garage/entreprise)"
}

// FormValue returns the stable identifier used in form submissions and in
// the database, decoupled from the display label.
func (r VATRegime) FormValue() string {
	if r == RegimeMargin {
		return "margin"
	}
	return "standard"
}

// ParseRegime maps a form/database value back to a VATRegime.
func ParseRegime(value string) (VATRegime, bool) {
	switch value {
	case "margin":
		return RegimeMargin, true
	case "standard":
		return RegimeStandard, true
	}
	return RegimeMargin, false
}

// Params holds the dealership pricing policy. Passing it explicitly lets the
// margin target, handling fee and VAT rate vary without recompilation.
type Params struct {
	NetMarginRate float64
	FixedFee      float64
	VATRate       float64
}

// DefaultParams returns the policy currently applied by the dealership:
// 15% net margin, 350 CHF handling fee, 8.1% Swiss VAT.
func DefaultParams() Params {
	return Params{
		NetMarginRate: 0.15,
		FixedFee:      350,
		VATRate:       0.081,
	}
}

// Result holds the outputs of an offer computation. All values are in CHF.
// MaxPurchasePrice may be negative; callers must treat a value ≤ 0 as
// "infeasible under current parameters", a business warning, not an error.
type Result struct {
	MaxPurchasePrice float64
	TargetMargin     float64
	VATPayable       float64
	TotalCosts       float64
}

// Rounded returns a copy with every amount rounded half-to-even to the
// nearest franc. The rounded values are what gets displayed, exported and
// logged, so every surface agrees.
func (r Result) Rounded() Result {
	return Result{
		MaxPurchasePrice: math.RoundToEven(r.MaxPurchasePrice),
		TargetMargin:     math.RoundToEven(r.TargetMargin),
		VATPayable:       math.RoundToEven(r.VATPayable),
		TotalCosts:       math.RoundToEven(r.TotalCosts),
	}
}

// ComputeOffer computes the maximum purchase price the dealership can pay
// while preserving the target net margin under the given VAT regime.
//
// The function is pure and deterministic. Precondition: resalePrice > 0;
// callers validate before invoking. The refurbishment cost carries a 5%
// safety uplift on top of the fixed handling fee.
func ComputeOffer(resalePrice, refurbishmentCost float64, regime VATRegime, p Params) Result {
	costs := p.FixedFee + refurbishmentCost*1.05
	targetMargin := resalePrice * p.NetMarginRate

	var maxPurchase, vatPayable float64
	switch regime {
	case RegimeMargin:
		vatCoeff := p.VATRate / (1 + p.VATRate)
		grossMargin := (targetMargin + costs) / (1 - vatCoeff)
		vatPayable = grossMargin * vatCoeff
		maxPurchase = resalePrice - grossMargin
	default:
		netResale := resalePrice / (1 + p.VATRate)
		netPurchase := netResale - netResale*p.NetMarginRate - costs
		maxPurchase = netPurchase * (1 + p.VATRate)
		vatPayable = resalePrice - netResale
	}

	return Result{
		MaxPurchasePrice: maxPurchase,
		TargetMargin:     targetMargin,
		VATPayable:       vatPayable,
		TotalCosts:       costs,
	}
}
