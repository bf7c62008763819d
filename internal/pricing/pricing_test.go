package pricing

import (
	"math"
	"testing"
)

func nearlyEqual(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 0.05 {
		t.Fatalf("%s = %v, want %v", name, got, want)
	}
}

func TestComputeOffer_MarginRegime(t *testing.T) {
	result := ComputeOffer(22000, 1500, RegimeMargin, DefaultParams())

	// Gross margin is (3300+1925)*1.081 = 5648.225 since 1-coeff = 1/1.081.
	nearlyEqual(t, "totalCosts", result.TotalCosts, 1925)
	nearlyEqual(t, "targetMargin", result.TargetMargin, 3300)
	nearlyEqual(t, "vatPayable", result.VATPayable, 423.225)
	nearlyEqual(t, "maxPurchasePrice", result.MaxPurchasePrice, 16351.775)
}

func TestComputeOffer_StandardRegime(t *testing.T) {
	result := ComputeOffer(22000, 1500, RegimeStandard, DefaultParams())

	nearlyEqual(t, "totalCosts", result.TotalCosts, 1925)
	nearlyEqual(t, "targetMargin", result.TargetMargin, 3300)
	nearlyEqual(t, "vatPayable", result.VATPayable, 1648.47)
	nearlyEqual(t, "maxPurchasePrice", result.MaxPurchasePrice, 16619.08)
}

func TestComputeOffer_ZeroRefurbishmentCostsEqualFixedFee(t *testing.T) {
	for _, regime := range []VATRegime{RegimeMargin, RegimeStandard} {
		result := ComputeOffer(10000, 0, regime, DefaultParams())
		if result.TotalCosts != 350 {
			t.Fatalf("regime %v: totalCosts = %v, want exactly 350", regime, result.TotalCosts)
		}
	}
}

func TestComputeOffer_IsDeterministic(t *testing.T) {
	first := ComputeOffer(22000, 1500, RegimeMargin, DefaultParams())
	second := ComputeOffer(22000, 1500, RegimeMargin, DefaultParams())

	if first != second {
		t.Fatalf("identical inputs produced different results: %+v vs %+v", first, second)
	}
}

func TestComputeOffer_FiniteForValidInputs(t *testing.T) {
	prices := []float64{1, 500, 22000, 150000, 2500000}
	refurbs := []float64{0, 100, 1500, 30000}

	for _, regime := range []VATRegime{RegimeMargin, RegimeStandard} {
		for _, price := range prices {
			for _, refurb := range refurbs {
				result := ComputeOffer(price, refurb, regime, DefaultParams())
				for name, v := range map[string]float64{
					"maxPurchasePrice": result.MaxPurchasePrice,
					"targetMargin":     result.TargetMargin,
					"vatPayable":       result.VATPayable,
					"totalCosts":       result.TotalCosts,
				} {
					if math.IsNaN(v) || math.IsInf(v, 0) {
						t.Fatalf("regime %v price %v refurb %v: %s is not finite: %v", regime, price, refurb, name, v)
					}
				}
			}
		}
	}
}

func TestComputeOffer_OfferDecreasesWithRefurbishmentCost(t *testing.T) {
	for _, regime := range []VATRegime{RegimeMargin, RegimeStandard} {
		previous := math.Inf(1)
		for _, refurb := range []float64{0, 500, 1500, 5000, 12000} {
			result := ComputeOffer(22000, refurb, regime, DefaultParams())
			if result.MaxPurchasePrice >= previous {
				t.Fatalf("regime %v: offer not strictly decreasing at refurb %v: %v >= %v",
					regime, refurb, result.MaxPurchasePrice, previous)
			}
			previous = result.MaxPurchasePrice
		}
	}
}

func TestComputeOffer_CanReturnNegativeOffer(t *testing.T) {
	// High refurbishment against a low resale price: the caller must treat
	// this as infeasible, not as an arithmetic failure.
	result := ComputeOffer(2000, 10000, RegimeMargin, DefaultParams())
	if result.MaxPurchasePrice > 0 {
		t.Fatalf("expected non-positive offer, got %v", result.MaxPurchasePrice)
	}
}

func TestResultRounded_HalfEvenToTheFranc(t *testing.T) {
	result := Result{
		MaxPurchasePrice: 16348.1,
		TargetMargin:     3300.5,
		VATPayable:       423.5,
		TotalCosts:       1925,
	}.Rounded()

	if result.MaxPurchasePrice != 16348 {
		t.Fatalf("maxPurchasePrice = %v, want 16348", result.MaxPurchasePrice)
	}
	if result.TargetMargin != 3300 {
		t.Fatalf("targetMargin = %v, want 3300 (half-even)", result.TargetMargin)
	}
	if result.VATPayable != 424 {
		t.Fatalf("vatPayable = %v, want 424 (half-even)", result.VATPayable)
	}
	if result.TotalCosts != 1925 {
		t.Fatalf("totalCosts = %v, want 1925", result.TotalCosts)
	}
}

func TestParseRegime(t *testing.T) {
	if regime, ok := ParseRegime("margin"); !ok || regime != RegimeMargin {
		t.Fatalf("ParseRegime(margin) = %v, %v", regime, ok)
	}
	if regime, ok := ParseRegime("standard"); !ok || regime != RegimeStandard {
		t.Fatalf("ParseRegime(standard) = %v, %v", regime, ok)
	}
	if _, ok := ParseRegime("TVA sur marge"); ok {
		t.Fatalf("expected display labels to be rejected as form values")
	}
}
