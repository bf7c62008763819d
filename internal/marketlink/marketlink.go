package marketlink

import (
	"fmt"
	"strings"
)

// AutoScoutURL builds the AutoScout24 search URL used for market analysis of
// comparable vehicles: one model year of slack on each side, up to 20'000 km
// more than the appraised vehicle, cheapest listings first.
//
// Pure string formatting; no request is performed here. The query parameters
// keep the fixed order the search page expects.
func AutoScoutURL(brand, model string, year, mileage int) string {
	brandSlug := slugify(brand)
	modelSlug := slugify(model)

	return fmt.Sprintf(
		"https://www.autoscout24.ch/fr/s/%s/%s?yearfrom=%d&yearto=%d&kmto=%d&sort=price_asc",
		brandSlug, modelSlug, year-1, year+1, mileage+20000,
	)
}

func slugify(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, " ", "-"))
}
