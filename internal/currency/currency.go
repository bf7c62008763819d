package currency

import (
	"math"
	"strings"

	"github.com/dustin/go-humanize"
)

// CHF formats an amount as Swiss francs with zero decimal places, an
// apostrophe as thousands separator and a trailing currency suffix,
// e.g. 22000 -> "22'000 CHF". Amounts are rounded half-to-even to the franc
// so that formatted values match the rounded record values.
func CHF(amount float64) string {
	rounded := int64(math.RoundToEven(amount))
	grouped := strings.ReplaceAll(humanize.Comma(rounded), ",", "'")
	return grouped + " CHF"
}
