package normalize

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var nonPriceChars = regexp.MustCompile(`[^0-9.\-]`)

// ParsePrice extracts a fixed-precision decimal from a free-text price.
// Currency symbols and codes are stripped. A range like "10.99-12.99" yields
// its first number. It reports false when nothing numeric survives cleaning
// or the remainder is not a valid decimal literal.
func ParsePrice(s string) (decimal.Decimal, bool) {
	cleaned := nonPriceChars.ReplaceAllString(s, "")
	if cleaned == "" {
		return decimal.Decimal{}, false
	}

	negative := strings.HasPrefix(cleaned, "-")
	cleaned = strings.TrimLeft(cleaned, "-")

	// First dash-separated number wins for ranges.
	first, _, _ := strings.Cut(cleaned, "-")
	if first == "" {
		return decimal.Decimal{}, false
	}

	d, err := decimal.NewFromString(first)
	if err != nil {
		return decimal.Decimal{}, false
	}
	if negative {
		d = d.Neg()
	}
	return d, true
}
