package normalize

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FallbackCategory is the category assigned when the legacy row has no
// usable category name.
const FallbackCategory = "Unknown"

// Category folds a legacy category name to its canonical form: trimmed,
// lower-cased, then title-cased, so that "electronics", "Electronics", and
// " Electronics " all collapse to "Electronics". Empty input maps to
// FallbackCategory.
func Category(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return FallbackCategory
	}
	return cases.Title(language.English).String(strings.ToLower(s))
}
