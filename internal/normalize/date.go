// Package normalize contains the field normalizers that turn raw legacy
// strings into typed values. Every parser is pure and total: malformed input
// yields (zero, false), never a panic or an error. Callers decide the
// fallback and log the data-quality warning.
package normalize

import (
	"strings"
	"time"
)

// Common legacy layout sets. Order matters: an ambiguous string resolves to
// the first layout that parses.
var (
	RegistrationDateLayouts = []string{"2006-01-02 15:04", "2006-01-02 15:04:05", "2006-01-02"}
	ProductDateLayouts      = []string{"02/01/2006", "2006-01-02"}
	OrderDateLayouts        = []string{"2006-01-02", "01/02/2006 03:04 PM", "2006-01-02 15:04:05"}
)

// ParseDate tries each layout in order against the trimmed input and returns
// the first successful parse. It reports false for empty input or when no
// layout matches.
func ParseDate(s string, layouts []string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
