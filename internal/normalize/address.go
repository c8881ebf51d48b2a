package normalize

import (
	"regexp"
	"strings"
)

// NotAvailable marks an address component the heuristics could not resolve.
const NotAvailable = "N/A"

// DefaultCountry is assumed when the combined string carries no trailing
// country segment.
const DefaultCountry = "USA"

// Target column widths. Components are truncated to fit before insert.
const (
	maxStreet  = 255
	maxCity    = 100
	maxState   = 100
	maxZip     = 20
	maxCountry = 100
)

var (
	zipPattern   = regexp.MustCompile(`\b\d{5}(?:-\d{4})?\b`)
	statePattern = regexp.MustCompile(`\b[A-Z]{2}\b`)
)

// Address holds the components recovered from a combined legacy address
// string. Unresolved components carry NotAvailable.
type Address struct {
	Street  string
	City    string
	State   string
	ZipCode string
	Country string
}

// Empty reports whether nothing beyond the state was recovered. The state is
// excluded because a bare two-letter token on its own is not an address.
func (a Address) Empty() bool {
	return a.Street == NotAvailable &&
		a.City == NotAvailable &&
		a.ZipCode == NotAvailable &&
		a.Country == NotAvailable
}

// ParseAddress splits a comma-delimited combined address into components
// using positional and regex heuristics: a 5-digit (or 5+4) token is the zip
// code, a 2-letter uppercase token in the same segment is the state, and the
// trailing segment is the country when at least three segments are present.
// It is a best-effort parser; components it cannot place degrade to
// NotAvailable.
func ParseAddress(combined string) Address {
	addr := Address{
		Street:  NotAvailable,
		City:    NotAvailable,
		State:   NotAvailable,
		ZipCode: NotAvailable,
		Country: NotAvailable,
	}
	combined = strings.TrimSpace(combined)
	if combined == "" {
		return addr
	}

	parts := strings.Split(combined, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	addr.Street = parts[0]

	if len(parts) > 1 {
		// The city/state/zip segment is second-to-last when a country
		// segment trails, last otherwise.
		candidate := parts[len(parts)-1]
		if len(parts) > 2 {
			candidate = parts[len(parts)-2]
		}

		if zip := zipPattern.FindString(candidate); zip != "" {
			addr.ZipCode = zip
			rest := strings.TrimSpace(strings.Replace(candidate, zip, "", 1))
			if st := statePattern.FindString(rest); st != "" {
				addr.State = st
				rest = strings.TrimSpace(strings.Replace(rest, st, "", 1))
			}
			addr.City = strings.Trim(rest, " ,")
		} else {
			// No zip: treat the whole segment as the city.
			addr.City = candidate
		}

		if len(parts) > 2 {
			addr.Country = parts[len(parts)-1]
		} else {
			addr.Country = DefaultCountry
		}
	}

	// A fully consumed city/state/zip segment leaves the city blank; fall
	// back to the second segment, which is the city in the common
	// "street, city, ST zip, country" shape.
	if addr.City == "" && len(parts) > 2 {
		addr.City = parts[1]
	}

	fill := func(s string, max int) string {
		s = strings.TrimSpace(s)
		if s == "" {
			return NotAvailable
		}
		if len(s) > max {
			s = s[:max]
		}
		return s
	}
	addr.Street = fill(addr.Street, maxStreet)
	addr.City = fill(addr.City, maxCity)
	addr.State = fill(addr.State, maxState)
	addr.ZipCode = fill(addr.ZipCode, maxZip)
	addr.Country = fill(addr.Country, maxCountry)

	return addr
}
