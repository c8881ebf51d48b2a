package seed

import (
	"strings"
	"testing"
	"time"

	"shopmigrate/internal/normalize"
)

func TestGeneratorIsDeterministic(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	a := newGenerator(42, now)
	b := newGenerator(42, now)

	for i := 0; i < 10; i++ {
		if a.user(i) != b.user(i) {
			t.Fatalf("user %d differs between identical seeds", i)
		}
		if a.product(i) != b.product(i) {
			t.Fatalf("product %d differs between identical seeds", i)
		}
	}
}

func TestGeneratedUsersAreUniqueAndParseable(t *testing.T) {
	g := newGenerator(1, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		u := g.user(i)
		if seen[u.Username] {
			t.Fatalf("duplicate username %q", u.Username)
		}
		seen[u.Username] = true

		if _, ok := normalize.ParseDate(u.RegistrationDateStr, normalize.RegistrationDateLayouts); !ok {
			t.Errorf("registration date %q does not parse", u.RegistrationDateStr)
		}
		addr := normalize.ParseAddress(u.AddressCombined)
		if addr.Empty() {
			t.Errorf("address %q parsed to nothing", u.AddressCombined)
		}
		if addr.ZipCode == normalize.NotAvailable {
			t.Errorf("address %q lost its zip code", u.AddressCombined)
		}
	}
}

func TestGeneratedProductsCoverBadPrices(t *testing.T) {
	g := newGenerator(2, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	var unparseable int
	for i := 0; i < 500; i++ {
		p := g.product(i)
		if _, ok := normalize.ParsePrice(p.PriceStr); !ok {
			unparseable++
		}
		if _, ok := normalize.ParseDate(p.CreatedAtStr, normalize.ProductDateLayouts); !ok {
			t.Errorf("created date %q does not parse", p.CreatedAtStr)
		}
	}
	// Roughly 2% of prices carry no number at all.
	if unparseable == 0 {
		t.Error("expected some unparseable prices in the synthetic set")
	}
	if unparseable > 50 {
		t.Errorf("too many unparseable prices: %d of 500", unparseable)
	}
}

func TestGeneratedOrdersIncludeOrphans(t *testing.T) {
	g := newGenerator(3, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	product := g.product(0)

	var orphans int
	for i := 0; i < 1000; i++ {
		o := g.order("realuser", product)
		if strings.HasPrefix(o.UserIdentifier, "ghost_") {
			orphans++
		}
		if _, ok := normalize.ParseDate(o.OrderDateStr, normalize.OrderDateLayouts); !ok {
			t.Errorf("order date %q does not parse", o.OrderDateStr)
		}
		if o.Quantity < 1 || o.Quantity > 5 {
			t.Errorf("quantity %d out of range", o.Quantity)
		}
	}
	if orphans == 0 {
		t.Error("expected some orders referencing missing users")
	}
	if orphans > 100 {
		t.Errorf("too many orphan orders: %d of 1000", orphans)
	}
}

func TestTotalString(t *testing.T) {
	tests := []struct {
		price string
		qty   int
		want  string
	}{
		{"20.00 USD", 2, "40.00 USD"},
		{"10.50", 3, "31.50"},
		{"99.99 EUR", 1, "99.99 EUR"},
		{"contact us", 2, "N/A"},
	}
	for _, tt := range tests {
		if got := totalString(tt.price, tt.qty); got != tt.want {
			t.Errorf("totalString(%q, %d) = %q, want %q", tt.price, tt.qty, got, tt.want)
		}
	}
}
