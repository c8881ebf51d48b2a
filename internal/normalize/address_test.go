package normalize

import (
	"strings"
	"testing"
)

func TestParseAddress_FullUSShape(t *testing.T) {
	got := ParseAddress("123 Main St, Springfield, IL 62704, USA")
	want := Address{
		Street:  "123 Main St",
		City:    "Springfield",
		State:   "IL",
		ZipCode: "62704",
		Country: "USA",
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestParseAddress(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want Address
	}{
		{
			name: "no country segment defaults",
			in:   "9 Oak Ave, Portland OR 97205",
			want: Address{Street: "9 Oak Ave", City: "Portland", State: "OR", ZipCode: "97205", Country: "USA"},
		},
		{
			name: "zip plus four",
			in:   "1 Elm Rd, Austin, TX 73301-0001, USA",
			want: Address{Street: "1 Elm Rd", City: "Austin", State: "TX", ZipCode: "73301-0001", Country: "USA"},
		},
		{
			name: "street and city only",
			in:   "5 Rue Cler, Paris",
			want: Address{Street: "5 Rue Cler", City: "Paris", State: "N/A", ZipCode: "N/A", Country: "USA"},
		},
		{
			name: "street only",
			in:   "742 Evergreen Terrace",
			want: Address{Street: "742 Evergreen Terrace", City: "N/A", State: "N/A", ZipCode: "N/A", Country: "N/A"},
		},
		{
			name: "explicit foreign country",
			in:   "10 King St, Toronto, M5H 1A1, Canada",
			want: Address{Street: "10 King St", City: "M5H 1A1", State: "N/A", ZipCode: "N/A", Country: "Canada"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ParseAddress(tc.in); got != tc.want {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestParseAddress_EmptyInput(t *testing.T) {
	got := ParseAddress("")
	if !got.Empty() {
		t.Fatalf("empty input parsed to %+v, want all N/A", got)
	}
}

func TestParseAddress_Truncation(t *testing.T) {
	long := strings.Repeat("x", 400)
	got := ParseAddress(long + ", Springfield, IL 62704, USA")
	if len(got.Street) != 255 {
		t.Fatalf("street length = %d, want 255", len(got.Street))
	}
}

func TestAddressEmpty(t *testing.T) {
	a := Address{Street: "N/A", City: "N/A", State: "IL", ZipCode: "N/A", Country: "N/A"}
	if !a.Empty() {
		t.Fatalf("state alone should not make an address non-empty")
	}
	a.City = "Springfield"
	if a.Empty() {
		t.Fatalf("city set, Empty() should be false")
	}
}
