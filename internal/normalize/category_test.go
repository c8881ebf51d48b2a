package normalize

import "testing"

func TestCategory(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"electronics", "Electronics"},
		{"Electronics", "Electronics"},
		{" Electronics ", "Electronics"},
		{"home goods", "Home Goods"},
		{"LIBROS", "Libros"},
		{" ropa ", "Ropa"},
		{"", "Unknown"},
		{"   ", "Unknown"},
	}
	for _, tc := range cases {
		if got := Category(tc.in); got != tc.want {
			t.Errorf("Category(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCategory_VariantsCollapse(t *testing.T) {
	variants := []string{"electronics", "Electronics", " Electronics ", "ELECTRONICS"}
	want := Category(variants[0])
	for _, v := range variants[1:] {
		if got := Category(v); got != want {
			t.Fatalf("Category(%q) = %q, want %q", v, got, want)
		}
	}
}
