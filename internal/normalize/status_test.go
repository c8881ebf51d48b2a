package normalize

import (
	"testing"

	"shopmigrate/internal/target"
)

func TestStatus(t *testing.T) {
	cases := []struct {
		in   string
		want target.OrderStatus
		ok   bool
	}{
		{"pending", target.StatusPending, true},
		{"Pending", target.StatusPending, true},
		{"PROCESSING", target.StatusProcessing, true},
		{"shipped", target.StatusShipped, true},
		{" Shipped ", target.StatusShipped, true},
		{"enviado", target.StatusShipped, true},
		{"delivered", target.StatusDelivered, true},
		{"entregado", target.StatusDelivered, true},
		{"cancelled", target.StatusCancelled, true},
		{"cancelado", target.StatusCancelled, true},
		{"refunded", target.StatusRefunded, true},
		{"Returned?", target.StatusPending, false},
		{"", target.StatusPending, false},
	}
	for _, tc := range cases {
		got, ok := Status(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("Status(%q) = (%s, %v), want (%s, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
