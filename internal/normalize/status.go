package normalize

import (
	"strings"

	"shopmigrate/internal/target"
)

// statusTable maps folded legacy status text to the closed target set. The
// Spanish variants appear in real legacy rows alongside the English ones.
var statusTable = map[string]target.OrderStatus{
	"pending":     target.StatusPending,
	"processing":  target.StatusProcessing,
	"shipped":     target.StatusShipped,
	"enviado":     target.StatusShipped,
	"delivered":   target.StatusDelivered,
	"entregado":   target.StatusDelivered,
	"cancelled":   target.StatusCancelled,
	"cancelado":   target.StatusCancelled,
	"refunded":    target.StatusRefunded,
	"reembolsado": target.StatusRefunded,
}

// Status maps free-text order status onto the target enumeration after
// case and whitespace folding. Unrecognized values return
// (StatusPending, false); the caller logs the data-quality warning.
func Status(s string) (target.OrderStatus, bool) {
	st, ok := statusTable[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return target.StatusPending, false
	}
	return st, true
}
