package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"shopmigrate/internal/identity"
	"shopmigrate/internal/legacy"
	"shopmigrate/internal/normalize"
	"shopmigrate/internal/target"
)

// Skip reasons recorded in the skip report by the orders stage.
const (
	skipUserNotFound    = "user_not_found"
	skipNoAddress       = "no_address"
	skipProductNotFound = "product_not_found"
)

// legacyRef is the unique bridge from a legacy order row to its target
// order. It is what makes the orders stage a no-op on re-run.
func legacyRef(legacyID int64) string {
	return fmt.Sprintf("legacy:%d", legacyID)
}

// stitchedOrder is a legacy order with every reference resolved against the
// target store and every field normalized, ready to insert.
type stitchedOrder struct {
	order target.Order
	item  target.OrderItem

	dateDefaulted  bool
	statusUnknown  bool
	priceDefaulted bool
}

// warnings counts the defaulted fields.
func (s stitchedOrder) warnings() int64 {
	var n int64
	if s.dateDefaulted {
		n++
	}
	if s.statusUnknown {
		n++
	}
	if s.priceDefaulted {
		n++
	}
	return n
}

// stitchOrder resolves a legacy order against the committed users,
// addresses, and products. It returns a non-empty skip reason when a
// reference cannot be resolved; an unresolvable reference always skips the
// whole order so no order is ever written without its item. Both migration
// variants stitch through this function, which is what keeps their output
// identical.
func stitchOrder(
	o legacy.Order,
	users map[string]int64,
	addresses map[int64][]target.Address,
	productID func(name string) (int64, bool),
	now time.Time,
) (stitchedOrder, string) {
	var s stitchedOrder

	userID, ok := users[o.UserIdentifier]
	if !ok {
		return s, skipUserNotFound
	}

	addrs := addresses[userID]
	if len(addrs) == 0 {
		return s, skipNoAddress
	}
	shipping := addrs[0]
	for _, a := range addrs {
		if a.IsDefaultShipping {
			shipping = a
			break
		}
	}
	billing := shipping
	for _, a := range addrs {
		if a.IsDefaultBilling {
			billing = a
			break
		}
	}

	pid, ok := productID(o.ProductName)
	if !ok {
		return s, skipProductNotFound
	}

	date, ok := normalize.ParseDate(o.OrderDateStr, normalize.OrderDateLayouts)
	if !ok {
		date = now
		s.dateDefaulted = true
	}
	status, ok := normalize.Status(o.StatusText)
	s.statusUnknown = !ok

	qty := o.Quantity
	if qty <= 0 {
		qty = 1
	}
	unit, ok := normalize.ParsePrice(o.UnitPriceStr)
	if !ok {
		unit = decimal.Zero
		s.priceDefaulted = true
	}

	s.order = target.Order{
		UserID:            userID,
		OrderDate:         date,
		Status:            status,
		ShippingAddressID: shipping.ID,
		BillingAddressID:  billing.ID,
		LegacyRef:         legacyRef(o.ID),
	}
	s.item = target.OrderItem{
		ProductID: pid,
		Quantity:  qty,
		UnitPrice: unit,
	}
	return s, ""
}

// migrateOrders stitches legacy orders back together against the committed
// output of the earlier stages. Order and item are written inside one
// savepoint, so a failing item takes its order down with it.
func (r *Runner) migrateOrders(ctx context.Context) (Stats, error) {
	var st Stats

	if n, err := r.src.CountOrders(ctx); err == nil {
		r.log.WithField("stage", "orders").Infof("migrating %s legacy orders", humanize.Comma(n))
	}

	users, err := r.store.UsernameIndex(ctx)
	if err != nil {
		return st, err
	}
	addresses, err := r.store.AddressIndex(ctx)
	if err != nil {
		return st, err
	}
	productID := func(name string) (int64, bool) {
		return r.ids.Peek(identity.KindProductName, name)
	}

	b := newBatcher(r.store, r.batchSize, "orders", r.log)
	err = r.src.ForEachOrder(ctx, func(o legacy.Order) error {
		st.Processed++
		key := strconv.FormatInt(o.ID, 10)

		s, reason := stitchOrder(o, users, addresses, productID, r.now())
		if reason != "" {
			st.Skipped++
			detail := o.UserIdentifier
			if reason == skipProductNotFound {
				detail = o.ProductName
			}
			r.skip("orders", reason, o.ID, detail)
			r.log.WithField("legacy_id", o.ID).
				WithField("reason", reason).
				WithField("detail", detail).
				Warn("order skipped")
			return nil
		}
		if n := s.warnings(); n > 0 {
			st.Warnings += n
		}
		if s.statusUnknown {
			r.log.WithField("legacy_id", o.ID).
				WithField("value", o.StatusText).
				Warn("unknown order status, defaulting to PENDING")
		}

		var outcome identity.Outcome
		ok, err := b.do(ctx, key, func(tx target.Tx) error {
			_, out, err := r.ids.ResolveOrCreate(identity.KindOrder, s.order.LegacyRef,
				func() (int64, error) {
					oid, err := tx.InsertOrder(ctx, &s.order)
					if err != nil {
						return 0, err
					}
					item := s.item
					item.OrderID = oid
					if _, err := tx.InsertOrderItem(ctx, &item); err != nil {
						return 0, err
					}
					return oid, nil
				},
				func() (int64, bool, error) {
					return tx.FindOrderByLegacyRef(ctx, s.order.LegacyRef)
				})
			if err != nil {
				return err
			}
			outcome = out
			return nil
		})
		if err != nil {
			return err
		}
		if !ok {
			st.Skipped++
			return nil
		}
		switch outcome {
		case identity.Created:
			st.Created++
		case identity.Adopted:
			st.Adopted++
		}
		return nil
	})
	if err != nil {
		return st, err
	}
	b.flush(ctx)
	return st, nil
}
