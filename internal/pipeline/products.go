package pipeline

import (
	"context"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"shopmigrate/internal/identity"
	"shopmigrate/internal/legacy"
	"shopmigrate/internal/normalize"
	"shopmigrate/internal/target"
)

// transformProduct maps a legacy product row onto the target model, minus
// the category id, which needs the identity map. The flags report which
// fields fell back to defaults.
func transformProduct(p legacy.Product, now time.Time) (prod target.Product, priceDefaulted, dateDefaulted bool) {
	price, okPrice := normalize.ParsePrice(p.PriceStr)
	if !okPrice {
		price = decimal.Zero
	}
	created, okDate := normalize.ParseDate(p.CreatedAtStr, normalize.ProductDateLayouts)
	if !okDate {
		created = now
	}
	return target.Product{
		Name:          p.ProductName,
		Description:   p.Description,
		Price:         price,
		SKU:           ProductSKU(p.ID),
		StockQuantity: SyntheticStock(p.ID),
		CategoryID:    0,
		CreatedAt:     created,
		UpdatedAt:     created,
	}, !okPrice, !okDate
}

// migrateProducts moves legacy products under their normalized categories.
// Every migrated product is additionally mapped by its exact legacy name so
// the orders stage can stitch order lines back to product ids.
func (r *Runner) migrateProducts(ctx context.Context) (Stats, error) {
	var st Stats

	if n, err := r.src.CountProducts(ctx); err == nil {
		r.log.WithField("stage", "products").Infof("migrating %s legacy products", humanize.Comma(n))
	}

	b := newBatcher(r.store, r.batchSize, "products", r.log)
	err := r.src.ForEachProduct(ctx, func(p legacy.Product) error {
		st.Processed++
		key := strconv.FormatInt(p.ID, 10)

		row, priceDefaulted, dateDefaulted := transformProduct(p, r.now())
		if priceDefaulted {
			st.Warnings++
			r.log.WithField("legacy_id", p.ID).
				WithField("value", p.PriceStr).
				Warn("unparseable price, defaulting to 0.00")
		}
		if dateDefaulted {
			st.Warnings++
			r.log.WithField("legacy_id", p.ID).
				WithField("value", p.CreatedAtStr).
				Warn("unparseable creation date, defaulting to now")
		}

		var outcome identity.Outcome
		ok, err := b.do(ctx, key, func(tx target.Tx) error {
			norm := normalize.Category(p.CategoryName)
			catID, found := r.ids.Peek(identity.KindCategory, norm)
			if !found {
				// The distinct scan missed this spelling; fall back to the
				// synthesized Unknown category rather than failing the row.
				st.Warnings++
				r.log.WithField("legacy_id", p.ID).
					WithField("category", p.CategoryName).
					Warn("unresolved category, using fallback")
				var err error
				catID, _, err = r.resolveCategory(ctx, tx, normalize.FallbackCategory)
				if err != nil {
					return err
				}
			}
			row.CategoryID = catID

			pid, out, err := r.ids.ResolveOrCreate(identity.KindProduct, key,
				func() (int64, error) {
					return tx.InsertProduct(ctx, &row)
				},
				func() (int64, bool, error) {
					return tx.FindProductBySKU(ctx, row.SKU)
				})
			if err != nil {
				return err
			}
			outcome = out
			r.ids.Alias(identity.KindProductName, p.ProductName, pid)
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
