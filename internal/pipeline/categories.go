package pipeline

import (
	"context"

	"shopmigrate/internal/identity"
	"shopmigrate/internal/normalize"
	"shopmigrate/internal/target"
)

// migrateCategories collapses the distinct raw category strings of the
// legacy products into normalized, unique target categories. Every raw form
// is aliased to the id of its normalized form so the products stage can look
// categories up under either spelling.
func (r *Runner) migrateCategories(ctx context.Context) (Stats, error) {
	var st Stats

	names, err := r.src.DistinctCategoryNames(ctx)
	if err != nil {
		return st, err
	}

	b := newBatcher(r.store, r.batchSize, "categories", r.log)
	for _, raw := range names {
		st.Processed++

		norm := normalize.Category(raw)
		if id, ok := r.ids.Peek(identity.KindCategory, norm); ok {
			// Another raw variant of the same category already resolved.
			r.ids.Alias(identity.KindCategory, raw, id)
			continue
		}

		var outcome identity.Outcome
		ok, err := b.do(ctx, raw, func(tx target.Tx) error {
			id, out, err := r.resolveCategory(ctx, tx, norm)
			if err != nil {
				return err
			}
			outcome = out
			r.ids.Alias(identity.KindCategory, raw, id)
			return nil
		})
		if err != nil {
			return st, err
		}
		if !ok {
			st.Skipped++
			continue
		}
		switch outcome {
		case identity.Created:
			st.Created++
		case identity.Adopted:
			st.Adopted++
		}
	}
	b.flush(ctx)
	return st, nil
}

// resolveCategory get-or-creates the normalized category inside tx. Shared
// with the products stage, which falls back to the Unknown category when a
// product's raw name never appeared in the distinct scan.
func (r *Runner) resolveCategory(ctx context.Context, tx target.Tx, norm string) (int64, identity.Outcome, error) {
	return r.ids.ResolveOrCreate(identity.KindCategory, norm,
		func() (int64, error) {
			return tx.InsertCategory(ctx, &target.Category{
				Name:        norm,
				Description: "Category for " + norm,
			})
		},
		func() (int64, bool, error) {
			return tx.FindCategoryByName(ctx, norm)
		})
}
