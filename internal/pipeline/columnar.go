package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"shopmigrate/internal/identity"
	"shopmigrate/internal/legacy"
	"shopmigrate/internal/metrics"
	"shopmigrate/internal/normalize"
	"shopmigrate/internal/skiplog"
	"shopmigrate/internal/target"
)

// BulkRunner is the columnar migration variant: each stage reads the whole
// legacy set, transforms it in memory, bulk-loads it with COPY into a temp
// table, and folds it into the target tables with a single INSERT ... SELECT
// ... ON CONFLICT DO NOTHING. It trades memory for round trips and produces
// the same target rows as Runner. One transaction per stage; a stage either
// lands completely or not at all.
type BulkRunner struct {
	src   legacy.Source
	store *target.Store
	ids   *identity.Map
	log   *logrus.Logger
	skips *skiplog.Report
	now   func() time.Time
}

// NewBulkRunner wires the columnar variant. It needs the concrete store, not
// the Writer interface, because COPY goes straight through the pool.
func NewBulkRunner(src legacy.Source, store *target.Store, opts Options) *BulkRunner {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &BulkRunner{
		src:   src,
		store: store,
		ids:   identity.NewMap(),
		log:   opts.Logger,
		skips: opts.Skips,
		now:   opts.Now,
	}
}

// IdentityMap exposes the run's mapping tables.
func (r *BulkRunner) IdentityMap() *identity.Map { return r.ids }

// Run executes the four stages in dependency order.
func (r *BulkRunner) Run(ctx context.Context) (map[string]Stats, error) {
	stages := []struct {
		name string
		fn   func(context.Context) (Stats, error)
	}{
		{"categories", r.bulkCategories},
		{"users", r.bulkUsers},
		{"products", r.bulkProducts},
		{"orders", r.bulkOrders},
	}

	results := make(map[string]Stats, len(stages))
	for _, stage := range stages {
		log := r.log.WithField("stage", stage.name).WithField("variant", "columnar")
		log.Info("stage starting")

		start := time.Now()
		st, err := stage.fn(ctx)
		metrics.RecordStage(stage.name, err, time.Since(start))
		metrics.RecordRecords(stage.name, "created", st.Created)
		metrics.RecordRecords(stage.name, "adopted", st.Adopted)
		metrics.RecordRecords(stage.name, "skipped", st.Skipped)
		results[stage.name] = st

		if err != nil {
			log.WithError(err).Error("stage failed")
			return results, fmt.Errorf("stage %s: %w", stage.name, err)
		}
		log.WithField("duration", time.Since(start).Round(time.Millisecond)).
			Infof("stage done: %s", st)
	}
	return results, nil
}

func (r *BulkRunner) bulkCategories(ctx context.Context) (Stats, error) {
	var st Stats

	names, err := r.src.DistinctCategoryNames(ctx)
	if err != nil {
		return st, err
	}
	st.Processed = int64(len(names))

	normToRaws := make(map[string][]string)
	var norms []string
	for _, raw := range names {
		norm := normalize.Category(raw)
		if _, seen := normToRaws[norm]; !seen {
			norms = append(norms, norm)
		}
		normToRaws[norm] = append(normToRaws[norm], raw)
	}

	created, err := r.ensureCategories(ctx, norms)
	if err != nil {
		return st, err
	}
	st.Created = created
	st.Adopted = int64(len(norms)) - created

	for norm, raws := range normToRaws {
		id, ok := r.ids.Peek(identity.KindCategory, norm)
		if !ok {
			return st, fmt.Errorf("category %q missing after bulk load", norm)
		}
		for _, raw := range raws {
			r.ids.Alias(identity.KindCategory, raw, id)
		}
	}
	return st, nil
}

// ensureCategories bulk get-or-creates normalized category names and maps
// them in the identity map. Returns how many were newly created.
func (r *BulkRunner) ensureCategories(ctx context.Context, norms []string) (int64, error) {
	if len(norms) == 0 {
		return 0, nil
	}
	tx, err := r.store.Pool().Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		CREATE TEMP TABLE tmp_categories (name TEXT, description TEXT)
		ON COMMIT DROP`); err != nil {
		return 0, fmt.Errorf("temp categories: %w", err)
	}
	rows := make([][]any, 0, len(norms))
	for _, norm := range norms {
		rows = append(rows, []any{norm, "Category for " + norm})
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"tmp_categories"},
		[]string{"name", "description"}, pgx.CopyFromRows(rows)); err != nil {
		return 0, fmt.Errorf("copy categories: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		INSERT INTO product_categories (name, description)
		SELECT name, description FROM tmp_categories
		ON CONFLICT DO NOTHING`)
	if err != nil {
		return 0, fmt.Errorf("fold categories: %w", err)
	}

	ids, err := tx.Query(ctx,
		`SELECT id, name FROM product_categories WHERE name = ANY($1)`, norms)
	if err != nil {
		return 0, fmt.Errorf("read back categories: %w", err)
	}
	for ids.Next() {
		var id int64
		var name string
		if err := ids.Scan(&id, &name); err != nil {
			ids.Close()
			return 0, fmt.Errorf("read back categories: %w", err)
		}
		r.ids.Alias(identity.KindCategory, name, id)
	}
	ids.Close()
	if err := ids.Err(); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit categories: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *BulkRunner) bulkUsers(ctx context.Context) (Stats, error) {
	var st Stats

	var all []legacy.User
	if err := r.src.ForEachUser(ctx, func(u legacy.User) error {
		all = append(all, u)
		return nil
	}); err != nil {
		return st, err
	}
	st.Processed = int64(len(all))
	if len(all) == 0 {
		return st, nil
	}

	now := r.now()
	rows := make([][]any, 0, len(all))
	for _, u := range all {
		row, dateDefaulted := transformUser(u, now)
		if dateDefaulted {
			st.Warnings++
		}
		addr := normalize.ParseAddress(u.AddressCombined)
		hasAddr := !addr.Empty()
		if !hasAddr && u.AddressCombined != "" {
			st.Warnings++
		}
		rows = append(rows, []any{
			u.ID, row.Username, row.Email, row.FullName, row.HashedPassword,
			row.IsActive, row.IsSuperuser, row.RegistrationDate, row.PhoneNumber,
			addr.Street, addr.City, addr.State, addr.ZipCode, addr.Country, hasAddr,
		})
	}

	tx, err := r.store.Pool().Begin(ctx)
	if err != nil {
		return st, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		CREATE TEMP TABLE tmp_users (
			legacy_id         BIGINT,
			username          TEXT,
			email             TEXT,
			full_name         TEXT,
			hashed_password   TEXT,
			is_active         BOOLEAN,
			is_superuser      BOOLEAN,
			registration_date TIMESTAMPTZ,
			phone_number      TEXT,
			street            TEXT,
			city              TEXT,
			state             TEXT,
			zip_code          TEXT,
			country           TEXT,
			has_address       BOOLEAN
		) ON COMMIT DROP`); err != nil {
		return st, fmt.Errorf("temp users: %w", err)
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"tmp_users"},
		[]string{"legacy_id", "username", "email", "full_name", "hashed_password",
			"is_active", "is_superuser", "registration_date", "phone_number",
			"street", "city", "state", "zip_code", "country", "has_address"},
		pgx.CopyFromRows(rows)); err != nil {
		return st, fmt.Errorf("copy users: %w", err)
	}

	// Fold into users. RETURNING yields only the rows actually inserted;
	// conflicting rows belong to a prior run and are adopted below.
	createdIDs, err := collectIDs(tx.Query(ctx, `
		INSERT INTO users (username, email, full_name, hashed_password,
		                   is_active, is_superuser, registration_date, phone_number)
		SELECT username, email, full_name, hashed_password,
		       is_active, is_superuser, registration_date, phone_number
		FROM tmp_users
		ON CONFLICT DO NOTHING
		RETURNING id`))
	if err != nil {
		return st, fmt.Errorf("fold users: %w", err)
	}
	st.Created = int64(len(createdIDs))

	// Map every legacy id that resolved by username, created or pre-existing.
	mapped, err := tx.Query(ctx, `
		SELECT u.id, t.legacy_id
		FROM tmp_users t
		JOIN users u ON u.username = t.username`)
	if err != nil {
		return st, fmt.Errorf("read back users: %w", err)
	}
	var total int64
	for mapped.Next() {
		var uid, legacyID int64
		if err := mapped.Scan(&uid, &legacyID); err != nil {
			mapped.Close()
			return st, fmt.Errorf("read back users: %w", err)
		}
		r.ids.Alias(identity.KindUser, fmt.Sprintf("%d", legacyID), uid)
		total++
	}
	mapped.Close()
	if err := mapped.Err(); err != nil {
		return st, err
	}
	st.Adopted = total - st.Created

	// Addresses only for users created in this run.
	tag, err := tx.Exec(ctx, `
		INSERT INTO addresses (user_id, street, city, state, zip_code, country,
		                       is_default_shipping, is_default_billing)
		SELECT u.id, t.street, t.city, NULLIF(t.state, 'N/A'), t.zip_code, t.country,
		       TRUE, TRUE
		FROM tmp_users t
		JOIN users u ON u.username = t.username
		WHERE t.has_address AND u.id = ANY($1)`, createdIDs)
	if err != nil {
		return st, fmt.Errorf("fold addresses: %w", err)
	}
	st.Addresses = tag.RowsAffected()

	if err := tx.Commit(ctx); err != nil {
		return st, fmt.Errorf("commit users: %w", err)
	}
	return st, nil
}

func (r *BulkRunner) bulkProducts(ctx context.Context) (Stats, error) {
	var st Stats

	var all []legacy.Product
	if err := r.src.ForEachProduct(ctx, func(p legacy.Product) error {
		all = append(all, p)
		return nil
	}); err != nil {
		return st, err
	}
	st.Processed = int64(len(all))
	if len(all) == 0 {
		return st, nil
	}

	// Categories whose normalized spelling escaped the distinct scan (NULL
	// raw names) still need an id before rows can be built.
	var missing []string
	seen := make(map[string]bool)
	for _, p := range all {
		norm := normalize.Category(p.CategoryName)
		if _, ok := r.ids.Peek(identity.KindCategory, norm); !ok && !seen[norm] {
			seen[norm] = true
			missing = append(missing, norm)
		}
	}
	if len(missing) > 0 {
		st.Warnings += int64(len(missing))
		if _, err := r.ensureCategories(ctx, missing); err != nil {
			return st, err
		}
	}

	now := r.now()
	rows := make([][]any, 0, len(all))
	for _, p := range all {
		row, priceDefaulted, dateDefaulted := transformProduct(p, now)
		if priceDefaulted {
			st.Warnings++
		}
		if dateDefaulted {
			st.Warnings++
		}
		catID, _ := r.ids.Peek(identity.KindCategory, normalize.Category(p.CategoryName))
		rows = append(rows, []any{
			p.ID, row.Name, row.Description, row.Price.StringFixed(2), row.SKU,
			row.StockQuantity, catID, row.CreatedAt,
		})
	}

	tx, err := r.store.Pool().Begin(ctx)
	if err != nil {
		return st, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		CREATE TEMP TABLE tmp_products (
			legacy_id   BIGINT,
			name        TEXT,
			description TEXT,
			price       TEXT,
			sku         TEXT,
			stock       INT,
			category_id BIGINT,
			created_at  TIMESTAMPTZ
		) ON COMMIT DROP`); err != nil {
		return st, fmt.Errorf("temp products: %w", err)
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"tmp_products"},
		[]string{"legacy_id", "name", "description", "price", "sku",
			"stock", "category_id", "created_at"},
		pgx.CopyFromRows(rows)); err != nil {
		return st, fmt.Errorf("copy products: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		INSERT INTO products (name, description, price, sku, stock_quantity,
		                      category_id, created_at, updated_at)
		SELECT name, description, price::numeric, sku, stock,
		       category_id, created_at, created_at
		FROM tmp_products
		ON CONFLICT DO NOTHING`)
	if err != nil {
		return st, fmt.Errorf("fold products: %w", err)
	}
	st.Created = tag.RowsAffected()

	mapped, err := tx.Query(ctx, `
		SELECT p.id, t.legacy_id, t.name
		FROM tmp_products t
		JOIN products p ON p.sku = t.sku`)
	if err != nil {
		return st, fmt.Errorf("read back products: %w", err)
	}
	var total int64
	for mapped.Next() {
		var pid, legacyID int64
		var name string
		if err := mapped.Scan(&pid, &legacyID, &name); err != nil {
			mapped.Close()
			return st, fmt.Errorf("read back products: %w", err)
		}
		r.ids.Alias(identity.KindProduct, fmt.Sprintf("%d", legacyID), pid)
		r.ids.Alias(identity.KindProductName, name, pid)
		total++
	}
	mapped.Close()
	if err := mapped.Err(); err != nil {
		return st, err
	}
	st.Adopted = total - st.Created

	if err := tx.Commit(ctx); err != nil {
		return st, fmt.Errorf("commit products: %w", err)
	}
	return st, nil
}

func (r *BulkRunner) bulkOrders(ctx context.Context) (Stats, error) {
	var st Stats

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

	now := r.now()
	var rows [][]any
	err = r.src.ForEachOrder(ctx, func(o legacy.Order) error {
		st.Processed++
		s, reason := stitchOrder(o, users, addresses, productID, now)
		if reason != "" {
			st.Skipped++
			detail := o.UserIdentifier
			if reason == skipProductNotFound {
				detail = o.ProductName
			}
			if r.skips != nil {
				r.skips.Add("orders", reason, fmt.Sprintf("%d", o.ID), detail)
			}
			return nil
		}
		st.Warnings += s.warnings()
		rows = append(rows, []any{
			s.order.UserID, s.order.OrderDate, string(s.order.Status),
			s.order.ShippingAddressID, s.order.BillingAddressID, s.order.LegacyRef,
			s.item.ProductID, s.item.Quantity, s.item.UnitPrice.StringFixed(2),
		})
		return nil
	})
	if err != nil {
		return st, err
	}
	if len(rows) == 0 {
		return st, nil
	}

	tx, err := r.store.Pool().Begin(ctx)
	if err != nil {
		return st, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		CREATE TEMP TABLE tmp_orders (
			user_id             BIGINT,
			order_date          TIMESTAMPTZ,
			status              TEXT,
			shipping_address_id BIGINT,
			billing_address_id  BIGINT,
			legacy_ref          TEXT,
			product_id          BIGINT,
			quantity            INT,
			unit_price          TEXT
		) ON COMMIT DROP`); err != nil {
		return st, fmt.Errorf("temp orders: %w", err)
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"tmp_orders"},
		[]string{"user_id", "order_date", "status", "shipping_address_id",
			"billing_address_id", "legacy_ref", "product_id", "quantity", "unit_price"},
		pgx.CopyFromRows(rows)); err != nil {
		return st, fmt.Errorf("copy orders: %w", err)
	}

	createdIDs, err := collectIDs(tx.Query(ctx, `
		INSERT INTO orders (user_id, order_date, status, shipping_address_id,
		                    billing_address_id, legacy_ref)
		SELECT user_id, order_date, status, shipping_address_id,
		       billing_address_id, legacy_ref
		FROM tmp_orders
		ON CONFLICT DO NOTHING
		RETURNING id`))
	if err != nil {
		return st, fmt.Errorf("fold orders: %w", err)
	}
	st.Created = int64(len(createdIDs))
	st.Adopted = int64(len(rows)) - st.Created

	// Items only for orders created in this run; adopted orders already
	// carry theirs.
	if _, err := tx.Exec(ctx, `
		INSERT INTO order_items (order_id, product_id, quantity, unit_price_at_purchase)
		SELECT o.id, t.product_id, t.quantity, t.unit_price::numeric
		FROM tmp_orders t
		JOIN orders o ON o.legacy_ref = t.legacy_ref
		WHERE o.id = ANY($1)`, createdIDs); err != nil {
		return st, fmt.Errorf("fold order items: %w", err)
	}

	mapped, err := tx.Query(ctx, `
		SELECT o.id, t.legacy_ref
		FROM tmp_orders t
		JOIN orders o ON o.legacy_ref = t.legacy_ref`)
	if err != nil {
		return st, fmt.Errorf("read back orders: %w", err)
	}
	for mapped.Next() {
		var oid int64
		var ref string
		if err := mapped.Scan(&oid, &ref); err != nil {
			mapped.Close()
			return st, fmt.Errorf("read back orders: %w", err)
		}
		r.ids.Alias(identity.KindOrder, ref, oid)
	}
	mapped.Close()
	if err := mapped.Err(); err != nil {
		return st, err
	}

	if err := tx.Commit(ctx); err != nil {
		return st, fmt.Errorf("commit orders: %w", err)
	}
	return st, nil
}

// collectIDs drains a single-column id query.
func collectIDs(rows pgx.Rows, err error) ([]int64, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
