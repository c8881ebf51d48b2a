package target

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Writer is the target-store contract the pipeline depends on. The concrete
// implementation is *Store (Postgres over pgx); tests substitute an
// in-memory fake.
type Writer interface {
	// Begin opens a batch transaction.
	Begin(ctx context.Context) (Tx, error)

	// UsernameIndex returns username → user id over committed data. Stages
	// commit fully before the next stage starts, so the index is complete
	// by the time orders are stitched.
	UsernameIndex(ctx context.Context) (map[string]int64, error)

	// AddressIndex returns user id → addresses, insertion-ordered, over
	// committed data.
	AddressIndex(ctx context.Context) (map[int64][]Address, error)

	// DeleteAll empties every target table, children first. Used only by
	// the explicit reset operation.
	DeleteAll(ctx context.Context) error
}

// Tx is a transactional handle. Savepoint nests a per-record transaction
// inside the batch so one bad record can be rolled back without losing the
// rest of the batch. Lookups run through the transaction and therefore see
// the batch's uncommitted writes.
type Tx interface {
	Savepoint(ctx context.Context) (Tx, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	InsertCategory(ctx context.Context, c *Category) (int64, error)
	FindCategoryByName(ctx context.Context, name string) (int64, bool, error)

	InsertUser(ctx context.Context, u *User) (int64, error)
	FindUserByUsername(ctx context.Context, username string) (int64, bool, error)
	FindUserByEmail(ctx context.Context, email string) (int64, bool, error)

	InsertAddress(ctx context.Context, a *Address) (int64, error)

	InsertProduct(ctx context.Context, p *Product) (int64, error)
	FindProductBySKU(ctx context.Context, sku string) (int64, bool, error)

	InsertOrder(ctx context.Context, o *Order) (int64, error)
	FindOrderByLegacyRef(ctx context.Context, ref string) (int64, bool, error)

	InsertOrderItem(ctx context.Context, it *OrderItem) (int64, error)
}

// Store is the Postgres-backed target writer.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects a pgx pool to the target database.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("target pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("target ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the connection pool.
func (s *Store) Close() { s.pool.Close() }

// Pool exposes the underlying pool for bulk (COPY) operations.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

func (s *Store) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	return &storeTx{tx: tx}, nil
}

func (s *Store) UsernameIndex(ctx context.Context) (map[string]int64, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, username FROM users`)
	if err != nil {
		return nil, fmt.Errorf("username index: %w", err)
	}
	defer rows.Close()

	idx := make(map[string]int64)
	for rows.Next() {
		var id int64
		var username string
		if err := rows.Scan(&id, &username); err != nil {
			return nil, fmt.Errorf("username index scan: %w", err)
		}
		idx[username] = id
	}
	return idx, rows.Err()
}

func (s *Store) AddressIndex(ctx context.Context) (map[int64][]Address, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, street, city, COALESCE(state, ''), zip_code, country,
		       is_default_shipping, is_default_billing
		FROM addresses
		ORDER BY user_id, id`)
	if err != nil {
		return nil, fmt.Errorf("address index: %w", err)
	}
	defer rows.Close()

	idx := make(map[int64][]Address)
	for rows.Next() {
		var a Address
		if err := rows.Scan(&a.ID, &a.UserID, &a.Street, &a.City, &a.State,
			&a.ZipCode, &a.Country, &a.IsDefaultShipping, &a.IsDefaultBilling); err != nil {
			return nil, fmt.Errorf("address index scan: %w", err)
		}
		idx[a.UserID] = append(idx[a.UserID], a)
	}
	return idx, rows.Err()
}

func (s *Store) DeleteAll(ctx context.Context) error {
	for _, table := range resetOrder {
		if _, err := s.pool.Exec(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("reset %s: %w", table, err)
		}
	}
	return nil
}

// storeTx wraps a pgx transaction (or savepoint) behind the Tx interface.
type storeTx struct {
	tx pgx.Tx
}

func (t *storeTx) Savepoint(ctx context.Context) (Tx, error) {
	inner, err := t.tx.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("savepoint: %w", err)
	}
	return &storeTx{tx: inner}, nil
}

func (t *storeTx) Commit(ctx context.Context) error   { return t.tx.Commit(ctx) }
func (t *storeTx) Rollback(ctx context.Context) error { return t.tx.Rollback(ctx) }

func (t *storeTx) InsertCategory(ctx context.Context, c *Category) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO product_categories (name, description)
		VALUES ($1, $2)
		RETURNING id`,
		c.Name, c.Description,
	).Scan(&id)
	return id, wrapInsert("insert category", err)
}

func (t *storeTx) FindCategoryByName(ctx context.Context, name string) (int64, bool, error) {
	return t.findID(ctx, `SELECT id FROM product_categories WHERE name = $1`, name)
}

func (t *storeTx) InsertUser(ctx context.Context, u *User) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO users (username, email, full_name, hashed_password,
		                   is_active, is_superuser, registration_date, phone_number)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		u.Username, u.Email, u.FullName, u.HashedPassword,
		u.IsActive, u.IsSuperuser, u.RegistrationDate, u.PhoneNumber,
	).Scan(&id)
	return id, wrapInsert("insert user", err)
}

func (t *storeTx) FindUserByUsername(ctx context.Context, username string) (int64, bool, error) {
	return t.findID(ctx, `SELECT id FROM users WHERE username = $1`, username)
}

func (t *storeTx) FindUserByEmail(ctx context.Context, email string) (int64, bool, error) {
	return t.findID(ctx, `SELECT id FROM users WHERE email = $1`, email)
}

func (t *storeTx) InsertAddress(ctx context.Context, a *Address) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO addresses (user_id, street, city, state, zip_code, country,
		                       is_default_shipping, is_default_billing)
		VALUES ($1, $2, $3, NULLIF($4, 'N/A'), $5, $6, $7, $8)
		RETURNING id`,
		a.UserID, a.Street, a.City, a.State, a.ZipCode, a.Country,
		a.IsDefaultShipping, a.IsDefaultBilling,
	).Scan(&id)
	return id, wrapInsert("insert address", err)
}

func (t *storeTx) InsertProduct(ctx context.Context, p *Product) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO products (name, description, price, sku, stock_quantity,
		                      category_id, created_at, updated_at)
		VALUES ($1, $2, $3::numeric, $4, $5, $6, $7, $8)
		RETURNING id`,
		p.Name, p.Description, p.Price.StringFixed(2), p.SKU, p.StockQuantity,
		p.CategoryID, p.CreatedAt, p.UpdatedAt,
	).Scan(&id)
	return id, wrapInsert("insert product", err)
}

func (t *storeTx) FindProductBySKU(ctx context.Context, sku string) (int64, bool, error) {
	return t.findID(ctx, `SELECT id FROM products WHERE sku = $1`, sku)
}

func (t *storeTx) InsertOrder(ctx context.Context, o *Order) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO orders (user_id, order_date, status, shipping_address_id,
		                    billing_address_id, legacy_ref)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		o.UserID, o.OrderDate, string(o.Status),
		o.ShippingAddressID, o.BillingAddressID, o.LegacyRef,
	).Scan(&id)
	return id, wrapInsert("insert order", err)
}

func (t *storeTx) FindOrderByLegacyRef(ctx context.Context, ref string) (int64, bool, error) {
	return t.findID(ctx, `SELECT id FROM orders WHERE legacy_ref = $1`, ref)
}

func (t *storeTx) InsertOrderItem(ctx context.Context, it *OrderItem) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO order_items (order_id, product_id, quantity, unit_price_at_purchase)
		VALUES ($1, $2, $3, $4::numeric)
		RETURNING id`,
		it.OrderID, it.ProductID, it.Quantity, it.UnitPrice.StringFixed(2),
	).Scan(&id)
	return id, wrapInsert("insert order item", err)
}

func (t *storeTx) findID(ctx context.Context, query string, arg any) (int64, bool, error) {
	var id int64
	err := t.tx.QueryRow(ctx, query, arg).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}
