package legacy

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Source is the read-only contract the pipeline consumes. Implemented by
// *Reader against the legacy Postgres database; tests substitute an
// in-memory fake.
type Source interface {
	CountUsers(ctx context.Context) (int64, error)
	CountProducts(ctx context.Context) (int64, error)
	CountOrders(ctx context.Context) (int64, error)

	// DistinctCategoryNames returns the distinct raw category strings found
	// across all legacy products, unnormalized.
	DistinctCategoryNames(ctx context.Context) ([]string, error)

	// ForEach* iterate all rows of one kind in id order, invoking fn per
	// row. They page internally so the whole table is never held in memory.
	ForEachUser(ctx context.Context, fn func(User) error) error
	ForEachProduct(ctx context.Context, fn func(Product) error) error
	ForEachOrder(ctx context.Context, fn func(Order) error) error
}

// Reader pages through the legacy store with keyset pagination.
type Reader struct {
	pool     *pgxpool.Pool
	pageSize int
}

// NewReader connects a read-only pgx pool to the legacy database.
func NewReader(ctx context.Context, dsn string, pageSize int) (*Reader, error) {
	if pageSize <= 0 {
		pageSize = 500
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("legacy pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("legacy ping: %w", err)
	}
	return &Reader{pool: pool, pageSize: pageSize}, nil
}

// Close releases the connection pool.
func (r *Reader) Close() { r.pool.Close() }

// Pool exposes the underlying pool for the seed tool.
func (r *Reader) Pool() *pgxpool.Pool { return r.pool }

func (r *Reader) CountUsers(ctx context.Context) (int64, error) {
	return r.count(ctx, "old_users")
}

func (r *Reader) CountProducts(ctx context.Context) (int64, error) {
	return r.count(ctx, "old_products")
}

func (r *Reader) CountOrders(ctx context.Context) (int64, error) {
	return r.count(ctx, "old_orders")
}

func (r *Reader) count(ctx context.Context, table string) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, "SELECT count(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

func (r *Reader) DistinctCategoryNames(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT category_name_redundant
		FROM old_products
		WHERE category_name_redundant IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("distinct categories: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("distinct categories scan: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (r *Reader) ForEachUser(ctx context.Context, fn func(User) error) error {
	var lastID int64
	for {
		rows, err := r.pool.Query(ctx, `
			SELECT id, username, COALESCE(email, ''), COALESCE(full_name, ''),
			       COALESCE(registration_date_str, ''), COALESCE(address_combined, ''),
			       COALESCE(phone_number_str, '')
			FROM old_users
			WHERE id > $1
			ORDER BY id
			LIMIT $2`, lastID, r.pageSize)
		if err != nil {
			return fmt.Errorf("read legacy users: %w", err)
		}

		page, err := scanPage(rows, func(scan func(...any) error) (User, error) {
			var u User
			err := scan(&u.ID, &u.Username, &u.Email, &u.FullName,
				&u.RegistrationDateStr, &u.AddressCombined, &u.PhoneNumberStr)
			return u, err
		})
		if err != nil {
			return fmt.Errorf("read legacy users: %w", err)
		}
		for _, u := range page {
			if err := fn(u); err != nil {
				return err
			}
			lastID = u.ID
		}
		if len(page) < r.pageSize {
			return nil
		}
	}
}

func (r *Reader) ForEachProduct(ctx context.Context, fn func(Product) error) error {
	var lastID int64
	for {
		rows, err := r.pool.Query(ctx, `
			SELECT id, product_name, COALESCE(description, ''), COALESCE(price_str, ''),
			       COALESCE(category_name_redundant, ''), COALESCE(created_at_str, '')
			FROM old_products
			WHERE id > $1
			ORDER BY id
			LIMIT $2`, lastID, r.pageSize)
		if err != nil {
			return fmt.Errorf("read legacy products: %w", err)
		}

		page, err := scanPage(rows, func(scan func(...any) error) (Product, error) {
			var p Product
			err := scan(&p.ID, &p.ProductName, &p.Description, &p.PriceStr,
				&p.CategoryName, &p.CreatedAtStr)
			return p, err
		})
		if err != nil {
			return fmt.Errorf("read legacy products: %w", err)
		}
		for _, p := range page {
			if err := fn(p); err != nil {
				return err
			}
			lastID = p.ID
		}
		if len(page) < r.pageSize {
			return nil
		}
	}
}

func (r *Reader) ForEachOrder(ctx context.Context, fn func(Order) error) error {
	var lastID int64
	for {
		rows, err := r.pool.Query(ctx, `
			SELECT id, COALESCE(user_identifier_text, ''), COALESCE(order_date_str, ''),
			       COALESCE(status_text, ''), COALESCE(product_name_redundant, ''),
			       COALESCE(quantity, 0), COALESCE(unit_price_str_redundant, ''),
			       COALESCE(total_amount_str, '')
			FROM old_orders
			WHERE id > $1
			ORDER BY id
			LIMIT $2`, lastID, r.pageSize)
		if err != nil {
			return fmt.Errorf("read legacy orders: %w", err)
		}

		page, err := scanPage(rows, func(scan func(...any) error) (Order, error) {
			var o Order
			err := scan(&o.ID, &o.UserIdentifier, &o.OrderDateStr, &o.StatusText,
				&o.ProductName, &o.Quantity, &o.UnitPriceStr, &o.TotalStr)
			return o, err
		})
		if err != nil {
			return fmt.Errorf("read legacy orders: %w", err)
		}
		for _, o := range page {
			if err := fn(o); err != nil {
				return err
			}
			lastID = o.ID
		}
		if len(page) < r.pageSize {
			return nil
		}
	}
}
