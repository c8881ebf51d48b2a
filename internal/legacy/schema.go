package legacy

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Legacy tables, warts and all: dates, prices, and addresses as strings,
// category names repeated per product row, orders referencing users by
// free text. Only the seed tool ever creates or writes these.
var legacyDDL = []string{
	`CREATE TABLE IF NOT EXISTS old_users (
		id                    BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		username              VARCHAR(50)  NOT NULL UNIQUE,
		email                 VARCHAR(100) UNIQUE,
		full_name             VARCHAR(100),
		registration_date_str VARCHAR(20),
		address_combined      TEXT,
		phone_number_str      VARCHAR(20)
	)`,
	`CREATE TABLE IF NOT EXISTS old_products (
		id                      BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		product_name            VARCHAR(100) NOT NULL,
		description             TEXT,
		price_str               VARCHAR(20),
		category_name_redundant VARCHAR(50),
		created_at_str          VARCHAR(20)
	)`,
	`CREATE TABLE IF NOT EXISTS old_orders (
		id                      BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		user_identifier_text    VARCHAR(100),
		order_date_str          VARCHAR(20),
		status_text             VARCHAR(20),
		product_name_redundant  VARCHAR(100),
		quantity                INTEGER,
		unit_price_str_redundant VARCHAR(20),
		total_amount_str        VARCHAR(20)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_old_orders_user ON old_orders(user_identifier_text)`,
}

// EnsureSchema creates the legacy tables if they do not exist.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range legacyDDL {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure legacy schema: %w", err)
		}
	}
	return nil
}

// scanPage drains one page of rows using scanOne per row.
func scanPage[T any](rows pgx.Rows, scanOne func(scan func(...any) error) (T, error)) ([]T, error) {
	defer rows.Close()
	var out []T
	for rows.Next() {
		v, err := scanOne(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
