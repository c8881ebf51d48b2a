package target

import (
	"context"
	"fmt"
)

// DDL statements in foreign-key order, parents first. CREATE IF NOT EXISTS
// throughout, so a fresh run against an empty database bootstraps itself.
var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id                BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		username          VARCHAR(50)  NOT NULL UNIQUE,
		email             VARCHAR(120) NOT NULL UNIQUE,
		full_name         VARCHAR(100),
		hashed_password   VARCHAR(255) NOT NULL,
		is_active         BOOLEAN      NOT NULL DEFAULT TRUE,
		is_superuser      BOOLEAN      NOT NULL DEFAULT FALSE,
		registration_date TIMESTAMPTZ  NOT NULL,
		phone_number      VARCHAR(20),
		created_at        TIMESTAMPTZ  NOT NULL DEFAULT now(),
		updated_at        TIMESTAMPTZ  NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS addresses (
		id                  BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		user_id             BIGINT       NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		street              VARCHAR(255) NOT NULL,
		city                VARCHAR(100) NOT NULL,
		state               VARCHAR(100),
		zip_code            VARCHAR(20)  NOT NULL,
		country             VARCHAR(100) NOT NULL,
		is_default_shipping BOOLEAN      NOT NULL DEFAULT FALSE,
		is_default_billing  BOOLEAN      NOT NULL DEFAULT FALSE,
		created_at          TIMESTAMPTZ  NOT NULL DEFAULT now(),
		updated_at          TIMESTAMPTZ  NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_addresses_user_id ON addresses(user_id)`,
	`CREATE TABLE IF NOT EXISTS product_categories (
		id          BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		name        VARCHAR(100) NOT NULL UNIQUE,
		description TEXT,
		created_at  TIMESTAMPTZ  NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id             BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		name           VARCHAR(200)  NOT NULL,
		description    TEXT,
		price          NUMERIC(10,2) NOT NULL,
		sku            VARCHAR(50)   NOT NULL UNIQUE,
		stock_quantity INTEGER       NOT NULL DEFAULT 0,
		category_id    BIGINT        NOT NULL REFERENCES product_categories(id),
		created_at     TIMESTAMPTZ   NOT NULL DEFAULT now(),
		updated_at     TIMESTAMPTZ   NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_products_name ON products(name)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id                  BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		user_id             BIGINT      NOT NULL REFERENCES users(id),
		order_date          TIMESTAMPTZ NOT NULL,
		status              VARCHAR(20) NOT NULL DEFAULT 'PENDING',
		shipping_address_id BIGINT      NOT NULL REFERENCES addresses(id),
		billing_address_id  BIGINT      REFERENCES addresses(id),
		legacy_ref          VARCHAR(64) NOT NULL UNIQUE,
		created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		id                     BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
		order_id               BIGINT        NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		product_id             BIGINT        NOT NULL REFERENCES products(id),
		quantity               INTEGER       NOT NULL,
		unit_price_at_purchase NUMERIC(10,2) NOT NULL,
		created_at             TIMESTAMPTZ   NOT NULL DEFAULT now(),
		updated_at             TIMESTAMPTZ   NOT NULL DEFAULT now()
	)`,
}

// resetOrder lists the tables child-first so DeleteAll never violates a
// foreign key.
var resetOrder = []string{
	"order_items",
	"orders",
	"addresses",
	"products",
	"product_categories",
	"users",
}

// EnsureSchema applies the target DDL. Every statement is idempotent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaDDL {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
