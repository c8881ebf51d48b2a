// Package target defines the normalized destination schema as Go types and
// implements the transactional writer used by the migration pipeline.
package target

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the closed set of states an order can be in after migration.
type OrderStatus string

const (
	StatusPending    OrderStatus = "PENDING"
	StatusProcessing OrderStatus = "PROCESSING"
	StatusShipped    OrderStatus = "SHIPPED"
	StatusDelivered  OrderStatus = "DELIVERED"
	StatusCancelled  OrderStatus = "CANCELLED"
	StatusRefunded   OrderStatus = "REFUNDED"
)

// User is a normalized account. Username and Email are unique.
type User struct {
	ID               int64
	Username         string
	Email            string
	FullName         string
	HashedPassword   string
	IsActive         bool
	IsSuperuser      bool
	RegistrationDate time.Time
	PhoneNumber      string
}

// Address belongs to exactly one user and is cascade-deleted with it.
// A user has at most one default shipping and one default billing address;
// the migration only ever creates one address per user, flagged as both.
type Address struct {
	ID                int64
	UserID            int64
	Street            string
	City              string
	State             string
	ZipCode           string
	Country           string
	IsDefaultShipping bool
	IsDefaultBilling  bool
}

// Category is a normalized product category with a unique name.
type Category struct {
	ID          int64
	Name        string
	Description string
}

// Product belongs to one category. SKU is unique and generated during
// migration; the legacy store has no SKU and no stock tracking.
type Product struct {
	ID            int64
	Name          string
	Description   string
	Price         decimal.Decimal
	SKU           string
	StockQuantity int
	CategoryID    int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Order belongs to one user and references a shipping and a billing address
// owned by that user. LegacyRef is the unique bridge back to the legacy
// order row; it is what makes order migration re-runnable without duplicates.
type Order struct {
	ID                int64
	UserID            int64
	OrderDate         time.Time
	Status            OrderStatus
	ShippingAddressID int64
	BillingAddressID  int64
	LegacyRef         string
}

// OrderItem belongs to exactly one order (cascade-deleted with it).
// UnitPrice is the price captured at purchase time from the legacy order
// line, never re-derived from the product.
type OrderItem struct {
	ID        int64
	OrderID   int64
	ProductID int64
	Quantity  int
	UnitPrice decimal.Decimal
}
