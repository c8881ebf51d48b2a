// Package legacy defines the denormalized source schema and a read-only,
// paged reader over it. Legacy rows are never written; every stringly-typed
// field is handed to the normalizers as-is.
package legacy

// User is a row of the legacy users table. Dates, addresses, and phone
// numbers are free-text.
type User struct {
	ID                  int64
	Username            string
	Email               string
	FullName            string
	RegistrationDateStr string
	AddressCombined     string
	PhoneNumberStr      string
}

// Product is a row of the legacy products table. Price and creation date are
// free-text; the category name is repeated on every row with case and
// whitespace variants.
type Product struct {
	ID           int64
	ProductName  string
	Description  string
	PriceStr     string
	CategoryName string
	CreatedAtStr string
}

// Order is a row of the legacy orders table. The user reference is a
// free-text identifier (usually a username), and the product name, quantity,
// and unit price are denormalized copies of the product row.
type Order struct {
	ID             int64
	UserIdentifier string
	OrderDateStr   string
	StatusText     string
	ProductName    string
	Quantity       int
	UnitPriceStr   string
	TotalStr       string
}
