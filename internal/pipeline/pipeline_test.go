package pipeline

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"shopmigrate/internal/legacy"
	"shopmigrate/internal/skiplog"
	"shopmigrate/internal/target"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testSource() *fakeSource {
	return &fakeSource{
		users: []legacy.User{
			{ID: 1, Username: "alice", Email: "alice@example.com", FullName: "Alice Smith",
				RegistrationDateStr: "2023-01-15 10:30",
				AddressCombined:     "123 Main St, Springfield, IL 62704, USA",
				PhoneNumberStr:      "555-0101"},
			{ID: 2, Username: "bob", Email: "bob@example.com", FullName: "Bob Jones",
				RegistrationDateStr: "2023-02-20",
				AddressCombined:     "456 Oak Ave, Portland"},
			{ID: 3, Username: "carol", Email: "carol@example.com", FullName: "Carol White",
				RegistrationDateStr: "sometime in march"},
			{ID: 4, Username: "dave", Email: "dave@example.com", FullName: "Dave Black",
				RegistrationDateStr: "2023-03-01"},
		},
		products: []legacy.Product{
			{ID: 1, ProductName: "Widget", Description: "A widget",
				PriceStr: "25.99 USD", CategoryName: "Electronics", CreatedAtStr: "15/03/2023"},
			{ID: 2, ProductName: "Gadget", Description: "A gadget",
				PriceStr: "10.99-12.99", CategoryName: "electronics ", CreatedAtStr: "2023-04-01"},
			{ID: 3, ProductName: "Doohickey", Description: "A doohickey",
				PriceStr: "contact us", CategoryName: "Home Goods", CreatedAtStr: "soon"},
		},
		orders: []legacy.Order{
			{ID: 1, UserIdentifier: "alice", OrderDateStr: "2023-05-10",
				StatusText: "Enviado", ProductName: "Widget", Quantity: 2, UnitPriceStr: "25.99"},
			{ID: 2, UserIdentifier: "bob", OrderDateStr: "05/15/2023 02:30 PM",
				StatusText: "weird status", ProductName: "Gadget", Quantity: 1, UnitPriceStr: "10.99"},
			{ID: 3, UserIdentifier: "ghost", OrderDateStr: "2023-05-20",
				StatusText: "pending", ProductName: "Widget", Quantity: 1, UnitPriceStr: "25.99"},
			{ID: 4, UserIdentifier: "carol", OrderDateStr: "2023-05-21",
				StatusText: "pending", ProductName: "Widget", Quantity: 1, UnitPriceStr: "25.99"},
			{ID: 5, UserIdentifier: "alice", OrderDateStr: "2023-05-22",
				StatusText: "pending", ProductName: "Nonexistent", Quantity: 1, UnitPriceStr: "9.99"},
			{ID: 6, UserIdentifier: "alice", OrderDateStr: "2023-05-23",
				StatusText: "delivered", ProductName: "Widget", Quantity: 0, UnitPriceStr: ""},
		},
	}
}

func newTestRunner(src legacy.Source, store target.Writer, skips *skiplog.Report) *Runner {
	return NewRunner(src, store, Options{
		BatchSize: 500,
		Logger:    quietLogger(),
		Skips:     skips,
		Now:       func() time.Time { return fixedNow },
	})
}

func TestRunMigratesEverything(t *testing.T) {
	src := testSource()
	store := newFakeStore()
	r := newTestRunner(src, store, nil)

	stats, err := r.Run(context.Background())
	require.NoError(t, err)

	cats := stats["categories"]
	require.Equal(t, int64(3), cats.Processed)
	require.Equal(t, int64(2), cats.Created)
	require.Zero(t, cats.Skipped)

	users := stats["users"]
	require.Equal(t, int64(4), users.Processed)
	require.Equal(t, int64(4), users.Created)
	require.Equal(t, int64(1), users.Warnings)
	require.Equal(t, int64(2), users.Addresses)

	products := stats["products"]
	require.Equal(t, int64(3), products.Created)
	require.Equal(t, int64(2), products.Warnings)

	orders := stats["orders"]
	require.Equal(t, int64(6), orders.Processed)
	require.Equal(t, int64(3), orders.Created)
	require.Equal(t, int64(3), orders.Skipped)
	require.Equal(t, int64(2), orders.Warnings)

	d := store.committed
	require.Len(t, d.categories, 2)
	require.Len(t, d.users, 4)
	require.Len(t, d.addresses, 2)
	require.Len(t, d.products, 3)
	require.Len(t, d.orders, 3)
	require.Len(t, d.items, 3)
}

func TestRunNormalizesFields(t *testing.T) {
	src := testSource()
	store := newFakeStore()
	r := newTestRunner(src, store, nil)

	_, err := r.Run(context.Background())
	require.NoError(t, err)
	d := store.committed

	catNames := make(map[string]int64)
	for _, c := range d.categories {
		catNames[c.Name] = c.ID
		require.Equal(t, "Category for "+c.Name, c.Description)
	}
	require.Contains(t, catNames, "Electronics")
	require.Contains(t, catNames, "Home Goods")

	byUsername := make(map[string]target.User)
	for _, u := range d.users {
		byUsername[u.Username] = u
	}
	alice := byUsername["alice"]
	require.Equal(t, time.Date(2023, 1, 15, 10, 30, 0, 0, time.UTC), alice.RegistrationDate)
	require.Equal(t, placeholderCredential, alice.HashedPassword)
	require.True(t, alice.IsActive)
	require.False(t, alice.IsSuperuser)
	require.Equal(t, "555-0101", alice.PhoneNumber)
	// Unparseable registration date defaults to the run clock.
	require.Equal(t, fixedNow, byUsername["carol"].RegistrationDate)

	var aliceAddr target.Address
	for _, a := range d.addresses {
		if a.UserID == alice.ID {
			aliceAddr = a
		}
	}
	require.Equal(t, "123 Main St", aliceAddr.Street)
	require.Equal(t, "Springfield", aliceAddr.City)
	require.Equal(t, "IL", aliceAddr.State)
	require.Equal(t, "62704", aliceAddr.ZipCode)
	require.Equal(t, "USA", aliceAddr.Country)
	require.True(t, aliceAddr.IsDefaultShipping)
	require.True(t, aliceAddr.IsDefaultBilling)

	byName := make(map[string]target.Product)
	for _, p := range d.products {
		byName[p.Name] = p
	}
	widget := byName["Widget"]
	require.Equal(t, "25.99", widget.Price.StringFixed(2))
	require.Equal(t, ProductSKU(1), widget.SKU)
	require.Equal(t, SyntheticStock(1), widget.StockQuantity)
	require.Equal(t, catNames["Electronics"], widget.CategoryID)
	require.Equal(t, time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC), widget.CreatedAt)
	// Price range takes the lower bound; the category variant collapses.
	require.Equal(t, "10.99", byName["Gadget"].Price.StringFixed(2))
	require.Equal(t, catNames["Electronics"], byName["Gadget"].CategoryID)
	// Unparseable price and date degrade to 0.00 and the run clock.
	require.Equal(t, "0.00", byName["Doohickey"].Price.StringFixed(2))
	require.Equal(t, fixedNow, byName["Doohickey"].CreatedAt)

	byRef := make(map[string]target.Order)
	for _, o := range d.orders {
		byRef[o.LegacyRef] = o
	}
	first := byRef["legacy:1"]
	require.Equal(t, alice.ID, first.UserID)
	require.Equal(t, target.StatusShipped, first.Status)
	require.Equal(t, aliceAddr.ID, first.ShippingAddressID)
	require.Equal(t, aliceAddr.ID, first.BillingAddressID)
	// Unknown status defaults to pending.
	require.Equal(t, target.StatusPending, byRef["legacy:2"].Status)

	itemsByOrder := make(map[int64]target.OrderItem)
	for _, it := range d.items {
		itemsByOrder[it.OrderID] = it
	}
	require.Equal(t, 2, itemsByOrder[first.ID].Quantity)
	require.Equal(t, "25.99", itemsByOrder[first.ID].UnitPrice.StringFixed(2))
	require.Equal(t, widget.ID, itemsByOrder[first.ID].ProductID)
	// Non-positive quantity floors to 1, blank unit price to 0.00.
	sixth := byRef["legacy:6"]
	require.Equal(t, 1, itemsByOrder[sixth.ID].Quantity)
	require.Equal(t, "0.00", itemsByOrder[sixth.ID].UnitPrice.StringFixed(2))
}

func TestRunIsIdempotent(t *testing.T) {
	src := testSource()
	store := newFakeStore()

	_, err := newTestRunner(src, store, nil).Run(context.Background())
	require.NoError(t, err)
	first := store.committed.clone()

	// A fresh runner has an empty identity map; everything must be adopted
	// from the target store instead of duplicated.
	stats, err := newTestRunner(src, store, nil).Run(context.Background())
	require.NoError(t, err)

	for _, stage := range []string{"categories", "users", "products", "orders"} {
		require.Zerof(t, stats[stage].Created, "stage %s created rows on re-run", stage)
	}
	require.Equal(t, int64(2), stats["categories"].Adopted)
	require.Equal(t, int64(4), stats["users"].Adopted)
	require.Equal(t, int64(3), stats["products"].Adopted)
	require.Equal(t, int64(3), stats["orders"].Adopted)
	require.Zero(t, stats["users"].Addresses)

	d := store.committed
	require.Len(t, d.categories, len(first.categories))
	require.Len(t, d.users, len(first.users))
	require.Len(t, d.addresses, len(first.addresses))
	require.Len(t, d.products, len(first.products))
	require.Len(t, d.orders, len(first.orders))
	require.Len(t, d.items, len(first.items))
}

func TestRunWritesSkipReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.csv")
	skips, closeFn, err := skiplog.New(path)
	require.NoError(t, err)

	src := testSource()
	store := newFakeStore()
	_, err = newTestRunner(src, store, skips).Run(context.Background())
	require.NoError(t, err)
	closeFn()

	reasons := skips.Reasons()
	require.Equal(t, 1, reasons[skipUserNotFound])
	require.Equal(t, 1, reasons[skipNoAddress])
	require.Equal(t, 1, reasons[skipProductNotFound])
}

func TestRunIsolatesRecordFailures(t *testing.T) {
	src := &fakeSource{users: testSource().users}
	store := newFakeStore()
	store.failUserInsert = map[string]error{
		"bob": &pgconn.PgError{Code: "23502", Message: "null value in column"},
	}

	stats, err := newTestRunner(src, store, nil).Run(context.Background())
	require.NoError(t, err)

	users := stats["users"]
	require.Equal(t, int64(4), users.Processed)
	require.Equal(t, int64(3), users.Created)
	require.Equal(t, int64(1), users.Skipped)
	require.Len(t, store.committed.users, 3)
}

func TestRunAbortsOnFatalError(t *testing.T) {
	src := &fakeSource{users: testSource().users}
	store := newFakeStore()
	store.failUserInsert = map[string]error{
		"bob": errors.New("connection reset by peer"),
	}

	_, err := newTestRunner(src, store, nil).Run(context.Background())
	require.ErrorContains(t, err, "stage users")
	require.ErrorContains(t, err, "connection reset")
}

func TestBatcherCommitCadence(t *testing.T) {
	src := &fakeSource{users: []legacy.User{
		{ID: 1, Username: "u1", Email: "u1@example.com", RegistrationDateStr: "2023-01-01"},
		{ID: 2, Username: "u2", Email: "u2@example.com", RegistrationDateStr: "2023-01-01"},
		{ID: 3, Username: "u3", Email: "u3@example.com", RegistrationDateStr: "2023-01-01"},
		{ID: 4, Username: "u4", Email: "u4@example.com", RegistrationDateStr: "2023-01-01"},
		{ID: 5, Username: "u5", Email: "u5@example.com", RegistrationDateStr: "2023-01-01"},
	}}
	store := newFakeStore()
	r := NewRunner(src, store, Options{
		BatchSize: 2,
		Logger:    quietLogger(),
		Now:       func() time.Time { return fixedNow },
	})

	_, err := r.Run(context.Background())
	require.NoError(t, err)

	// Five records at batch size two: two full batches plus the flushed
	// remainder. Empty stages never begin a transaction.
	require.Equal(t, 3, store.begun)
	require.Len(t, store.committed.users, 5)
}

func TestResetEmptiesTarget(t *testing.T) {
	src := testSource()
	store := newFakeStore()
	r := newTestRunner(src, store, nil)

	_, err := r.Run(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, store.committed.users)

	require.NoError(t, r.Reset(context.Background()))
	require.Empty(t, store.committed.users)
	require.Empty(t, store.committed.orders)
}

func TestStitchOrderAddressSelection(t *testing.T) {
	users := map[string]int64{"alice": 7}
	addresses := map[int64][]target.Address{7: {
		{ID: 1, UserID: 7},
		{ID: 2, UserID: 7, IsDefaultShipping: true},
		{ID: 3, UserID: 7, IsDefaultBilling: true},
	}}
	productID := func(string) (int64, bool) { return 11, true }

	o := legacy.Order{ID: 9, UserIdentifier: "alice", OrderDateStr: "2023-05-10",
		StatusText: "shipped", ProductName: "Widget", Quantity: 3, UnitPriceStr: "5.00"}
	s, reason := stitchOrder(o, users, addresses, productID, fixedNow)
	require.Empty(t, reason)
	require.Equal(t, int64(2), s.order.ShippingAddressID)
	require.Equal(t, int64(3), s.order.BillingAddressID)
	require.Equal(t, "legacy:9", s.order.LegacyRef)

	// Without defaults the first address serves both roles.
	addresses[7] = []target.Address{{ID: 4, UserID: 7}, {ID: 5, UserID: 7}}
	s, reason = stitchOrder(o, users, addresses, productID, fixedNow)
	require.Empty(t, reason)
	require.Equal(t, int64(4), s.order.ShippingAddressID)
	require.Equal(t, int64(4), s.order.BillingAddressID)
}

func TestProductSKUDeterministic(t *testing.T) {
	require.Equal(t, ProductSKU(42), ProductSKU(42))
	require.NotEqual(t, ProductSKU(1), ProductSKU(2))
	require.Regexp(t, `^SKU-\d{5}-[0-9A-F]{6}$`, ProductSKU(42))

	stock := SyntheticStock(42)
	require.GreaterOrEqual(t, stock, 0)
	require.LessOrEqual(t, stock, 100)
	require.Equal(t, stock, SyntheticStock(42))
}
