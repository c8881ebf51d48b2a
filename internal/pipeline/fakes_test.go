package pipeline

import (
	"context"
	"fmt"
	"sort"

	"shopmigrate/internal/legacy"
	"shopmigrate/internal/target"
)

// fakeSource serves legacy rows from slices.
type fakeSource struct {
	users    []legacy.User
	products []legacy.Product
	orders   []legacy.Order
}

func (s *fakeSource) CountUsers(context.Context) (int64, error)    { return int64(len(s.users)), nil }
func (s *fakeSource) CountProducts(context.Context) (int64, error) { return int64(len(s.products)), nil }
func (s *fakeSource) CountOrders(context.Context) (int64, error)   { return int64(len(s.orders)), nil }

func (s *fakeSource) DistinctCategoryNames(context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var names []string
	for _, p := range s.products {
		if !seen[p.CategoryName] {
			seen[p.CategoryName] = true
			names = append(names, p.CategoryName)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *fakeSource) ForEachUser(ctx context.Context, fn func(legacy.User) error) error {
	for _, u := range s.users {
		if err := fn(u); err != nil {
			return err
		}
	}
	return nil
}

func (s *fakeSource) ForEachProduct(ctx context.Context, fn func(legacy.Product) error) error {
	for _, p := range s.products {
		if err := fn(p); err != nil {
			return err
		}
	}
	return nil
}

func (s *fakeSource) ForEachOrder(ctx context.Context, fn func(legacy.Order) error) error {
	for _, o := range s.orders {
		if err := fn(o); err != nil {
			return err
		}
	}
	return nil
}

// db is the in-memory target state. Transactions and savepoints work on deep
// copies that replace the parent state on commit.
type db struct {
	nextID     int64
	categories []target.Category
	users      []target.User
	addresses  []target.Address
	products   []target.Product
	orders     []target.Order
	items      []target.OrderItem
}

func newDB() *db { return &db{} }

func (d *db) clone() *db {
	c := &db{nextID: d.nextID}
	c.categories = append([]target.Category(nil), d.categories...)
	c.users = append([]target.User(nil), d.users...)
	c.addresses = append([]target.Address(nil), d.addresses...)
	c.products = append([]target.Product(nil), d.products...)
	c.orders = append([]target.Order(nil), d.orders...)
	c.items = append([]target.OrderItem(nil), d.items...)
	return c
}

func (d *db) id() int64 {
	d.nextID++
	return d.nextID
}

func dup(what string) error {
	return fmt.Errorf("%s: %w", what, target.ErrDuplicate)
}

// fakeStore implements target.Writer over db.
type fakeStore struct {
	committed *db
	begun     int

	// failUserInsert forces an error for specific usernames.
	failUserInsert map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{committed: newDB()}
}

func (s *fakeStore) Begin(ctx context.Context) (target.Tx, error) {
	s.begun++
	return &fakeTx{
		store: s,
		data:  s.committed.clone(),
		onCommit: func(d *db) {
			s.committed = d
		},
	}, nil
}

func (s *fakeStore) UsernameIndex(context.Context) (map[string]int64, error) {
	idx := make(map[string]int64)
	for _, u := range s.committed.users {
		idx[u.Username] = u.ID
	}
	return idx, nil
}

func (s *fakeStore) AddressIndex(context.Context) (map[int64][]target.Address, error) {
	idx := make(map[int64][]target.Address)
	for _, a := range s.committed.addresses {
		idx[a.UserID] = append(idx[a.UserID], a)
	}
	return idx, nil
}

func (s *fakeStore) DeleteAll(context.Context) error {
	s.committed = newDB()
	return nil
}

type fakeTx struct {
	store    *fakeStore
	data     *db
	onCommit func(*db)
}

func (t *fakeTx) Savepoint(ctx context.Context) (target.Tx, error) {
	return &fakeTx{
		store: t.store,
		data:  t.data.clone(),
		onCommit: func(d *db) {
			t.data = d
		},
	}, nil
}

func (t *fakeTx) Commit(context.Context) error {
	t.onCommit(t.data)
	return nil
}

func (t *fakeTx) Rollback(context.Context) error { return nil }

func (t *fakeTx) InsertCategory(ctx context.Context, c *target.Category) (int64, error) {
	for _, existing := range t.data.categories {
		if existing.Name == c.Name {
			return 0, dup("category name")
		}
	}
	row := *c
	row.ID = t.data.id()
	t.data.categories = append(t.data.categories, row)
	return row.ID, nil
}

func (t *fakeTx) FindCategoryByName(ctx context.Context, name string) (int64, bool, error) {
	for _, c := range t.data.categories {
		if c.Name == name {
			return c.ID, true, nil
		}
	}
	return 0, false, nil
}

func (t *fakeTx) InsertUser(ctx context.Context, u *target.User) (int64, error) {
	if err := t.store.failUserInsert[u.Username]; err != nil {
		return 0, err
	}
	for _, existing := range t.data.users {
		if existing.Username == u.Username {
			return 0, dup("username")
		}
		if existing.Email == u.Email {
			return 0, dup("email")
		}
	}
	row := *u
	row.ID = t.data.id()
	t.data.users = append(t.data.users, row)
	return row.ID, nil
}

func (t *fakeTx) FindUserByUsername(ctx context.Context, username string) (int64, bool, error) {
	for _, u := range t.data.users {
		if u.Username == username {
			return u.ID, true, nil
		}
	}
	return 0, false, nil
}

func (t *fakeTx) FindUserByEmail(ctx context.Context, email string) (int64, bool, error) {
	for _, u := range t.data.users {
		if u.Email == email {
			return u.ID, true, nil
		}
	}
	return 0, false, nil
}

func (t *fakeTx) InsertAddress(ctx context.Context, a *target.Address) (int64, error) {
	row := *a
	row.ID = t.data.id()
	t.data.addresses = append(t.data.addresses, row)
	return row.ID, nil
}

func (t *fakeTx) InsertProduct(ctx context.Context, p *target.Product) (int64, error) {
	for _, existing := range t.data.products {
		if existing.SKU == p.SKU {
			return 0, dup("sku")
		}
	}
	row := *p
	row.ID = t.data.id()
	t.data.products = append(t.data.products, row)
	return row.ID, nil
}

func (t *fakeTx) FindProductBySKU(ctx context.Context, sku string) (int64, bool, error) {
	for _, p := range t.data.products {
		if p.SKU == sku {
			return p.ID, true, nil
		}
	}
	return 0, false, nil
}

func (t *fakeTx) InsertOrder(ctx context.Context, o *target.Order) (int64, error) {
	for _, existing := range t.data.orders {
		if existing.LegacyRef == o.LegacyRef {
			return 0, dup("legacy ref")
		}
	}
	row := *o
	row.ID = t.data.id()
	t.data.orders = append(t.data.orders, row)
	return row.ID, nil
}

func (t *fakeTx) FindOrderByLegacyRef(ctx context.Context, ref string) (int64, bool, error) {
	for _, o := range t.data.orders {
		if o.LegacyRef == ref {
			return o.ID, true, nil
		}
	}
	return 0, false, nil
}

func (t *fakeTx) InsertOrderItem(ctx context.Context, it *target.OrderItem) (int64, error) {
	row := *it
	row.ID = t.data.id()
	t.data.items = append(t.data.items, row)
	return row.ID, nil
}
