// Package seed creates and populates the legacy database with synthetic,
// deliberately messy rows: string dates in mixed formats, prices with
// currency suffixes or no number at all, duplicated category spellings, and
// orders referencing users that do not exist. It exists so the migration can
// be exercised end to end without a real legacy dump.
package seed

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"shopmigrate/internal/legacy"
)

// Options sizes the synthetic data set.
type Options struct {
	Users         int
	Products      int
	OrdersPerUser int

	// Seed fixes the random stream. Zero derives one from the clock.
	Seed int64
}

// DefaultOptions mirrors the volumes of the original legacy system.
func DefaultOptions() Options {
	return Options{Users: 2000, Products: 500, OrdersPerUser: 5}
}

// Intentionally inconsistent source vocabularies.
var (
	badStatuses = []string{
		"pending", "Pending", "PROCESSING", "shipped", "Shipped",
		"delivered", "DELIVERED", "cancelled", "Returned?",
	}
	badCategories = []string{
		"Electronics", "Books", "Home Goods", "Apparel", "Sports",
		"electronics", "libros", " ropa ",
	}
	firstNames = []string{
		"james", "maria", "wei", "fatima", "ivan", "aiko", "lucas", "nadia",
		"omar", "sofia", "erik", "priya", "diego", "hannah", "tomas", "leila",
	}
	lastNames = []string{
		"Smith", "Garcia", "Chen", "Okafor", "Petrov", "Tanaka", "Silva",
		"Novak", "Haddad", "Larsen", "Kaur", "Moreno", "Schmidt", "Ali",
	}
	streets = []string{
		"Main St", "Oak Ave", "Maple Dr", "Cedar Ln", "Elm St", "Pine Rd",
		"Lake View Blvd", "Hilltop Way",
	}
	cities = []string{
		"Springfield", "Riverton", "Fairview", "Greenwood", "Ashland",
		"Milford", "Clayton", "Dayton",
	}
	states    = []string{"IL", "OR", "TX", "NY", "CA", "OH", "GA", "WA"}
	countries = []string{"USA", "USA", "USA", "Canada", "Mexico"}
	nouns     = []string{
		"Quantum", "Turbo", "Classic", "Compact", "Deluxe", "Eco", "Pro",
		"Smart", "Ultra", "Prime",
	}
	kinds = []string{"Device", "Tool", "Book", "Gadget", "Appliance"}
)

// generator produces legacy rows from a private random stream, so the
// parallel populate phases never contend on one source.
type generator struct {
	rnd *rand.Rand
	now time.Time
}

func newGenerator(seed int64, now time.Time) *generator {
	return &generator{rnd: rand.New(rand.NewSource(seed)), now: now}
}

func (g *generator) pick(list []string) string {
	return list[g.rnd.Intn(len(list))]
}

func (g *generator) pastTime(maxDays int) time.Time {
	return g.now.Add(-time.Duration(g.rnd.Intn(maxDays*24*60)) * time.Minute)
}

func (g *generator) user(i int) legacy.User {
	username := fmt.Sprintf("%s%s%d", g.pick(firstNames),
		strings.ToLower(g.pick(lastNames)), i)
	fullName := fmt.Sprintf("%s %s",
		cases.Title(language.English).String(g.pick(firstNames)), g.pick(lastNames))

	addr := fmt.Sprintf("%d %s, %s, %s %05d, %s",
		1+g.rnd.Intn(9999), g.pick(streets), g.pick(cities),
		g.pick(states), 10000+g.rnd.Intn(89999), g.pick(countries))

	return legacy.User{
		Username:            username,
		Email:               username + "@example.com",
		FullName:            fullName,
		RegistrationDateStr: g.pastTime(3650).Format("2006-01-02 15:04"),
		AddressCombined:     addr,
		PhoneNumberStr:      fmt.Sprintf("555-%03d-%04d", g.rnd.Intn(1000), g.rnd.Intn(10000)),
	}
}

func (g *generator) product(i int) legacy.Product {
	name := fmt.Sprintf("%s %s %s %d", g.pick(nouns), g.pick(nouns), g.pick(kinds), i)

	price := 5.0 + g.rnd.Float64()*995.0
	priceStr := fmt.Sprintf("%.2f", price)
	switch {
	case g.rnd.Float64() < 0.02:
		// A handful of rows carry no number at all.
		priceStr = "contact us"
	case g.rnd.Float64() < 0.3:
		priceStr = strings.TrimSpace(priceStr + " " + g.pick([]string{"USD", "EUR", ""}))
	}

	return legacy.Product{
		ProductName:  name,
		Description:  fmt.Sprintf("The %s, now with more %s.", name, strings.ToLower(g.pick(nouns))),
		PriceStr:     priceStr,
		CategoryName: g.pick(badCategories),
		CreatedAtStr: g.pastTime(365).Format("02/01/2006"),
	}
}

func (g *generator) order(username string, product legacy.Product) legacy.Order {
	// A sliver of orders point at users that were never created.
	if g.rnd.Float64() < 0.02 {
		username = fmt.Sprintf("ghost_%d", g.rnd.Intn(100000))
	}

	date := g.pastTime(730)
	dateStr := date.Format("2006-01-02")
	if g.rnd.Float64() < 0.5 {
		dateStr = date.Format("01/02/2006 03:04 PM")
	}

	qty := 1 + g.rnd.Intn(5)
	total := totalString(product.PriceStr, qty)

	return legacy.Order{
		UserIdentifier: username,
		OrderDateStr:   dateStr,
		StatusText:     g.pick(badStatuses),
		ProductName:    product.ProductName,
		Quantity:       qty,
		UnitPriceStr:   product.PriceStr,
		TotalStr:       total,
	}
}

// totalString mimics how the legacy application computed order totals: it
// scrapes the number out of the unit price string, multiplies, and keeps the
// currency suffix. Unparseable prices yield "N/A".
func totalString(priceStr string, qty int) string {
	numeric := strings.SplitN(strings.TrimSpace(priceStr), " ", 2)[0]
	var price float64
	if _, err := fmt.Sscanf(numeric, "%f", &price); err != nil {
		return "N/A"
	}
	total := fmt.Sprintf("%.2f", price*float64(qty))
	switch {
	case strings.Contains(priceStr, "USD"):
		return total + " USD"
	case strings.Contains(priceStr, "EUR"):
		return total + " EUR"
	}
	return total
}

// Populator fills the legacy tables.
type Populator struct {
	pool *pgxpool.Pool
	log  *logrus.Logger
	opts Options
}

// New wires a populator over the legacy pool.
func New(pool *pgxpool.Pool, log *logrus.Logger, opts Options) *Populator {
	if opts.Users <= 0 {
		opts.Users = DefaultOptions().Users
	}
	if opts.Products <= 0 {
		opts.Products = DefaultOptions().Products
	}
	if opts.OrdersPerUser <= 0 {
		opts.OrdersPerUser = DefaultOptions().OrdersPerUser
	}
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}
	return &Populator{pool: pool, log: log, opts: opts}
}

// Run creates the legacy schema and populates it. Users and products load in
// parallel; orders follow because they reference both by name. Tables that
// already look populated are left alone, so running seed twice does not
// double the data.
func (p *Populator) Run(ctx context.Context) error {
	if err := legacy.EnsureSchema(ctx, p.pool); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return p.populateUsers(ctx) })
	g.Go(func() error { return p.populateProducts(ctx) })
	if err := g.Wait(); err != nil {
		return err
	}
	return p.populateOrders(ctx)
}

func (p *Populator) populated(ctx context.Context, table string, target int) (bool, error) {
	var n int64
	if err := p.pool.QueryRow(ctx, "SELECT count(*) FROM "+table).Scan(&n); err != nil {
		return false, fmt.Errorf("count %s: %w", table, err)
	}
	return n >= int64(target)/2, nil
}

func (p *Populator) populateUsers(ctx context.Context) error {
	if done, err := p.populated(ctx, "old_users", p.opts.Users); err != nil || done {
		if done {
			p.log.Info("old_users already populated, skipping")
		}
		return err
	}

	gen := newGenerator(p.opts.Seed, time.Now())
	rows := make([][]any, 0, p.opts.Users)
	for i := 0; i < p.opts.Users; i++ {
		u := gen.user(i)
		rows = append(rows, []any{u.Username, u.Email, u.FullName,
			u.RegistrationDateStr, u.AddressCombined, u.PhoneNumberStr})
	}

	n, err := p.pool.CopyFrom(ctx, pgx.Identifier{"old_users"},
		[]string{"username", "email", "full_name", "registration_date_str",
			"address_combined", "phone_number_str"},
		pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("seed users: %w", err)
	}
	p.log.Infof("seeded %s legacy users", humanize.Comma(n))
	return nil
}

func (p *Populator) populateProducts(ctx context.Context) error {
	if done, err := p.populated(ctx, "old_products", p.opts.Products); err != nil || done {
		if done {
			p.log.Info("old_products already populated, skipping")
		}
		return err
	}

	gen := newGenerator(p.opts.Seed+1, time.Now())
	rows := make([][]any, 0, p.opts.Products)
	for i := 0; i < p.opts.Products; i++ {
		pr := gen.product(i)
		rows = append(rows, []any{pr.ProductName, pr.Description, pr.PriceStr,
			pr.CategoryName, pr.CreatedAtStr})
	}

	n, err := p.pool.CopyFrom(ctx, pgx.Identifier{"old_products"},
		[]string{"product_name", "description", "price_str",
			"category_name_redundant", "created_at_str"},
		pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("seed products: %w", err)
	}
	p.log.Infof("seeded %s legacy products", humanize.Comma(n))
	return nil
}

func (p *Populator) populateOrders(ctx context.Context) error {
	targetOrders := p.opts.Users * p.opts.OrdersPerUser
	if done, err := p.populated(ctx, "old_orders", targetOrders); err != nil || done {
		if done {
			p.log.Info("old_orders already populated, skipping")
		}
		return err
	}

	usernames, err := p.readColumn(ctx, `SELECT username FROM old_users ORDER BY id`)
	if err != nil {
		return err
	}
	products, err := p.readProducts(ctx)
	if err != nil {
		return err
	}
	if len(usernames) == 0 || len(products) == 0 {
		return fmt.Errorf("seed orders: users and products must be seeded first")
	}

	gen := newGenerator(p.opts.Seed+2, time.Now())
	var rows [][]any
	for _, username := range usernames {
		for n := 1 + gen.rnd.Intn(p.opts.OrdersPerUser*2); n > 0; n-- {
			o := gen.order(username, products[gen.rnd.Intn(len(products))])
			rows = append(rows, []any{o.UserIdentifier, o.OrderDateStr, o.StatusText,
				o.ProductName, o.Quantity, o.UnitPriceStr, o.TotalStr})
		}
		if len(rows) >= targetOrders*12/10 {
			break
		}
	}

	n, err := p.pool.CopyFrom(ctx, pgx.Identifier{"old_orders"},
		[]string{"user_identifier_text", "order_date_str", "status_text",
			"product_name_redundant", "quantity", "unit_price_str_redundant",
			"total_amount_str"},
		pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("seed orders: %w", err)
	}
	p.log.Infof("seeded %s legacy orders", humanize.Comma(n))
	return nil
}

func (p *Populator) readColumn(ctx context.Context, query string) ([]string, error) {
	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("seed read back: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("seed read back: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *Populator) readProducts(ctx context.Context) ([]legacy.Product, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT product_name, COALESCE(price_str, '') FROM old_products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("seed read back products: %w", err)
	}
	defer rows.Close()

	var out []legacy.Product
	for rows.Next() {
		var pr legacy.Product
		if err := rows.Scan(&pr.ProductName, &pr.PriceStr); err != nil {
			return nil, fmt.Errorf("seed read back products: %w", err)
		}
		out = append(out, pr)
	}
	return out, rows.Err()
}
