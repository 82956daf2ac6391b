// Package demo seeds a retail database with a small deterministic
// sample data set for local development and demos.
package demo

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/shopchat/shopchat/internal/schema"
)

type Options struct {
	// Driver selects the placeholder dialect, "duckdb" or "postgres".
	Driver string
	// Orders is the number of generated orders. Defaults to 50.
	Orders int
	// Seed fixes the random source so repeated runs produce the same
	// data set. Defaults to 1.
	Seed int64
	// Now anchors generated order dates. Defaults to time.Now.
	Now func() time.Time
}

type Stats struct {
	Stores     int
	Customers  int
	Products   int
	Orders     int
	OrderItems int
}

type sampleStore struct {
	name, location, manager, phone, email string
}

type sampleCustomer struct {
	firstName, lastName, email, phone, address string
}

type sampleProduct struct {
	name, category, description string
	price                       float64
}

var sampleStores = []sampleStore{
	{"Downtown Store", "123 Main St, Downtown", "John Smith", "555-0101", "downtown@retail.com"},
	{"Mall Store", "456 Mall Ave, Shopping Center", "Jane Doe", "555-0102", "mall@retail.com"},
	{"Suburban Store", "789 Oak Rd, Suburbs", "Bob Johnson", "555-0103", "suburban@retail.com"},
	{"Airport Store", "321 Terminal Blvd, Airport", "Alice Brown", "555-0104", "airport@retail.com"},
}

var sampleCustomers = []sampleCustomer{
	{"Michael", "Wilson", "michael.wilson@email.com", "555-1001", "100 First St"},
	{"Sarah", "Davis", "sarah.davis@email.com", "555-1002", "200 Second Ave"},
	{"David", "Miller", "david.miller@email.com", "555-1003", "300 Third Blvd"},
	{"Lisa", "Garcia", "lisa.garcia@email.com", "555-1004", "400 Fourth St"},
	{"James", "Rodriguez", "james.rodriguez@email.com", "555-1005", "500 Fifth Ave"},
	{"Emily", "Martinez", "emily.martinez@email.com", "555-1006", "600 Sixth St"},
	{"Robert", "Anderson", "robert.anderson@email.com", "555-1007", "700 Seventh Ave"},
	{"Jessica", "Taylor", "jessica.taylor@email.com", "555-1008", "800 Eighth St"},
}

var sampleProducts = []sampleProduct{
	{"Laptop Computer", "Electronics", "High-performance laptop", 999.99},
	{"Smartphone", "Electronics", "Latest smartphone model", 699.99},
	{"Headphones", "Electronics", "Wireless noise-canceling headphones", 199.99},
	{"Coffee Maker", "Appliances", "Programmable coffee maker", 89.99},
	{"Blender", "Appliances", "High-speed blender", 59.99},
	{"Running Shoes", "Sports", "Professional running shoes", 129.99},
	{"Yoga Mat", "Sports", "Non-slip yoga mat", 29.99},
	{"Office Chair", "Furniture", "Ergonomic office chair", 299.99},
	{"Desk Lamp", "Furniture", "LED desk lamp", 49.99},
	{"Backpack", "Accessories", "Waterproof backpack", 79.99},
}

var orderStatuses = []string{"pending", "processing", "shipped", "delivered", "cancelled"}

// Seed creates the retail tables if missing, clears existing rows, and
// loads the sample data set. It is safe to run repeatedly.
func Seed(ctx context.Context, db *sql.DB, catalog *schema.Catalog, opts Options) (Stats, error) {
	if db == nil {
		return Stats{}, fmt.Errorf("database handle is required")
	}
	if catalog == nil {
		return Stats{}, fmt.Errorf("catalog is required")
	}
	if opts.Orders <= 0 {
		opts.Orders = 50
	}
	if opts.Seed == 0 {
		opts.Seed = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	for _, ddl := range catalog.DDL() {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return Stats{}, fmt.Errorf("create table: %w", err)
		}
	}

	// Children first so the foreign keys never dangle mid-seed.
	for _, table := range []string{"order_items", "orders", "products", "customers", "stores"} {
		if _, err := db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return Stats{}, fmt.Errorf("clear table %s: %w", table, err)
		}
	}

	now := opts.Now().UTC()
	for i, store := range sampleStores {
		if err := insert(ctx, db, opts.Driver,
			"INSERT INTO stores (id, name, location, manager, phone, email, created_at)",
			i+1, store.name, store.location, store.manager, store.phone, store.email, now); err != nil {
			return Stats{}, fmt.Errorf("seed stores: %w", err)
		}
	}
	for i, customer := range sampleCustomers {
		if err := insert(ctx, db, opts.Driver,
			"INSERT INTO customers (id, first_name, last_name, email, phone, address, created_at)",
			i+1, customer.firstName, customer.lastName, customer.email, customer.phone, customer.address, now); err != nil {
			return Stats{}, fmt.Errorf("seed customers: %w", err)
		}
	}
	for i, product := range sampleProducts {
		if err := insert(ctx, db, opts.Driver,
			"INSERT INTO products (id, name, category, price, description, in_stock, created_at)",
			i+1, product.name, product.category, product.price, product.description, true, now); err != nil {
			return Stats{}, fmt.Errorf("seed products: %w", err)
		}
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	itemID := 0
	for orderID := 1; orderID <= opts.Orders; orderID++ {
		orderDate := now.AddDate(0, 0, -(rng.Intn(365) + 1))
		customerID := rng.Intn(len(sampleCustomers)) + 1
		storeID := rng.Intn(len(sampleStores)) + 1
		status := orderStatuses[rng.Intn(len(orderStatuses))]

		type line struct {
			productID, quantity int
			unitPrice           float64
		}
		lines := make([]line, rng.Intn(5)+1)
		var total float64
		for i := range lines {
			productIdx := rng.Intn(len(sampleProducts))
			quantity := rng.Intn(3) + 1
			price := sampleProducts[productIdx].price
			lines[i] = line{productID: productIdx + 1, quantity: quantity, unitPrice: price}
			total += price * float64(quantity)
		}

		if err := insert(ctx, db, opts.Driver,
			"INSERT INTO orders (id, customer_id, store_id, order_date, total_amount, status)",
			orderID, customerID, storeID, orderDate, total, status); err != nil {
			return Stats{}, fmt.Errorf("seed orders: %w", err)
		}
		for _, item := range lines {
			itemID++
			if err := insert(ctx, db, opts.Driver,
				"INSERT INTO order_items (id, order_id, product_id, quantity, unit_price)",
				itemID, orderID, item.productID, item.quantity, item.unitPrice); err != nil {
				return Stats{}, fmt.Errorf("seed order items: %w", err)
			}
		}
	}

	return Stats{
		Stores:     len(sampleStores),
		Customers:  len(sampleCustomers),
		Products:   len(sampleProducts),
		Orders:     opts.Orders,
		OrderItems: itemID,
	}, nil
}

func insert(ctx context.Context, db *sql.DB, driver, stmt string, args ...any) error {
	_, err := db.ExecContext(ctx, stmt+" VALUES ("+placeholders(driver, len(args))+")", args...)
	return err
}

func placeholders(driver string, n int) string {
	marks := make([]string, n)
	for i := range marks {
		if driver == "postgres" {
			marks[i] = fmt.Sprintf("$%d", i+1)
		} else {
			marks[i] = "?"
		}
	}
	return strings.Join(marks, ", ")
}
