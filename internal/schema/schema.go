// Package schema describes the retail database the assistant answers
// questions about. The catalog is fixed: prompt context, the validator
// allow-list, and the seeder all derive from the same definitions.
package schema

import (
	"fmt"
	"strings"
)

type Column struct {
	Name        string
	Type        string
	Description string
}

type Table struct {
	Name        string
	Description string
	Columns     []Column
}

type Catalog struct {
	tables []Table
}

// Provider is the schema contract the pipeline depends on.
type Provider interface {
	TableNames() []string
	Describe() string
}

func NewRetailCatalog() *Catalog {
	return &Catalog{tables: retailTables}
}

func (c *Catalog) Tables() []Table {
	out := make([]Table, len(c.tables))
	copy(out, c.tables)
	return out
}

func (c *Catalog) TableNames() []string {
	names := make([]string, 0, len(c.tables))
	for _, table := range c.tables {
		names = append(names, table.Name)
	}
	return names
}

// Describe renders the catalog as prompt context for SQL generation.
func (c *Catalog) Describe() string {
	var b strings.Builder
	for i, table := range c.tables {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Table %s: %s\n", table.Name, table.Description)
		for _, column := range table.Columns {
			fmt.Fprintf(&b, "  - %s (%s): %s\n", column.Name, column.Type, column.Description)
		}
	}
	return b.String()
}

// DDL returns CREATE TABLE statements in dependency order. The types are
// portable between DuckDB and Postgres.
func (c *Catalog) DDL() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS stores (
	id INTEGER PRIMARY KEY,
	name VARCHAR(100) NOT NULL,
	location VARCHAR(200) NOT NULL,
	manager VARCHAR(100) NOT NULL,
	phone VARCHAR(20),
	email VARCHAR(100),
	created_at TIMESTAMP
)`,
		`CREATE TABLE IF NOT EXISTS customers (
	id INTEGER PRIMARY KEY,
	first_name VARCHAR(50) NOT NULL,
	last_name VARCHAR(50) NOT NULL,
	email VARCHAR(100) NOT NULL UNIQUE,
	phone VARCHAR(20),
	address TEXT,
	created_at TIMESTAMP
)`,
		`CREATE TABLE IF NOT EXISTS products (
	id INTEGER PRIMARY KEY,
	name VARCHAR(100) NOT NULL,
	category VARCHAR(50) NOT NULL,
	price DOUBLE PRECISION NOT NULL,
	description TEXT,
	in_stock BOOLEAN DEFAULT TRUE,
	created_at TIMESTAMP
)`,
		`CREATE TABLE IF NOT EXISTS orders (
	id INTEGER PRIMARY KEY,
	customer_id INTEGER NOT NULL REFERENCES customers(id),
	store_id INTEGER NOT NULL REFERENCES stores(id),
	order_date TIMESTAMP,
	total_amount DOUBLE PRECISION NOT NULL,
	status VARCHAR(20) DEFAULT 'pending'
)`,
		`CREATE TABLE IF NOT EXISTS order_items (
	id INTEGER PRIMARY KEY,
	order_id INTEGER NOT NULL REFERENCES orders(id),
	product_id INTEGER NOT NULL REFERENCES products(id),
	quantity INTEGER NOT NULL,
	unit_price DOUBLE PRECISION NOT NULL
)`,
	}
}

var retailTables = []Table{
	{
		Name:        "stores",
		Description: "physical retail store locations",
		Columns: []Column{
			{Name: "id", Type: "INTEGER", Description: "primary key"},
			{Name: "name", Type: "VARCHAR", Description: "store name"},
			{Name: "location", Type: "VARCHAR", Description: "city and state"},
			{Name: "manager", Type: "VARCHAR", Description: "store manager full name"},
			{Name: "phone", Type: "VARCHAR", Description: "contact phone number"},
			{Name: "email", Type: "VARCHAR", Description: "contact email"},
			{Name: "created_at", Type: "TIMESTAMP", Description: "record creation time"},
		},
	},
	{
		Name:        "customers",
		Description: "registered customers",
		Columns: []Column{
			{Name: "id", Type: "INTEGER", Description: "primary key"},
			{Name: "first_name", Type: "VARCHAR", Description: "given name"},
			{Name: "last_name", Type: "VARCHAR", Description: "family name"},
			{Name: "email", Type: "VARCHAR", Description: "unique email address"},
			{Name: "phone", Type: "VARCHAR", Description: "contact phone number"},
			{Name: "address", Type: "TEXT", Description: "mailing address"},
			{Name: "created_at", Type: "TIMESTAMP", Description: "registration time"},
		},
	},
	{
		Name:        "products",
		Description: "product catalog",
		Columns: []Column{
			{Name: "id", Type: "INTEGER", Description: "primary key"},
			{Name: "name", Type: "VARCHAR", Description: "product name"},
			{Name: "category", Type: "VARCHAR", Description: "product category"},
			{Name: "price", Type: "DOUBLE", Description: "unit price in USD"},
			{Name: "description", Type: "TEXT", Description: "product description"},
			{Name: "in_stock", Type: "BOOLEAN", Description: "whether the product is in stock"},
			{Name: "created_at", Type: "TIMESTAMP", Description: "record creation time"},
		},
	},
	{
		Name:        "orders",
		Description: "customer orders placed at stores",
		Columns: []Column{
			{Name: "id", Type: "INTEGER", Description: "primary key"},
			{Name: "customer_id", Type: "INTEGER", Description: "references customers.id"},
			{Name: "store_id", Type: "INTEGER", Description: "references stores.id"},
			{Name: "order_date", Type: "TIMESTAMP", Description: "when the order was placed"},
			{Name: "total_amount", Type: "DOUBLE", Description: "order total in USD"},
			{Name: "status", Type: "VARCHAR", Description: "pending, completed, shipped or cancelled"},
		},
	},
	{
		Name:        "order_items",
		Description: "line items belonging to orders",
		Columns: []Column{
			{Name: "id", Type: "INTEGER", Description: "primary key"},
			{Name: "order_id", Type: "INTEGER", Description: "references orders.id"},
			{Name: "product_id", Type: "INTEGER", Description: "references products.id"},
			{Name: "quantity", Type: "INTEGER", Description: "units ordered"},
			{Name: "unit_price", Type: "DOUBLE", Description: "price per unit at order time"},
		},
	},
}
