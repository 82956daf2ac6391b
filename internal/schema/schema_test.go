package schema

import (
	"strings"
	"testing"
)

func TestTableNames(t *testing.T) {
	catalog := NewRetailCatalog()
	names := catalog.TableNames()
	want := []string{"stores", "customers", "products", "orders", "order_items"}
	if len(names) != len(want) {
		t.Fatalf("TableNames() len = %d, want %d", len(names), len(want))
	}
	for i, name := range want {
		if names[i] != name {
			t.Fatalf("TableNames()[%d] = %q, want %q", i, names[i], name)
		}
	}
}

func TestDescribeMentionsEveryTableAndColumn(t *testing.T) {
	catalog := NewRetailCatalog()
	description := catalog.Describe()
	for _, table := range catalog.Tables() {
		if !strings.Contains(description, "Table "+table.Name) {
			t.Fatalf("description missing table %q", table.Name)
		}
		for _, column := range table.Columns {
			if !strings.Contains(description, column.Name) {
				t.Fatalf("description missing column %s.%s", table.Name, column.Name)
			}
		}
	}
}

func TestDDLCoversAllTables(t *testing.T) {
	catalog := NewRetailCatalog()
	statements := catalog.DDL()
	if len(statements) != len(catalog.TableNames()) {
		t.Fatalf("DDL() len = %d, want %d", len(statements), len(catalog.TableNames()))
	}
	for i, name := range catalog.TableNames() {
		if !strings.Contains(statements[i], "CREATE TABLE IF NOT EXISTS "+name) {
			t.Fatalf("DDL()[%d] does not create %q: %s", i, name, statements[i])
		}
	}
}
