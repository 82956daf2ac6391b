package sqlcheck

import (
	"strings"
	"testing"
)

var retailTables = []string{"stores", "customers", "products", "orders", "order_items"}

func TestValidateAcceptsSimpleSelect(t *testing.T) {
	v := New([]string{"stores", "customers"})
	verdict := v.Validate("SELECT * FROM stores;")
	if !verdict.Valid {
		t.Fatalf("verdict = %+v, want valid", verdict)
	}
	if len(verdict.Tables) != 1 || verdict.Tables[0] != "stores" {
		t.Fatalf("Tables = %v, want [stores]", verdict.Tables)
	}
}

func TestValidateRejectsForbiddenKeyword(t *testing.T) {
	v := New([]string{"stores"})
	verdict := v.Validate("DROP TABLE stores;")
	if verdict.Valid {
		t.Fatal("DROP statement must be rejected")
	}
	if verdict.Check != CheckForbiddenKeyword {
		t.Fatalf("Check = %q", verdict.Check)
	}
	if !strings.Contains(verdict.Reason, "DROP") {
		t.Fatalf("Reason = %q, want it to name DROP", verdict.Reason)
	}
}

func TestValidateRejectsEveryDenyListedKeyword(t *testing.T) {
	v := New(retailTables)
	cases := map[string]string{
		"DELETE":   "delete from orders",
		"UPDATE":   "Update orders SET status = 'done'",
		"INSERT":   "insert into stores values (1)",
		"CREATE":   "CREATE TABLE x (id INTEGER)",
		"ALTER":    "alter table stores add column x int",
		"TRUNCATE": "TRUNCATE stores",
		"EXEC":     "EXEC something",
		"EXECUTE":  "execute something",
		"UNION":    "SELECT id FROM stores UNION SELECT id FROM customers",
		"GRANT":    "GRANT ALL ON stores TO public",
		"REVOKE":   "REVOKE ALL ON stores FROM public",
	}
	for keyword, sql := range cases {
		verdict := v.Validate(sql)
		if verdict.Valid {
			t.Fatalf("Validate(%q) accepted, want rejection", sql)
		}
		if verdict.Check != CheckForbiddenKeyword {
			t.Fatalf("Validate(%q) check = %q", sql, verdict.Check)
		}
		if !strings.Contains(verdict.Reason, keyword) {
			t.Fatalf("Validate(%q) reason = %q, want it to name %s", sql, verdict.Reason, keyword)
		}
	}
}

func TestValidateKeywordScanIsWholeWord(t *testing.T) {
	v := New(retailTables)
	// "updated_at" contains UPDATE as a substring but not as a word.
	verdict := v.Validate("SELECT updated_at FROM orders;")
	if !verdict.Valid {
		t.Fatalf("verdict = %+v, want valid", verdict)
	}
}

func TestValidateRejectsNonSelectStatement(t *testing.T) {
	v := New(retailTables)
	verdict := v.Validate("EXPLAIN SELECT * FROM stores;")
	if !verdict.Valid {
		// EXPLAIN is allowed through the deny-list; the leading DML
		// keyword is still SELECT, so this one passes.
		t.Fatalf("verdict = %+v", verdict)
	}

	verdict = v.Validate("SHOW TABLES;")
	if verdict.Valid {
		t.Fatal("non-SELECT statement must be rejected")
	}
	if verdict.Check != CheckStatementKind {
		t.Fatalf("Check = %q", verdict.Check)
	}
	if verdict.Reason != "only SELECT statements are allowed" {
		t.Fatalf("Reason = %q", verdict.Reason)
	}
}

func TestValidateRejectsUnknownTable(t *testing.T) {
	v := New([]string{"stores"})
	verdict := v.Validate("SELECT * FROM users;")
	if verdict.Valid {
		t.Fatal("unknown table must be rejected")
	}
	if verdict.Check != CheckTableAllowList {
		t.Fatalf("Check = %q", verdict.Check)
	}
	if !strings.Contains(verdict.Reason, "users") {
		t.Fatalf("Reason = %q, want it to name users", verdict.Reason)
	}
}

func TestValidateReportsAllUnknownTables(t *testing.T) {
	v := New([]string{"stores"})
	verdict := v.Validate("SELECT * FROM users u JOIN payments p ON u.id = p.user_id;")
	if verdict.Valid {
		t.Fatal("unknown tables must be rejected")
	}
	if !strings.Contains(verdict.Reason, "users") || !strings.Contains(verdict.Reason, "payments") {
		t.Fatalf("Reason = %q, want both unknown names", verdict.Reason)
	}
}

func TestValidateTableMatchingIsCaseInsensitive(t *testing.T) {
	v := New(retailTables)
	verdict := v.Validate("SELECT * FROM Stores JOIN ORDERS ON Stores.id = ORDERS.store_id;")
	if !verdict.Valid {
		t.Fatalf("verdict = %+v, want valid", verdict)
	}
	if len(verdict.Tables) != 2 || verdict.Tables[0] != "orders" || verdict.Tables[1] != "stores" {
		t.Fatalf("Tables = %v", verdict.Tables)
	}
}

func TestValidateDeduplicatesTables(t *testing.T) {
	v := New(retailTables)
	verdict := v.Validate("SELECT * FROM orders o JOIN orders o2 ON o.id = o2.id;")
	if !verdict.Valid {
		t.Fatalf("verdict = %+v", verdict)
	}
	if len(verdict.Tables) != 1 || verdict.Tables[0] != "orders" {
		t.Fatalf("Tables = %v, want [orders]", verdict.Tables)
	}
}

func TestValidateRejectsInjectionPatterns(t *testing.T) {
	v := New(retailTables)
	cases := []string{
		"SELECT * FROM stores WHERE name = ''; -- comment",
		"SELECT * FROM stores WHERE 1=1 OR 1=1",
		"SELECT * FROM stores WHERE id = 1 AND 1=1",
	}
	for _, sql := range cases {
		verdict := v.Validate(sql)
		if verdict.Valid {
			t.Fatalf("Validate(%q) accepted, want injection rejection", sql)
		}
		if verdict.Check != CheckInjection {
			t.Fatalf("Validate(%q) check = %q", sql, verdict.Check)
		}
		if !strings.Contains(verdict.Reason, "pattern") {
			t.Fatalf("Validate(%q) reason = %q", sql, verdict.Reason)
		}
	}
}

func TestValidateRejectsUnparseableInput(t *testing.T) {
	for _, sql := range []string{"", "   ", ";;;", "\t\n"} {
		verdict := New(retailTables).Validate(sql)
		if verdict.Valid {
			t.Fatalf("Validate(%q) accepted", sql)
		}
		if verdict.Check != CheckParse {
			t.Fatalf("Validate(%q) check = %q", sql, verdict.Check)
		}
	}
}

// The keyword scan is deliberately heuristic: a legitimate column whose
// name contains a deny-listed keyword as a whole word is over-rejected.
// This is an acknowledged limitation of the allow-list + pattern design,
// not a defect to fix here.
func TestValidateOverRejectsKeywordLikeIdentifiers(t *testing.T) {
	v := New(retailTables)
	verdict := v.Validate("SELECT union FROM stores;")
	if verdict.Valid {
		t.Fatal("expected over-rejection of identifier matching UNION")
	}
	if verdict.Check != CheckForbiddenKeyword {
		t.Fatalf("Check = %q", verdict.Check)
	}
}

func TestValidateIsIdempotent(t *testing.T) {
	v := New(retailTables)
	sql := "SELECT name FROM stores JOIN orders ON stores.id = orders.store_id;"
	first := v.Validate(sql)
	second := v.Validate(sql)
	if first.Valid != second.Valid || first.Reason != second.Reason || first.Check != second.Check {
		t.Fatalf("verdicts differ: %+v vs %+v", first, second)
	}
	if len(first.Tables) != len(second.Tables) {
		t.Fatalf("table sets differ: %v vs %v", first.Tables, second.Tables)
	}
	for i := range first.Tables {
		if first.Tables[i] != second.Tables[i] {
			t.Fatalf("table sets differ: %v vs %v", first.Tables, second.Tables)
		}
	}
}

func TestValidateSubqueryTables(t *testing.T) {
	v := New(retailTables)
	verdict := v.Validate("SELECT * FROM customers WHERE id IN (SELECT customer_id FROM orders);")
	if !verdict.Valid {
		t.Fatalf("verdict = %+v", verdict)
	}
	if len(verdict.Tables) != 2 {
		t.Fatalf("Tables = %v, want customers and orders", verdict.Tables)
	}
}
