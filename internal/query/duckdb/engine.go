// Package duckdb runs validated SQL against an embedded DuckDB database.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/shopchat/shopchat/internal/query"
)

type Engine struct {
	db *sql.DB
}

// Open opens the DuckDB database at path. An empty path opens an
// in-memory database, which is what the test profile uses.
func Open(path string) (*Engine, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	return &Engine{db: db}, nil
}

// NewEngine wraps an already-open handle. The caller keeps ownership of
// the handle's lifecycle when using this constructor.
func NewEngine(db *sql.DB) *Engine {
	return &Engine{db: db}
}

func (e *Engine) DB() *sql.DB {
	return e.db
}

func (e *Engine) Execute(ctx context.Context, request query.Request) (query.Result, error) {
	sqlText := stripTrailingSemicolons(request.SQL)
	if sqlText == "" {
		return query.Result{}, fmt.Errorf("sql is required")
	}

	start := time.Now()
	rows, err := e.db.QueryContext(ctx, sqlText)
	if err != nil {
		return query.Result{}, fmt.Errorf("execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns, collected, truncated, err := query.CollectRows(rows, request.RowLimit)
	if err != nil {
		return query.Result{}, err
	}
	return query.Result{
		Columns:   columns,
		Rows:      collected,
		RowCount:  len(collected),
		Truncated: truncated,
		Duration:  time.Since(start),
	}, nil
}

func (e *Engine) Ping(ctx context.Context) error {
	return e.db.PingContext(ctx)
}

func (e *Engine) Close() error {
	return e.db.Close()
}

func stripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}
