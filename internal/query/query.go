// Package query defines the execution contract for validated SQL and a
// shared row collector used by the concrete engines.
package query

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type Request struct {
	SQL      string
	RowLimit int
}

type Result struct {
	Columns   []string
	Rows      [][]any
	RowCount  int
	Truncated bool
	Duration  time.Duration
}

type Engine interface {
	Execute(ctx context.Context, request Request) (Result, error)
	Ping(ctx context.Context) error
	Close() error
}

// CollectRows drains the cursor into memory, capping at rowLimit rows.
// It reads one row past the cap to learn whether the result was
// truncated without materializing the full set.
func CollectRows(rows *sql.Rows, rowLimit int) ([]string, [][]any, bool, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, false, fmt.Errorf("query columns: %w", err)
	}

	collected := make([][]any, 0)
	truncated := false
	for rows.Next() {
		if rowLimit > 0 && len(collected) >= rowLimit {
			truncated = true
			break
		}
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, nil, false, fmt.Errorf("scan row: %w", err)
		}
		collected = append(collected, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return nil, nil, false, fmt.Errorf("iterate rows: %w", err)
	}
	return columns, collected, truncated, nil
}

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		default:
			normalized[i] = typed
		}
	}
	return normalized
}
