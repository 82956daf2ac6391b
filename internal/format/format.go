// Package format renders execution results into the text shown to the
// user: a summary line, an aligned table, and light statistics.
package format

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopchat/shopchat/internal/query"
)

const (
	fullTableLimit = 20
	sampleRows     = 10
	numericStats   = 3
	textStats      = 2
)

// Success renders a successful execution result.
func Success(result query.Result) string {
	if result.RowCount == 0 {
		return "Query executed successfully, but no results were found."
	}

	var lines []string
	lines = append(lines, "Query Results:", "")
	lines = append(lines, fmt.Sprintf("Summary: %d row(s) returned", result.RowCount))
	if result.Truncated {
		lines = append(lines, "Note: results truncated at the row limit")
	}
	lines = append(lines, "")

	if result.RowCount <= fullTableLimit {
		lines = append(lines, "Data:")
		lines = append(lines, renderTable(result.Columns, result.Rows))
	} else {
		lines = append(lines, fmt.Sprintf("Sample Data (first %d rows):", sampleRows))
		lines = append(lines, renderTable(result.Columns, result.Rows[:sampleRows]))
		lines = append(lines, fmt.Sprintf("... and %d more rows", result.RowCount-sampleRows))
	}

	if stats := basicStats(result.Columns, result.Rows); len(stats) > 0 {
		lines = append(lines, "", "Statistics:")
		for _, stat := range stats {
			lines = append(lines, "  - "+stat)
		}
	}
	return strings.Join(lines, "\n")
}

// Failure renders a failed execution.
func Failure(errMessage string) string {
	if strings.TrimSpace(errMessage) == "" {
		errMessage = "unknown error"
	}
	return "Query Failed:\n\n" + errMessage
}

// Summary is the short per-turn outcome recorded into the conversation
// ledger.
func Summary(result query.Result) string {
	return fmt.Sprintf("Returned %d rows", result.RowCount)
}

func renderTable(columns []string, rows [][]any) string {
	if len(columns) == 0 || len(rows) == 0 {
		return "No data to display"
	}

	widths := make([]int, len(columns))
	for i, column := range columns {
		widths[i] = len(column)
	}
	cells := make([][]string, len(rows))
	for r, row := range rows {
		cells[r] = make([]string, len(columns))
		for c := range columns {
			var value any
			if c < len(row) {
				value = row[c]
			}
			text := renderValue(value)
			cells[r][c] = text
			if len(text) > widths[c] {
				widths[c] = len(text)
			}
		}
	}

	var b strings.Builder
	writeRow := func(fields []string) {
		for i, field := range fields {
			if i > 0 {
				b.WriteString("  ")
			}
			b.WriteString(field)
			b.WriteString(strings.Repeat(" ", widths[i]-len(field)))
		}
		b.WriteString("\n")
	}
	writeRow(columns)
	separators := make([]string, len(columns))
	for i := range columns {
		separators[i] = strings.Repeat("-", widths[i])
	}
	writeRow(separators)
	for _, row := range cells {
		writeRow(row)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderValue(value any) string {
	switch typed := value.(type) {
	case nil:
		return "NULL"
	case float64:
		return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", typed), "0"), ".")
	case float32:
		return renderValue(float64(typed))
	default:
		return fmt.Sprintf("%v", typed)
	}
}

// basicStats summarizes up to three numeric columns (avg/min/max) and
// two text columns (distinct counts).
func basicStats(columns []string, rows [][]any) []string {
	if len(rows) == 0 {
		return nil
	}

	var stats []string
	numericSeen, textSeen := 0, 0
	for c, column := range columns {
		if numericSeen >= numericStats && textSeen >= textStats {
			break
		}

		var (
			values  []float64
			uniques map[string]struct{}
		)
		for _, row := range rows {
			if c >= len(row) || row[c] == nil {
				continue
			}
			if number, ok := asFloat(row[c]); ok {
				values = append(values, number)
			} else if text, ok := row[c].(string); ok {
				if uniques == nil {
					uniques = map[string]struct{}{}
				}
				uniques[text] = struct{}{}
			}
		}

		switch {
		case len(values) > 0 && numericSeen < numericStats:
			numericSeen++
			stats = append(stats, fmt.Sprintf("%s: avg=%.2f, min=%.2f, max=%.2f",
				column, mean(values), minOf(values), maxOf(values)))
		case len(uniques) > 0 && textSeen < textStats:
			textSeen++
			stats = append(stats, fmt.Sprintf("%s: %d unique values", column, len(uniques)))
		}
	}
	return stats
}

func asFloat(value any) (float64, bool) {
	switch typed := value.(type) {
	case int:
		return float64(typed), true
	case int32:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case float32:
		return float64(typed), true
	case float64:
		return typed, true
	default:
		return 0, false
	}
}

func mean(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}

func minOf(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return sorted[0]
}

func maxOf(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return sorted[len(sorted)-1]
}
