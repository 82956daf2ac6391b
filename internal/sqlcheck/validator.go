// Package sqlcheck classifies candidate SQL before it reaches the retail
// database: a single SELECT statement, known tables only, no mutating
// keywords, no common injection idioms. The checks are a fixed allow-list
// plus pattern-reject heuristic, not a full SQL grammar analysis.
package sqlcheck

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Check names identify which validation step rejected a candidate.
const (
	CheckParse            = "parse"
	CheckForbiddenKeyword = "forbidden_keyword"
	CheckStatementKind    = "statement_kind"
	CheckTableAllowList   = "table_allowlist"
	CheckInjection        = "injection_pattern"
)

// Verdict is the validator's decision for one candidate SQL string.
type Verdict struct {
	Valid  bool
	Reason string
	Check  string
	Tables []string
}

var forbiddenKeywords = []string{
	"DROP", "DELETE", "UPDATE", "INSERT", "CREATE", "ALTER", "TRUNCATE",
	"EXEC", "EXECUTE", "UNION", "GRANT", "REVOKE",
}

var forbiddenPatterns = func() map[string]*regexp.Regexp {
	patterns := make(map[string]*regexp.Regexp, len(forbiddenKeywords))
	for _, keyword := range forbiddenKeywords {
		patterns[keyword] = regexp.MustCompile(`\b` + keyword + `\b`)
	}
	return patterns
}()

var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`';.*--`),
	regexp.MustCompile(`union.*select`),
	regexp.MustCompile(`or.*1=1`),
	regexp.MustCompile(`and.*1=1`),
}

var (
	wordPattern  = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)
	tablePattern = regexp.MustCompile(`(?i)\b(?:FROM|JOIN)\s+([a-zA-Z_][a-zA-Z0-9_]*)`)
)

// dmlKeywords mark where a statement's kind is decided; the first one
// encountered must be SELECT.
var dmlKeywords = map[string]struct{}{
	"select": {}, "insert": {}, "update": {}, "delete": {}, "merge": {}, "replace": {},
}

// Validator holds the fixed table allow-list. It keeps no state between
// calls; Validate is pure and idempotent.
type Validator struct {
	tables map[string]struct{}
}

func New(tableNames []string) *Validator {
	tables := make(map[string]struct{}, len(tableNames))
	for _, name := range tableNames {
		tables[strings.ToLower(name)] = struct{}{}
	}
	return &Validator{tables: tables}
}

// Validate runs the ordered checks and stops at the first failure.
func (v *Validator) Validate(sqlText string) Verdict {
	tokens := wordPattern.FindAllString(sqlText, -1)
	if strings.TrimSpace(sqlText) == "" || len(tokens) == 0 {
		return Verdict{Valid: false, Check: CheckParse, Reason: "unable to parse SQL query"}
	}

	if keyword := findForbiddenKeyword(sqlText); keyword != "" {
		return Verdict{
			Valid:  false,
			Check:  CheckForbiddenKeyword,
			Reason: fmt.Sprintf("forbidden keyword found: %s", keyword),
		}
	}

	if !leadsWithSelect(tokens) {
		return Verdict{Valid: false, Check: CheckStatementKind, Reason: "only SELECT statements are allowed"}
	}

	referenced := extractTableNames(sqlText)
	if invalid := v.unknownTables(referenced); len(invalid) > 0 {
		return Verdict{
			Valid:  false,
			Check:  CheckTableAllowList,
			Reason: fmt.Sprintf("invalid table names: %s", strings.Join(invalid, ", ")),
		}
	}

	if pattern := findInjectionPattern(sqlText); pattern != "" {
		return Verdict{
			Valid:  false,
			Check:  CheckInjection,
			Reason: fmt.Sprintf("potential SQL injection detected: pattern %q", pattern),
		}
	}

	tables := make([]string, len(referenced))
	copy(tables, referenced)
	sort.Strings(tables)
	return Verdict{Valid: true, Tables: tables}
}

func findForbiddenKeyword(sqlText string) string {
	upper := strings.ToUpper(sqlText)
	for _, keyword := range forbiddenKeywords {
		if forbiddenPatterns[keyword].MatchString(upper) {
			return keyword
		}
	}
	return ""
}

// leadsWithSelect reports whether the first data-manipulation keyword in
// the token stream is SELECT.
func leadsWithSelect(tokens []string) bool {
	for _, token := range tokens {
		lower := strings.ToLower(token)
		if _, ok := dmlKeywords[lower]; ok {
			return lower == "select"
		}
	}
	return false
}

// extractTableNames pulls the identifier after every FROM or JOIN,
// deduplicated case-insensitively in first-seen order.
func extractTableNames(sqlText string) []string {
	matches := tablePattern.FindAllStringSubmatch(sqlText, -1)
	seen := make(map[string]struct{}, len(matches))
	names := make([]string, 0, len(matches))
	for _, match := range matches {
		lower := strings.ToLower(match[1])
		if _, ok := seen[lower]; ok {
			continue
		}
		seen[lower] = struct{}{}
		names = append(names, lower)
	}
	return names
}

func (v *Validator) unknownTables(names []string) []string {
	var invalid []string
	for _, name := range names {
		if _, ok := v.tables[name]; !ok {
			invalid = append(invalid, name)
		}
	}
	return invalid
}

func findInjectionPattern(sqlText string) string {
	lower := strings.ToLower(sqlText)
	for _, pattern := range injectionPatterns {
		if pattern.MatchString(lower) {
			return pattern.String()
		}
	}
	return ""
}
