// Package query is the read-only gateway over the shared store. It accepts
// ad-hoc SELECT statements, rejects anything that could mutate, and clamps
// result sizes. The validation is a lexical defense-in-depth filter, not a
// full SQL parser; the store is additionally opened read-only.
package query

import (
	"fmt"
	"regexp"
	"strings"

	"memsqlite/internal/core/db"
)

const (
	// DefaultLimit applies when the caller gives no limit
	DefaultLimit = 100
	// MaxLimit caps any requested limit
	MaxLimit = 1000
)

var forbiddenKeywords = []string{
	"INSERT", "UPDATE", "DELETE", "DROP", "CREATE", "ALTER", "REPLACE",
	"PRAGMA", "ATTACH", "DETACH", "VACUUM", "REINDEX",
}

// Matched on whole words so column names like "created" pass
var keywordPatterns = func() []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, len(forbiddenKeywords))
	for i, kw := range forbiddenKeywords {
		patterns[i] = regexp.MustCompile(`(?i)\b` + kw + `\b`)
	}
	return patterns
}()

var suspiciousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i);\s*(INSERT|UPDATE|DELETE|DROP|CREATE|ALTER)`),
	regexp.MustCompile(`(?i)UNION\s+SELECT`),
	regexp.MustCompile(`--`),
	regexp.MustCompile(`/\*`),
}

// Result holds the rows from one gateway query
type Result struct {
	Query    string                   `json:"query"`
	RowCount int                      `json:"rowCount"`
	Results  []map[string]interface{} `json:"results"`
}

// Validate rejects any statement that is not a plain SELECT, returning a
// descriptive error naming the violated rule
func Validate(sqlText string) error {
	normalized := strings.ToUpper(strings.TrimSpace(sqlText))

	if !strings.HasPrefix(normalized, "SELECT") {
		return fmt.Errorf("only SELECT statements are allowed")
	}

	for i, pattern := range keywordPatterns {
		if pattern.MatchString(sqlText) {
			return fmt.Errorf("forbidden keyword detected: %s", forbiddenKeywords[i])
		}
	}

	for _, pattern := range suspiciousPatterns {
		if pattern.MatchString(sqlText) {
			return fmt.Errorf("suspicious SQL pattern detected")
		}
	}

	return nil
}

// EnsureLimit appends a LIMIT clause when the statement lacks one
func EnsureLimit(sqlText string, limit int) string {
	if strings.Contains(strings.ToUpper(sqlText), "LIMIT") {
		return sqlText
	}
	return fmt.Sprintf("%s LIMIT %d", strings.TrimSpace(sqlText), limit)
}

// ClampLimit normalizes a caller-supplied limit into [1, MaxLimit]
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Execute validates sqlText and runs it against store, returning at most
// the clamped limit of rows
func Execute(store *db.DB, sqlText string, limit int) (*Result, error) {
	if err := Validate(sqlText); err != nil {
		return nil, err
	}

	safeSQL := EnsureLimit(sqlText, ClampLimit(limit))

	rows, err := store.Query(safeSQL)
	if err != nil {
		return nil, fmt.Errorf("query execution failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("query execution failed: %w", err)
	}

	result := &Result{Query: safeSQL, Results: []map[string]interface{}{}}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("query execution failed: %w", err)
		}

		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		result.Results = append(result.Results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query execution failed: %w", err)
	}

	result.RowCount = len(result.Results)
	return result, nil
}

// SchemaInfo lists user table definitions from sqlite_master
func SchemaInfo(store *db.DB) (*Result, error) {
	rows, err := store.Query(`
		SELECT name, sql
		FROM sqlite_master
		WHERE type = 'table'
		AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("schema query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	result := &Result{Query: "schema information", Results: []map[string]interface{}{}}
	for rows.Next() {
		var name, tableSQL string
		if err := rows.Scan(&name, &tableSQL); err != nil {
			return nil, fmt.Errorf("schema query failed: %w", err)
		}
		result.Results = append(result.Results, map[string]interface{}{
			"name": name,
			"sql":  tableSQL,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("schema query failed: %w", err)
	}

	result.RowCount = len(result.Results)
	return result, nil
}
