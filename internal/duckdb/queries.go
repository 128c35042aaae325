package duckdb

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// dangerousKeywordPattern matches write and admin keywords at word
// boundaries, so "RESET" does not match "SET".
var dangerousKeywordPattern = regexp.MustCompile(
	`(?i)\b(INSERT|UPDATE|DELETE|DROP|CREATE|ALTER|TRUNCATE|COPY|ATTACH|DETACH|LOAD|EXPORT|IMPORT|INSTALL|CALL|EXECUTE|PRAGMA|SET)\b`,
)

// blockCommentPattern matches C-style block comments (/* ... */).
var blockCommentPattern = regexp.MustCompile(`/\*[\s\S]*?\*/`)

const maxQueryRows = 1000

// stripSQLComments removes -- line comments and /* */ block comments.
func stripSQLComments(query string) string {
	cleaned := blockCommentPattern.ReplaceAllString(query, " ")
	var result strings.Builder
	for _, line := range strings.Split(cleaned, "\n") {
		if idx := strings.Index(line, "--"); idx >= 0 {
			line = line[:idx]
		}
		result.WriteString(line)
		result.WriteByte('\n')
	}
	return result.String()
}

// ValidateReadOnly rejects anything but a single SELECT or WITH statement.
func ValidateReadOnly(query string) error {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return fmt.Errorf("query is empty")
	}
	if strings.Contains(trimmed, ";") {
		return fmt.Errorf("query must not contain semicolons")
	}

	stripped := strings.TrimSpace(stripSQLComments(trimmed))
	upper := strings.ToUpper(stripped)
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return fmt.Errorf("only SELECT/WITH queries are allowed")
	}
	if match := dangerousKeywordPattern.FindString(stripped); match != "" {
		return fmt.Errorf("query contains disallowed keyword: %s", strings.ToUpper(match))
	}
	return nil
}

// ExecuteQuery runs a read-only query against the mirror and returns at
// most 1000 rows as column maps.
func (s *Store) ExecuteQuery(query string) ([]map[string]interface{}, error) {
	if err := ValidateReadOnly(query); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()
	rows, err := s.db.QueryContext(ctx, strings.TrimSpace(query))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	results := make([]map[string]interface{}, 0)
	for rows.Next() && len(results) < maxQueryRows {
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			s.logger.Warn("duckdb scan error (ExecuteQuery)", zap.Error(err))
			continue
		}
		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		results = append(results, row)
	}
	return results, rows.Err()
}

// GetSchemaDescription describes the mirror tables for query authors.
func (s *Store) GetSchemaDescription() string {
	return `Table 'api_requests': row_num (INTEGER), timestamp (TIMESTAMP, UTC), method (VARCHAR), ` +
		`path (VARCHAR), status_code (INTEGER), duration_ms (DOUBLE), user_id (VARCHAR). ` +
		`Table 'api_errors': row_num (INTEGER), timestamp (TIMESTAMP, UTC), type (VARCHAR), message (VARCHAR), ` +
		`stack (VARCHAR), endpoint (VARCHAR), user_id (VARCHAR). ` +
		`Table 'metrics': row_num (INTEGER), timestamp (TIMESTAMP, UTC), metric_name (VARCHAR), ` +
		`metric_type (VARCHAR), value (DOUBLE), labels (VARCHAR, JSON text). ` +
		`Table 'snapshot_meta': table_name (VARCHAR), fetched_at (TIMESTAMP), row_count (INTEGER). ` +
		`Views 'requests_hourly' (hour, requests, avg_duration_ms) and 'errors_hourly' (hour, errors). ` +
		`Unparseable cells are NULL.`
}

// TableRowCounts returns the row count of each mirror table.
func (s *Store) TableRowCounts() (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()

	names := make([]string, 0, len(mirrorTables))
	for _, name := range mirrorTables {
		names = append(names, name)
	}
	sort.Strings(names)

	counts := make(map[string]int64, len(names))
	for _, table := range names {
		var count int64
		// Names come from the mirrorTables allowlist.
		if err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count); err != nil {
			s.logger.Warn("row count failed", zap.String("table", table), zap.Error(err))
			continue
		}
		counts[table] = count
	}
	return counts, nil
}
