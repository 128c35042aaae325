package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tinytelemetry/sheetboard/internal/model"
	"go.uber.org/zap"
)

// mirrorTables maps each sheet to its mirror table. It doubles as the
// allowlist for identifiers interpolated into SQL.
var mirrorTables = map[model.TableName]string{
	model.TableRequests: "api_requests",
	model.TableErrors:   "api_errors",
	model.TableMetrics:  "metrics",
}

// SnapshotMeta describes the mirrored copy of one table.
type SnapshotMeta struct {
	Table     string    `json:"table"`
	FetchedAt time.Time `json:"fetched_at"`
	RowCount  int64     `json:"row_count"`
}

// ReplaceTable swaps the mirrored rows of one table for tbl in a single
// transaction, so readers see either the old or the new snapshot.
func (s *Store) ReplaceTable(ctx context.Context, tbl model.TypedTable, fetchedAt time.Time) error {
	target, ok := mirrorTables[tbl.Name]
	if !ok {
		return fmt.Errorf("duckdb: no mirror table for %q", tbl.Name)
	}

	ctx, cancel := context.WithTimeout(ctx, s.QueryTimeout)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	// target comes from mirrorTables, never from input.
	if _, err := tx.ExecContext(ctx, "DELETE FROM "+target); err != nil {
		return fmt.Errorf("clear %s: %w", target, err)
	}

	switch tbl.Name {
	case model.TableRequests:
		err = insertRows(ctx, tx,
			`INSERT INTO api_requests (row_num, timestamp, method, path, status_code, duration_ms, user_id) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			len(tbl.Requests), func(i int) []any {
				r := tbl.Requests[i]
				return []any{i + 1, nullTime(r.Timestamp), r.Method, r.Path, nullInt(r.StatusCode), nullFloat(r.Duration), r.UserID}
			})
	case model.TableErrors:
		err = insertRows(ctx, tx,
			`INSERT INTO api_errors (row_num, timestamp, type, message, stack, endpoint, user_id) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			len(tbl.Errors), func(i int) []any {
				e := tbl.Errors[i]
				return []any{i + 1, nullTime(e.Timestamp), e.Type, e.Message, e.Stack, e.Endpoint, e.UserID}
			})
	case model.TableMetrics:
		err = insertRows(ctx, tx,
			`INSERT INTO metrics (row_num, timestamp, metric_name, metric_type, value, labels) VALUES (?, ?, ?, ?, ?, ?)`,
			len(tbl.Metrics), func(i int) []any {
				m := tbl.Metrics[i]
				return []any{i + 1, nullTime(m.Timestamp), m.Name, m.Type, nullFloat(m.Value), m.Labels}
			})
	}
	if err != nil {
		return fmt.Errorf("fill %s: %w", target, err)
	}

	if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO snapshot_meta (table_name, fetched_at, row_count) VALUES (?, ?, ?)`,
		target, fetchedAt.UTC(), tbl.Len()); err != nil {
		return fmt.Errorf("record snapshot meta: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	s.logger.Debug("snapshot mirrored", zap.String("table", target), zap.Int("rows", tbl.Len()))
	return nil
}

// SnapshotMeta lists the mirrored tables and when they were fetched.
func (s *Store) SnapshotMeta() ([]SnapshotMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := s.queryCtx()
	defer cancel()
	rows, err := s.db.QueryContext(ctx, `SELECT table_name, fetched_at, row_count FROM snapshot_meta ORDER BY table_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SnapshotMeta
	for rows.Next() {
		var m SnapshotMeta
		if err := rows.Scan(&m.Table, &m.FetchedAt, &m.RowCount); err != nil {
			s.logger.Warn("duckdb scan error (SnapshotMeta)", zap.Error(err))
			continue
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func insertRows(ctx context.Context, tx *sql.Tx, query string, n int, args func(i int) []any) error {
	if n == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, args(i)...); err != nil {
			return fmt.Errorf("row %d: %w", i+1, err)
		}
	}
	return nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func nullFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return int64(*v)
}
