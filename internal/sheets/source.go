// Package sheets fetches raw table rows from a spreadsheet-backed source.
package sheets

import (
	"context"
	"errors"
	"fmt"

	"github.com/tinytelemetry/sheetboard/internal/model"
)

// Source fetches the rows of a named table. The first row is the header;
// every cell is a string.
type Source interface {
	Fetch(ctx context.Context, table model.TableName) ([][]string, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, table model.TableName) ([][]string, error)

// Fetch calls f.
func (f SourceFunc) Fetch(ctx context.Context, table model.TableName) ([][]string, error) {
	return f(ctx, table)
}

var (
	// ErrSourceUnavailable means credentials or configuration are missing or
	// rejected. The table is treated as empty.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrSourceEmpty means the table exists but holds no data rows.
	ErrSourceEmpty = errors.New("source empty")
)

// SourceError wraps a transport or decoding fault for one table.
type SourceError struct {
	Table model.TableName
	Err   error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Table, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// Kind is the failure class of a fetch.
type Kind int

const (
	KindOK Kind = iota
	KindUnavailable
	KindEmpty
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindUnavailable:
		return "unavailable"
	case KindEmpty:
		return "empty"
	default:
		return "error"
	}
}

// Classify maps any fetch error to its Kind. Unknown errors are KindError.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindOK
	case errors.Is(err, ErrSourceUnavailable):
		return KindUnavailable
	case errors.Is(err, ErrSourceEmpty):
		return KindEmpty
	default:
		return KindError
	}
}

// unavailable wraps detail so errors.Is(err, ErrSourceUnavailable) holds.
func unavailable(table model.TableName, format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w: %s", table, ErrSourceUnavailable, fmt.Sprintf(format, args...))
}

// checkRows applies the shared empty-table rule: no values at all, or a
// header without data rows.
func checkRows(table model.TableName, rows [][]string) error {
	if len(rows) <= 1 {
		return fmt.Errorf("%s: %w", table, ErrSourceEmpty)
	}
	return nil
}
