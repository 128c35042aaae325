package sheets

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/tinytelemetry/sheetboard/internal/model"
)

// CSVSource reads <Dir>/<table>.csv exports, the format produced by the
// sheet-to-csv export job. Useful offline and for demos.
type CSVSource struct {
	Dir string
}

// NewCSVSource creates a source rooted at dir.
func NewCSVSource(dir string) *CSVSource {
	return &CSVSource{Dir: dir}
}

// Fetch reads the whole file for table.
func (c *CSVSource) Fetch(ctx context.Context, table model.TableName) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, &SourceError{Table: table, Err: err}
	}
	if strings.TrimSpace(c.Dir) == "" {
		return nil, unavailable(table, "csv directory is not configured")
	}

	path := filepath.Join(c.Dir, string(table)+".csv")
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, unavailable(table, "export not found: %s", path)
		}
		return nil, &SourceError{Table: table, Err: err}
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, &SourceError{Table: table, Err: fmt.Errorf("parse %s: %w", path, err)}
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	if err := checkRows(table, rows); err != nil {
		return nil, err
	}
	return rows, nil
}
