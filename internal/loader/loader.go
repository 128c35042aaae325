// Package loader converts raw spreadsheet rows into typed tables.
//
// Loading never rejects a row: a cell that fails its typed parse becomes a
// nil value and the row is kept.
package loader

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/tinytelemetry/sheetboard/internal/model"
	"github.com/tinytelemetry/sheetboard/internal/timestamp"
)

// Canonical column names, as written by the request logger.
const (
	ColTimestamp   = "Timestamp"
	ColMethod      = "Method"
	ColPath        = "Path"
	ColStatusCode  = "StatusCode"
	ColDuration    = "Duration"
	ColUserID      = "UserID"
	ColType        = "Type"
	ColMessage     = "Message"
	ColStack       = "Stack"
	ColEndpoint    = "Endpoint"
	ColMetricName  = "MetricName"
	ColMetricType  = "MetricType"
	ColValue       = "Value"
	ColLabels      = "Labels"
	ColHelp        = "Help"
	ColEnvironment = "Environment"
	ColNodeVersion = "NodeVersion"
)

var schemas = map[model.TableName][]string{
	model.TableRequests: {ColTimestamp, ColMethod, ColPath, ColStatusCode, ColDuration, ColUserID},
	model.TableErrors:   {ColTimestamp, ColType, ColMessage, ColStack, ColEndpoint, ColUserID},
	model.TableMetrics:  {ColTimestamp, ColMetricName, ColMetricType, ColValue, ColLabels, ColHelp, ColEnvironment, ColNodeVersion},
}

// Schema returns the canonical header for a table.
func Schema(table model.TableName) ([]string, bool) {
	cols, ok := schemas[table]
	if !ok {
		return nil, false
	}
	out := make([]string, len(cols))
	copy(out, cols)
	return out, true
}

// Loader parses raw rows per table schema.
type Loader struct {
	ts *timestamp.Parser
}

// New creates a loader with the default timestamp parser.
func New() *Loader {
	return &Loader{ts: timestamp.NewParser()}
}

// Load builds a typed table from rows whose first row is the header.
// Header-only or empty input yields a table with the schema and no rows.
// The only error is an unknown table name.
func (l *Loader) Load(table model.TableName, rows [][]string) (model.TypedTable, error) {
	if _, ok := schemas[table]; !ok {
		return model.TypedTable{Name: table}, fmt.Errorf("loader: unknown table %q", table)
	}
	if len(rows) == 0 {
		return l.Empty(table), nil
	}

	cols := newColumnIndex(rows[0])
	out := model.TypedTable{Name: table, Header: append([]string(nil), rows[0]...)}
	data := rows[1:]

	switch table {
	case model.TableRequests:
		out.Requests = make([]model.RequestRecord, 0, len(data))
		for _, row := range data {
			out.Requests = append(out.Requests, model.RequestRecord{
				Timestamp:  l.parseTime(cols.cell(row, ColTimestamp)),
				Method:     cols.cell(row, ColMethod),
				Path:       cols.cell(row, ColPath),
				StatusCode: parseInt(cols.cell(row, ColStatusCode)),
				Duration:   parseNonNegative(cols.cell(row, ColDuration)),
				UserID:     cols.cell(row, ColUserID),
			})
		}
	case model.TableErrors:
		out.Errors = make([]model.ErrorRecord, 0, len(data))
		for _, row := range data {
			out.Errors = append(out.Errors, model.ErrorRecord{
				Timestamp: l.parseTime(cols.cell(row, ColTimestamp)),
				Type:      cols.cell(row, ColType),
				Message:   cols.cell(row, ColMessage),
				Stack:     cols.cell(row, ColStack),
				Endpoint:  cols.cell(row, ColEndpoint),
				UserID:    cols.cell(row, ColUserID),
			})
		}
	case model.TableMetrics:
		out.Metrics = make([]model.MetricSample, 0, len(data))
		for _, row := range data {
			out.Metrics = append(out.Metrics, model.MetricSample{
				Timestamp: l.parseTime(cols.cell(row, ColTimestamp)),
				Name:      cols.cell(row, ColMetricName),
				Type:      cols.cell(row, ColMetricType),
				Value:     parseFloat(cols.cell(row, ColValue)),
				Labels:    cols.cell(row, ColLabels),
			})
		}
	}
	return out, nil
}

// Empty returns a zero-row table carrying the canonical schema.
func (l *Loader) Empty(table model.TableName) model.TypedTable {
	header, _ := Schema(table)
	return model.TypedTable{Name: table, Header: header}
}

func (l *Loader) parseTime(s string) *time.Time {
	ts, ok := l.ts.ParseCell(s)
	if !ok {
		return nil
	}
	return &ts
}

func parseFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// parseNonNegative rejects negative values; a negative duration is as
// meaningless as an unparseable one.
func parseNonNegative(s string) *float64 {
	v := parseFloat(s)
	if v == nil || *v < 0 {
		return nil
	}
	return v
}

// parseInt accepts integral numbers only ("404.0" but not "200.9").
func parseInt(s string) *int {
	v := parseFloat(s)
	if v == nil || *v != math.Trunc(*v) || math.Abs(*v) > math.MaxInt32 {
		return nil
	}
	n := int(*v)
	return &n
}

// columnIndex resolves header names case-insensitively so the sheet's
// column order is irrelevant.
type columnIndex map[string]int

func newColumnIndex(header []string) columnIndex {
	idx := make(columnIndex, len(header))
	for i, h := range header {
		key := normalize(h)
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}
	return idx
}

func (c columnIndex) cell(row []string, col string) string {
	i, ok := c[normalize(col)]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
