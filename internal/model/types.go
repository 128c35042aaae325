package model

import "time"

// TableName identifies a logical sheet in the remote spreadsheet.
type TableName string

const (
	TableRequests TableName = "APIRequests"
	TableErrors   TableName = "Errors"
	TableMetrics  TableName = "Metrics"
)

// AllTables lists the tables the dashboard reads, in render order.
func AllTables() []TableName {
	return []TableName{TableRequests, TableErrors, TableMetrics}
}

// RequestRecord is one row of the APIRequests table.
// Nil pointers mark cells that failed to parse.
type RequestRecord struct {
	Timestamp  *time.Time `json:"timestamp"`
	Method     string     `json:"method"`
	Path       string     `json:"path"`
	StatusCode *int       `json:"status_code"`
	Duration   *float64   `json:"duration_ms"`
	UserID     string     `json:"user_id"`
}

// ErrorRecord is one row of the Errors table.
type ErrorRecord struct {
	Timestamp *time.Time `json:"timestamp"`
	Type      string     `json:"type"`
	Message   string     `json:"message"`
	Stack     string     `json:"stack,omitempty"`
	Endpoint  string     `json:"endpoint"`
	UserID    string     `json:"user_id"`
}

// TypedTable is an immutable snapshot of one table after typed parsing.
// Exactly one of the row slices is populated, selected by Name.
type TypedTable struct {
	Name     TableName       `json:"name"`
	Header   []string        `json:"header"`
	Requests []RequestRecord `json:"requests,omitempty"`
	Errors   []ErrorRecord   `json:"errors,omitempty"`
	Metrics  []MetricSample  `json:"metrics,omitempty"`
}

// Len returns the number of data rows.
func (t TypedTable) Len() int {
	switch t.Name {
	case TableRequests:
		return len(t.Requests)
	case TableErrors:
		return len(t.Errors)
	case TableMetrics:
		return len(t.Metrics)
	}
	return 0
}

// Empty reports whether the table holds no data rows.
func (t TypedTable) Empty() bool { return t.Len() == 0 }

// Bucket is a fixed-width time interval and the number of rows in it.
type Bucket struct {
	Start time.Time `json:"start"`
	Count int64     `json:"count"`
}

// ValueCount represents a distinct value and its frequency.
type ValueCount struct {
	Value string `json:"value"`
	Count int64  `json:"count"`
}

// GroupValue is a derived numeric value for one group (for example the
// mean duration of an endpoint).
type GroupValue struct {
	Group string  `json:"group"`
	Value float64 `json:"value"`
}

// HistogramBin is one equal-width bin of a value distribution.
type HistogramBin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int64   `json:"count"`
}

// Stats summarizes a value sequence. OK is false when the sequence had no
// values, in which case the numeric fields are zero and should be shown
// as "no data".
type Stats struct {
	Last  float64 `json:"last"`
	Mean  float64 `json:"mean"`
	Max   float64 `json:"max"`
	Min   float64 `json:"min"`
	Count int     `json:"count"`
	OK    bool    `json:"ok"`
}
