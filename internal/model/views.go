package model

import "time"

// NoticeLevel classifies a per-table load notice.
type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeInfo    NoticeLevel = "info"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice reports the outcome of loading one table.
type Notice struct {
	Table   TableName   `json:"table"`
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}

// KeyMetrics are the headline cards shown above every tab.
type KeyMetrics struct {
	TotalRequests int64   `json:"total_requests"`
	TotalErrors   int64   `json:"total_errors"`
	ErrorRate     float64 `json:"error_rate_pct"`
	AvgResponseMs float64 `json:"avg_response_ms"`
	SuccessRate   float64 `json:"success_rate_pct"`
}

// Overview is the landing view: key metrics plus load notices.
type Overview struct {
	Metrics   KeyMetrics    `json:"metrics"`
	Notices   []Notice      `json:"notices"`
	UpdatedAt time.Time     `json:"updated_at"`
	CacheTTL  time.Duration `json:"cache_ttl"`
}

// RequestsView backs the API performance tab.
type RequestsView struct {
	Hourly          []Bucket       `json:"hourly"`
	Methods         []ValueCount   `json:"methods"`
	Durations       []HistogramBin `json:"durations"`
	SlowestEndpoint []GroupValue   `json:"slowest_endpoints"`
	Notice          *Notice        `json:"notice,omitempty"`
}

// ErrorsView backs the errors tab.
type ErrorsView struct {
	Hourly []Bucket      `json:"hourly"`
	Types  []ValueCount  `json:"types"`
	Recent []ErrorRecord `json:"recent"`
	Notice *Notice       `json:"notice,omitempty"`
}

// MetricsView backs the metrics tab for one selected series.
type MetricsView struct {
	Names    []string      `json:"names"`
	Selected string        `json:"selected"`
	Points   []MetricPoint `json:"points"`
	Stats    Stats         `json:"stats"`
	Notice   *Notice       `json:"notice,omitempty"`
}
