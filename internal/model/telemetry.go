package model

import "time"

// MetricSample is one row of the Metrics table. Samples sharing a Name form
// an independent time series.
type MetricSample struct {
	Timestamp *time.Time `json:"timestamp"`
	Name      string     `json:"metric_name"`
	Type      string     `json:"metric_type"`
	Value     *float64   `json:"value"`
	Labels    string     `json:"labels"` // raw JSON as written by the exporter
}

// MetricPoint is a plotted point of a single metric series.
type MetricPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}
