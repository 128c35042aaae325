// Package metrics exposes the service's own counters on a private registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tinytelemetry/sheetboard/internal/model"
	"github.com/tinytelemetry/sheetboard/internal/sheets"
)

const namespace = "sheetboard"

var histogramBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30}

// Metrics holds every collector. It implements cache.Observer.
type Metrics struct {
	registry *prometheus.Registry

	fetchTotal     *prometheus.CounterVec
	fetchDuration  *prometheus.HistogramVec
	cacheLookups   *prometheus.CounterVec
	requestTotal   *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	tableRows      *prometheus.GaugeVec
}

// New creates and registers the collectors, plus the Go and process
// collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.fetchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "source",
		Name:      "fetches_total",
		Help:      "Table fetches by outcome",
	}, []string{"table", "outcome"})

	m.fetchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "source",
		Name:      "fetch_duration_seconds",
		Help:      "Latency of table fetches",
		Buckets:   histogramBuckets,
	}, []string{"table"})

	m.cacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Cache lookups by result",
	}, []string{"table", "result"})

	m.requestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "api",
		Name:      "http_requests_total",
		Help:      "Count of processed HTTP requests",
	}, []string{"method", "route", "status"})

	m.requestLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "api",
		Name:      "http_request_duration_seconds",
		Help:      "Latency distribution of HTTP handlers",
		Buckets:   histogramBuckets,
	}, []string{"method", "route"})

	m.tableRows = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "table",
		Name:      "rows",
		Help:      "Rows in the last loaded snapshot of each table",
	}, []string{"table"})

	m.registry.MustRegister(
		m.fetchTotal, m.fetchDuration, m.cacheLookups,
		m.requestTotal, m.requestLatency, m.tableRows,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the exposition format for this registry only.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// CacheLookup records a cache hit or miss.
func (m *Metrics) CacheLookup(table model.TableName, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(string(table), result).Inc()
}

// FetchDone records a completed source fetch.
func (m *Metrics) FetchDone(table model.TableName, kind sheets.Kind, elapsed time.Duration) {
	m.fetchTotal.WithLabelValues(string(table), kind.String()).Inc()
	m.fetchDuration.WithLabelValues(string(table)).Observe(elapsed.Seconds())
}

// SetTableRows records the row count of a freshly loaded table.
func (m *Metrics) SetTableRows(table model.TableName, rows int) {
	m.tableRows.WithLabelValues(string(table)).Set(float64(rows))
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.requestTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestLatency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
