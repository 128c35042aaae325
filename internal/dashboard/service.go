// Package dashboard turns cached tables into the view models every surface
// renders. Loading problems never fail a view: they surface as notices and
// the affected table is treated as empty.
package dashboard

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/tinytelemetry/sheetboard/internal/aggregate"
	"github.com/tinytelemetry/sheetboard/internal/cache"
	"github.com/tinytelemetry/sheetboard/internal/logging"
	"github.com/tinytelemetry/sheetboard/internal/model"
	"github.com/tinytelemetry/sheetboard/internal/sheets"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// TableCache is the part of *cache.Cache the service needs.
type TableCache interface {
	Get(ctx context.Context, table model.TableName) cache.Result
	Invalidate()
	TTL() time.Duration
}

// SnapshotSink receives every newly fetched table, for example to mirror it
// into a queryable store.
type SnapshotSink interface {
	ReplaceTable(ctx context.Context, table model.TypedTable, fetchedAt time.Time) error
}

// RowRecorder is notified of the row count of each newly fetched table.
type RowRecorder interface {
	SetTableRows(table model.TableName, rows int)
}

// Config wires the service. Cache is required.
type Config struct {
	Cache         TableCache
	NullPolicy    aggregate.NullPolicy
	HistogramBins int
	SlowestLimit  int
	RecentErrors  int
	Sink          SnapshotSink
	Rows          RowRecorder
	Clock         clockwork.Clock
	Logger        *zap.Logger
}

// Service implements model.Dashboard over a table cache.
type Service struct {
	cfg    Config
	logger *zap.Logger

	mu     sync.Mutex
	synced map[model.TableName]time.Time
}

var _ model.Dashboard = (*Service)(nil)

// New creates a service.
func New(cfg Config) *Service {
	if cfg.HistogramBins <= 0 {
		cfg.HistogramBins = model.DefaultHistogramBins
	}
	if cfg.SlowestLimit <= 0 {
		cfg.SlowestLimit = model.DefaultSlowestLimit
	}
	if cfg.RecentErrors <= 0 {
		cfg.RecentErrors = model.DefaultRecentErrors
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return &Service{
		cfg:    cfg,
		logger: logging.OrGlobal(cfg.Logger),
		synced: make(map[model.TableName]time.Time),
	}
}

// Overview loads all tables concurrently and computes the key metric cards.
func (s *Service) Overview(ctx context.Context) (model.Overview, error) {
	results := s.Snapshot(ctx)
	req := results[model.TableRequests].Table
	errs := results[model.TableErrors].Table

	durations := make([]*float64, len(req.Requests))
	codes := make([]*int, len(req.Requests))
	for i, r := range req.Requests {
		durations[i] = r.Duration
		codes[i] = r.StatusCode
	}
	avg, _ := aggregate.Mean(durations)

	totalReq := int64(len(req.Requests))
	totalErr := int64(len(errs.Errors))

	notices := make([]model.Notice, 0, len(results))
	for _, table := range model.AllTables() {
		notices = append(notices, NoticeFor(table, results[table]))
	}

	return model.Overview{
		Metrics: model.KeyMetrics{
			TotalRequests: totalReq,
			TotalErrors:   totalErr,
			ErrorRate:     aggregate.Ratio(totalErr, totalReq),
			AvgResponseMs: avg,
			SuccessRate:   aggregate.SuccessRate(codes, s.cfg.NullPolicy),
		},
		Notices:   notices,
		UpdatedAt: s.cfg.Clock.Now(),
		CacheTTL:  s.cfg.Cache.TTL(),
	}, nil
}

// Requests builds the API performance view.
func (s *Service) Requests(ctx context.Context) (model.RequestsView, error) {
	res := s.load(ctx, model.TableRequests)
	rows := res.Table.Requests

	times := make([]*time.Time, len(rows))
	methods := make([]string, 0, len(rows))
	paths := make([]string, len(rows))
	durations := make([]*float64, len(rows))
	for i, r := range rows {
		times[i] = r.Timestamp
		if r.Method != "" {
			methods = append(methods, r.Method)
		}
		paths[i] = r.Path
		durations[i] = r.Duration
	}

	notice := NoticeFor(model.TableRequests, res)
	return model.RequestsView{
		Hourly:          aggregate.HourlyCounts(times),
		Methods:         aggregate.ValueCounts(methods),
		Durations:       aggregate.Histogram(durations, s.cfg.HistogramBins),
		SlowestEndpoint: aggregate.TopN(aggregate.MeanByGroup(paths, durations), s.cfg.SlowestLimit, true),
		Notice:          &notice,
	}, nil
}

// Errors builds the error analysis view.
func (s *Service) Errors(ctx context.Context) (model.ErrorsView, error) {
	res := s.load(ctx, model.TableErrors)
	rows := res.Table.Errors

	times := make([]*time.Time, len(rows))
	types := make([]string, 0, len(rows))
	for i, e := range rows {
		times[i] = e.Timestamp
		if e.Type != "" {
			types = append(types, e.Type)
		}
	}

	notice := NoticeFor(model.TableErrors, res)
	return model.ErrorsView{
		Hourly: aggregate.HourlyCounts(times),
		Types:  aggregate.ValueCounts(types),
		Recent: RecentErrors(rows, s.cfg.RecentErrors),
		Notice: &notice,
	}, nil
}

// Metrics builds the view for one metric series. An empty or unknown name
// selects the first metric seen.
func (s *Service) Metrics(ctx context.Context, name string) (model.MetricsView, error) {
	res := s.load(ctx, model.TableMetrics)
	rows := res.Table.Metrics

	all := make([]string, len(rows))
	for i, m := range rows {
		all[i] = m.Name
	}
	names := aggregate.Distinct(all)

	selected := ""
	for _, n := range names {
		if n == name {
			selected = n
			break
		}
	}
	if selected == "" && len(names) > 0 {
		selected = names[0]
	}

	// Stats cover every row of the series in sheet order, including rows
	// whose timestamp did not parse.
	var values []*float64
	for _, m := range rows {
		if m.Name == selected {
			values = append(values, m.Value)
		}
	}
	points := SeriesPoints(rows, selected)

	notice := NoticeFor(model.TableMetrics, res)
	return model.MetricsView{
		Names:    names,
		Selected: selected,
		Points:   points,
		Stats:    aggregate.SeriesStats(values),
		Notice:   &notice,
	}, nil
}

// Refresh drops every cached table and rebuilds the overview.
func (s *Service) Refresh(ctx context.Context) (model.Overview, error) {
	s.cfg.Cache.Invalidate()
	s.logger.Info("manual refresh requested")
	return s.Overview(ctx)
}

// Snapshot loads every table concurrently.
func (s *Service) Snapshot(ctx context.Context) map[model.TableName]cache.Result {
	tables := model.AllTables()
	results := make([]cache.Result, len(tables))

	var g errgroup.Group
	for i, table := range tables {
		g.Go(func() error {
			results[i] = s.load(ctx, table)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[model.TableName]cache.Result, len(tables))
	for i, table := range tables {
		out[table] = results[i]
	}
	return out
}

func (s *Service) load(ctx context.Context, table model.TableName) cache.Result {
	res := s.cfg.Cache.Get(ctx, table)
	if res.Transient {
		return res
	}

	s.mu.Lock()
	last, seen := s.synced[table]
	s.mu.Unlock()
	if seen && res.FetchedAt.Equal(last) {
		return res
	}

	if s.cfg.Rows != nil {
		s.cfg.Rows.SetTableRows(table, res.Table.Len())
	}
	if s.cfg.Sink != nil {
		if err := s.cfg.Sink.ReplaceTable(ctx, res.Table, res.FetchedAt); err != nil {
			// Left unsynced so the next load retries the mirror.
			s.logger.Warn("snapshot mirror update failed", zap.String("table", string(table)), zap.Error(err))
			return res
		}
	}

	s.mu.Lock()
	s.synced[table] = res.FetchedAt
	s.mu.Unlock()
	return res
}

// NoticeFor describes the outcome of loading one table.
func NoticeFor(table model.TableName, res cache.Result) model.Notice {
	n := model.Notice{Table: table}
	switch res.Kind() {
	case sheets.KindOK:
		n.Level = model.NoticeSuccess
		n.Message = fmt.Sprintf("Loaded %d rows from %s", res.Table.Len(), table)
	case sheets.KindEmpty:
		n.Level = model.NoticeInfo
		n.Message = fmt.Sprintf("No data in %s yet", table)
	case sheets.KindUnavailable:
		n.Level = model.NoticeWarning
		n.Message = fmt.Sprintf("%s unavailable: %v", table, res.Err)
	default:
		n.Level = model.NoticeError
		n.Message = fmt.Sprintf("Failed to load %s: %v", table, res.Err)
	}
	return n
}

// RecentErrors returns up to limit errors, newest first. Rows without a
// timestamp sort last in their original order.
func RecentErrors(rows []model.ErrorRecord, limit int) []model.ErrorRecord {
	sorted := make([]model.ErrorRecord, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].Timestamp, sorted[j].Timestamp
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

// SeriesPoints returns the plottable samples of one metric in time order.
// Samples missing a timestamp or value are skipped.
func SeriesPoints(rows []model.MetricSample, name string) []model.MetricPoint {
	points := make([]model.MetricPoint, 0)
	for _, m := range rows {
		if m.Name != name || m.Timestamp == nil || m.Value == nil {
			continue
		}
		points = append(points, model.MetricPoint{Timestamp: *m.Timestamp, Value: *m.Value})
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].Timestamp.Before(points[j].Timestamp) })
	return points
}
