package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tinytelemetry/sheetboard/internal/cache"
	"github.com/tinytelemetry/sheetboard/internal/charts"
	"github.com/tinytelemetry/sheetboard/internal/duckdb"
	"github.com/tinytelemetry/sheetboard/internal/logging"
	"github.com/tinytelemetry/sheetboard/internal/metrics"
	"github.com/tinytelemetry/sheetboard/internal/model"
	"go.uber.org/zap"
)

// StatsProvider reports cache counters for the health endpoint.
type StatsProvider interface {
	Stats() cache.Stats
}

// snapshotLister is implemented by mirrors that track fetch times.
type snapshotLister interface {
	SnapshotMeta() ([]duckdb.SnapshotMeta, error)
}

// Deps are the collaborators behind the API. Dashboard is required; a nil
// Querier disables the SQL endpoints and a nil Metrics disables /metrics.
type Deps struct {
	Dashboard model.Dashboard
	Querier   model.SchemaQuerier
	Charts    *charts.Renderer
	Metrics   *metrics.Metrics
	Stats     StatsProvider
	Logger    *zap.Logger
}

// Server provides the HTTP API for the dashboard.
type Server struct {
	addr      string
	deps      Deps
	logger    *zap.Logger
	server    *http.Server
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time
}

// NewServer creates a new HTTP API server.
func NewServer(addr string, deps Deps) *Server {
	if addr == "" {
		addr = "0.0.0.0:3000"
	}
	if deps.Charts == nil {
		deps.Charts = charts.NewRenderer(charts.Config{})
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:      addr,
		deps:      deps,
		logger:    logging.OrGlobal(deps.Logger),
		ctx:       ctx,
		cancel:    cancel,
		startTime: time.Now(),
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(recovery(s.logger), requestID(), accessLog(s.logger))
	if s.deps.Metrics != nil {
		r.Use(instrument(s.deps.Metrics))
		r.GET("/metrics", gin.WrapH(s.deps.Metrics.Handler()))
	}

	api := r.Group("/api")
	api.GET("/health", s.handleHealth)
	api.GET("/overview", s.handleOverview)
	api.GET("/requests", s.handleRequests)
	api.GET("/errors", s.handleErrors)
	api.GET("/metrics", s.handleMetrics)
	api.POST("/refresh", s.handleRefresh)
	api.GET("/schema", s.handleSchema)
	api.POST("/query", s.handleQuery)

	r.GET("/charts/:name", s.handleChart)
	return r
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	gin.SetMode(gin.ReleaseMode)

	s.server = &http.Server{
		Handler:           s.Handler(),
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.startTime = time.Now()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server stopped", zap.Error(err))
		}
	}()
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	s.cancel()
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	body := gin.H{
		"status": "ok",
		"uptime": time.Since(s.startTime).String(),
	}
	if s.deps.Stats != nil {
		body["cache"] = s.deps.Stats.Stats()
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) handleOverview(c *gin.Context) {
	ov, err := s.deps.Dashboard.Overview(c.Request.Context())
	if err != nil {
		s.fail(c, "overview", err)
		return
	}
	c.JSON(http.StatusOK, ov)
}

func (s *Server) handleRequests(c *gin.Context) {
	v, err := s.deps.Dashboard.Requests(c.Request.Context())
	if err != nil {
		s.fail(c, "requests", err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (s *Server) handleErrors(c *gin.Context) {
	v, err := s.deps.Dashboard.Errors(c.Request.Context())
	if err != nil {
		s.fail(c, "errors", err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (s *Server) handleMetrics(c *gin.Context) {
	v, err := s.deps.Dashboard.Metrics(c.Request.Context(), c.Query("name"))
	if err != nil {
		s.fail(c, "metrics", err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (s *Server) handleRefresh(c *gin.Context) {
	ov, err := s.deps.Dashboard.Refresh(c.Request.Context())
	if err != nil {
		s.fail(c, "refresh", err)
		return
	}
	c.JSON(http.StatusOK, ov)
}

func (s *Server) handleChart(c *gin.Context) {
	ctx := c.Request.Context()
	var (
		img []byte
		err error
	)
	switch c.Param("name") {
	case "requests-hourly":
		var v model.RequestsView
		if v, err = s.deps.Dashboard.Requests(ctx); err == nil {
			img, err = s.deps.Charts.HourlyCounts("Requests per hour", v.Hourly, false)
		}
	case "errors-hourly":
		var v model.ErrorsView
		if v, err = s.deps.Dashboard.Errors(ctx); err == nil {
			img, err = s.deps.Charts.HourlyCounts("Errors per hour", v.Hourly, true)
		}
	case "slowest-endpoints":
		var v model.RequestsView
		if v, err = s.deps.Dashboard.Requests(ctx); err == nil {
			img, err = s.deps.Charts.GroupBars("Slowest endpoints (avg ms)", v.SlowestEndpoint)
		}
	case "metric":
		var v model.MetricsView
		if v, err = s.deps.Dashboard.Metrics(ctx, c.Query("name")); err == nil {
			img, err = s.deps.Charts.MetricSeries(v.Selected, v.Points)
		}
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("unknown chart %q", c.Param("name"))})
		return
	}

	switch {
	case errors.Is(err, charts.ErrNotEnoughData):
		c.Status(http.StatusNoContent)
	case err != nil:
		s.fail(c, "chart", err)
	default:
		c.Header("Cache-Control", "no-cache")
		c.Data(http.StatusOK, "image/png", img)
	}
}

func (s *Server) handleSchema(c *gin.Context) {
	if s.deps.Querier == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "snapshot mirror is disabled"})
		return
	}
	description := s.deps.Querier.GetSchemaDescription()

	tables, err := s.deps.Querier.ExecuteQuery(
		"SELECT table_name, column_name, data_type FROM information_schema.columns WHERE table_schema = 'main' ORDER BY table_name, ordinal_position",
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read schema metadata"})
		return
	}

	schema := make(map[string][]map[string]string)
	for _, row := range tables {
		tableName := fmt.Sprintf("%v", row["table_name"])
		schema[tableName] = append(schema[tableName], map[string]string{
			"column": fmt.Sprintf("%v", row["column_name"]),
			"type":   fmt.Sprintf("%v", row["data_type"]),
		})
	}

	counts, err := s.deps.Querier.TableRowCounts()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read table row counts"})
		return
	}

	body := gin.H{
		"description": description,
		"tables":      schema,
		"row_counts":  counts,
	}
	if lister, ok := s.deps.Querier.(snapshotLister); ok {
		if meta, err := lister.SnapshotMeta(); err == nil {
			body["snapshots"] = meta
		} else {
			s.logger.Warn("read snapshot meta", zap.Error(err))
		}
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) handleQuery(c *gin.Context) {
	if s.deps.Querier == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "snapshot mirror is disabled"})
		return
	}
	var req struct {
		SQL string `json:"sql" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body or missing sql field"})
		return
	}

	// Make sure the mirror holds the current snapshot before querying it.
	if _, err := s.deps.Dashboard.Overview(c.Request.Context()); err != nil {
		s.fail(c, "query", err)
		return
	}

	results, err := s.deps.Querier.ExecuteQuery(req.SQL)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var columns []string
	if len(results) > 0 {
		for col := range results[0] {
			columns = append(columns, col)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"columns":   columns,
		"rows":      results,
		"row_count": len(results),
	})
}

func (s *Server) fail(c *gin.Context, op string, err error) {
	s.logger.Error("request failed",
		zap.String("op", op),
		zap.String("request_id", c.GetString(requestIDKey)),
		zap.Error(err),
	)
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
