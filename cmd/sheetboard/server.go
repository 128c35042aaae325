package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/tinytelemetry/sheetboard/internal/aggregate"
	"github.com/tinytelemetry/sheetboard/internal/cache"
	"github.com/tinytelemetry/sheetboard/internal/charts"
	"github.com/tinytelemetry/sheetboard/internal/dashboard"
	"github.com/tinytelemetry/sheetboard/internal/duckdb"
	"github.com/tinytelemetry/sheetboard/internal/httpserver"
	"github.com/tinytelemetry/sheetboard/internal/logging"
	"github.com/tinytelemetry/sheetboard/internal/metrics"
	"github.com/tinytelemetry/sheetboard/internal/model"
	"github.com/tinytelemetry/sheetboard/internal/socketrpc"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// runServer starts the dashboard service with the HTTP API and socket RPC.
func runServer(cfg appConfig) error {
	logger, cleanupLogger, err := logging.New(logging.Config{
		Level: cfg.LogLevel,
		File:  cfg.LogFile,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer cleanupLogger()
	logging.SetGlobal(logger)
	defer logging.Sync()

	src, sourceName, err := buildSource(cfg, logger)
	if err != nil {
		return err
	}

	var prom *metrics.Metrics
	var observer cache.Observer
	if cfg.MetricsEnabled {
		prom = metrics.New()
		observer = prom
	}

	tables := cache.New(src, cache.Config{
		TTL:          cfg.CacheTTL,
		FetchTimeout: cfg.FetchTimeout,
		Observer:     observer,
		Logger:       logger,
	})

	// Optional in-memory SQL mirror of the last loaded snapshot.
	var store *duckdb.Store
	if cfg.MirrorEnabled {
		store, err = duckdb.NewStore(cfg.QueryTimeout, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize DuckDB mirror: %w", err)
		}
		defer store.Close()
	}

	dashCfg := dashboard.Config{
		Cache:         tables,
		NullPolicy:    aggregate.ParseNullPolicy(cfg.SuccessNullPolicy),
		HistogramBins: cfg.HistogramBins,
		SlowestLimit:  cfg.SlowestLimit,
		RecentErrors:  cfg.RecentErrors,
		Logger:        logger,
	}
	if store != nil {
		dashCfg.Sink = store
	}
	if prom != nil {
		dashCfg.Rows = prom
	}
	svc := dashboard.New(dashCfg)

	// Start HTTP API server if enabled
	if cfg.APIEnabled {
		deps := httpserver.Deps{
			Dashboard: svc,
			Charts:    charts.NewRenderer(charts.Config{CacheTTL: cfg.CacheTTL}),
			Stats:     tables,
			Logger:    logger,
		}
		if store != nil {
			deps.Querier = store
		}
		if prom != nil {
			deps.Metrics = prom
		}
		apiServer := httpserver.NewServer(cfg.APIAddr, deps)
		if err := apiServer.Start(); err != nil {
			return fmt.Errorf("failed to start API server: %w", err)
		}
		defer apiServer.Stop()
	}

	// Start socket RPC server for TUI IPC
	socketOK := true
	sockServer := socketrpc.NewServer(cfg.SocketPath, svc, logger)
	if err := sockServer.Start(); err != nil {
		logger.Warn("failed to start socket server", zap.Error(err))
		socketOK = false
	} else {
		defer sockServer.Stop()
	}

	// Set up context and signal handling before errgroup
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nShutting down gracefully... (press Ctrl+C again to force)")
		cancel()

		// Shutdown deadline starts now, not at boot.
		deadline := time.NewTimer(10 * time.Second)
		defer deadline.Stop()

		select {
		case <-sigCh:
			fmt.Println("\nForce shutdown.")
		case <-deadline.C:
			fmt.Println("Shutdown timed out, forcing exit.")
		}
		cleanupSocket(cfg.SocketPath)
		os.Exit(1)
	}()

	printStartupBanner(cfg, sourceName, socketOK, store != nil)

	g, gctx := errgroup.WithContext(ctx)

	// Warm the cache so the first view does not wait on the source.
	g.Go(func() error {
		warmCtx, warmCancel := context.WithTimeout(gctx, cfg.FetchTimeout*time.Duration(len(model.AllTables())+1))
		defer warmCancel()
		ov, err := svc.Overview(warmCtx)
		if err != nil {
			logger.Warn("initial load failed", zap.Error(err))
			return nil
		}
		for _, n := range ov.Notices {
			logger.Info("initial load",
				zap.String("table", string(n.Table)),
				zap.String("level", string(n.Level)),
				zap.String("message", n.Message),
			)
		}
		return nil
	})

	// Wait for context cancellation (from signal handler) in the errgroup
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("server: errgroup exited with error", zap.Error(err))
	}

	signal.Stop(sigCh)
	logger.Info("shutdown complete")
	return nil
}

func cleanupSocket(path string) {
	if path != "" {
		os.Remove(path)
	}
}

func printStartupBanner(cfg appConfig, sourceName string, socketOK, mirror bool) {
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	cyan := lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	bold := lipgloss.NewStyle().Bold(true)

	check := green.Render("●")
	dot := dim.Render("●")
	warn := yellow.Render("●")

	logo := cyan.Bold(true).Render(`
    ╔═╗╦ ╦╔═╗╔═╗╔╦╗╔╗ ╔═╗╔═╗╦═╗╔╦╗
    ╚═╗╠═╣║╣ ║╣  ║ ╠╩╗║ ║╠═╣╠╦╝ ║║
    ╚═╝╩ ╩╚═╝╚═╝ ╩ ╚═╝╚═╝╩ ╩╩╚══╩╝`)

	var lines []string
	lines = append(lines, "", logo, "    "+dim.Render("v"+version), "")
	lines = append(lines, dim.Render("    ─────────────────────────────────"), "")

	lines = append(lines, bold.Render("    Source"), "")
	switch sourceName {
	case sourceCSV:
		lines = append(lines, fmt.Sprintf("    %s  CSV exports    %s", check, cyan.Render(cfg.CSVDir)))
	default:
		id := cfg.SpreadsheetID
		marker := check
		if id == "" {
			id = "not configured"
			marker = warn
		}
		lines = append(lines, fmt.Sprintf("    %s  Google Sheets  %s", marker, cyan.Render(id)))
		if cfg.CredentialsFile == "" {
			lines = append(lines, fmt.Sprintf("    %s  Credentials    %s", warn, yellow.Render("not configured")))
		} else if _, err := os.Stat(cfg.CredentialsFile); err != nil {
			lines = append(lines, fmt.Sprintf("    %s  Credentials    %s", warn, yellow.Render("missing: "+cfg.CredentialsFile)))
		} else {
			lines = append(lines, fmt.Sprintf("    %s  Credentials    %s", check, dim.Render(cfg.CredentialsFile)))
		}
	}
	lines = append(lines, fmt.Sprintf("    %s  Cache TTL      %s", check, cyan.Render(cfg.CacheTTL.String())))
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Gateway"), "")
	if cfg.APIEnabled {
		lines = append(lines, fmt.Sprintf("    %s  HTTP API       %s", check, cyan.Render(cfg.APIAddr)))
		if cfg.MetricsEnabled {
			lines = append(lines, fmt.Sprintf("    %s  Metrics        %s", check, cyan.Render(cfg.APIAddr+"/metrics")))
		}
	} else {
		lines = append(lines, fmt.Sprintf("    %s  HTTP API       %s", dot, dim.Render("disabled")))
	}
	if socketOK {
		lines = append(lines, fmt.Sprintf("    %s  Socket RPC     %s", check, cyan.Render(cfg.SocketPath)))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Socket RPC     %s", warn, yellow.Render("unavailable")))
	}
	if mirror {
		lines = append(lines, fmt.Sprintf("    %s  SQL mirror     %s", check, dim.Render("in-memory DuckDB")))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  SQL mirror     %s", dot, dim.Render("disabled")))
	}
	lines = append(lines, "")
	lines = append(lines, dim.Render("    Press Ctrl+C to stop"), "")

	fmt.Println(strings.Join(lines, "\n"))
}
