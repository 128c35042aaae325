package main

import (
	"fmt"

	"github.com/tinytelemetry/sheetboard/internal/sheets"
	"go.uber.org/zap"
)

const (
	sourceSheets = "sheets"
	sourceCSV    = "csv"
)

// SourcePlugin is a small plugin primitive for wiring table sources.
type SourcePlugin interface {
	Name() string
	Enabled() bool
	Build() (sheets.Source, error)
}

// SourcePluginConfig defines runtime source selection.
type SourcePluginConfig struct {
	Source          string
	SpreadsheetID   string
	CredentialsFile string
	ColumnRange     string
	CSVDir          string
}

func buildSourcePlugins(cfg SourcePluginConfig) []SourcePlugin {
	return []SourcePlugin{
		sheetsSourcePlugin{
			cfg: sheets.GoogleConfig{
				SpreadsheetID:   cfg.SpreadsheetID,
				CredentialsFile: cfg.CredentialsFile,
				ColumnRange:     cfg.ColumnRange,
			},
			enabled: cfg.Source == sourceSheets,
		},
		csvSourcePlugin{
			dir:     cfg.CSVDir,
			enabled: cfg.Source == sourceCSV,
		},
	}
}

type sheetsSourcePlugin struct {
	cfg     sheets.GoogleConfig
	enabled bool
}

func (p sheetsSourcePlugin) Name() string { return sourceSheets }

func (p sheetsSourcePlugin) Enabled() bool { return p.enabled }

// Build never fails on missing credentials; those surface per table at fetch time.
func (p sheetsSourcePlugin) Build() (sheets.Source, error) {
	return sheets.NewGoogleSource(p.cfg), nil
}

type csvSourcePlugin struct {
	dir     string
	enabled bool
}

func (p csvSourcePlugin) Name() string { return sourceCSV }

func (p csvSourcePlugin) Enabled() bool { return p.enabled }

func (p csvSourcePlugin) Build() (sheets.Source, error) {
	return sheets.NewCSVSource(p.dir), nil
}

// buildSource builds the first enabled plugin and wraps it with retries and
// a circuit breaker.
func buildSource(cfg appConfig, logger *zap.Logger) (sheets.Source, string, error) {
	plugins := buildSourcePlugins(SourcePluginConfig{
		Source:          cfg.Source,
		SpreadsheetID:   cfg.SpreadsheetID,
		CredentialsFile: cfg.CredentialsFile,
		ColumnRange:     cfg.ColumnRange,
		CSVDir:          cfg.CSVDir,
	})

	for _, plugin := range plugins {
		if !plugin.Enabled() {
			continue
		}
		src, err := plugin.Build()
		if err != nil {
			return nil, "", fmt.Errorf("build %s source: %w", plugin.Name(), err)
		}
		resilient := sheets.NewResilient(src, plugin.Name(), sheets.ResilientConfig{
			MaxRetries:      uint64(cfg.FetchRetries),
			BreakerFailures: uint32(cfg.BreakerFailures),
			BreakerTimeout:  cfg.BreakerTimeout,
			Logger:          logger,
		})
		return resilient, plugin.Name(), nil
	}
	return nil, "", fmt.Errorf("no source plugin enabled for %q", cfg.Source)
}
