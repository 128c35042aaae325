package main

import (
	"time"

	"github.com/tinytelemetry/sheetboard/internal/model"
)

const (
	defaultBindHost        = "127.0.0.1"
	defaultAPIPort         = 3000
	defaultSource          = sourceSheets
	defaultCacheTTL        = model.DefaultCacheTTL
	defaultUpdateInterval  = model.DefaultUpdateInterval
	defaultFetchTimeout    = 15 * time.Second
	defaultFetchRetries    = 3
	defaultBreakerFailures = 5
	defaultBreakerTimeout  = 30 * time.Second
	defaultQueryTimeout    = 30 * time.Second
	defaultNullPolicy      = "total"
	defaultLogLevel        = "info"
	defaultColumnRange     = "A:Z"
)

// appConfig is internal runtime configuration.
// It is package-private to keep defaults and shape local to the CLI entrypoint.
type appConfig struct {
	Source            string        `mapstructure:"source" yaml:"source"`
	SpreadsheetID     string        `mapstructure:"spreadsheet-id" yaml:"spreadsheet-id"`
	CredentialsFile   string        `mapstructure:"credentials-file" yaml:"credentials-file"`
	ColumnRange       string        `mapstructure:"column-range" yaml:"column-range"`
	CSVDir            string        `mapstructure:"csv-dir" yaml:"csv-dir"`
	CacheTTL          time.Duration `mapstructure:"cache-ttl" yaml:"cache-ttl"`
	FetchTimeout      time.Duration `mapstructure:"fetch-timeout" yaml:"fetch-timeout"`
	FetchRetries      int           `mapstructure:"fetch-retries" yaml:"fetch-retries"`
	BreakerFailures   int           `mapstructure:"breaker-failures" yaml:"breaker-failures"`
	BreakerTimeout    time.Duration `mapstructure:"breaker-timeout" yaml:"breaker-timeout"`
	SuccessNullPolicy string        `mapstructure:"success-null-policy" yaml:"success-null-policy"`
	HistogramBins     int           `mapstructure:"histogram-bins" yaml:"histogram-bins"`
	SlowestLimit      int           `mapstructure:"slowest-limit" yaml:"slowest-limit"`
	RecentErrors      int           `mapstructure:"recent-errors" yaml:"recent-errors"`
	APIEnabled        bool          `mapstructure:"api-enabled" yaml:"api-enabled"`
	APIPort           int           `mapstructure:"api-port" yaml:"api-port"`
	APIAddr           string        `mapstructure:"api-addr" yaml:"api-addr"`
	MetricsEnabled    bool          `mapstructure:"metrics-enabled" yaml:"metrics-enabled"`
	SocketPath        string        `mapstructure:"socket-path" yaml:"socket-path"`
	MirrorEnabled     bool          `mapstructure:"mirror-enabled" yaml:"mirror-enabled"`
	QueryTimeout      time.Duration `mapstructure:"query-timeout" yaml:"query-timeout"`
	LogLevel          string        `mapstructure:"log-level" yaml:"log-level"`
	LogFile           string        `mapstructure:"log-file" yaml:"log-file"`
	UpdateInterval    time.Duration `mapstructure:"update-interval" yaml:"update-interval"`
	ConfigPath        string        `mapstructure:"-" yaml:"-"` // not from config file
}
