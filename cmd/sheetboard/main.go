package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tinytelemetry/sheetboard/internal/model"
	"github.com/tinytelemetry/sheetboard/internal/socketrpc"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Build variables - set by ldflags during build.
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
	goVersion = "unknown"
)

func main() {
	var configPath string
	var showVersion bool
	var printConfig bool

	flag.StringVar(&configPath, "config", "", "config file (default is $HOME/.config/sheetboard/config.yml)")
	flag.BoolVar(&showVersion, "version", false, "print version information")
	flag.BoolVar(&printConfig, "print-config", false, "print the effective configuration as YAML and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("Sheetboard - Spreadsheet Dashboard Service\n")
		fmt.Printf("  Version:    %s\n", version)
		fmt.Printf("  Commit:     %s\n", commit)
		fmt.Printf("  Built:      %s\n", buildTime)
		fmt.Printf("  Go version: %s\n", goVersion)
		return
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if printConfig {
		if err := writeConfig(os.Stdout, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := runServer(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(configPath string) (appConfig, error) {
	var cfg appConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("SHEETBOARD")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("source", defaultSource)
	v.SetDefault("spreadsheet-id", "")
	v.SetDefault("credentials-file", "")
	v.SetDefault("column-range", defaultColumnRange)
	v.SetDefault("csv-dir", "")
	v.SetDefault("cache-ttl", defaultCacheTTL)
	v.SetDefault("fetch-timeout", defaultFetchTimeout)
	v.SetDefault("fetch-retries", defaultFetchRetries)
	v.SetDefault("breaker-failures", defaultBreakerFailures)
	v.SetDefault("breaker-timeout", defaultBreakerTimeout)
	v.SetDefault("success-null-policy", defaultNullPolicy)
	v.SetDefault("histogram-bins", model.DefaultHistogramBins)
	v.SetDefault("slowest-limit", model.DefaultSlowestLimit)
	v.SetDefault("recent-errors", model.DefaultRecentErrors)
	v.SetDefault("api-enabled", true)
	v.SetDefault("api-port", defaultAPIPort)
	v.SetDefault("metrics-enabled", true)
	v.SetDefault("socket-path", socketrpc.DefaultSocketPath())
	v.SetDefault("mirror-enabled", true)
	v.SetDefault("query-timeout", defaultQueryTimeout)
	v.SetDefault("log-level", defaultLogLevel)
	v.SetDefault("log-file", "")
	v.SetDefault("update-interval", defaultUpdateInterval)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigFile(filepath.Join(home, ".config", "sheetboard", "config.yml"))
	}

	configLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) && !os.IsNotExist(err) {
			return cfg, err
		}
		configLoaded = false
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	if configLoaded {
		cfg.ConfigPath = v.ConfigFileUsed()
	}

	if cfg.APIPort <= 0 || cfg.APIPort > 65535 {
		return cfg, fmt.Errorf("invalid api-port: %d", cfg.APIPort)
	}
	switch cfg.Source {
	case sourceSheets, sourceCSV:
	default:
		return cfg, fmt.Errorf("invalid source %q: want %q or %q", cfg.Source, sourceSheets, sourceCSV)
	}
	if cfg.CacheTTL <= 0 {
		return cfg, fmt.Errorf("invalid cache-ttl: %s", cfg.CacheTTL)
	}
	if cfg.FetchRetries < 0 {
		return cfg, fmt.Errorf("invalid fetch-retries: %d", cfg.FetchRetries)
	}

	cfg.CredentialsFile = resolvePath(cfg.CredentialsFile, home, cfg.ConfigPath)
	cfg.CSVDir = resolvePath(cfg.CSVDir, home, cfg.ConfigPath)
	cfg.LogFile = resolvePath(cfg.LogFile, home, cfg.ConfigPath)

	if cfg.APIAddr == "" {
		cfg.APIAddr = net.JoinHostPort(defaultBindHost, strconv.Itoa(cfg.APIPort))
	}

	return cfg, nil
}

// resolvePath expands ~ and makes relative paths relative to the directory
// of the loaded config file. Without a config file they stay relative to
// the working directory.
func resolvePath(path, home, configPath string) string {
	switch {
	case path == "":
		return ""
	case strings.HasPrefix(path, "~/"):
		return filepath.Join(home, path[2:])
	case filepath.IsAbs(path) || configPath == "":
		return path
	default:
		return filepath.Join(filepath.Dir(configPath), path)
	}
}

// writeConfig dumps the effective configuration as YAML.
func writeConfig(w io.Writer, cfg appConfig) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}
