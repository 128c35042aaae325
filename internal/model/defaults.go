package model

import "time"

// Shared defaults used by both the service and TUI binaries.
const (
	DefaultCacheTTL       = 300 * time.Second
	DefaultUpdateInterval = 30 * time.Second
	DefaultHistogramBins  = 30
	DefaultSlowestLimit   = 10
	DefaultRecentErrors   = 20
)
