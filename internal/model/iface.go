package model

import "context"

// DashboardReader is the read contract shared by every presentation surface
// (HTTP, socket RPC, TUI). Implementations never fail because a table could
// not be loaded; that is reported through notices. Errors are reserved for
// transport faults between a client and the service.
type DashboardReader interface {
	Overview(ctx context.Context) (Overview, error)
	Requests(ctx context.Context) (RequestsView, error)
	Errors(ctx context.Context) (ErrorsView, error)
	Metrics(ctx context.Context, name string) (MetricsView, error)
}

// Refresher drops cached tables so the next read refetches them.
type Refresher interface {
	Refresh(ctx context.Context) (Overview, error)
}

// Dashboard is the unified contract served by the service and its clients.
type Dashboard interface {
	DashboardReader
	Refresher
}

// SchemaQuerier provides schema introspection and arbitrary read-only queries
// over the mirrored snapshot.
type SchemaQuerier interface {
	ExecuteQuery(query string) ([]map[string]interface{}, error)
	GetSchemaDescription() string
	TableRowCounts() (map[string]int64, error)
}
