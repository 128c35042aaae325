package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/tinytelemetry/sheetboard/internal/model"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

const defaultColumnRange = "A:Z"

// GoogleConfig configures access to one spreadsheet.
type GoogleConfig struct {
	SpreadsheetID   string
	CredentialsFile string // service-account JSON
	ColumnRange     string // defaults to A:Z

	// ClientOptions, when set, replace credential-file authentication.
	ClientOptions []option.ClientOption
}

// GoogleSource reads tables from the Google Sheets v4 API with read-only
// scope. The API client is built lazily so a missing credential file is a
// per-fetch error, not a startup failure.
type GoogleSource struct {
	cfg GoogleConfig

	mu  sync.Mutex
	svc *sheetsapi.Service
}

// NewGoogleSource creates a source for the configured spreadsheet.
func NewGoogleSource(cfg GoogleConfig) *GoogleSource {
	if cfg.ColumnRange == "" {
		cfg.ColumnRange = defaultColumnRange
	}
	return &GoogleSource{cfg: cfg}
}

// Fetch reads <table>!<range> as formatted strings.
func (g *GoogleSource) Fetch(ctx context.Context, table model.TableName) ([][]string, error) {
	svc, err := g.service(table)
	if err != nil {
		return nil, err
	}

	readRange := fmt.Sprintf("%s!%s", table, g.cfg.ColumnRange)
	resp, err := svc.Spreadsheets.Values.Get(g.cfg.SpreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && (apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden) {
			return nil, unavailable(table, "credentials rejected: %s", apiErr.Message)
		}
		return nil, &SourceError{Table: table, Err: err}
	}

	rows := stringifyValues(resp.Values)
	if err := checkRows(table, rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (g *GoogleSource) service(table model.TableName) (*sheetsapi.Service, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.svc != nil {
		return g.svc, nil
	}
	if strings.TrimSpace(g.cfg.SpreadsheetID) == "" {
		return nil, unavailable(table, "spreadsheet id is not configured")
	}
	if len(g.cfg.ClientOptions) > 0 {
		svc, err := sheetsapi.NewService(context.Background(), g.cfg.ClientOptions...)
		if err != nil {
			return nil, unavailable(table, "build client: %v", err)
		}
		g.svc = svc
		return svc, nil
	}
	if strings.TrimSpace(g.cfg.CredentialsFile) == "" {
		return nil, unavailable(table, "credentials file is not configured")
	}
	if _, err := os.Stat(g.cfg.CredentialsFile); err != nil {
		return nil, unavailable(table, "service account file not found: %s", g.cfg.CredentialsFile)
	}

	// The client outlives any single request, so it is not bound to one.
	svc, err := sheetsapi.NewService(context.Background(),
		option.WithCredentialsFile(g.cfg.CredentialsFile),
		option.WithScopes(sheetsapi.SpreadsheetsReadonlyScope),
	)
	if err != nil {
		return nil, unavailable(table, "load credentials: %v", err)
	}
	g.svc = svc
	return svc, nil
}

// stringifyValues converts the API's loosely typed grid into strings.
func stringifyValues(values [][]interface{}) [][]string {
	rows := make([][]string, 0, len(values))
	for _, row := range values {
		out := make([]string, len(row))
		for i, cell := range row {
			switch v := cell.(type) {
			case nil:
				out[i] = ""
			case string:
				out[i] = v
			default:
				out[i] = fmt.Sprint(v)
			}
		}
		rows = append(rows, out)
	}
	return rows
}
