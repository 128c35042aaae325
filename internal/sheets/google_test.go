package sheets

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/tinytelemetry/sheetboard/internal/model"
	"google.golang.org/api/option"
)

func newSheetsServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if !strings.Contains(r.URL.Path, "/values/") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func testGoogleSource(srv *httptest.Server) *GoogleSource {
	return NewGoogleSource(GoogleConfig{
		SpreadsheetID: "sheet-123",
		ClientOptions: []option.ClientOption{
			option.WithEndpoint(srv.URL + "/"),
			option.WithoutAuthentication(),
			option.WithHTTPClient(srv.Client()),
		},
	})
}

func TestGoogleSource_Fetch(t *testing.T) {
	srv, calls := newSheetsServer(t, http.StatusOK, `{
		"range": "APIRequests!A1:F3",
		"majorDimension": "ROWS",
		"values": [
			["Timestamp", "Method", "Path", "StatusCode", "Duration"],
			["2024-01-01T10:05:00Z", "GET", "/a", 200, 120.5],
			["2024-01-01T10:06:00Z", "POST"]
		]
	}`)

	rows, err := testGoogleSource(srv).Fetch(context.Background(), model.TableRequests)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	if rows[1][3] != "200" || rows[1][4] != "120.5" {
		t.Errorf("row 1 = %v, want stringified numbers", rows[1])
	}
	if len(rows[2]) != 2 {
		t.Errorf("short row = %v", rows[2])
	}
}

func TestGoogleSource_HeaderOnlyIsEmpty(t *testing.T) {
	srv, _ := newSheetsServer(t, http.StatusOK, `{"values": [["Timestamp", "Type"]]}`)

	_, err := testGoogleSource(srv).Fetch(context.Background(), model.TableErrors)
	if !errors.Is(err, ErrSourceEmpty) {
		t.Fatalf("err = %v, want ErrSourceEmpty", err)
	}
}

func TestGoogleSource_NoValuesIsEmpty(t *testing.T) {
	srv, _ := newSheetsServer(t, http.StatusOK, `{"range": "Metrics!A1:Z1"}`)

	_, err := testGoogleSource(srv).Fetch(context.Background(), model.TableMetrics)
	if !errors.Is(err, ErrSourceEmpty) {
		t.Fatalf("err = %v, want ErrSourceEmpty", err)
	}
}

func TestGoogleSource_ForbiddenIsUnavailable(t *testing.T) {
	srv, _ := newSheetsServer(t, http.StatusForbidden, `{"error": {"code": 403, "message": "caller does not have permission"}}`)

	_, err := testGoogleSource(srv).Fetch(context.Background(), model.TableRequests)
	if Classify(err) != KindUnavailable {
		t.Fatalf("err = %v, want unavailable", err)
	}
}

func TestGoogleSource_ServerErrorIsSourceError(t *testing.T) {
	srv, _ := newSheetsServer(t, http.StatusBadRequest, `{"error": {"code": 400, "message": "Unable to parse range"}}`)

	_, err := testGoogleSource(srv).Fetch(context.Background(), model.TableRequests)
	var srcErr *SourceError
	if !errors.As(err, &srcErr) {
		t.Fatalf("err = %v, want *SourceError", err)
	}
	if srcErr.Table != model.TableRequests {
		t.Errorf("table = %s", srcErr.Table)
	}
}

func TestGoogleSource_MissingConfigIsUnavailable(t *testing.T) {
	tests := []struct {
		name string
		cfg  GoogleConfig
	}{
		{"no spreadsheet id", GoogleConfig{CredentialsFile: "creds.json"}},
		{"no credentials", GoogleConfig{SpreadsheetID: "abc"}},
		{"credentials file missing", GoogleConfig{SpreadsheetID: "abc", CredentialsFile: filepath.Join(t.TempDir(), "nope.json")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGoogleSource(tt.cfg).Fetch(context.Background(), model.TableRequests)
			if Classify(err) != KindUnavailable {
				t.Fatalf("err = %v, want unavailable", err)
			}
		})
	}
}

func TestStringifyValues(t *testing.T) {
	got := stringifyValues([][]interface{}{{"a", nil, 1.5, true}})
	want := []string{"a", "", "1.5", "true"}
	if len(got) != 1 || len(got[0]) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[0][i] != want[i] {
			t.Errorf("cell %d = %q, want %q", i, got[0][i], want[i])
		}
	}
}
