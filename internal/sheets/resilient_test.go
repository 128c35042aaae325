package sheets

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/tinytelemetry/sheetboard/internal/model"
)

func fastConfig() ResilientConfig {
	return ResilientConfig{
		MaxRetries:      2,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		BreakerFailures: 2,
		BreakerTimeout:  time.Hour,
	}
}

func TestResilient_RetriesTransportFaults(t *testing.T) {
	var calls atomic.Int32
	src := SourceFunc(func(ctx context.Context, table model.TableName) ([][]string, error) {
		if calls.Add(1) < 3 {
			return nil, &SourceError{Table: table, Err: errors.New("connection reset")}
		}
		return [][]string{{"Timestamp"}, {"x"}}, nil
	})

	rows, err := NewResilient(src, "test", fastConfig()).Fetch(context.Background(), model.TableRequests)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("rows = %d, want 2", len(rows))
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestResilient_PermanentErrorsNotRetried(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"unavailable", unavailable(model.TableErrors, "no creds"), KindUnavailable},
		{"empty", checkRows(model.TableErrors, nil), KindEmpty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			src := SourceFunc(func(ctx context.Context, table model.TableName) ([][]string, error) {
				calls.Add(1)
				return nil, tt.err
			})
			r := NewResilient(src, "test", fastConfig())

			for i := 0; i < 3; i++ {
				_, err := r.Fetch(context.Background(), model.TableErrors)
				if Classify(err) != tt.want {
					t.Fatalf("err = %v, want %v", err, tt.want)
				}
			}
			if calls.Load() != 3 {
				t.Errorf("calls = %d, want 3 (one per fetch, no retries)", calls.Load())
			}
			if r.State() != gobreaker.StateClosed {
				t.Errorf("breaker = %v, want closed", r.State())
			}
		})
	}
}

func TestResilient_BreakerOpensAfterFailures(t *testing.T) {
	var calls atomic.Int32
	src := SourceFunc(func(ctx context.Context, table model.TableName) ([][]string, error) {
		calls.Add(1)
		return nil, errors.New("503 backend error")
	})
	cfg := fastConfig()
	cfg.MaxRetries = 0
	r := NewResilient(src, "test", cfg)

	for i := 0; i < 2; i++ {
		_, err := r.Fetch(context.Background(), model.TableMetrics)
		var srcErr *SourceError
		if !errors.As(err, &srcErr) {
			t.Fatalf("fetch %d: err = %v, want *SourceError", i, err)
		}
	}
	if r.State() != gobreaker.StateOpen {
		t.Fatalf("breaker = %v, want open", r.State())
	}

	before := calls.Load()
	_, err := r.Fetch(context.Background(), model.TableMetrics)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("err = %v, want ErrOpenState", err)
	}
	if Classify(err) != KindError {
		t.Errorf("open breaker classified as %v, want error", Classify(err))
	}
	if calls.Load() != before {
		t.Error("open breaker should not call the source")
	}
}

func TestResilient_CanceledContextStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	src := SourceFunc(func(ctx context.Context, table model.TableName) ([][]string, error) {
		calls.Add(1)
		cancel()
		return nil, &SourceError{Table: table, Err: ctx.Err()}
	})
	cfg := fastConfig()
	cfg.MaxRetries = 5

	_, err := NewResilient(src, "test", cfg).Fetch(ctx, model.TableRequests)
	if err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}
