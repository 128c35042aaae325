package sheets

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/tinytelemetry/sheetboard/internal/model"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindOK},
		{"unavailable", unavailable(model.TableRequests, "no creds"), KindUnavailable},
		{"wrapped unavailable", fmt.Errorf("outer: %w", ErrSourceUnavailable), KindUnavailable},
		{"empty", checkRows(model.TableErrors, [][]string{{"Timestamp"}}), KindEmpty},
		{"source error", &SourceError{Table: model.TableMetrics, Err: errors.New("boom")}, KindError},
		{"unknown", errors.New("anything"), KindError},
		{"canceled", context.Canceled, KindError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestCheckRows(t *testing.T) {
	t.Parallel()

	if err := checkRows(model.TableRequests, nil); !errors.Is(err, ErrSourceEmpty) {
		t.Errorf("nil rows: err = %v, want ErrSourceEmpty", err)
	}
	if err := checkRows(model.TableRequests, [][]string{{"Timestamp"}}); !errors.Is(err, ErrSourceEmpty) {
		t.Errorf("header only: err = %v, want ErrSourceEmpty", err)
	}
	if err := checkRows(model.TableRequests, [][]string{{"Timestamp"}, {"x"}}); err != nil {
		t.Errorf("one data row: err = %v, want nil", err)
	}
}

func TestSourceErrorUnwrap(t *testing.T) {
	t.Parallel()

	inner := errors.New("connection reset")
	err := error(&SourceError{Table: model.TableErrors, Err: inner})
	if !errors.Is(err, inner) {
		t.Error("SourceError should unwrap to its cause")
	}
	var srcErr *SourceError
	if !errors.As(err, &srcErr) || srcErr.Table != model.TableErrors {
		t.Errorf("errors.As = %+v", srcErr)
	}
}

func TestKindString(t *testing.T) {
	t.Parallel()

	for k, want := range map[Kind]string{
		KindOK:          "ok",
		KindUnavailable: "unavailable",
		KindEmpty:       "empty",
		KindError:       "error",
	} {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", k, got, want)
		}
	}
}
