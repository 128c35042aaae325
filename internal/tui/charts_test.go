package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/tinytelemetry/sheetboard/internal/model"

	"github.com/charmbracelet/lipgloss"
)

func TestRenderVerticalBars_Empty(t *testing.T) {
	t.Parallel()

	if got := renderVerticalBars(nil, 40, 8, requestBarStyle); !strings.Contains(got, noDataText) {
		t.Fatalf("empty chart = %q", got)
	}
}

func TestRenderVerticalBars_Height(t *testing.T) {
	t.Parallel()

	values := make([]float64, 100) // more values than slots
	for i := range values {
		values[i] = float64(i)
	}
	out := renderVerticalBars(values, 40, 8, requestBarStyle)
	if h := lipgloss.Height(out); h < 1 || h > 8 {
		t.Fatalf("height = %d, want 1..8", h)
	}
	if w := lipgloss.Width(out); w > 40 {
		t.Fatalf("width = %d, want <= 40", w)
	}
}

func TestRenderBucketChart_Caption(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	buckets := []model.Bucket{{Start: start, Count: 2}, {Start: start.Add(time.Hour), Count: 7}}
	out := renderBucketChart(buckets, 60, 8, requestBarStyle)
	if !strings.Contains(out, "01-01 10:00") || !strings.Contains(out, "peak 7/h") {
		t.Fatalf("caption missing from %q", out)
	}
}

func TestRenderHorizontalBars(t *testing.T) {
	t.Parallel()

	items := countItems([]model.ValueCount{{Value: "GET", Count: 10}, {Value: "POST", Count: 1}, {Value: "PUT", Count: 0}})
	out := renderHorizontalBars(items, 50, 2)
	lines := strings.Split(out, "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2 (limit)", len(lines))
	}
	if !strings.Contains(lines[0], strings.Repeat("█", 15)) {
		t.Errorf("top row not full: %q", lines[0])
	}
	// Small non-zero values still get one block.
	if !strings.Contains(lines[1], "|█░") {
		t.Errorf("small row = %q, want a single block", lines[1])
	}
}

func TestFormatStats_NoData(t *testing.T) {
	t.Parallel()

	if got := formatStats(model.Stats{}); !strings.Contains(got, "no data") {
		t.Fatalf("formatStats = %q", got)
	}
	if got := formatStats(model.Stats{Last: 1.5, Mean: 2, Max: 250.4, Min: 0, OK: true}); got != "Current: 1.50 • Average: 2 • Max: 250 • Min: 0" {
		t.Fatalf("formatStats = %q", got)
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello", 4, "hel…"},
		{"hello", 1, "…"},
		{"hello", 0, ""},
		{"héllo", 3, "hé…"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.width); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}

func TestNonEmptyBins(t *testing.T) {
	t.Parallel()

	bins := []model.HistogramBin{{Count: 0}, {Count: 2}, {Count: 0}}
	if got := nonEmptyBins(bins); len(got) != 1 || got[0].Count != 2 {
		t.Fatalf("nonEmptyBins = %+v", got)
	}
}
