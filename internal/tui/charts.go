package tui

import (
	"fmt"
	"strings"

	"github.com/tinytelemetry/sheetboard/internal/model"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/lipgloss"
)

const noDataText = "No data available"

// barSlots is how many 1-wide bars with a 1-wide gap fit in width.
func barSlots(width int) int {
	return max(1, width/2)
}

// renderVerticalBars draws values as a left-padded ntcharts bar chart so the
// newest value is always at the right edge.
func renderVerticalBars(values []float64, width, height int, style lipgloss.Style) string {
	if len(values) == 0 {
		return helpStyle.Render(noDataText)
	}
	if width < 4 {
		width = 4
	}
	if height < 2 {
		height = 2
	}

	slots := barSlots(width)
	start := 0
	if len(values) > slots {
		start = len(values) - slots
	}
	shown := values[start:]

	bc := barchart.New(width, height,
		barchart.WithBarGap(1),
		barchart.WithBarWidth(1),
		barchart.WithNoAxis(),
	)
	for i := 0; i < slots-len(shown); i++ {
		bc.Push(barchart.BarData{
			Values: []barchart.BarValue{{Name: "empty", Value: 0, Style: emptyBarStyle}},
		})
	}
	for _, v := range shown {
		if v < 0 {
			v = 0
		}
		bc.Push(barchart.BarData{
			Values: []barchart.BarValue{{Name: "value", Value: v, Style: style}},
		})
	}
	bc.Draw()
	return bc.View()
}

// renderBucketChart renders hourly buckets with a time range caption.
func renderBucketChart(buckets []model.Bucket, width, height int, style lipgloss.Style) string {
	if len(buckets) == 0 {
		return helpStyle.Render(noDataText)
	}
	values := make([]float64, len(buckets))
	var peak int64
	for i, b := range buckets {
		values[i] = float64(b.Count)
		peak = max(peak, b.Count)
	}
	slots := barSlots(width)
	first := buckets[0]
	if len(buckets) > slots {
		first = buckets[len(buckets)-slots]
	}
	last := buckets[len(buckets)-1]

	caption := fmt.Sprintf("%s → %s  peak %d/h",
		first.Start.Format("01-02 15:04"),
		last.Start.Format("01-02 15:04"),
		peak,
	)
	return lipgloss.JoinVertical(lipgloss.Left,
		renderVerticalBars(values, width, height-1, style),
		helpStyle.Render(truncate(caption, width)),
	)
}

// renderMetricChart renders one metric series with its summary stats.
func renderMetricChart(view model.MetricsView, width, height int) string {
	if len(view.Points) == 0 {
		return helpStyle.Render(noDataText)
	}
	values := make([]float64, len(view.Points))
	for i, p := range view.Points {
		values[i] = p.Value
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		renderVerticalBars(values, width, height-1, metricBarStyle),
		helpStyle.Render(truncate(formatStats(view.Stats), width)),
	)
}

func formatStats(s model.Stats) string {
	if !s.OK {
		return "Current: no data • Average: no data • Max: no data"
	}
	return fmt.Sprintf("Current: %s • Average: %s • Max: %s • Min: %s",
		formatNumber(s.Last), formatNumber(s.Mean), formatNumber(s.Max), formatNumber(s.Min))
}

// hbarItem is one labelled row of a horizontal bar list.
type hbarItem struct {
	Label string
	Value float64
	Text  string // formatted value
}

func countItems(vcs []model.ValueCount) []hbarItem {
	items := make([]hbarItem, len(vcs))
	for i, vc := range vcs {
		items[i] = hbarItem{Label: vc.Value, Value: float64(vc.Count), Text: fmt.Sprintf("%d", vc.Count)}
	}
	return items
}

func groupItems(gvs []model.GroupValue, unit string) []hbarItem {
	items := make([]hbarItem, len(gvs))
	for i, gv := range gvs {
		items[i] = hbarItem{Label: gv.Group, Value: gv.Value, Text: formatNumber(gv.Value) + unit}
	}
	return items
}

func histogramItems(bins []model.HistogramBin) []hbarItem {
	items := make([]hbarItem, len(bins))
	for i, b := range bins {
		items[i] = hbarItem{
			Label: fmt.Sprintf("%s–%s", formatNumber(b.Lower), formatNumber(b.Upper)),
			Value: float64(b.Count),
			Text:  fmt.Sprintf("%d", b.Count),
		}
	}
	return items
}

// renderHorizontalBars renders up to limit rows scaled to the largest value.
func renderHorizontalBars(items []hbarItem, width, limit int) string {
	if len(items) == 0 {
		return helpStyle.Render(noDataText)
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	var top float64
	valueWidth := 3
	for _, it := range items {
		top = max(top, it.Value)
		valueWidth = max(valueWidth, len(it.Text))
	}

	barWidth := 15
	if width < 40 {
		barWidth = 8
	}
	labelWidth := width - barWidth - valueWidth - 4
	if labelWidth < 6 {
		labelWidth = 6
	}

	lineStyle := lipgloss.NewStyle().Foreground(ColorWhite)
	lines := make([]string, 0, len(items))
	for _, it := range items {
		filled := 0
		if top > 0 {
			filled = int(it.Value / top * float64(barWidth))
		}
		if filled == 0 && it.Value > 0 {
			filled = 1
		}
		bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
		line := fmt.Sprintf("%-*s %*s |%s|", labelWidth, truncate(it.Label, labelWidth), valueWidth, it.Text, bar)
		lines = append(lines, lineStyle.Render(line))
	}
	return strings.Join(lines, "\n")
}

// renderRecentErrors renders the newest error rows as a compact table.
func renderRecentErrors(rows []model.ErrorRecord, width, limit int) string {
	if len(rows) == 0 {
		return helpStyle.Render(noDataText)
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	typeStyle := lipgloss.NewStyle().Foreground(ColorRed).Bold(true)
	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		ts := "—"
		if r.Timestamp != nil {
			ts = r.Timestamp.Format("01-02 15:04:05")
		}
		head := fmt.Sprintf("%s %s ", ts, typeStyle.Render(r.Type))
		rest := r.Message
		if r.Endpoint != "" {
			rest = r.Endpoint + "  " + rest
		}
		avail := width - lipgloss.Width(head)
		lines = append(lines, head+truncate(rest, max(avail, 0)))
	}
	return strings.Join(lines, "\n")
}

func formatNumber(v float64) string {
	switch {
	case v == float64(int64(v)) && v < 1e12 && v > -1e12:
		return fmt.Sprintf("%d", int64(v))
	case v >= 100 || v <= -100:
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}

// truncate shortens s to at most width runes, marking the cut with an ellipsis.
func truncate(s string, width int) string {
	r := []rune(s)
	if width <= 0 {
		return ""
	}
	if len(r) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(r[:width-1]) + "…"
}
