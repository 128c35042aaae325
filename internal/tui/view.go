package tui

import (
	"fmt"
	"strings"

	"github.com/tinytelemetry/sheetboard/internal/model"

	"github.com/charmbracelet/lipgloss"
)

const (
	minWidth  = 60
	minHeight = 20

	cardsHeight = 4
)

// View renders the dashboard
func (m *DashboardModel) View() string {
	if m.width <= 0 || m.height <= 0 {
		return "Initializing dashboard..."
	}
	if m.height < minHeight || m.width < minWidth {
		return fmt.Sprintf("Terminal too small. Resize to at least %dx%d.", minWidth, minHeight)
	}

	header := m.renderHeader()
	status := m.renderStatusLine()
	bodyHeight := m.height - lipgloss.Height(header) - lipgloss.Height(status)

	if !m.hasData {
		return lipgloss.JoinVertical(lipgloss.Left,
			header,
			renderLoadingPlaceholder(m.width, bodyHeight),
			status,
		)
	}

	cards := m.renderCards()
	notices := m.renderNotices()
	bodyHeight -= lipgloss.Height(cards)
	if notices != "" {
		bodyHeight -= lipgloss.Height(notices)
	}

	var body string
	switch m.activeTab {
	case TabAPI:
		body = m.renderAPITab(m.width, bodyHeight)
	case TabErrors:
		body = m.renderErrorsTab(m.width, bodyHeight)
	case TabMetrics:
		body = m.renderMetricsTab(m.width, bodyHeight)
	}

	sections := []string{header, cards}
	if notices != "" {
		sections = append(sections, notices)
	}
	sections = append(sections, body, status)
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *DashboardModel) renderHeader() string {
	tabs := make([]string, len(tabTitles))
	for i, title := range tabTitles {
		label := fmt.Sprintf("%d %s", i+1, title)
		if Tab(i) == m.activeTab {
			tabs[i] = activeTabStyle.Render(label)
		} else {
			tabs[i] = tabStyle.Render(label)
		}
	}
	left := renderBranding() + " " + lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
	return lipgloss.NewStyle().Width(m.width).Render(left)
}

// renderCards draws the key metric row shown above every tab.
func (m *DashboardModel) renderCards() string {
	km := m.data.Overview.Metrics
	cards := []struct {
		label string
		value string
	}{
		{"Total Requests", fmt.Sprintf("%d", km.TotalRequests)},
		{"Total Errors", fmt.Sprintf("%d", km.TotalErrors)},
		{"Error Rate", fmt.Sprintf("%.1f%%", km.ErrorRate)},
		{"Avg Response", fmt.Sprintf("%.0fms", km.AvgResponseMs)},
		{"Success Rate", fmt.Sprintf("%.1f%%", km.SuccessRate)},
	}

	cardWidth := m.width / len(cards)
	rendered := make([]string, len(cards))
	for i, c := range cards {
		w := cardWidth
		if i == len(cards)-1 {
			w = m.width - cardWidth*(len(cards)-1)
		}
		content := lipgloss.JoinVertical(lipgloss.Left,
			cardLabelStyle.Render(truncate(c.label, w-4)),
			cardValueStyle.Render(truncate(c.value, w-4)),
		)
		rendered[i] = sectionStyle.Width(w - 2).Render(content)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m *DashboardModel) renderNotices() string {
	var lines []string
	for _, n := range m.data.Overview.Notices {
		if n.Level == model.NoticeSuccess {
			continue
		}
		style := lipgloss.NewStyle().Foreground(noticeColor(string(n.Level)))
		lines = append(lines, style.Render(truncate("● "+n.Message, m.width)))
	}
	return strings.Join(lines, "\n")
}

// panel renders a bordered section with a title. width and height are the
// outer dimensions.
func panel(title, content string, width, height int) string {
	inner := lipgloss.JoinVertical(lipgloss.Left,
		chartTitleStyle.Render(truncate(title, max(width-4, 0))),
		content,
	)
	return sectionStyle.
		Width(max(width-2, 0)).
		Height(max(height-2, 0)).
		MaxHeight(height).
		Render(inner)
}

// contentSize is the usable area inside a panel of the given outer size.
func contentSize(width, height int) (int, int) {
	return max(width-4, 1), max(height-3, 1)
}

// grid lays out four panels in two rows of two.
func grid(width, height int, cells [4]func(w, h int) string) string {
	leftW := width / 2
	rightW := width - leftW
	topH := height / 2
	bottomH := height - topH

	top := lipgloss.JoinHorizontal(lipgloss.Top, cells[0](leftW, topH), cells[1](rightW, topH))
	bottom := lipgloss.JoinHorizontal(lipgloss.Top, cells[2](leftW, bottomH), cells[3](rightW, bottomH))
	return lipgloss.JoinVertical(lipgloss.Left, top, bottom)
}

func (m *DashboardModel) renderAPITab(width, height int) string {
	view := m.data.Requests
	if view.Notice != nil && len(view.Hourly) == 0 && len(view.Methods) == 0 {
		return renderNoticePlaceholder(*view.Notice, width, height)
	}
	return grid(width, height, [4]func(w, h int) string{
		func(w, h int) string {
			cw, ch := contentSize(w, h)
			return panel("Requests per Hour", renderBucketChart(view.Hourly, cw, ch, requestBarStyle), w, h)
		},
		func(w, h int) string {
			cw, ch := contentSize(w, h)
			return panel("HTTP Methods", renderHorizontalBars(countItems(view.Methods), cw, ch), w, h)
		},
		func(w, h int) string {
			cw, ch := contentSize(w, h)
			return panel("Response Time Distribution (ms)", renderHorizontalBars(histogramItems(nonEmptyBins(view.Durations)), cw, ch), w, h)
		},
		func(w, h int) string {
			cw, ch := contentSize(w, h)
			return panel("Slowest Endpoints", renderHorizontalBars(groupItems(view.SlowestEndpoint, "ms"), cw, ch), w, h)
		},
	})
}

func (m *DashboardModel) renderErrorsTab(width, height int) string {
	view := m.data.Errors
	if view.Notice != nil && len(view.Hourly) == 0 && len(view.Types) == 0 {
		return renderNoticePlaceholder(*view.Notice, width, height)
	}

	topH := height / 2
	bottomH := height - topH
	leftW := width / 2
	rightW := width - leftW

	hourlyW, hourlyH := contentSize(leftW, topH)
	typesW, typesH := contentSize(rightW, topH)
	recentW, recentH := contentSize(width, bottomH)

	top := lipgloss.JoinHorizontal(lipgloss.Top,
		panel("Errors per Hour", renderBucketChart(view.Hourly, hourlyW, hourlyH, errorBarStyle), leftW, topH),
		panel("Error Types", renderHorizontalBars(countItems(view.Types), typesW, typesH), rightW, topH),
	)
	bottom := panel("Recent Errors", renderRecentErrors(view.Recent, recentW, recentH), width, bottomH)
	return lipgloss.JoinVertical(lipgloss.Left, top, bottom)
}

func (m *DashboardModel) renderMetricsTab(width, height int) string {
	view := m.data.Metrics
	if view.Notice != nil && len(view.Names) == 0 {
		return renderNoticePlaceholder(*view.Notice, width, height)
	}
	if len(view.Names) == 0 {
		return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, helpStyle.Render(noDataText))
	}

	selector := renderMetricSelector(view.Names, view.Selected, width)
	chartH := height - lipgloss.Height(selector)
	cw, ch := contentSize(width, chartH)
	title := view.Selected
	if view.Stats.OK {
		title = fmt.Sprintf("%s (%d samples)", view.Selected, view.Stats.Count)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		selector,
		panel(title, renderMetricChart(view, cw, ch), width, chartH),
	)
}

func renderMetricSelector(names []string, selected string, width int) string {
	parts := make([]string, len(names))
	for i, n := range names {
		if n == selected {
			parts[i] = activeTabStyle.Render(n)
		} else {
			parts[i] = tabStyle.Render(n)
		}
	}
	line := "← " + strings.Join(parts, "") + " →"
	return lipgloss.NewStyle().MaxWidth(width).Render(line)
}

func renderNoticePlaceholder(n model.Notice, width, height int) string {
	text := lipgloss.NewStyle().
		Foreground(noticeColor(string(n.Level))).
		Render(n.Message)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, text)
}

// nonEmptyBins drops zero-count bins so long tails do not crowd the list.
func nonEmptyBins(bins []model.HistogramBin) []model.HistogramBin {
	out := make([]model.HistogramBin, 0, len(bins))
	for _, b := range bins {
		if b.Count > 0 {
			out = append(out, b)
		}
	}
	return out
}
