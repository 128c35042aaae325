package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// renderBranding renders the product name with a blue to green gradient.
func renderBranding() string {
	colors := []string{
		"#00CAC7", "#00D0A1", "#0DD47B", "#21D955", "#35DD2F",
		"#49E209", "#49E209", "#35DD2F", "#21D955", "#0DD47B",
	}
	var out string
	for i, ch := range "Sheetboard" {
		out += lipgloss.NewStyle().
			Background(ColorNavy).
			Foreground(lipgloss.Color(colors[i%len(colors)])).
			Bold(true).
			Render(string(ch))
	}
	return out
}

// renderStatusLine renders the status/help line at the bottom of the screen.
func (m *DashboardModel) renderStatusLine() string {
	left := fmt.Sprintf("[%s]", m.activeTab)
	if m.width < 80 {
		left = ""
	}

	m.help.Width = max(m.width/2, 20)
	center := m.help.ShortHelpView(m.keys.ShortHelp())

	var right string
	switch {
	case m.fetchInFlight:
		right = spinnerFrame() + " loading"
	case m.activeError() != "":
		right = lipgloss.NewStyle().Background(ColorNavy).Foreground(ColorRed).Render("● ") + truncate(m.activeError(), 40)
	case !m.lastFetchAt.IsZero():
		right = lipgloss.NewStyle().Background(ColorNavy).Foreground(ColorGreen).Render("● ") +
			"updated " + m.lastFetchAt.Format("15:04:05")
	}
	if ttl := m.data.Overview.CacheTTL; ttl > 0 && m.width >= 100 {
		right += fmt.Sprintf(" • cache %s", ttl.Round(time.Second))
	}
	if m.dataSource != "" {
		right += " • " + m.dataSource
	}

	used := lipgloss.Width(left) + lipgloss.Width(center) + lipgloss.Width(right) + 2
	gap := m.width - used
	if gap < 1 {
		// Drop the help text before the status info.
		center = ""
		gap = max(m.width-lipgloss.Width(left)-lipgloss.Width(right)-2, 1)
	}
	line := " " + left + center + fmt.Sprintf("%*s", gap, "") + right + " "
	return statusStyle.Width(m.width).MaxWidth(m.width).MaxHeight(1).Render(line)
}
