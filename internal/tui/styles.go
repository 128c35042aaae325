package tui

import "github.com/charmbracelet/lipgloss"

// Palette
var (
	ColorNavy  = lipgloss.Color("#1B2A49")
	ColorWhite = lipgloss.Color("#F5F5F5")
	ColorGray  = lipgloss.Color("244")
	ColorBlue  = lipgloss.Color("39")
	ColorGreen = lipgloss.Color("#44FF44")
	ColorAmber = lipgloss.Color("#FFAA00")
	ColorRed   = lipgloss.Color("#FF4444")
)

var (
	sectionStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	activeSectionStyle = sectionStyle.
				BorderForeground(ColorBlue)

	chartTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorWhite)

	helpStyle = lipgloss.NewStyle().
			Foreground(ColorGray).
			Italic(true)

	cardLabelStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	cardValueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorWhite)

	tabStyle = lipgloss.NewStyle().
			Padding(0, 2).
			Foreground(ColorGray)

	activeTabStyle = tabStyle.
			Bold(true).
			Foreground(ColorWhite).
			Background(ColorNavy)

	statusStyle = lipgloss.NewStyle().
			Background(ColorNavy).
			Foreground(ColorWhite)

	// Bar fills use the same color for foreground and background so the
	// ntcharts block glyphs render solid.
	requestBarStyle = lipgloss.NewStyle().Foreground(ColorBlue).Background(ColorBlue)
	errorBarStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Background(lipgloss.Color("196"))
	metricBarStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Background(lipgloss.Color("42"))
	emptyBarStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("236")).Background(lipgloss.Color("236"))
)

// noticeColor maps a notice level to its foreground color.
func noticeColor(level string) lipgloss.Color {
	switch level {
	case "success":
		return ColorGreen
	case "warning":
		return ColorAmber
	case "error":
		return ColorRed
	default:
		return ColorBlue
	}
}
