package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// SpinnerTickMsg triggers a re-render for loading spinners.
type SpinnerTickMsg struct{}

func spinnerTick() tea.Cmd {
	return tea.Tick(120*time.Millisecond, func(_ time.Time) tea.Msg {
		return SpinnerTickMsg{}
	})
}

// spinnerFrame is selected from the wall clock so it animates on re-render.
func spinnerFrame() string {
	return spinnerFrames[time.Now().UnixMilli()/120%int64(len(spinnerFrames))]
}

// renderLoadingPlaceholder renders an animated loading indicator.
func renderLoadingPlaceholder(width, height int) string {
	text := lipgloss.NewStyle().
		Foreground(ColorGray).
		Italic(true).
		Render(spinnerFrame() + " Loading dashboard data...")

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, text)
}
