package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all dashboard key bindings with built-in help text.
type KeyMap struct {
	// Global
	Quit      key.Binding
	ForceQuit key.Binding
	Help      key.Binding
	Refresh   key.Binding

	// Tabs
	NextTab   key.Binding
	PrevTab   key.Binding
	TabAPI    key.Binding
	TabErrors key.Binding
	TabMetric key.Binding

	// Metrics tab
	PrevMetric key.Binding
	NextMetric key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "force quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?", "h"),
			key.WithHelp("?/h", "help"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh data"),
		),

		NextTab: key.NewBinding(
			key.WithKeys("tab", "]"),
			key.WithHelp("tab", "next tab"),
		),
		PrevTab: key.NewBinding(
			key.WithKeys("shift+tab", "["),
			key.WithHelp("shift+tab", "prev tab"),
		),
		TabAPI: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "API performance"),
		),
		TabErrors: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "errors"),
		),
		TabMetric: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "metrics"),
		),

		PrevMetric: key.NewBinding(
			key.WithKeys("left"),
			key.WithHelp("←", "prev metric"),
		),
		NextMetric: key.NewBinding(
			key.WithKeys("right"),
			key.WithHelp("→", "next metric"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextTab, k.Refresh, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.NextTab, k.PrevTab, k.TabAPI, k.TabErrors, k.TabMetric},
		{k.PrevMetric, k.NextMetric},
		{k.Refresh, k.Help, k.Quit, k.ForceQuit},
	}
}
