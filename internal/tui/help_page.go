package tui

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// HelpPage lists every key binding. Any of its close keys returns to the
// dashboard.
type HelpPage struct {
	keys  KeyMap
	help  help.Model
	close key.Binding
}

// NewHelpPage creates the help page for keys.
func NewHelpPage(keys KeyMap) *HelpPage {
	h := help.New()
	h.ShowAll = true
	return &HelpPage{
		keys: keys,
		help: h,
		close: key.NewBinding(
			key.WithKeys("esc", "q", "?", "h", "enter"),
			key.WithHelp("esc", "back"),
		),
	}
}

func (p *HelpPage) ID() string { return "help" }

func (p *HelpPage) Init() tea.Cmd { return nil }

func (p *HelpPage) Update(msg tea.Msg) (tea.Cmd, *PageNav) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		p.help.Width = msg.Width
	case tea.KeyMsg:
		if key.Matches(msg, p.close) {
			return nil, &PageNav{PageID: "dashboard"}
		}
	}
	return nil, nil
}

func (p *HelpPage) View(width, height int) string {
	title := chartTitleStyle.Render("Keyboard shortcuts")
	body := p.help.View(p.keys)
	footer := helpStyle.Render("esc: back")
	block := sectionStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, "", body, "", footer))
	if width <= 0 || height <= 0 {
		return block
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, block)
}
