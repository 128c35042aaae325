package tui

import (
	"time"

	"github.com/tinytelemetry/sheetboard/internal/model"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// Tab identifies a dashboard tab.
type Tab int

const (
	TabAPI Tab = iota
	TabErrors
	TabMetrics
)

var tabTitles = []string{"API Performance", "Errors", "Metrics"}

func (t Tab) String() string {
	if int(t) < len(tabTitles) {
		return tabTitles[t]
	}
	return "?"
}

// ViewData is one consistent set of views fetched in a single round.
type ViewData struct {
	Overview model.Overview
	Requests model.RequestsView
	Errors   model.ErrorsView
	Metrics  model.MetricsView
}

// DashboardModel represents the main TUI model.
type DashboardModel struct {
	dash       model.Dashboard
	dataSource string // shown in the status line

	width  int
	height int

	activeTab      Tab
	selectedMetric string

	data    ViewData
	hasData bool

	updateInterval time.Duration
	fetchTimeout   time.Duration
	started        bool

	// Async fetch guard to avoid overlapping round trips.
	fetchInFlight bool
	lastFetchAt   time.Time

	// Last transport error for status line display (auto-clears after 30s).
	lastError   string
	lastErrorAt time.Time

	keys KeyMap
	help help.Model
}

// TickMsg represents periodic updates.
type TickMsg time.Time

// dataLoadedMsg carries one fetch round back to the model.
type dataLoadedMsg struct {
	data ViewData
	err  error
	at   time.Time
}

// NewDashboardModel creates a dashboard reading from dash. A non-positive
// updateInterval falls back to the shared default.
func NewDashboardModel(dash model.Dashboard, updateInterval time.Duration, dataSource string) *DashboardModel {
	if updateInterval <= 0 {
		updateInterval = model.DefaultUpdateInterval
	}
	return &DashboardModel{
		dash:           dash,
		dataSource:     dataSource,
		activeTab:      TabAPI,
		updateInterval: updateInterval,
		fetchTimeout:   60 * time.Second,
		keys:           DefaultKeyMap(),
		help:           help.New(),
	}
}

// Init starts the refresh tick and the first fetch. It is safe to call again
// when navigating back to the dashboard page.
func (m *DashboardModel) Init() tea.Cmd {
	if m.started {
		return nil
	}
	m.started = true
	m.fetchInFlight = true
	return tea.Batch(
		m.fetchCmd(false),
		m.tickCmd(),
		spinnerTick(),
	)
}

func (m *DashboardModel) tickCmd() tea.Cmd {
	return tea.Tick(m.updateInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m *DashboardModel) nextTab() {
	m.activeTab = (m.activeTab + 1) % Tab(len(tabTitles))
}

func (m *DashboardModel) prevTab() {
	m.activeTab = (m.activeTab - 1 + Tab(len(tabTitles))) % Tab(len(tabTitles))
}

// cycleMetric moves the metric selection by delta within the known names.
// It returns false when there is nothing to select.
func (m *DashboardModel) cycleMetric(delta int) bool {
	names := m.data.Metrics.Names
	if len(names) == 0 {
		return false
	}
	current := m.selectedMetric
	if current == "" {
		current = m.data.Metrics.Selected
	}
	idx := 0
	for i, n := range names {
		if n == current {
			idx = i
			break
		}
	}
	idx = (idx + delta + len(names)) % len(names)
	m.selectedMetric = names[idx]
	return true
}

// DashboardPage adapts DashboardModel to the Page interface.
type DashboardPage struct {
	Model *DashboardModel
}

// NewDashboardPage wraps a DashboardModel as a Page.
func NewDashboardPage(m *DashboardModel) *DashboardPage {
	return &DashboardPage{Model: m}
}

func (p *DashboardPage) ID() string { return "dashboard" }

func (p *DashboardPage) Init() tea.Cmd {
	return p.Model.Init()
}

func (p *DashboardPage) Update(msg tea.Msg) (tea.Cmd, *PageNav) {
	if km, ok := msg.(tea.KeyMsg); ok && key.Matches(km, p.Model.keys.Help) {
		return nil, &PageNav{PageID: "help"}
	}
	_, cmd := p.Model.Update(msg)
	return cmd, nil
}

func (p *DashboardPage) View(width, height int) string {
	p.Model.width = width
	p.Model.height = height
	return p.Model.View()
}
