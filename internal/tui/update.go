package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/tinytelemetry/sheetboard/internal/model"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// metricsLoadedMsg carries a metrics view fetched after a selection change.
type metricsLoadedMsg struct {
	view model.MetricsView
	err  error
}

// errorDisplayDuration is how long a transport error stays in the status line.
const errorDisplayDuration = 30 * time.Second

// Update handles messages
func (m *DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case TickMsg:
		// Ticks are served from the service cache; only the TTL decides
		// whether the source is hit again.
		if m.fetchInFlight {
			return m, m.tickCmd()
		}
		m.fetchInFlight = true
		return m, tea.Batch(m.fetchCmd(false), m.tickCmd(), spinnerTick())

	case dataLoadedMsg:
		m.fetchInFlight = false
		m.applyData(msg)
		return m, nil

	case metricsLoadedMsg:
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.data.Metrics = msg.view
		m.selectedMetric = msg.view.Selected
		return m, nil

	case SpinnerTickMsg:
		if m.fetchInFlight {
			return m, spinnerTick()
		}
		return m, nil
	}

	return m, nil
}

func (m *DashboardModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit), key.Matches(msg, m.keys.ForceQuit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Refresh):
		if m.fetchInFlight {
			return m, nil
		}
		m.fetchInFlight = true
		return m, tea.Batch(m.fetchCmd(true), spinnerTick())

	case key.Matches(msg, m.keys.NextTab):
		m.nextTab()
	case key.Matches(msg, m.keys.PrevTab):
		m.prevTab()
	case key.Matches(msg, m.keys.TabAPI):
		m.activeTab = TabAPI
	case key.Matches(msg, m.keys.TabErrors):
		m.activeTab = TabErrors
	case key.Matches(msg, m.keys.TabMetric):
		m.activeTab = TabMetrics

	case key.Matches(msg, m.keys.PrevMetric), key.Matches(msg, m.keys.NextMetric):
		if m.activeTab != TabMetrics {
			return m, nil
		}
		delta := 1
		if key.Matches(msg, m.keys.PrevMetric) {
			delta = -1
		}
		if m.cycleMetric(delta) {
			return m, m.fetchMetricCmd(m.selectedMetric)
		}
	}
	return m, nil
}

// fetchCmd loads every view in one round. With refresh set, the service
// cache is invalidated first.
func (m *DashboardModel) fetchCmd(refresh bool) tea.Cmd {
	dash := m.dash
	metric := m.selectedMetric
	timeout := m.fetchTimeout
	return func() tea.Msg {
		if dash == nil {
			return dataLoadedMsg{err: fmt.Errorf("no data source"), at: time.Now()}
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		var (
			data ViewData
			err  error
		)
		if refresh {
			data.Overview, err = dash.Refresh(ctx)
		} else {
			data.Overview, err = dash.Overview(ctx)
		}
		if err != nil {
			return dataLoadedMsg{err: err, at: time.Now()}
		}
		if data.Requests, err = dash.Requests(ctx); err != nil {
			return dataLoadedMsg{err: err, at: time.Now()}
		}
		if data.Errors, err = dash.Errors(ctx); err != nil {
			return dataLoadedMsg{err: err, at: time.Now()}
		}
		if data.Metrics, err = dash.Metrics(ctx, metric); err != nil {
			return dataLoadedMsg{err: err, at: time.Now()}
		}
		return dataLoadedMsg{data: data, at: time.Now()}
	}
}

func (m *DashboardModel) fetchMetricCmd(name string) tea.Cmd {
	dash := m.dash
	timeout := m.fetchTimeout
	return func() tea.Msg {
		if dash == nil {
			return metricsLoadedMsg{err: fmt.Errorf("no data source")}
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		view, err := dash.Metrics(ctx, name)
		return metricsLoadedMsg{view: view, err: err}
	}
}

// applyData installs a fetch round. A failed round keeps the previous data
// on screen and reports the error in the status line.
func (m *DashboardModel) applyData(msg dataLoadedMsg) {
	if msg.err != nil {
		m.setError(msg.err)
		return
	}
	m.data = msg.data
	m.hasData = true
	m.lastFetchAt = msg.at
	m.selectedMetric = msg.data.Metrics.Selected
	m.lastError = ""
}

func (m *DashboardModel) setError(err error) {
	m.lastError = err.Error()
	m.lastErrorAt = time.Now()
}

// activeError returns the last error while it is still fresh.
func (m *DashboardModel) activeError() string {
	if m.lastError == "" || time.Since(m.lastErrorAt) > errorDisplayDuration {
		return ""
	}
	return m.lastError
}
