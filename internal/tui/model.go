// Package tui provides the Bubble Tea monitor interface.
package tui

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/trafficwatch/internal/monitor"
	"github.com/verte-zerg/trafficwatch/internal/process"
	"github.com/verte-zerg/trafficwatch/internal/render"
)

const appTitle = "Traffic Simulation Monitor"

var (
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

// Controller is the process control the UI drives.
type Controller interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Restart(ctx context.Context) error
	Running() bool
	Status() string
	Usage() (process.Usage, bool)
}

// Options configures the monitor UI.
type Options struct {
	Engine     *monitor.Engine
	Controller Controller
	// Label prefixes panel titles, e.g. "Road".
	Label    string
	Interval time.Duration
	Logger   *slog.Logger
	// AutoStart spawns the simulation when the program starts.
	AutoStart bool
}

type tickMsg time.Time

// Model implements the Bubble Tea monitor UI.
type Model struct {
	engine     *monitor.Engine
	controller Controller
	label      string
	interval   time.Duration
	logger     *slog.Logger
	autoStart  bool

	keys     keyMap
	help     help.Model
	viewport viewport.Model

	layout   *render.Layout
	baseline int
	rows     int

	width  int
	height int
}

// NewModel constructs a monitor UI model.
func NewModel(opts Options) *Model {
	m := &Model{
		engine:     opts.Engine,
		controller: opts.Controller,
		label:      opts.Label,
		interval:   opts.Interval,
		logger:     opts.Logger,
		autoStart:  opts.AutoStart,
		keys:       defaultKeyMap(),
		help:       help.New(),
		viewport:   viewport.New(0, 0),
	}
	if m.interval <= 0 {
		m.interval = monitor.DefaultInterval
	}
	if m.logger == nil {
		m.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if m.label == "" {
		m.label = "Road"
	}
	m.refreshContent()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	if m.autoStart {
		m.start(false)
	}
	return tick(m.interval)
}

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		return m, nil
	case tickMsg:
		m.applyFrame(m.engine.Tick())
		return m, tick(m.interval)
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.stop()
			return m, tea.Quit
		case key.Matches(msg, m.keys.Start):
			m.start(false)
			return m, nil
		case key.Matches(msg, m.keys.Stop):
			m.stop()
			return m, nil
		case key.Matches(msg, m.keys.Restart):
			m.start(true)
			return m, nil
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			m.updateLayout()
			return m, nil
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.viewport.View(), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

// start resets the panels before (re)spawning so a new run never shows
// values from the previous log. Starting a running simulation keeps them.
func (m *Model) start(restart bool) {
	if m.controller == nil {
		return
	}
	if !restart && m.controller.Running() {
		m.logger.Debug("start ignored, simulation running")
		return
	}
	m.engine.Reset()
	m.layout = nil
	m.baseline, m.rows = 0, 0
	ctx := context.Background()
	var err error
	if restart {
		err = m.controller.Restart(ctx)
	} else {
		err = m.controller.Start(ctx)
	}
	if err != nil {
		m.logger.Error("start failed", "restart", restart, "err", err)
	}
	m.refreshContent()
}

func (m *Model) stop() {
	if m.controller == nil {
		return
	}
	if err := m.controller.Stop(context.Background()); err != nil {
		m.logger.Error("stop failed", "err", err)
	}
}

func (m *Model) applyFrame(frame monitor.Frame) {
	switch frame.Outcome {
	case monitor.OutcomeRebuilt:
		m.layout = render.NewLayout(m.label, frame.Groups)
		m.logger.Debug("layout rebuilt", "groups", frame.Groups)
	case monitor.OutcomeRefreshed:
		if m.layout == nil {
			m.layout = render.NewLayout(m.label, frame.Groups)
		}
		m.layout.Apply(frame.Records)
		m.baseline = frame.Baseline
		m.rows = frame.Rows
	case monitor.OutcomeBusy:
		m.logger.Debug("tick dropped")
		return
	}
	if frame.Exited {
		m.logger.Info("simulation exited")
	}
	m.refreshContent()
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	headerHeight = 2
	footerHeight = lipgloss.Height(m.renderFooter())
	if footerHeight < 1 {
		footerHeight = 1
	}
	bodyHeight = m.height - headerHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	m.help.Width = m.width
	_, bodyHeight, _ := m.layoutHeights()
	m.viewport.Width = m.width
	m.viewport.Height = bodyHeight
	m.refreshContent()
}

func (m *Model) refreshContent() {
	m.viewport.SetContent(m.renderPanels())
}

func (m *Model) renderPanels() string {
	if m.layout == nil || len(m.layout.Groups()) == 0 {
		return statusStyle.Render("No data yet. Press s to start the simulation.")
	}
	width := m.width
	if width <= 0 {
		width = 80
	}
	return m.layout.View(width)
}

func (m *Model) renderHeader() string {
	title := titleStyle.Render(truncateLine(appTitle, m.width))
	return title + "\n" + m.renderStatus()
}

func (m *Model) renderStatus() string {
	if m.controller == nil {
		return statusStyle.Render("Status: Idle")
	}
	status := m.controller.Status()
	if strings.HasPrefix(status, "ERROR") {
		return errorStyle.Render(truncateLine(status, m.width))
	}
	segments := []string{status}
	if u, ok := m.controller.Usage(); ok {
		segments = append(segments, u.String())
	}
	if m.layout != nil && m.rows > 0 {
		segments = append(segments, fmt.Sprintf("Rows %d · Baseline %d s", m.rows, m.baseline))
	}
	return statusStyle.Render(truncateLine(strings.Join(segments, "  "), m.width))
}

func (m *Model) renderFooter() string {
	return footerStyle.Render(m.help.View(m.keys))
}
