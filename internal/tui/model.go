package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vidstats/go-stats-index/internal/stats"
)

// TickMsg is sent periodically to refresh the display.
type TickMsg time.Time

// QuitMsg signals the dashboard should exit (sent when the run finishes and
// no interactive session is wanted).
type QuitMsg struct{}

// SnapshotSource provides run snapshots; *stats.Aggregator implements it.
type SnapshotSource interface {
	Snapshot() stats.Snapshot
}

// Config holds dashboard configuration.
type Config struct {
	Source       SnapshotSource
	MetricsAddr  string
	TickInterval time.Duration
}

// Model is the dashboard state.
type Model struct {
	source       SnapshotSource
	metricsAddr  string
	tickInterval time.Duration

	snap       stats.Snapshot
	lastUpdate time.Time

	bar progress.Model

	width    int
	height   int
	quitting bool
}

// New creates a dashboard model.
func New(cfg Config) Model {
	tick := cfg.TickInterval
	if tick <= 0 {
		tick = 500 * time.Millisecond
	}

	bar := progress.New(
		progress.WithGradient("#7C3AED", "#06B6D4"),
		progress.WithoutPercentage(),
	)

	return Model{
		source:       cfg.Source,
		metricsAddr:  cfg.MetricsAddr,
		tickInterval: tick,
		bar:          bar,
		lastUpdate:   time.Now(),
		width:        80,
		height:       24,
	}
}

// Init starts the refresh ticker.
func (m Model) Init() tea.Cmd {
	return m.tickCmd()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "r":
			// Force refresh
			return m, m.tickCmd()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = m.width - 20
		if m.bar.Width > 60 {
			m.bar.Width = 60
		}
		return m, nil

	case TickMsg:
		if m.source != nil {
			m.snap = m.source.Snapshot()
		}
		m.lastUpdate = time.Now()
		return m, m.tickCmd()

	case QuitMsg:
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	return m.render()
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.tickInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// SendQuit asks a running dashboard program to exit.
func SendQuit(p *tea.Program) {
	if p != nil {
		p.Send(QuitMsg{})
	}
}

// formatDuration formats a duration as HH:MM:SS.
func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	mm := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, mm, s)
}

// formatNumber formats a number with K/M suffixes.
func formatNumber(n int64) string {
	if n >= 1_000_000 {
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	}
	if n >= 1_000 {
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	}
	return fmt.Sprintf("%d", n)
}

// formatBytes formats bytes with KB/MB/GB suffixes.
func formatBytes(n int64) string {
	if n >= 1_000_000_000 {
		return fmt.Sprintf("%.2f GB", float64(n)/1_000_000_000)
	}
	if n >= 1_000_000 {
		return fmt.Sprintf("%.2f MB", float64(n)/1_000_000)
	}
	if n >= 1_000 {
		return fmt.Sprintf("%.2f KB", float64(n)/1_000)
	}
	return fmt.Sprintf("%d B", n)
}

// formatRate formats a bytes/sec rate.
func formatRate(rate float64) string {
	if rate >= 1_000_000 {
		return fmt.Sprintf("%.1f MB/s", rate/1_000_000)
	}
	if rate >= 1_000 {
		return fmt.Sprintf("%.1f KB/s", rate/1_000)
	}
	return fmt.Sprintf("%.0f B/s", rate)
}
