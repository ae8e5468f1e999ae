package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/randomizedcoder/go-dotnet-harness/internal/executor"
)

// DefaultTickInterval is used when Config.TickInterval is zero.
const DefaultTickInterval = 500 * time.Millisecond

// outputLines is how many runner stderr lines the dashboard shows.
const outputLines = 8

// =============================================================================
// Messages
// =============================================================================

// TickMsg is sent periodically to poll the runner and update the display.
type TickMsg time.Time

// =============================================================================
// Model
// =============================================================================

// Source is the runner the dashboard polls. *executor.Executor implements it.
type Source interface {
	Check() (executor.Outcome, error)
	State() executor.State
	Uptime() time.Duration
	RecentOutput(n int) []string
}

// Config holds TUI configuration.
type Config struct {
	Runner       string
	Script       string
	ReportPath   string
	Command      string
	MetricsAddr  string
	Hold         time.Duration // expected run length, 0 if unknown
	Timeout      time.Duration // 0 = none
	TickInterval time.Duration
	Source       Source
}

// Model represents the TUI state. It is also the host polling loop: every
// tick calls Source.Check and the program quits once the runner is done.
type Model struct {
	cfg       Config
	interval  time.Duration
	startTime time.Time
	now       time.Time

	// Latest poll
	state   executor.State
	outcome executor.Outcome
	err     error
	uptime  time.Duration
	output  []string

	// Display options
	width  int
	height int

	// How the program ended
	timedOut    bool
	interrupted bool
	quitting    bool
}

// New creates a new TUI model.
func New(cfg Config) Model {
	interval := cfg.TickInterval
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	now := time.Now()
	return Model{
		cfg:       cfg,
		interval:  interval,
		startTime: now,
		now:       now,
		width:     80,
		height:    24,
	}
}

// =============================================================================
// Bubble Tea Interface
// =============================================================================

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tickCmd(m.interval)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.interrupted = true
			m.quitting = true
			return m, tea.Quit
		case "r":
			// Force refresh
			return m.poll(time.Now())
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case TickMsg:
		var cmd tea.Cmd
		m, cmd = m.poll(time.Time(msg))
		if cmd != nil {
			return m, cmd
		}
		return m, tickCmd(m.interval)
	}

	return m, nil
}

// poll checks the runner once. It returns tea.Quit when the run is over.
func (m Model) poll(now time.Time) (Model, tea.Cmd) {
	m.now = now
	if m.cfg.Source == nil {
		return m, nil
	}

	m.outcome, m.err = m.cfg.Source.Check()
	m.state = m.cfg.Source.State()
	m.uptime = m.cfg.Source.Uptime()
	m.output = m.cfg.Source.RecentOutput(outputLines)

	if m.outcome.Done() {
		m.quitting = true
		return m, tea.Quit
	}
	if m.cfg.Timeout > 0 && m.Elapsed() >= m.cfg.Timeout {
		m.timedOut = true
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	return m.renderSummaryView()
}

// =============================================================================
// Commands
// =============================================================================

// tickCmd returns a command that sends a tick after interval.
func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// =============================================================================
// Accessors
// =============================================================================

// Elapsed returns the time since the dashboard started.
func (m Model) Elapsed() time.Duration {
	return m.now.Sub(m.startTime)
}

// Outcome returns the last polled outcome and error.
func (m Model) Outcome() (executor.Outcome, error) {
	return m.outcome, m.err
}

// TimedOut reports whether the dashboard quit because of Config.Timeout.
func (m Model) TimedOut() bool {
	return m.timedOut
}

// Interrupted reports whether the user quit before the runner finished.
func (m Model) Interrupted() bool {
	return m.interrupted
}

// HoldProgress returns uptime relative to the expected run length
// (0.0 to 1.0), or 0 when the length is unknown.
func (m Model) HoldProgress() float64 {
	if m.cfg.Hold <= 0 {
		return 0
	}
	p := float64(m.uptime) / float64(m.cfg.Hold)
	if p > 1 {
		p = 1
	}
	return p
}

// =============================================================================
// Formatting Helpers (used by view.go)
// =============================================================================

// formatDuration formats a duration as HH:MM:SS.
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// truncate shortens s to width runes, marking the cut with "…".
func truncate(s string, width int) string {
	r := []rune(s)
	if width <= 1 || len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}
