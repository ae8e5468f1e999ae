package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// Main View Rendering
// =============================================================================

// renderSummaryView renders the dashboard.
func (m Model) renderSummaryView() string {
	sections := []string{
		m.renderHeader(),
		m.renderRun(),
	}
	if m.cfg.Hold > 0 {
		sections = append(sections, m.renderProgress())
	}
	if len(m.output) > 0 {
		sections = append(sections, m.renderOutput())
	}
	sections = append(sections, m.renderFooter())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// =============================================================================
// Header
// =============================================================================

func (m Model) renderHeader() string {
	header := fmt.Sprintf(
		" dotnet-harness | %s | %s | Elapsed: %s ",
		m.cfg.Runner,
		StateStyle(m.state).Render(m.state.String()),
		formatDuration(m.Elapsed()),
	)
	return titleBarStyle.Width(m.width).Render(header)
}

// =============================================================================
// Run Details
// =============================================================================

func (m Model) renderRun() string {
	valueWidth := m.width - 22

	lines := []string{
		panelTitleStyle.Render("Runner"),
		KeyValue("Status", OutcomeLabel(m.outcome)),
		KeyValue("Uptime", formatDuration(m.uptime)),
		KeyValue("Script", truncate(m.cfg.Script, valueWidth)),
		KeyValue("Report", truncate(m.cfg.ReportPath, valueWidth)),
	}
	if m.cfg.Command != "" {
		lines = append(lines, KeyValue("Command", truncate(m.cfg.Command, valueWidth)))
	}
	if m.cfg.Timeout > 0 {
		lines = append(lines, KeyValue("Timeout", m.cfg.Timeout.String()))
	}
	if m.err != nil {
		lines = append(lines, failStyle.Render(truncate(m.err.Error(), m.width-6)))
	}

	return panelStyle.Width(m.width - 2).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// =============================================================================
// Progress Section
// =============================================================================

func (m Model) renderProgress() string {
	barWidth := m.width - 30
	if barWidth < 20 {
		barWidth = 20
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		panelTitleStyle.Render("Hold Progress"),
		ProgressBar(m.HoldProgress(), barWidth),
	)
	return panelStyle.Width(m.width - 2).Render(content)
}

// =============================================================================
// Runner Output
// =============================================================================

func (m Model) renderOutput() string {
	lines := []string{panelTitleStyle.Render("Recent stderr")}
	for _, line := range m.output {
		lines = append(lines, stderrStyle.Render(truncate(line, m.width-6)))
	}
	return panelStyle.Width(m.width - 2).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// =============================================================================
// Footer
// =============================================================================

func (m Model) renderFooter() string {
	footer := "q: quit (stops the runner) | r: refresh"
	if m.cfg.MetricsAddr != "" {
		footer += " | metrics: http://" + m.cfg.MetricsAddr + "/metrics"
	}
	return hintStyle.Render(footer)
}
