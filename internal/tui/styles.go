// Package tui provides a live terminal dashboard for a harness run.
//
// The dashboard is a Bubble Tea program styled with Lipgloss. It shows the
// executor lifecycle state, elapsed time against the expected hold, and the
// tail of the runner's stderr.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/randomizedcoder/go-dotnet-harness/internal/executor"
)

// =============================================================================
// Palette
// =============================================================================

var (
	colorAccent = lipgloss.Color("#512BD4") // .NET violet
	colorTitle  = lipgloss.Color("#22D3EE")

	colorPass = lipgloss.Color("#22C55E")
	colorWait = lipgloss.Color("#EAB308")
	colorFail = lipgloss.Color("#DC2626")
	colorRun  = lipgloss.Color("#60A5FA")

	colorFg    = lipgloss.Color("#F3F4F6")
	colorMuted = lipgloss.Color("#A1A1AA")
	colorFaint = lipgloss.Color("#71717A")
	colorRule  = lipgloss.Color("#3F3F46")
)

func bold(c lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(c).Bold(true)
}

// =============================================================================
// Styles
// =============================================================================

var (
	passStyle = bold(colorPass)
	waitStyle = bold(colorWait)
	failStyle = bold(colorFail)
	runStyle  = bold(colorRun)

	panelStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorRule).Padding(0, 1)
	panelTitleStyle = bold(colorTitle).BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).BorderForeground(colorRule)
	titleBarStyle   = bold(colorFg).Background(colorAccent).Padding(0, 1).MarginBottom(1)

	hintStyle   = lipgloss.NewStyle().Foreground(colorMuted).MarginTop(1)
	stderrStyle = lipgloss.NewStyle().Foreground(colorFaint)

	keyStyle   = lipgloss.NewStyle().Foreground(colorMuted).Width(14)
	valueStyle = bold(colorFg)

	barFullStyle  = lipgloss.NewStyle().Foreground(colorAccent)
	barEmptyStyle = lipgloss.NewStyle().Foreground(colorRule)
	barPctStyle   = bold(colorFg)
)

// stateStyles maps lifecycle states to their indicator style. States not
// listed render as waiting.
var stateStyles = map[executor.State]lipgloss.Style{
	executor.StateRunning:   runStyle,
	executor.StateStopped:   passStyle,
	executor.StateProcessed: passStyle,
	executor.StateFailed:    failStyle,
}

// StateStyle returns the indicator style for an executor state.
func StateStyle(state executor.State) lipgloss.Style {
	if s, ok := stateStyles[state]; ok {
		return s
	}
	return waitStyle
}

// OutcomeLabel renders a check outcome as a colored bullet.
func OutcomeLabel(outcome executor.Outcome) string {
	switch outcome {
	case executor.OutcomeSucceeded:
		return passStyle.Render("● " + outcome.String())
	case executor.OutcomeFailed:
		return failStyle.Render("● " + outcome.String())
	default:
		return runStyle.Render("● " + outcome.String())
	}
}

// KeyValue renders one "key: value" row of a panel.
func KeyValue(key, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Left, keyStyle.Render(key+":"), valueStyle.Render(value))
}

// ProgressBar renders fraction (0..1, clamped for the bar only) as a bar of
// width cells followed by the unclamped percentage.
func ProgressBar(fraction float64, width int) string {
	width = max(width, 10)
	filled := min(max(int(fraction*float64(width)), 0), width)

	var b strings.Builder
	b.WriteString(barFullStyle.Render(strings.Repeat("█", filled)))
	b.WriteString(barEmptyStyle.Render(strings.Repeat("░", width-filled)))
	b.WriteString(barPctStyle.Render(fmt.Sprintf(" %3.0f%%", fraction*100)))
	return b.String()
}
