package tui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/randomizedcoder/go-dotnet-harness/internal/executor"
)

func TestStateStyle(t *testing.T) {
	tests := []struct {
		state executor.State
		want  string
	}{
		{executor.StateRunning, runStyle.Render("x")},
		{executor.StateStopped, passStyle.Render("x")},
		{executor.StateProcessed, passStyle.Render("x")},
		{executor.StateFailed, failStyle.Render("x")},
		{executor.StateInit, waitStyle.Render("x")},
		{executor.StatePrepared, waitStyle.Render("x")},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, StateStyle(tt.state).Render("x"))
		})
	}
}

func TestOutcomeLabel(t *testing.T) {
	assert.Contains(t, OutcomeLabel(executor.OutcomeSucceeded), "succeeded")
	assert.Contains(t, OutcomeLabel(executor.OutcomeFailed), "failed")
	assert.Contains(t, OutcomeLabel(executor.OutcomeRunning), "running")
}

func TestKeyValue(t *testing.T) {
	out := KeyValue("Script", "Tests.dll")
	assert.Contains(t, out, "Script:")
	assert.Contains(t, out, "Tests.dll")
}

func TestProgressBar(t *testing.T) {
	tests := []struct {
		name     string
		fraction float64
		width    int
		percent  string
	}{
		{"empty", 0, 20, "0%"},
		{"half", 0.5, 20, "50%"},
		{"full", 1, 20, "100%"},
		{"over", 1.5, 20, "150%"},
		{"negative", -0.5, 20, "-50%"},
		{"min_width", 0.5, 2, "50%"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := ProgressBar(tt.fraction, tt.width)
			assert.Contains(t, out, tt.percent)

			cells := strings.Count(out, "█") + strings.Count(out, "░")
			assert.Equal(t, max(tt.width, 10), cells)
		})
	}
}
