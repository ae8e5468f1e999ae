package orchestrator

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/randomizedcoder/go-dotnet-harness/internal/process"
	"github.com/randomizedcoder/go-dotnet-harness/internal/tui"
)

// runDashboard runs the TUI as the polling loop. The model checks the
// executor on every tick and quits once the runner is done.
func (o *Orchestrator) runDashboard(ctx context.Context) error {
	model := tui.New(tui.Config{
		Runner:       o.profile.String(),
		Script:       o.config.Script,
		ReportPath:   o.executor.ReportPath(),
		Command:      process.CommandString(o.executor.Args()),
		MetricsAddr:  o.config.MetricsAddr,
		Hold:         o.config.Load.Hold,
		Timeout:      o.config.Timeout,
		TickInterval: o.config.CheckInterval,
		Source:       o.executor,
	})

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := program.Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) || ctx.Err() != nil {
			return ErrInterrupted
		}
		return fmt.Errorf("dashboard: %w", err)
	}

	m, ok := final.(tui.Model)
	if !ok {
		return fmt.Errorf("dashboard: unexpected model %T", final)
	}

	switch {
	case m.TimedOut():
		o.logger.Warn("run_timeout", "timeout", o.config.Timeout.String())
		return fmt.Errorf("%w after %s", ErrTimeout, o.config.Timeout)
	case m.Interrupted():
		o.logger.Info("run_interrupted", "cause", "dashboard quit")
		return ErrInterrupted
	}

	outcome, checkErr := m.Outcome()
	o.logger.Info("runner_finished", "outcome", outcome.String(), "exit_code", o.executor.ExitCode())
	return checkErr
}
