// Package executor drives one external test runner through its lifecycle:
// Prepare, Startup, repeated Check, Shutdown and PostProcess.
//
// The executor is generic. Everything that differs between runner kinds
// lives in the profile.Profile it is given, and every external concern
// (script lookup, load profile, report paths, tool resolution, process
// environment, process supervision) is an injected collaborator.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/randomizedcoder/go-dotnet-harness/internal/process"
	"github.com/randomizedcoder/go-dotnet-harness/internal/profile"
	"github.com/randomizedcoder/go-dotnet-harness/internal/report"
)

var (
	// ErrConfiguration marks fatal, non-retryable setup problems: an
	// unresolvable script, an invalid load profile, or a missing tool that
	// cannot be installed.
	ErrConfiguration = errors.New("configuration error")

	// ErrProcessFailed is returned by Check when the runner exited non-zero.
	ErrProcessFailed = errors.New("runner process failed")

	// ErrInvalidState is returned when an operation is called out of order.
	ErrInvalidState = errors.New("invalid executor state")
)

// stderrTail is how many stderr lines a failure error carries.
const stderrTail = 5

// Config holds configuration for creating an Executor.
type Config struct {
	Profile profile.Profile

	// Platform defaults to profile.CurrentPlatform().
	Platform profile.Platform

	Script  ScriptResolver
	Load    LoadProvider    // optional, defaults to an empty load profile
	Reports ReportAllocator // optional, defaults to ArtifactsDir in os.TempDir()

	// Tool is required only when the profile needs a tool on Platform.
	Tool ToolInstaller

	Env           Environment       // optional, defaults to os.Environ()
	NewSupervisor SupervisorFactory // optional, defaults to NewProcessSupervisor
	Recorder      Recorder          // optional

	Logger      *slog.Logger
	StopTimeout time.Duration
	Verbose     bool
}

// Executor runs a single runner process. It is safe for concurrent use,
// but is meant to be driven by one host polling loop.
type Executor struct {
	cfg      Config
	logger   *slog.Logger
	platform profile.Platform

	mu          sync.Mutex
	state       State
	scriptPath  string
	artifacts   Artifacts
	toolPath    string
	toolVersion string
	useTool     bool
	load        process.LoadProfile
	args        []string
	supervisor  Supervisor
	exitCode    int
	exited      bool

	// stopDone is set by the first Shutdown and closed once it completes.
	stopDone chan struct{}
}

// New creates an Executor in StateInit.
func New(cfg Config) *Executor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	platform := cfg.Platform
	if platform == "" {
		platform = profile.CurrentPlatform()
	}
	if cfg.Load == nil {
		cfg.Load = StaticLoad{}
	}
	if cfg.Reports == nil {
		cfg.Reports = ArtifactsDir{}
	}
	if cfg.Env == nil {
		cfg.Env = process.NewEnv(os.Environ())
	}
	if cfg.NewSupervisor == nil {
		cfg.NewSupervisor = NewProcessSupervisor
	}

	e := &Executor{
		cfg:      cfg,
		logger:   logger.With("runner", cfg.Profile.String()),
		platform: platform,
		exitCode: -1,
	}
	if cfg.Recorder != nil {
		cfg.Recorder.RecordTransition("", StateInit.String())
	}
	return e
}

// Prepare resolves the script, ensures the tool where the profile needs it,
// and allocates the report path. Failures are ErrConfiguration and move the
// executor to StateFailed.
func (e *Executor) Prepare(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateInit {
		return e.invalid("prepare")
	}

	script, err := e.cfg.Script.ResolveScript()
	if err != nil {
		return e.fail(fmt.Errorf("%w: %w", ErrConfiguration, err))
	}

	load := e.cfg.Load.Load()
	if err := load.Validate(); err != nil {
		return e.fail(fmt.Errorf("%w: load profile: %w", ErrConfiguration, err))
	}

	if e.cfg.Profile.NeedsTool(e.platform) {
		if err := e.ensureTool(ctx); err != nil {
			return e.fail(err)
		}
	} else {
		e.logger.Debug("tool_check_skipped", "platform", string(e.platform))
	}

	artifacts, err := e.cfg.Reports.Allocate(e.cfg.Profile.Kind)
	if err != nil {
		return e.fail(fmt.Errorf("%w: %w", ErrConfiguration, err))
	}

	e.scriptPath = script
	e.load = load
	e.artifacts = artifacts
	e.transition(StatePrepared)

	e.logger.Info("executor_prepared",
		"script", script,
		"report", artifacts.Report,
		"tool", e.toolPath,
		"tool_version", e.toolVersion,
	)
	return nil
}

// ensureTool checks the tool, installing it when the check fails.
// Caller holds e.mu.
func (e *Executor) ensureTool(ctx context.Context) error {
	t := e.cfg.Tool
	if t == nil {
		return fmt.Errorf("%w: runner %s needs a tool on %s but none is configured",
			ErrConfiguration, e.cfg.Profile, e.platform)
	}

	if err := t.Ensure(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	e.toolPath = t.ToolPath()
	e.toolVersion = t.Version()
	e.useTool = true
	return nil
}

// Startup builds the argument vector, injects the profile environment and
// starts the runner. A launch failure wraps process.ErrLaunch and moves the
// executor to StateFailed.
func (e *Executor) Startup(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StatePrepared || e.stopDone != nil {
		return e.invalid("startup")
	}
	if err := ctx.Err(); err != nil {
		return e.fail(err)
	}

	e.args = process.BuildArgs(process.CommandSpec{
		ToolPath:         e.toolPath,
		UseTool:          e.useTool,
		RunnerExecutable: e.cfg.Profile.Executable,
		ScriptPath:       e.scriptPath,
		ReportFile:       e.artifacts.Report,
		Load:             e.load,
	})

	if extra := e.cfg.Profile.ExtraEnv(e.platform); len(extra) > 0 {
		e.cfg.Env.Add(extra)
		for k, v := range extra {
			e.logger.Debug("env_injected", "name", k, "value", v)
		}
	}

	e.supervisor = e.cfg.NewSupervisor(process.SupervisorConfig{
		Name:        e.cfg.Profile.String(),
		Logger:      e.logger,
		StdoutPath:  e.artifacts.Stdout,
		StderrPath:  e.artifacts.Stderr,
		Verbose:     e.cfg.Verbose,
		StopTimeout: e.cfg.StopTimeout,
		Callbacks:   e.callbacks(),
	})

	e.logger.Debug("runner_command", "command", process.CommandString(e.args))

	if err := e.supervisor.Start(e.args, e.cfg.Env.Environ()); err != nil {
		return e.fail(err)
	}

	e.transition(StateRunning)
	return nil
}

func (e *Executor) callbacks() process.Callbacks {
	r := e.cfg.Recorder
	if r == nil {
		return process.Callbacks{}
	}
	return process.Callbacks{
		OnStart: func(int) { r.ProcessStarted() },
		OnExit:  r.RecordExit,
	}
}

// Check reports whether the runner is still running. It never blocks.
// A non-zero exit yields OutcomeFailed with an error wrapping
// ErrProcessFailed that carries the exit code and the tail of stderr.
func (e *Executor) Check() (Outcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch {
	case e.state == StateRunning:
		st := e.supervisor.Poll()
		if st.Running {
			return OutcomeRunning, nil
		}
		e.recordExit(st)
	case e.exited:
		// Stopped, processed, or a later parse failure: report the exit.
	default:
		return OutcomeFailed, e.invalid("check")
	}

	if e.exitCode == 0 {
		return OutcomeSucceeded, nil
	}
	return OutcomeFailed, e.processError()
}

// recordExit stores the exit code once. Caller holds e.mu.
func (e *Executor) recordExit(st process.Status) {
	if e.exited || !st.Started || st.Running {
		return
	}
	e.exited = true
	e.exitCode = st.ExitCode
}

func (e *Executor) processError() error {
	err := fmt.Errorf("%w: exit code %d", ErrProcessFailed, e.exitCode)
	if e.supervisor == nil {
		return err
	}
	if tail := e.supervisor.RecentStderr(stderrTail); len(tail) > 0 {
		err = fmt.Errorf("%w: %s", err, strings.Join(tail, "; "))
	}
	return err
}

// Shutdown stops the runner if it is still alive. It may be called in any
// state, any number of times, and never fails. The executor lock is not held
// while waiting for the runner to exit, so Check and the accessors answer
// during a slow stop. Concurrent callers return once the first completes.
func (e *Executor) Shutdown() {
	e.mu.Lock()
	if done := e.stopDone; done != nil {
		e.mu.Unlock()
		<-done
		return
	}
	switch e.state {
	case StateStopped, StateProcessed:
		e.mu.Unlock()
		return
	}
	done := make(chan struct{})
	e.stopDone = done
	sup := e.supervisor
	e.mu.Unlock()
	defer close(done)

	if sup != nil {
		sup.Stop()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if sup != nil {
		e.recordExit(sup.Poll())
	}
	if e.state == StateFailed {
		return
	}
	e.transition(StateStopped)
	e.logger.Info("executor_shutdown", "exit_code", e.exitCode)
}

// PostProcess parses the report written by the runner. It requires a prior
// Shutdown of a started runner. A parse failure wraps report.ErrParse and
// moves the executor to StateFailed; ExitCode still reports the process
// result.
func (e *Executor) PostProcess() ([]report.Sample, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateStopped {
		return nil, e.invalid("post_process")
	}
	if e.supervisor == nil {
		return nil, fmt.Errorf("%w: post_process: runner was never started", ErrInvalidState)
	}
	if st := e.supervisor.Poll(); st.Running {
		return nil, fmt.Errorf("%w: post_process: runner still running", ErrInvalidState)
	}

	samples, err := report.ParseFile(e.artifacts.Report)
	if err != nil {
		if e.cfg.Recorder != nil {
			e.cfg.Recorder.RecordParseFailure()
		}
		e.logger.Error("report_parse_failed", "report", e.artifacts.Report, "error", err)
		e.transition(StateFailed)
		return nil, err
	}

	if e.cfg.Recorder != nil {
		e.cfg.Recorder.RecordSamples(samples)
	}
	e.transition(StateProcessed)
	e.logger.Info("report_processed", "report", e.artifacts.Report, "samples", len(samples))
	return samples, nil
}

// State returns the current lifecycle state.
func (e *Executor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Args returns a copy of the runner argument vector, or nil before Startup.
func (e *Executor) Args() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.args == nil {
		return nil
	}
	return append([]string(nil), e.args...)
}

// ReportPath returns the allocated report file, or "" before Prepare.
func (e *Executor) ReportPath() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.artifacts.Report
}

// Artifacts returns all allocated artifact paths.
func (e *Executor) Artifacts() Artifacts {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.artifacts
}

// ExitCode returns the runner exit code, or -1 if it has not exited.
func (e *Executor) ExitCode() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.exitCode
}

// Uptime returns how long the runner has been (or was) running.
func (e *Executor) Uptime() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.supervisor == nil {
		return 0
	}
	return e.supervisor.Poll().Uptime
}

// RecentOutput returns up to n of the runner's most recent stderr lines.
func (e *Executor) RecentOutput(n int) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.supervisor == nil {
		return nil
	}
	return e.supervisor.RecentStderr(n)
}

// OutputErrors counts known runner failure signatures seen on stdout and
// stderr, keyed by signature. It is nil before Startup.
func (e *Executor) OutputErrors() map[string]int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.supervisor == nil {
		return nil
	}
	return e.supervisor.OutputErrors()
}

// Profile returns the runner profile.
func (e *Executor) Profile() profile.Profile {
	return e.cfg.Profile
}

// transition moves to next. Caller holds e.mu.
func (e *Executor) transition(next State) {
	prev := e.state
	e.state = next
	e.logger.Debug("executor_state_change", "from", prev.String(), "to", next.String())
	if e.cfg.Recorder != nil {
		e.cfg.Recorder.RecordTransition(prev.String(), next.String())
	}
}

// fail moves to StateFailed and returns err. Caller holds e.mu.
func (e *Executor) fail(err error) error {
	e.logger.Error("executor_failed", "state", e.state.String(), "error", err)
	e.transition(StateFailed)
	return err
}

func (e *Executor) invalid(op string) error {
	return fmt.Errorf("%w: %s called in state %s", ErrInvalidState, op, e.state)
}
