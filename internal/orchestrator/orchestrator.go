// Package orchestrator runs one harness session: preflight checks, the
// metrics server, the executor lifecycle, the host polling loop and the
// exit summary.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/randomizedcoder/go-dotnet-harness/internal/config"
	"github.com/randomizedcoder/go-dotnet-harness/internal/executor"
	"github.com/randomizedcoder/go-dotnet-harness/internal/metrics"
	"github.com/randomizedcoder/go-dotnet-harness/internal/preflight"
	"github.com/randomizedcoder/go-dotnet-harness/internal/process"
	"github.com/randomizedcoder/go-dotnet-harness/internal/profile"
	"github.com/randomizedcoder/go-dotnet-harness/internal/report"
	"github.com/randomizedcoder/go-dotnet-harness/internal/tool"
)

var (
	// ErrPreflight is returned when a preflight check fails.
	ErrPreflight = errors.New("preflight checks failed (use --skip-preflight to override)")

	// ErrTimeout is returned when the run exceeds --timeout.
	ErrTimeout = errors.New("run timed out")

	// ErrInterrupted is returned when the run is stopped by a signal or
	// by quitting the dashboard.
	ErrInterrupted = errors.New("run interrupted")

	// ErrTestFailures is returned when the report holds FAILED or BROKEN
	// samples.
	ErrTestFailures = errors.New("test failures reported")
)

// Options holds settings that do not come from the command line.
type Options struct {
	Version string

	// Out receives preflight results and the exit summary (default os.Stdout).
	Out io.Writer

	// Color enables ANSI colors in the summary table.
	Color bool

	// Platform defaults to profile.CurrentPlatform().
	Platform profile.Platform
}

// Orchestrator coordinates all components for a harness run.
type Orchestrator struct {
	config *config.Config
	logger *slog.Logger
	opts   Options

	profile       profile.Profile
	platform      profile.Platform
	registry      *prometheus.Registry
	metrics       *metrics.Collector
	metricsServer *metrics.Server // nil when --metrics is not set
	executor      *executor.Executor

	startTime time.Time
	summary   *report.Summary
}

// New creates a new Orchestrator with the given configuration.
func New(cfg *config.Config, logger *slog.Logger, opts Options) (*Orchestrator, error) {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	platform := opts.Platform
	if platform == "" {
		platform = profile.CurrentPlatform()
	}

	prof, err := profile.ForKind(profile.Kind(cfg.Runner), cfg.ResourcesDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", executor.ErrConfiguration, err)
	}

	// Create metrics
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollectorWithRegistry(metrics.CollectorConfig{
		Version: opts.Version,
		Runner:  cfg.Runner,
	}, registry)

	var metricsServer *metrics.Server
	if cfg.MetricsAddr != "" {
		metricsServer = metrics.NewServer(cfg.MetricsAddr, registry, logger)
	}

	// Only hand the executor a tool when this platform needs one, so a
	// native runner never probes for dotnet.
	var installer executor.ToolInstaller
	if prof.NeedsTool(platform) {
		installer = tool.NewResolver(tool.Config{
			Spec:     prof.ToolSpec(cfg.DotnetPath),
			Logger:   logger,
			Recorder: collector,
		})
	}

	exec := executor.New(executor.Config{
		Profile:     prof,
		Platform:    platform,
		Script:      executor.FileScript{Path: cfg.Script},
		Load:        executor.StaticLoad{Profile: cfg.Load},
		Reports:     executor.ArtifactsDir{Dir: cfg.ArtifactsDir},
		Tool:        installer,
		Env:         process.NewEnv(os.Environ()),
		Recorder:    collector,
		Logger:      logger,
		StopTimeout: cfg.StopTimeout,
		Verbose:     cfg.Verbose,
	})

	return &Orchestrator{
		config:        cfg,
		logger:        logger,
		opts:          opts,
		profile:       prof,
		platform:      platform,
		registry:      registry,
		metrics:       collector,
		metricsServer: metricsServer,
		executor:      exec,
	}, nil
}

// Run executes the harness session. It blocks until the runner finishes,
// the timeout elapses, or a signal arrives, and always shuts the runner
// down before returning.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.startTime = time.Now()

	// Run preflight checks
	if !o.config.SkipPreflight {
		result := preflight.RunAll(preflight.Options{
			Concurrency:      o.config.Load.Concurrency,
			RunnerExecutable: o.profile.Executable,
			ScriptPath:       o.config.Script,
			ArtifactsDir:     o.config.ArtifactsDir,
		})
		preflight.PrintResults(o.opts.Out, result)
		if !result.Passed {
			return ErrPreflight
		}
	}

	// Start metrics server
	if o.metricsServer != nil {
		if err := o.metricsServer.Start(); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		defer o.shutdownMetricsServer()
	}

	// Setup signal handling
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	exec := o.executor
	if err := exec.Prepare(ctx); err != nil {
		return err
	}
	if err := exec.Startup(ctx); err != nil {
		exec.Shutdown()
		return err
	}

	o.logger.Info("run_started",
		"runner", o.profile.String(),
		"command", process.CommandString(exec.Args()),
		"report", exec.ReportPath(),
		"timeout", o.config.Timeout.String(),
	)

	var waitErr error
	if o.config.TUIEnabled {
		waitErr = o.runDashboard(ctx)
	} else {
		waitErr = o.pollLoop(ctx)
	}

	exec.Shutdown()

	samples, parseErr := exec.PostProcess()
	if parseErr == nil {
		sum := report.Summarize(samples)
		o.summary = &sum
	}

	o.printExitSummary()
	o.dumpMetrics()

	var failures error
	if o.summary != nil && o.summary.HasFailures() {
		failures = fmt.Errorf("%w: %d of %d samples", ErrTestFailures, o.summary.Failures(), o.summary.Total)
	}
	return errors.Join(waitErr, parseErr, failures)
}

// pollLoop checks the executor every CheckInterval until the runner exits.
func (o *Orchestrator) pollLoop(ctx context.Context) error {
	var deadline <-chan time.Time
	if o.config.Timeout > 0 {
		timer := time.NewTimer(o.config.Timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	ticker := time.NewTicker(o.config.CheckInterval)
	defer ticker.Stop()

	for {
		outcome, err := o.executor.Check()
		if outcome.Done() {
			o.logger.Info("runner_finished", "outcome", outcome.String(), "exit_code", o.executor.ExitCode())
			return err
		}

		select {
		case <-ctx.Done():
			o.logger.Info("run_interrupted", "cause", context.Cause(ctx))
			return ErrInterrupted
		case <-deadline:
			o.logger.Warn("run_timeout", "timeout", o.config.Timeout.String())
			return fmt.Errorf("%w after %s", ErrTimeout, o.config.Timeout)
		case <-ticker.C:
		}
	}
}

func (o *Orchestrator) shutdownMetricsServer() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := o.metricsServer.Shutdown(ctx); err != nil {
		o.logger.Warn("metrics_server_shutdown_error", "error", err)
	}
}

// dumpMetrics writes the final metrics to --metrics-dump, if set.
func (o *Orchestrator) dumpMetrics() {
	if o.config.MetricsDump == "" {
		return
	}
	if err := metrics.DumpFile(o.config.MetricsDump, o.registry); err != nil {
		o.logger.Warn("metrics_dump_failed", "path", o.config.MetricsDump, "error", err)
		return
	}
	o.logger.Info("metrics_dumped", "path", o.config.MetricsDump)
}

// PrintCommand writes the runner command line that would be executed, with
// a placeholder for the report path. Nothing is probed or started.
func (o *Orchestrator) PrintCommand(w io.Writer) {
	spec := process.CommandSpec{
		UseTool:          o.profile.NeedsTool(o.platform),
		ToolPath:         o.profile.ToolSpec(o.config.DotnetPath).Path,
		RunnerExecutable: o.profile.Executable,
		ScriptPath:       o.config.Script,
		ReportFile:       "<report-file>",
		Load:             o.config.Load,
	}

	fmt.Fprintf(w, "# %s command that would be run:\n\n", o.profile)
	fmt.Fprintln(w, process.CommandString(process.BuildArgs(spec)))
	if env := o.profile.ExtraEnv(o.platform); len(env) > 0 {
		fmt.Fprintln(w)
		for k, v := range env {
			fmt.Fprintf(w, "# with %s=%s\n", k, v)
		}
	}
}

// Executor returns the executor for external access.
func (o *Orchestrator) Executor() *executor.Executor {
	return o.executor
}

// Metrics returns the metrics collector for external access.
func (o *Orchestrator) Metrics() *metrics.Collector {
	return o.metrics
}

// Summary returns the parsed report summary, or nil if the report could not
// be parsed.
func (o *Orchestrator) Summary() *report.Summary {
	return o.summary
}
