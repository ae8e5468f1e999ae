// Package tool locates and validates the external interpreters a runner
// needs before it can be launched (for example the dotnet host).
package tool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
)

// VersionArg is the argument used to probe a tool.
const VersionArg = "--version"

// ErrNotInstallable is returned by Install when the tool is missing and the
// harness has no way of installing it.
var ErrNotInstallable = errors.New("tool is not installable")

// Spec describes a required tool.
type Spec struct {
	// Name is a human-readable name used in logs.
	Name string

	// Path is the executable name or path to invoke.
	Path string

	// Installable reports whether the harness can fetch the tool itself.
	// When false, a missing tool is a fatal configuration problem.
	Installable bool
}

// CommandFunc runs a command to completion and returns its captured output.
// Tests replace it to simulate missing or noisy tools.
type CommandFunc func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)

// InstallFunc installs the tool described by spec.
type InstallFunc func(ctx context.Context, spec Spec) error

// Recorder receives tool check outcomes (implemented by metrics.Collector).
type Recorder interface {
	RecordToolCheck(tool string, installed bool)
}

// Config holds configuration for creating a Resolver.
type Config struct {
	Spec     Spec
	Logger   *slog.Logger
	Command  CommandFunc // optional, defaults to ExecCommand
	Install  InstallFunc // optional, only used when Spec.Installable
	Recorder Recorder    // optional
}

// Resolver checks for a tool and enforces its install policy.
type Resolver struct {
	spec     Spec
	logger   *slog.Logger
	command  CommandFunc
	install  InstallFunc
	recorder Recorder

	mu      sync.Mutex
	version string
}

// NewResolver creates a new Resolver.
func NewResolver(cfg Config) *Resolver {
	command := cfg.Command
	if command == nil {
		command = ExecCommand
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		spec:     cfg.Spec,
		logger:   logger,
		command:  command,
		install:  cfg.Install,
		recorder: cfg.Recorder,
	}
}

// ExecCommand is the default CommandFunc backed by os/exec.
func ExecCommand(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// ToolPath returns the path used to invoke the tool.
func (r *Resolver) ToolPath() string {
	return r.spec.Path
}

// Spec returns the tool specification.
func (r *Resolver) Spec() Spec {
	return r.spec
}

// Version returns the first line of the last successful version probe.
func (r *Resolver) Version() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.version
}

// CheckInstalled probes the tool with VersionArg. It never returns an error:
// any failure to invoke the tool is logged as a warning and reported as false.
// Output on stderr is logged but does not fail the check.
func (r *Resolver) CheckInstalled(ctx context.Context) bool {
	r.logger.Debug("tool_check", "tool", r.spec.Name, "path", r.spec.Path)

	stdout, stderr, err := r.command(ctx, r.spec.Path, VersionArg)
	if err != nil {
		r.logger.Warn("tool_check_failed",
			"tool", r.spec.Name,
			"path", r.spec.Path,
			"error", err,
		)
		r.record(false)
		return false
	}

	r.logger.Debug("tool_check_stdout", "tool", r.spec.Name, "stdout", string(stdout))
	if len(bytes.TrimSpace(stderr)) > 0 {
		r.logger.Warn("tool_check_stderr", "tool", r.spec.Name, "stderr", string(stderr))
	}

	version := firstLine(stdout)
	r.mu.Lock()
	r.version = version
	r.mu.Unlock()

	r.logger.Info("tool_found",
		"tool", r.spec.Name,
		"path", r.spec.Path,
		"version", version,
	)
	r.record(true)
	return true
}

// Install installs the tool. A tool that is not installable, or that has no
// install function configured, yields an error wrapping ErrNotInstallable.
func (r *Resolver) Install(ctx context.Context) error {
	if !r.spec.Installable || r.install == nil {
		return fmt.Errorf("%w: %s not found at %q", ErrNotInstallable, r.spec.Name, r.spec.Path)
	}

	r.logger.Info("tool_installing", "tool", r.spec.Name)
	if err := r.install(ctx, r.spec); err != nil {
		return fmt.Errorf("install %s: %w", r.spec.Name, err)
	}

	if !r.CheckInstalled(ctx) {
		return fmt.Errorf("%s still unavailable at %q after install", r.spec.Name, r.spec.Path)
	}
	return nil
}

// Ensure checks the tool and installs it if the check fails.
func (r *Resolver) Ensure(ctx context.Context) error {
	if r.CheckInstalled(ctx) {
		return nil
	}
	return r.Install(ctx)
}

func (r *Resolver) record(installed bool) {
	if r.recorder != nil {
		r.recorder.RecordToolCheck(r.spec.Name, installed)
	}
}

// firstLine returns the first non-empty line of output, trimmed.
func firstLine(out []byte) string {
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return "unknown"
}
