package executor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/randomizedcoder/go-dotnet-harness/internal/process"
	"github.com/randomizedcoder/go-dotnet-harness/internal/profile"
	"github.com/randomizedcoder/go-dotnet-harness/internal/report"
)

// ScriptResolver resolves the test assembly the runner should execute.
type ScriptResolver interface {
	ResolveScript() (string, error)
}

// LoadProvider supplies the load profile translated into runner flags.
type LoadProvider interface {
	Load() process.LoadProfile
}

// Artifacts are the per-run files written by the runner and the harness.
type Artifacts struct {
	Report string
	Stdout string
	Stderr string
}

// ReportAllocator hands out artifact paths that no other executor uses.
type ReportAllocator interface {
	Allocate(kind profile.Kind) (Artifacts, error)
}

// ToolInstaller verifies, and where possible installs, the host tool.
// Ensure checks the tool and installs it when the check fails.
// *tool.Resolver implements it.
type ToolInstaller interface {
	ToolPath() string
	Ensure(ctx context.Context) error
	Version() string
}

// Environment is the child process environment. Variables are only added.
// *process.Env implements it.
type Environment interface {
	Add(vars map[string]string)
	Environ() []string
}

// Supervisor owns the runner process. *process.Supervisor implements it.
type Supervisor interface {
	Start(argv []string, env []string) error
	Poll() process.Status
	Stop()
	RecentStderr(n int) []string
	OutputErrors() map[string]int
}

// SupervisorFactory creates the supervisor for one run.
type SupervisorFactory func(cfg process.SupervisorConfig) Supervisor

// NewProcessSupervisor is the default SupervisorFactory.
func NewProcessSupervisor(cfg process.SupervisorConfig) Supervisor {
	return process.NewSupervisor(cfg)
}

// Recorder receives lifecycle events (implemented by metrics.Collector).
type Recorder interface {
	RecordTransition(from, to string)
	ProcessStarted()
	RecordExit(exitCode int, uptime time.Duration)
	RecordSamples(samples []report.Sample)
	RecordParseFailure()
}

// FileScript resolves a script given as a file path.
type FileScript struct {
	Path string
}

// ResolveScript returns the absolute path of an existing regular file.
func (f FileScript) ResolveScript() (string, error) {
	if f.Path == "" {
		return "", errors.New("no script given")
	}
	abs, err := filepath.Abs(f.Path)
	if err != nil {
		return "", fmt.Errorf("resolve script %q: %w", f.Path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("resolve script: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("script %q is a directory", abs)
	}
	return abs, nil
}

// StaticLoad provides a fixed load profile.
type StaticLoad struct {
	Profile process.LoadProfile
}

// Load returns the configured profile.
func (s StaticLoad) Load() process.LoadProfile {
	return s.Profile
}

// ArtifactsDir allocates UUID-named artifacts inside Dir.
type ArtifactsDir struct {
	Dir string
}

// Allocate creates Dir if needed and returns fresh artifact paths.
func (a ArtifactsDir) Allocate(kind profile.Kind) (Artifacts, error) {
	dir := a.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Artifacts{}, fmt.Errorf("create artifacts dir: %w", err)
	}

	base := filepath.Join(dir, fmt.Sprintf("%s-%s", kind, uuid.NewString()))
	return Artifacts{
		Report: base + ".ldjson",
		Stdout: base + ".stdout.log",
		Stderr: base + ".stderr.log",
	}, nil
}
