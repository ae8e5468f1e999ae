package process

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/randomizedcoder/go-dotnet-harness/internal/logging"
)

// ErrLaunch is returned when the runner process cannot be started.
var ErrLaunch = errors.New("process launch failed")

// DefaultStopTimeout is how long Stop waits after SIGTERM before SIGKILL.
const DefaultStopTimeout = 5 * time.Second

// Status is a snapshot of the supervised process.
type Status struct {
	Started  bool
	Running  bool
	PID      int
	ExitCode int // valid once Started && !Running
	Uptime   time.Duration
}

// Callbacks contains optional callback functions for process events.
type Callbacks struct {
	// OnStart is called after the process has been spawned.
	OnStart func(pid int)

	// OnExit is called once the process has exited and its output drained.
	OnExit func(exitCode int, uptime time.Duration)
}

// SupervisorConfig holds configuration for creating a Supervisor.
type SupervisorConfig struct {
	// Name identifies the runner in logs.
	Name   string
	Logger *slog.Logger

	// StdoutPath and StderrPath, if set, receive a copy of the child's
	// output streams.
	StdoutPath string
	StderrPath string

	// Verbose logs every output line instead of only warnings.
	Verbose bool

	// StopTimeout bounds the graceful phase of Stop (default 5s).
	StopTimeout time.Duration

	Callbacks Callbacks
}

// Supervisor owns exactly one runner child process: it starts it, answers
// non-blocking status polls, and terminates it. No other component signals
// the process.
type Supervisor struct {
	name        string
	logger      *slog.Logger
	cfg         SupervisorConfig
	stopTimeout time.Duration

	stdout *logging.OutputHandler
	stderr *logging.OutputHandler

	mu        sync.Mutex
	cmd       *exec.Cmd
	started   bool
	stopped   bool
	startTime time.Time
	exitCode  int
	uptime    time.Duration
	files     []*os.File

	// done is closed by the waiter goroutine once the process has exited.
	done chan struct{}
}

// NewSupervisor creates a Supervisor. Nothing is spawned until Start.
func NewSupervisor(cfg SupervisorConfig) *Supervisor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	stopTimeout := cfg.StopTimeout
	if stopTimeout <= 0 {
		stopTimeout = DefaultStopTimeout
	}
	return &Supervisor{
		name:        cfg.Name,
		logger:      logger,
		cfg:         cfg,
		stopTimeout: stopTimeout,
		stdout:      logging.NewOutputHandler(cfg.Name, "stdout", logger, cfg.Verbose),
		stderr:      logging.NewOutputHandler(cfg.Name, "stderr", logger, cfg.Verbose),
		done:        make(chan struct{}),
	}
}

// Start spawns argv[0] with the remaining arguments. A nil env inherits the
// harness environment. Start may be called at most once.
func (s *Supervisor) Start(argv []string, env []string) error {
	if len(argv) == 0 {
		return fmt.Errorf("%w: empty command line", ErrLaunch)
	}

	pid, err := s.start(argv, env)
	if err != nil {
		return err
	}

	if s.cfg.Callbacks.OnStart != nil {
		s.cfg.Callbacks.OnStart(pid)
	}
	return nil
}

func (s *Supervisor) start(argv []string, env []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return 0, fmt.Errorf("%w: process already started", ErrLaunch)
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Env = env

	stdout, err := s.streamWriter(s.cfg.StdoutPath, s.stdout)
	if err != nil {
		s.closeFiles()
		return 0, fmt.Errorf("%w: %w", ErrLaunch, err)
	}
	stderr, err := s.streamWriter(s.cfg.StderrPath, s.stderr)
	if err != nil {
		s.closeFiles()
		return 0, fmt.Errorf("%w: %w", ErrLaunch, err)
	}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	setProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		s.logger.Error("failed_to_start_process",
			"runner", s.name,
			"path", argv[0],
			"error", err,
		)
		s.closeFiles()
		return 0, fmt.Errorf("%w: %w", ErrLaunch, err)
	}

	s.cmd = cmd
	s.started = true
	s.startTime = time.Now()
	pid := cmd.Process.Pid

	s.logger.Info("runner_started",
		"runner", s.name,
		"pid", pid,
		"args", len(argv),
	)

	go s.wait(cmd)
	return pid, nil
}

// streamWriter returns the writer for one output stream, teeing to a log
// file when path is set.
func (s *Supervisor) streamWriter(path string, h *logging.OutputHandler) (io.Writer, error) {
	if path == "" {
		return h, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}
	s.files = append(s.files, f)
	return io.MultiWriter(f, h), nil
}

// wait reaps the process. It is the only goroutine the supervisor starts.
func (s *Supervisor) wait(cmd *exec.Cmd) {
	waitErr := cmd.Wait()
	s.stdout.Flush()
	s.stderr.Flush()

	s.mu.Lock()
	s.exitCode = exitCodeOf(waitErr)
	s.uptime = time.Since(s.startTime)
	s.closeFiles()
	exitCode, uptime := s.exitCode, s.uptime
	s.mu.Unlock()

	close(s.done)

	s.logger.Info("runner_exited",
		"runner", s.name,
		"pid", cmd.Process.Pid,
		"exit_code", exitCode,
		"uptime", uptime.String(),
	)

	if s.cfg.Callbacks.OnExit != nil {
		s.cfg.Callbacks.OnExit(exitCode, uptime)
	}
}

// closeFiles closes output files. Caller holds s.mu.
func (s *Supervisor) closeFiles() {
	for _, f := range s.files {
		f.Close()
	}
	s.files = nil
}

// Poll returns the current process status without blocking.
func (s *Supervisor) Poll() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return Status{}
	}

	st := Status{Started: true, PID: s.cmd.Process.Pid}
	select {
	case <-s.done:
		st.ExitCode = s.exitCode
		st.Uptime = s.uptime
	default:
		st.Running = true
		st.Uptime = time.Since(s.startTime)
	}
	return st
}

// Done returns a channel closed when the process exits. It never closes if
// the process was never started.
func (s *Supervisor) Done() <-chan struct{} {
	return s.done
}

// Stop terminates the process: SIGTERM to its process group, then SIGKILL
// after the stop timeout. It is a no-op if the process was never started,
// has already exited, or Stop was already called.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.stopped = true
		s.mu.Unlock()
		return
	}
	s.stopped = true
	cmd := s.cmd
	s.mu.Unlock()

	select {
	case <-s.done:
		return
	default:
	}

	pid := cmd.Process.Pid
	s.logger.Debug("runner_stopping", "runner", s.name, "pid", pid)

	if err := terminate(cmd.Process); err != nil {
		s.logger.Debug("terminate_signal_failed", "runner", s.name, "pid", pid, "error", err)
	}

	select {
	case <-s.done:
		return
	case <-time.After(s.stopTimeout):
	}

	s.logger.Warn("force_killing_process", "runner", s.name, "pid", pid)
	if err := kill(cmd.Process); err != nil {
		s.logger.Warn("kill_failed", "runner", s.name, "pid", pid, "error", err)
	}

	select {
	case <-s.done:
	case <-time.After(s.stopTimeout):
		s.logger.Warn("process_not_reaped", "runner", s.name, "pid", pid)
	}
}

// RecentStderr returns up to n of the most recent stderr lines.
func (s *Supervisor) RecentStderr(n int) []string {
	return s.stderr.RecentLines(n)
}

// OutputErrors counts known failure signatures in both output streams.
func (s *Supervisor) OutputErrors() map[string]int {
	counts := s.stdout.CountErrors()
	for k, v := range s.stderr.CountErrors() {
		counts[k] += v
	}
	return counts
}

// exitCodeOf extracts the exit code from a Wait() error.
func exitCodeOf(err error) int {
	if err == nil {
		return 0
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code, ok := signalExitCode(exitErr); ok {
			return code
		}
		return exitErr.ExitCode()
	}

	// Unknown error, assume exit code 1
	return 1
}
