package logging

import (
	"bytes"
	"context"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/acarl005/stripansi"
)

const (
	// MaxLineLength is the maximum length of a single output line before
	// it is truncated (or, if no newline arrives, force-flushed).
	MaxLineLength = 4096

	// MaxBufferedLines is the number of recent lines kept per stream.
	MaxBufferedLines = 100
)

// OutputHandler receives one output stream of a runner process. It splits
// the stream into lines, strips ANSI escapes, logs each line at a level
// chosen from its content, and keeps the most recent lines for failure
// reports. It implements io.Writer so it can be attached to exec.Cmd.
type OutputHandler struct {
	runner  string
	stream  string
	logger  *slog.Logger
	verbose bool

	mu      sync.Mutex
	partial []byte
	buffer  []string
	bufIdx  int
	total   int
}

// NewOutputHandler creates a handler for the named stream ("stdout" or
// "stderr") of runner.
func NewOutputHandler(runner, stream string, logger *slog.Logger, verbose bool) *OutputHandler {
	return &OutputHandler{
		runner:  runner,
		stream:  stream,
		logger:  logger,
		verbose: verbose,
		buffer:  make([]string, MaxBufferedLines),
	}
}

// Write buffers p and handles every complete line it contains.
func (h *OutputHandler) Write(p []byte) (int, error) {
	h.mu.Lock()
	h.partial = append(h.partial, p...)
	var lines []string
	for {
		i := bytes.IndexByte(h.partial, '\n')
		if i < 0 {
			break
		}
		lines = append(lines, string(h.partial[:i]))
		h.partial = h.partial[i+1:]
	}
	if len(h.partial) > MaxLineLength {
		lines = append(lines, string(h.partial))
		h.partial = nil
	}
	h.mu.Unlock()

	for _, line := range lines {
		h.HandleLine(line)
	}
	return len(p), nil
}

// Flush handles any trailing data that was not newline-terminated.
func (h *OutputHandler) Flush() {
	h.mu.Lock()
	rest := string(h.partial)
	h.partial = nil
	h.mu.Unlock()

	if rest != "" {
		h.HandleLine(rest)
	}
}

// HandleLine processes a single line of output.
func (h *OutputHandler) HandleLine(line string) {
	line = strings.TrimRight(stripansi.Strip(line), "\r")
	if strings.TrimSpace(line) == "" {
		return
	}
	if len(line) > MaxLineLength {
		line = line[:MaxLineLength] + "...(truncated)"
	}

	h.mu.Lock()
	h.buffer[h.bufIdx] = line
	h.bufIdx = (h.bufIdx + 1) % MaxBufferedLines
	h.total++
	h.mu.Unlock()

	level := classifyLine(line)
	if !h.verbose && level == slog.LevelDebug {
		return
	}
	h.logger.Log(context.Background(), level, "runner_output",
		"runner", h.runner,
		"stream", h.stream,
		"line", line,
	)
}

// errorWord matches "error" as a whole word, so "0 errors" stays quiet.
var errorWord = regexp.MustCompile(`(?i)\berror\b`)

// classifyLine picks a log level for a runner output line. Known failure
// signatures and exceptions are errors; error and warning mentions warn.
func classifyLine(line string) slog.Level {
	lower := strings.ToLower(line)

	for _, pattern := range ErrorPatterns {
		if strings.Contains(lower, strings.ToLower(pattern)) {
			return slog.LevelError
		}
	}

	switch {
	case strings.Contains(lower, "exception:"):
		return slog.LevelError
	case errorWord.MatchString(line),
		strings.Contains(lower, "warning"),
		strings.Contains(lower, "could not"):
		return slog.LevelWarn
	default:
		return slog.LevelDebug
	}
}

// RecentLines returns up to n of the most recent lines, oldest first.
func (h *OutputHandler) RecentLines(n int) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	if n > MaxBufferedLines {
		n = MaxBufferedLines
	}

	lines := make([]string, 0, n)
	for i := 0; i < n; i++ {
		idx := (h.bufIdx - n + i + MaxBufferedLines) % MaxBufferedLines
		if h.buffer[idx] != "" {
			lines = append(lines, h.buffer[idx])
		}
	}
	return lines
}

// Lines returns how many non-empty lines have been handled.
func (h *OutputHandler) Lines() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.total
}

// ErrorPatterns are runner failure signatures counted for the exit summary.
var ErrorPatterns = []string{
	"Unhandled exception",
	"FileNotFoundException",
	"Could not load file or assembly",
	"The specified framework",
	"No test is available",
}

// CountErrors counts occurrences of ErrorPatterns in the buffered lines.
func (h *OutputHandler) CountErrors() map[string]int {
	h.mu.Lock()
	defer h.mu.Unlock()

	counts := make(map[string]int)
	for _, line := range h.buffer {
		if line == "" {
			continue
		}
		for _, pattern := range ErrorPatterns {
			if strings.Contains(line, pattern) {
				counts[pattern]++
			}
		}
	}
	return counts
}
