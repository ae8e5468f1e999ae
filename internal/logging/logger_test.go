package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Logger construction
// =============================================================================

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"trace", slog.LevelInfo},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.expected, parseLevel(tc.input))
		})
	}
}

func TestNew_JSONDefault(t *testing.T) {
	for _, format := range []string{"json", "JSON", "", "invalid"} {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			New(&buf, format, "info", false).Info("hello", "k", "v")

			var rec map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
			assert.Equal(t, "hello", rec["msg"])
			assert.Equal(t, "v", rec["k"])
		})
	}
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "text", "info", false).Info("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}

func TestNew_VerboseForcesDebug(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "text", "error", true).Debug("debug message")
	assert.Contains(t, buf.String(), "debug message")
	assert.Contains(t, buf.String(), "source=")
}

func TestNewLoggerWithWriter_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, "text", "error")
	logger.Debug("debug message")
	logger.Error("error message")

	assert.NotContains(t, buf.String(), "debug message")
	assert.Contains(t, buf.String(), "error message")
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	require.NotNil(t, logger)
	logger.Error("dropped")
}

// =============================================================================
// OutputHandler
// =============================================================================

func TestOutputHandler_WriteSplitsLines(t *testing.T) {
	var buf bytes.Buffer
	h := NewOutputHandler("xunit", "stdout", NewLoggerWithWriter(&buf, "text", "debug"), true)

	_, err := h.Write([]byte("first\nsec"))
	require.NoError(t, err)
	_, err = h.Write([]byte("ond\r\nthird"))
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "second"}, h.RecentLines(10))

	h.Flush()
	assert.Equal(t, []string{"first", "second", "third"}, h.RecentLines(10))
	assert.Equal(t, 3, h.Lines())
}

func TestOutputHandler_StripsANSI(t *testing.T) {
	var buf bytes.Buffer
	h := NewOutputHandler("nunit-dotnet", "stderr", NewLoggerWithWriter(&buf, "text", "debug"), true)

	h.HandleLine("\x1b[31mred text\x1b[0m")
	assert.Equal(t, []string{"red text"}, h.RecentLines(1))
}

func TestOutputHandler_NonVerboseSkipsDebugLines(t *testing.T) {
	var buf bytes.Buffer
	h := NewOutputHandler("xunit", "stdout", NewLoggerWithWriter(&buf, "text", "debug"), false)

	h.HandleLine("Running test suite")
	h.HandleLine("Unhandled exception: System.IO.FileNotFoundException")

	out := buf.String()
	assert.NotContains(t, out, "Running test suite")
	assert.Contains(t, out, "Unhandled exception")
	assert.Contains(t, out, "level=ERROR")
	assert.Len(t, h.RecentLines(10), 2)
}

func TestOutputHandler_TruncatesLongLines(t *testing.T) {
	var buf bytes.Buffer
	h := NewOutputHandler("xunit", "stdout", NewLoggerWithWriter(&buf, "text", "error"), false)

	h.HandleLine(strings.Repeat("x", MaxLineLength+10))
	lines := h.RecentLines(1)
	require.Len(t, lines, 1)
	assert.True(t, strings.HasSuffix(lines[0], "...(truncated)"))
}

func TestOutputHandler_RecentLinesWraps(t *testing.T) {
	var buf bytes.Buffer
	h := NewOutputHandler("xunit", "stdout", NewLoggerWithWriter(&buf, "text", "error"), false)

	for i := 0; i < MaxBufferedLines+5; i++ {
		h.HandleLine(strings.Repeat("a", i+1))
	}

	lines := h.RecentLines(MaxBufferedLines + 50)
	require.Len(t, lines, MaxBufferedLines)
	assert.Equal(t, MaxBufferedLines+5, len(lines[len(lines)-1]))
}

func TestClassifyLine(t *testing.T) {
	tests := []struct {
		line string
		want slog.Level
	}{
		{"Unhandled exception. System.Exception: boom", slog.LevelError},
		{"System.IO.FileNotFoundException: Tests.dll", slog.LevelError},
		{"Could not load file or assembly 'NUnit'", slog.LevelError},
		{"The specified framework 'Microsoft.NETCore.App' was not found", slog.LevelError},
		{"System.InvalidOperationException: bad state", slog.LevelError},
		{"error: assembly not found", slog.LevelWarn},
		{"[ERROR] setup failed", slog.LevelWarn},
		{"warning CS0168", slog.LevelWarn},
		{"Could not execute because the application was not found", slog.LevelWarn},
		{"Passed: 10, Failed: 0, 0 errors", slog.LevelDebug},
		{"Test run started", slog.LevelDebug},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyLine(tt.line))
		})
	}
}

func TestCountErrors(t *testing.T) {
	var buf bytes.Buffer
	h := NewOutputHandler("xunit", "stderr", NewLoggerWithWriter(&buf, "text", "error"), false)

	h.HandleLine("Unhandled exception. System.IO.FileNotFoundException: x")
	h.HandleLine("Unhandled exception. again")
	h.HandleLine("fine")

	counts := h.CountErrors()
	assert.Equal(t, 2, counts["Unhandled exception"])
	assert.Equal(t, 1, counts["FileNotFoundException"])
}
