package report

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeReport(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "report.ldjson")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func statuses(samples []Sample) []Status {
	out := make([]Status, len(samples))
	for i, s := range samples {
		out[i] = s.Status
	}
	return out
}

// =============================================================================
// ParseFile
// =============================================================================

func TestParseFile_PreservesOrder(t *testing.T) {
	path := writeReport(t, `{"status":"FAILED"}
{"status":"FAILED"}
{"status":"PASSED"}
{"status":"SKIPPED"}
`)

	samples, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, []Status{StatusFailed, StatusFailed, StatusPassed, StatusSkipped}, statuses(samples))
}

func TestParseFile_RunnerFields(t *testing.T) {
	path := writeReport(t, `{"start_time":1700000000.5,"workerID":"Worker 0","duration":0.25,"test_case":"Test1","test_suite":"BrowserTests","status":"BROKEN","error_msg":"boom","error_trace":"at X","extras":{"retries":1}}`)

	samples, err := ParseFile(path)
	require.NoError(t, err)
	require.Len(t, samples, 1)

	s := samples[0]
	assert.Equal(t, StatusBroken, s.Status)
	assert.Equal(t, "Worker 0", s.WorkerID)
	assert.Equal(t, "Test1", s.TestCase)
	assert.Equal(t, "BrowserTests", s.TestSuite)
	assert.Equal(t, "boom", s.ErrorMsg)
	assert.Equal(t, "at X", s.ErrorTrace)
	assert.Equal(t, float64(1), s.Extras["retries"])
	assert.Equal(t, int64(250), s.Elapsed().Milliseconds())
	assert.Equal(t, int64(1700000000), s.Started().Unix())
}

func TestParseFile_Missing(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), "absent.ldjson"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrParse)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseFile_ErrorCarriesPath(t *testing.T) {
	path := writeReport(t, "{\"status\":\"PASSED\"}\nnot json\n")

	_, err := ParseFile(path)
	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, path, perr.Path)
	assert.Equal(t, 2, perr.Line)
	assert.Contains(t, err.Error(), path+":2:")
}

// =============================================================================
// Parse
// =============================================================================

func TestParse_Empty(t *testing.T) {
	samples, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, samples)
}

func TestParse_SkipsBlankLines(t *testing.T) {
	samples, err := Parse(strings.NewReader("\n{\"status\":\"PASSED\"}\n  \n\r\n{\"status\":\"BROKEN\"}"))
	require.NoError(t, err)
	assert.Equal(t, []Status{StatusPassed, StatusBroken}, statuses(samples))
}

func TestParse_Aborts(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantLine int
	}{
		{"truncated object", "{\"status\":\"PASSED\"}\n{\"status\":\"PAS", 2},
		{"not an object", "[1,2,3]\n", 1},
		{"missing status", "{\"duration\":1}\n", 1},
		{"unknown status", "{\"status\":\"ERRORED\"}\n", 1},
		{"null status", "{\"status\":null}\n", 1},
		{"numeric status", "{\"status\":3}\n", 1},
		{"garbage after valid", "{\"status\":\"PASSED\"}\n{\"status\":\"FAILED\"}\n}{\n", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			samples, err := Parse(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Nil(t, samples)
			assert.ErrorIs(t, err, ErrParse)

			var perr *ParseError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, tt.wantLine, perr.Line)
		})
	}
}

func TestParse_LongLine(t *testing.T) {
	trace := strings.Repeat("x", 200*1024)
	samples, err := Parse(strings.NewReader(`{"status":"FAILED","error_trace":"` + trace + `"}`))
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Len(t, samples[0].ErrorTrace, len(trace))
}

func TestStatus_Valid(t *testing.T) {
	for _, s := range Statuses {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, Status("passed").Valid())
	assert.False(t, Status("").Valid())
}
