package metrics

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randomizedcoder/go-dotnet-harness/internal/report"
)

// =============================================================================
// Test Helpers
// =============================================================================

func newTestCollector(t *testing.T) (*Collector, *prometheus.Registry) {
	t.Helper()
	registry := prometheus.NewRegistry()
	c := NewCollectorWithRegistry(CollectorConfig{Version: "test", Runner: "xunit"}, registry)
	return c, registry
}

// =============================================================================
// Collector
// =============================================================================

func TestNewCollector_TwoRegistries(t *testing.T) {
	a, _ := newTestCollector(t)
	b, _ := newTestCollector(t)

	a.ProcessStarted()
	assert.Equal(t, 1, a.TotalStarts())
	assert.Equal(t, 0, b.TotalStarts())
}

func TestRecordToolCheck(t *testing.T) {
	c, _ := newTestCollector(t)
	c.RecordToolCheck("dotnet", true)
	c.RecordToolCheck("dotnet", false)
	c.RecordToolCheck("dotnet", false)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.toolChecks.WithLabelValues("dotnet", "installed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.toolChecks.WithLabelValues("dotnet", "missing")))
}

func TestRecordTransition(t *testing.T) {
	c, _ := newTestCollector(t)
	c.RecordTransition("", "init")
	c.RecordTransition("init", "prepared")

	assert.Equal(t, 0.0, testutil.ToFloat64(c.state.WithLabelValues("xunit", "init")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.state.WithLabelValues("xunit", "prepared")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.transitions.WithLabelValues("xunit", "prepared")))
}

func TestRecordExit(t *testing.T) {
	tests := []struct {
		code     int
		category string
	}{
		{0, "success"},
		{1, "error"},
		{143, "signal"},
	}

	for _, tt := range tests {
		t.Run(tt.category, func(t *testing.T) {
			c, _ := newTestCollector(t)
			c.ProcessStarted()
			assert.Equal(t, 1.0, testutil.ToFloat64(c.processRunning))

			c.RecordExit(tt.code, 2*time.Second)
			assert.Equal(t, 1.0, testutil.ToFloat64(c.processExits.WithLabelValues(tt.category)))
			assert.Equal(t, 0.0, testutil.ToFloat64(c.processRunning))
			assert.Equal(t, float64(tt.code), testutil.ToFloat64(c.lastExitCode))
			assert.Equal(t, map[int]int{tt.code: 1}, c.ExitCodes())
		})
	}
}

func TestRecordSamples(t *testing.T) {
	c, registry := newTestCollector(t)
	c.RecordSamples([]report.Sample{
		{Status: report.StatusFailed, Duration: 0.1},
		{Status: report.StatusFailed, Duration: 0.2},
		{Status: report.StatusPassed, Duration: 0.3},
		{Status: report.StatusSkipped},
	})

	totals, err := CounterTotals(registry, "dotnet_harness_samples_total", "status")
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"FAILED": 2, "PASSED": 1, "SKIPPED": 1}, totals)
}

func TestCounterTotals_MissingFamily(t *testing.T) {
	_, registry := newTestCollector(t)
	totals, err := CounterTotals(registry, "does_not_exist", "status")
	require.NoError(t, err)
	assert.Empty(t, totals)
}

func TestParseFailures(t *testing.T) {
	c, _ := newTestCollector(t)
	c.RecordParseFailure()
	assert.Equal(t, 1.0, testutil.ToFloat64(c.parseFailures))
}

// =============================================================================
// Exposition
// =============================================================================

func TestWriteText(t *testing.T) {
	c, registry := newTestCollector(t)
	c.ProcessStarted()

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, registry))
	out := buf.String()

	assert.Contains(t, out, "# TYPE dotnet_harness_process_starts_total counter")
	assert.Contains(t, out, "dotnet_harness_process_starts_total 1")
	assert.Contains(t, out, `dotnet_harness_info{runner="xunit",version="test"} 1`)
}

func TestDumpFile(t *testing.T) {
	_, registry := newTestCollector(t)
	path := filepath.Join(t.TempDir(), "metrics.prom")

	require.NoError(t, DumpFile(path, registry))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "dotnet_harness_info")

	assert.Error(t, DumpFile(filepath.Join(t.TempDir(), "missing", "m.prom"), registry))
}

func TestServer_Endpoints(t *testing.T) {
	c, registry := newTestCollector(t)
	c.ProcessStarted()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := NewServer("127.0.0.1:0", registry, logger)
	require.NoError(t, srv.Start())
	defer srv.Shutdown(context.Background())

	for _, path := range []string{"/health", "/healthz", "/ready", "/readyz", "/metrics"} {
		t.Run(path, func(t *testing.T) {
			resp, err := http.Get("http://" + srv.Addr() + path)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusOK, resp.StatusCode)

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			if path == "/metrics" {
				assert.Contains(t, string(body), "dotnet_harness_process_starts_total")
			} else {
				assert.Equal(t, "ok\n", string(body))
			}
		})
	}
}
