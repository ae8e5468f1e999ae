// Package metrics provides Prometheus metrics for go-dotnet-harness.
//
// Every Collector owns its metric instances and registers them with the
// registerer it was created with, so several collectors (one per test, or
// one per harness process) never share counters.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/randomizedcoder/go-dotnet-harness/internal/report"
)

// Namespace prefixes every metric name.
const Namespace = "dotnet_harness"

// CollectorConfig holds configuration for the collector.
type CollectorConfig struct {
	Version string
	Runner  string
}

// Collector records executor, tool, process, and sample metrics.
type Collector struct {
	runner string

	info           *prometheus.GaugeVec
	toolChecks     *prometheus.CounterVec
	transitions    *prometheus.CounterVec
	state          *prometheus.GaugeVec
	processStarts  prometheus.Counter
	processExits   *prometheus.CounterVec
	processUptime  prometheus.Histogram
	processRunning prometheus.Gauge
	lastExitCode   prometheus.Gauge
	samplesTotal   *prometheus.CounterVec
	sampleDuration *prometheus.HistogramVec
	parseFailures  prometheus.Counter

	mu        sync.Mutex
	exitCodes map[int]int
	starts    int
}

// NewCollector creates a collector registered with the default registerer.
func NewCollector(cfg CollectorConfig) *Collector {
	return NewCollectorWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewCollectorWithRegistry creates a collector with a custom registry.
func NewCollectorWithRegistry(cfg CollectorConfig, registry prometheus.Registerer) *Collector {
	c := &Collector{
		runner:    cfg.Runner,
		exitCodes: make(map[int]int),

		info: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "info",
			Help:      "Information about the harness (value always 1)",
		}, []string{"version", "runner"}),

		toolChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "tool_checks_total",
			Help:      "Tool version probes by outcome",
		}, []string{"tool", "result"}),

		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "executor_transitions_total",
			Help:      "Executor lifecycle transitions by target state",
		}, []string{"runner", "state"}),

		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "executor_state",
			Help:      "Current executor state (1 for the active state)",
		}, []string{"runner", "state"}),

		processStarts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "process_starts_total",
			Help:      "Runner processes started",
		}),

		processExits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "process_exits_total",
			Help:      "Runner process exits by category (success, error, signal)",
		}, []string{"category"}),

		processUptime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "process_uptime_seconds",
			Help:      "Runner process lifetime",
			Buckets:   []float64{1, 5, 10, 30, 60, 300, 600, 1800, 3600},
		}),

		processRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "process_running",
			Help:      "1 while the runner process is alive",
		}),

		lastExitCode: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "process_last_exit_code",
			Help:      "Exit code of the most recent runner process",
		}),

		samplesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "samples_total",
			Help:      "Test case samples read from the report, by status",
		}, []string{"runner", "status"}),

		sampleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "sample_duration_seconds",
			Help:      "Test case duration as reported by the runner",
			Buckets: []float64{
				0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5,
				1, 2.5, 5, 10, 30, 60,
			},
		}, []string{"runner", "status"}),

		parseFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "report_parse_failures_total",
			Help:      "Report files that could not be parsed",
		}),
	}

	registry.MustRegister(
		c.info,
		c.toolChecks,
		c.transitions,
		c.state,
		c.processStarts,
		c.processExits,
		c.processUptime,
		c.processRunning,
		c.lastExitCode,
		c.samplesTotal,
		c.sampleDuration,
		c.parseFailures,
	)

	c.info.WithLabelValues(cfg.Version, cfg.Runner).Set(1)
	return c
}

// =============================================================================
// Event Recording Methods
// =============================================================================

// RecordToolCheck records the outcome of a tool version probe.
func (c *Collector) RecordToolCheck(tool string, installed bool) {
	result := "missing"
	if installed {
		result = "installed"
	}
	c.toolChecks.WithLabelValues(tool, result).Inc()
}

// RecordTransition records an executor moving from one state to another.
func (c *Collector) RecordTransition(from, to string) {
	c.transitions.WithLabelValues(c.runner, to).Inc()
	if from != "" {
		c.state.WithLabelValues(c.runner, from).Set(0)
	}
	c.state.WithLabelValues(c.runner, to).Set(1)
}

// ProcessStarted records a runner process start.
func (c *Collector) ProcessStarted() {
	c.processStarts.Inc()
	c.processRunning.Set(1)

	c.mu.Lock()
	c.starts++
	c.mu.Unlock()
}

// RecordExit records a runner process exit.
func (c *Collector) RecordExit(exitCode int, uptime time.Duration) {
	category := "error"
	if exitCode == 0 {
		category = "success"
	} else if exitCode > 128 {
		category = "signal"
	}
	c.processExits.WithLabelValues(category).Inc()
	c.processUptime.Observe(uptime.Seconds())
	c.processRunning.Set(0)
	c.lastExitCode.Set(float64(exitCode))

	c.mu.Lock()
	c.exitCodes[exitCode]++
	c.mu.Unlock()
}

// RecordSamples records parsed report samples.
func (c *Collector) RecordSamples(samples []report.Sample) {
	for _, s := range samples {
		status := string(s.Status)
		c.samplesTotal.WithLabelValues(c.runner, status).Inc()
		c.sampleDuration.WithLabelValues(c.runner, status).Observe(s.Duration)
	}
}

// RecordParseFailure records a report that could not be parsed.
func (c *Collector) RecordParseFailure() {
	c.parseFailures.Inc()
}

// ExitCodes returns a copy of the exit code histogram.
func (c *Collector) ExitCodes() map[int]int {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[int]int, len(c.exitCodes))
	for k, v := range c.exitCodes {
		out[k] = v
	}
	return out
}

// TotalStarts returns the number of recorded process starts.
func (c *Collector) TotalStarts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.starts
}
