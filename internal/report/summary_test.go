package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample(suite, name string, status Status, start, dur float64, worker string) Sample {
	return Sample{
		TestSuite: suite,
		TestCase:  name,
		Status:    status,
		StartTime: start,
		Duration:  dur,
		WorkerID:  worker,
	}
}

func TestSummarize_Empty(t *testing.T) {
	sum := Summarize(nil)
	assert.Zero(t, sum.Total)
	assert.False(t, sum.HasFailures())
	assert.Empty(t, sum.Cases)
}

func TestSummarize_Counts(t *testing.T) {
	samples := []Sample{
		sample("Suite", "A", StatusPassed, 100, 0.5, "w0"),
		sample("Suite", "A", StatusFailed, 101, 0.5, "w1"),
		sample("Suite", "B", StatusBroken, 102, 0.5, "w0"),
		sample("Other", "C", StatusSkipped, 103, 0.5, "w1"),
	}

	sum := Summarize(samples)
	assert.Equal(t, 4, sum.Total)
	assert.Equal(t, 1, sum.Counts[StatusPassed])
	assert.Equal(t, 1, sum.Counts[StatusFailed])
	assert.Equal(t, 1, sum.Counts[StatusBroken])
	assert.Equal(t, 1, sum.Counts[StatusSkipped])
	assert.Equal(t, 2, sum.Failures())
	assert.True(t, sum.HasFailures())
	assert.Equal(t, 2, sum.Workers)
	assert.Equal(t, 3500*time.Millisecond, sum.Span)
	assert.Equal(t, 500*time.Millisecond, sum.Max)
	assert.InDelta(t, 0.5, sum.P50.Seconds(), 0.001)

	require.Len(t, sum.Cases, 3)
	assert.Equal(t, "Other", sum.Cases[0].Suite)
	assert.Equal(t, "A", sum.Cases[1].Case)
	assert.Equal(t, 2, sum.Cases[1].Total)
	assert.Equal(t, "B", sum.Cases[2].Case)
}

func TestSummarize_Percentiles(t *testing.T) {
	var samples []Sample
	for i := 1; i <= 100; i++ {
		samples = append(samples, sample("S", "T", StatusPassed, 0, float64(i)/100, ""))
	}

	sum := Summarize(samples)
	assert.Equal(t, time.Second, sum.Max)
	assert.InDelta(t, 0.5, sum.P50.Seconds(), 0.05)
	assert.InDelta(t, 0.9, sum.P90.Seconds(), 0.05)
	assert.InDelta(t, 0.99, sum.P99.Seconds(), 0.05)
	assert.Zero(t, sum.Span)
	assert.Zero(t, sum.Workers)
}

func TestWriteTable(t *testing.T) {
	sum := Summarize([]Sample{
		sample("BrowserTests", "OpenPage", StatusPassed, 0, 1.5, ""),
		sample("BrowserTests", "OpenPage", StatusFailed, 0, 2, ""),
	})

	var buf bytes.Buffer
	WriteTable(&buf, sum, TableOptions{Title: "nunit-dotnet"})
	out := buf.String()

	assert.Contains(t, strings.ToLower(out), "nunit-dotnet")
	assert.Contains(t, out, "OpenPage")
	assert.Contains(t, out, "TOTAL")
	assert.Contains(t, out, "FAIL")
	assert.Contains(t, out, "workers:")
}

func TestCaption(t *testing.T) {
	tests := []struct {
		name string
		sum  Summary
		want string
	}{
		{
			name: "populated",
			sum:  Summary{Workers: 2, Span: 3500 * time.Millisecond, P99: 40 * time.Millisecond, Max: 2 * time.Second},
			want: "workers: 2  span: 3.50s  p99: 40ms  max: 2.00s",
		},
		{
			name: "empty",
			sum:  Summarize(nil),
			want: "workers: 0  span: -  p99: -  max: -",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, caption(tt.sum))
		})
	}
}

func TestWriteTable_ShowsWorkersAndSpan(t *testing.T) {
	sum := Summarize([]Sample{
		sample("Suite", "A", StatusPassed, 100, 0.5, "w0"),
		sample("Suite", "A", StatusPassed, 103, 0.5, "w1"),
	})

	var buf bytes.Buffer
	WriteTable(&buf, sum, TableOptions{})
	assert.Contains(t, buf.String(), "workers: 2")
	assert.Contains(t, buf.String(), "span: 3.50s")
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		name string
		sum  Summary
		want string
	}{
		{"empty", Summarize(nil), "NO SAMPLES"},
		{"pass", Summarize([]Sample{{Status: StatusPassed}}), "PASS"},
		{"skip", Summarize([]Sample{{Status: StatusPassed}, {Status: StatusSkipped}}), "SKIP"},
		{"fail", Summarize([]Sample{{Status: StatusBroken}, {Status: StatusSkipped}}), "FAIL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, outcome(tt.sum))
		})
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "-", formatDuration(0))
	assert.Equal(t, "500µs", formatDuration(500*time.Microsecond))
	assert.Equal(t, "250ms", formatDuration(250*time.Millisecond))
	assert.Equal(t, "1.50s", formatDuration(1500*time.Millisecond))
}
