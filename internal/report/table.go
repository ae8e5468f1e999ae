package report

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// TableOptions controls WriteTable output.
type TableOptions struct {
	Title string

	// Color selects the colored style matching the overall outcome.
	Color bool
}

// WriteTable renders the summary as a per test case table with a totals
// footer and a caption carrying workers, span, p99 and max.
func WriteTable(w io.Writer, sum Summary, opts TableOptions) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	if opts.Title != "" {
		t.SetTitle(opts.Title)
	}

	t.AppendHeader(table.Row{
		"Suite", "Case", "Samples", "Passed", "Failed", "Broken", "Skipped", "p50", "p90",
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Suite", AutoMerge: true},
		{Name: "Case", WidthMax: 80, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Samples", Align: text.AlignRight},
		{Name: "Passed", Align: text.AlignRight},
		{Name: "Failed", Align: text.AlignRight},
		{Name: "Broken", Align: text.AlignRight},
		{Name: "Skipped", Align: text.AlignRight},
		{Name: "p50", Align: text.AlignRight},
		{Name: "p90", Align: text.AlignRight},
	})

	for _, c := range sum.Cases {
		t.AppendRow(table.Row{
			orDash(c.Suite),
			orDash(c.Case),
			c.Total,
			c.Counts[StatusPassed],
			c.Counts[StatusFailed],
			c.Counts[StatusBroken],
			c.Counts[StatusSkipped],
			formatDuration(c.P50),
			formatDuration(c.P90),
		})
	}

	if opts.Color {
		switch {
		case sum.HasFailures():
			t.SetStyle(table.StyleColoredBlackOnRedWhite)
		case sum.Counts[StatusSkipped] > 0:
			t.SetStyle(table.StyleColoredBlackOnYellowWhite)
		default:
			t.SetStyle(table.StyleColoredBlackOnGreenWhite)
		}
	}

	t.AppendFooter(table.Row{
		"TOTAL",
		outcome(sum),
		sum.Total,
		sum.Counts[StatusPassed],
		sum.Counts[StatusFailed],
		sum.Counts[StatusBroken],
		sum.Counts[StatusSkipped],
		formatDuration(sum.P50),
		formatDuration(sum.P90),
	})

	t.SetCaption(caption(sum))

	t.Render()
}

// caption lists the run-wide figures that have no per case column.
func caption(sum Summary) string {
	return fmt.Sprintf("workers: %d  span: %s  p99: %s  max: %s",
		sum.Workers, formatDuration(sum.Span), formatDuration(sum.P99), formatDuration(sum.Max))
}

func outcome(sum Summary) string {
	switch {
	case sum.Total == 0:
		return "NO SAMPLES"
	case sum.HasFailures():
		return "FAIL"
	case sum.Counts[StatusSkipped] > 0:
		return "SKIP"
	default:
		return "PASS"
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func formatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "-"
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	default:
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
}
