package orchestrator

import (
	"fmt"
	"sort"
	"time"

	"github.com/randomizedcoder/go-dotnet-harness/internal/report"
)

// printExitSummary prints a summary of the harness run.
func (o *Orchestrator) printExitSummary() {
	w := o.opts.Out
	exec := o.executor

	fmt.Fprintln(w)
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════════════")
	fmt.Fprintln(w, "                      dotnet-harness Exit Summary")
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════════════")
	fmt.Fprintf(w, "Run Duration:           %s\n", formatDuration(time.Since(o.startTime)))
	fmt.Fprintf(w, "Runner:                 %s\n", o.profile)
	fmt.Fprintf(w, "Final State:            %s\n", exec.State())
	fmt.Fprintf(w, "Report:                 %s\n", exec.ReportPath())
	fmt.Fprintln(w)

	if codes := o.metrics.ExitCodes(); len(codes) > 0 {
		fmt.Fprintln(w, "Exit Codes:")
		keys := make([]int, 0, len(codes))
		for code := range codes {
			keys = append(keys, code)
		}
		sort.Ints(keys)
		for _, code := range keys {
			fmt.Fprintf(w, "  %3d %-16s %d\n", code, exitCodeLabel(code), codes[code])
		}
		fmt.Fprintln(w)
	}

	if counts := exec.OutputErrors(); len(counts) > 0 {
		fmt.Fprintln(w, "Runner Errors:")
		patterns := make([]string, 0, len(counts))
		for p := range counts {
			patterns = append(patterns, p)
		}
		sort.Strings(patterns)
		for _, p := range patterns {
			fmt.Fprintf(w, "  %-34s %d\n", p, counts[p])
		}
		fmt.Fprintln(w)
	}

	if o.summary != nil {
		report.WriteTable(w, *o.summary, report.TableOptions{
			Title: "Test Results",
			Color: o.opts.Color,
		})
		fmt.Fprintln(w)
	} else {
		fmt.Fprintln(w, "No results: the report could not be parsed.")
		fmt.Fprintln(w)
	}

	if o.metricsServer != nil {
		fmt.Fprintf(w, "Metrics endpoint was: http://%s/metrics\n", o.metricsServer.Addr())
	}
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════════════")
}

// formatDuration formats a duration as HH:MM:SS.
func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// exitCodeLabel returns a human-readable label for common exit codes.
func exitCodeLabel(code int) string {
	switch code {
	case 0:
		return "(clean)"
	case 1:
		return "(error)"
	case 137:
		return "(SIGKILL)"
	case 143:
		return "(SIGTERM)"
	default:
		return ""
	}
}
