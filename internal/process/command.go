// Package process builds runner command lines and supervises the runner
// child process.
package process

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Runner command-line flags.
const (
	FlagTarget      = "--target"
	FlagReportFile  = "--report-file"
	FlagIterations  = "--iterations"
	FlagDuration    = "--duration"
	FlagConcurrency = "--concurrency"
	FlagRampUp      = "--ramp_up"
)

// LoadProfile describes the intensity of a run. Zero fields are omitted from
// the command line so the runner applies its own defaults.
type LoadProfile struct {
	Iterations  int           `yaml:"iterations" json:"iterations"`
	Hold        time.Duration `yaml:"hold" json:"hold"`
	Concurrency int           `yaml:"concurrency" json:"concurrency"`
	RampUp      time.Duration `yaml:"ramp_up" json:"ramp_up"`
}

// Validate rejects negative values.
func (l LoadProfile) Validate() error {
	var errs []error
	if l.Iterations < 0 {
		errs = append(errs, fmt.Errorf("iterations must be >= 0 (got %d)", l.Iterations))
	}
	if l.Hold < 0 {
		errs = append(errs, fmt.Errorf("hold must be >= 0 (got %s)", l.Hold))
	}
	if l.Concurrency < 0 {
		errs = append(errs, fmt.Errorf("concurrency must be >= 0 (got %d)", l.Concurrency))
	}
	if l.RampUp < 0 {
		errs = append(errs, fmt.Errorf("ramp_up must be >= 0 (got %s)", l.RampUp))
	}
	return errors.Join(errs...)
}

// CommandSpec is everything needed to construct a runner command line.
type CommandSpec struct {
	// ToolPath is the host tool (dotnet) prepended when UseTool is set.
	ToolPath string
	UseTool  bool

	RunnerExecutable string
	ScriptPath       string
	ReportFile       string
	Load             LoadProfile
}

// BuildArgs constructs the full argument vector, argv[0] included.
func BuildArgs(spec CommandSpec) []string {
	args := make([]string, 0, 14)

	if spec.UseTool && spec.ToolPath != "" {
		args = append(args, spec.ToolPath)
	}

	args = append(args,
		spec.RunnerExecutable,
		FlagTarget, spec.ScriptPath,
		FlagReportFile, spec.ReportFile,
	)

	args = appendIfSet(args, FlagIterations, int64(spec.Load.Iterations))
	args = appendIfSet(args, FlagDuration, wholeSeconds(spec.Load.Hold))
	args = appendIfSet(args, FlagConcurrency, int64(spec.Load.Concurrency))
	args = appendIfSet(args, FlagRampUp, wholeSeconds(spec.Load.RampUp))

	return args
}

// appendIfSet appends flag and value when value is positive.
func appendIfSet(args []string, flag string, value int64) []string {
	if value <= 0 {
		return args
	}
	return append(args, flag, strconv.FormatInt(value, 10))
}

// wholeSeconds truncates d to whole seconds.
func wholeSeconds(d time.Duration) int64 {
	return int64(d / time.Second)
}

// CommandString renders args for display, quoting arguments with spaces.
func CommandString(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		if a == "" || strings.ContainsAny(a, " \t\"'") {
			quoted[i] = strconv.Quote(a)
		} else {
			quoted[i] = a
		}
	}
	return strings.Join(quoted, " ")
}
