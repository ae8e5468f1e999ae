// Package preflight provides startup validation checks.
package preflight

import (
	"fmt"
	"io"
	"os"
)

// Check represents the result of a single preflight check.
type Check struct {
	Name     string // Name of the check
	Required int    // Required value (if applicable)
	Actual   int    // Actual value found
	Passed   bool   // Whether the check passed
	Warning  bool   // True if it's a warning (non-fatal)
	Message  string // Additional context
}

// Result holds the results of all preflight checks.
type Result struct {
	Checks []Check
	Passed bool
}

// Options describes the run being checked.
type Options struct {
	Concurrency      int
	RunnerExecutable string
	ScriptPath       string
	ArtifactsDir     string
}

// String returns a human-readable summary of the check.
func (c Check) String() string {
	status := "✓"
	if !c.Passed {
		status = "✗"
	} else if c.Warning {
		status = "⚠"
	}

	if c.Required > 0 {
		return fmt.Sprintf("  %s %s: %d available (need %d)", status, c.Name, c.Actual, c.Required)
	}
	return fmt.Sprintf("  %s %s: %s", status, c.Name, c.Message)
}

// RunAll executes all preflight checks.
func RunAll(opts Options) *Result {
	result := &Result{
		Checks: make([]Check, 0, 4),
		Passed: true,
	}

	for _, check := range []Check{
		checkFileDescriptors(opts.Concurrency),
		checkFile("runner_executable", opts.RunnerExecutable),
		checkFile("script", opts.ScriptPath),
		checkArtifactsDir(opts.ArtifactsDir),
	} {
		result.Checks = append(result.Checks, check)
		if !check.Passed {
			result.Passed = false
		}
	}

	return result
}

// checkFileDescriptors verifies sufficient file descriptors are available
// for the runner's workers.
func checkFileDescriptors(concurrency int) Check {
	if concurrency < 1 {
		concurrency = 1
	}
	// Each worker may hold a handful of sockets and files, plus the
	// runtime's own overhead.
	required := concurrency*8 + 64

	actual, ok := openFileLimit()
	if !ok {
		return Check{
			Name:    "file_descriptors",
			Passed:  true,
			Warning: true,
			Message: "unable to check on this platform",
		}
	}

	return Check{
		Name:     "file_descriptors",
		Required: required,
		Actual:   actual,
		Passed:   actual >= required,
		Message:  fmt.Sprintf("ulimit -n %d (need %d for %d workers)", actual, required, concurrency),
	}
}

// checkFile verifies path names an existing regular file.
func checkFile(name, path string) Check {
	if path == "" {
		return Check{Name: name, Passed: false, Message: "not set"}
	}
	info, err := os.Stat(path)
	if err != nil {
		return Check{Name: name, Passed: false, Message: fmt.Sprintf("not found at %s", path)}
	}
	if info.IsDir() {
		return Check{Name: name, Passed: false, Message: fmt.Sprintf("%s is a directory", path)}
	}
	return Check{Name: name, Passed: true, Message: fmt.Sprintf("found at %s", path)}
}

// checkArtifactsDir verifies the artifacts directory can be created and
// written.
func checkArtifactsDir(dir string) Check {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Check{Name: "artifacts_dir", Passed: false, Message: err.Error()}
	}
	f, err := os.CreateTemp(dir, ".preflight-*")
	if err != nil {
		return Check{Name: "artifacts_dir", Passed: false, Message: fmt.Sprintf("%s not writable: %v", dir, err)}
	}
	f.Close()
	os.Remove(f.Name())

	return Check{Name: "artifacts_dir", Passed: true, Message: fmt.Sprintf("%s writable", dir)}
}

// PrintResults prints the preflight check results to w.
func PrintResults(w io.Writer, result *Result) {
	fmt.Fprintln(w, "Preflight checks:")
	for _, check := range result.Checks {
		fmt.Fprintln(w, check.String())
		if !check.Passed {
			fmt.Fprintf(w, "    Fix: %s\n", suggestFix(check.Name))
		}
	}
	fmt.Fprintln(w)
}

// suggestFix returns a suggestion for fixing a failed check.
func suggestFix(name string) string {
	switch name {
	case "file_descriptors":
		return "ulimit -n 8192 (or edit /etc/security/limits.conf)"
	case "runner_executable":
		return "point --resources at the directory holding the runner builds"
	case "script":
		return "pass the path of an existing test assembly"
	case "artifacts_dir":
		return "choose a writable --artifacts directory"
	default:
		return "see documentation"
	}
}
