package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/randomizedcoder/go-dotnet-harness/internal/profile"
)

// ParseFlags parses command-line arguments (without the program name) and
// returns a Config. Values come from DefaultConfig, then the --config file,
// then any flag set explicitly. pflag.ErrHelp is returned for -h/--help.
func ParseFlags(args []string) (*Config, error) {
	return parseFlags(args, os.Stderr)
}

func parseFlags(args []string, out io.Writer) (*Config, error) {
	cfg := DefaultConfig()

	fs := pflag.NewFlagSet("dotnet-harness", pflag.ContinueOnError)
	fs.SetOutput(out)
	fs.SortFlags = false
	fs.Usage = func() { usage(out, fs) }

	// Runner flags
	fs.StringVar(&cfg.Runner, "runner", cfg.Runner, fmt.Sprintf("Runner kind: %s", kindList()))
	fs.StringVar(&cfg.ResourcesDir, "resources", cfg.ResourcesDir, "Directory containing the runner builds")
	fs.StringVar(&cfg.ArtifactsDir, "artifacts", cfg.ArtifactsDir, "Directory for report and log files")
	fs.StringVar(&cfg.DotnetPath, "dotnet", cfg.DotnetPath, "Path to the dotnet host (default from runner profile)")

	// Load flags
	fs.IntVar(&cfg.Load.Iterations, "iterations", cfg.Load.Iterations, "Iterations per worker (0 = runner default)")
	fs.DurationVar(&cfg.Load.Hold, "hold", cfg.Load.Hold, "Test duration passed as --duration (0 = runner default)")
	fs.IntVar(&cfg.Load.Concurrency, "concurrency", cfg.Load.Concurrency, "Concurrent workers (0 = runner default)")
	fs.DurationVar(&cfg.Load.RampUp, "ramp-up", cfg.Load.RampUp, "Ramp-up period (0 = runner default)")

	// Host loop flags
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Wall-clock limit for the run (0 = none)")
	fs.DurationVar(&cfg.CheckInterval, "check-interval", cfg.CheckInterval, "Interval between status checks")
	fs.DurationVar(&cfg.StopTimeout, "stop-timeout", cfg.StopTimeout, "Grace period between SIGTERM and SIGKILL")

	// Observability
	fs.StringVar(&cfg.MetricsAddr, "metrics", cfg.MetricsAddr, "Prometheus metrics address (empty = disabled)")
	fs.StringVar(&cfg.MetricsDump, "metrics-dump", cfg.MetricsDump, "Write final metrics in text format to this file")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Verbose logging, including every runner output line")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, `Log format: "json" or "text"`)
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, `Log level: "debug", "info", "warn", "error"`)

	// Dashboard
	fs.BoolVar(&cfg.TUIEnabled, "tui", cfg.TUIEnabled, "Show live terminal dashboard")

	// Diagnostics
	fs.StringVar(&cfg.ConfigFile, "config", cfg.ConfigFile, "YAML configuration file")
	fs.BoolVar(&cfg.PrintCmd, "print-cmd", cfg.PrintCmd, "Print the runner command and exit")
	fs.BoolVar(&cfg.SkipPreflight, "skip-preflight", cfg.SkipPreflight, "Skip preflight checks")
	fs.BoolVar(&cfg.ShowVersion, "version", cfg.ShowVersion, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.ConfigFile != "" {
		if err := overlayFile(fs, cfg); err != nil {
			return nil, err
		}
	}

	// Positional argument: test script
	if fs.NArg() >= 1 {
		cfg.Script = fs.Arg(0)
	}

	return cfg, nil
}

// overlayFile loads cfg.ConfigFile underneath the flags that were set
// explicitly, so the command line always wins.
func overlayFile(fs *pflag.FlagSet, cfg *Config) error {
	explicit := make(map[string]string)
	fs.Visit(func(f *pflag.Flag) {
		explicit[f.Name] = f.Value.String()
	})

	if err := LoadFile(cfg.ConfigFile, cfg); err != nil {
		return err
	}

	for name, value := range explicit {
		if err := fs.Set(name, value); err != nil {
			return fmt.Errorf("reapply --%s: %w", name, err)
		}
	}
	return nil
}

func kindList() string {
	kinds := profile.Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}

// usage prints flags grouped by category.
func usage(out io.Writer, fs *pflag.FlagSet) {
	fmt.Fprintf(out, `dotnet-harness - drive .NET test runners under load

Usage:
  dotnet-harness [flags] <script>

Runner Flags:
`)
	printFlagCategory(out, fs, []string{"runner", "resources", "artifacts", "dotnet"})

	fmt.Fprintf(out, "\nLoad Profile:\n")
	printFlagCategory(out, fs, []string{"iterations", "hold", "concurrency", "ramp-up"})

	fmt.Fprintf(out, "\nRun Control:\n")
	printFlagCategory(out, fs, []string{"timeout", "check-interval", "stop-timeout"})

	fmt.Fprintf(out, "\nObservability:\n")
	printFlagCategory(out, fs, []string{"metrics", "metrics-dump", "verbose", "log-format", "log-level", "tui"})

	fmt.Fprintf(out, "\nDiagnostics:\n")
	printFlagCategory(out, fs, []string{"config", "print-cmd", "skip-preflight", "version"})

	fmt.Fprintf(out, `
Examples:
  # NUnit suite, 10 workers for 2 minutes
  dotnet-harness --runner nunit-dotnet --concurrency 10 --hold 2m Tests.dll

  # xUnit suite with live dashboard and metrics
  dotnet-harness --runner xunit --tui --metrics 127.0.0.1:17091 Tests.dll

  # Show the runner command line only
  dotnet-harness --print-cmd Tests.dll

`)
}

// printFlagCategory prints flags matching the given names (helper for usage).
func printFlagCategory(out io.Writer, fs *pflag.FlagSet, names []string) {
	for _, name := range names {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		flagName := "--" + f.Name
		if f.Shorthand != "" {
			flagName = fmt.Sprintf("-%s, --%s", f.Shorthand, f.Name)
		}
		fmt.Fprintf(out, "  %s %s\n    \t%s", flagName, flagType(f), f.Usage)
		if hasDefault(f.DefValue) {
			fmt.Fprintf(out, " (default %s)", f.DefValue)
		}
		fmt.Fprintln(out)
	}
}

// flagType returns a type hint for the flag value.
func flagType(f *pflag.Flag) string {
	switch f.Value.Type() {
	case "bool":
		return ""
	case "int":
		return "int"
	case "duration":
		return "duration"
	default:
		return "string"
	}
}

func hasDefault(def string) bool {
	switch def {
	case "", "false", "0", "0s", "[]":
		return false
	}
	return true
}
