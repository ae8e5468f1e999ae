// Package main provides the dotnet-harness CLI entry point.
//
// dotnet-harness drives an external .NET test runner (NUnit on .NET Core or
// xUnit) as a child process, translating a load profile into runner flags
// and summarizing the runner's line-delimited JSON report.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"github.com/spf13/pflag"

	"github.com/randomizedcoder/go-dotnet-harness/internal/config"
	"github.com/randomizedcoder/go-dotnet-harness/internal/logging"
	"github.com/randomizedcoder/go-dotnet-harness/internal/orchestrator"
)

// version is set at build time via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0" ./cmd/dotnet-harness
var version = "dev"

// logFileName receives logs while the dashboard owns the terminal.
const logFileName = "dotnet-harness.log"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	// Parse command-line flags
	cfg, err := config.ParseFlags(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		return 1
	}

	if cfg.ShowVersion {
		fmt.Printf("dotnet-harness %s\n", version)
		return 0
	}

	// Validate configuration
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 1
	}

	// Initialize logger
	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening log file: %v\n", err)
		return 1
	}
	defer closeLog()
	logging.SetDefault(logger)

	orch, err := orchestrator.New(cfg, logger, orchestrator.Options{
		Version: version,
		Out:     os.Stdout,
		Color:   isatty.IsTerminal(os.Stdout.Fd()),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 1
	}

	// Handle --print-cmd mode
	if cfg.PrintCmd {
		orch.PrintCommand(os.Stdout)
		return 0
	}

	// Log startup
	logger.Info("starting",
		"version", version,
		"runner", cfg.Runner,
		"script", cfg.Script,
		"iterations", cfg.Load.Iterations,
		"hold", cfg.Load.Hold.String(),
		"concurrency", cfg.Load.Concurrency,
		"ramp_up", cfg.Load.RampUp.String(),
		"metrics_addr", cfg.MetricsAddr,
	)

	if err := orch.Run(context.Background()); err != nil {
		logger.Error("run_failed", "error", err)
		if cfg.TUIEnabled {
			fmt.Fprintf(os.Stderr, "Run failed: %v\n", err)
		}
		return 1
	}

	return 0
}

// newLogger builds the process logger. While the dashboard is enabled, logs
// go to a file in the artifacts directory instead of the terminal.
func newLogger(cfg *config.Config) (*slog.Logger, func(), error) {
	if !cfg.TUIEnabled {
		return logging.NewLogger(cfg.LogFormat, cfg.LogLevel, cfg.Verbose), func() {}, nil
	}

	if err := os.MkdirAll(cfg.ArtifactsDir, 0o755); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(filepath.Join(cfg.ArtifactsDir, logFileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return logging.New(f, cfg.LogFormat, cfg.LogLevel, cfg.Verbose), func() { f.Close() }, nil
}
