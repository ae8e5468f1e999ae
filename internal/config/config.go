// Package config provides configuration management for go-dotnet-harness.
package config

import (
	"time"

	"github.com/randomizedcoder/go-dotnet-harness/internal/process"
	"github.com/randomizedcoder/go-dotnet-harness/internal/profile"
)

// Config holds all configuration options for a harness run.
type Config struct {
	// Runner
	Runner       string `yaml:"runner"`
	ResourcesDir string `yaml:"resources_dir"`
	ArtifactsDir string `yaml:"artifacts_dir"`
	DotnetPath   string `yaml:"dotnet_path"` // overrides the profile default
	Script       string `yaml:"script"`

	// Load
	Load process.LoadProfile `yaml:"load"`

	// Host polling loop
	Timeout       time.Duration `yaml:"timeout"` // 0 = no wall-clock limit
	CheckInterval time.Duration `yaml:"check_interval"`
	StopTimeout   time.Duration `yaml:"stop_timeout"`

	// Observability
	MetricsAddr string `yaml:"metrics_addr"` // empty = no HTTP server
	MetricsDump string `yaml:"metrics_dump"`
	Verbose     bool   `yaml:"verbose"`
	LogFormat   string `yaml:"log_format"` // json, text
	LogLevel    string `yaml:"log_level"`

	// Dashboard
	TUIEnabled bool `yaml:"tui"`

	// Diagnostic modes (command line only)
	PrintCmd      bool   `yaml:"-"`
	SkipPreflight bool   `yaml:"skip_preflight"`
	ShowVersion   bool   `yaml:"-"`
	ConfigFile    string `yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		// Runner
		Runner:       string(profile.KindNUnitDotNet),
		ResourcesDir: "resources",
		ArtifactsDir: "artifacts",

		// Host polling loop
		Timeout:       0, // Unlimited
		CheckInterval: 500 * time.Millisecond,
		StopTimeout:   process.DefaultStopTimeout,

		// Observability
		Verbose:   false,
		LogFormat: "json",
		LogLevel:  "info",
	}
}
