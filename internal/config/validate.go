package config

import (
	"errors"
	"fmt"
	"net"
	"slices"

	"github.com/randomizedcoder/go-dotnet-harness/internal/profile"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the configuration for errors and inconsistencies.
// Returns nil if valid, or the joined ValidationErrors.
func Validate(cfg *Config) error {
	var errs []error

	// Script is the only required argument
	if cfg.Script == "" {
		errs = append(errs, ValidationError{
			Field:   "script",
			Message: "test script path is required",
		})
	}

	// Runner must be a known kind
	if !slices.Contains(profile.Kinds(), profile.Kind(cfg.Runner)) {
		errs = append(errs, ValidationError{
			Field:   "runner",
			Message: fmt.Sprintf("must be one of: %s (got %q)", kindList(), cfg.Runner),
		})
	}

	if cfg.ResourcesDir == "" {
		errs = append(errs, ValidationError{
			Field:   "resources_dir",
			Message: "must not be empty",
		})
	}

	// Load profile values may be zero but never negative
	if err := cfg.Load.Validate(); err != nil {
		errs = append(errs, ValidationError{
			Field:   "load",
			Message: err.Error(),
		})
	}

	if cfg.Timeout < 0 {
		errs = append(errs, ValidationError{
			Field:   "timeout",
			Message: "must be >= 0",
		})
	}
	if cfg.CheckInterval <= 0 {
		errs = append(errs, ValidationError{
			Field:   "check_interval",
			Message: "must be positive",
		})
	}
	if cfg.StopTimeout <= 0 {
		errs = append(errs, ValidationError{
			Field:   "stop_timeout",
			Message: "must be positive",
		})
	}

	// Metrics address must be host:port
	if cfg.MetricsAddr != "" {
		if _, _, err := net.SplitHostPort(cfg.MetricsAddr); err != nil {
			errs = append(errs, ValidationError{
				Field:   "metrics_addr",
				Message: err.Error(),
			})
		}
	}

	// Log format must be valid
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.LogFormat] {
		errs = append(errs, ValidationError{
			Field:   "log_format",
			Message: fmt.Sprintf("must be 'json' or 'text' (got %q)", cfg.LogFormat),
		})
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLevels[cfg.LogLevel] {
		errs = append(errs, ValidationError{
			Field:   "log_level",
			Message: fmt.Sprintf("must be debug, info, warn or error (got %q)", cfg.LogLevel),
		})
	}

	// Return combined errors
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}
