package config

import (
	"errors"
	"fmt"
	"os"
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
// Returns nil if valid, or an error describing every problem found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.FilePath == "" {
		errs = append(errs, ValidationError{
			Field:   "file_path",
			Message: "statistics file path is required",
		})
	} else if fi, err := os.Stat(cfg.FilePath); err != nil {
		errs = append(errs, ValidationError{
			Field:   "file_path",
			Message: err.Error(),
		})
	} else if fi.IsDir() {
		errs = append(errs, ValidationError{
			Field:   "file_path",
			Message: "must be a file, not a directory",
		})
	}

	if cfg.Frame < 0 {
		errs = append(errs, ValidationError{
			Field:   "frame",
			Message: "must be >= 0",
		})
	}
	if cfg.FrameEnd >= 0 && cfg.FrameEnd < cfg.Frame {
		errs = append(errs, ValidationError{
			Field:   "frame_end",
			Message: fmt.Sprintf("must be >= frame (%d)", cfg.Frame),
		})
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.LogFormat] {
		errs = append(errs, ValidationError{
			Field:   "log_format",
			Message: fmt.Sprintf("must be 'json' or 'text' (got %q)", cfg.LogFormat),
		})
	}

	if cfg.TickInterval <= 0 {
		errs = append(errs, ValidationError{
			Field:   "tick_interval",
			Message: "must be positive",
		})
	}

	if cfg.EventBuffer < 1 {
		errs = append(errs, ValidationError{
			Field:   "event_buffer",
			Message: "must be at least 1",
		})
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
