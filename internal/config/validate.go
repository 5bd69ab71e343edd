package config

import (
	"fmt"
	"time"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	msg := fmt.Sprintf("%d validation errors:", len(e))
	for _, err := range e {
		msg += "\n  - " + err.Error()
	}
	return msg
}

// Validate checks the configuration for errors.
// Returns nil if valid, or ValidationErrors if invalid.
func Validate(cfg Config) error {
	var errs ValidationErrors

	// TICK_INTERVAL must be a valid positive duration
	if cfg.TickIntervalStr != "" {
		d, err := time.ParseDuration(cfg.TickIntervalStr)
		if err != nil {
			errs = append(errs, ValidationError{
				Field:   "TICK_INTERVAL",
				Message: fmt.Sprintf("invalid duration: %v", err),
			})
		} else if d <= 0 {
			errs = append(errs, ValidationError{
				Field:   "TICK_INTERVAL",
				Message: "must be positive",
			})
		}
	}

	// TIMEZONE must be a loadable IANA zone
	if cfg.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Timezone); err != nil {
			errs = append(errs, ValidationError{
				Field:   "TIMEZONE",
				Message: fmt.Sprintf("unknown timezone: %v", err),
			})
		}
	}

	// Recovery replays from the execution history, which lives in Postgres.
	if cfg.RecoveryEnabled && cfg.DatabaseURL == "" {
		errs = append(errs, ValidationError{
			Field:   "RECOVERY_ENABLED",
			Message: "requires DATABASE_URL",
		})
	}

	if cfg.RecoveryThresholdStr != "" {
		d, err := time.ParseDuration(cfg.RecoveryThresholdStr)
		if err != nil {
			errs = append(errs, ValidationError{
				Field:   "RECOVERY_THRESHOLD",
				Message: fmt.Sprintf("invalid duration: %v", err),
			})
		} else if d <= 0 {
			errs = append(errs, ValidationError{
				Field:   "RECOVERY_THRESHOLD",
				Message: "must be positive",
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
