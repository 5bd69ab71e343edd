package config

import (
	"strings"
	"testing"
)

func TestValidate_ValidConfig(t *testing.T) {
	cfg := Config{
		TickIntervalStr: "1s",
		Timezone:        "UTC",
	}

	if err := Validate(cfg); err != nil {
		t.Errorf("valid config should not return error, got: %v", err)
	}
}

func TestValidate_NoDatabaseIsFine(t *testing.T) {
	// DATABASE_URL is optional: without it there is simply no execution
	// history. Only recovery depends on it.
	cfg := Config{
		DatabaseURL:     "",
		TickIntervalStr: "1s",
	}

	if err := Validate(cfg); err != nil {
		t.Errorf("config without DATABASE_URL should be valid, got: %v", err)
	}
}

func TestValidate_RecoveryRequiresDatabase(t *testing.T) {
	cfg := Config{
		TickIntervalStr: "1s",
		RecoveryEnabled: true,
	}

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected error for RECOVERY_ENABLED without DATABASE_URL")
	}
	if !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Errorf("error should mention DATABASE_URL: %q", err.Error())
	}
}

func TestValidate_InvalidTickInterval(t *testing.T) {
	tests := []struct {
		name     string
		interval string
		wantErr  string
	}{
		{"non-parseable", "invalid", "invalid duration"},
		{"negative", "-1s", "must be positive"},
		{"zero", "0s", "must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{
				TickIntervalStr: tt.interval,
			}

			err := Validate(cfg)
			if err == nil {
				t.Fatalf("expected error for tick_interval=%q", tt.interval)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidate_Timezone(t *testing.T) {
	for _, zone := range []string{"UTC", "America/New_York", "Europe/Paris"} {
		cfg := Config{TickIntervalStr: "1s", Timezone: zone}
		if err := Validate(cfg); err != nil {
			t.Errorf("timezone %q should be valid, got: %v", zone, err)
		}
	}

	cfg := Config{TickIntervalStr: "1s", Timezone: "Mars/Olympus_Mons"}
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected error for unknown timezone")
	}
	if !strings.Contains(err.Error(), "TIMEZONE") {
		t.Errorf("error should mention TIMEZONE: %q", err.Error())
	}
}

func TestValidate_InvalidRecoveryThreshold(t *testing.T) {
	cfg := Config{
		DatabaseURL:          "postgres://localhost/batchcron",
		TickIntervalStr:      "1s",
		RecoveryThresholdStr: "-5m",
	}

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected error for negative RECOVERY_THRESHOLD")
	}
	if !strings.Contains(err.Error(), "RECOVERY_THRESHOLD") {
		t.Errorf("error should mention RECOVERY_THRESHOLD: %q", err.Error())
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	cfg := Config{
		TickIntervalStr: "invalid",
		Timezone:        "Nowhere/Nothing",
	}

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected errors")
	}

	errs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}

	if len(errs) != 2 {
		t.Errorf("expected 2 validation errors, got %d: %v", len(errs), errs)
	}
}

func TestValidationError_Format(t *testing.T) {
	err := ValidationError{Field: "TICK_INTERVAL", Message: "must be positive"}
	got := err.Error()
	want := "TICK_INTERVAL: must be positive"
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestValidationErrors_Format(t *testing.T) {
	// Single error
	single := ValidationErrors{{Field: "F1", Message: "M1"}}
	if single.Error() != "F1: M1" {
		t.Errorf("single error = %q, want 'F1: M1'", single.Error())
	}

	// Multiple errors
	multi := ValidationErrors{
		{Field: "F1", Message: "M1"},
		{Field: "F2", Message: "M2"},
	}
	got := multi.Error()
	if !strings.Contains(got, "2 validation errors") {
		t.Errorf("multi error should contain '2 validation errors': %q", got)
	}
	if !strings.Contains(got, "F1: M1") || !strings.Contains(got, "F2: M2") {
		t.Errorf("multi error should contain both errors: %q", got)
	}

	// Empty
	empty := ValidationErrors{}
	if empty.Error() != "" {
		t.Errorf("empty errors should return empty string, got %q", empty.Error())
	}
}
