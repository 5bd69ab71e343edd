package batch

import (
	"errors"
	"testing"
)

func buildTestDefinition(t *testing.T) *JobDefinition {
	t.Helper()
	def, err := NewJobDefinitionBuilder().SetName("nightly-report").Build()
	if err != nil {
		t.Fatalf("Build definition failed: %v", err)
	}
	return def
}

func TestTriggerBinder_Build(t *testing.T) {
	def := buildTestDefinition(t)

	binding, err := NewTriggerBinder().
		SetName("nightly").
		SetCronExpression("0 0 2 * * ?").
		SetJobDefinition(def).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if binding.Name() != "nightly" {
		t.Errorf("Name() = %q, want %q", binding.Name(), "nightly")
	}
	if binding.CronExpression() != "0 0 2 * * ?" {
		t.Errorf("CronExpression() = %q, want %q", binding.CronExpression(), "0 0 2 * * ?")
	}
	if binding.JobDefinition() != def {
		t.Error("JobDefinition() does not reference the bound definition")
	}
}

func TestTriggerBinder_CallOrderIrrelevant(t *testing.T) {
	def := buildTestDefinition(t)

	binding, err := NewTriggerBinder().
		SetJobDefinition(def).
		SetCronExpression("0 */5 * * * *").
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if binding.Name() != "" {
		t.Errorf("Name() = %q, want empty (scheduler-assigned)", binding.Name())
	}
}

func TestTriggerBinder_Incomplete(t *testing.T) {
	def := buildTestDefinition(t)

	tests := []struct {
		name   string
		binder *TriggerBinder
	}{
		{"missing cron expression", NewTriggerBinder().SetJobDefinition(def)},
		{"missing job definition", NewTriggerBinder().SetCronExpression("0 0 2 * * ?")},
		{"missing both", NewTriggerBinder()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.binder.Build()
			if !errors.Is(err, ErrIncompleteTrigger) {
				t.Errorf("Build error = %v, want ErrIncompleteTrigger", err)
			}
		})
	}
}
