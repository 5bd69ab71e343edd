package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/gonggit/spring-batch-quartz/batch"
)

// bindingSpec is the JSON shape of one trigger binding.
type bindingSpec struct {
	Name string  `json:"name,omitempty"`
	Cron string  `json:"cron"`
	Job  jobSpec `json:"job"`
}

type jobSpec struct {
	Name             string                     `json:"name"`
	Durable          *bool                      `json:"durable,omitempty"`
	RequestsRecovery *bool                      `json:"requestsRecovery,omitempty"`
	Parameters       map[string]json.RawMessage `json:"parameters,omitempty"`
}

// loadBindings reads a JSON array of trigger bindings from path and builds
// them through the regular builder chain, so file errors surface with the
// same messages a programmatic caller would see.
func loadBindings(path string) ([]*batch.TriggerBinding, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bindings file: %w", err)
	}

	var specs []bindingSpec
	if err := json.Unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("parse bindings file: %w", err)
	}

	bindings := make([]*batch.TriggerBinding, 0, len(specs))
	for i, spec := range specs {
		binding, err := buildBinding(spec)
		if err != nil {
			return nil, fmt.Errorf("binding %d: %w", i, err)
		}
		bindings = append(bindings, binding)
	}
	return bindings, nil
}

func buildBinding(spec bindingSpec) (*batch.TriggerBinding, error) {
	builder := batch.NewJobDefinitionBuilder().SetName(spec.Job.Name)
	if spec.Job.Durable != nil {
		builder.SetDurability(*spec.Job.Durable)
	}
	if spec.Job.RequestsRecovery != nil {
		builder.SetRequestsRecovery(*spec.Job.RequestsRecovery)
	}

	for key, raw := range spec.Job.Parameters {
		value, err := decodeParamValue(raw)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", key, err)
		}
		if err := builder.AddParameter(key, value); err != nil {
			return nil, fmt.Errorf("parameter %q: %w", key, err)
		}
	}

	def, err := builder.Build()
	if err != nil {
		return nil, err
	}

	return batch.NewTriggerBinder().
		SetName(spec.Name).
		SetCronExpression(spec.Cron).
		SetJobDefinition(def).
		Build()
}

// decodeParamValue maps a raw JSON value onto the parameter type system:
// strings stay text, integral numbers become int64, other numbers float64.
func decodeParamValue(raw json.RawMessage) (any, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}

	var num json.Number
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	if err := dec.Decode(&num); err == nil {
		if i, err := num.Int64(); err == nil {
			return i, nil
		}
		if f, err := num.Float64(); err == nil {
			return f, nil
		}
	}

	return nil, fmt.Errorf("unsupported JSON value %s (only strings and numbers)", string(raw))
}
