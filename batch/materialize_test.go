package batch

import (
	"sync"
	"testing"
	"time"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestMaterializer_DistinctKeysAcrossFirings(t *testing.T) {
	def := buildParamDefinition(t)

	base := time.Date(2024, 1, 15, 2, 0, 0, 0, time.UTC)
	m := NewMaterializer().WithClock(fixedClock(base))

	first := m.Materialize(def)
	m.WithClock(fixedClock(base.Add(time.Second)))
	second := m.Materialize(def)

	if first.Key() == second.Key() {
		t.Error("two firings at different instants produced the same key")
	}

	d1, _ := first.Parameters.Get(ExecuteDateKey)
	d2, _ := second.Parameters.Get(ExecuteDateKey)
	if d1.Time().Equal(d2.Time()) {
		t.Error("executeDate did not advance between firings")
	}
}

// Even with a frozen clock, the sequence tiebreaker keeps keys distinct.
func TestMaterializer_DistinctKeysSameInstant(t *testing.T) {
	def := buildParamDefinition(t)

	m := NewMaterializer().WithClock(fixedClock(time.Date(2024, 1, 15, 2, 0, 0, 0, time.UTC)))
	first := m.Materialize(def)
	second := m.Materialize(def)

	if first.Key() == second.Key() {
		t.Error("two firings at the same instant produced the same key")
	}
}

func TestMaterializer_Deterministic(t *testing.T) {
	def := buildParamDefinition(t)

	m := NewMaterializer().WithClock(fixedClock(time.Date(2024, 1, 15, 2, 0, 0, 0, time.UTC)))
	req := m.Materialize(def)

	if req.JobName != def.Name() {
		t.Errorf("JobName = %q, want %q", req.JobName, def.Name())
	}

	// Non-synthetic parameters are identical to the source definition's.
	for _, key := range def.Parameters().Keys() {
		want, _ := def.Parameters().Get(key)
		got, ok := req.Parameters.Get(key)
		if !ok {
			t.Fatalf("parameter %q missing from request", key)
		}
		if !got.Equal(want) {
			t.Errorf("parameter %q = %v, want %v", key, got, want)
		}
	}

	// Exactly the two synthetic keys are added.
	if req.Parameters.Len() != def.Parameters().Len()+2 {
		t.Errorf("request Len() = %d, want %d", req.Parameters.Len(), def.Parameters().Len()+2)
	}
}

// executeDate is reserved at materialization: a caller-supplied value is
// overwritten on every firing.
func TestMaterializer_OverwritesCallerExecuteDate(t *testing.T) {
	b := NewJobDefinitionBuilder().SetName("job")
	stale := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := b.AddParameter(ExecuteDateKey, stale); err != nil {
		t.Fatalf("AddParameter failed: %v", err)
	}
	def, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	now := time.Date(2024, 1, 15, 2, 0, 0, 0, time.UTC)
	req := NewMaterializer().WithClock(fixedClock(now)).Materialize(def)

	p, _ := req.Parameters.Get(ExecuteDateKey)
	if !p.Time().Equal(now) {
		t.Errorf("executeDate = %v, want firing time %v", p.Time(), now)
	}
}

func TestMaterializer_ConcurrentFiringsUnique(t *testing.T) {
	def := buildParamDefinition(t)
	m := NewMaterializer().WithClock(fixedClock(time.Date(2024, 1, 15, 2, 0, 0, 0, time.UTC)))

	const firings = 100
	keys := make(chan string, firings)

	var wg sync.WaitGroup
	for i := 0; i < firings; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			keys <- m.Materialize(def).Key()
		}()
	}
	wg.Wait()
	close(keys)

	seen := make(map[string]bool, firings)
	for key := range keys {
		if seen[key] {
			t.Fatalf("duplicate key across concurrent firings: %s", key)
		}
		seen[key] = true
	}
}

func TestExecutionRequest_KeyOrderIndependent(t *testing.T) {
	a := NewParameterSet()
	a.Set("region", TextParam("us-east"))
	a.Set("retries", IntParam(5))

	b := NewParameterSet()
	b.Set("retries", IntParam(5))
	b.Set("region", TextParam("us-east"))

	reqA := ExecutionRequest{JobName: "job", Parameters: a}
	reqB := ExecutionRequest{JobName: "job", Parameters: b}
	if reqA.Key() != reqB.Key() {
		t.Error("insertion order changed the execution key")
	}

	b.Set("retries", IntParam(6))
	if reqA.Key() == reqB.Key() {
		t.Error("different parameter values share an execution key")
	}
}

func buildParamDefinition(t *testing.T) *JobDefinition {
	t.Helper()
	b := NewJobDefinitionBuilder().SetName("nightly-report")
	if err := b.AddParameter("region", "us-east"); err != nil {
		t.Fatalf("AddParameter failed: %v", err)
	}
	if err := b.AddParameter("retries", 5); err != nil {
		t.Fatalf("AddParameter failed: %v", err)
	}
	def, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return def
}
