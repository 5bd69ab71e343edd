package batch

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync/atomic"
	"time"
)

// Keys the materializer injects into every execution request. ExecuteDateKey
// is reserved at materialization, not at builder time: a value added by the
// caller is overwritten on every firing.
const (
	ExecuteDateKey  = "executeDate"
	FireSequenceKey = "fireSequence"
)

// ExecutionRequest is the ephemeral (name, parameter set) pair submitted to
// the execution engine for one firing. The parameter set is augmented with
// the firing timestamp and a per-materializer sequence number so the
// engine's (name, parameters) deduplication key never collides across
// firings of the same trigger.
type ExecutionRequest struct {
	JobName    string
	Parameters *ParameterSet
}

// Key returns the canonical deduplication key: a sha256 over the job name
// and the typed parameters in lexical key order. Two requests with the same
// name and parameter values share a key regardless of insertion order.
func (r ExecutionRequest) Key() string {
	var sb strings.Builder
	sb.WriteString(r.JobName)
	for _, k := range r.Parameters.sortedKeys() {
		p, _ := r.Parameters.Get(k)
		sb.WriteByte('\n')
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(p.Kind().String())
		sb.WriteByte(':')
		sb.WriteString(p.encode())
	}
	hash := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(hash[:])
}

// Materializer turns a frozen JobDefinition into a fresh execution request
// per firing. Wall-clock time alone cannot tell two firings apart when the
// clock's resolution is coarser than the firing interval, so every request
// also carries an atomically incremented sequence number.
//
// Materialize is safe to call concurrently; each call allocates its own
// augmented parameter set.
type Materializer struct {
	clock func() time.Time
	seq   atomic.Uint64
}

// NewMaterializer returns a Materializer using the system clock.
func NewMaterializer() *Materializer {
	return &Materializer{clock: time.Now}
}

// WithClock replaces the clock, for tests.
func (m *Materializer) WithClock(clock func() time.Time) *Materializer {
	m.clock = clock
	return m
}

// Materialize derives an execution request from def at the current instant.
// The returned request shares nothing with previous firings: its parameter
// set is def's parameters plus a fresh executeDate and fireSequence entry.
func (m *Materializer) Materialize(def *JobDefinition) ExecutionRequest {
	params := def.Parameters()
	params.Set(ExecuteDateKey, TimeParam(m.clock().UTC()))
	params.Set(FireSequenceKey, IntParam(int64(m.seq.Add(1))))
	return ExecutionRequest{
		JobName:    def.Name(),
		Parameters: params,
	}
}
