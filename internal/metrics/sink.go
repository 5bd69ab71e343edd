package metrics

import "time"

// Sink defines the interface for recording metrics.
// All methods are fire-and-forget: implementations MUST NOT block or propagate errors.
// If the metrics backend is unavailable, implementations log warnings and continue.
type Sink interface {
	// Scheduler metrics
	TickStarted()
	TickCompleted(duration time.Duration, firings int, err error)
	TickDrift(drift time.Duration)
	FiringEmitted()

	// Engine metrics
	ExecutionCompleted(outcome string, duration time.Duration)
	DuplicateRejected()
	EventsInFlightIncr()
	EventsInFlightDecr()

	// EventBus metrics
	BufferSizeUpdate(size int)
	BufferCapacitySet(capacity int)
	EmitError()

	// Recovery metrics
	InterruptedReplayed(count int)
}

// Outcome constants for ExecutionCompleted.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
)
