package metrics

import (
	"errors"
	"testing"
	"time"
)

func TestNoopSink_AllMethods(t *testing.T) {
	// Verify that calling all methods on NoopSink does not panic.
	s := NewNoopSink()

	// Scheduler metrics
	s.TickStarted()
	s.TickCompleted(100*time.Millisecond, 5, nil)
	s.TickCompleted(100*time.Millisecond, 0, errors.New("tick failed"))
	s.TickDrift(10 * time.Millisecond)
	s.FiringEmitted()

	// Engine metrics
	s.ExecutionCompleted(OutcomeSuccess, 200*time.Millisecond)
	s.ExecutionCompleted(OutcomeFailed, 200*time.Millisecond)
	s.DuplicateRejected()
	s.EventsInFlightIncr()
	s.EventsInFlightDecr()

	// EventBus metrics
	s.BufferSizeUpdate(10)
	s.BufferCapacitySet(100)
	s.EmitError()

	// Recovery metrics
	s.InterruptedReplayed(3)
}

// Verify NoopSink implements Sink interface.
var _ Sink = (*NoopSink)(nil)
