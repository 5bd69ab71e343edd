// Package channel provides the in-memory firing-event bus between the
// scheduler and the execution engine.
package channel

import (
	"context"
	"errors"
	"time"

	"github.com/gonggit/spring-batch-quartz/internal/domain"
)

// ErrBufferFull is returned by Emit when the buffer stays full past the
// emit timeout.
var ErrBufferFull = errors.New("event bus buffer full")

// MetricsSink records bus buffer metrics. Methods must not block.
type MetricsSink interface {
	BufferSizeUpdate(size int)
	BufferCapacitySet(capacity int)
	EmitError()
}

type Option func(*EventBus)

// WithEmitTimeout bounds how long Emit blocks on a full buffer before
// returning ErrBufferFull. Zero means block until ctx is done.
func WithEmitTimeout(d time.Duration) Option {
	return func(b *EventBus) {
		b.emitTimeout = d
	}
}

// WithMetrics attaches a metrics sink to the bus.
func WithMetrics(sink MetricsSink) Option {
	return func(b *EventBus) {
		b.metrics = sink
	}
}

type EventBus struct {
	ch          chan domain.FiringEvent
	emitTimeout time.Duration
	metrics     MetricsSink
}

func NewEventBus(buffer int, opts ...Option) *EventBus {
	b := &EventBus{
		ch: make(chan domain.FiringEvent, buffer),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.metrics != nil {
		b.metrics.BufferCapacitySet(buffer)
	}
	return b
}

func (b *EventBus) Emit(ctx context.Context, event domain.FiringEvent) error {
	var timeout <-chan time.Time
	if b.emitTimeout > 0 {
		timer := time.NewTimer(b.emitTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case b.ch <- event:
		if b.metrics != nil {
			b.metrics.BufferSizeUpdate(len(b.ch))
		}
		return nil
	case <-timeout:
		if b.metrics != nil {
			b.metrics.EmitError()
		}
		return ErrBufferFull
	case <-ctx.Done():
		if b.metrics != nil {
			b.metrics.EmitError()
		}
		return ctx.Err()
	}
}

func (b *EventBus) Channel() <-chan domain.FiringEvent {
	return b.ch
}
