// Package engine implements the idempotent job execution engine: it accepts
// firing events, claims each execution key exactly once, and runs the
// handler registered for the job name. A key that was already claimed is
// discarded, which is what makes the materializer's per-firing key
// perturbation load-bearing.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gonggit/spring-batch-quartz/batch"
	"github.com/gonggit/spring-batch-quartz/internal/domain"
)

// ErrDuplicateRequest is returned by DedupStore.Claim when the execution
// key was already claimed.
var ErrDuplicateRequest = errors.New("execution request already claimed")

// ErrStatusTransitionDenied is returned when a status update would regress
// from a terminal state (completed/failed).
var ErrStatusTransitionDenied = errors.New("status transition denied: execution already in terminal state")

// ErrUnknownJob is returned when no handler is registered for the job name.
var ErrUnknownJob = errors.New("no handler registered for job")

// Handler runs one job execution. The request's parameter set includes the
// synthetic executeDate and fireSequence entries for this firing.
type Handler func(ctx context.Context, req batch.ExecutionRequest) error

// DedupStore claims execution keys. Claim MUST return ErrDuplicateRequest
// for a key it has seen before, atomically under concurrent claims.
type DedupStore interface {
	Claim(ctx context.Context, key string) error
}

// HistoryStore records execution history. Implementations MUST reject
// status transitions out of terminal states with ErrStatusTransitionDenied.
type HistoryStore interface {
	InsertExecution(ctx context.Context, record domain.ExecutionRecord) error
	UpdateExecutionStatus(ctx context.Context, id uuid.UUID, status domain.ExecutionStatus) error
}

// MetricsSink records engine metrics. All methods must be non-blocking and
// fire-and-forget.
type MetricsSink interface {
	ExecutionCompleted(outcome string, duration time.Duration)
	DuplicateRejected()
	EventsInFlightIncr()
	EventsInFlightDecr()
}

// Outcome constants for ExecutionCompleted.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
)

type Engine struct {
	mu       sync.RWMutex
	handlers map[string]Handler

	dedup        DedupStore
	history      HistoryStore // optional, nil = disabled
	metrics      MetricsSink  // optional, nil = disabled
	workers      int
	drainTimeout time.Duration
	clock        func() time.Time
}

func New(dedup DedupStore) *Engine {
	return &Engine{
		handlers:     make(map[string]Handler),
		dedup:        dedup,
		workers:      1,
		drainTimeout: DrainTimeout,
		clock:        time.Now,
	}
}

// WithHistory attaches an execution history store.
func (e *Engine) WithHistory(store HistoryStore) *Engine {
	e.history = store
	return e
}

// WithMetrics attaches a metrics sink.
func (e *Engine) WithMetrics(sink MetricsSink) *Engine {
	e.metrics = sink
	return e
}

// WithWorkers sets the number of concurrent event workers.
func (e *Engine) WithWorkers(n int) *Engine {
	if n > 0 {
		e.workers = n
	}
	return e
}

// WithDrainTimeout overrides the shutdown drain timeout.
func (e *Engine) WithDrainTimeout(d time.Duration) *Engine {
	if d > 0 {
		e.drainTimeout = d
	}
	return e
}

// Register binds a handler to a job name, replacing any prior handler.
func (e *Engine) Register(jobName string, h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[jobName] = h
}

func (e *Engine) handler(jobName string) (Handler, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	h, ok := e.handlers[jobName]
	return h, ok
}

// Run processes events from the channel until ctx is cancelled, then drains
// remaining buffered events with a timeout.
func (e *Engine) Run(ctx context.Context, ch <-chan domain.FiringEvent) {
	var wg sync.WaitGroup
	for i := 0; i < e.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.runWorker(ctx, ch)
		}()
	}
	wg.Wait()
}

func (e *Engine) runWorker(ctx context.Context, ch <-chan domain.FiringEvent) {
	for {
		select {
		case <-ctx.Done():
			e.drain(ch)
			return
		case event := <-ch:
			if err := e.Execute(ctx, event); err != nil {
				log.Printf("engine: error: %v", err)
			}
		}
	}
}

// DrainTimeout is the maximum time to wait for buffered events during shutdown.
const DrainTimeout = 30 * time.Second

// drain processes remaining events in the channel buffer after the shutdown
// signal. Uses a background context since the main context is already
// cancelled.
func (e *Engine) drain(ch <-chan domain.FiringEvent) {
	drainCtx, cancel := context.WithTimeout(context.Background(), e.drainTimeout)
	defer cancel()

	count := 0
	for {
		select {
		case <-drainCtx.Done():
			if count > 0 {
				log.Printf("engine: drain timeout, processed %d events", count)
			}
			return
		case event, ok := <-ch:
			if !ok {
				log.Printf("engine: drain complete, processed %d events", count)
				return
			}
			if err := e.Execute(drainCtx, event); err != nil {
				log.Printf("engine: drain error: %v", err)
			}
			count++
		default:
			if count > 0 {
				log.Printf("engine: drain complete, processed %d events", count)
			}
			return
		}
	}
}

// Execute processes a single firing event: claim the key, record history,
// run the handler, record the terminal status. A duplicate key is counted
// and silently discarded.
func (e *Engine) Execute(ctx context.Context, event domain.FiringEvent) error {
	if e.metrics != nil {
		e.metrics.EventsInFlightIncr()
		defer e.metrics.EventsInFlightDecr()
	}

	key := event.Request.Key()

	if err := e.dedup.Claim(ctx, key); err != nil {
		if errors.Is(err, ErrDuplicateRequest) {
			if e.metrics != nil {
				e.metrics.DuplicateRejected()
			}
			log.Printf("engine: job=%s duplicate key, discarding", event.Request.JobName)
			return nil
		}
		return fmt.Errorf("claim key: %w", err)
	}

	e.recordStart(ctx, event, key)

	started := e.clock().UTC()
	h, ok := e.handler(event.Request.JobName)

	var runErr error
	if !ok {
		runErr = fmt.Errorf("%w: %q", ErrUnknownJob, event.Request.JobName)
	} else {
		runErr = h(ctx, event.Request)
	}
	duration := e.clock().UTC().Sub(started)

	if runErr != nil {
		log.Printf("engine: job=%s failed: %v", event.Request.JobName, runErr)
		if e.metrics != nil {
			e.metrics.ExecutionCompleted(OutcomeFailed, duration)
		}
		e.recordFinish(ctx, event, domain.ExecutionStatusFailed)
		return runErr
	}

	log.Printf("engine: job=%s completed in %s", event.Request.JobName, duration.Round(time.Millisecond))
	if e.metrics != nil {
		e.metrics.ExecutionCompleted(OutcomeSuccess, duration)
	}
	e.recordFinish(ctx, event, domain.ExecutionStatusCompleted)
	return nil
}

// recordStart inserts a running history row. History is best-effort and
// never affects execution correctness.
func (e *Engine) recordStart(ctx context.Context, event domain.FiringEvent, key string) {
	if e.history == nil {
		return
	}
	now := e.clock().UTC()
	record := domain.ExecutionRecord{
		ID:               event.FiringID,
		TriggerName:      event.TriggerName,
		JobName:          event.Request.JobName,
		Key:              key,
		ScheduledAt:      event.ScheduledAt,
		FiredAt:          event.FiredAt,
		Status:           domain.ExecutionStatusRunning,
		RequestsRecovery: event.RequestsRecovery,
		CreatedAt:        now,
	}
	if err := e.history.InsertExecution(ctx, record); err != nil {
		log.Printf("engine: failed to record execution start: %v", err)
	}
}

func (e *Engine) recordFinish(ctx context.Context, event domain.FiringEvent, status domain.ExecutionStatus) {
	if e.history == nil {
		return
	}
	if err := e.history.UpdateExecutionStatus(ctx, event.FiringID, status); err != nil {
		if errors.Is(err, ErrStatusTransitionDenied) {
			// Already terminal (likely reprocessing). Safe to ignore.
			log.Printf("engine: execution=%s already terminal, skipping status update", event.FiringID)
			return
		}
		log.Printf("engine: failed to record execution status: %v", err)
	}
}
