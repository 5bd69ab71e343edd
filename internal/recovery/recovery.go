// Package recovery replays executions that were interrupted mid-run.
//
// An execution is interrupted when its history row is still 'running' past
// a threshold, which happens when the process died between claiming the key
// and recording a terminal status. Only definitions that requested recovery
// are replayed. Each replay is re-materialized from the registered
// definition, so it carries a fresh execution key and the engine's dedup
// store accepts it.
package recovery

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/gonggit/spring-batch-quartz/batch"
	"github.com/gonggit/spring-batch-quartz/internal/domain"
)

// Store fetches interrupted executions from the history store.
type Store interface {
	GetInterruptedExecutions(ctx context.Context, olderThan time.Time, maxResults int) ([]domain.ExecutionRecord, error)
}

// Registry resolves job names to their registered definitions.
type Registry interface {
	Definition(jobName string) (*batch.JobDefinition, bool)
}

// EventEmitter emits replayed firing events.
type EventEmitter interface {
	Emit(ctx context.Context, event domain.FiringEvent) error
}

// MetricsSink records recovery metrics.
type MetricsSink interface {
	InterruptedReplayed(count int)
}

// Config holds recovery configuration.
type Config struct {
	// Interval is how often the recovery scan runs.
	// Default: 5 minutes.
	Interval time.Duration

	// Threshold is the age after which a running execution is considered
	// interrupted. Must exceed the longest legitimate job run.
	// Default: 10 minutes.
	Threshold time.Duration

	// BatchSize is the maximum number of replays per cycle.
	// Default: 100.
	BatchSize int
}

// DefaultConfig returns the default recovery configuration.
func DefaultConfig() Config {
	return Config{
		Interval:  5 * time.Minute,
		Threshold: 10 * time.Minute,
		BatchSize: 100,
	}
}

// Recovery detects interrupted executions and replays them.
type Recovery struct {
	config       Config
	store        Store
	registry     Registry
	emitter      EventEmitter
	materializer *batch.Materializer
	metrics      MetricsSink // optional, nil = disabled
	clock        func() time.Time
}

// New creates a new Recovery.
func New(config Config, store Store, registry Registry, emitter EventEmitter, materializer *batch.Materializer) *Recovery {
	return &Recovery{
		config:       config,
		store:        store,
		registry:     registry,
		emitter:      emitter,
		materializer: materializer,
		clock:        time.Now,
	}
}

// WithMetrics attaches a metrics sink.
func (r *Recovery) WithMetrics(sink MetricsSink) *Recovery {
	r.metrics = sink
	return r
}

// WithClock replaces the clock, for tests.
func (r *Recovery) WithClock(clock func() time.Time) *Recovery {
	r.clock = clock
	return r
}

// Run starts the recovery loop. It blocks until ctx is cancelled.
func (r *Recovery) Run(ctx context.Context) {
	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	log.Printf("recovery: started (interval=%s, threshold=%s, batch=%d)",
		r.config.Interval, r.config.Threshold, r.config.BatchSize)

	// Run immediately on startup, then on ticker
	r.RunCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Println("recovery: stopped")
			return
		case <-ticker.C:
			r.RunCycle(ctx)
		}
	}
}

// RunCycle executes one recovery scan. Exported for tests.
func (r *Recovery) RunCycle(ctx context.Context) {
	now := r.clock().UTC()
	threshold := now.Add(-r.config.Threshold)

	interrupted, err := r.store.GetInterruptedExecutions(ctx, threshold, r.config.BatchSize)
	if err != nil {
		// DB error: log and abort cycle. Will retry next interval.
		log.Printf("recovery: failed to fetch interrupted executions: %v", err)
		return
	}

	if len(interrupted) == 0 {
		return
	}

	log.Printf("recovery: found %d interrupted executions", len(interrupted))

	replayed := 0
	skipped := 0

	for _, rec := range interrupted {
		// Check context before each emit to allow graceful shutdown
		if ctx.Err() != nil {
			log.Printf("recovery: cycle interrupted, processed %d/%d", replayed+skipped, len(interrupted))
			return
		}

		if !rec.RequestsRecovery {
			skipped++
			continue
		}

		def, ok := r.registry.Definition(rec.JobName)
		if !ok {
			// Definition no longer registered (non-durable job unbound, or a
			// restart without re-registration). Nothing to replay from.
			log.Printf("recovery: job=%s no registered definition, skipping execution=%s", rec.JobName, rec.ID)
			skipped++
			continue
		}

		event := domain.FiringEvent{
			FiringID:         uuid.New(),
			TriggerName:      rec.TriggerName,
			Request:          r.materializer.Materialize(def),
			Durable:          def.Durable(),
			RequestsRecovery: def.RequestsRecovery(),
			ScheduledAt:      rec.ScheduledAt,
			FiredAt:          now,
			CreatedAt:        now,
		}

		if err := r.emitter.Emit(ctx, event); err != nil {
			// Emit failed (buffer full, context cancelled).
			// Log and continue - will retry next cycle.
			log.Printf("recovery: failed to replay execution=%s job=%s: %v", rec.ID, rec.JobName, err)
			continue
		}

		log.Printf("recovery: replayed execution=%s job=%s (age=%s)",
			rec.ID, rec.JobName, now.Sub(rec.CreatedAt).Round(time.Second))
		replayed++
	}

	if r.metrics != nil {
		r.metrics.InterruptedReplayed(replayed)
	}
	log.Printf("recovery: cycle complete, replayed=%d, skipped=%d", replayed, skipped)
}
