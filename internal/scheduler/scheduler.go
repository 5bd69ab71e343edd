// Package scheduler registers trigger bindings and turns their cron
// schedules into firing events, materializing a fresh execution request for
// every firing.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/gonggit/spring-batch-quartz/batch"
	"github.com/gonggit/spring-batch-quartz/internal/domain"
)

type CronParser interface {
	Parse(expression string, timezone string) (CronSchedule, error)
}

type CronSchedule interface {
	Next(after time.Time) time.Time
}

type EventEmitter interface {
	Emit(ctx context.Context, event domain.FiringEvent) error
}

// MetricsSink records scheduler metrics. All methods must be non-blocking
// and fire-and-forget.
type MetricsSink interface {
	TickStarted()
	TickCompleted(duration time.Duration, firings int, err error)
	TickDrift(drift time.Duration)
	FiringEmitted()
}

type Config struct {
	TickInterval time.Duration
	// Timezone is the IANA zone cron expressions are evaluated in.
	// Defaults to UTC.
	Timezone string
}

type Scheduler struct {
	config       Config
	parser       CronParser
	emitter      EventEmitter
	materializer *batch.Materializer
	metrics      MetricsSink // optional, nil = disabled
	clock        func() time.Time
	registry     *registry
	lastTick     time.Time
}

func New(config Config, parser CronParser, emitter EventEmitter, materializer *batch.Materializer) *Scheduler {
	if config.Timezone == "" {
		config.Timezone = "UTC"
	}
	return &Scheduler{
		config:       config,
		parser:       parser,
		emitter:      emitter,
		materializer: materializer,
		clock:        time.Now,
		registry:     newRegistry(),
	}
}

// WithMetrics attaches a metrics sink to the scheduler.
func (s *Scheduler) WithMetrics(sink MetricsSink) *Scheduler {
	s.metrics = sink
	return s
}

// WithClock replaces the clock, for tests.
func (s *Scheduler) WithClock(clock func() time.Time) *Scheduler {
	s.clock = clock
	return s
}

// Register validates the binding's cron expression and adds it to the
// registry. When the binding carries no display name, an identifier is
// assigned. Returns the effective trigger name.
//
// This is where cron syntax errors surface: the binder stores the raw
// expression without validating it.
func (s *Scheduler) Register(binding *batch.TriggerBinding) (string, error) {
	schedule, err := s.parser.Parse(binding.CronExpression(), s.config.Timezone)
	if err != nil {
		return "", fmt.Errorf("register trigger: %w", err)
	}

	name := binding.Name()
	if name == "" {
		name = "trigger-" + uuid.NewString()
	}

	if err := s.registry.add(name, binding, schedule); err != nil {
		return "", fmt.Errorf("register trigger: %w", err)
	}

	log.Printf("scheduler: registered trigger=%s job=%s cron=%q",
		name, binding.JobDefinition().Name(), binding.CronExpression())
	return name, nil
}

// Unregister removes a trigger by name. The job definition is dropped with
// its last trigger unless it is durable.
func (s *Scheduler) Unregister(name string) bool {
	removed := s.registry.remove(name)
	if removed {
		log.Printf("scheduler: unregistered trigger=%s", name)
	}
	return removed
}

// Definition returns the registered definition for a job name. Used by the
// recovery loop to re-materialize interrupted executions.
func (s *Scheduler) Definition(jobName string) (*batch.JobDefinition, bool) {
	return s.registry.definition(jobName)
}

// Run ticks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.config.TickInterval)
	defer ticker.Stop()

	log.Printf("scheduler: started, tick=%s tz=%s", s.config.TickInterval, s.config.Timezone)
	s.lastTick = s.clock().UTC()

	for {
		select {
		case <-ctx.Done():
			log.Println("scheduler: stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := s.ProcessTick(ctx); err != nil {
				log.Printf("scheduler: tick error: %v", err)
			}
		}
	}
}

// ProcessTick fires every due time since the previous tick for every
// registered trigger. Exported for tests driving the scheduler manually.
func (s *Scheduler) ProcessTick(ctx context.Context) error {
	start := s.clock().UTC()

	if s.metrics != nil {
		s.metrics.TickStarted()
		if !s.lastTick.IsZero() {
			s.metrics.TickDrift(start.Sub(s.lastTick) - s.config.TickInterval)
		}
	}

	fired := 0
	for _, reg := range s.registry.snapshot() {
		n, err := s.processTrigger(ctx, reg, s.lastTick, start)
		fired += n
		if err != nil {
			log.Printf("scheduler: trigger %s error: %v", reg.name, err)
		}
	}

	s.lastTick = start
	if s.metrics != nil {
		s.metrics.TickCompleted(s.clock().UTC().Sub(start), fired, nil)
	}
	return nil
}

// processTrigger walks the due times in (lastTick, now] and emits one firing
// per due time. Iteration is bounded so a pathological schedule cannot wedge
// the tick.
func (s *Scheduler) processTrigger(ctx context.Context, reg *registration, lastTick, now time.Time) (int, error) {
	const maxIterations = 1000

	fired := 0
	t := reg.schedule.Next(lastTick)
	for i := 0; i < maxIterations && !t.After(now); i++ {
		if err := s.fire(ctx, reg, t.UTC(), now); err != nil {
			return fired, err
		}
		fired++
		t = reg.schedule.Next(t)
	}
	return fired, nil
}

// fire materializes a fresh execution request for this firing and emits it.
// Materialization is never cached: the request's key must be novel to the
// execution engine or the firing would be discarded as a duplicate.
func (s *Scheduler) fire(ctx context.Context, reg *registration, scheduledAt, now time.Time) error {
	def := reg.binding.JobDefinition()
	request := s.materializer.Materialize(def)

	event := domain.FiringEvent{
		FiringID:         uuid.New(),
		TriggerName:      reg.name,
		Request:          request,
		Durable:          def.Durable(),
		RequestsRecovery: def.RequestsRecovery(),
		ScheduledAt:      scheduledAt,
		FiredAt:          now,
		CreatedAt:        now,
	}

	if err := s.emitter.Emit(ctx, event); err != nil {
		return fmt.Errorf("emit: %w", err)
	}

	if s.metrics != nil {
		s.metrics.FiringEmitted()
	}
	log.Printf("scheduler: fired trigger=%s job=%s scheduled_at=%s",
		reg.name, request.JobName, scheduledAt.Format(time.RFC3339))
	return nil
}
