package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gonggit/spring-batch-quartz/batch"
	"github.com/gonggit/spring-batch-quartz/internal/domain"
	"github.com/gonggit/spring-batch-quartz/internal/testutil"
)

// mockEmitter tracks emitted firing events.
type mockEmitter struct {
	mu     sync.Mutex
	events []domain.FiringEvent
}

func (e *mockEmitter) Emit(ctx context.Context, event domain.FiringEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
	return nil
}

func (e *mockEmitter) all() []domain.FiringEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.FiringEvent, len(e.events))
	copy(out, e.events)
	return out
}

// mockCronParser returns a schedule firing at fixed times.
type mockCronParser struct {
	fireTimes []time.Time
	parseErr  error
}

func (p *mockCronParser) Parse(expression string, timezone string) (CronSchedule, error) {
	if p.parseErr != nil {
		return nil, p.parseErr
	}
	return &mockCronSchedule{fireTimes: p.fireTimes}, nil
}

type mockCronSchedule struct {
	fireTimes []time.Time
}

func (s *mockCronSchedule) Next(after time.Time) time.Time {
	for _, t := range s.fireTimes {
		if t.After(after) {
			return t
		}
	}
	return after.Add(24 * time.Hour)
}

func buildBinding(t *testing.T, triggerName, jobName string, opts ...func(*batch.JobDefinitionBuilder)) *batch.TriggerBinding {
	t.Helper()
	b := batch.NewJobDefinitionBuilder().SetName(jobName)
	for _, opt := range opts {
		opt(b)
	}
	def, err := b.Build()
	if err != nil {
		t.Fatalf("Build definition failed: %v", err)
	}
	binding, err := batch.NewTriggerBinder().
		SetName(triggerName).
		SetCronExpression("0 0 2 * * ?").
		SetJobDefinition(def).
		Build()
	if err != nil {
		t.Fatalf("Build binding failed: %v", err)
	}
	return binding
}

func newTestScheduler(parser CronParser, emitter EventEmitter, clock *testutil.FakeClock) *Scheduler {
	m := batch.NewMaterializer().WithClock(clock.Now)
	return New(Config{TickInterval: time.Minute}, parser, emitter, m).WithClock(clock.Now)
}

func TestScheduler_FiresDueTrigger(t *testing.T) {
	start := time.Date(2024, 1, 15, 1, 59, 30, 0, time.UTC)
	fireTime := time.Date(2024, 1, 15, 2, 0, 0, 0, time.UTC)

	clock := testutil.NewFakeClock(start)
	emitter := &mockEmitter{}
	sched := newTestScheduler(&mockCronParser{fireTimes: []time.Time{fireTime}}, emitter, clock)

	if _, err := sched.Register(buildBinding(t, "nightly", "nightly-report")); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	ctx := testutil.TestContext(t)

	// First tick establishes lastTick; nothing is due yet.
	if err := sched.ProcessTick(ctx); err != nil {
		t.Fatalf("tick failed: %v", err)
	}
	if len(emitter.all()) != 0 {
		t.Fatalf("fired before due time: %d events", len(emitter.all()))
	}

	clock.Advance(time.Minute)
	if err := sched.ProcessTick(ctx); err != nil {
		t.Fatalf("tick failed: %v", err)
	}

	events := emitter.all()
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	event := events[0]
	if event.TriggerName != "nightly" {
		t.Errorf("TriggerName = %q, want %q", event.TriggerName, "nightly")
	}
	if event.Request.JobName != "nightly-report" {
		t.Errorf("JobName = %q, want %q", event.Request.JobName, "nightly-report")
	}
	if !event.ScheduledAt.Equal(fireTime) {
		t.Errorf("ScheduledAt = %v, want %v", event.ScheduledAt, fireTime)
	}
	if !event.Durable || !event.RequestsRecovery {
		t.Error("event should carry the definition's default flags")
	}
}

// Each firing must carry a key the engine has never seen, even for the same
// trigger.
func TestScheduler_FreshKeyPerFiring(t *testing.T) {
	start := time.Date(2024, 1, 15, 1, 59, 59, 0, time.UTC)
	fires := []time.Time{
		time.Date(2024, 1, 15, 2, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 15, 2, 0, 1, 0, time.UTC),
	}

	clock := testutil.NewFakeClock(start)
	emitter := &mockEmitter{}
	sched := newTestScheduler(&mockCronParser{fireTimes: fires}, emitter, clock)

	if _, err := sched.Register(buildBinding(t, "every-second", "tick-job")); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	ctx := testutil.TestContext(t)
	if err := sched.ProcessTick(ctx); err != nil {
		t.Fatalf("tick failed: %v", err)
	}
	clock.Advance(time.Minute)
	if err := sched.ProcessTick(ctx); err != nil {
		t.Fatalf("tick failed: %v", err)
	}

	events := emitter.all()
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2 (both due times in the window)", len(events))
	}
	if events[0].Request.Key() == events[1].Request.Key() {
		t.Error("two firings of the same trigger share an execution key")
	}
}

func TestScheduler_RegisterInvalidCron(t *testing.T) {
	clock := testutil.NewFakeClock(time.Now().UTC())
	emitter := &mockEmitter{}
	m := batch.NewMaterializer().WithClock(clock.Now)

	// Parse errors surface at registration, not at firing.
	parser := &mockCronParser{parseErr: errors.New("bad expression")}
	sched := New(Config{TickInterval: time.Minute}, parser, emitter, m).WithClock(clock.Now)

	_, err := sched.Register(buildBinding(t, "bad", "job"))
	if err == nil {
		t.Fatal("Register should surface the parse error")
	}
}

func TestScheduler_AssignsTriggerName(t *testing.T) {
	clock := testutil.NewFakeClock(time.Now().UTC())
	sched := newTestScheduler(&mockCronParser{}, &mockEmitter{}, clock)

	def, err := batch.NewJobDefinitionBuilder().SetName("job").Build()
	if err != nil {
		t.Fatalf("Build definition failed: %v", err)
	}
	binding, err := batch.NewTriggerBinder().
		SetCronExpression("0 0 2 * * ?").
		SetJobDefinition(def).
		Build()
	if err != nil {
		t.Fatalf("Build binding failed: %v", err)
	}

	name, err := sched.Register(binding)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if name == "" {
		t.Error("Register should assign a name to an unnamed trigger")
	}
}

func TestScheduler_DuplicateTriggerName(t *testing.T) {
	clock := testutil.NewFakeClock(time.Now().UTC())
	sched := newTestScheduler(&mockCronParser{}, &mockEmitter{}, clock)

	if _, err := sched.Register(buildBinding(t, "dup", "job")); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}
	if _, err := sched.Register(buildBinding(t, "dup", "job")); err == nil {
		t.Error("second Register with the same name should fail")
	}
}

func TestScheduler_DurabilityOnUnregister(t *testing.T) {
	clock := testutil.NewFakeClock(time.Now().UTC())
	sched := newTestScheduler(&mockCronParser{}, &mockEmitter{}, clock)

	// Non-durable definition: dropped with its last trigger.
	nonDurable := buildBinding(t, "transient", "transient-job", func(b *batch.JobDefinitionBuilder) {
		b.SetDurability(false)
	})
	if _, err := sched.Register(nonDurable); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, ok := sched.Definition("transient-job"); !ok {
		t.Fatal("definition missing while trigger registered")
	}
	if !sched.Unregister("transient") {
		t.Fatal("Unregister returned false for a registered trigger")
	}
	if _, ok := sched.Definition("transient-job"); ok {
		t.Error("non-durable definition survived its last trigger")
	}

	// Durable definition: stays resident without an active trigger.
	durable := buildBinding(t, "persistent", "durable-job")
	if _, err := sched.Register(durable); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	sched.Unregister("persistent")
	if _, ok := sched.Definition("durable-job"); !ok {
		t.Error("durable definition dropped with its last trigger")
	}
}

func TestScheduler_UnregisterUnknown(t *testing.T) {
	clock := testutil.NewFakeClock(time.Now().UTC())
	sched := newTestScheduler(&mockCronParser{}, &mockEmitter{}, clock)

	if sched.Unregister("never-registered") {
		t.Error("Unregister of unknown trigger returned true")
	}
}

func TestScheduler_MissedFiringsCaughtUp(t *testing.T) {
	start := time.Date(2024, 1, 15, 2, 0, 0, 0, time.UTC)
	fires := []time.Time{
		start.Add(1 * time.Minute),
		start.Add(2 * time.Minute),
		start.Add(3 * time.Minute),
	}

	clock := testutil.NewFakeClock(start)
	emitter := &mockEmitter{}
	sched := newTestScheduler(&mockCronParser{fireTimes: fires}, emitter, clock)

	if _, err := sched.Register(buildBinding(t, "minutely", "job")); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	ctx := testutil.TestContext(t)
	if err := sched.ProcessTick(ctx); err != nil {
		t.Fatalf("tick failed: %v", err)
	}

	// One long gap covering all three due times.
	clock.Advance(5 * time.Minute)
	if err := sched.ProcessTick(ctx); err != nil {
		t.Fatalf("tick failed: %v", err)
	}

	if got := len(emitter.all()); got != 3 {
		t.Errorf("events = %d, want 3 (all missed firings emitted)", got)
	}
}
