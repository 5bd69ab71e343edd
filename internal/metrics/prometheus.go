package metrics

import (
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusSink implements Sink using the Prometheus client library.
// All methods are non-blocking and fire-and-forget.
// Registration errors are logged but never propagated.
type PrometheusSink struct {
	// Scheduler metrics
	ticksTotal      prometheus.Counter
	tickErrorsTotal prometheus.Counter
	firingsTotal    prometheus.Counter
	tickDuration    prometheus.Histogram
	tickDrift       prometheus.Histogram

	// Engine metrics
	executionsTotal  *prometheus.CounterVec
	duplicatesTotal  prometheus.Counter
	executionSeconds prometheus.Histogram
	eventsInFlight   prometheus.Gauge

	// EventBus metrics
	bufferSize      prometheus.Gauge
	bufferCapacity  prometheus.Gauge
	emitErrorsTotal prometheus.Counter

	// Recovery metrics
	replayedTotal prometheus.Counter
}

// NewPrometheusSink creates a new Prometheus metrics sink.
// If registration fails, it logs a warning and returns a functional sink.
func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	s := &PrometheusSink{}
	s.initSchedulerMetrics(reg)
	s.initEngineMetrics(reg)
	s.initEventBusMetrics(reg)
	s.initRecoveryMetrics(reg)
	return s
}

func (s *PrometheusSink) initSchedulerMetrics(reg prometheus.Registerer) {
	s.ticksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "batchcron_scheduler_ticks_total",
		Help: "Total number of scheduler ticks processed.",
	})
	s.tickErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "batchcron_scheduler_tick_errors_total",
		Help: "Total number of scheduler tick errors.",
	})
	s.firingsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "batchcron_scheduler_firings_total",
		Help: "Total number of trigger firings emitted.",
	})
	s.tickDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "batchcron_scheduler_tick_duration_seconds",
		Help:    "Duration of each scheduler tick in seconds.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
	})
	s.tickDrift = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "batchcron_scheduler_tick_drift_seconds",
		Help:    "Difference between actual tick time and expected interval in seconds.",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	})

	s.register(reg, s.ticksTotal, "batchcron_scheduler_ticks_total")
	s.register(reg, s.tickErrorsTotal, "batchcron_scheduler_tick_errors_total")
	s.register(reg, s.firingsTotal, "batchcron_scheduler_firings_total")
	s.register(reg, s.tickDuration, "batchcron_scheduler_tick_duration_seconds")
	s.register(reg, s.tickDrift, "batchcron_scheduler_tick_drift_seconds")
}

func (s *PrometheusSink) initEngineMetrics(reg prometheus.Registerer) {
	s.executionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "batchcron_engine_executions_total",
		Help: "Total number of completed executions per outcome.",
	}, []string{"outcome"})

	s.duplicatesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "batchcron_engine_duplicates_total",
		Help: "Total number of firing events discarded as duplicate execution keys.",
	})

	s.executionSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "batchcron_engine_execution_duration_seconds",
		Help:    "Job handler run time in seconds.",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 300},
	})

	s.eventsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "batchcron_engine_events_in_flight",
		Help: "Number of firing events currently being processed.",
	})

	s.register(reg, s.executionsTotal, "batchcron_engine_executions_total")
	s.register(reg, s.duplicatesTotal, "batchcron_engine_duplicates_total")
	s.register(reg, s.executionSeconds, "batchcron_engine_execution_duration_seconds")
	s.register(reg, s.eventsInFlight, "batchcron_engine_events_in_flight")
}

func (s *PrometheusSink) initEventBusMetrics(reg prometheus.Registerer) {
	s.bufferSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "batchcron_eventbus_buffer_size",
		Help: "Current number of events in the event bus buffer.",
	})
	s.bufferCapacity = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "batchcron_eventbus_buffer_capacity",
		Help: "Configured capacity of the event bus buffer.",
	})
	s.emitErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "batchcron_eventbus_emit_errors_total",
		Help: "Total number of emit errors (buffer full).",
	})

	s.register(reg, s.bufferSize, "batchcron_eventbus_buffer_size")
	s.register(reg, s.bufferCapacity, "batchcron_eventbus_buffer_capacity")
	s.register(reg, s.emitErrorsTotal, "batchcron_eventbus_emit_errors_total")
}

func (s *PrometheusSink) initRecoveryMetrics(reg prometheus.Registerer) {
	s.replayedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "batchcron_recovery_replayed_total",
		Help: "Total number of interrupted executions replayed.",
	})

	s.register(reg, s.replayedTotal, "batchcron_recovery_replayed_total")
}

// register attempts to register a collector, logging any errors without propagating them.
func (s *PrometheusSink) register(reg prometheus.Registerer, c prometheus.Collector, name string) {
	if err := reg.Register(c); err != nil {
		log.Printf("metrics: failed to register %s: %v", name, err)
	}
}

// Scheduler metrics implementation

func (s *PrometheusSink) TickStarted() {
	s.ticksTotal.Inc()
}

func (s *PrometheusSink) TickCompleted(duration time.Duration, firings int, err error) {
	s.tickDuration.Observe(duration.Seconds())
	if err != nil {
		s.tickErrorsTotal.Inc()
	}
}

func (s *PrometheusSink) TickDrift(drift time.Duration) {
	// Record absolute drift value
	d := drift.Seconds()
	if d < 0 {
		d = -d
	}
	s.tickDrift.Observe(d)
}

func (s *PrometheusSink) FiringEmitted() {
	s.firingsTotal.Inc()
}

// Engine metrics implementation

func (s *PrometheusSink) ExecutionCompleted(outcome string, duration time.Duration) {
	s.executionsTotal.WithLabelValues(outcome).Inc()
	s.executionSeconds.Observe(duration.Seconds())
}

func (s *PrometheusSink) DuplicateRejected() {
	s.duplicatesTotal.Inc()
}

func (s *PrometheusSink) EventsInFlightIncr() {
	s.eventsInFlight.Inc()
}

func (s *PrometheusSink) EventsInFlightDecr() {
	s.eventsInFlight.Dec()
}

// EventBus metrics implementation

func (s *PrometheusSink) BufferSizeUpdate(size int) {
	s.bufferSize.Set(float64(size))
}

func (s *PrometheusSink) BufferCapacitySet(capacity int) {
	s.bufferCapacity.Set(float64(capacity))
}

func (s *PrometheusSink) EmitError() {
	s.emitErrorsTotal.Inc()
}

// Recovery metrics implementation

func (s *PrometheusSink) InterruptedReplayed(count int) {
	s.replayedTotal.Add(float64(count))
}
