package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/gonggit/spring-batch-quartz/batch"
	"github.com/gonggit/spring-batch-quartz/internal/config"
	"github.com/gonggit/spring-batch-quartz/internal/cron"
	"github.com/gonggit/spring-batch-quartz/internal/dedup"
	"github.com/gonggit/spring-batch-quartz/internal/engine"
	"github.com/gonggit/spring-batch-quartz/internal/metrics"
	"github.com/gonggit/spring-batch-quartz/internal/recovery"
	"github.com/gonggit/spring-batch-quartz/internal/scheduler"
	"github.com/gonggit/spring-batch-quartz/internal/store/postgres"
	"github.com/gonggit/spring-batch-quartz/internal/transport/channel"

	_ "github.com/lib/pq"
)

// cronParserAdapter adapts internal/cron.Parser to scheduler.CronParser interface.
type cronParserAdapter struct {
	parser *cron.Parser
}

func (a *cronParserAdapter) Parse(expression string, timezone string) (scheduler.CronSchedule, error) {
	sched, err := a.parser.Parse(expression, timezone)
	if err != nil {
		return nil, err
	}
	return &cronScheduleAdapter{sched: sched}, nil
}

// cronScheduleAdapter adapts internal/cron.Schedule to scheduler.CronSchedule interface.
type cronScheduleAdapter struct {
	sched cron.Schedule
}

func (a *cronScheduleAdapter) Next(after time.Time) time.Time {
	return a.sched.Next(after)
}

// Build-time variables set via -ldflags
var (
	version = "dev"
	commit  = "unknown"
)

const (
	exitSuccess       = 0
	exitRuntimeError  = 1
	exitInvalidConfig = 2
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(exitRuntimeError)
	}

	cmd := os.Args[1]

	switch cmd {
	case "serve":
		os.Exit(runServe())
	case "validate":
		os.Exit(runValidate())
	case "config":
		os.Exit(runConfig())
	case "version":
		os.Exit(runVersion())
	case "--help", "-h", "help":
		printUsage()
		os.Exit(exitSuccess)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(exitRuntimeError)
	}
}

func printUsage() {
	fmt.Println(`batchcron - cron-triggered batch job runner

Usage:
  batchcron <command>

Commands:
  serve      Start the scheduler and execution engine
  validate   Validate configuration (no connections made)
  config     Print effective configuration as JSON (secrets masked)
  version    Print version information

Environment Variables:
  BINDINGS_FILE             JSON file of trigger bindings loaded at startup
  DATABASE_URL              PostgreSQL connection string for execution history (optional)
  REDIS_ADDR                Redis address for the dedup store (optional)
  HTTP_ADDR                 HTTP server address (default: ":8080")
  TICK_INTERVAL             Scheduler tick interval (default: "1s")
  TIMEZONE                  IANA zone for cron evaluation (default: "UTC")
  ENGINE_WORKERS            Concurrent execution workers (default: "1")
  EVENTBUS_BUFFER_SIZE      Firing event buffer size (default: "100")
  DEDUP_TTL                 Redis claim TTL (default: "24h")

  DB_OP_TIMEOUT             Database operation timeout (default: "5s")
  DB_MAX_OPEN_CONNS         Max open database connections (default: "25")
  DB_MAX_IDLE_CONNS         Max idle database connections (default: "5")
  DB_CONN_MAX_LIFETIME      Max connection lifetime (default: "30m")
  DB_CONN_MAX_IDLE_TIME     Max connection idle time (default: "5m")

  HTTP_SHUTDOWN_TIMEOUT     Graceful HTTP shutdown timeout (default: "10s")
  ENGINE_DRAIN_TIMEOUT      Engine event drain timeout (default: "30s")

  METRICS_ENABLED           Enable Prometheus metrics (default: "false")
  METRICS_PATH              Metrics endpoint path (default: "/metrics")

  RECOVERY_ENABLED          Replay interrupted executions (default: "false")
  RECOVERY_INTERVAL         How often to scan for interrupted runs (default: "5m")
  RECOVERY_THRESHOLD        Age before a running execution is interrupted (default: "10m")
  RECOVERY_BATCH_SIZE       Max replays per cycle (default: "100")`)
}

func runServe() int {
	cfg := config.Load()

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return exitInvalidConfig
	}

	logConfigWarnings(&cfg)

	// Connect to PostgreSQL if configured; without it executions run
	// without history and recovery is unavailable.
	var store *postgres.Store
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open database: %v\n", err)
			return exitRuntimeError
		}
		defer db.Close()

		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
		db.SetConnMaxLifetime(cfg.DBConnMaxLifetime)
		db.SetConnMaxIdleTime(cfg.DBConnMaxIdleTime)

		log.Printf("batchcron: db pool configured (max_open=%d, max_idle=%d, max_lifetime=%s, max_idle_time=%s)",
			cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetime, cfg.DBConnMaxIdleTime)

		if err := db.Ping(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to connect to database: %v\n", err)
			return exitRuntimeError
		}

		store = postgres.New(db)
	}

	// Dedup store: Redis if configured, process-local otherwise.
	var dedupStore engine.DedupStore
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
		})
		dedupStore = dedup.NewRedisStore(redisClient).WithTTL(cfg.DedupTTL)
		log.Printf("batchcron: redis dedup store enabled (redis=%s, ttl=%s)", cfg.RedisAddr, cfg.DedupTTL)
	} else {
		dedupStore = dedup.NewMemoryStore()
	}

	// Initialize metrics sink (optional)
	var metricsSink *metrics.PrometheusSink
	if cfg.MetricsEnabled {
		metricsSink = metrics.NewPrometheusSink(prometheus.DefaultRegisterer)
		log.Printf("batchcron: metrics enabled (path=%s)", cfg.MetricsPath)
	}

	// Create event bus with optional metrics
	var busOpts []channel.Option
	if metricsSink != nil {
		busOpts = append(busOpts, channel.WithMetrics(metricsSink))
	}
	bus := channel.NewEventBus(cfg.EventBusBufferSize, busOpts...)

	materializer := batch.NewMaterializer()
	cronParser := &cronParserAdapter{parser: cron.NewParser()}

	sched := scheduler.New(
		scheduler.Config{TickInterval: cfg.TickInterval, Timezone: cfg.Timezone},
		cronParser,
		bus,
		materializer,
	)
	if metricsSink != nil {
		sched = sched.WithMetrics(metricsSink)
	}

	eng := engine.New(dedupStore).
		WithWorkers(cfg.EngineWorkers).
		WithDrainTimeout(cfg.EngineDrainTimeout)
	if store != nil {
		eng = eng.WithHistory(store)
	}
	if metricsSink != nil {
		eng = eng.WithMetrics(metricsSink)
	}

	// Load and register trigger bindings
	if cfg.BindingsFile != "" {
		bindings, err := loadBindings(cfg.BindingsFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load bindings: %v\n", err)
			return exitInvalidConfig
		}
		for _, binding := range bindings {
			jobName := binding.JobDefinition().Name()
			eng.Register(jobName, loggingHandler(jobName))
			name, err := sched.Register(binding)
			if err != nil {
				fmt.Fprintf(os.Stderr, "failed to register trigger %q: %v\n", binding.Name(), err)
				return exitInvalidConfig
			}
			log.Printf("batchcron: registered trigger=%s job=%s cron=%q", name, jobName, binding.CronExpression())
		}
		log.Printf("batchcron: %d trigger bindings loaded from %s", len(bindings), cfg.BindingsFile)
	} else {
		log.Println("batchcron: BINDINGS_FILE not set; no triggers registered at startup")
	}

	// HTTP server: health endpoint, plus metrics if enabled
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	if cfg.MetricsEnabled {
		mux.Handle(cfg.MetricsPath, promhttp.Handler())
	}
	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}

	go func() {
		log.Printf("batchcron: http server listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("batchcron: http server error: %v", err)
		}
	}()

	// Separate contexts for scheduler, recovery, and engine enable ordered shutdown.
	schedulerCtx, cancelScheduler := context.WithCancel(context.Background())
	engineCtx, cancelEngine := context.WithCancel(context.Background())

	var schedulerWg sync.WaitGroup
	var engineWg sync.WaitGroup
	var recoveryWg sync.WaitGroup
	var cancelRecovery context.CancelFunc

	schedulerWg.Add(1)
	go func() {
		defer schedulerWg.Done()
		sched.Run(schedulerCtx)
	}()

	engineWg.Add(1)
	go func() {
		defer engineWg.Done()
		eng.Run(engineCtx, bus.Channel())
	}()

	// Start recovery if enabled
	if cfg.RecoveryEnabled && store != nil {
		var recoveryCtx context.Context
		recoveryCtx, cancelRecovery = context.WithCancel(context.Background())
		rec := recovery.New(
			recovery.Config{
				Interval:  cfg.RecoveryInterval,
				Threshold: cfg.RecoveryThreshold,
				BatchSize: cfg.RecoveryBatchSize,
			},
			store,
			sched,
			bus,
			materializer,
		)
		if metricsSink != nil {
			rec = rec.WithMetrics(metricsSink)
		}
		recoveryWg.Add(1)
		go func() {
			defer recoveryWg.Done()
			rec.Run(recoveryCtx)
		}()
	}

	log.Printf("batchcron: started (tick=%s, tz=%s, workers=%d, http=%s)",
		cfg.TickInterval, cfg.Timezone, cfg.EngineWorkers, cfg.HTTPAddr)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	received := <-sig

	log.Printf("batchcron: received signal %v, shutting down", received)

	// Phase 1: Stop scheduler (no new events emitted)
	log.Println("batchcron: stopping scheduler...")
	cancelScheduler()
	schedulerWg.Wait()
	log.Println("batchcron: scheduler stopped")

	// Phase 2: Stop recovery (no new replays)
	if cancelRecovery != nil {
		log.Println("batchcron: stopping recovery...")
		cancelRecovery()
		recoveryWg.Wait()
		log.Println("batchcron: recovery stopped")
	}

	// Phase 3: Stop engine (will drain buffered events before returning)
	log.Println("batchcron: stopping engine (draining events)...")
	cancelEngine()
	engineWg.Wait()
	log.Println("batchcron: engine stopped")

	// Phase 4: Stop HTTP server with graceful shutdown
	log.Println("batchcron: stopping http server...")
	httpShutdownCtx, httpShutdownCancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer httpShutdownCancel()
	if err := httpServer.Shutdown(httpShutdownCtx); err != nil {
		log.Printf("batchcron: http server shutdown error: %v", err)
	}
	log.Println("batchcron: http server stopped")

	log.Println("batchcron: stopped")
	return exitSuccess
}

// loggingHandler returns a handler that records the materialized request.
// Real deployments register their own handlers; the serve command only
// demonstrates the firing pipeline.
func loggingHandler(jobName string) engine.Handler {
	return func(ctx context.Context, req batch.ExecutionRequest) error {
		log.Printf("job %s: executing key=%s params=%v", jobName, req.Key(), req.Parameters.Keys())
		return nil
	}
}

// logConfigWarnings flags configurations that silently weaken the
// at-most-once or recovery guarantees.
func logConfigWarnings(cfg *config.Config) {
	if cfg.RedisAddr == "" {
		log.Println("WARNING [P0]: REDIS_ADDR not set; dedup claims are process-local and lost on restart")
	}
	if cfg.DatabaseURL == "" {
		log.Println("WARNING [P0]: DATABASE_URL not set; no execution history, recovery unavailable")
	}
	if cfg.DatabaseURL != "" && !cfg.RecoveryEnabled {
		log.Println("WARNING [P1]: RECOVERY_ENABLED=false; interrupted executions will never be replayed")
	}
	if !cfg.MetricsEnabled {
		log.Println("WARNING [P1]: METRICS_ENABLED=false; no visibility into firings, duplicates, or drain behavior")
	}
	if cfg.EngineWorkers == 1 {
		log.Println("INFO: ENGINE_WORKERS=1; long-running jobs will delay queued firings")
	}
}

func runValidate() int {
	cfg := config.Load()

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return exitInvalidConfig
	}

	if cfg.BindingsFile != "" {
		bindings, err := loadBindings(cfg.BindingsFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return exitInvalidConfig
		}
		fmt.Printf("%d trigger bindings ok\n", len(bindings))
	}

	fmt.Println("configuration valid")
	return exitSuccess
}

func runConfig() int {
	cfg := config.Load()

	data, err := cfg.MaskedJSON()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to marshal config: %v\n", err)
		return exitRuntimeError
	}

	fmt.Println(string(data))
	return exitSuccess
}

func runVersion() int {
	fmt.Printf("batchcron version %s (commit: %s)\n", version, commit)
	return exitSuccess
}
