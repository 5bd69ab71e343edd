package config

import (
	"encoding/json"
	"log"
	"os"
	"time"
)

// Config holds all configuration for the batchcron application.
// Values are loaded from environment variables; see printUsage() for the full list.
type Config struct {
	// DatabaseURL enables the Postgres execution history store (and with it
	// recovery). Empty means no history is kept.
	DatabaseURL string `json:"database_url,omitempty"`

	// RedisAddr enables the Redis dedup store. Empty falls back to the
	// in-memory store, which only protects a single process.
	RedisAddr string `json:"redis_addr,omitempty"`

	// BindingsFile is an optional JSON file of trigger bindings loaded at
	// startup by the serve command.
	BindingsFile string `json:"bindings_file,omitempty"`

	HTTPAddr string `json:"http_addr"`

	TickInterval    time.Duration `json:"-"`
	TickIntervalStr string        `json:"tick_interval"`

	// Timezone is the IANA zone cron expressions are evaluated in.
	Timezone string `json:"timezone"`

	DBOpTimeout    time.Duration `json:"-"`
	DBOpTimeoutStr string        `json:"db_op_timeout"`

	DBMaxOpenConns       int           `json:"db_max_open_conns"`
	DBMaxIdleConns       int           `json:"db_max_idle_conns"`
	DBConnMaxLifetime    time.Duration `json:"-"`
	DBConnMaxLifetimeStr string        `json:"db_conn_max_lifetime"`
	DBConnMaxIdleTime    time.Duration `json:"-"`
	DBConnMaxIdleTimeStr string        `json:"db_conn_max_idle_time"`

	HTTPShutdownTimeout    time.Duration `json:"-"`
	HTTPShutdownTimeoutStr string        `json:"http_shutdown_timeout"`
	EngineDrainTimeout     time.Duration `json:"-"`
	EngineDrainTimeoutStr  string        `json:"engine_drain_timeout"`

	MetricsEnabled bool   `json:"metrics_enabled"`
	MetricsPath    string `json:"metrics_path"`

	RecoveryEnabled      bool          `json:"recovery_enabled"`
	RecoveryInterval     time.Duration `json:"-"`
	RecoveryIntervalStr  string        `json:"recovery_interval"`

	// RecoveryThreshold must exceed the longest legitimate job run, or
	// still-running executions get replayed alongside them.
	RecoveryThreshold    time.Duration `json:"-"`
	RecoveryThresholdStr string        `json:"recovery_threshold"`

	RecoveryBatchSize  int `json:"recovery_batch_size"`
	EventBusBufferSize int `json:"eventbus_buffer_size"`

	EngineWorkers int `json:"engine_workers"`

	// DedupTTL bounds how long a claimed execution key stays claimed in Redis.
	DedupTTL    time.Duration `json:"-"`
	DedupTTLStr string        `json:"dedup_ttl"`
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	cfg := Config{
		DatabaseURL:            os.Getenv("DATABASE_URL"),
		RedisAddr:              os.Getenv("REDIS_ADDR"),
		BindingsFile:           os.Getenv("BINDINGS_FILE"),
		HTTPAddr:               os.Getenv("HTTP_ADDR"),
		TickIntervalStr:        os.Getenv("TICK_INTERVAL"),
		Timezone:               os.Getenv("TIMEZONE"),
		DBOpTimeoutStr:         os.Getenv("DB_OP_TIMEOUT"),
		DBConnMaxLifetimeStr:   os.Getenv("DB_CONN_MAX_LIFETIME"),
		DBConnMaxIdleTimeStr:   os.Getenv("DB_CONN_MAX_IDLE_TIME"),
		HTTPShutdownTimeoutStr: os.Getenv("HTTP_SHUTDOWN_TIMEOUT"),
		EngineDrainTimeoutStr:  os.Getenv("ENGINE_DRAIN_TIMEOUT"),
		MetricsEnabled:         os.Getenv("METRICS_ENABLED") == "true",
		MetricsPath:            os.Getenv("METRICS_PATH"),
		RecoveryEnabled:        os.Getenv("RECOVERY_ENABLED") == "true",
		RecoveryIntervalStr:    os.Getenv("RECOVERY_INTERVAL"),
		RecoveryThresholdStr:   os.Getenv("RECOVERY_THRESHOLD"),
		DedupTTLStr:            os.Getenv("DEDUP_TTL"),
	}

	if batchStr := os.Getenv("RECOVERY_BATCH_SIZE"); batchStr != "" {
		if batch, err := parseInt(batchStr); err == nil && batch > 0 {
			cfg.RecoveryBatchSize = batch
		}
	}
	if cfg.RecoveryBatchSize == 0 {
		cfg.RecoveryBatchSize = 100
	}

	if bufStr := os.Getenv("EVENTBUS_BUFFER_SIZE"); bufStr != "" {
		if n, err := parseInt(bufStr); err == nil && n > 0 {
			cfg.EventBusBufferSize = n
		} else {
			log.Printf("config: invalid EVENTBUS_BUFFER_SIZE %q (must be a positive integer), using default 100", bufStr)
		}
	}
	if cfg.EventBusBufferSize == 0 {
		cfg.EventBusBufferSize = 100
	}

	if workersStr := os.Getenv("ENGINE_WORKERS"); workersStr != "" {
		if n, err := parseInt(workersStr); err == nil && n > 0 {
			cfg.EngineWorkers = n
		} else {
			log.Printf("config: invalid ENGINE_WORKERS %q (must be a positive integer), using default 1", workersStr)
		}
	}
	if cfg.EngineWorkers == 0 {
		cfg.EngineWorkers = 1
	}

	if maxOpenStr := os.Getenv("DB_MAX_OPEN_CONNS"); maxOpenStr != "" {
		if n, err := parseInt(maxOpenStr); err == nil && n > 0 {
			cfg.DBMaxOpenConns = n
		}
	}
	if cfg.DBMaxOpenConns == 0 {
		cfg.DBMaxOpenConns = 25
	}

	if maxIdleStr := os.Getenv("DB_MAX_IDLE_CONNS"); maxIdleStr != "" {
		if n, err := parseInt(maxIdleStr); err == nil && n > 0 {
			cfg.DBMaxIdleConns = n
		}
	}
	if cfg.DBMaxIdleConns == 0 {
		cfg.DBMaxIdleConns = 5
	}

	// Support Railway's PORT variable as fallback for HTTP_ADDR.
	if cfg.HTTPAddr == "" {
		if port := os.Getenv("PORT"); port != "" {
			cfg.HTTPAddr = ":" + port
		} else {
			cfg.HTTPAddr = ":8080"
		}
	}
	if cfg.TickIntervalStr == "" {
		cfg.TickIntervalStr = "1s"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "UTC"
	}
	if cfg.DBOpTimeoutStr == "" {
		cfg.DBOpTimeoutStr = "5s"
	}
	if cfg.DBConnMaxLifetimeStr == "" {
		cfg.DBConnMaxLifetimeStr = "30m"
	}
	if cfg.DBConnMaxIdleTimeStr == "" {
		cfg.DBConnMaxIdleTimeStr = "5m"
	}
	if cfg.HTTPShutdownTimeoutStr == "" {
		cfg.HTTPShutdownTimeoutStr = "10s"
	}
	if cfg.EngineDrainTimeoutStr == "" {
		cfg.EngineDrainTimeoutStr = "30s"
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}
	if cfg.RecoveryIntervalStr == "" {
		cfg.RecoveryIntervalStr = "5m"
	}
	if cfg.RecoveryThresholdStr == "" {
		cfg.RecoveryThresholdStr = "10m"
	}
	if cfg.DedupTTLStr == "" {
		cfg.DedupTTLStr = "24h"
	}

	// Parse durations; validation is handled separately by Validate().
	if d, err := time.ParseDuration(cfg.TickIntervalStr); err == nil {
		cfg.TickInterval = d
	}
	if d, err := time.ParseDuration(cfg.DBOpTimeoutStr); err == nil {
		cfg.DBOpTimeout = d
	}
	if d, err := time.ParseDuration(cfg.DBConnMaxLifetimeStr); err == nil {
		cfg.DBConnMaxLifetime = d
	}
	if d, err := time.ParseDuration(cfg.DBConnMaxIdleTimeStr); err == nil {
		cfg.DBConnMaxIdleTime = d
	}
	if d, err := time.ParseDuration(cfg.HTTPShutdownTimeoutStr); err == nil {
		cfg.HTTPShutdownTimeout = d
	}
	if d, err := time.ParseDuration(cfg.EngineDrainTimeoutStr); err == nil {
		cfg.EngineDrainTimeout = d
	}
	if d, err := time.ParseDuration(cfg.RecoveryIntervalStr); err == nil {
		cfg.RecoveryInterval = d
	}
	if d, err := time.ParseDuration(cfg.RecoveryThresholdStr); err == nil {
		cfg.RecoveryThreshold = d
	}
	if d, err := time.ParseDuration(cfg.DedupTTLStr); err == nil {
		cfg.DedupTTL = d
	}

	return cfg
}

// parseInt parses a string as an integer.
func parseInt(s string) (int, error) {
	var n int
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, os.ErrInvalid
		}
		n = n*10 + int(c-'0')
	}
	return n, nil
}

// MaskedJSON returns the configuration as JSON with secrets masked.
func (c Config) MaskedJSON() ([]byte, error) {
	masked := struct {
		DatabaseURL         string `json:"database_url,omitempty"`
		RedisAddr           string `json:"redis_addr,omitempty"`
		BindingsFile        string `json:"bindings_file,omitempty"`
		HTTPAddr            string `json:"http_addr"`
		TickInterval        string `json:"tick_interval"`
		Timezone            string `json:"timezone"`
		DBOpTimeout         string `json:"db_op_timeout"`
		DBMaxOpenConns      int    `json:"db_max_open_conns"`
		DBMaxIdleConns      int    `json:"db_max_idle_conns"`
		DBConnMaxLifetime   string `json:"db_conn_max_lifetime"`
		DBConnMaxIdleTime   string `json:"db_conn_max_idle_time"`
		HTTPShutdownTimeout string `json:"http_shutdown_timeout"`
		EngineDrainTimeout  string `json:"engine_drain_timeout"`
		MetricsEnabled      bool   `json:"metrics_enabled"`
		MetricsPath         string `json:"metrics_path"`
		RecoveryEnabled     bool   `json:"recovery_enabled"`
		RecoveryInterval    string `json:"recovery_interval"`
		RecoveryThreshold   string `json:"recovery_threshold"`
		RecoveryBatchSize   int    `json:"recovery_batch_size"`
		EventBusBufferSize  int    `json:"eventbus_buffer_size"`
		EngineWorkers       int    `json:"engine_workers"`
		DedupTTL            string `json:"dedup_ttl"`
	}{
		DatabaseURL:         maskSecret(c.DatabaseURL),
		RedisAddr:           c.RedisAddr,
		BindingsFile:        c.BindingsFile,
		HTTPAddr:            c.HTTPAddr,
		TickInterval:        c.TickIntervalStr,
		Timezone:            c.Timezone,
		DBOpTimeout:         c.DBOpTimeoutStr,
		DBMaxOpenConns:      c.DBMaxOpenConns,
		DBMaxIdleConns:      c.DBMaxIdleConns,
		DBConnMaxLifetime:   c.DBConnMaxLifetimeStr,
		DBConnMaxIdleTime:   c.DBConnMaxIdleTimeStr,
		HTTPShutdownTimeout: c.HTTPShutdownTimeoutStr,
		EngineDrainTimeout:  c.EngineDrainTimeoutStr,
		MetricsEnabled:      c.MetricsEnabled,
		MetricsPath:         c.MetricsPath,
		RecoveryEnabled:     c.RecoveryEnabled,
		RecoveryInterval:    c.RecoveryIntervalStr,
		RecoveryThreshold:   c.RecoveryThresholdStr,
		RecoveryBatchSize:   c.RecoveryBatchSize,
		EventBusBufferSize:  c.EventBusBufferSize,
		EngineWorkers:       c.EngineWorkers,
		DedupTTL:            c.DedupTTLStr,
	}
	return json.MarshalIndent(masked, "", "  ")
}

// maskSecret masks a secret value, preserving only the URI scheme if present.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	for _, scheme := range []string{"postgres://", "postgresql://"} {
		if len(s) >= len(scheme) && s[:len(scheme)] == scheme {
			return scheme + "***"
		}
	}
	return "***"
}
