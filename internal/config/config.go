// Package config handles environment variable loading for the orchestrator daemon.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration values for the orchestrator daemon.
type Config struct {
	// DatabaseURL selects the State Store backend. A "sqlite:" prefix
	// selects the embedded SQLite backend; anything else (typically
	// "postgres://...") selects PostgreSQL.
	DatabaseURL string

	// HTTPPort is the port the REST API listens on.
	HTTPPort int

	// SchedulerTickInterval is how often the Scheduler evaluates due jobs.
	SchedulerTickInterval time.Duration

	// WorkerPoolSize is the number of concurrent Worker Manager slots.
	WorkerPoolSize int

	// WorkerPollInterval is how long an idle worker slot sleeps between
	// claim attempts.
	WorkerPollInterval time.Duration

	// ShutdownGracePeriod bounds how long in-flight runs get to finish
	// before the process aborts on shutdown signal.
	ShutdownGracePeriod time.Duration

	// MaxAttempts, RetryBaseDelay, RetryFactor, RetryJitter configure the
	// Task Runner's per-task retry policy (spec §4.5 defaults).
	MaxAttempts    int
	RetryBaseDelay time.Duration
	RetryFactor    float64
	RetryJitter    float64

	// LogLevel is informational only, per spec §6.
	LogLevel string

	// OTELEndpoint is the OTLP/gRPC collector address for tracing.
	OTELEndpoint string

	// SystemToken, if non-empty, is required as a bearer token on
	// every REST route except /health and /metrics.
	SystemToken string

	// Environment tags spans and resources with a deployment environment
	// (e.g. "production", "staging"); defaults to "development".
	Environment string
}

// Load reads configuration from environment variables, applying the
// defaults spec.md documents for the Scheduler and Task Runner.
func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	port, err := getIntEnv("PORT", 6161)
	if err != nil {
		return nil, err
	}

	tickInterval, err := getDurationEnv("SCHEDULER_TICK_INTERVAL", 5*time.Second)
	if err != nil {
		return nil, err
	}

	poolSize, err := getIntEnv("WORKER_POOL_SIZE", 4)
	if err != nil {
		return nil, err
	}

	pollInterval, err := getDurationEnv("WORKER_POLL_INTERVAL", 1*time.Second)
	if err != nil {
		return nil, err
	}

	gracePeriod, err := getDurationEnv("SHUTDOWN_GRACE_PERIOD", 30*time.Second)
	if err != nil {
		return nil, err
	}

	maxAttempts, err := getIntEnv("MAX_ATTEMPTS", 3)
	if err != nil {
		return nil, err
	}

	baseDelay, err := getDurationEnv("RETRY_BASE_DELAY", 1*time.Second)
	if err != nil {
		return nil, err
	}

	retryFactor, err := getFloatEnv("RETRY_FACTOR", 2.0)
	if err != nil {
		return nil, err
	}

	retryJitter, err := getFloatEnv("RETRY_JITTER", 0.2)
	if err != nil {
		return nil, err
	}

	logLevel := strings.ToLower(os.Getenv("LOG_LEVEL"))
	if logLevel == "" {
		logLevel = "info"
	}

	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
		otelEndpoint = "localhost:4317"
	}

	environment := os.Getenv("ELT_ENVIRONMENT")
	if environment == "" {
		environment = "development"
	}

	return &Config{
		DatabaseURL:           dbURL,
		HTTPPort:              port,
		SchedulerTickInterval: tickInterval,
		WorkerPoolSize:        poolSize,
		WorkerPollInterval:    pollInterval,
		ShutdownGracePeriod:   gracePeriod,
		MaxAttempts:           maxAttempts,
		RetryBaseDelay:        baseDelay,
		RetryFactor:           retryFactor,
		RetryJitter:           retryJitter,
		LogLevel:              logLevel,
		OTELEndpoint:          otelEndpoint,
		SystemToken:           os.Getenv("SYSTEM_TOKEN"),
		Environment:           environment,
	}, nil
}

// IsSQLite reports whether DatabaseURL selects the SQLite backend.
func (c *Config) IsSQLite() bool {
	return strings.HasPrefix(c.DatabaseURL, "sqlite:")
}

func getIntEnv(name string, def int) (int, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return v, nil
}

func getDurationEnv(name string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return def, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return v, nil
}

func getFloatEnv(name string, def float64) (float64, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return v, nil
}
