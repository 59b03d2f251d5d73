package config

import (
	"testing"
	"time"
)

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	if err == nil {
		t.Error("expected error when DATABASE_URL is missing")
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.HTTPPort != 6161 {
		t.Errorf("expected HTTPPort 6161, got %d", cfg.HTTPPort)
	}
	if cfg.SchedulerTickInterval != 5*time.Second {
		t.Errorf("expected SchedulerTickInterval 5s, got %v", cfg.SchedulerTickInterval)
	}
	if cfg.WorkerPoolSize != 4 {
		t.Errorf("expected WorkerPoolSize 4, got %d", cfg.WorkerPoolSize)
	}
	if cfg.WorkerPollInterval != 1*time.Second {
		t.Errorf("expected WorkerPollInterval 1s, got %v", cfg.WorkerPollInterval)
	}
	if cfg.ShutdownGracePeriod != 30*time.Second {
		t.Errorf("expected ShutdownGracePeriod 30s, got %v", cfg.ShutdownGracePeriod)
	}
	if cfg.MaxAttempts != 3 {
		t.Errorf("expected MaxAttempts 3, got %d", cfg.MaxAttempts)
	}
	if cfg.RetryBaseDelay != 1*time.Second {
		t.Errorf("expected RetryBaseDelay 1s, got %v", cfg.RetryBaseDelay)
	}
	if cfg.RetryFactor != 2.0 {
		t.Errorf("expected RetryFactor 2.0, got %v", cfg.RetryFactor)
	}
	if cfg.RetryJitter != 0.2 {
		t.Errorf("expected RetryJitter 0.2, got %v", cfg.RetryJitter)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected LogLevel info, got %s", cfg.LogLevel)
	}
	if cfg.OTELEndpoint != "localhost:4317" {
		t.Errorf("expected OTELEndpoint localhost:4317, got %s", cfg.OTELEndpoint)
	}
}

func TestLoad_EnvVarOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "sqlite:///tmp/eltorch.db")
	t.Setenv("PORT", "9999")
	t.Setenv("WORKER_POOL_SIZE", "8")
	t.Setenv("WORKER_POLL_INTERVAL", "2s")
	t.Setenv("SCHEDULER_TICK_INTERVAL", "10s")
	t.Setenv("MAX_ATTEMPTS", "5")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "otel-collector:4317")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.DatabaseURL != "sqlite:///tmp/eltorch.db" {
		t.Errorf("expected DatabaseURL from env, got %s", cfg.DatabaseURL)
	}
	if !cfg.IsSQLite() {
		t.Error("expected IsSQLite() true for sqlite: prefix")
	}
	if cfg.HTTPPort != 9999 {
		t.Errorf("expected HTTPPort 9999, got %d", cfg.HTTPPort)
	}
	if cfg.WorkerPoolSize != 8 {
		t.Errorf("expected WorkerPoolSize 8, got %d", cfg.WorkerPoolSize)
	}
	if cfg.WorkerPollInterval != 2*time.Second {
		t.Errorf("expected WorkerPollInterval 2s, got %v", cfg.WorkerPollInterval)
	}
	if cfg.SchedulerTickInterval != 10*time.Second {
		t.Errorf("expected SchedulerTickInterval 10s, got %v", cfg.SchedulerTickInterval)
	}
	if cfg.MaxAttempts != 5 {
		t.Errorf("expected MaxAttempts 5, got %d", cfg.MaxAttempts)
	}
	if cfg.OTELEndpoint != "otel-collector:4317" {
		t.Errorf("expected OTELEndpoint otel-collector:4317, got %s", cfg.OTELEndpoint)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("WORKER_POLL_INTERVAL", "not-a-duration")

	_, err := Load()
	if err == nil {
		t.Error("expected error for invalid WORKER_POLL_INTERVAL")
	}
}

func TestIsSQLite(t *testing.T) {
	c := &Config{DatabaseURL: "postgres://localhost/db"}
	if c.IsSQLite() {
		t.Error("expected IsSQLite() false for postgres:// URL")
	}
	c.DatabaseURL = "sqlite://test.db"
	if !c.IsSQLite() {
		t.Error("expected IsSQLite() true for sqlite:// URL")
	}
}
