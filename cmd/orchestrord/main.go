// Package main is the entry point for the eltorch orchestrator daemon: the
// State Store, Job Manager, Scheduler, Worker Manager, and REST API all run
// together as goroutines under one process.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"

	"eltorch/internal/api"
	"eltorch/internal/config"
	"eltorch/internal/jobmanager"
	"eltorch/internal/logger"
	"eltorch/internal/observability"
	"eltorch/internal/plugin"
	"eltorch/internal/plugin/extract"
	"eltorch/internal/plugin/load"
	"eltorch/internal/scheduler"
	"eltorch/internal/store"
	"eltorch/internal/store/postgres"
	"eltorch/internal/store/sqlite"
	"eltorch/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stateStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Error("failed to open state store", "error", err)
		os.Exit(1)
	}
	defer stateStore.Close()

	shutdownTracer, err := observability.InitTracer(ctx, "eltorch-orchestrator", cfg.Environment, cfg.OTELEndpoint)
	if err != nil {
		log.Error("failed to init tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			log.Error("failed to shutdown tracer", "error", err)
		}
	}()

	metricsHandler, shutdownMetrics, err := observability.InitMetrics()
	if err != nil {
		log.Error("failed to init metrics", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdownMetrics(context.Background()); err != nil {
			log.Error("failed to shutdown metrics", "error", err)
		}
	}()

	meter := otel.Meter("eltorch-orchestrator")
	runMetrics, err := observability.NewRunMetrics(meter)
	if err != nil {
		log.Error("failed to register run metrics", "error", err)
		os.Exit(1)
	}
	if err := runMetrics.RegisterQueueDepthGauge(meter, stateStore.CountQueuedRuns); err != nil {
		log.Error("failed to register queue depth gauge", "error", err)
	}

	registry := buildRegistry()

	jobs := jobmanager.New(stateStore, log)

	sched := scheduler.New(stateStore, cfg.SchedulerTickInterval, log)
	if err := sched.RecoverOrphans(ctx); err != nil {
		log.Error("failed to recover orphaned runs", "error", err)
		os.Exit(1)
	}
	var background sync.WaitGroup
	background.Add(1)
	go func() {
		defer background.Done()
		sched.Run(ctx)
	}()

	runner := worker.NewRunner(stateStore, registry, runMetrics).WithRetryPolicy(worker.RetryPolicy{
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   cfg.RetryBaseDelay,
		Factor:      cfg.RetryFactor,
		Jitter:      cfg.RetryJitter,
	})
	manager := worker.NewManager(stateStore, runner, worker.ManagerConfig{
		Concurrency:   cfg.WorkerPoolSize,
		PollInterval:  cfg.WorkerPollInterval,
		ShutdownGrace: cfg.ShutdownGracePeriod,
	}, log, runMetrics)
	go manager.Run(ctx)

	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	srv := api.NewServer(addr, jobs, log, cfg.SystemToken, metricsHandler)

	go func() {
		log.Info("orchestrator starting", "addr", addr)
		if err := srv.Run(ctx); err != nil {
			log.Error("server stopped", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutdown signal received")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod+5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}

	background.Wait()
	<-manager.Done()

	log.Info("orchestrator exited")
}

func openStore(ctx context.Context, cfg *config.Config) (store.StateStore, error) {
	if cfg.IsSQLite() {
		return sqlite.New(ctx, cfg.DatabaseURL)
	}
	return postgres.New(ctx, cfg.DatabaseURL)
}

func buildRegistry() *plugin.Registry {
	registry := plugin.NewRegistry()
	registry.RegisterExtractor("csv", extract.NewCSV)
	registry.RegisterExtractor("api", extract.NewAPI)
	registry.RegisterExtractor("parquet", extract.NewParquet)
	registry.RegisterLoader("duckdb", load.NewDuckDB)
	return registry
}
