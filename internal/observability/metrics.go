// Package observability provides OpenTelemetry instrumentation for tracing and metrics.
package observability

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// InitMetrics initializes the OpenTelemetry metrics provider with a Prometheus exporter.
// It returns the HTTP handler for the /metrics endpoint and a shutdown function.
// The shutdown function should be called on application exit for graceful cleanup.
func InitMetrics() (http.Handler, func(context.Context) error, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
	)

	otel.SetMeterProvider(provider)

	return promhttp.Handler(), provider.Shutdown, nil
}

// RunMetrics holds the instruments the Worker Manager and Task Runner emit
// against during a run's lifecycle.
type RunMetrics struct {
	RunsClaimed    metric.Int64Counter
	RunsSucceeded  metric.Int64Counter
	RunsFailed     metric.Int64Counter
	TaskAttempts   metric.Int64Counter
	TaskDuration   metric.Float64Histogram
	RunDuration    metric.Float64Histogram
	QueuedRunGauge metric.Int64ObservableGauge
}

// NewRunMetrics registers the orchestrator's domain instruments against the
// given meter, obtained via otel.Meter after InitMetrics has set the global
// MeterProvider.
func NewRunMetrics(meter metric.Meter) (*RunMetrics, error) {
	runsClaimed, err := meter.Int64Counter("eltorch.runs.claimed",
		metric.WithDescription("job runs claimed by a worker slot"))
	if err != nil {
		return nil, fmt.Errorf("runs.claimed counter: %w", err)
	}

	runsSucceeded, err := meter.Int64Counter("eltorch.runs.succeeded",
		metric.WithDescription("job runs that reached the success state"))
	if err != nil {
		return nil, fmt.Errorf("runs.succeeded counter: %w", err)
	}

	runsFailed, err := meter.Int64Counter("eltorch.runs.failed",
		metric.WithDescription("job runs that reached the failed state"))
	if err != nil {
		return nil, fmt.Errorf("runs.failed counter: %w", err)
	}

	taskAttempts, err := meter.Int64Counter("eltorch.task.attempts",
		metric.WithDescription("task attempts made across all runs, including retries"))
	if err != nil {
		return nil, fmt.Errorf("task.attempts counter: %w", err)
	}

	taskDuration, err := meter.Float64Histogram("eltorch.task.duration_seconds",
		metric.WithDescription("wall time of a single task attempt, extract+load"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("task.duration histogram: %w", err)
	}

	runDuration, err := meter.Float64Histogram("eltorch.run.duration_seconds",
		metric.WithDescription("wall time of a job run from claim to terminal state"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("run.duration histogram: %w", err)
	}

	return &RunMetrics{
		RunsClaimed:   runsClaimed,
		RunsSucceeded: runsSucceeded,
		RunsFailed:    runsFailed,
		TaskAttempts:  taskAttempts,
		TaskDuration:  taskDuration,
		RunDuration:   runDuration,
	}, nil
}

// RegisterQueueDepthGauge wires an observable gauge that reports the number
// of runs currently sitting in the queued state, sampled via fn at each
// collection pass. fn is typically the State Store's CountQueuedRuns.
func (m *RunMetrics) RegisterQueueDepthGauge(meter metric.Meter, fn func(ctx context.Context) (int64, error)) error {
	gauge, err := meter.Int64ObservableGauge("eltorch.runs.queued_depth",
		metric.WithDescription("runs currently waiting in the queued state"))
	if err != nil {
		return fmt.Errorf("runs.queued_depth gauge: %w", err)
	}

	_, err = meter.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
		depth, err := fn(ctx)
		if err != nil {
			return err
		}
		o.ObserveInt64(gauge, depth)
		return nil
	}, gauge)
	if err != nil {
		return fmt.Errorf("registering queued_depth callback: %w", err)
	}

	m.QueuedRunGauge = gauge
	return nil
}
