package worker

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"eltorch/internal/apperrors"
	"eltorch/internal/observability"
	"eltorch/internal/plugin"
	"eltorch/internal/store"
)

// RetryPolicy is the per-task exponential-backoff-with-jitter retry policy.
// Only transient errors (per plugin.IsTransient) are retried; validation and
// other permanent errors fail the task on the first attempt.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Factor      float64
	Jitter      float64
}

// DefaultRetryPolicy matches the host system's documented defaults.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts: 3,
	BaseDelay:   time.Second,
	Factor:      2,
	Jitter:      0.2,
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	base := float64(p.BaseDelay) * pow(p.Factor, attempt)
	jitterRange := base * p.Jitter
	jittered := base + (rand.Float64()*2-1)*jitterRange
	if jittered < 0 {
		jittered = 0
	}
	return time.Duration(jittered)
}

func pow(base float64, exp int) float64 {
	result := 1.0
	for i := 0; i < exp; i++ {
		result *= base
	}
	return result
}

// Runner executes the ordered task list of one JobRun.
type Runner struct {
	store    store.StateStore
	registry *plugin.Registry
	policy   RetryPolicy
	metrics  *observability.RunMetrics
}

// NewRunner constructs a Runner with the default retry policy. metrics may
// be nil, in which case per-task instruments are skipped.
func NewRunner(s store.StateStore, registry *plugin.Registry, metrics *observability.RunMetrics) *Runner {
	return &Runner{store: s, registry: registry, policy: DefaultRetryPolicy, metrics: metrics}
}

// WithRetryPolicy returns a copy of r using policy instead of the default.
func (r *Runner) WithRetryPolicy(policy RetryPolicy) *Runner {
	r2 := *r
	r2.policy = policy
	return &r2
}

// Execute runs every task of run.JobID in task_order ascending, stopping and
// returning an error on the first task that exhausts its retries or fails
// permanently. A failure in task N never rolls back tasks 0..N-1: loaders
// own their own atomicity at the destination.
func (r *Runner) Execute(ctx context.Context, run *store.JobRun) error {
	tracer := otel.Tracer("task-runner")
	ctx, span := tracer.Start(ctx, "run.execute",
		trace.WithAttributes(
			attribute.String("run.id", run.RunID.String()),
			attribute.String("job.id", run.JobID.String()),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	defer span.End()

	tasks, err := r.store.GetTasksForJob(ctx, run.JobID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("loading tasks for job %s: %w", run.JobID, err)
	}

	sort.Slice(tasks, func(i, j int) bool { return tasks[i].TaskOrder < tasks[j].TaskOrder })

	for _, task := range tasks {
		if err := r.runTask(ctx, run, task); err != nil {
			span.RecordError(err)
			return fmt.Errorf("task %d: %w", task.TaskOrder, err)
		}
	}
	return nil
}

func (r *Runner) runTask(ctx context.Context, run *store.JobRun, task store.TaskDefinition) error {
	tracer := otel.Tracer("task-runner")
	ctx, span := tracer.Start(ctx, "task.run",
		trace.WithAttributes(
			attribute.String("run.id", run.RunID.String()),
			attribute.String("job.id", run.JobID.String()),
			attribute.String("task.id", task.TaskID.String()),
			attribute.Int("task.order", task.TaskOrder),
		),
	)
	defer span.End()

	extractor, err := r.registry.NewExtractor(task.ExtractorConfig)
	if err != nil {
		span.RecordError(err)
		return err
	}
	loader, err := r.registry.NewLoader(task.LoaderConfig)
	if err != nil {
		span.RecordError(err)
		return err
	}

	err = r.withRetry(ctx, func() error {
		start := time.Now()
		dataset, err := extractor.Extract(ctx, task.ExtractorConfig)
		if err == nil {
			err = loader.Load(ctx, task.LoaderConfig, dataset)
		}

		if r.metrics != nil {
			r.metrics.TaskAttempts.Add(ctx, 1)
			r.metrics.TaskDuration.Record(ctx, time.Since(start).Seconds())
		}
		if dataset != nil {
			span.SetAttributes(attribute.Int("task.rows", len(dataset.Rows)))
		}
		return err
	})
	if err != nil {
		span.RecordError(err)
	}
	return err
}

// withRetry applies the configured RetryPolicy to op, retrying only when
// plugin.IsTransient(err) is true. Non-transient errors, including
// apperrors.ValidationError from config resolution, fail immediately.
func (r *Runner) withRetry(ctx context.Context, op func() error) error {
	var lastErr error
	for attempt := 0; attempt < r.policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.policy.delay(attempt - 1)):
			}
		}

		err := op()
		if err == nil {
			return nil
		}
		lastErr = err

		var cancelled *plugin.CancelledError
		if errors.As(err, &cancelled) {
			return err
		}
		if apperrors.IsValidation(err) || !plugin.IsTransient(err) {
			return err
		}
	}
	return lastErr
}
