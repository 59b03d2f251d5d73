package sqlite

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"

	"eltorch/internal/apperrors"
	"eltorch/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	f, err := os.CreateTemp("", "eltorch_test_*.db")
	if err != nil {
		t.Fatalf("tmp file: %v", err)
	}
	path := f.Name()
	f.Close()
	t.Cleanup(func() { os.Remove(path) })

	s, err := New(context.Background(), path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testJobInput(name string) store.NewJobInput {
	return store.NewJobInput{
		JobName:  name,
		Schedule: "@manual",
		IsActive: true,
		Tasks: []store.NewTaskInput{
			{ExtractorConfig: json.RawMessage(`{"type":"csv","path":"/t/a.csv"}`), LoaderConfig: json.RawMessage(`{"type":"duckdb","db_path":"/t/w.db","table_name":"t"}`)},
		},
	}
}

func TestCreateJob_AndGetJob(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job, tasks, err := s.CreateJob(ctx, testJobInput("job-a"))
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}

	got, gotTasks, err := s.GetJob(ctx, job.JobID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.JobName != "job-a" {
		t.Errorf("job name = %q, want job-a", got.JobName)
	}
	if len(gotTasks) != 1 || gotTasks[0].TaskOrder != 0 {
		t.Errorf("unexpected tasks: %+v", gotTasks)
	}
}

func TestGetJob_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, _, err := s.GetJob(context.Background(), uuid.New())
	if !apperrors.IsNotFound(err) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}

func TestCreateJob_EmptyName(t *testing.T) {
	s := newTestStore(t)
	input := testJobInput("  ")
	_, _, err := s.CreateJob(context.Background(), input)
	if !apperrors.IsValidation(err) {
		t.Errorf("expected ValidationError, got %v", err)
	}
}

func TestCreateJob_NoTasks(t *testing.T) {
	s := newTestStore(t)
	_, _, err := s.CreateJob(context.Background(), store.NewJobInput{JobName: "job"})
	if !apperrors.IsValidation(err) {
		t.Errorf("expected ValidationError, got %v", err)
	}
}

func TestListJobs_And_ListActiveJobs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	active := testJobInput("active-job")
	inactive := testJobInput("inactive-job")
	inactive.IsActive = false

	if _, _, err := s.CreateJob(ctx, active); err != nil {
		t.Fatalf("CreateJob active: %v", err)
	}
	if _, _, err := s.CreateJob(ctx, inactive); err != nil {
		t.Fatalf("CreateJob inactive: %v", err)
	}

	all, err := s.ListJobs(ctx)
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 jobs, got %d", len(all))
	}

	actives, err := s.ListActiveJobs(ctx)
	if err != nil {
		t.Fatalf("ListActiveJobs: %v", err)
	}
	if len(actives) != 1 || actives[0].JobName != "active-job" {
		t.Errorf("unexpected active jobs: %+v", actives)
	}
}

func TestDeleteJob_Cascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job, _, err := s.CreateJob(ctx, testJobInput("job-to-delete"))
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if _, err := s.CreateRun(ctx, job.JobID, store.TriggeredByManual); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	if err := s.DeleteJob(ctx, job.JobID); err != nil {
		t.Fatalf("DeleteJob: %v", err)
	}

	_, _, err = s.GetJob(ctx, job.JobID)
	if !apperrors.IsNotFound(err) {
		t.Errorf("expected NotFoundError after delete, got %v", err)
	}

	tasks, err := s.GetTasksForJob(ctx, job.JobID)
	if err != nil {
		t.Fatalf("GetTasksForJob: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("expected tasks to cascade-delete, got %d", len(tasks))
	}

	runs, err := s.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected runs to cascade-delete, got %d", len(runs))
	}
}

func TestDeleteJob_NotFound(t *testing.T) {
	s := newTestStore(t)
	err := s.DeleteJob(context.Background(), uuid.New())
	if !apperrors.IsNotFound(err) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}

func TestCreateRun_JobNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.CreateRun(context.Background(), uuid.New(), store.TriggeredByScheduled)
	if !apperrors.IsNotFound(err) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}

func TestClaimNextQueuedRun_OrderAndExhaustion(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job, _, err := s.CreateJob(ctx, testJobInput("job-claim"))
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	run1, err := s.CreateRun(ctx, job.JobID, store.TriggeredByManual)
	if err != nil {
		t.Fatalf("CreateRun 1: %v", err)
	}
	run2, err := s.CreateRun(ctx, job.JobID, store.TriggeredByManual)
	if err != nil {
		t.Fatalf("CreateRun 2: %v", err)
	}

	claimed1, err := s.ClaimNextQueuedRun(ctx)
	if err != nil {
		t.Fatalf("claim 1: %v", err)
	}
	if claimed1 == nil || claimed1.RunID != run1.RunID {
		t.Fatalf("expected to claim run1 first (created_at order), got %+v", claimed1)
	}
	if claimed1.Status != store.RunStatusRunning || claimed1.StartedAt == nil {
		t.Errorf("claimed run not transitioned correctly: %+v", claimed1)
	}

	claimed2, err := s.ClaimNextQueuedRun(ctx)
	if err != nil {
		t.Fatalf("claim 2: %v", err)
	}
	if claimed2 == nil || claimed2.RunID != run2.RunID {
		t.Fatalf("expected to claim run2 second, got %+v", claimed2)
	}

	claimed3, err := s.ClaimNextQueuedRun(ctx)
	if err != nil {
		t.Fatalf("claim 3: %v", err)
	}
	if claimed3 != nil {
		t.Errorf("expected nil claim on empty queue, got %+v", claimed3)
	}
}

func TestClaimNextQueuedRun_ConcurrentClaimersNeverDuplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job, _, err := s.CreateJob(ctx, testJobInput("job-race"))
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	const numRuns = 10
	for i := 0; i < numRuns; i++ {
		if _, err := s.CreateRun(ctx, job.JobID, store.TriggeredByManual); err != nil {
			t.Fatalf("CreateRun %d: %v", i, err)
		}
	}

	var mu sync.Mutex
	seen := make(map[uuid.UUID]bool)
	var wg sync.WaitGroup
	claimedCount := 0

	for i := 0; i < numRuns; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			run, err := s.ClaimNextQueuedRun(ctx)
			if err != nil {
				t.Errorf("claim: %v", err)
				return
			}
			if run == nil {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if seen[run.RunID] {
				t.Errorf("run %s claimed twice", run.RunID)
			}
			seen[run.RunID] = true
			claimedCount++
		}()
	}
	wg.Wait()

	if claimedCount != numRuns {
		t.Errorf("expected %d runs claimed exactly once, got %d", numRuns, claimedCount)
	}
}

func TestFinalizeRun_SuccessAndFailed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job, _, err := s.CreateJob(ctx, testJobInput("job-finalize"))
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	run, err := s.CreateRun(ctx, job.JobID, store.TriggeredByManual)
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if _, err := s.ClaimNextQueuedRun(ctx); err != nil {
		t.Fatalf("ClaimNextQueuedRun: %v", err)
	}

	if err := s.FinalizeRun(ctx, run.RunID, store.RunStatusSuccess, nil); err != nil {
		t.Fatalf("FinalizeRun: %v", err)
	}

	got, err := s.GetRun(ctx, run.RunID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Status != store.RunStatusSuccess {
		t.Errorf("status = %v, want success", got.Status)
	}
	if got.FinishedAt == nil {
		t.Error("expected finished_at to be set")
	}
}

func TestFinalizeRun_NotRunning(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job, _, err := s.CreateJob(ctx, testJobInput("job-not-running"))
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	run, err := s.CreateRun(ctx, job.JobID, store.TriggeredByManual)
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	// Run is still queued, not running; finalize must fail.
	err = s.FinalizeRun(ctx, run.RunID, store.RunStatusSuccess, nil)
	if !apperrors.IsStorage(err) {
		t.Errorf("expected StorageError, got %v", err)
	}
}

func TestRecoverOrphanedRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job, _, err := s.CreateJob(ctx, testJobInput("job-orphan"))
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	run, err := s.CreateRun(ctx, job.JobID, store.TriggeredByManual)
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if _, err := s.ClaimNextQueuedRun(ctx); err != nil {
		t.Fatalf("ClaimNextQueuedRun: %v", err)
	}

	n, err := s.RecoverOrphanedRuns(ctx)
	if err != nil {
		t.Fatalf("RecoverOrphanedRuns: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 orphan recovered, got %d", n)
	}

	got, err := s.GetRun(ctx, run.RunID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Status != store.RunStatusFailed {
		t.Errorf("status = %v, want failed", got.Status)
	}
	if got.ErrorMessage == nil || *got.ErrorMessage != store.OrphanMessage {
		t.Errorf("error message = %v, want %q", got.ErrorMessage, store.OrphanMessage)
	}
}

func TestCountQueuedRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job, _, err := s.CreateJob(ctx, testJobInput("job-count"))
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := s.CreateRun(ctx, job.JobID, store.TriggeredByManual); err != nil {
			t.Fatalf("CreateRun: %v", err)
		}
	}

	n, err := s.CountQueuedRuns(ctx)
	if err != nil {
		t.Fatalf("CountQueuedRuns: %v", err)
	}
	if n != 3 {
		t.Errorf("n = %d, want 3", n)
	}

	if _, err := s.ClaimNextQueuedRun(ctx); err != nil {
		t.Fatalf("ClaimNextQueuedRun: %v", err)
	}
	n, err = s.CountQueuedRuns(ctx)
	if err != nil {
		t.Fatalf("CountQueuedRuns: %v", err)
	}
	if n != 2 {
		t.Errorf("n = %d after one claim, want 2", n)
	}
}
