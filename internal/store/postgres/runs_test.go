package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"eltorch/internal/apperrors"
	"eltorch/internal/store"
)

func TestCreateRun_Success(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	jobID := uuid.New()
	mock.ExpectQuery("SELECT EXISTS").WithArgs(jobID).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectExec("INSERT INTO job_runs").WillReturnResult(sqlmock.NewResult(0, 1))

	run, err := s.CreateRun(context.Background(), jobID, store.TriggeredByManual)
	if err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	if run.Status != store.RunStatusQueued {
		t.Errorf("status = %v, want queued", run.Status)
	}
	if run.JobID != jobID {
		t.Errorf("job ID mismatch")
	}
}

func TestCreateRun_JobNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	jobID := uuid.New()
	mock.ExpectQuery("SELECT EXISTS").WithArgs(jobID).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	_, err := s.CreateRun(context.Background(), jobID, store.TriggeredByScheduled)
	if !apperrors.IsNotFound(err) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}

func TestClaimNextQueuedRun_Empty(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	mock.ExpectQuery("UPDATE job_runs").WillReturnError(sql.ErrNoRows)

	run, err := s.ClaimNextQueuedRun(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run != nil {
		t.Errorf("expected nil run on empty queue, got %+v", run)
	}
}

func TestClaimNextQueuedRun_Success(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	runID := uuid.New()
	jobID := uuid.New()
	now := time.Now()

	mock.ExpectQuery("UPDATE job_runs").WillReturnRows(sqlmock.NewRows(
		[]string{"run_id", "job_id", "status", "triggered_by", "started_at", "finished_at", "error_message", "created_at"}).
		AddRow(runID, jobID, store.RunStatusRunning, store.TriggeredByScheduled, now, nil, nil, now))

	run, err := s.ClaimNextQueuedRun(context.Background())
	if err != nil {
		t.Fatalf("ClaimNextQueuedRun failed: %v", err)
	}
	if run.Status != store.RunStatusRunning {
		t.Errorf("status = %v, want running", run.Status)
	}
	if run.StartedAt == nil {
		t.Error("expected started_at to be set")
	}
}

func TestFinalizeRun_NotRunning(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	runID := uuid.New()
	mock.ExpectExec("UPDATE job_runs").WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.FinalizeRun(context.Background(), runID, store.RunStatusSuccess, nil)
	if !apperrors.IsStorage(err) {
		t.Errorf("expected StorageError, got %v", err)
	}
}

func TestFinalizeRun_Success(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	runID := uuid.New()
	mock.ExpectExec("UPDATE job_runs").WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.FinalizeRun(context.Background(), runID, store.RunStatusSuccess, nil); err != nil {
		t.Fatalf("FinalizeRun failed: %v", err)
	}
}

func TestFinalizeRun_InvalidOutcome(t *testing.T) {
	s, _ := newMockStore(t)
	defer s.db.Close()

	err := s.FinalizeRun(context.Background(), uuid.New(), store.RunStatusQueued, nil)
	if !apperrors.IsValidation(err) {
		t.Errorf("expected ValidationError, got %v", err)
	}
}

func TestRecoverOrphanedRuns_CountsAffected(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	mock.ExpectExec("UPDATE job_runs").WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := s.RecoverOrphanedRuns(context.Background())
	if err != nil {
		t.Fatalf("RecoverOrphanedRuns failed: %v", err)
	}
	if n != 3 {
		t.Errorf("n = %d, want 3", n)
	}
}

func TestCountQueuedRuns(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	mock.ExpectQuery("SELECT COUNT").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))

	n, err := s.CountQueuedRuns(context.Background())
	if err != nil {
		t.Fatalf("CountQueuedRuns failed: %v", err)
	}
	if n != 5 {
		t.Errorf("n = %d, want 5", n)
	}
}
