package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/customer-ingest/internal/apperr"
	"github.com/customer-ingest/internal/mocks"
	"github.com/customer-ingest/internal/models"
	"github.com/rs/zerolog"
)

func newTestSubmissionService(jobs *mocks.MockJobRepository, store *mocks.MockObjectStore, queue *mocks.MockEnqueuer) *submissionService {
	return &submissionService{
		jobs:  jobs,
		store: store,
		queue: queue,
		ttl:   time.Hour,
		log:   zerolog.Nop(),
	}
}

func TestSubmitRejectsMissingIdempotencyKey(t *testing.T) {
	s := newTestSubmissionService(mocks.NewMockJobRepository(), mocks.NewMockObjectStore(), &mocks.MockEnqueuer{})

	_, _, err := s.Submit(context.Background(), SubmitRequest{UserID: "u1", FileBytes: []byte("a")})
	assertClientStatus(t, err, 400)
}

func TestSubmitRejectsEmptyFile(t *testing.T) {
	s := newTestSubmissionService(mocks.NewMockJobRepository(), mocks.NewMockObjectStore(), &mocks.MockEnqueuer{})

	_, _, err := s.Submit(context.Background(), SubmitRequest{UserID: "u1", IdempotencyKey: "k1"})
	assertClientStatus(t, err, 400)
}

func TestSubmitHappyPath(t *testing.T) {
	jobs := mocks.NewMockJobRepository()
	store := mocks.NewMockObjectStore()
	queue := &mocks.MockEnqueuer{}
	s := newTestSubmissionService(jobs, store, queue)

	job, replayed, err := s.Submit(context.Background(), SubmitRequest{
		UserID:         "u1",
		IdempotencyKey: "k1",
		Mode:           models.ModeInsertOnly,
		FileBytes:      []byte("email,first_name,last_name,phone,city\n"),
		Filename:       "customers.csv",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if replayed {
		t.Error("expected a fresh submission, not a replay")
	}
	if job.Status != models.JobStatusPending {
		t.Errorf("expected pending status, got %s", job.Status)
	}
	if len(queue.EnqueuedIDs) != 1 || queue.EnqueuedIDs[0] != job.ID {
		t.Errorf("expected exactly one enqueue for the new job, got %v", queue.EnqueuedIDs)
	}
}

func TestSubmitReplaysExistingJobForSameKey(t *testing.T) {
	jobs := mocks.NewMockJobRepository()
	store := mocks.NewMockObjectStore()
	queue := &mocks.MockEnqueuer{}
	s := newTestSubmissionService(jobs, store, queue)

	req := SubmitRequest{
		UserID:         "u1",
		IdempotencyKey: "k1",
		Mode:           models.ModeInsertOnly,
		FileBytes:      []byte("email,first_name,last_name,phone,city\n"),
		Filename:       "customers.csv",
	}

	first, _, err := s.Submit(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error on first submit: %v", err)
	}

	second, replayed, err := s.Submit(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error on second submit: %v", err)
	}
	if !replayed {
		t.Error("expected the second submit with the same key to be a replay")
	}
	if second.ID != first.ID {
		t.Errorf("expected the same job id on replay, got %s vs %s", second.ID, first.ID)
	}
	if len(queue.EnqueuedIDs) != 1 {
		t.Errorf("expected only one enqueue across both submissions, got %d", len(queue.EnqueuedIDs))
	}
	if store.PutCalls != 1 {
		t.Errorf("expected only one staged upload across both submissions, got %d", store.PutCalls)
	}
}

func TestSubmitDistinctUsersSameKeyGetDistinctJobs(t *testing.T) {
	jobs := mocks.NewMockJobRepository()
	store := mocks.NewMockObjectStore()
	queue := &mocks.MockEnqueuer{}
	s := newTestSubmissionService(jobs, store, queue)

	reqA := SubmitRequest{UserID: "userA", IdempotencyKey: "same-key", Mode: models.ModeInsertOnly, FileBytes: []byte("x"), Filename: "a.csv"}
	reqB := SubmitRequest{UserID: "userB", IdempotencyKey: "same-key", Mode: models.ModeInsertOnly, FileBytes: []byte("x"), Filename: "b.csv"}

	jobA, _, err := s.Submit(context.Background(), reqA)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	jobB, _, err := s.Submit(context.Background(), reqB)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if jobA.ID == jobB.ID {
		t.Error("expected distinct jobs for distinct users with the same idempotency key")
	}
}

func TestSubmitEnqueueFailureMarksJobFailedAndReturns503(t *testing.T) {
	jobs := mocks.NewMockJobRepository()
	store := mocks.NewMockObjectStore()
	queue := &mocks.MockEnqueuer{EnqueueErr: errors.New("redis: connection refused")}
	s := newTestSubmissionService(jobs, store, queue)

	job, _, err := s.Submit(context.Background(), SubmitRequest{
		UserID:         "u1",
		IdempotencyKey: "k1",
		Mode:           models.ModeInsertOnly,
		FileBytes:      []byte("x"),
		Filename:       "customers.csv",
	})
	if job != nil {
		t.Error("expected no job returned on enqueue failure")
	}
	assertClientStatus(t, err, 503)

	stored, findErr := jobs.FindByUserAndKey(context.Background(), "u1", "k1")
	if findErr != nil {
		t.Fatalf("unexpected error: %v", findErr)
	}
	if stored == nil || stored.Status != models.JobStatusFailed {
		t.Fatalf("expected the job row to be persisted as failed, got %v", stored)
	}
}

func TestGetJobScopedToOwner(t *testing.T) {
	jobs := mocks.NewMockJobRepository()
	jobs.Jobs["job-1"] = &models.ImportJob{ID: "job-1", UserID: "owner"}
	s := newTestSubmissionService(jobs, mocks.NewMockObjectStore(), &mocks.MockEnqueuer{})

	_, err := s.GetJob(context.Background(), "someone-else", "job-1")
	assertClientStatus(t, err, 404)
}

func TestGetErrorReportURLConflictWhileProcessing(t *testing.T) {
	jobs := mocks.NewMockJobRepository()
	jobs.Jobs["job-1"] = &models.ImportJob{ID: "job-1", UserID: "owner", Status: models.JobStatusProcessing}
	s := newTestSubmissionService(jobs, mocks.NewMockObjectStore(), &mocks.MockEnqueuer{})

	_, err := s.GetErrorReportURL(context.Background(), "owner", "job-1")
	assertClientStatus(t, err, 409)
}

func TestGetErrorReportURLNotFoundWhenDone(t *testing.T) {
	jobs := mocks.NewMockJobRepository()
	jobs.Jobs["job-1"] = &models.ImportJob{ID: "job-1", UserID: "owner", Status: models.JobStatusDone}
	s := newTestSubmissionService(jobs, mocks.NewMockObjectStore(), &mocks.MockEnqueuer{})

	_, err := s.GetErrorReportURL(context.Background(), "owner", "job-1")
	assertClientStatus(t, err, 404)
}

func assertClientStatus(t *testing.T, err error, status int) {
	t.Helper()
	var appErr *apperr.Error
	if !apperr.As(err, &appErr) {
		t.Fatalf("expected an *apperr.Error, got %v", err)
	}
	if appErr.Status != status {
		t.Errorf("expected status %d, got %d (%s)", status, appErr.Status, appErr.Msg)
	}
}
