package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/customer-ingest/internal/apperr"
	"github.com/customer-ingest/internal/config"
	"github.com/customer-ingest/internal/errorreport"
	"github.com/customer-ingest/internal/models"
	"github.com/customer-ingest/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type submissionService struct {
	jobs  repository.JobRepository
	store ObjectStore
	queue Enqueuer
	ttl   time.Duration
	log   zerolog.Logger
}

func newSubmissionService(jobs repository.JobRepository, cfg *config.Config, store ObjectStore, queue Enqueuer, log zerolog.Logger) *submissionService {
	return &submissionService{
		jobs:  jobs,
		store: store,
		queue: queue,
		ttl:   cfg.S3.PresignTTL,
		log:   log.With().Str("component", "submission_service").Logger(),
	}
}

// Submit runs the submission algorithm: reject obviously bad input,
// replay an existing job for a repeated idempotency key, otherwise
// stage the upload, insert a pending job, and enqueue exactly one
// processing task. The bool result reports whether the returned job
// is a replay of a prior submission.
func (s *submissionService) Submit(ctx context.Context, req SubmitRequest) (*models.ImportJob, bool, error) {
	if req.IdempotencyKey == "" {
		return nil, false, apperr.BadRequest("Idempotency-Key header is required")
	}
	if len(req.FileBytes) == 0 {
		return nil, false, apperr.BadRequest("uploaded file is empty")
	}

	existing, err := s.jobs.FindByUserAndKey(ctx, req.UserID, req.IdempotencyKey)
	if err != nil {
		return nil, false, apperr.Database(err)
	}
	if existing != nil {
		return existing, true, nil
	}

	key, err := s.store.PutBytes(ctx, req.FileBytes, req.Filename)
	if err != nil {
		return nil, false, err
	}

	job := &models.ImportJob{
		ID:             uuid.New().String(),
		UserID:         req.UserID,
		IdempotencyKey: req.IdempotencyKey,
		Status:         models.JobStatusPending,
		Mode:           req.Mode,
		Filename:       req.Filename,
		S3Key:          key,
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.jobs.Insert(ctx, job); err != nil {
		if errors.Is(err, repository.ErrDuplicateIdempotency) {
			// Lost a race against a concurrent submission for the same
			// key; the other request's row is now the durable anchor.
			replay, findErr := s.jobs.FindByUserAndKey(ctx, req.UserID, req.IdempotencyKey)
			if findErr != nil {
				return nil, false, apperr.Database(findErr)
			}
			if replay == nil {
				return nil, false, apperr.Database(fmt.Errorf("duplicate idempotency key reported but no row found"))
			}
			return replay, true, nil
		}
		return nil, false, apperr.Database(err)
	}

	if err := s.queue.EnqueueProcessImport(ctx, job.ID); err != nil {
		summary := apperr.Broker(err).Summary()
		status := models.JobStatusFailed
		if updateErr := s.jobs.Update(ctx, job.ID, repository.JobUpdate{
			Status: &status,
			Error:  &summary,
		}); updateErr != nil {
			s.log.Error().Err(updateErr).Str("job_id", job.ID).Msg("failed to mark job failed after enqueue failure")
		}
		return nil, false, apperr.Unavailable("failed to enqueue import job")
	}

	return job, false, nil
}

// GetJob returns a job scoped to its owning user; a mismatch reads
// identically to a missing job.
func (s *submissionService) GetJob(ctx context.Context, userID, jobID string) (*models.ImportJob, error) {
	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, apperr.Database(err)
	}
	if job == nil || job.UserID != userID {
		return nil, apperr.NotFound("import job not found")
	}
	return job, nil
}

// GetErrorReportURL presigns the download for a failed job's error
// report. It is 409 while the job has not yet produced a report and
// 404 if the job never will (done, or not owned by the caller).
func (s *submissionService) GetErrorReportURL(ctx context.Context, userID, jobID string) (string, error) {
	job, err := s.GetJob(ctx, userID, jobID)
	if err != nil {
		return "", err
	}

	if job.ErrorReportObjectKey == nil {
		if job.IsTerminal() {
			return "", apperr.NotFound("import job has no error report")
		}
		return "", apperr.Conflict("import job has not finished processing")
	}

	downloadName := errorreport.ObjectKey(job.ID)
	url, err := s.store.PresignGet(ctx, *job.ErrorReportObjectKey, s.ttl, downloadName)
	if err != nil {
		return "", err
	}
	return url, nil
}
