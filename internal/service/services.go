// Package service holds the submission service and the
// registration/login service that front the HTTP handlers.
package service

import (
	"context"
	"time"

	"github.com/customer-ingest/internal/config"
	"github.com/customer-ingest/internal/models"
	"github.com/customer-ingest/internal/repository"
	"github.com/rs/zerolog"
)

// SubmissionService is the synchronous half of the ingestion
// pipeline: given a multipart upload it stages the bytes, creates or
// replays an ImportJob, and enqueues exactly one task per distinct
// (user_id, idempotency_key).
type SubmissionService interface {
	Submit(ctx context.Context, req SubmitRequest) (*models.ImportJob, bool, error)
	GetJob(ctx context.Context, userID, jobID string) (*models.ImportJob, error)
	GetErrorReportURL(ctx context.Context, userID, jobID string) (string, error)
}

// SubmitRequest is the submission service's input contract.
type SubmitRequest struct {
	UserID         string
	IdempotencyKey string
	Mode           models.ImportMode
	FileBytes      []byte
	Filename       string
}

// AuthService backs /auth/register and /auth/token.
type AuthService interface {
	Register(ctx context.Context, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (string, error)
}

// Services holds all service interfaces.
type Services struct {
	Submission SubmissionService
	Auth       AuthService
}

// ObjectStore is the narrow subset of the object store gateway the
// submission service needs.
type ObjectStore interface {
	PutBytes(ctx context.Context, data []byte, filename string) (string, error)
	PresignGet(ctx context.Context, key string, ttl time.Duration, downloadFilename string) (string, error)
}

// Enqueuer is the narrow subset of the queue client the submission
// service needs.
type Enqueuer interface {
	EnqueueProcessImport(ctx context.Context, jobID string) error
}

// TokenIssuer is the narrow subset of internal/auth used by the auth
// service, kept as an interface so the auth service can be unit
// tested with a fake issuer instead of real JWT signing.
type TokenIssuer interface {
	IssueAccessToken(userID, email string) (string, error)
}

// NewServices wires submission and auth services from repositories
// and process-wide collaborators.
func NewServices(repos *repository.Repositories, cfg *config.Config, tokens TokenIssuer, store ObjectStore, queue Enqueuer, log zerolog.Logger) *Services {
	return &Services{
		Submission: newSubmissionService(repos.Job, cfg, store, queue, log),
		Auth:       newAuthService(repos.User, tokens, log),
	}
}
