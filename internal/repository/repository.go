package repository

import (
	"context"

	"github.com/customer-ingest/internal/database"
	"github.com/customer-ingest/internal/models"
)

// UserRepository is read-only to the ingestion core; it backs
// registration and login only.
type UserRepository interface {
	Create(ctx context.Context, email, hashedPassword string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// CustomerRepository writes the import target table under the two
// write modes the worker dispatches on.
type CustomerRepository interface {
	// FindExistingEmails returns the subset of emails that already
	// exist in customers, for insert_only's pre-query conflict check.
	FindExistingEmails(ctx context.Context, emails []string) (map[string]bool, error)
	// BatchInsert inserts payloads that passed the conflict check.
	BatchInsert(ctx context.Context, payloads []*models.CustomerPayload) (int, error)
	// Upsert inserts-or-updates payloads, leaving id/email untouched
	// on conflict.
	Upsert(ctx context.Context, payloads []*models.CustomerPayload) (int, error)
}

// JobRepository is the Job repository of the ingestion core. Each
// method is a concrete contract; there is no generic query surface.
type JobRepository interface {
	FindByUserAndKey(ctx context.Context, userID, idempotencyKey string) (*models.ImportJob, error)
	Insert(ctx context.Context, job *models.ImportJob) error
	Get(ctx context.Context, id string) (*models.ImportJob, error)
	Update(ctx context.Context, id string, fields JobUpdate) error
	// MarkProcessing is the atomic status guard: transitions
	// pending->processing and reports whether the row matched. A
	// redelivered or otherwise stale task sees matched=false and
	// must no-op.
	MarkProcessing(ctx context.Context, id string) (matched bool, err error)
}

// JobUpdate is a partial, atomic update applied to one ImportJob row.
// Nil fields are left unchanged.
type JobUpdate struct {
	Status               *models.JobStatus
	TotalRows            *int
	ProcessedRows        *int
	Error                *string
	ClearError           bool
	ErrorReportObjectKey *string
	ErrorCount           *int
}

// Repositories holds all repository interfaces.
type Repositories struct {
	User     UserRepository
	Customer CustomerRepository
	Job      JobRepository
}

// New creates all repositories with the given database connection.
func New(db *database.DB) *Repositories {
	return &Repositories{
		User:     NewUserRepo(db),
		Customer: NewCustomerRepo(db),
		Job:      NewJobRepo(db),
	}
}
