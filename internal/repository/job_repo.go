package repository

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/customer-ingest/internal/database"
	"github.com/customer-ingest/internal/models"
	"github.com/lib/pq"
)

// ErrDuplicateIdempotency is returned by Insert when a row already
// exists for (user_id, idempotency_key).
var ErrDuplicateIdempotency = errors.New("duplicate idempotency key")

const uniqueViolation = "23505"

// jobRepo is the concrete implementation of JobRepository.
type jobRepo struct {
	db *database.DB
}

// NewJobRepo creates a new job repository.
func NewJobRepo(db *database.DB) JobRepository {
	return &jobRepo{db: db}
}

func (r *jobRepo) FindByUserAndKey(ctx context.Context, userID, idempotencyKey string) (*models.ImportJob, error) {
	query := `
		SELECT id, user_id, idempotency_key, status, mode, filename, s3_key,
			total_rows, processed_rows, error, error_report_object_key, error_count, created_at
		FROM import_jobs WHERE user_id = $1 AND idempotency_key = $2
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, userID, idempotencyKey))
}

func (r *jobRepo) Insert(ctx context.Context, job *models.ImportJob) error {
	query := `
		INSERT INTO import_jobs (id, user_id, idempotency_key, status, mode, filename, s3_key,
			total_rows, processed_rows, error, error_report_object_key, error_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := r.db.ExecContext(ctx, query,
		job.ID, job.UserID, job.IdempotencyKey, job.Status, job.Mode, job.Filename, job.S3Key,
		job.TotalRows, job.ProcessedRows, job.Error, job.ErrorReportObjectKey, job.ErrorCount, job.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrDuplicateIdempotency
		}
		return err
	}
	return nil
}

func (r *jobRepo) Get(ctx context.Context, id string) (*models.ImportJob, error) {
	query := `
		SELECT id, user_id, idempotency_key, status, mode, filename, s3_key,
			total_rows, processed_rows, error, error_report_object_key, error_count, created_at
		FROM import_jobs WHERE id = $1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *jobRepo) scanOne(row *sql.Row) (*models.ImportJob, error) {
	var job models.ImportJob
	var errorStr, reportKey sql.NullString

	err := row.Scan(
		&job.ID, &job.UserID, &job.IdempotencyKey, &job.Status, &job.Mode, &job.Filename, &job.S3Key,
		&job.TotalRows, &job.ProcessedRows, &errorStr, &reportKey, &job.ErrorCount, &job.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if errorStr.Valid {
		job.Error = &errorStr.String
	}
	if reportKey.Valid {
		job.ErrorReportObjectKey = &reportKey.String
	}
	return &job, nil
}

// Update applies a partial update unconditionally. Callers that must
// guard on the current status (the pending->processing transition)
// use MarkProcessing instead.
func (r *jobRepo) Update(ctx context.Context, id string, fields JobUpdate) error {
	set := make([]string, 0, 6)
	args := make([]interface{}, 0, 7)
	argN := 1

	add := func(col string, val interface{}) {
		set = append(set, col+" = $"+strconv.Itoa(argN))
		args = append(args, val)
		argN++
	}

	if fields.Status != nil {
		add("status", *fields.Status)
	}
	if fields.TotalRows != nil {
		add("total_rows", *fields.TotalRows)
	}
	if fields.ProcessedRows != nil {
		add("processed_rows", *fields.ProcessedRows)
	}
	if fields.ClearError {
		add("error", nil)
	} else if fields.Error != nil {
		add("error", *fields.Error)
	}
	if fields.ErrorReportObjectKey != nil {
		add("error_report_object_key", *fields.ErrorReportObjectKey)
	}
	if fields.ErrorCount != nil {
		add("error_count", *fields.ErrorCount)
	}

	if len(set) == 0 {
		return nil
	}

	query := "UPDATE import_jobs SET " + strings.Join(set, ", ") + " WHERE id = $" + strconv.Itoa(argN)
	args = append(args, id)

	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

func (r *jobRepo) MarkProcessing(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE import_jobs SET status = 'processing', error = NULL, processed_rows = 0
		WHERE id = $1 AND status = 'pending'
	`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, err
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}
