package repository

import (
	"context"
	"time"

	"github.com/customer-ingest/internal/database"
	"github.com/customer-ingest/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// customerRepo is the concrete implementation of CustomerRepository.
type customerRepo struct {
	db *database.DB
}

// NewCustomerRepo creates a new customer repository.
func NewCustomerRepo(db *database.DB) CustomerRepository {
	return &customerRepo{db: db}
}

// FindExistingEmails is insert_only's pre-query: one SELECT against
// the batch's emails, so the flusher can exclude conflicts before the
// INSERT runs.
func (r *customerRepo) FindExistingEmails(ctx context.Context, emails []string) (map[string]bool, error) {
	if len(emails) == 0 {
		return map[string]bool{}, nil
	}

	query := `SELECT email FROM customers WHERE email = ANY($1)`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(emails))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	existing := make(map[string]bool, len(emails))
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, err
		}
		existing[email] = true
	}
	return existing, rows.Err()
}

// BatchInsert writes a batch of already-conflict-filtered payloads
// using the COPY protocol in one transaction that this call commits,
// so a batch failure does not roll back earlier batches.
func (r *customerRepo) BatchInsert(ctx context.Context, payloads []*models.CustomerPayload) (int, error) {
	if len(payloads) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("customers",
		"id", "email", "first_name", "last_name", "phone", "city", "created_at", "updated_at",
	))
	if err != nil {
		return 0, err
	}

	inserted := 0
	for _, p := range payloads {
		if _, err := stmt.ExecContext(ctx,
			uuid.New().String(), p.Email, p.FirstName, p.LastName, p.Phone, p.City, time.Now().UTC(), time.Now().UTC(),
		); err != nil {
			stmt.Close()
			return 0, err
		}
		inserted++
	}

	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return 0, err
	}
	if err := stmt.Close(); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}

// Upsert inserts-or-updates a batch; the id and email are never
// overwritten on conflict, and updated_at is refreshed by the database.
func (r *customerRepo) Upsert(ctx context.Context, payloads []*models.CustomerPayload) (int, error) {
	if len(payloads) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO customers (id, email, first_name, last_name, phone, city, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (email) DO UPDATE SET
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			phone = excluded.phone,
			city = excluded.city,
			updated_at = now()
	`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	upserted := 0
	for _, p := range payloads {
		if _, err := stmt.ExecContext(ctx,
			uuid.New().String(), p.Email, p.FirstName, p.LastName, p.Phone, p.City, time.Now().UTC(),
		); err != nil {
			return 0, err
		}
		upserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return upserted, nil
}
