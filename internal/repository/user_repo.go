package repository

import (
	"context"
	"database/sql"

	"github.com/customer-ingest/internal/database"
	"github.com/customer-ingest/internal/models"
)

// userRepo is the concrete implementation of UserRepository. The
// users table is otherwise read-only to the ingestion core.
type userRepo struct {
	db *database.DB
}

// NewUserRepo creates a new user repository.
func NewUserRepo(db *database.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) Create(ctx context.Context, email, hashedPassword string) (*models.User, error) {
	query := `
		INSERT INTO users (id, email, hashed_password, created_at)
		VALUES (gen_random_uuid(), $1, $2, now())
		RETURNING id, email, hashed_password, created_at
	`
	var user models.User
	err := r.db.QueryRowContext(ctx, query, email, hashedPassword).Scan(
		&user.ID, &user.Email, &user.HashedPassword, &user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail looks up a user case-insensitively on email, per the
// corrected lookup semantics: the hash comparison is case-sensitive,
// but the email match is not.
func (r *userRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT id, email, hashed_password, created_at FROM users WHERE LOWER(email) = LOWER($1)`
	var user models.User
	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&user.ID, &user.Email, &user.HashedPassword, &user.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT id, email, hashed_password, created_at FROM users WHERE id = $1`
	var user models.User
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID, &user.Email, &user.HashedPassword, &user.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
