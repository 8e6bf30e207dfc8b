package service

import (
	"context"
	"errors"

	"github.com/customer-ingest/internal/apperr"
	"github.com/customer-ingest/internal/auth"
	"github.com/customer-ingest/internal/models"
	"github.com/customer-ingest/internal/repository"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

const uniqueViolation = "23505"

type authService struct {
	users  repository.UserRepository
	tokens TokenIssuer
	log    zerolog.Logger
}

func newAuthService(users repository.UserRepository, tokens TokenIssuer, log zerolog.Logger) *authService {
	return &authService{
		users:  users,
		tokens: tokens,
		log:    log.With().Str("component", "auth_service").Logger(),
	}
}

// Register hashes the given password and creates a user row. A
// duplicate email (case-insensitive, enforced by a unique index)
// surfaces as a 409 Conflict.
func (s *authService) Register(ctx context.Context, email, password string) (*models.User, error) {
	if email == "" || password == "" {
		return nil, apperr.BadRequest("email and password are required")
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		return nil, apperr.Database(err)
	}

	user, err := s.users.Create(ctx, email, hashed)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, apperr.Conflict("an account with this email already exists")
		}
		return nil, apperr.Database(err)
	}
	return user, nil
}

// Login verifies credentials and issues an access token. Email lookup
// is case-insensitive; the password hash comparison is not.
func (s *authService) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return "", apperr.Database(err)
	}
	if user == nil || !auth.VerifyPassword(user.HashedPassword, password) {
		return "", apperr.Unauthorized("invalid email or password")
	}

	token, err := s.tokens.IssueAccessToken(user.ID, user.Email)
	if err != nil {
		return "", apperr.Database(err)
	}
	return token, nil
}
