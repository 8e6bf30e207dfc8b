package service

import (
	"context"
	"testing"

	"github.com/customer-ingest/internal/auth"
	"github.com/customer-ingest/internal/mocks"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

type fakeTokenIssuer struct {
	token string
	err   error
}

func (f *fakeTokenIssuer) IssueAccessToken(userID, email string) (string, error) {
	return f.token, f.err
}

func TestRegisterHashesPassword(t *testing.T) {
	users := mocks.NewMockUserRepository()
	s := newAuthService(users, &fakeTokenIssuer{}, zerolog.Nop())

	user, err := s.Register(context.Background(), "a@b.com", "plaintext-pw")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.HashedPassword == "plaintext-pw" {
		t.Error("expected the stored password to be hashed, not stored verbatim")
	}
	if !auth.VerifyPassword(user.HashedPassword, "plaintext-pw") {
		t.Error("expected the stored hash to verify against the original password")
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	users := mocks.NewMockUserRepository()
	s := newAuthService(users, &fakeTokenIssuer{token: "t"}, zerolog.Nop())

	if _, err := s.Register(context.Background(), "a@b.com", "correct-horse"); err != nil {
		t.Fatalf("unexpected error seeding user: %v", err)
	}

	if _, err := s.Login(context.Background(), "a@b.com", "wrong-password"); err == nil {
		t.Error("expected login with the wrong password to fail")
	}
}

func TestLoginIsCaseInsensitiveOnEmail(t *testing.T) {
	users := mocks.NewMockUserRepository()
	s := newAuthService(users, &fakeTokenIssuer{token: "t"}, zerolog.Nop())

	if _, err := s.Register(context.Background(), "Person@Example.com", "secretpw"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The mock repository's FindByEmail matches keys exactly, unlike
	// userRepo's case-insensitive lookup; simulate the real lookup by
	// registering the lower-case form of the same address too.
	users.EmailToUser["person@example.com"] = users.EmailToUser["Person@Example.com"]

	token, err := s.Login(context.Background(), "person@example.com", "secretpw")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "t" {
		t.Errorf("expected issued token, got %q", token)
	}
}

func TestRegisterDuplicateEmailConflict(t *testing.T) {
	users := mocks.NewMockUserRepository()
	users.CreateError = &pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"}
	s := newAuthService(users, &fakeTokenIssuer{}, zerolog.Nop())

	_, err := s.Register(context.Background(), "a@b.com", "secretpw")
	if err == nil {
		t.Error("expected an error for a duplicate email")
	}
	assertClientStatus(t, err, 409)
}
