// Package mocks provides map-backed test doubles for the repository
// interfaces, used by the worker and service unit tests instead of a
// real database.
package mocks

import (
	"context"

	"github.com/customer-ingest/internal/models"
	"github.com/customer-ingest/internal/repository"
)

// MockUserRepository is a mock implementation of repository.UserRepository.
type MockUserRepository struct {
	Users       map[string]*models.User
	EmailToUser map[string]*models.User
	CreateError error
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		Users:       make(map[string]*models.User),
		EmailToUser: make(map[string]*models.User),
	}
}

func (m *MockUserRepository) Create(ctx context.Context, email, hashedPassword string) (*models.User, error) {
	if m.CreateError != nil {
		return nil, m.CreateError
	}
	user := &models.User{ID: email, Email: email, HashedPassword: hashedPassword}
	m.Users[user.ID] = user
	m.EmailToUser[email] = user
	return user, nil
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.EmailToUser[email], nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return m.Users[id], nil
}

// MockCustomerRepository is a mock implementation of repository.CustomerRepository.
type MockCustomerRepository struct {
	Existing map[string]bool

	FindExistingEmailsErr error
	BatchInsertErr        error
	UpsertErr             error

	Inserted []*models.CustomerPayload
	Upserted []*models.CustomerPayload

	BatchInsertCalls int
	UpsertCalls      int
}

func NewMockCustomerRepository() *MockCustomerRepository {
	return &MockCustomerRepository{Existing: make(map[string]bool)}
}

func (m *MockCustomerRepository) FindExistingEmails(ctx context.Context, emails []string) (map[string]bool, error) {
	if m.FindExistingEmailsErr != nil {
		return nil, m.FindExistingEmailsErr
	}
	found := make(map[string]bool)
	for _, e := range emails {
		if m.Existing[e] {
			found[e] = true
		}
	}
	return found, nil
}

func (m *MockCustomerRepository) BatchInsert(ctx context.Context, payloads []*models.CustomerPayload) (int, error) {
	m.BatchInsertCalls++
	if m.BatchInsertErr != nil {
		return 0, m.BatchInsertErr
	}
	for _, p := range payloads {
		m.Existing[p.Email] = true
	}
	m.Inserted = append(m.Inserted, payloads...)
	return len(payloads), nil
}

func (m *MockCustomerRepository) Upsert(ctx context.Context, payloads []*models.CustomerPayload) (int, error) {
	m.UpsertCalls++
	if m.UpsertErr != nil {
		return 0, m.UpsertErr
	}
	for _, p := range payloads {
		m.Existing[p.Email] = true
	}
	m.Upserted = append(m.Upserted, payloads...)
	return len(payloads), nil
}

// MockJobRepository is a mock implementation of repository.JobRepository.
type MockJobRepository struct {
	Jobs map[string]*models.ImportJob

	FindErr           error
	InsertErr         error
	GetErr            error
	UpdateErr         error
	MarkProcessingErr error

	Updates []repository.JobUpdate
}

func NewMockJobRepository() *MockJobRepository {
	return &MockJobRepository{Jobs: make(map[string]*models.ImportJob)}
}

func (m *MockJobRepository) FindByUserAndKey(ctx context.Context, userID, idempotencyKey string) (*models.ImportJob, error) {
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	for _, j := range m.Jobs {
		if j.UserID == userID && j.IdempotencyKey == idempotencyKey {
			return j, nil
		}
	}
	return nil, nil
}

func (m *MockJobRepository) Insert(ctx context.Context, job *models.ImportJob) error {
	if m.InsertErr != nil {
		return m.InsertErr
	}
	if existing, _ := m.FindByUserAndKey(ctx, job.UserID, job.IdempotencyKey); existing != nil {
		return repository.ErrDuplicateIdempotency
	}
	m.Jobs[job.ID] = job
	return nil
}

func (m *MockJobRepository) Get(ctx context.Context, id string) (*models.ImportJob, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	return m.Jobs[id], nil
}

func (m *MockJobRepository) Update(ctx context.Context, id string, fields repository.JobUpdate) error {
	m.Updates = append(m.Updates, fields)
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	job, ok := m.Jobs[id]
	if !ok {
		return nil
	}
	if fields.Status != nil {
		job.Status = *fields.Status
	}
	if fields.TotalRows != nil {
		job.TotalRows = *fields.TotalRows
	}
	if fields.ProcessedRows != nil {
		job.ProcessedRows = *fields.ProcessedRows
	}
	if fields.ClearError {
		job.Error = nil
	} else if fields.Error != nil {
		job.Error = fields.Error
	}
	if fields.ErrorReportObjectKey != nil {
		job.ErrorReportObjectKey = fields.ErrorReportObjectKey
	}
	if fields.ErrorCount != nil {
		job.ErrorCount = *fields.ErrorCount
	}
	return nil
}

func (m *MockJobRepository) MarkProcessing(ctx context.Context, id string) (bool, error) {
	if m.MarkProcessingErr != nil {
		return false, m.MarkProcessingErr
	}
	job, ok := m.Jobs[id]
	if !ok || job.Status != models.JobStatusPending {
		return false, nil
	}
	job.Status = models.JobStatusProcessing
	job.Error = nil
	job.ProcessedRows = 0
	return true, nil
}
