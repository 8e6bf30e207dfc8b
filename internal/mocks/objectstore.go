package mocks

import (
	"context"
	"fmt"
	"time"

	"github.com/customer-ingest/internal/apperr"
)

// MockObjectStore is a mock implementation of the narrow object
// store surface the submission service and worker depend on.
type MockObjectStore struct {
	Objects map[string][]byte

	PutErr     error
	GetErr     error
	PresignErr error

	PutCalls int
}

func NewMockObjectStore() *MockObjectStore {
	return &MockObjectStore{Objects: make(map[string][]byte)}
}

func (m *MockObjectStore) PutBytes(ctx context.Context, data []byte, filename string) (string, error) {
	m.PutCalls++
	if m.PutErr != nil {
		return "", m.PutErr
	}
	key := fmt.Sprintf("imports/mock-%d_%s", m.PutCalls, filename)
	m.Objects[key] = data
	return key, nil
}

func (m *MockObjectStore) GetBytes(ctx context.Context, key string) ([]byte, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	data, ok := m.Objects[key]
	if !ok {
		return nil, &apperr.Error{Kind: apperr.KindObjectMissing, Err: apperr.ErrObjectMissing, Msg: key}
	}
	return data, nil
}

func (m *MockObjectStore) PresignGet(ctx context.Context, key string, ttl time.Duration, downloadFilename string) (string, error) {
	if m.PresignErr != nil {
		return "", m.PresignErr
	}
	return fmt.Sprintf("https://mock.store/%s?download=%s", key, downloadFilename), nil
}

// MockEnqueuer is a mock implementation of the queue client surface
// the submission service depends on.
type MockEnqueuer struct {
	EnqueueErr  error
	EnqueuedIDs []string
}

func (m *MockEnqueuer) EnqueueProcessImport(ctx context.Context, jobID string) error {
	if m.EnqueueErr != nil {
		return m.EnqueueErr
	}
	m.EnqueuedIDs = append(m.EnqueuedIDs, jobID)
	return nil
}
