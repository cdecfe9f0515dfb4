// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/kozaktomas/face-auth/internal/database"
)

// MockIdentityStore is a mock implementation of database.IdentityStore
type MockIdentityStore struct {
	mu      sync.RWMutex
	records []database.IdentityRecord
	dim     int

	// Error injection
	InsertError     error
	ListAllError    error
	FindByNameError error
	CountError      error

	// Call counters
	ListAllCalls int
	InsertCalls  int
}

// NewMockIdentityStore creates a new mock store validating embeddings of length dim
func NewMockIdentityStore(dim int) *MockIdentityStore {
	return &MockIdentityStore{dim: dim}
}

// AddRecord adds a record to the mock store without validation
func (m *MockIdentityStore) AddRecord(name string, embedding []float32) database.IdentityRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := database.IdentityRecord{
		ID:        int64(len(m.records) + 1),
		Name:      name,
		Embedding: embedding,
		CreatedAt: time.Now().UTC(),
	}
	m.records = append(m.records, rec)
	return rec
}

// Insert validates and stores a record
func (m *MockIdentityStore) Insert(ctx context.Context, identity database.NewIdentity) (*database.IdentityRecord, error) {
	m.mu.Lock()
	m.InsertCalls++
	m.mu.Unlock()

	if err := database.ValidateIdentity(identity, m.dim); err != nil {
		return nil, err
	}
	if m.InsertError != nil {
		return nil, m.InsertError
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	rec := identity.Record(int64(len(m.records)+1), time.Now().UTC())
	m.records = append(m.records, rec)
	return &rec, nil
}

// ListAll returns a snapshot of all records
func (m *MockIdentityStore) ListAll(ctx context.Context) (database.Snapshot, error) {
	m.mu.Lock()
	m.ListAllCalls++
	m.mu.Unlock()

	if m.ListAllError != nil {
		return database.Snapshot{}, m.ListAllError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	candidates := make([]database.Candidate, len(m.records))
	for i, rec := range m.records {
		candidates[i] = database.Candidate{ID: rec.ID, Name: rec.Name, Embedding: rec.Embedding}
	}
	return database.NewSnapshot(candidates), nil
}

// FindByName returns records with the given name
func (m *MockIdentityStore) FindByName(ctx context.Context, name string) ([]database.IdentityRecord, error) {
	if m.FindByNameError != nil {
		return nil, m.FindByNameError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []database.IdentityRecord
	for _, rec := range m.records {
		if rec.Name == name {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Count returns the number of records
func (m *MockIdentityStore) Count(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records), nil
}

// Close is a no-op
func (m *MockIdentityStore) Close() error {
	return nil
}
