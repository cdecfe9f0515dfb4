// Package memory provides an append-only in-memory identity store.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/kozaktomas/face-auth/internal/config"
	"github.com/kozaktomas/face-auth/internal/database"
)

// Store keeps identity records in insertion order. Records are never mutated,
// so a snapshot can share the backing array up to its length.
type Store struct {
	mu         sync.RWMutex
	records    []database.IdentityRecord
	candidates []database.Candidate
	nextID     int64
	dim        int
	now        func() time.Time
}

// New creates an empty store that accepts embeddings of length dim.
func New(dim int) *Store {
	return &Store{
		nextID: 1,
		dim:    dim,
		now:    time.Now,
	}
}

// Open is the database.Opener for the memory backend.
func Open(_ context.Context, cfg *config.Config) (database.IdentityStore, error) {
	return New(cfg.Matching.Dimension), nil
}

// Insert validates and appends a record.
func (s *Store) Insert(ctx context.Context, identity database.NewIdentity) (*database.IdentityRecord, error) {
	if err := database.ValidateIdentity(identity, s.dim); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, database.WrapPersistence("insert identity", err)
	}

	s.mu.Lock()
	rec := identity.Record(s.nextID, s.now().UTC())
	s.nextID++
	s.records = append(s.records, rec)
	s.candidates = append(s.candidates, database.Candidate{ID: rec.ID, Name: rec.Name, Embedding: rec.Embedding})
	s.mu.Unlock()

	out := rec
	out.Embedding = append([]float32(nil), rec.Embedding...)
	return &out, nil
}

// ListAll returns the records committed so far.
func (s *Store) ListAll(ctx context.Context) (database.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return database.Snapshot{}, database.WrapPersistence("list identities", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return database.NewSnapshot(s.candidates), nil
}

// FindByName returns copies of all records with the given name.
func (s *Store) FindByName(ctx context.Context, name string) ([]database.IdentityRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, database.WrapPersistence("find identities by name", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []database.IdentityRecord
	for i := range s.records {
		if s.records[i].Name == name {
			rec := s.records[i]
			rec.Embedding = append([]float32(nil), rec.Embedding...)
			out = append(out, rec)
		}
	}
	return out, nil
}

// Count returns the number of records.
func (s *Store) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}
