package database

import (
	"context"
)

// IdentityReader provides read-only access to registered identities
type IdentityReader interface {
	// ListAll returns a consistent snapshot of every record's name and embedding.
	// Inserts that commit before the call starts are always visible.
	ListAll(ctx context.Context) (Snapshot, error)
	// FindByName returns all records with exactly this name, ordered by ID (possibly none)
	FindByName(ctx context.Context, name string) ([]IdentityRecord, error)
	// Count returns the total number of records stored
	Count(ctx context.Context) (int, error)
}

// IdentityWriter provides write access to registered identities
type IdentityWriter interface {
	// Insert validates and durably appends one record, returning it with its assigned ID.
	// It does not deduplicate by name.
	Insert(ctx context.Context, identity NewIdentity) (*IdentityRecord, error)
}

// IdentityStore is the full store contract implemented by every backend.
type IdentityStore interface {
	IdentityReader
	IdentityWriter
	// Close releases the backend's resources
	Close() error
}
