package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kozaktomas/face-auth/internal/database"
	"github.com/pgvector/pgvector-go"
)

// IdentityRepository provides PostgreSQL-backed identity storage.
// Embeddings are stored in a pgvector column.
type IdentityRepository struct {
	pool *Pool
	dim  int
}

// NewIdentityRepository creates a repository accepting embeddings of length dim.
func NewIdentityRepository(pool *Pool, dim int) *IdentityRepository {
	return &IdentityRepository{pool: pool, dim: dim}
}

// Insert validates and stores a new identity.
func (r *IdentityRepository) Insert(ctx context.Context, identity database.NewIdentity) (*database.IdentityRecord, error) {
	if err := database.ValidateIdentity(identity, r.dim); err != nil {
		return nil, err
	}

	rec := identity.Record(0, time.Time{})
	err := r.pool.QueryRow(ctx, `
		INSERT INTO identities (name, email, embedding, age_estimate, gender_label)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, rec.Name, rec.Email, pgvector.NewVector(rec.Embedding), rec.AgeEstimate, rec.GenderLabel,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return nil, database.WrapPersistence("insert identity", err)
	}
	return &rec, nil
}

// ListAll reads every identity in one statement, which sees a single
// committed snapshot of the table.
func (r *IdentityRepository) ListAll(ctx context.Context) (database.Snapshot, error) {
	rows, err := r.pool.Query(ctx, "SELECT id, name, embedding FROM identities ORDER BY id")
	if err != nil {
		return database.Snapshot{}, database.WrapPersistence("list identities", err)
	}
	defer rows.Close()

	var candidates []database.Candidate
	for rows.Next() {
		var c database.Candidate
		var vec pgvector.Vector
		if err := rows.Scan(&c.ID, &c.Name, &vec); err != nil {
			return database.Snapshot{}, database.WrapPersistence("scan identity", err)
		}
		c.Embedding = vec.Slice()
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return database.Snapshot{}, database.WrapPersistence("iterate identities", err)
	}
	return database.NewSnapshot(candidates), nil
}

// FindByName returns all identities with exactly this name.
func (r *IdentityRepository) FindByName(ctx context.Context, name string) ([]database.IdentityRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, email, embedding, age_estimate, gender_label, created_at
		FROM identities
		WHERE name = $1
		ORDER BY id
	`, name)
	if err != nil {
		return nil, database.WrapPersistence("find identities by name", err)
	}
	defer rows.Close()

	return scanIdentities(rows)
}

// Count returns the total number of identities.
func (r *IdentityRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM identities").Scan(&count); err != nil {
		return 0, database.WrapPersistence("count identities", err)
	}
	return count, nil
}

// Close closes the underlying pool.
func (r *IdentityRepository) Close() error {
	return r.pool.Close()
}

func scanIdentities(rows *sql.Rows) ([]database.IdentityRecord, error) {
	var records []database.IdentityRecord
	for rows.Next() {
		var rec database.IdentityRecord
		var vec pgvector.Vector
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Email, &vec, &rec.AgeEstimate, &rec.GenderLabel, &rec.CreatedAt); err != nil {
			return nil, database.WrapPersistence("scan identity", fmt.Errorf("scan row: %w", err))
		}
		rec.Embedding = vec.Slice()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, database.WrapPersistence("iterate identities", err)
	}
	return records, nil
}
