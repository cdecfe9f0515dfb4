package mariadb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kozaktomas/face-auth/internal/database"
)

// IdentityRepository stores identities in MariaDB.
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

	rec := identity.Record(0, time.Now().UTC().Truncate(time.Microsecond))
	data, err := json.Marshal(rec.Embedding)
	if err != nil {
		return nil, fmt.Errorf("marshal embedding: %w", err)
	}

	res, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO identities (name, email, embedding, age_estimate, gender_label, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.Name, rec.Email, data, rec.AgeEstimate, rec.GenderLabel, rec.CreatedAt)
	if err != nil {
		return nil, database.WrapPersistence("insert identity", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, database.WrapPersistence("read inserted identity id", err)
	}
	rec.ID = id
	return &rec, nil
}

// ListAll reads all identities with one consistent InnoDB read.
func (r *IdentityRepository) ListAll(ctx context.Context) (database.Snapshot, error) {
	rows, err := r.pool.db.QueryContext(ctx, "SELECT id, name, embedding FROM identities ORDER BY id")
	if err != nil {
		return database.Snapshot{}, database.WrapPersistence("list identities", err)
	}
	defer rows.Close()

	var candidates []database.Candidate
	for rows.Next() {
		var c database.Candidate
		var data []byte
		if err := rows.Scan(&c.ID, &c.Name, &data); err != nil {
			return database.Snapshot{}, database.WrapPersistence("scan identity", err)
		}
		if err := json.Unmarshal(data, &c.Embedding); err != nil {
			return database.Snapshot{}, database.WrapPersistence("decode embedding", fmt.Errorf("identity %d: %w", c.ID, err))
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return database.Snapshot{}, database.WrapPersistence("iterate identities", err)
	}
	return database.NewSnapshot(candidates), nil
}

// FindByName returns all identities with this name.
// The column uses a binary comparison so matching is case-sensitive like the other backends.
func (r *IdentityRepository) FindByName(ctx context.Context, name string) ([]database.IdentityRecord, error) {
	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT id, name, email, embedding, age_estimate, gender_label, created_at
		FROM identities
		WHERE name = BINARY ?
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
	if err := r.pool.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM identities").Scan(&count); err != nil {
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
		var data []byte
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Email, &data, &rec.AgeEstimate, &rec.GenderLabel, &rec.CreatedAt); err != nil {
			return nil, database.WrapPersistence("scan identity", err)
		}
		if err := json.Unmarshal(data, &rec.Embedding); err != nil {
			return nil, database.WrapPersistence("decode embedding", fmt.Errorf("identity %d: %w", rec.ID, err))
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, database.WrapPersistence("iterate identities", err)
	}
	return records, nil
}
