// Package badger provides an embedded, durable identity store on BadgerDB.
// Records are msgpack-encoded under zero-padded numeric keys so iteration
// order matches ID order.
package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/kozaktomas/face-auth/internal/config"
	"github.com/kozaktomas/face-auth/internal/database"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	sequenceKey       = "seq:identity"
	sequenceBandwidth = 100
)

// record is the stored representation of an identity.
type record struct {
	ID          int64     `msgpack:"id"`
	Name        string    `msgpack:"name"`
	Email       string    `msgpack:"email"`
	Embedding   []float32 `msgpack:"embedding"`
	AgeEstimate float64   `msgpack:"age"`
	GenderLabel string    `msgpack:"gender"`
	CreatedAt   time.Time `msgpack:"created_at"`
}

// Options configures the store.
type Options struct {
	// Dir is the directory for BadgerDB data files. Required unless InMemory.
	Dir string
	// InMemory runs BadgerDB without disk persistence (tests).
	InMemory bool
	// Dimension is the embedding length every record must have.
	Dimension int
	// Logger receives badger's internal log output. Nil uses slog.Default().
	Logger *slog.Logger
}

// Store is an IdentityStore backed by BadgerDB.
type Store struct {
	db  *badgerdb.DB
	seq *badgerdb.Sequence
	dim int
}

// New opens (or creates) a badger database.
func New(opts Options) (*Store, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("badger: Dir is required for on-disk mode")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	dbOpts := badgerdb.DefaultOptions(opts.Dir).WithLogger(slogLogger{logger: logger.With("component", "badger")})
	if opts.InMemory {
		dbOpts = dbOpts.WithDir("").WithValueDir("").WithInMemory(true)
	}

	db, err := badgerdb.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}

	seq, err := db.GetSequence([]byte(sequenceKey), sequenceBandwidth)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open identity sequence: %w", err)
	}

	return &Store{db: db, seq: seq, dim: opts.Dimension}, nil
}

// Open is the database.Opener for the badger backend.
func Open(_ context.Context, cfg *config.Config) (*Store, error) {
	return New(Options{Dir: cfg.Store.BadgerDir, Dimension: cfg.Matching.Dimension})
}

func identityKey(id int64) []byte {
	return fmt.Appendf(nil, "%s:%020d", database.IdentityKeyPrefix, id)
}

func identityPrefix() []byte {
	return []byte(database.IdentityKeyPrefix + ":")
}

// parseIdentityKey extracts the ID from an identity key.
func parseIdentityKey(key []byte) (int64, error) {
	s := strings.TrimPrefix(string(key), database.IdentityKeyPrefix+":")
	return strconv.ParseInt(s, 10, 64)
}

// Insert validates and stores a new identity.
func (s *Store) Insert(ctx context.Context, identity database.NewIdentity) (*database.IdentityRecord, error) {
	if err := database.ValidateIdentity(identity, s.dim); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, database.WrapPersistence("insert identity", err)
	}

	next, err := s.seq.Next()
	if err != nil {
		return nil, database.WrapPersistence("allocate identity id", err)
	}

	rec := identity.Record(int64(next)+1, time.Now().UTC())
	value, err := msgpack.Marshal(record{
		ID:          rec.ID,
		Name:        rec.Name,
		Email:       rec.Email,
		Embedding:   rec.Embedding,
		AgeEstimate: rec.AgeEstimate,
		GenderLabel: rec.GenderLabel,
		CreatedAt:   rec.CreatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("encode identity: %w", err)
	}

	err = s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(identityKey(rec.ID), value)
	})
	if err != nil {
		return nil, database.WrapPersistence("insert identity", err)
	}
	return &rec, nil
}

// scan iterates identities inside one read transaction (a consistent snapshot).
func (s *Store) scan(ctx context.Context, fn func(rec *record) error) error {
	return s.db.View(func(txn *badgerdb.Txn) error {
		iterOpts := badgerdb.DefaultIteratorOptions
		iterOpts.Prefix = identityPrefix()
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			var rec record
			err := item.Value(func(val []byte) error {
				return msgpack.Unmarshal(val, &rec)
			})
			if err != nil {
				id, _ := parseIdentityKey(item.Key())
				return fmt.Errorf("decode identity %d: %w", id, err)
			}
			if err := fn(&rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListAll returns all identities from a single read transaction.
func (s *Store) ListAll(ctx context.Context) (database.Snapshot, error) {
	var candidates []database.Candidate
	err := s.scan(ctx, func(rec *record) error {
		candidates = append(candidates, database.Candidate{ID: rec.ID, Name: rec.Name, Embedding: rec.Embedding})
		return nil
	})
	if err != nil {
		return database.Snapshot{}, database.WrapPersistence("list identities", err)
	}
	return database.NewSnapshot(candidates), nil
}

// FindByName returns all identities with this name, ordered by ID.
func (s *Store) FindByName(ctx context.Context, name string) ([]database.IdentityRecord, error) {
	var out []database.IdentityRecord
	err := s.scan(ctx, func(rec *record) error {
		if rec.Name == name {
			out = append(out, database.IdentityRecord{
				ID:          rec.ID,
				Name:        rec.Name,
				Email:       rec.Email,
				Embedding:   rec.Embedding,
				AgeEstimate: rec.AgeEstimate,
				GenderLabel: rec.GenderLabel,
				CreatedAt:   rec.CreatedAt,
			})
		}
		return nil
	})
	if err != nil {
		return nil, database.WrapPersistence("find identities by name", err)
	}
	return out, nil
}

// Count returns the number of identities using a key-only iteration.
func (s *Store) Count(ctx context.Context) (int, error) {
	count := 0
	err := s.db.View(func(txn *badgerdb.Txn) error {
		iterOpts := badgerdb.DefaultIteratorOptions
		iterOpts.PrefetchValues = false
		iterOpts.Prefix = identityPrefix()
		it := txn.NewIterator(iterOpts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return ctx.Err()
	})
	if err != nil {
		return 0, database.WrapPersistence("count identities", err)
	}
	return count, nil
}

// Close releases the sequence and closes the database.
func (s *Store) Close() error {
	var errs []error
	if s.seq != nil {
		errs = append(errs, s.seq.Release())
	}
	if s.db != nil {
		errs = append(errs, s.db.Close())
	}
	return errors.Join(errs...)
}

// slogLogger adapts slog to badger.Logger.
type slogLogger struct {
	logger *slog.Logger
}

func (l slogLogger) Errorf(format string, args ...any) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l slogLogger) Warningf(format string, args ...any) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l slogLogger) Infof(format string, args ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l slogLogger) Debugf(format string, args ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}
