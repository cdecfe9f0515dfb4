package database

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/kozaktomas/face-auth/internal/config"
)

func TestValidateIdentity(t *testing.T) {
	ok := []float32{0.1, 0.2, 0.3}
	nan := float32(math.NaN())

	tests := []struct {
		name      string
		identity  NewIdentity
		wantField string
	}{
		{"valid", NewIdentity{Name: "alice", Embedding: ok}, ""},
		{"valid without email", NewIdentity{Name: "alice", Embedding: ok, AgeEstimate: 31.5}, ""},
		{"missing name", NewIdentity{Embedding: ok}, "name"},
		{"blank name", NewIdentity{Name: "  ", Embedding: ok}, "name"},
		{"missing embedding", NewIdentity{Name: "alice"}, "faceEmbedding"},
		{"short embedding", NewIdentity{Name: "alice", Embedding: ok[:2]}, "faceEmbedding"},
		{"long embedding", NewIdentity{Name: "alice", Embedding: append(ok, 0.4)}, "faceEmbedding"},
		{"nan embedding", NewIdentity{Name: "alice", Embedding: []float32{0, nan, 0}}, "faceEmbedding"},
		{"negative age", NewIdentity{Name: "alice", Embedding: ok, AgeEstimate: -1}, "age"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateIdentity(tc.identity, 3)
			if tc.wantField == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Field != tc.wantField {
				t.Errorf("expected field %q, got %q", tc.wantField, verr.Field)
			}
			if !errors.Is(err, ErrValidation) {
				t.Error("expected errors.Is(err, ErrValidation)")
			}
		})
	}
}

func TestValidateEmbedding_ZeroDimSkipsLength(t *testing.T) {
	if err := ValidateEmbedding([]float32{1, 2, 3, 4, 5}, 0); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestPersistenceError(t *testing.T) {
	cause := errors.New("connection refused")
	err := WrapPersistence("insert identity", cause)

	if !errors.Is(err, ErrPersistence) {
		t.Error("expected errors.Is(err, ErrPersistence)")
	}
	if !errors.Is(err, cause) {
		t.Error("expected cause to be unwrapped")
	}
	if errors.Is(err, ErrValidation) {
		t.Error("persistence error must not match ErrValidation")
	}
	if WrapPersistence("noop", nil) != nil {
		t.Error("expected nil for nil cause")
	}
}

func TestSnapshotVersion(t *testing.T) {
	snap := NewSnapshot([]Candidate{{ID: 3}, {ID: 5}, {ID: 7}})
	got := snap.Version()
	if got.Count != 3 || got.MaxID != 7 {
		t.Errorf("Version() = %+v, want {3 7}", got)
	}

	var empty Snapshot
	if empty.Len() != 0 || empty.Version() != (Version{}) {
		t.Errorf("zero snapshot should be empty, got %+v", empty.Version())
	}
}

func TestSnapshotIndex(t *testing.T) {
	snap := NewSnapshot([]Candidate{{ID: 2}, {ID: 4}, {ID: 9}})
	tests := []struct {
		id   int64
		want int
	}{
		{2, 0},
		{4, 1},
		{9, 2},
		{1, -1},
		{5, -1},
		{10, -1},
	}
	for _, tc := range tests {
		if got := snap.Index(tc.id); got != tc.want {
			t.Errorf("Index(%d) = %d, want %d", tc.id, got, tc.want)
		}
	}
}

func TestNewIdentityRecordCopiesEmbedding(t *testing.T) {
	emb := []float32{1, 2}
	rec := NewIdentity{Name: "a", Embedding: emb}.Record(9, time.Time{})
	emb[0] = 5
	if rec.Embedding[0] != 1 {
		t.Errorf("expected copied embedding, got %v", rec.Embedding)
	}
	if rec.ID != 9 {
		t.Errorf("expected ID 9, got %d", rec.ID)
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	cfg := config.Defaults()
	cfg.Store.Backend = "does-not-exist"
	if _, err := Open(context.Background(), cfg); err == nil {
		t.Error("expected error for unregistered backend")
	}
}

func TestRegisterBackend(t *testing.T) {
	called := false
	RegisterBackend("test-backend", func(ctx context.Context, cfg *config.Config) (IdentityStore, error) {
		called = true
		return nil, errors.New("boom")
	})

	cfg := config.Defaults()
	cfg.Store.Backend = "test-backend"
	_, err := Open(context.Background(), cfg)
	if !called {
		t.Fatal("expected opener to be called")
	}
	if err == nil {
		t.Fatal("expected opener error to propagate")
	}

	found := false
	for _, name := range Backends() {
		if name == "test-backend" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected test-backend in %v", Backends())
	}
}
