// Package registration creates identity records from registration requests.
package registration

import (
	"context"
	"log/slog"

	"github.com/kozaktomas/face-auth/internal/database"
)

// Request is the body of a registration. Email, Age and Gender are optional.
type Request struct {
	Name          string    `json:"name" yaml:"name"`
	Email         string    `json:"email" yaml:"email"`
	FaceEmbedding []float32 `json:"faceEmbedding" yaml:"faceEmbedding"`
	Age           float64   `json:"age" yaml:"age"`
	Gender        string    `json:"gender" yaml:"gender"`
}

// Identity converts the request into an insertable identity.
func (r Request) Identity() database.NewIdentity {
	return database.NewIdentity{
		Name:        r.Name,
		Email:       r.Email,
		Embedding:   r.FaceEmbedding,
		AgeEstimate: r.Age,
		GenderLabel: r.Gender,
	}
}

// Registrar registers identities. There is no deduplication: registering a
// name twice creates two records.
type Registrar struct {
	store  database.IdentityWriter
	logger *slog.Logger
}

// NewRegistrar creates a registrar writing to store. A nil logger uses slog.Default().
func NewRegistrar(store database.IdentityWriter, logger *slog.Logger) *Registrar {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registrar{store: store, logger: logger}
}

// Register inserts one identity and returns the created record.
// Errors match database.ErrValidation or database.ErrPersistence.
func (r *Registrar) Register(ctx context.Context, req Request) (*database.IdentityRecord, error) {
	rec, err := r.store.Insert(ctx, req.Identity())
	if err != nil {
		r.logger.Warn("registration failed", "name", req.Name, "error", err)
		return nil, err
	}
	r.logger.Info("registered identity", "id", rec.ID, "name", rec.Name)
	return rec, nil
}
