// Package auth implements face-embedding authentication over a persistent connection.
//
// Service answers a single probe against a fresh snapshot of the store. Session
// drives the per-connection protocol: one request in flight at a time and exactly
// one authResult per authenticate event.
package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/kozaktomas/face-auth/internal/database"
	"github.com/kozaktomas/face-auth/internal/matcher"
)

// Service authenticates probes against the identity store.
type Service struct {
	store   database.IdentityReader
	matcher matcher.Matcher
	dim     int
	logger  *slog.Logger
}

// NewService creates a service. A nil logger uses slog.Default().
func NewService(store database.IdentityReader, m matcher.Matcher, dim int, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, matcher: m, dim: dim, logger: logger}
}

// Authenticate matches probe against the identities registered at call time.
// Every failure, internal or not, is reported as an unsuccessful result.
func (s *Service) Authenticate(ctx context.Context, probe []float32) AuthResult {
	res, err := s.match(ctx, probe)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrValidation):
			s.logger.Warn("rejected probe", "error", err)
		case errors.Is(err, matcher.ErrDimensionMismatch):
			s.logger.Error("stored embedding does not fit probe", "error", err)
		default:
			s.logger.Error("authentication failed", "error", err)
		}
		return AuthResult{}
	}

	if !res.Success {
		s.logger.Debug("no match", "distance", res.Distance)
		return AuthResult{}
	}
	s.logger.Info("authenticated", "id", res.ID, "user", res.Name, "distance", res.Distance)
	return AuthResult{Success: true, User: res.Name}
}

func (s *Service) match(ctx context.Context, probe []float32) (matcher.Result, error) {
	if err := database.ValidateEmbedding(probe, s.dim); err != nil {
		return matcher.Result{}, err
	}
	snap, err := s.store.ListAll(ctx)
	if err != nil {
		return matcher.Result{}, err
	}
	return s.matcher.Match(probe, snap)
}
