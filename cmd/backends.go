package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kozaktomas/face-auth/internal/config"
	"github.com/kozaktomas/face-auth/internal/database"
	"github.com/kozaktomas/face-auth/internal/database/badger"
	"github.com/kozaktomas/face-auth/internal/database/mariadb"
	"github.com/kozaktomas/face-auth/internal/database/memory"
	"github.com/kozaktomas/face-auth/internal/database/postgres"
)

func init() {
	database.RegisterBackend(config.BackendMemory, memory.Open)
	// The typed constructors return concrete pointers; a nil pointer must not
	// become a non-nil interface.
	database.RegisterBackend(config.BackendPostgres, func(ctx context.Context, cfg *config.Config) (database.IdentityStore, error) {
		repo, err := postgres.Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return repo, nil
	})
	database.RegisterBackend(config.BackendMariaDB, func(ctx context.Context, cfg *config.Config) (database.IdentityStore, error) {
		repo, err := mariadb.Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return repo, nil
	})
	database.RegisterBackend(config.BackendBadger, func(ctx context.Context, cfg *config.Config) (database.IdentityStore, error) {
		store, err := badger.Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return store, nil
	})
}

// openStore opens the configured backend and logs what it found.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (database.IdentityStore, error) {
	store, err := database.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	n, err := store.Count(ctx)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("counting identities: %w", err)
	}
	logger.Info("opened identity store", "backend", cfg.Store.Backend, "identities", n)
	return store, nil
}
