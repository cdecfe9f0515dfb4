package database

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kozaktomas/face-auth/internal/config"
)

// Opener creates a store for a backend from configuration.
type Opener func(ctx context.Context, cfg *config.Config) (IdentityStore, error)

var (
	backends   = make(map[string]Opener)
	backendsMu sync.RWMutex
)

// RegisterBackend registers a store constructor under a backend name.
// Backend packages are registered by the caller to avoid import cycles.
func RegisterBackend(name string, open Opener) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	backends[name] = open
}

// Backends returns the registered backend names, sorted.
func Backends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open creates the store selected by cfg.Store.Backend.
func Open(ctx context.Context, cfg *config.Config) (IdentityStore, error) {
	backendsMu.RLock()
	open, ok := backends[cfg.Store.Backend]
	backendsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("store backend %q not registered", cfg.Store.Backend)
	}

	store, err := open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", cfg.Store.Backend, err)
	}
	return store, nil
}
