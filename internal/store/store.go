// Package store persists finished dataset profiles. Backends register
// themselves under a kind string from an init() in their own package;
// the server selects one by configuration.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrNotFound is returned by Get for an unknown profile id.
var ErrNotFound = errors.New("store: profile not found")

// Config selects and configures a backend.
//
// Edge cases:
//   - Kind must be non-empty and must match a registered backend kind.
//   - DSN is passed through to the backend factory; validation is
//     backend-specific.
type Config struct {
	Kind string
	DSN  string
}

// Record is one stored profile. Profile holds the serialized
// DatasetProfile JSON exactly as returned to the uploader.
type Record struct {
	ID        string
	Dataset   string
	Format    string
	CreatedAt time.Time
	Profile   []byte
}

// Store is the backend-agnostic persistence interface. Implementations
// must be safe for concurrent use.
type Store interface {
	// Close releases backend resources. Treat as "call once".
	Close()

	// Ensure creates the profiles table if it does not exist.
	Ensure(ctx context.Context) error

	// Save inserts one record. IDs are unique; saving an existing id
	// is an error.
	Save(ctx context.Context, rec Record) error

	// Get returns the record for id, or ErrNotFound.
	Get(ctx context.Context, id string) (*Record, error)

	// List returns up to limit records, newest first, without the
	// profile payloads.
	List(ctx context.Context, limit int) ([]Record, error)
}

type factory func(ctx context.Context, cfg Config) (Store, error)

var (
	mu        sync.RWMutex
	factories = map[string]factory{}
)

// Register registers a backend under a kind (e.g. "postgres", "sqlite").
// Call from an init() in the backend package.
//
// Panics:
//   - If kind is empty.
//   - If f is nil.
//   - If kind is already registered.
func Register(kind string, f factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("store: Register called with empty kind")
	}
	if f == nil {
		panic("store: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("store: factory already registered for kind=%q", kind))
	}

	factories[kind] = f
}

// New constructs a Store using the registered backend factory.
//
// Errors:
//   - Returns an error if cfg.Kind is empty or unsupported.
//   - Returns whatever error the registered factory returns.
func New(ctx context.Context, cfg Config) (Store, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("store: missing kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("unsupported store.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}
