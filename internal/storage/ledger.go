// Package storage defines the run ledger: one row per generated fiche, so a
// workshop can answer "which control sheets were produced from which OCR
// exports, and when". Backends register themselves by kind; sites use a
// local sqlite file, a central postgres, or the plant's existing MSSQL.
package storage

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Config is the minimal configuration needed to create a Ledger.
//
// Edge cases:
//   - Kind must be non-empty and must match a registered backend kind.
//   - DSN is passed through to the backend factory; validation is
//     backend-specific.
type Config struct {
	Kind string
	DSN  string
}

// Run is one ledger row.
type Run struct {
	// ID is a caller-assigned unique id (the runner uses a UUID).
	ID         string
	SourceFile string
	OutputName string
	// WorkOrder is the resolved display identifier; may be empty when the
	// source carried neither an OF number nor an OCR record id.
	WorkOrder    string
	SlotsFilled  int
	CellsWritten int
	GeneratedAt  time.Time
}

// Ledger is the backend-agnostic run log.
//
// The interface is intentionally minimal: append and recent-first listing.
// Each backend implements idempotent schema creation in its own idiom.
type Ledger interface {
	// Close releases backend resources. Call once at shutdown.
	Close()

	// EnsureSchema creates the ledger table if it does not exist.
	EnsureSchema(ctx context.Context) error

	// RecordRun appends one row.
	RecordRun(ctx context.Context, run Run) error

	// RecentRuns returns up to limit rows, newest first.
	RecentRuns(ctx context.Context, limit int) ([]Run, error)
}

type factory func(ctx context.Context, cfg Config) (Ledger, error)

var (
	mu        sync.RWMutex
	factories = map[string]factory{}
)

// Register registers a ledger backend under a kind (e.g. "sqlite").
//
// Call from an init() in the backend package. Registering an empty kind, a
// nil factory, or a duplicate kind panics: backend selection must never be
// ambiguous, and these are programmer errors caught at startup.
func Register(kind string, f factory) {
	if kind == "" {
		panic("storage: Register called with empty kind")
	}
	if f == nil {
		panic("storage: Register called with nil factory for kind " + kind)
	}

	mu.Lock()
	defer mu.Unlock()
	if _, dup := factories[kind]; dup {
		panic("storage: duplicate Register for kind " + kind)
	}
	factories[kind] = f
}

// New constructs a Ledger for cfg.Kind.
func New(ctx context.Context, cfg Config) (Ledger, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("storage: kind must be set")
	}

	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: unsupported kind %q (is the backend package imported?)", cfg.Kind)
	}
	return f(ctx, cfg)
}
