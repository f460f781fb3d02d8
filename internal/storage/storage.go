// Package storage persists synthetic tables and run metadata to a
// relational backend.
//
// Backends register themselves under a kind string from an init()
// function; commands select one by configuration. The interface is
// intentionally minimal: create the destination table from the inferred
// schema, bulk-insert the generated rows, record the run.
package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tabsynth/internal/schema"
	"tabsynth/internal/table"
)

// Config selects and parameterizes a backend.
//
// Edge cases:
//   - Kind must match a registered backend kind.
//   - DSN is passed through to the backend factory; validation is
//     backend-specific.
type Config struct {
	Kind  string
	DSN   string
	Table string
}

// RunRecord is the metadata row written for every completed synthesis
// run.
type RunRecord struct {
	Job       string
	Table     string
	Rows      int64
	Seed      int64
	StartedAt time.Time
	Duration  time.Duration
}

// Repository is a backend-agnostic sink for synthetic output.
//
// Each backend implements these semantics in its own idiomatic way
// (Postgres $n placeholders, SQLite ?, SQL Server @pN).
type Repository interface {
	// Close releases backend resources. Treat as "call once".
	Close()

	// EnsureTable creates the destination table for a schema if it does
	// not exist, and the synth_runs metadata table alongside it.
	EnsureTable(ctx context.Context, name string, sch schema.Schema) error

	// InsertRows bulk-inserts a generated table. Returns the number of
	// rows written. Implementations batch internally; a failed batch
	// aborts the call.
	InsertRows(ctx context.Context, name string, sch schema.Schema, t *table.Table) (int64, error)

	// RecordRun appends one row to the synth_runs table.
	RecordRun(ctx context.Context, rec RunRecord) error
}

// RunsTable is the shared metadata table name.
const RunsTable = "synth_runs"

// InsertBatchSize caps the rows per multi-row INSERT statement.
const InsertBatchSize = 500

type factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]factory{}
)

// Register registers a backend under a kind (e.g. "postgres", "sqlite").
//
// When to use:
//   - Call Register from an init() function in a backend package.
//
// Panics:
//   - If kind is empty.
//   - If f is nil.
//   - If kind is already registered. This is intentional to fail fast
//     and avoid ambiguous backend selection.
func Register(kind string, f factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("storage: Register called with empty kind")
	}
	if f == nil {
		panic("storage: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("storage: factory already registered for kind=%q", kind))
	}

	factories[kind] = f
}

// New constructs a Repository using the registered backend factory.
//
// Errors:
//   - Returns an error if cfg.Kind is empty or unsupported.
//   - Returns whatever error the registered factory returns.
//
// Concurrency:
//   - Safe for concurrent use with Register. New takes a read lock while
//     selecting the factory.
func New(ctx context.Context, cfg Config) (Repository, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("storage: missing storage.kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// Kinds lists the registered backend kinds, for error messages and
// config validation.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	return out
}
