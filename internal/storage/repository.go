// Package storage contains the backend-agnostic contract for target
// databases and the factory that backends register with.
//
// Backends live in subpackages (postgres, mysql, sqlite) and register
// themselves in init; import storage/all to enable all of them.
package storage

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
)

// ErrUnsupportedKind is returned by New for kinds nobody registered.
var ErrUnsupportedKind = errors.New("unsupported storage kind")

// Repository is an open connection to one target database.
type Repository interface {
	// Exec runs a single statement, typically DDL.
	Exec(ctx context.Context, sql string) error
	// ExecBatch runs stmts in one transaction and returns how many were
	// executed. On error the transaction is rolled back.
	ExecBatch(ctx context.Context, stmts []string) (int64, error)
	// TableExists reports whether table exists in the current database.
	TableExists(ctx context.Context, table string) (bool, error)
	Close()
}

// Config selects and parameterizes a backend.
type Config struct {
	Kind string
	// DSN is the backend's connection string.
	DSN string
	// Database overrides the database named in DSN, when set.
	Database string
	// CreateDatabase creates Database first if it does not exist.
	CreateDatabase bool
	// Password is used when DSN carries none.
	Password string
}

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register installs (or replaces) the factory for kind.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// New opens a Repository with the factory registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (have %v)", ErrUnsupportedKind, cfg.Kind, ListKinds())
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered kinds, sorted.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
