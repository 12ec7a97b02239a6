// Package storage contains the storage-agnostic contract for SQL destination
// tables plus the factory that concrete backends register with.
//
// Backends (postgres, mssql, sqlite, mysql) live in subpackages and register
// themselves in init; import rowexpand/internal/storage/all to enable every one of
// them. Callers only ever see Repository.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Repository is the minimal surface the expander needs from a SQL table.
type Repository interface {
	// CopyFrom bulk-inserts rows aligned to columns and returns the number of
	// rows the backend reports as written.
	CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error)
	// Exec runs a statement, typically DDL.
	Exec(ctx context.Context, sql string) error
	// TableExists reports whether the configured table exists.
	TableExists(ctx context.Context) (bool, error)
	// DeleteAll removes every row from the configured table.
	DeleteAll(ctx context.Context) (int64, error)
	// Replace deletes every row and inserts rows in one transaction. On
	// error the table keeps its previous contents.
	Replace(ctx context.Context, columns []string, rows [][]any) (deleted, inserted int64, err error)
	Close()
}

// Config selects and configures a backend.
type Config struct {
	Kind    string   // "postgres", "mssql", "sqlite", "mysql"
	DSN     string   // driver connection string
	Table   string   // possibly schema-qualified table name
	Columns []string // destination columns in write order
}

// Factory opens a Repository for one backend kind.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	regMu     sync.RWMutex
	factories = map[string]Factory{}
)

// Register installs (or replaces) the factory for kind.
func Register(kind string, f Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	factories[kind] = f
}

// New opens a Repository for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	regMu.RLock()
	f, ok := factories[cfg.Kind]
	regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: no backend registered for kind %q (known: %v)", cfg.Kind, Kinds())
	}
	return f(ctx, cfg)
}

// Kinds lists registered backend kinds.
func Kinds() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
