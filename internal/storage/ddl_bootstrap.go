package storage

import (
	"context"
	"fmt"
	"sync"

	"rowexpand/internal/ddl"
)

// DDLBootstrapper renders a backend-specific CREATE TABLE for def and applies
// it via repo.Exec. Backends register one per storage kind at init time.
type DDLBootstrapper func(ctx context.Context, repo Repository, def ddl.TableDef) error

var (
	ddlMu  sync.RWMutex
	ddlFns = map[string]DDLBootstrapper{}
)

// RegisterDDL registers (or replaces) the DDLBootstrapper for kind.
func RegisterDDL(kind string, fn DDLBootstrapper) {
	ddlMu.Lock()
	defer ddlMu.Unlock()
	ddlFns[kind] = fn
}

// EnsureTable creates the destination table for kind if it does not exist.
func EnsureTable(ctx context.Context, kind string, repo Repository, def ddl.TableDef) error {
	ddlMu.RLock()
	fn, ok := ddlFns[kind]
	ddlMu.RUnlock()
	if !ok {
		return fmt.Errorf("no DDL bootstrapper registered for storage kind %q", kind)
	}
	return fn(ctx, repo, def)
}
