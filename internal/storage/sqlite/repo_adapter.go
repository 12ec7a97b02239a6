// Package sqlite wires the SQLite backend into the storage factory. It exposes
// a storage.Repository implementation without forcing callers to import this
// package directly; registration happens in init.
package sqlite

import (
	"context"
	"fmt"

	"rowexpand/internal/ddl"
	"rowexpand/internal/storage"
)

// dialect renders CREATE TABLE statements for SQLite.
var dialect = ddl.Dialect{
	Name:        "sqlite",
	QuoteIdent:  quoteIdent,
	TextType:    "TEXT",
	IfNotExists: true,
}

// newRepository is a test hook that points to NewRepository by default.
// Tests may replace this variable to avoid real DB connections.
var newRepository = NewRepository

// wrappedRepo adapts *sqlite.Repository to the storage.Repository interface,
// adding a Close method that calls the cleanup function returned by
// NewRepository.
type wrappedRepo struct {
	*Repository
	closeFn func()
}

// Close implements storage.Repository.Close.
func (w *wrappedRepo) Close() {
	if w.closeFn != nil {
		w.closeFn()
	}
}

var _ storage.Repository = (*wrappedRepo)(nil)

// EnsureTable renders def for SQLite and applies it through repo.
func EnsureTable(ctx context.Context, repo storage.Repository, def ddl.TableDef) error {
	stmt, err := ddl.BuildCreateTableSQL(def, dialect)
	if err != nil {
		return err
	}
	if err := repo.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("sqlite: ensure table %s: %w", def.FQN, err)
	}
	return nil
}

func init() {
	storage.Register("sqlite", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, closeFn, err := newRepository(ctx, Config{
			DSN:     cfg.DSN,
			Table:   cfg.Table,
			Columns: cfg.Columns,
		})
		if err != nil {
			return nil, err
		}
		return &wrappedRepo{Repository: r, closeFn: closeFn}, nil
	})
	storage.RegisterDDL("sqlite", EnsureTable)
}
