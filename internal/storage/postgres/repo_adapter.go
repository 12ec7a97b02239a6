// Package postgres provides a Postgres-backed storage.Repository implementation.
// This adapter wires the Postgres backend into the storage-agnostic factory by
// registering a constructor at init time, so cmd/rowexpand obtains a
// Repository via storage.New(...) without importing this package directly.
//
// It also registers a DDL bootstrapper so callers can create the destination
// table based only on the storage kind.
package postgres

import (
	"context"
	"fmt"

	"rowexpand/internal/ddl"
	"rowexpand/internal/storage"
)

// dialect renders CREATE TABLE statements for Postgres.
var dialect = ddl.Dialect{
	Name:        "postgres",
	QuoteIdent:  pgIdent,
	TextType:    "TEXT",
	IfNotExists: true,
}

// newRepository is a test hook that points to NewRepository by default.
// Tests may replace this variable to avoid real DB connections.
var newRepository = NewRepository

// wrappedRepo implements storage.Repository by delegating to the concrete
// *postgres.Repository while providing a Close method that calls the close
// function returned by NewRepository.
type wrappedRepo struct {
	*Repository
	closeFn func()
}

var _ storage.Repository = (*wrappedRepo)(nil)

// Close implements storage.Repository.Close.
func (w *wrappedRepo) Close() {
	if w.closeFn != nil {
		w.closeFn()
	}
}

// EnsureTable renders def for Postgres and applies it through repo.
func EnsureTable(ctx context.Context, repo storage.Repository, def ddl.TableDef) error {
	stmt, err := ddl.BuildCreateTableSQL(def, dialect)
	if err != nil {
		return err
	}
	if err := repo.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("apply DDL: %w", err)
	}
	return nil
}

func init() {
	storage.Register("postgres", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
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
	storage.RegisterDDL("postgres", EnsureTable)
}
