// Package mysql provides a MySQL-backed storage.Repository implementation.
// This adapter wires the MySQL backend into the storage-agnostic factory.
package mysql

import (
	"context"
	"fmt"

	"rowexpand/internal/ddl"
	"rowexpand/internal/storage"
)

// dialect renders CREATE TABLE statements for MySQL.
var dialect = ddl.Dialect{
	Name:        "mysql",
	QuoteIdent:  myIdent,
	TextType:    "TEXT",
	IfNotExists: true,
}

// newRepository is a test hook that points to NewRepository by default.
// Tests may replace this variable to avoid real DB connections.
var newRepository = NewRepository

var _ storage.Repository = (*wrappedRepo)(nil)

// wrappedRepo adapts *mysql.Repository to storage.Repository and provides Close.
type wrappedRepo struct {
	*Repository
	closeFn func()
}

// Close closes the underlying connection pool.
func (w *wrappedRepo) Close() {
	if w.closeFn != nil {
		w.closeFn()
	}
}

// EnsureTable renders def for MySQL and applies it through repo.
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

// init registers the "mysql" backend with the factory.
func init() {
	storage.Register("mysql", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
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
	storage.RegisterDDL("mysql", EnsureTable)
}
