// Package mssql provides an MSSQL-backed storage.Repository implementation.
// This adapter wires the MSSQL backend into the storage-agnostic factory.
package mssql

import (
	"context"
	"fmt"

	"rowexpand/internal/ddl"
	"rowexpand/internal/storage"
)

// dialect renders CREATE TABLE for SQL Server, which has no IF NOT EXISTS for
// tables; creation is guarded with OBJECT_ID instead.
var dialect = ddl.Dialect{
	Name:       "mssql",
	QuoteIdent: msIdent,
	TextType:   "NVARCHAR(MAX)",
}

// Guard is assigned in init to break the dialect -> msFQN -> dialect
// initialization cycle.
func init() {
	dialect.Guard = func(fqn, stmt string) string {
		return fmt.Sprintf("IF OBJECT_ID(%s, N'U') IS NULL\n%s", msLiteral(msFQN(fqn)), stmt)
	}
}

// newRepository is a test hook that points to NewRepository by default.
// Tests may replace this variable to avoid real DB connections.
var newRepository = NewRepository

var _ storage.Repository = (*wrappedRepo)(nil)

// wrappedRepo adapts *mssql.Repository to storage.Repository and provides Close.
type wrappedRepo struct {
	*Repository
	closeFn func()
}

func (w *wrappedRepo) Close() {
	if w.closeFn != nil {
		w.closeFn()
	}
}

// EnsureTable renders def for SQL Server and applies it through repo.
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
	storage.Register("mssql", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
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
	storage.RegisterDDL("mssql", EnsureTable)
}
