// Package mssql implements a Microsoft SQL Server repository using the
// go-mssqldb bulk copy API. Rows are bulk-inserted directly into the
// destination table inside one transaction per batch.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"
)

// Config holds MSSQL repository configuration.
type Config struct {
	DSN     string
	Table   string
	Columns []string
}

// Repository is an MSSQL-backed implementation of storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// NewRepository constructs a Repository and returns a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if err := validateConfig(cfg); err != nil {
		return nil, nil, err
	}
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("sql.Open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping: %w", err)
	}
	closeFn := func() { _ = db.Close() }
	return &Repository{db: db, cfg: cfg}, closeFn, nil
}

// validateConfig fails fast on obvious mistakes before dialing.
func validateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.Table) == "" {
		return fmt.Errorf("mssql: table must not be empty")
	}
	if _, err := msdsn.Parse(cfg.DSN); err != nil {
		return fmt.Errorf("mssql dsn: %w", err)
	}
	return nil
}

// CopyFrom performs a bulk insert directly into the configured target table.
func (r *Repository) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	n, err := r.bulk(ctx, tx, columns, rows)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

// Replace deletes every row and bulk-inserts rows inside one transaction.
func (r *Repository) Replace(ctx context.Context, columns []string, rows [][]any) (int64, int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("begin tx: %w", err)
	}
	rollback := func() { _ = tx.Rollback() }

	res, err := tx.ExecContext(ctx, "DELETE FROM "+msFQN(r.cfg.Table))
	if err != nil {
		rollback()
		return 0, 0, fmt.Errorf("mssql: delete: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		rollback()
		return 0, 0, fmt.Errorf("mssql: rows affected: %w", err)
	}
	var n int64
	if len(rows) > 0 {
		if n, err = r.bulk(ctx, tx, columns, rows); err != nil {
			rollback()
			return 0, 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("commit: %w", err)
	}
	return deleted, n, nil
}

// bulk streams rows through a CopyIn statement on tx. The caller owns the
// transaction.
func (r *Repository) bulk(ctx context.Context, tx *sql.Tx, columns []string, rows [][]any) (int64, error) {
	stmt, err := tx.PrepareContext(ctx, mssql.CopyIn(msFQN(r.cfg.Table), mssql.BulkOptions{}, columns...))
	if err != nil {
		return 0, fmt.Errorf("prepare bulk: %w", err)
	}
	for i := range rows {
		if _, err := stmt.ExecContext(ctx, rows[i]...); err != nil {
			_ = stmt.Close()
			return 0, fmt.Errorf("bulk row %d: %w", i, err)
		}
	}
	res, err := stmt.ExecContext(ctx)
	if cerr := stmt.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return 0, fmt.Errorf("bulk finalize: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// Exec executes a SQL statement against the pool.
func (r *Repository) Exec(ctx context.Context, sqlText string) error {
	if strings.TrimSpace(sqlText) == "" {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, sqlText); err != nil {
		return fmt.Errorf("mssql: exec: %w", err)
	}
	return nil
}

// TableExists checks OBJECT_ID for a user table with the configured name.
func (r *Repository) TableExists(ctx context.Context) (bool, error) {
	var id sql.NullInt64
	if err := r.db.QueryRowContext(ctx, "SELECT OBJECT_ID(@p1, 'U')", msFQN(r.cfg.Table)).Scan(&id); err != nil {
		return false, fmt.Errorf("mssql: table exists: %w", err)
	}
	return id.Valid, nil
}

// DeleteAll removes every row from the configured table.
func (r *Repository) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM "+msFQN(r.cfg.Table))
	if err != nil {
		return 0, fmt.Errorf("mssql: delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mssql: rows affected: %w", err)
	}
	return n, nil
}

// msIdent safely quotes a SQL Server identifier using [brackets], escaping ].
func msIdent(id string) string { return `[` + strings.ReplaceAll(id, `]`, `]]`) + `]` }

// msFQN quotes a possibly schema-qualified name like "dbo.jan_2026" to
// "[dbo].[jan_2026]". If no dot is present, returns a single quoted ident.
func msFQN(name string) string {
	return dialect.QuoteFQN(name)
}

// msLiteral renders s as an N'...' string literal.
func msLiteral(s string) string {
	return "N'" + strings.ReplaceAll(s, "'", "''") + "'"
}
