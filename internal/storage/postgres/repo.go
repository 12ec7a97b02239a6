// Package postgres implements a Postgres repository using pgx v5. Rows are
// loaded with the COPY protocol straight into the destination table.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Config holds Postgres repository configuration.
type Config struct {
	DSN     string   // connection string for pgxpool
	Table   string   // possibly schema-qualified table name, e.g. "public.jan_2026"
	Columns []string // ordered columns for COPY
}

// Repository is a Postgres-backed implementation of storage.Repository.
type Repository struct {
	pool *pgxpool.Pool
	cfg  Config
}

// NewRepository constructs a Repository and returns a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.Table) == "" {
		return nil, nil, fmt.Errorf("postgres: table must not be empty")
	}
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("pgxpool: %w", err)
	}
	closeFn := func() { pool.Close() }
	return &Repository{pool: pool, cfg: cfg}, closeFn, nil
}

// CopyFrom streams rows into the configured table with COPY.
func (r *Repository) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	n, err := r.pool.CopyFrom(ctx, splitFQN(r.cfg.Table), columns, pgx.CopyFromRows(rows))
	if err != nil {
		return n, wrapPgErr("copy", err)
	}
	return n, nil
}

// Exec implements storage.Repository.Exec for Postgres.
func (r *Repository) Exec(ctx context.Context, sql string) error {
	if strings.TrimSpace(sql) == "" {
		return nil
	}
	if _, err := r.pool.Exec(ctx, sql); err != nil {
		return wrapPgErr("exec", err)
	}
	return nil
}

// TableExists resolves the table through to_regclass, which honours the
// search_path for unqualified names.
func (r *Repository) TableExists(ctx context.Context) (bool, error) {
	var ok bool
	if err := r.pool.QueryRow(ctx, "SELECT to_regclass($1) IS NOT NULL", pgFQN(r.cfg.Table)).Scan(&ok); err != nil {
		return false, wrapPgErr("table exists", err)
	}
	return ok, nil
}

// DeleteAll removes every row from the configured table.
func (r *Repository) DeleteAll(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, "DELETE FROM "+pgFQN(r.cfg.Table))
	if err != nil {
		return 0, wrapPgErr("delete", err)
	}
	return tag.RowsAffected(), nil
}

// Replace deletes every row and COPYs rows inside one transaction.
func (r *Repository) Replace(ctx context.Context, columns []string, rows [][]any) (int64, int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, 0, wrapPgErr("begin", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, "DELETE FROM "+pgFQN(r.cfg.Table))
	if err != nil {
		return 0, 0, wrapPgErr("delete", err)
	}
	var n int64
	if len(rows) > 0 {
		if n, err = tx.CopyFrom(ctx, splitFQN(r.cfg.Table), columns, pgx.CopyFromRows(rows)); err != nil {
			return 0, 0, wrapPgErr("copy", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, 0, wrapPgErr("commit", err)
	}
	return tag.RowsAffected(), n, nil
}

// wrapPgErr surfaces the server's detail and SQLSTATE when available.
func wrapPgErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Detail != "" {
		return fmt.Errorf("postgres: %s: %s (%s): %w", op, pgErr.Detail, pgErr.SQLState(), err)
	}
	return fmt.Errorf("postgres: %s: %w", op, err)
}

// pgIdent safely quotes a single identifier segment for Postgres.
func pgIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

// pgFQN quotes a possibly schema-qualified name like "public.jan_2026" to
// "public"."jan_2026". If no dot is present, returns a single quoted ident.
func pgFQN(name string) string {
	return dialect.QuoteFQN(name)
}

// splitFQN converts "schema.table" into a pgx.Identifier {"schema","table"}.
// If no dot is present, returns {"table"}.
func splitFQN(fqn string) pgx.Identifier {
	parts := strings.Split(fqn, ".")
	id := make(pgx.Identifier, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			id = append(id, p)
		}
	}
	return id
}
