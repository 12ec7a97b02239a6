// Package sqlite implements a SQLite-backed storage.Repository using
// database/sql. It performs batched INSERTs inside a transaction; SQLite does
// not have a dedicated bulk-load API like Postgres COPY, but transactions keep
// performance acceptable for the volumes an expansion produces.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Repository is a SQLite-backed implementation of storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// NewRepository opens a SQLite connection using the provided DSN and returns
// a Repository plus a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, nil, fmt.Errorf("sqlite: DSN must not be empty")
	}
	if strings.TrimSpace(cfg.Table) == "" {
		return nil, nil, fmt.Errorf("sqlite: table must not be empty")
	}

	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("sqlite: open: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	closeFn := func() { db.Close() }
	return &Repository{db: db, cfg: cfg}, closeFn, nil
}

// CopyFrom inserts rows into the configured table using a single transaction
// and a prepared INSERT. len(row) must equal len(columns) for every row; a
// mismatch rolls back the whole batch.
func (r *Repository) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("sqlite: CopyFrom: columns must not be empty")
	}
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: begin tx: %w", err)
	}
	inserted, err := r.insert(ctx, tx, columns, rows)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite: commit: %w", err)
	}
	return inserted, nil
}

// Replace deletes every row and inserts rows inside one transaction.
func (r *Repository) Replace(ctx context.Context, columns []string, rows [][]any) (int64, int64, error) {
	if len(columns) == 0 {
		return 0, 0, fmt.Errorf("sqlite: Replace: columns must not be empty")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("sqlite: begin tx: %w", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM "+quoteFQN(r.cfg.Table))
	if err != nil {
		_ = tx.Rollback()
		return 0, 0, fmt.Errorf("sqlite: delete: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return 0, 0, fmt.Errorf("sqlite: rows affected: %w", err)
	}
	inserted, err := r.insert(ctx, tx, columns, rows)
	if err != nil {
		_ = tx.Rollback()
		return 0, 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("sqlite: commit: %w", err)
	}
	return deleted, inserted, nil
}

// insert runs a prepared INSERT per row on tx. The caller owns the
// transaction.
func (r *Repository) insert(ctx context.Context, tx *sql.Tx, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quoteIdent(c)
		placeholders[i] = "?"
	}
	stmtSQL := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		quoteFQN(r.cfg.Table),
		strings.Join(quoted, ", "),
		strings.Join(placeholders, ", "),
	)

	stmt, err := tx.PrepareContext(ctx, stmtSQL)
	if err != nil {
		return 0, fmt.Errorf("sqlite: prepare insert: %w", err)
	}
	defer stmt.Close()

	var inserted int64
	for _, row := range rows {
		if len(row) != len(columns) {
			return 0, fmt.Errorf("sqlite: CopyFrom: row length %d != columns length %d", len(row), len(columns))
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return 0, fmt.Errorf("sqlite: insert: %w", err)
		}
		inserted++
	}
	return inserted, nil
}

// Exec executes an arbitrary SQL statement (typically DDL).
func (r *Repository) Exec(ctx context.Context, sql string) error {
	if strings.TrimSpace(sql) == "" {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, sql); err != nil {
		return fmt.Errorf("sqlite: exec: %w", err)
	}
	return nil
}

// TableExists reports whether the configured table is present in
// sqlite_master. A schema prefix such as "main." is ignored.
func (r *Repository) TableExists(ctx context.Context) (bool, error) {
	name := r.cfg.Table
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?",
		strings.TrimSpace(name),
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("sqlite: table exists: %w", err)
	}
	return n > 0, nil
}

// DeleteAll removes every row from the configured table.
func (r *Repository) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM "+quoteFQN(r.cfg.Table))
	if err != nil {
		return 0, fmt.Errorf("sqlite: delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: rows affected: %w", err)
	}
	return n, nil
}

// quoteIdent wraps a single identifier in double quotes, doubling embedded
// quotes.
func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(strings.TrimSpace(s), `"`, `""`) + `"`
}

// quoteFQN quotes each dotted segment: main.events -> "main"."events".
func quoteFQN(fqn string) string {
	return dialect.QuoteFQN(fqn)
}
