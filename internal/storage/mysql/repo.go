// Package mysql implements a MySQL-backed storage.Repository using
// database/sql and go-sql-driver/mysql. Batches are written as a single
// multi-row INSERT inside a transaction.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Config holds MySQL repository configuration.
type Config struct {
	DSN     string // user:pass@tcp(host:3306)/db?charset=utf8mb4
	Table   string // table name, optionally "db.table"
	Columns []string
}

// Repository is a MySQL-backed implementation of storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// NewRepository parses the DSN, opens a pool and pings it.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	if strings.TrimSpace(cfg.Table) == "" {
		return nil, nil, fmt.Errorf("mysql: table must not be empty")
	}
	mc, err := mysql.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("mysql dsn: %w", err)
	}
	connector, err := mysql.NewConnector(mc)
	if err != nil {
		return nil, nil, fmt.Errorf("mysql connector: %w", err)
	}
	db := sql.OpenDB(connector)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("mysql: ping: %w", err)
	}
	closeFn := func() { _ = db.Close() }
	return &Repository{db: db, cfg: cfg}, closeFn, nil
}

// CopyFrom inserts rows with one multi-row INSERT per call.
func (r *Repository) CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("mysql: CopyFrom: columns must not be empty")
	}
	if len(rows) == 0 {
		return 0, nil
	}
	stmt, args, err := buildInsert(r.cfg.Table, columns, rows)
	if err != nil {
		return 0, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("mysql: begin tx: %w", err)
	}
	res, err := tx.ExecContext(ctx, stmt, args...)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("mysql: insert: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("mysql: rows affected: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("mysql: commit: %w", err)
	}
	return n, nil
}

// replaceChunk bounds the rows per INSERT inside Replace so the statement
// stays under the server's placeholder limit.
const replaceChunk = 1000

// Replace deletes every row and inserts rows inside one transaction.
func (r *Repository) Replace(ctx context.Context, columns []string, rows [][]any) (int64, int64, error) {
	if len(columns) == 0 {
		return 0, 0, fmt.Errorf("mysql: Replace: columns must not be empty")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("mysql: begin tx: %w", err)
	}
	rollback := func() { _ = tx.Rollback() }

	res, err := tx.ExecContext(ctx, "DELETE FROM "+myFQN(r.cfg.Table))
	if err != nil {
		rollback()
		return 0, 0, fmt.Errorf("mysql: delete: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		rollback()
		return 0, 0, fmt.Errorf("mysql: rows affected: %w", err)
	}
	var inserted int64
	for start := 0; start < len(rows); start += replaceChunk {
		end := min(start+replaceChunk, len(rows))
		stmt, args, err := buildInsert(r.cfg.Table, columns, rows[start:end])
		if err != nil {
			rollback()
			return 0, 0, err
		}
		res, err := tx.ExecContext(ctx, stmt, args...)
		if err != nil {
			rollback()
			return 0, 0, fmt.Errorf("mysql: insert: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			rollback()
			return 0, 0, fmt.Errorf("mysql: rows affected: %w", err)
		}
		inserted += n
	}
	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("mysql: commit: %w", err)
	}
	return deleted, inserted, nil
}

// buildInsert renders INSERT INTO t (c1, c2) VALUES (?, ?), (?, ?) and the
// flattened argument list.
func buildInsert(table string, columns []string, rows [][]any) (string, []any, error) {
	group := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ")"
	groups := make([]string, 0, len(rows))
	args := make([]any, 0, len(rows)*len(columns))
	for i, row := range rows {
		if len(row) != len(columns) {
			return "", nil, fmt.Errorf("mysql: CopyFrom: row %d length %d != columns length %d", i, len(row), len(columns))
		}
		groups = append(groups, group)
		args = append(args, row...)
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		myFQN(table), strings.Join(mapIdent(columns), ", "), strings.Join(groups, ", "))
	return stmt, args, nil
}

// Exec executes a SQL statement (typically DDL).
func (r *Repository) Exec(ctx context.Context, sqlText string) error {
	if strings.TrimSpace(sqlText) == "" {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, sqlText); err != nil {
		return fmt.Errorf("mysql: exec: %w", err)
	}
	return nil
}

// TableExists consults information_schema. An unqualified name is looked up
// in the connection's current database.
func (r *Repository) TableExists(ctx context.Context) (bool, error) {
	schema, name := splitTable(r.cfg.Table)
	var (
		n   int
		err error
	)
	if schema == "" {
		err = r.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?",
			name).Scan(&n)
	} else {
		err = r.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = ? AND table_name = ?",
			schema, name).Scan(&n)
	}
	if err != nil {
		return false, fmt.Errorf("mysql: table exists: %w", err)
	}
	return n > 0, nil
}

// DeleteAll removes every row from the configured table.
func (r *Repository) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM "+myFQN(r.cfg.Table))
	if err != nil {
		return 0, fmt.Errorf("mysql: delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mysql: rows affected: %w", err)
	}
	return n, nil
}

func splitTable(fqn string) (schema, name string) {
	if i := strings.LastIndex(fqn, "."); i >= 0 {
		return strings.TrimSpace(fqn[:i]), strings.TrimSpace(fqn[i+1:])
	}
	return "", strings.TrimSpace(fqn)
}

// myIdent quotes an identifier with backticks, doubling embedded backticks.
func myIdent(id string) string { return "`" + strings.ReplaceAll(id, "`", "``") + "`" }

func myFQN(name string) string { return dialect.QuoteFQN(name) }

func mapIdent(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = myIdent(c)
	}
	return out
}
