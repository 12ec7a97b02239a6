package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rowexpand/internal/ddl"
)

var testColumns = []string{"attr_b", "attr_d", "size_label"}

// newRepo opens a repository backed by a fresh database file under t.TempDir.
func newRepo(tb testing.TB, table string) *Repository {
	tb.Helper()
	dsn := filepath.Join(tb.TempDir(), "test.db")
	r, closeFn, err := NewRepository(context.Background(), Config{DSN: dsn, Table: table, Columns: testColumns})
	require.NoError(tb, err)
	tb.Cleanup(closeFn)
	return r
}

func TestNewRepository_Validation(t *testing.T) {
	t.Parallel()

	_, _, err := NewRepository(context.Background(), Config{Table: "t"})
	require.ErrorContains(t, err, "DSN must not be empty")

	_, _, err = NewRepository(context.Background(), Config{DSN: "x.db"})
	require.ErrorContains(t, err, "table must not be empty")
}

func TestEnsureTableCopyAndDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := newRepo(t, "jan 2026")
	w := &wrappedRepo{Repository: r}

	ok, err := r.TableExists(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	def := ddl.TextTable("jan 2026", testColumns)
	require.NoError(t, EnsureTable(ctx, w, def))
	// Idempotent.
	require.NoError(t, EnsureTable(ctx, w, def))

	ok, err = r.TableExists(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	n, err := r.CopyFrom(ctx, testColumns, [][]any{
		{"Alice", "x", "XS"},
		{"Alice", nil, "S"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	var count, nulls int
	require.NoError(t, r.db.QueryRowContext(ctx, `SELECT COUNT(*), SUM(CASE WHEN "attr_d" IS NULL THEN 1 ELSE 0 END) FROM "jan 2026"`).Scan(&count, &nulls))
	assert.Equal(t, 2, count)
	assert.Equal(t, 1, nulls)

	deleted, err := r.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
}

func TestCopyFrom_RowLengthMismatchRollsBack(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := newRepo(t, "t")
	require.NoError(t, EnsureTable(ctx, &wrappedRepo{Repository: r}, ddl.TextTable("t", testColumns)))

	_, err := r.CopyFrom(ctx, testColumns, [][]any{
		{"a", "b", "c"},
		{"short"},
	})
	require.ErrorContains(t, err, "row length 1 != columns length 3")

	var count int
	require.NoError(t, r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM "t"`).Scan(&count))
	assert.Zero(t, count)
}

func TestReplace(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r := newRepo(t, "t")
	require.NoError(t, EnsureTable(ctx, &wrappedRepo{Repository: r}, ddl.TextTable("t", testColumns)))
	_, err := r.CopyFrom(ctx, testColumns, [][]any{{"old", "x", "XS"}, {"old", "y", "S"}})
	require.NoError(t, err)

	count := func() (n int) {
		require.NoError(t, r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM "t" WHERE "attr_b" = 'old'`).Scan(&n))
		return n
	}

	// A bad row rolls back the delete too.
	_, _, err = r.Replace(ctx, testColumns, [][]any{{"new", "a", "M"}, {"short"}})
	require.ErrorContains(t, err, "row length 1 != columns length 3")
	assert.Equal(t, 2, count())

	deleted, inserted, err := r.Replace(ctx, testColumns, [][]any{{"new", "a", "M"}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
	assert.Equal(t, int64(1), inserted)
	assert.Zero(t, count())

	deleted, inserted, err = r.Replace(ctx, testColumns, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	assert.Zero(t, inserted)
}

func TestCopyFrom_EmptyInputs(t *testing.T) {
	t.Parallel()
	r := newRepo(t, "t")

	_, err := r.CopyFrom(context.Background(), nil, [][]any{{1}})
	require.Error(t, err)

	n, err := r.CopyFrom(context.Background(), testColumns, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestExec_BlankIsNoop(t *testing.T) {
	t.Parallel()
	r := newRepo(t, "t")
	require.NoError(t, r.Exec(context.Background(), "   "))
	require.Error(t, r.Exec(context.Background(), "NOT SQL"))
}

func TestQuoteFQN(t *testing.T) {
	assert.Equal(t, `"main"."events"`, quoteFQN("main.events"))
	assert.Equal(t, `"we""ird"`, quoteIdent(`we"ird`))
}
