package mssql

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rowexpand/internal/ddl"
	"rowexpand/internal/storage"
)

// TestMsIdent verifies bracket quoting and escaping of closing brackets.
func TestMsIdent(t *testing.T) {
	cases := []struct{ in, want string }{
		{"simple", "[simple]"},
		{"brack]et", "[brack]]et]"},
		{`weird]]name`, `[weird]]]]name]`},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, msIdent(tc.in), tc.in)
	}
}

func TestMsFQN(t *testing.T) {
	assert.Equal(t, "[table]", msFQN("table"))
	assert.Equal(t, "[dbo].[table]", msFQN("dbo.table"))
	assert.Equal(t, "[sales].[q4].[table]", msFQN("sales.q4.table"))
}

func TestValidateConfig(t *testing.T) {
	require.ErrorContains(t, validateConfig(Config{DSN: "sqlserver://sa:pw@localhost:1433?database=x"}), "table must not be empty")
	require.NoError(t, validateConfig(Config{DSN: "sqlserver://sa:pw@localhost:1433?database=x", Table: "dbo.t"}))
	require.Error(t, validateConfig(Config{DSN: "sqlserver://%zz", Table: "dbo.t"}))
}

type execRecorder struct {
	storage.Repository
	stmts []string
}

func (e *execRecorder) Exec(_ context.Context, sql string) error {
	e.stmts = append(e.stmts, sql)
	return nil
}

func TestEnsureTableGuardsWithObjectID(t *testing.T) {
	rec := &execRecorder{}
	require.NoError(t, EnsureTable(context.Background(), rec, ddl.TextTable("dbo.jan_2026", []string{"attr_b", "size_label"})))
	require.Len(t, rec.stmts, 1)
	assert.Equal(t,
		"IF OBJECT_ID(N'[dbo].[jan_2026]', N'U') IS NULL\nCREATE TABLE [dbo].[jan_2026] (\n  [attr_b] NVARCHAR(MAX),\n  [size_label] NVARCHAR(MAX)\n);",
		rec.stmts[0])
}

func TestAdapterRegistrationUsesHook(t *testing.T) {
	orig := newRepository
	defer func() { newRepository = orig }()

	var got Config
	closed := false
	newRepository = func(_ context.Context, cfg Config) (*Repository, func(), error) {
		got = cfg
		return &Repository{}, func() { closed = true }, nil
	}

	repo, err := storage.New(context.Background(), storage.Config{Kind: "mssql", DSN: "sqlserver://x", Table: "dbo.t", Columns: []string{"a"}})
	require.NoError(t, err)
	assert.Equal(t, Config{DSN: "sqlserver://x", Table: "dbo.t", Columns: []string{"a"}}, got)
	repo.Close()
	assert.True(t, closed)
}

// TestRepository_Integration runs against a live server when TEST_MSSQL_DSN
// is set.
func TestRepository_Integration(t *testing.T) {
	dsn := os.Getenv("TEST_MSSQL_DSN")
	if dsn == "" {
		t.Skip("skipping integration test: set TEST_MSSQL_DSN to run")
	}
	ctx := context.Background()
	cols := []string{"attr_b", "size_label"}

	repo, closeFn, err := NewRepository(ctx, Config{DSN: dsn, Table: "dbo.__rowexpand_test", Columns: cols})
	require.NoError(t, err)
	defer closeFn()

	require.NoError(t, repo.Exec(ctx, "DROP TABLE IF EXISTS dbo.__rowexpand_test"))
	require.NoError(t, EnsureTable(ctx, &wrappedRepo{Repository: repo}, ddl.TextTable("dbo.__rowexpand_test", cols)))

	ok, err := repo.TableExists(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	n, err := repo.CopyFrom(ctx, cols, [][]any{{"Alice", "XS"}, {"Alice", nil}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	deleted, err := repo.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	_, err = repo.CopyFrom(ctx, cols, [][]any{{"Stale", "M"}})
	require.NoError(t, err)
	deleted, inserted, err := repo.Replace(ctx, cols, [][]any{{"Bob", "L"}, {"Bob", "XL"}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	assert.Equal(t, int64(2), inserted)
}
