package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"rowexpand/internal/config"
	"rowexpand/internal/expand"
	"rowexpand/internal/logging"
	"rowexpand/internal/storage"
)

const srcSheet = "Ideal Order Quantity"

// writeOrders creates a workbook with a three-row source block and an empty
// jan_2026 tab.
func writeOrders(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	_, err := f.NewSheet(srcSheet)
	require.NoError(t, err)
	_, err = f.NewSheet("jan_2026")
	require.NoError(t, err)

	rows := map[string][]any{
		"B2": {"Name", "Item", "Fabric", "Colour", "Trim", "XS", "S", "M", "L", "XL"},
		"B3": {"Alice", "Shirt", "Cotton", "Blue", "Red", 2, 0, 1, nil, ""},
		"B4": {"Bob", "Pants", "Denim", "Black", "None", "", "", "", "", ""},
		"B5": {"Cara", "Hat", "Wool", "Grey", "Gold", 1.5, "abc", 0, -1, 1},
	}
	for axis, vals := range rows {
		require.NoError(t, f.SetSheetRow(srcSheet, axis, &vals))
	}
	path := filepath.Join(t.TempDir(), "orders.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func testJob(path string) config.Job {
	job := config.Default()
	job.Source.Path = path
	job.Source.Rows = config.Rows{Start: 3, End: 5}
	return job
}

func quietLogger(t *testing.T) {
	t.Helper()
	orig := newLoggerFn
	newLoggerFn = func(logging.Options) (*zap.Logger, error) { return zap.NewNop(), nil }
	t.Cleanup(func() { newLoggerFn = orig })
}

func TestRunJob_SameWorkbook(t *testing.T) {
	quietLogger(t)
	path := writeOrders(t)
	job := testJob(path)
	expected := 6.0
	job.Report.ExpectedTotal = &expected

	var out bytes.Buffer
	require.NoError(t, runJob(context.Background(), job, &out))
	assert.Contains(t, out.String(), "Generated 5 rows in \"jan_2026\" sheet.")
	assert.Contains(t, out.String(), "Sum of values: 5.5\n")
	assert.Contains(t, out.String(), "Discrepancy: 0.5\n")

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	get := func(axis string) string {
		v, err := f.GetCellValue("jan_2026", axis)
		require.NoError(t, err)
		return v
	}
	// Alice XS x2, Alice M, Cara XS (1.5 truncated), Cara XL.
	assert.Equal(t, []string{"Alice", "Cotton", "Blue", "Shirt", "Red", "XS"},
		[]string{get("B2"), get("C2"), get("D2"), get("E2"), get("G2"), get("H2")})
	assert.Equal(t, "XS", get("H3"))
	assert.Equal(t, "M", get("H4"))
	assert.Equal(t, []string{"Cara", "XS"}, []string{get("B5"), get("H5")})
	assert.Equal(t, []string{"Cara", "XL"}, []string{get("B6"), get("H6")})
	assert.Equal(t, "", get("B7"))
}

func TestRunJob_DryRunJSON(t *testing.T) {
	quietLogger(t)
	path := writeOrders(t)
	job := testJob(path)
	job.Runtime.DryRun = true
	job.Report.Output = "json"

	var out bytes.Buffer
	require.NoError(t, runJob(context.Background(), job, &out))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &doc))
	assert.Equal(t, true, doc["dry_run"])
	assert.Equal(t, 5.0, doc["rows_generated"])
	assert.Equal(t, 0.0, doc["rows_written"])
	assert.Equal(t, 2.0, doc["skipped_total"]) // "abc" and -1
	assert.Equal(t, 1.0, doc["fractional_total"])

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	v, err := f.GetCellValue("jan_2026", "B2")
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestRunJob_MissingSourceSheet(t *testing.T) {
	quietLogger(t)
	job := testJob(writeOrders(t))
	job.Source.Sheet = "Nope"

	err := runJob(context.Background(), job, &bytes.Buffer{})
	var mse *expand.MissingSheetError
	require.True(t, errors.As(err, &mse), "err = %v", err)
	assert.Equal(t, `Source sheet "Nope" not found`, err.Error())
}

func TestRunJob_SeparateCSVDestination(t *testing.T) {
	quietLogger(t)
	job := testJob(writeOrders(t))
	dir := filepath.Join(t.TempDir(), "out")
	job.Destination.Kind = "csv"
	job.Destination.Path = dir
	job.Destination.Create = true

	require.NoError(t, runJob(context.Background(), job, &bytes.Buffer{}))

	b, err := os.ReadFile(filepath.Join(dir, "jan_2026.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(b), ",Alice,Cotton,Blue,Shirt,,Red,XS")
	assert.Contains(t, string(b), ",Cara,Wool,Grey,Hat,,Gold,XL")
}

func TestRunJob_SQLiteDestination(t *testing.T) {
	quietLogger(t)
	job := testJob(writeOrders(t))
	dsn := filepath.Join(t.TempDir(), "out.db")
	job.Destination.Kind = "sqlite"
	job.Destination.DSN = dsn
	job.Destination.Create = true

	require.NoError(t, runJob(context.Background(), job, &bytes.Buffer{}))
	// A second run replaces the rows when clear_existing is set.
	job.Destination.ClearExisting = true
	require.NoError(t, runJob(context.Background(), job, &bytes.Buffer{}))

	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM "jan_2026"`).Scan(&n))
	assert.Equal(t, 5, n)

	var name, size string
	require.NoError(t, db.QueryRow(`SELECT attr_b, size_label FROM "jan_2026" WHERE attr_b = 'Alice' AND size_label = 'M'`).Scan(&name, &size))
	assert.Equal(t, "Alice", name)
}

func TestRunJob_DryRunWithTableToCreate(t *testing.T) {
	quietLogger(t)
	job := testJob(writeOrders(t))
	dsn := filepath.Join(t.TempDir(), "out.db")
	job.Destination.Kind = "sqlite"
	job.Destination.DSN = dsn
	job.Destination.Create = true
	job.Runtime.DryRun = true
	job.Report.Output = "json"

	var out bytes.Buffer
	require.NoError(t, runJob(context.Background(), job, &out))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &doc))
	assert.Equal(t, 5.0, doc["rows_generated"])
	assert.Equal(t, 0.0, doc["rows_written"])

	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	defer db.Close()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE name = 'jan_2026'`).Scan(&n))
	assert.Zero(t, n, "dry run must not create the table")

	// Without create the missing table is still fatal.
	job.Destination.Create = false
	err = runJob(context.Background(), job, &bytes.Buffer{})
	require.ErrorIs(t, err, expand.ErrMissingDestinationTable)
}

func TestRunJob_RepositoryErrorIsWrapped(t *testing.T) {
	quietLogger(t)
	orig := newRepositoryFn
	newRepositoryFn = func(context.Context, storage.Config) (storage.Repository, error) {
		return nil, errors.New("connection refused")
	}
	t.Cleanup(func() { newRepositoryFn = orig })

	job := testJob(writeOrders(t))
	job.Destination.Kind = "postgres"
	job.Destination.DSN = "postgres://localhost/db"

	err := runJob(context.Background(), job, &bytes.Buffer{})
	require.ErrorContains(t, err, "open destination: connection refused")
}

func TestRunJob_RemoteSource(t *testing.T) {
	quietLogger(t)
	orders := writeOrders(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, orders)
	}))
	defer srv.Close()

	job := testJob(srv.URL + "/share/orders.xlsx")
	out := filepath.Join(t.TempDir(), "out.xlsx")
	job.Destination.Path = out
	job.Destination.Create = true

	require.NoError(t, runJob(context.Background(), job, &bytes.Buffer{}))

	f, err := excelize.OpenFile(out)
	require.NoError(t, err)
	defer f.Close()
	v, err := f.GetCellValue("jan_2026", "H6")
	require.NoError(t, err)
	assert.Equal(t, "XL", v)
}

func TestSameWorkbook(t *testing.T) {
	s := config.Source{Kind: "xlsx", Path: "data/orders.xlsx"}
	assert.True(t, sameWorkbook(s, config.Destination{Kind: "xlsx"}))
	assert.True(t, sameWorkbook(s, config.Destination{Kind: "xlsx", Path: "./data/orders.xlsx"}))
	assert.False(t, sameWorkbook(s, config.Destination{Kind: "xlsx", Path: "other.xlsx"}))
	assert.False(t, sameWorkbook(s, config.Destination{Kind: "csv"}))
	assert.False(t, sameWorkbook(config.Source{Kind: "xlsx", Path: "https://example.com/o.xlsx"}, config.Destination{Kind: "xlsx"}))
}

func TestComma(t *testing.T) {
	assert.Equal(t, rune(0), comma(""))
	assert.Equal(t, ';', comma(";"))
	assert.Equal(t, '\t', comma("\t"))
}
