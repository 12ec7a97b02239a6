package xlsx

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"rowexpand/internal/sheet"
)

// newFixture writes a small workbook with a source and a destination sheet.
func newFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "orders.xlsx")

	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName("Sheet1", "Ideal Order Quantity"))
	_, err := f.NewSheet("jan_2026")
	require.NoError(t, err)

	src := "Ideal Order Quantity"
	require.NoError(t, f.SetCellValue(src, "G2", "XS"))
	require.NoError(t, f.SetCellValue(src, "H2", "S"))
	require.NoError(t, f.SetCellValue(src, "B3", "Alice"))
	require.NoError(t, f.SetCellValue(src, "G3", 2))
	require.NoError(t, f.SetCellValue(src, "H3", 2.5))
	require.NoError(t, f.SetCellValue(src, "I3", true))
	require.NoError(t, f.SetCellValue(src, "J3", "0"))
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestWorkbook_HasSheet(t *testing.T) {
	wb, err := Open(newFixture(t), false)
	require.NoError(t, err)
	defer wb.Close()

	ctx := context.Background()
	ok, err := wb.HasSheet(ctx, "jan_2026")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = wb.HasSheet(ctx, "feb_2026")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWorkbook_ReadBlockTypesCells(t *testing.T) {
	wb, err := Open(newFixture(t), false)
	require.NoError(t, err)
	defer wb.Close()

	g, err := wb.ReadBlock(context.Background(), sheet.Range{Sheet: "Ideal Order Quantity", Row: 2, Col: 2, Rows: 3, Cols: 10})
	require.NoError(t, err)
	require.Len(t, g, 3)
	for _, row := range g {
		require.Len(t, row, 10)
	}

	// header row: G2, H2 -> offsets 5, 6
	assert.Equal(t, "XS", g[0][5])
	assert.Equal(t, "S", g[0][6])

	// data row
	assert.Equal(t, "Alice", g[1][0])
	assert.Equal(t, 2.0, g[1][5])
	assert.Equal(t, 2.5, g[1][6])
	assert.Equal(t, true, g[1][7])
	assert.Equal(t, "0", g[1][8], "text cells stay text")
	assert.Equal(t, "", g[1][9])

	// unpopulated row is padded
	assert.Equal(t, "", g[2][0])
}

func TestWorkbook_WriteBlockPersists(t *testing.T) {
	path := newFixture(t)
	wb, err := Open(path, false)
	require.NoError(t, err)

	r := sheet.Range{Sheet: "jan_2026", Row: 2, Col: 1, Rows: 2, Cols: 3}
	err = wb.WriteBlock(context.Background(), r, sheet.Grid{
		{"", "Alice", "XS"},
		{"", "Bob", 3.0},
	})
	require.NoError(t, err)
	require.NoError(t, wb.Close())

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	v, err := f.GetCellValue("jan_2026", "B2")
	require.NoError(t, err)
	assert.Equal(t, "Alice", v)
	v, err = f.GetCellValue("jan_2026", "C3")
	require.NoError(t, err)
	assert.Equal(t, "3", v)
}

func TestWorkbook_WriteBlockRejectsShapeMismatch(t *testing.T) {
	wb, err := Open(newFixture(t), false)
	require.NoError(t, err)
	defer wb.Close()

	err = wb.WriteBlock(context.Background(), sheet.Range{Sheet: "jan_2026", Row: 1, Col: 1, Rows: 2, Cols: 1}, sheet.Grid{{"x"}})
	assert.Error(t, err)
}

func TestWorkbook_ClearFrom(t *testing.T) {
	path := newFixture(t)
	wb, err := Open(path, false)
	require.NoError(t, err)
	defer wb.Close()

	ctx := context.Background()
	r := sheet.Range{Sheet: "jan_2026", Row: 1, Col: 1, Rows: 4, Cols: 1}
	require.NoError(t, wb.WriteBlock(ctx, r, sheet.Grid{{"h"}, {"a"}, {"b"}, {"c"}}))
	require.NoError(t, wb.ClearFrom(ctx, "jan_2026", 2, 8))

	g, err := wb.ReadBlock(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, sheet.Grid{{"h"}, {""}, {""}, {""}}, g)
}

func TestWorkbook_ClearFromKeepsColumnsBeyondWidth(t *testing.T) {
	path := newFixture(t)
	wb, err := Open(path, false)
	require.NoError(t, err)

	ctx := context.Background()
	stale := sheet.NewGrid(3, 8)
	for i := range stale {
		stale[i][1] = "stale"
	}
	stale[1][7] = "stale"
	require.NoError(t, wb.WriteBlock(ctx, sheet.Range{Sheet: "jan_2026", Row: 2, Col: 1, Rows: 3, Cols: 8}, stale))
	require.NoError(t, wb.f.SetCellValue("jan_2026", "J2", "operator note"))
	require.NoError(t, wb.f.SetCellFormula("jan_2026", "K3", "SUM(1,1)"))
	require.NoError(t, wb.f.SetCellFormula("jan_2026", "C3", "LEN(B3)"))

	require.NoError(t, wb.ClearFrom(ctx, "jan_2026", 2, 8))
	require.NoError(t, wb.Close())

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	for _, axis := range []string{"B2", "B3", "B4", "H3"} {
		v, err := f.GetCellValue("jan_2026", axis)
		require.NoError(t, err)
		assert.Empty(t, v, axis)
	}
	formula, err := f.GetCellFormula("jan_2026", "C3")
	require.NoError(t, err)
	assert.Empty(t, formula, "formulas inside the output width are cleared")

	v, err := f.GetCellValue("jan_2026", "J2")
	require.NoError(t, err)
	assert.Equal(t, "operator note", v)
	formula, err = f.GetCellFormula("jan_2026", "K3")
	require.NoError(t, err)
	assert.Equal(t, "SUM(1,1)", formula)
}

func TestWorkbook_ReadBlockDates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dates.xlsx")
	f := excelize.NewFile()
	jan15 := time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC)

	require.NoError(t, f.SetCellValue("Sheet1", "A1", jan15))

	builtin, err := f.NewStyle(&excelize.Style{NumFmt: 14})
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue("Sheet1", "B1", 46037))
	require.NoError(t, f.SetCellStyle("Sheet1", "B1", "B1", builtin))

	iso := "yyyy-mm-dd"
	custom, err := f.NewStyle(&excelize.Style{CustomNumFmt: &iso})
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue("Sheet1", "C1", 46037))
	require.NoError(t, f.SetCellStyle("Sheet1", "C1", "C1", custom))

	decimals, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue("Sheet1", "D1", 3))
	require.NoError(t, f.SetCellStyle("Sheet1", "D1", "D1", decimals))

	require.NoError(t, f.SetCellValue("Sheet1", "E1", 2))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	wb, err := Open(path, false)
	require.NoError(t, err)
	defer wb.Close()

	g, err := wb.ReadBlock(context.Background(), sheet.Range{Sheet: "Sheet1", Row: 1, Col: 1, Rows: 1, Cols: 5})
	require.NoError(t, err)
	assert.Equal(t, sheet.Grid{{jan15, jan15, jan15, 3.0, 2.0}}, g)
}

func TestIsDateFormat(t *testing.T) {
	str := func(s string) *string { return &s }
	tests := []struct {
		name   string
		id     int
		custom *string
		want   bool
	}{
		{"general", 0, nil, false},
		{"decimals", 2, nil, false},
		{"short date", 14, nil, true},
		{"date time", 22, nil, true},
		{"elapsed", 46, nil, true},
		{"iso date", 0, str("yyyy-mm-dd"), true},
		{"day month", 0, str("d mmm"), true},
		{"quoted text", 0, str(`0 "days"`), false},
		{"colour section", 0, str("[Red]0.00"), false},
		{"escaped d", 0, str(`0\d`), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, isDateFormat(tc.id, tc.custom))
		})
	}
}

func TestOpen_CreateMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "new.xlsx")

	_, err := Open(path, false)
	require.Error(t, err)

	wb, err := Open(path, true)
	require.NoError(t, err)
	defer wb.Close()
	require.NoError(t, wb.AddSheet("out"))
	require.NoError(t, wb.WriteBlock(context.Background(), sheet.Range{Sheet: "out", Row: 1, Col: 1, Rows: 1, Cols: 1}, sheet.Grid{{"x"}}))
	assert.FileExists(t, path)
}

func TestRegisteredKind(t *testing.T) {
	wb, err := sheet.Open(context.Background(), "xlsx", sheet.Options{Path: newFixture(t)})
	require.NoError(t, err)
	assert.NoError(t, wb.Close())
}
