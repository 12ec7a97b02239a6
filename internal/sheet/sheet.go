// Package sheet defines the data-access contract between the row expander and
// whatever holds the tabular data: an Excel workbook, a directory of CSV tabs,
// or a SQL table. The expander only ever reads and writes rectangular blocks,
// so the contract is deliberately narrow:
//
//	ReadBlock(range)        -> grid of cells
//	WriteBlock(range, grid)
//
// Coordinates are 1-based (row 1, column 1 is A1) to match how operators
// describe spreadsheet ranges.
package sheet

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Cell is a single spreadsheet value. Backends produce one of: nil, string,
// float64, bool or time.Time. Empty cells are returned as "".
type Cell = any

// Grid is a row-major block of cells.
type Grid [][]Cell

// Range addresses a rectangular block on a named sheet.
type Range struct {
	Sheet string
	Row   int // first row, 1-based
	Col   int // first column, 1-based
	Rows  int
	Cols  int
}

// LastRow returns the last row covered by the range.
func (r Range) LastRow() int { return r.Row + r.Rows - 1 }

// LastCol returns the last column covered by the range.
func (r Range) LastCol() int { return r.Col + r.Cols - 1 }

// Validate reports whether the range is addressable.
func (r Range) Validate() error {
	if strings.TrimSpace(r.Sheet) == "" {
		return fmt.Errorf("range: sheet name must not be empty")
	}
	if r.Row < 1 || r.Col < 1 {
		return fmt.Errorf("range %s: row and column must be >= 1 (row=%d col=%d)", r.Sheet, r.Row, r.Col)
	}
	if r.Rows < 0 || r.Cols < 0 {
		return fmt.Errorf("range %s: negative size %dx%d", r.Sheet, r.Rows, r.Cols)
	}
	return nil
}

// String renders the range in A1 notation, e.g. "Ideal Order Quantity!B3:K224".
func (r Range) String() string {
	from, err := excelize.CoordinatesToCellName(r.Col, r.Row)
	if err != nil {
		return fmt.Sprintf("%s!R%dC%d", r.Sheet, r.Row, r.Col)
	}
	if r.Rows <= 1 && r.Cols <= 1 {
		return r.Sheet + "!" + from
	}
	to, err := excelize.CoordinatesToCellName(r.LastCol(), r.LastRow())
	if err != nil {
		return r.Sheet + "!" + from
	}
	return r.Sheet + "!" + from + ":" + to
}

// Reader reads blocks from named sheets.
type Reader interface {
	// HasSheet reports whether a sheet (tab, table) with the given name exists.
	HasSheet(ctx context.Context, name string) (bool, error)
	// ReadBlock returns exactly r.Rows rows of exactly r.Cols cells; cells
	// outside the populated area are "".
	ReadBlock(ctx context.Context, r Range) (Grid, error)
}

// Writer writes blocks to named sheets.
type Writer interface {
	HasSheet(ctx context.Context, name string) (bool, error)
	// WriteBlock overwrites the cells covered by r with g. len(g) must equal
	// r.Rows and every row must have r.Cols cells.
	WriteBlock(ctx context.Context, r Range, g Grid) error
}

// Clearer is implemented by writers that can drop stale rows left behind by a
// previous, longer run.
type Clearer interface {
	// ClearFrom blanks columns 1..width of sheet from row (inclusive) down to
	// the last used row. Cells right of width are left as they are.
	ClearFrom(ctx context.Context, sheet string, row, width int) error
}

// Replacer is implemented by writers that can clear and write as one atomic
// step. Run prefers it over Clearer followed by WriteBlock.
type Replacer interface {
	// ReplaceFrom clears what ClearFrom(ctx, r.Sheet, r.Row, width) would
	// and writes g to r. On error neither change is visible. g may be empty.
	ReplaceFrom(ctx context.Context, r Range, g Grid, width int) error
}

// Workbook is a Reader and Writer over one underlying document.
type Workbook interface {
	Reader
	Writer
	Close() error
}

// NewGrid allocates a rows x cols grid filled with "".
func NewGrid(rows, cols int) Grid {
	g := make(Grid, rows)
	for i := range g {
		row := make([]Cell, cols)
		for j := range row {
			row[j] = ""
		}
		g[i] = row
	}
	return g
}

// At returns the cell at 0-based (row, col), or "" when out of bounds.
func (g Grid) At(row, col int) Cell {
	if row < 0 || row >= len(g) || col < 0 || col >= len(g[row]) {
		return ""
	}
	return g[row][col]
}

// CheckShape verifies that g matches the size of r.
func CheckShape(r Range, g Grid) error {
	if len(g) != r.Rows {
		return fmt.Errorf("grid has %d rows, range %s expects %d", len(g), r, r.Rows)
	}
	for i, row := range g {
		if len(row) != r.Cols {
			return fmt.Errorf("grid row %d has %d cells, range %s expects %d", i, len(row), r, r.Cols)
		}
	}
	return nil
}

// ColumnName converts a 1-based column number to its letter name (1 -> "A").
func ColumnName(col int) string {
	name, err := excelize.ColumnNumberToName(col)
	if err != nil {
		return strconv.Itoa(col)
	}
	return name
}

// ParseCell types a raw textual value the way a spreadsheet does when text is
// typed into a cell: numbers become float64, TRUE/FALSE become bool, empty
// stays "", anything else is kept as a string.
func ParseCell(raw string) Cell {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return f
	}
	switch strings.ToUpper(s) {
	case "TRUE":
		return true
	case "FALSE":
		return false
	}
	return raw
}

// Text renders a cell for text-only destinations (CSV files, SQL TEXT columns).
func Text(c Cell) string {
	switch v := c.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}

// IsEmpty reports whether c is nil or an empty string.
func IsEmpty(c Cell) bool {
	if c == nil {
		return true
	}
	s, ok := c.(string)
	return ok && s == ""
}
