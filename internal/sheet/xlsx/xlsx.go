// Package xlsx implements sheet.Workbook over Excel files using excelize.
//
// Cell values are read raw (no number formats applied) and typed the way the
// spreadsheet stores them: numeric cells become float64, or time.Time when the
// cell carries a date format, boolean cells bool, everything else string. Writes go through SetSheetRow and are saved to disk
// immediately, so a WriteBlock is a single durable bulk operation.
package xlsx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"rowexpand/internal/sheet"
)

func init() {
	sheet.Register("xlsx", func(ctx context.Context, opts sheet.Options) (sheet.Workbook, error) {
		return Open(opts.Path, opts.Create)
	})
}

// Workbook is an Excel file opened for reading and writing.
type Workbook struct {
	f    *excelize.File
	path string

	// dateStyles caches whether a style ID formats numbers as dates.
	dateStyles map[int]bool
	date1904   *bool
}

var (
	_ sheet.Workbook = (*Workbook)(nil)
	_ sheet.Clearer  = (*Workbook)(nil)
)

// Open opens path. When the file does not exist and create is true, an empty
// in-memory workbook is returned and written to path on the first save.
func Open(path string, create bool) (*Workbook, error) {
	if path == "" {
		return nil, fmt.Errorf("xlsx: path must not be empty")
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		if create && errors.Is(err, os.ErrNotExist) {
			return &Workbook{f: excelize.NewFile(), path: path, dateStyles: map[int]bool{}}, nil
		}
		return nil, fmt.Errorf("xlsx: open %s: %w", path, err)
	}
	return &Workbook{f: f, path: path, dateStyles: map[int]bool{}}, nil
}

// AddSheet creates a sheet if it is missing.
func (w *Workbook) AddSheet(name string) error {
	idx, err := w.f.GetSheetIndex(name)
	if err != nil {
		return fmt.Errorf("xlsx: sheet index %q: %w", name, err)
	}
	if idx != -1 {
		return nil
	}
	if _, err := w.f.NewSheet(name); err != nil {
		return fmt.Errorf("xlsx: new sheet %q: %w", name, err)
	}
	return nil
}

func (w *Workbook) HasSheet(_ context.Context, name string) (bool, error) {
	idx, err := w.f.GetSheetIndex(name)
	if err != nil {
		return false, fmt.Errorf("xlsx: sheet index %q: %w", name, err)
	}
	return idx != -1, nil
}

func (w *Workbook) ReadBlock(ctx context.Context, r sheet.Range) (sheet.Grid, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	out := sheet.NewGrid(r.Rows, r.Cols)
	for i := 0; i < r.Rows; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for j := 0; j < r.Cols; j++ {
			axis, err := excelize.CoordinatesToCellName(r.Col+j, r.Row+i)
			if err != nil {
				return nil, fmt.Errorf("xlsx: %s: %w", r, err)
			}
			c, err := w.cell(r.Sheet, axis)
			if err != nil {
				return nil, fmt.Errorf("xlsx: read %s!%s: %w", r.Sheet, axis, err)
			}
			out[i][j] = c
		}
	}
	return out, nil
}

// cell reads one raw value and types it.
func (w *Workbook) cell(sheetName, axis string) (sheet.Cell, error) {
	raw, err := w.f.GetCellValue(sheetName, axis, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return "", nil
	}
	typ, err := w.f.GetCellType(sheetName, axis)
	if err != nil {
		return nil, err
	}
	switch typ {
	case excelize.CellTypeBool:
		return raw == "1" || raw == "TRUE" || raw == "true", nil
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		// Numeric cells carry no type attribute, so Unset is the common case.
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return w.number(sheetName, axis, f)
		}
	}
	return raw, nil
}

// number returns f, or the date it encodes when the cell is date formatted.
func (w *Workbook) number(sheetName, axis string, f float64) (sheet.Cell, error) {
	id, err := w.f.GetCellStyle(sheetName, axis)
	if err != nil {
		return nil, err
	}
	isDate, ok := w.dateStyles[id]
	if !ok {
		// A style that cannot be resolved is treated as a plain number.
		if st, err := w.f.GetStyle(id); err == nil {
			isDate = isDateFormat(st.NumFmt, st.CustomNumFmt)
		}
		w.dateStyles[id] = isDate
	}
	if !isDate {
		return f, nil
	}
	t, err := excelize.ExcelDateToTime(f, w.uses1904())
	if err != nil {
		return f, nil
	}
	return t, nil
}

func (w *Workbook) uses1904() bool {
	if w.date1904 == nil {
		v := false
		if props, err := w.f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
			v = *props.Date1904
		}
		w.date1904 = &v
	}
	return *w.date1904
}

// isDateFormat reports whether a number format renders dates. Built-in IDs
// 14-22 and 45-47 are dates and times, 27-36 and 50-58 their CJK variants.
func isDateFormat(id int, custom *string) bool {
	if custom == nil {
		return (id >= 14 && id <= 22) || (id >= 27 && id <= 36) ||
			(id >= 45 && id <= 47) || (id >= 50 && id <= 58)
	}
	var b strings.Builder
	quoted, bracket := false, false
	code := strings.ToLower(*custom)
	for i := 0; i < len(code); i++ {
		c := code[i]
		switch {
		case c == '"':
			quoted = !quoted
		case quoted:
		case c == '[':
			bracket = true
		case c == ']':
			bracket = false
		case bracket:
		case c == '\\':
			i++
		default:
			b.WriteByte(c)
		}
	}
	return strings.ContainsAny(b.String(), "yd")
}

func (w *Workbook) WriteBlock(ctx context.Context, r sheet.Range, g sheet.Grid) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if err := sheet.CheckShape(r, g); err != nil {
		return err
	}
	for i := range g {
		if err := ctx.Err(); err != nil {
			return err
		}
		axis, err := excelize.CoordinatesToCellName(r.Col, r.Row+i)
		if err != nil {
			return fmt.Errorf("xlsx: %s: %w", r, err)
		}
		row := []any(g[i])
		if err := w.f.SetSheetRow(r.Sheet, axis, &row); err != nil {
			return fmt.Errorf("xlsx: write %s!%s: %w", r.Sheet, axis, err)
		}
	}
	return w.save()
}

// ClearFrom blanks values and formulas in columns 1..width. Rows are kept so
// cells to the right, styles and references into the sheet stay in place.
func (w *Workbook) ClearFrom(ctx context.Context, sheetName string, row, width int) error {
	if row < 1 {
		row = 1
	}
	rows, err := w.f.GetRows(sheetName)
	if err != nil {
		return fmt.Errorf("xlsx: rows of %q: %w", sheetName, err)
	}
	for r := row; r <= len(rows); r++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		for c := 1; c <= width; c++ {
			axis, err := excelize.CoordinatesToCellName(c, r)
			if err != nil {
				return fmt.Errorf("xlsx: clear %s row %d: %w", sheetName, r, err)
			}
			if err := w.clearCell(sheetName, axis); err != nil {
				return err
			}
		}
	}
	return w.save()
}

func (w *Workbook) clearCell(sheetName, axis string) error {
	formula, err := w.f.GetCellFormula(sheetName, axis)
	if err != nil {
		return fmt.Errorf("xlsx: formula %s!%s: %w", sheetName, axis, err)
	}
	if formula != "" {
		if err := w.f.SetCellFormula(sheetName, axis, ""); err != nil {
			return fmt.Errorf("xlsx: clear formula %s!%s: %w", sheetName, axis, err)
		}
	}
	if err := w.f.SetCellValue(sheetName, axis, nil); err != nil {
		return fmt.Errorf("xlsx: clear %s!%s: %w", sheetName, axis, err)
	}
	return nil
}

func (w *Workbook) save() error {
	if err := w.f.SaveAs(w.path); err != nil {
		return fmt.Errorf("xlsx: save %s: %w", w.path, err)
	}
	return nil
}

func (w *Workbook) Close() error { return w.f.Close() }
