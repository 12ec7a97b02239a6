// Package csvdir implements sheet.Workbook over a directory of CSV files, one
// file per tab: sheet "jan_2026" lives in <dir>/jan_2026.csv. It is the
// portable exchange format for spreadsheets exported from hosted tools.
//
// Files are decoded with golang.org/x/text so exports in legacy code pages
// (windows-1252, shift_jis, ...) can be read and written back unchanged. The
// default is UTF-8 with an optional BOM, which is stripped on read.
package csvdir

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"rowexpand/internal/sheet"
)

func init() {
	sheet.Register("csv", func(ctx context.Context, opts sheet.Options) (sheet.Workbook, error) {
		return Open(opts)
	})
}

// Workbook is a directory of CSV tabs. Sheets are loaded lazily and cached;
// writes rewrite the whole file.
type Workbook struct {
	dir   string
	comma rune
	enc   encoding.Encoding
	cache map[string][][]string
}

var (
	_ sheet.Workbook = (*Workbook)(nil)
	_ sheet.Clearer  = (*Workbook)(nil)
)

// Open prepares a workbook rooted at opts.Path. With opts.Create the
// directory is created when missing.
func Open(opts sheet.Options) (*Workbook, error) {
	if strings.TrimSpace(opts.Path) == "" {
		return nil, fmt.Errorf("csvdir: path must not be empty")
	}
	enc, err := lookupEncoding(opts.Encoding)
	if err != nil {
		return nil, err
	}
	st, err := os.Stat(opts.Path)
	switch {
	case errors.Is(err, os.ErrNotExist) && opts.Create:
		if err := os.MkdirAll(opts.Path, 0o755); err != nil {
			return nil, fmt.Errorf("csvdir: create %s: %w", opts.Path, err)
		}
	case err != nil:
		return nil, fmt.Errorf("csvdir: stat %s: %w", opts.Path, err)
	case !st.IsDir():
		return nil, fmt.Errorf("csvdir: %s is not a directory", opts.Path)
	}
	comma := opts.Comma
	if comma == 0 {
		comma = ','
	}
	return &Workbook{
		dir:   opts.Path,
		comma: comma,
		enc:   enc,
		cache: map[string][][]string{},
	}, nil
}

// lookupEncoding resolves a WHATWG encoding label. Empty means UTF-8 with BOM
// handling.
func lookupEncoding(name string) (encoding.Encoding, error) {
	if strings.TrimSpace(name) == "" {
		return unicode.UTF8BOM, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("csvdir: unknown encoding %q: %w", name, err)
	}
	return enc, nil
}

// AddSheet creates an empty tab file if it does not exist.
func (w *Workbook) AddSheet(name string) error {
	if _, err := os.Stat(w.file(name)); err == nil {
		return nil
	}
	w.cache[name] = [][]string{}
	return w.flush(name)
}

func (w *Workbook) file(name string) string {
	return filepath.Join(w.dir, name+".csv")
}

func (w *Workbook) HasSheet(_ context.Context, name string) (bool, error) {
	if _, ok := w.cache[name]; ok {
		return true, nil
	}
	_, err := os.Stat(w.file(name))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("csvdir: stat %s: %w", w.file(name), err)
	}
	return true, nil
}

func (w *Workbook) load(name string) ([][]string, error) {
	if rows, ok := w.cache[name]; ok {
		return rows, nil
	}
	f, err := os.Open(w.file(name))
	if err != nil {
		return nil, fmt.Errorf("csvdir: open %s: %w", w.file(name), err)
	}
	defer f.Close()

	r := csv.NewReader(transform.NewReader(bufio.NewReader(f), w.enc.NewDecoder()))
	r.Comma = w.comma
	r.FieldsPerRecord = -1 // tabs are ragged once trailing empties are trimmed
	r.LazyQuotes = true

	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csvdir: parse %s: %w", w.file(name), err)
		}
		rows = append(rows, rec)
	}
	w.cache[name] = rows
	return rows, nil
}

func (w *Workbook) ReadBlock(ctx context.Context, r sheet.Range) (sheet.Grid, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	rows, err := w.load(r.Sheet)
	if err != nil {
		return nil, err
	}
	out := sheet.NewGrid(r.Rows, r.Cols)
	for i := 0; i < r.Rows; i++ {
		ri := r.Row - 1 + i
		if ri >= len(rows) {
			break
		}
		for j := 0; j < r.Cols; j++ {
			ci := r.Col - 1 + j
			if ci < len(rows[ri]) {
				out[i][j] = sheet.ParseCell(rows[ri][ci])
			}
		}
	}
	return out, ctx.Err()
}

func (w *Workbook) WriteBlock(ctx context.Context, r sheet.Range, g sheet.Grid) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if err := sheet.CheckShape(r, g); err != nil {
		return err
	}
	rows, err := w.loadForWrite(r.Sheet)
	if err != nil {
		return err
	}
	for len(rows) < r.LastRow() {
		rows = append(rows, nil)
	}
	for i, src := range g {
		if err := ctx.Err(); err != nil {
			return err
		}
		dst := rows[r.Row-1+i]
		for len(dst) < r.LastCol() {
			dst = append(dst, "")
		}
		for j, c := range src {
			dst[r.Col-1+j] = sheet.Text(c)
		}
		rows[r.Row-1+i] = dst
	}
	w.cache[r.Sheet] = rows
	return w.flush(r.Sheet)
}

// loadForWrite returns the current rows, treating a missing file as empty.
func (w *Workbook) loadForWrite(name string) ([][]string, error) {
	ok, err := w.HasSheet(context.Background(), name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return w.load(name)
}

func (w *Workbook) ClearFrom(_ context.Context, name string, row, width int) error {
	rows, err := w.loadForWrite(name)
	if err != nil {
		return err
	}
	if row < 1 {
		row = 1
	}
	for i := row - 1; i < len(rows); i++ {
		for j := 0; j < width && j < len(rows[i]); j++ {
			rows[i][j] = ""
		}
	}
	n := len(rows)
	for n >= row && blankRecord(rows[n-1]) {
		n--
	}
	w.cache[name] = rows[:n]
	return w.flush(name)
}

func blankRecord(rec []string) bool {
	for _, f := range rec {
		if f != "" {
			return false
		}
	}
	return true
}

// flush rewrites the tab file from the cache through a temp file.
func (w *Workbook) flush(name string) error {
	tmp, err := os.CreateTemp(w.dir, "."+name+"-*.csv")
	if err != nil {
		return fmt.Errorf("csvdir: temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	enc := w.enc
	if enc == unicode.UTF8BOM {
		enc = unicode.UTF8 // never add a BOM the input may not have had
	}
	tw := transform.NewWriter(tmp, enc.NewEncoder())
	cw := csv.NewWriter(tw)
	cw.Comma = w.comma
	if err := cw.WriteAll(keepBlankLines(w.cache[name])); err != nil {
		tmp.Close()
		return fmt.Errorf("csvdir: write %s: %w", name, err)
	}
	if err := tw.Close(); err != nil {
		tmp.Close()
		return fmt.Errorf("csvdir: encode %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("csvdir: close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), w.file(name)); err != nil {
		return fmt.Errorf("csvdir: replace %s: %w", w.file(name), err)
	}
	return nil
}

// keepBlankLines widens empty records to two fields. encoding/csv writes an
// empty record as a bare newline, which readers skip, shifting later rows up.
func keepBlankLines(rows [][]string) [][]string {
	var out [][]string
	for i, rec := range rows {
		if len(rec) > 1 || (len(rec) == 1 && rec[0] != "") {
			continue
		}
		if out == nil {
			out = append([][]string(nil), rows...)
		}
		out[i] = []string{"", ""}
	}
	if out == nil {
		return rows
	}
	return out
}

func (w *Workbook) Close() error {
	w.cache = map[string][][]string{}
	return nil
}
