// Package table adapts a storage.Repository to sheet.Writer so an expansion
// can land in a SQL table instead of a workbook tab.
package table

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"rowexpand/internal/sheet"
	"rowexpand/internal/storage"
)

const defaultBatchSize = 500

// Options configures a Writer.
type Options struct {
	// Table is the destination table; WriteBlock rejects ranges addressed to
	// any other name.
	Table string
	// Columns are the SQL columns in write order.
	Columns []string
	// SourceCols are the 1-based grid columns projected onto Columns,
	// position for position.
	SourceCols []int
	BatchSize  int
	Logger     *zap.Logger
	// CreatePending marks a table that a real run would create first. A
	// missing table is then reported as present so dry runs can proceed.
	CreatePending bool
}

// Writer streams grid rows into a storage.Repository.
type Writer struct {
	repo storage.Repository
	opts Options
}

var (
	_ sheet.Writer   = (*Writer)(nil)
	_ sheet.Clearer  = (*Writer)(nil)
	_ sheet.Replacer = (*Writer)(nil)
)

// New validates opts and returns a Writer over repo.
func New(repo storage.Repository, opts Options) (*Writer, error) {
	if repo == nil {
		return nil, fmt.Errorf("table writer: repository is nil")
	}
	if strings.TrimSpace(opts.Table) == "" {
		return nil, fmt.Errorf("table writer: table must not be empty")
	}
	if len(opts.Columns) == 0 {
		return nil, fmt.Errorf("table writer: at least one column is required")
	}
	if len(opts.SourceCols) != len(opts.Columns) {
		return nil, fmt.Errorf("table writer: %d source columns for %d table columns", len(opts.SourceCols), len(opts.Columns))
	}
	for i, c := range opts.SourceCols {
		if c < 1 {
			return nil, fmt.Errorf("table writer: source column %d for %q must be >= 1", c, opts.Columns[i])
		}
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Writer{repo: repo, opts: opts}, nil
}

// HasSheet reports whether name is the configured table and it exists.
func (w *Writer) HasSheet(ctx context.Context, name string) (bool, error) {
	if name != w.opts.Table {
		return false, nil
	}
	ok, err := w.repo.TableExists(ctx)
	if err != nil || ok || !w.opts.CreatePending {
		return ok, err
	}
	w.opts.Logger.Info("table writer: table does not exist yet and would be created", zap.String("table", name))
	return true, nil
}

// WriteBlock appends every grid row to the table. The range's row offset has
// no meaning for SQL and is ignored; its column offset locates SourceCols
// within each grid row.
func (w *Writer) WriteBlock(ctx context.Context, r sheet.Range, g sheet.Grid) error {
	if r.Sheet != w.opts.Table {
		return fmt.Errorf("table writer: range %s does not address table %q", r, w.opts.Table)
	}
	if err := sheet.CheckShape(r, g); err != nil {
		return err
	}
	if len(g) == 0 {
		return nil
	}

	rows := make(chan []any, w.opts.BatchSize)
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		defer close(rows)
		for _, gr := range g {
			select {
			case rows <- w.project(r.Col, gr):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	var written int64
	eg.Go(func() error {
		n, err := storage.LoadBatches(ctx, w.opts.Logger, w.opts.Columns, rows, w.opts.BatchSize, w.repo.CopyFrom)
		written = n
		return err
	})

	if err := eg.Wait(); err != nil {
		return fmt.Errorf("table writer: load %s: %w", w.opts.Table, err)
	}
	if written != int64(len(g)) {
		w.opts.Logger.Warn("table writer: row count mismatch",
			zap.String("table", w.opts.Table),
			zap.Int("expected", len(g)),
			zap.Int64("written", written))
	}
	return nil
}

// project maps one grid row onto the SQL columns. Empty cells become NULL.
func (w *Writer) project(firstCol int, row []sheet.Cell) []any {
	out := make([]any, len(w.opts.SourceCols))
	for i, c := range w.opts.SourceCols {
		idx := c - firstCol
		if idx < 0 || idx >= len(row) || sheet.IsEmpty(row[idx]) {
			out[i] = nil
			continue
		}
		out[i] = sheet.Text(row[idx])
	}
	return out
}

// ClearFrom deletes every row of the table. SQL tables have no row order or
// column positions, so row and width are ignored.
func (w *Writer) ClearFrom(ctx context.Context, name string, _, _ int) error {
	if name != w.opts.Table {
		return fmt.Errorf("table writer: cannot clear %q, writer targets %q", name, w.opts.Table)
	}
	n, err := w.repo.DeleteAll(ctx)
	if err != nil {
		return fmt.Errorf("table writer: clear %s: %w", name, err)
	}
	w.opts.Logger.Info("table writer: cleared existing rows", zap.String("table", name), zap.Int64("deleted", n))
	return nil
}

// ReplaceFrom deletes every row and loads g in one transaction, so a failed
// load keeps the previous contents. r.Row and width are ignored as in
// ClearFrom.
func (w *Writer) ReplaceFrom(ctx context.Context, r sheet.Range, g sheet.Grid, _ int) error {
	if r.Sheet != w.opts.Table {
		return fmt.Errorf("table writer: range %s does not address table %q", r, w.opts.Table)
	}
	if err := sheet.CheckShape(r, g); err != nil {
		return err
	}
	rows := make([][]any, len(g))
	for i, gr := range g {
		rows[i] = w.project(r.Col, gr)
	}
	deleted, inserted, err := w.repo.Replace(ctx, w.opts.Columns, rows)
	if err != nil {
		return fmt.Errorf("table writer: replace %s: %w", w.opts.Table, err)
	}
	w.opts.Logger.Info("table writer: replaced rows",
		zap.String("table", w.opts.Table),
		zap.Int64("deleted", deleted),
		zap.Int64("inserted", inserted))
	if inserted != int64(len(g)) {
		w.opts.Logger.Warn("table writer: row count mismatch",
			zap.String("table", w.opts.Table),
			zap.Int("expected", len(g)),
			zap.Int64("written", inserted))
	}
	return nil
}
