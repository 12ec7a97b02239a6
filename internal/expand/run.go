package expand

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"rowexpand/internal/sheet"
)

// Options controls the side effects of Run.
type Options struct {
	// DryRun expands and renders but neither clears nor writes.
	DryRun bool
	// ClearExisting blanks the output columns from DestStartRow down before
	// writing, when the writer supports it.
	ClearExisting bool
}

// Result is everything a run produced.
type Result struct {
	Outputs []Output
	Stats   Stats
	Labels  map[SizeKey]sheet.Cell
	// Grid is the rendered destination block; Range is where it goes.
	Grid  sheet.Grid
	Range sheet.Range
	// Written is the number of rows handed to the writer.
	Written int
	Cleared bool
}

// Run is shorthand for New(plan, nil).Run.
func Run(ctx context.Context, plan Plan, src sheet.Reader, dst sheet.Writer, opts Options) (*Result, error) {
	return New(plan, nil).Run(ctx, src, dst, opts)
}

// Run checks that both sheets exist, reads the header row and the data block
// from src, expands them and writes the rendered rows to dst in one block.
func (e *Expander) Run(ctx context.Context, src sheet.Reader, dst sheet.Writer, opts Options) (*Result, error) {
	p := e.Plan
	log := e.logger()
	if err := p.Validate(); err != nil {
		return nil, err
	}

	ok, err := src.HasSheet(ctx, p.SourceSheet)
	if err != nil {
		return nil, fmt.Errorf("check source sheet %q: %w", p.SourceSheet, err)
	}
	if !ok {
		return nil, &MissingSheetError{Role: RoleSource, Name: p.SourceSheet}
	}
	ok, err = dst.HasSheet(ctx, p.DestSheet)
	if err != nil {
		return nil, fmt.Errorf("check destination sheet %q: %w", p.DestSheet, err)
	}
	if !ok {
		return nil, &MissingSheetError{Role: RoleDestination, Name: p.DestSheet}
	}

	log.Info("expand: starting", zap.String("source", p.SourceSheet), zap.String("destination", p.DestSheet))

	hr := p.HeaderRange()
	hg, err := src.ReadBlock(ctx, hr)
	if err != nil {
		return nil, fmt.Errorf("read header %s: %w", hr, err)
	}
	var header []sheet.Cell
	if len(hg) > 0 {
		header = hg[0]
	}
	labels := p.Labels(header)
	labelFields := make([]zap.Field, 0, len(p.Source.Counts))
	for _, k := range p.Keys() {
		labelFields = append(labelFields, zap.String(string(k), sheet.Text(labels[k])))
	}
	log.Info("expand: size headers", labelFields...)

	sr := p.SourceRange()
	block, err := src.ReadBlock(ctx, sr)
	if err != nil {
		return nil, fmt.Errorf("read source %s: %w", sr, err)
	}

	outputs, stats := e.Expand(header, block)
	res := &Result{
		Outputs: outputs,
		Stats:   stats,
		Labels:  labels,
		Grid:    Render(p, outputs),
		Range:   p.DestRange(len(outputs)),
	}

	if opts.DryRun {
		log.Info("expand: dry run, destination untouched", zap.Int("rows", len(outputs)))
		return res, nil
	}

	if opts.ClearExisting {
		if rp, ok := dst.(sheet.Replacer); ok {
			return e.replace(ctx, rp, res)
		}
		if c, ok := dst.(sheet.Clearer); ok {
			if err := c.ClearFrom(ctx, p.DestSheet, p.DestStartRow, p.DestWidth()); err != nil {
				return res, fmt.Errorf("clear destination %q from row %d: %w", p.DestSheet, p.DestStartRow, err)
			}
			res.Cleared = true
		} else {
			log.Warn("expand: destination cannot be cleared, stale rows may remain", zap.String("destination", p.DestSheet))
		}
	}

	if len(outputs) == 0 {
		log.Info("expand: no data to write (all counts were 0 or negative)")
		return res, nil
	}
	if err := dst.WriteBlock(ctx, res.Range, res.Grid); err != nil {
		return res, fmt.Errorf("write %s: %w", res.Range, err)
	}
	res.Written = len(outputs)
	log.Info("expand: wrote rows",
		zap.Int("rows", res.Written),
		zap.String("destination", p.DestSheet),
		zap.Int("start_row", p.DestStartRow))
	return res, nil
}

// replace clears and writes in one step on writers that can do both
// atomically, so a failed write leaves the previous contents in place.
func (e *Expander) replace(ctx context.Context, rp sheet.Replacer, res *Result) (*Result, error) {
	p := e.Plan
	if err := rp.ReplaceFrom(ctx, res.Range, res.Grid, p.DestWidth()); err != nil {
		return res, fmt.Errorf("replace %s: %w", res.Range, err)
	}
	res.Cleared = true
	res.Written = len(res.Outputs)
	e.logger().Info("expand: replaced destination rows",
		zap.Int("rows", res.Written),
		zap.String("destination", p.DestSheet),
		zap.Int("start_row", p.DestStartRow))
	return res, nil
}
