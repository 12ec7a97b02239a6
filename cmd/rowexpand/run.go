package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"rowexpand/internal/config"
	"rowexpand/internal/datasource"
	"rowexpand/internal/ddl"
	"rowexpand/internal/expand"
	"rowexpand/internal/logging"
	"rowexpand/internal/metrics"
	"rowexpand/internal/report"
	"rowexpand/internal/sheet"
	"rowexpand/internal/sheet/table"
	"rowexpand/internal/storage"

	// Register every workbook and SQL backend; the job selects one of each.
	_ "rowexpand/internal/sheet/all"
	_ "rowexpand/internal/storage/all"
)

// Test seams.
var (
	openWorkbookFn  = sheet.Open
	newRepositoryFn = storage.New
	ensureTableFn   = storage.EnsureTable
	newLoggerFn     = logging.New
)

// runJob executes one expansion run and prints the report to out.
func runJob(ctx context.Context, job config.Job, out io.Writer) (err error) {
	logger, err := newLoggerFn(logging.Options{Level: job.Log.Level, Format: job.Log.Format, Component: "run"})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.With(zap.String("job", job.Job))

	flush := setupMetrics(job, logger)
	defer flush()

	start := time.Now()
	defer func() {
		metrics.RecordStep(job.Job, "run", err, time.Since(start))
		if err != nil {
			logger.Error("run: failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
			return
		}
		logger.Info("run: completed", zap.Duration("elapsed", time.Since(start).Truncate(time.Millisecond)))
	}()

	plan, err := job.Plan()
	if err != nil {
		return fmt.Errorf("build plan: %w", err)
	}

	openStart := time.Now()
	src, dst, closeAll, err := openEndpoints(ctx, job, plan, logger)
	metrics.RecordStep(job.Job, "open", err, time.Since(openStart))
	if err != nil {
		return err
	}
	defer closeAll()

	ex := expand.New(plan, logger)
	ex.ProgressEvery = job.Runtime.ProgressEvery
	ex.AnomalyLimit = job.Runtime.AnomalyLimit
	ex.MaxCount = job.Runtime.MaxCount

	expandStart := time.Now()
	res, err := ex.Run(ctx, src, dst, expand.Options{
		DryRun:        job.Runtime.DryRun,
		ClearExisting: job.Destination.ClearExisting,
	})
	metrics.RecordStep(job.Job, "expand", err, time.Since(expandStart))
	if err != nil {
		return err
	}
	recordStats(job.Job, res)

	report.LogStatistics(logger, res.Stats, job.Report.ExpectedTotal)
	if !job.Runtime.DryRun {
		logger.Info("run: output fingerprint", zap.String("fingerprint", report.Fingerprint(res.Grid)))
	}

	if job.Report.Output == "json" {
		return report.WriteJSON(out, report.Build(job.Job, plan.DestSheet, job.Runtime.DryRun, res, job.Report.ExpectedTotal))
	}
	_, err = fmt.Fprintln(out, report.Summary(plan.DestSheet, res, job.Report.ExpectedTotal))
	return err
}

func recordStats(job string, res *expand.Result) {
	st := res.Stats
	metrics.RecordCells(job, "scanned", st.CellsScanned)
	metrics.RecordCells(job, "positive", st.PositiveCells)
	metrics.RecordCells(job, "skipped", st.SkippedTotal)
	metrics.RecordCells(job, "fractional", st.FractionalTotal)
	metrics.RecordOutputRows(job, res.Written)
}

// openEndpoints opens the source workbook and the destination. A workbook
// destination that names the same file (or no file) shares the source
// workbook, so the run reads and writes one document.
func openEndpoints(ctx context.Context, job config.Job, plan expand.Plan, logger *zap.Logger) (sheet.Reader, sheet.Writer, func(), error) {
	s, d := job.Source, job.Destination

	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	srcPath := s.Path
	if datasource.IsRemote(s.Path) {
		p, cleanup, err := downloadSource(ctx, s, logger)
		if err != nil {
			return nil, nil, nil, err
		}
		srcPath = p
		closers = append(closers, cleanup)
	}

	src, err := openWorkbookFn(ctx, s.Kind, sheet.Options{Path: srcPath, Encoding: s.Encoding, Comma: comma(s.Comma)})
	if err != nil {
		closeAll()
		return nil, nil, nil, fmt.Errorf("open source: %w", err)
	}
	closers = append(closers, func() { closeWorkbook(logger, "source", src) })

	var dst sheet.Writer
	switch {
	case config.IsSQLKind(d.Kind):
		dst, err = openTable(ctx, job, plan, logger, &closers)
	case sameWorkbook(s, d):
		dst = src
		if d.Create {
			err = addSheet(src, d.Sheet)
		}
	default:
		var wb sheet.Workbook
		wb, err = openWorkbookFn(ctx, d.Kind, sheet.Options{
			Path: d.Path, Encoding: d.Encoding, Comma: comma(d.Comma), Create: d.Create,
		})
		if err == nil {
			closers = append(closers, func() { closeWorkbook(logger, "destination", wb) })
			dst = wb
			if d.Create {
				err = addSheet(wb, d.Sheet)
			}
		}
	}
	if err != nil {
		closeAll()
		return nil, nil, nil, fmt.Errorf("open destination: %w", err)
	}
	return src, dst, closeAll, nil
}

func openTable(ctx context.Context, job config.Job, plan expand.Plan, logger *zap.Logger, closers *[]func()) (sheet.Writer, error) {
	d := job.Destination
	repo, err := newRepositoryFn(ctx, storage.Config{
		Kind:    d.Kind,
		DSN:     d.DSN,
		Table:   d.Sheet,
		Columns: d.TableColumns,
	})
	if err != nil {
		return nil, err
	}
	*closers = append(*closers, repo.Close)

	if d.Create && !job.Runtime.DryRun {
		if err := ensureTableFn(ctx, d.Kind, repo, ddl.TextTable(d.Sheet, d.TableColumns)); err != nil {
			return nil, err
		}
		logger.Info("run: table ensured", zap.String("table", d.Sheet), zap.String("kind", d.Kind))
	}

	return table.New(repo, table.Options{
		Table:         d.Sheet,
		Columns:       d.TableColumns,
		SourceCols:    plan.DestColumns[:],
		BatchSize:     job.Runtime.BatchSize,
		Logger:        logger,
		CreatePending: d.Create && job.Runtime.DryRun,
	})
}

func sameWorkbook(s config.Source, d config.Destination) bool {
	if d.Kind != s.Kind || datasource.IsRemote(s.Path) {
		return false
	}
	return d.Path == "" || filepath.Clean(d.Path) == filepath.Clean(s.Path)
}

type sheetAdder interface {
	AddSheet(name string) error
}

func addSheet(w sheet.Writer, name string) error {
	a, ok := w.(sheetAdder)
	if !ok {
		return nil
	}
	if err := a.AddSheet(name); err != nil {
		return fmt.Errorf("create sheet %q: %w", name, err)
	}
	return nil
}

func closeWorkbook(logger *zap.Logger, role string, wb sheet.Workbook) {
	if err := wb.Close(); err != nil {
		logger.Warn("run: close workbook", zap.String("role", role), zap.Error(err))
	}
}

func comma(s string) rune {
	if s == "" {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r
}
