// Package report turns the result of an expansion run into operator-facing
// output: a statistics block in the log, a reconciliation against an expected
// total, a final summary message and a fingerprint of the rendered grid.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/zeebo/xxh3"
	"go.uber.org/zap"

	"rowexpand/internal/expand"
	"rowexpand/internal/sheet"
)

// Reconciliation compares the run against an externally known total, such as
// a SUMIF over the count columns.
type Reconciliation struct {
	Expected float64 `json:"expected"`
	// SumMissing is Expected minus the sum of positive counts.
	SumMissing float64 `json:"sum_missing"`
	// RowsMissing is Expected minus the number of generated rows.
	RowsMissing float64 `json:"rows_missing"`
}

// Discrepancy reconciles stats against expected. ok is false when no expected
// total is configured.
func Discrepancy(stats expand.Stats, expected *float64) (rec Reconciliation, ok bool) {
	if expected == nil {
		return Reconciliation{}, false
	}
	return Reconciliation{
		Expected:    *expected,
		SumMissing:  *expected - stats.CountSum,
		RowsMissing: *expected - float64(stats.RowsGenerated),
	}, true
}

// LogStatistics writes the statistics block, the capped fractional values and
// the capped unexpected skipped cells.
func LogStatistics(logger *zap.Logger, stats expand.Stats, expected *float64) {
	if logger == nil {
		return
	}
	fields := []zap.Field{
		zap.Int("rows_scanned", stats.RowsScanned),
		zap.Int("cells_processed", stats.CellsScanned),
		zap.Int("cells_positive", stats.PositiveCells),
		zap.Float64("count_sum", stats.CountSum),
		zap.Int("rows_generated", stats.RowsGenerated),
		zap.Int("skipped_total", stats.SkippedTotal),
		zap.Int("fractional_total", stats.FractionalTotal),
	}
	if rec, ok := Discrepancy(stats, expected); ok {
		fields = append(fields,
			zap.Float64("expected_total", rec.Expected),
			zap.Float64("sum_missing", rec.SumMissing),
			zap.Float64("rows_missing", rec.RowsMissing),
		)
	}
	logger.Info("report: statistics", fields...)

	if len(stats.Fractional) > 0 {
		logger.Warn("report: fractional counts are truncated",
			zap.Int("shown", len(stats.Fractional)),
			zap.Int("total", stats.FractionalTotal))
		for _, a := range stats.Fractional {
			logger.Warn("report: fractional count",
				zap.Int("row", a.Row),
				zap.String("column", a.Column),
				zap.String("value", sheet.Text(a.Value)))
		}
	}
	if len(stats.Skipped) > 0 {
		logger.Warn("report: unexpected skipped cells",
			zap.Int("shown", len(stats.Skipped)),
			zap.Int("total", stats.SkippedTotal))
		for _, a := range stats.Skipped {
			logger.Warn("report: skipped cell",
				zap.Int("row", a.Row),
				zap.String("column", a.Column),
				zap.String("value", sheet.Text(a.Value)),
				zap.String("type", a.Type))
		}
	}
}

// Summary is the message shown to the operator when a run completes.
func Summary(dest string, res *expand.Result, expected *float64) string {
	var stats expand.Stats
	generated := 0
	if res != nil {
		stats = res.Stats
		generated = len(res.Outputs)
	}

	var b strings.Builder
	b.WriteString("Process complete!\n\n")
	fmt.Fprintf(&b, "Generated %d rows in %q sheet.\n\n", generated, dest)
	fmt.Fprintf(&b, "Cells processed: %d\n", stats.CellsScanned)
	fmt.Fprintf(&b, "Cells > 0: %d\n", stats.PositiveCells)
	fmt.Fprintf(&b, "Sum of values: %s\n", num(stats.CountSum))
	if rec, ok := Discrepancy(stats, expected); ok {
		fmt.Fprintf(&b, "Expected (SUMIF): %s\n", num(rec.Expected))
		fmt.Fprintf(&b, "Discrepancy: %s\n", num(rec.SumMissing))
	}
	if stats.FractionalTotal > 0 || stats.SkippedTotal > 0 {
		fmt.Fprintf(&b, "Fractional counts: %d\nUnexpected skipped cells: %d\n", stats.FractionalTotal, stats.SkippedTotal)
	}
	b.WriteString("\nSee the run log for the detailed breakdown.")
	return b.String()
}

// Fingerprint hashes the rendered grid with xxh3. Two runs over the same
// source produce the same fingerprint.
func Fingerprint(g sheet.Grid) string {
	h := xxh3.New()
	for _, row := range g {
		for _, c := range row {
			_, _ = h.WriteString(sheet.Text(c))
			_, _ = h.Write([]byte{0x1f})
		}
		_, _ = h.Write([]byte{0x1e})
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

// Document is the machine-readable form of a run report.
type Document struct {
	Job             string          `json:"job"`
	Destination     string          `json:"destination"`
	DryRun          bool            `json:"dry_run"`
	RowsGenerated   int             `json:"rows_generated"`
	RowsWritten     int             `json:"rows_written"`
	Cleared         bool            `json:"cleared"`
	RowsScanned     int             `json:"rows_scanned"`
	CellsProcessed  int             `json:"cells_processed"`
	CellsPositive   int             `json:"cells_positive"`
	CountSum        float64         `json:"count_sum"`
	SkippedTotal    int             `json:"skipped_total"`
	FractionalTotal int             `json:"fractional_total"`
	Skipped         []Cell          `json:"skipped,omitempty"`
	Fractional      []Cell          `json:"fractional,omitempty"`
	Reconciliation  *Reconciliation `json:"reconciliation,omitempty"`
	Range           string          `json:"range,omitempty"`
	Fingerprint     string          `json:"fingerprint"`
}

// Cell is one anomaly in a Document.
type Cell struct {
	Row    int    `json:"row"`
	Column string `json:"column"`
	Value  string `json:"value"`
	Type   string `json:"type"`
}

// Build assembles the Document for a run.
func Build(job, dest string, dryRun bool, res *expand.Result, expected *float64) Document {
	doc := Document{Job: job, Destination: dest, DryRun: dryRun}
	if res == nil {
		doc.Fingerprint = Fingerprint(nil)
		return doc
	}
	st := res.Stats
	doc.RowsGenerated = len(res.Outputs)
	doc.RowsWritten = res.Written
	doc.Cleared = res.Cleared
	doc.RowsScanned = st.RowsScanned
	doc.CellsProcessed = st.CellsScanned
	doc.CellsPositive = st.PositiveCells
	doc.CountSum = st.CountSum
	doc.SkippedTotal = st.SkippedTotal
	doc.FractionalTotal = st.FractionalTotal
	doc.Skipped = cells(st.Skipped)
	doc.Fractional = cells(st.Fractional)
	if rec, ok := Discrepancy(st, expected); ok {
		doc.Reconciliation = &rec
	}
	if res.Range.Rows > 0 {
		doc.Range = res.Range.String()
	}
	doc.Fingerprint = Fingerprint(res.Grid)
	return doc
}

// WriteJSON writes doc as indented JSON.
func WriteJSON(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("report: encode json: %w", err)
	}
	return nil
}

func cells(as []expand.Anomaly) []Cell {
	if len(as) == 0 {
		return nil
	}
	out := make([]Cell, len(as))
	for i, a := range as {
		out[i] = Cell{Row: a.Row, Column: a.Column, Value: sheet.Text(a.Value), Type: a.Type}
	}
	return out
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
