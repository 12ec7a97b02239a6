// Package metrics provides a small, backend-agnostic abstraction for recording
// operational metrics from an expansion run.
//
//   - It exposes a narrow interface (Backend) focused on counters and timing
//     data (histograms).
//   - It provides a global, pluggable backend that defaults to a no-op
//     implementation, so metrics are always safe to call even when no real
//     backend is configured.
//   - Concrete systems (Prometheus Pushgateway, Datadog) live in subpackages.
package metrics

import "time"

// Metric names shared by all backends.
const (
	StepTotal       = "rowexpand_step_total"
	StepDuration    = "rowexpand_step_duration_seconds"
	CellsTotal      = "rowexpand_cells_total"
	OutputRowsTotal = "rowexpand_output_rows_total"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

// nopBackend is used by default so metrics are optional.
type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordStep measures latency and success/failure of one run step
// ("read", "expand", "write", ...).
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{
		"job":    job,
		"step":   step,
		"status": status,
	}
	backend.IncCounter(StepTotal, 1, lbls)
	backend.ObserveHistogram(StepDuration, d.Seconds(), lbls)
}

// RecordCells counts count cells by outcome. Kinds mirror the statistics
// block: "scanned", "positive", "skipped", "fractional".
func RecordCells(job, kind string, delta int) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(CellsTotal, float64(delta), Labels{
		"job":  job,
		"kind": kind,
	})
}

// RecordOutputRows counts rows generated for the destination.
func RecordOutputRows(job string, delta int) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(OutputRowsTotal, float64(delta), Labels{"job": job})
}
