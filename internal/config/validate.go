// This file adds a lightweight linter for Job values. It performs static
// checks over a decoded Job and returns a list of issues (errors and
// warnings) that the CLI surfaces before running.
package config

import (
	"fmt"
	"strings"

	"rowexpand/internal/datasource"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced to users but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding. Path is a dotted path into
// the job file (e.g. "destination.dsn", "source.counts[2].column").
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue has SeverityError.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ValidateJob lints j without mutating it.
func ValidateJob(j Job) []Issue {
	var issues []Issue
	add := func(sev IssueSeverity, path, format string, args ...any) {
		issues = append(issues, Issue{Severity: sev, Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(j.Job) == "" {
		add(SeverityError, "job", "job must not be empty; it is used for metrics labeling and identifying runs")
	}

	validateSource(j.Source, add)
	validateDestination(j, add)

	if j.Report.ExpectedTotal != nil && *j.Report.ExpectedTotal < 0 {
		add(SeverityWarning, "report.expected_total", "expected total %v is negative", *j.Report.ExpectedTotal)
	}
	switch j.Report.Output {
	case "", "text", "json":
	default:
		add(SeverityError, "report.output", "unknown output %q; use text or json", j.Report.Output)
	}

	if j.Runtime.BatchSize <= 0 {
		add(SeverityError, "runtime.batch_size", "batch_size must be > 0")
	}
	if j.Runtime.ProgressEvery < 0 {
		add(SeverityError, "runtime.progress_every", "progress_every must be >= 0")
	}
	if j.Runtime.AnomalyLimit < 0 {
		add(SeverityError, "runtime.anomaly_limit", "anomaly_limit must be >= 0")
	}
	if j.Runtime.MaxCount < 0 {
		add(SeverityError, "runtime.max_count", "max_count must be >= 0")
	}

	switch j.Metrics.Backend {
	case "", "none":
	case "pushgateway":
		if strings.TrimSpace(j.Metrics.PushgatewayURL) == "" {
			add(SeverityWarning, "metrics.pushgateway_url", "empty; http://localhost:9091 will be used")
		}
	case "datadog":
		if strings.TrimSpace(j.Metrics.DogStatsDAddr) == "" {
			add(SeverityWarning, "metrics.dogstatsd_addr", "empty; 127.0.0.1:8125 will be used")
		}
	default:
		add(SeverityWarning, "metrics.backend", "unknown backend %q; metrics will be disabled", j.Metrics.Backend)
	}

	switch strings.ToLower(j.Log.Format) {
	case "", "json", "console":
	default:
		add(SeverityWarning, "log.format", "unknown format %q; json will be used", j.Log.Format)
	}

	// Structural checks that need column numbers are delegated to the plan.
	if !HasErrors(issues) {
		if _, err := j.Plan(); err != nil {
			add(SeverityError, "plan", "%v", err)
		}
	}
	return issues
}

func validateSource(s Source, add func(IssueSeverity, string, string, ...any)) {
	if !IsWorkbookKind(s.Kind) {
		add(SeverityError, "source.kind", "unknown source kind %q; use xlsx or csv", s.Kind)
	}
	if strings.TrimSpace(s.Path) == "" {
		add(SeverityError, "source.path", "source requires a non-empty path")
	}
	if datasource.IsRemote(s.Path) {
		if s.Kind != "xlsx" {
			add(SeverityError, "source.path", "only xlsx sources can be downloaded from a URL")
		}
		if s.Fetch.TimeoutSeconds < 0 || s.Fetch.MaxRetries < 0 {
			add(SeverityError, "source.fetch", "timeout_seconds and max_retries must be >= 0")
		}
	}
	if strings.TrimSpace(s.Sheet) == "" {
		add(SeverityError, "source.sheet", "source sheet must not be empty")
	}
	if s.HeaderRow < 1 {
		add(SeverityError, "source.header_row", "header_row must be >= 1")
	}
	if s.Rows.Start < 1 || s.Rows.End < s.Rows.Start {
		add(SeverityError, "source.rows", "invalid row range %d..%d", s.Rows.Start, s.Rows.End)
	} else if s.HeaderRow >= s.Rows.Start && s.HeaderRow <= s.Rows.End {
		add(SeverityWarning, "source.header_row", "header row %d lies inside the data rows", s.HeaderRow)
	}
	if s.Kind != "csv" && (s.Encoding != "" || s.Comma != "") {
		add(SeverityWarning, "source.encoding", "encoding and comma only apply to csv sources")
	}
	if len([]rune(s.Comma)) > 1 {
		add(SeverityError, "source.comma", "comma must be a single character")
	}

	if len(s.Attributes) != 5 {
		add(SeverityError, "source.attributes", "want 5 columns (B, C, D, E, F), got %d", len(s.Attributes))
	}
	for i, l := range s.Attributes {
		if _, err := ColumnNumber(l); err != nil {
			add(SeverityError, fmt.Sprintf("source.attributes[%d]", i), "%v", err)
		}
	}
	if len(s.Counts) != 5 {
		add(SeverityError, "source.counts", "want 5 count columns, got %d", len(s.Counts))
	}
	for i, cc := range s.Counts {
		if strings.TrimSpace(cc.Key) == "" {
			add(SeverityError, fmt.Sprintf("source.counts[%d].key", i), "key must not be empty")
		}
		if _, err := ColumnNumber(cc.Column); err != nil {
			add(SeverityError, fmt.Sprintf("source.counts[%d].column", i), "%v", err)
		}
	}
}

func validateDestination(j Job, add func(IssueSeverity, string, string, ...any)) {
	d := j.Destination
	switch {
	case IsWorkbookKind(d.Kind):
		if d.DSN != "" {
			add(SeverityWarning, "destination.dsn", "dsn is ignored for workbook destinations")
		}
		if d.Path == "" && d.Kind != j.Source.Kind {
			add(SeverityError, "destination.path", "path is required when the destination kind differs from the source kind")
		} else if d.Path == "" && datasource.IsRemote(j.Source.Path) {
			add(SeverityError, "destination.path", "path is required when the source is downloaded from a URL")
		}
	case IsSQLKind(d.Kind):
		if strings.TrimSpace(d.DSN) == "" {
			add(SeverityError, "destination.dsn", "%s destination requires a dsn (or %s)", d.Kind, EnvDestinationDSN)
		}
		if len(d.TableColumns) != len(d.Columns) {
			add(SeverityError, "destination.table_columns", "want %d table columns to match destination.columns, got %d", len(d.Columns), len(d.TableColumns))
		}
		for i, c := range d.TableColumns {
			if strings.TrimSpace(c) == "" {
				add(SeverityError, fmt.Sprintf("destination.table_columns[%d]", i), "column name must not be empty")
			}
		}
		if d.StartRow != 0 && d.StartRow != 2 {
			add(SeverityWarning, "destination.start_row", "start_row has no effect on SQL destinations")
		}
	default:
		add(SeverityError, "destination.kind", "unknown destination kind %q", d.Kind)
	}

	if strings.TrimSpace(d.Sheet) == "" {
		add(SeverityError, "destination.sheet", "destination sheet must not be empty")
	}
	if d.StartRow < 1 {
		add(SeverityError, "destination.start_row", "start_row must be >= 1")
	}
	if len(d.Columns) != 6 {
		add(SeverityError, "destination.columns", "want 6 columns, got %d", len(d.Columns))
	}
	for i, l := range d.Columns {
		if _, err := ColumnNumber(l); err != nil {
			add(SeverityError, fmt.Sprintf("destination.columns[%d]", i), "%v", err)
		}
	}
	if d.ClearExisting && j.Runtime.DryRun {
		add(SeverityWarning, "destination.clear_existing", "ignored during dry runs")
	}
}
