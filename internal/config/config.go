// Package config defines the job file for rowexpand: where the compact
// source rows live, where the expanded rows go, and the ambient runtime,
// metrics and logging settings.
//
// Job files are YAML (default) or JSON (by .json extension). Fields absent
// from the file keep the values from Default, which reproduce the
// "Ideal Order Quantity" -> "jan_2026" layout.
//
// Example (trimmed):
//
//	job: jan_2026
//	source:
//	  kind: xlsx
//	  path: orders.xlsx
//	  sheet: Ideal Order Quantity
//	destination:
//	  kind: sqlite
//	  dsn: out.db
//	  sheet: jan_2026
//	  create: true
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"rowexpand/internal/expand"
)

// Job is the top-level object decoded from a job file.
type Job struct {
	// Job names the run for metrics labels and logs.
	Job         string      `yaml:"job" json:"job"`
	Source      Source      `yaml:"source" json:"source"`
	Destination Destination `yaml:"destination" json:"destination"`
	Report      Report      `yaml:"report" json:"report"`
	Runtime     Runtime     `yaml:"runtime" json:"runtime"`
	Metrics     Metrics     `yaml:"metrics" json:"metrics"`
	Log         Log         `yaml:"log" json:"log"`
}

// Source locates the compact rows.
type Source struct {
	// Kind selects the workbook backend: "xlsx" or "csv".
	Kind string `yaml:"kind" json:"kind"`
	// Path is the workbook file (xlsx) or directory of <sheet>.csv files.
	// An http(s) URL is downloaded before the run (xlsx only).
	Path string `yaml:"path" json:"path"`
	// Fetch tunes the download of a remote Path.
	Fetch Fetch `yaml:"fetch" json:"fetch"`
	// Encoding is the text encoding of csv sources (e.g. "windows-1252").
	Encoding string `yaml:"encoding" json:"encoding"`
	// Comma is the csv delimiter; empty means ",".
	Comma string `yaml:"comma" json:"comma"`

	Sheet     string `yaml:"sheet" json:"sheet"`
	HeaderRow int    `yaml:"header_row" json:"header_row"`
	Rows      Rows   `yaml:"rows" json:"rows"`
	// Attributes are the column letters of B, C, D, E, F in that order.
	Attributes []string `yaml:"attributes" json:"attributes"`
	// Counts bind size keys to count columns, in expansion order.
	Counts []CountColumn `yaml:"counts" json:"counts"`
}

// Fetch configures downloads of remote source workbooks.
type Fetch struct {
	TimeoutSeconds     int  `yaml:"timeout_seconds" json:"timeout_seconds"`
	MaxRetries         int  `yaml:"max_retries" json:"max_retries"`
	InsecureSkipVerify bool `yaml:"insecure_skip_verify" json:"insecure_skip_verify"`
}

// Rows is an inclusive data row range.
type Rows struct {
	Start int `yaml:"start" json:"start"`
	End   int `yaml:"end" json:"end"`
}

// CountColumn binds a size key to a column letter.
type CountColumn struct {
	Key    string `yaml:"key" json:"key"`
	Column string `yaml:"column" json:"column"`
}

// Destination describes where expanded rows are written.
type Destination struct {
	// Kind is a workbook backend ("xlsx", "csv") or a SQL backend
	// ("postgres", "mssql", "sqlite", "mysql").
	Kind string `yaml:"kind" json:"kind"`
	// Path is the workbook for workbook kinds; empty means the source workbook.
	Path     string `yaml:"path" json:"path"`
	Encoding string `yaml:"encoding" json:"encoding"`
	Comma    string `yaml:"comma" json:"comma"`
	// DSN is the connection string for SQL kinds.
	DSN string `yaml:"dsn" json:"dsn"`

	// Sheet is the destination tab, or the (optionally schema-qualified)
	// table for SQL kinds.
	Sheet string `yaml:"sheet" json:"sheet"`
	// Columns are the letters receiving output fields B, D, E, C, F and the
	// size label, in that order.
	Columns  []string `yaml:"columns" json:"columns"`
	StartRow int      `yaml:"start_row" json:"start_row"`
	// TableColumns name the SQL columns matching Columns.
	TableColumns []string `yaml:"table_columns" json:"table_columns"`

	// Create creates a missing workbook or table.
	Create bool `yaml:"create" json:"create"`
	// ClearExisting removes rows left by a previous, longer run before writing.
	ClearExisting bool `yaml:"clear_existing" json:"clear_existing"`
}

// Report configures the operator summary.
type Report struct {
	// ExpectedTotal is the sum the operator expects (e.g. from a SUMIF);
	// when set, discrepancies are reported against it.
	ExpectedTotal *float64 `yaml:"expected_total" json:"expected_total"`
	// Output is "text" (default) or "json".
	Output string `yaml:"output" json:"output"`
}

// Runtime tunes the run.
type Runtime struct {
	DryRun        bool `yaml:"dry_run" json:"dry_run"`
	BatchSize     int  `yaml:"batch_size" json:"batch_size"`
	ProgressEvery int  `yaml:"progress_every" json:"progress_every"`
	AnomalyLimit  int  `yaml:"anomaly_limit" json:"anomaly_limit"`
	// MaxCount caps the copies one count cell may produce; larger counts are
	// skipped and reported.
	MaxCount int `yaml:"max_count" json:"max_count"`
}

// Metrics selects a metrics backend.
type Metrics struct {
	// Backend is "none", "pushgateway" or "datadog".
	Backend        string `yaml:"backend" json:"backend"`
	PushgatewayURL string `yaml:"pushgateway_url" json:"pushgateway_url"`
	DogStatsDAddr  string `yaml:"dogstatsd_addr" json:"dogstatsd_addr"`
}

// Log configures the zap logger.
type Log struct {
	Level string `yaml:"level" json:"level"`
	// Format is "json" (default) or "console".
	Format string `yaml:"format" json:"format"`
}

// Environment variables that override file settings.
const (
	EnvLogLevel       = "ROWEXPAND_LOG_LEVEL"
	EnvDestinationDSN = "ROWEXPAND_DESTINATION_DSN"
	EnvMetricsBackend = "METRICS_BACKEND"
	EnvPushgatewayURL = "PUSHGATEWAY_URL"
	EnvDogStatsDAddr  = "DOGSTATSD_ADDR"
)

// DefaultTableColumns are the SQL column names for the default layout.
var DefaultTableColumns = []string{"attr_b", "attr_d", "attr_e", "attr_c", "attr_f", "size_label"}

// Default returns the job for the January 2026 order workbook layout.
func Default() Job {
	return Job{
		Job: "jan_2026",
		Source: Source{
			Kind:       "xlsx",
			Fetch:      Fetch{TimeoutSeconds: 60, MaxRetries: 3},
			Sheet:      "Ideal Order Quantity",
			HeaderRow:  2,
			Rows:       Rows{Start: 3, End: 224},
			Attributes: []string{"B", "C", "D", "E", "F"},
			Counts: []CountColumn{
				{Key: "XS", Column: "G"},
				{Key: "S", Column: "H"},
				{Key: "M", Column: "I"},
				{Key: "L", Column: "J"},
				{Key: "XL", Column: "K"},
			},
		},
		Destination: Destination{
			Kind:         "xlsx",
			Sheet:        "jan_2026",
			Columns:      []string{"B", "C", "D", "E", "G", "H"},
			StartRow:     2,
			TableColumns: append([]string(nil), DefaultTableColumns...),
		},
		Report:  Report{Output: "text"},
		Runtime: Runtime{BatchSize: 500, ProgressEvery: 50, AnomalyLimit: 20, MaxCount: 1_000_000},
		Metrics: Metrics{Backend: "none"},
		Log:     Log{Level: "info", Format: "json"},
	}
}

// Load reads path over Default and applies environment overrides.
func Load(path string) (Job, error) {
	job := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return job, fmt.Errorf("read config: %w", err)
	}
	if err := Decode(b, filepath.Ext(path), &job); err != nil {
		return job, fmt.Errorf("decode config %s: %w", path, err)
	}
	job.ApplyEnv(os.Getenv)
	return job, nil
}

// Decode unmarshals b into job: JSON for ".json", YAML otherwise.
func Decode(b []byte, ext string, job *Job) error {
	if strings.EqualFold(ext, ".json") {
		return json.Unmarshal(b, job)
	}
	return yaml.Unmarshal(b, job)
}

// ApplyEnv overrides settings from non-empty environment variables.
func (j *Job) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvLogLevel); v != "" {
		j.Log.Level = v
	}
	if v := getenv(EnvDestinationDSN); v != "" {
		j.Destination.DSN = v
	}
	if v := getenv(EnvMetricsBackend); v != "" {
		j.Metrics.Backend = v
	}
	if v := getenv(EnvPushgatewayURL); v != "" {
		j.Metrics.PushgatewayURL = v
	}
	if v := getenv(EnvDogStatsDAddr); v != "" {
		j.Metrics.DogStatsDAddr = v
	}
}

// IsWorkbookKind reports whether kind is a workbook backend.
func IsWorkbookKind(kind string) bool {
	return kind == "xlsx" || kind == "csv"
}

// IsSQLKind reports whether kind is a SQL backend.
func IsSQLKind(kind string) bool {
	switch kind {
	case "postgres", "mssql", "sqlite", "mysql":
		return true
	}
	return false
}

// ColumnNumber converts a column letter such as "G" or "aa" to its 1-based
// number.
func ColumnNumber(letter string) (int, error) {
	n, err := excelize.ColumnNameToNumber(strings.TrimSpace(letter))
	if err != nil {
		return 0, fmt.Errorf("column %q: %w", letter, err)
	}
	return n, nil
}

// Plan builds the immutable expansion plan.
func (j Job) Plan() (expand.Plan, error) {
	var p expand.Plan
	s, d := j.Source, j.Destination

	if len(s.Attributes) != 5 {
		return p, fmt.Errorf("source.attributes: want 5 columns (B, C, D, E, F), got %d", len(s.Attributes))
	}
	if len(s.Counts) != 5 {
		return p, fmt.Errorf("source.counts: want 5 count columns, got %d", len(s.Counts))
	}
	if len(d.Columns) != 6 {
		return p, fmt.Errorf("destination.columns: want 6 columns, got %d", len(d.Columns))
	}

	p.SourceSheet = s.Sheet
	p.DestSheet = d.Sheet
	p.HeaderRow = s.HeaderRow
	p.Rows = expand.RowSpan{Start: s.Rows.Start, End: s.Rows.End}
	p.DestStartRow = d.StartRow

	for i, l := range s.Attributes {
		n, err := ColumnNumber(l)
		if err != nil {
			return p, fmt.Errorf("source.attributes[%d]: %w", i, err)
		}
		p.Source.Attributes[i] = n
	}
	for i, cc := range s.Counts {
		n, err := ColumnNumber(cc.Column)
		if err != nil {
			return p, fmt.Errorf("source.counts[%d].column: %w", i, err)
		}
		p.Source.Counts[i] = expand.CountColumn{Key: expand.SizeKey(strings.TrimSpace(cc.Key)), Column: n}
	}
	for i, l := range d.Columns {
		n, err := ColumnNumber(l)
		if err != nil {
			return p, fmt.Errorf("destination.columns[%d]: %w", i, err)
		}
		p.DestColumns[i] = n
	}
	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}
