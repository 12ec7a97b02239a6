// Package sqlite implements a SQLite-backed storage.Repository.
package sqlite

// Config holds SQLite repository configuration derived from storage.Config.
type Config struct {
	// DSN is a SQLite connection string or file path, e.g.:
	//   "file:rowexpand.db?_pragma=busy_timeout(5000)"
	//   "rowexpand.db" (interpreted by the driver)
	DSN string

	// Table is the destination table name, e.g. "jan_2026". A "main." prefix
	// is accepted and quoted per segment.
	Table string

	// Columns is the ordered list of destination columns.
	Columns []string
}
