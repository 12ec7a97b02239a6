// Package all wires all built-in storage backends into the storage factory.
//
// This package exists purely for side effects: importing it (even as a blank
// import) runs the init functions of each backend, which register their
// factories and DDL bootstrappers with the storage package:
//
//   - "postgres" (rowexpand/internal/storage/postgres)
//   - "mssql"    (rowexpand/internal/storage/mssql)
//   - "sqlite"   (rowexpand/internal/storage/sqlite)
//   - "mysql"    (rowexpand/internal/storage/mysql)
//
// Typical usage (in cmd/rowexpand):
//
//	import _ "rowexpand/internal/storage/all"
//
//	repo, err := storage.New(ctx, storage.Config{Kind: "sqlite", DSN: "out.db", Table: "jan_2026", Columns: cols})
package all

import (
	_ "rowexpand/internal/storage/mssql"
	_ "rowexpand/internal/storage/mysql"
	_ "rowexpand/internal/storage/postgres"
	_ "rowexpand/internal/storage/sqlite"
)
