package ddl

// ColumnDef describes a single column in a table definition. It uses simple,
// database-agnostic fields.
//
// Fields:
//   - Name: logical column name (unquoted; quoting happens at render time)
//   - SQLType: target SQL type (e.g., TEXT, NVARCHAR(MAX))
//   - Nullable: whether NULL is allowed
//   - PrimaryKey: whether the column is part of the primary key
//   - Default: raw default expression (e.g., 'n/a', CURRENT_TIMESTAMP)
type ColumnDef struct {
	Name       string
	SQLType    string
	Nullable   bool
	PrimaryKey bool
	Default    string
}

// TableDef holds the fully-qualified table name (FQN) and an ordered list of
// columns. The FQN is expected in dotted form (e.g., "schema.table") and is
// quoted per segment by renderers.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}

// TextTable describes an expansion output table: every column holds the
// textual rendering of a spreadsheet cell, so all columns share one nullable
// type. The concrete type is chosen per dialect at render time.
func TextTable(fqn string, columns []string) TableDef {
	defs := make([]ColumnDef, 0, len(columns))
	for _, c := range columns {
		defs = append(defs, ColumnDef{Name: c, Nullable: true})
	}
	return TableDef{FQN: fqn, Columns: defs}
}
