// Package ddl defines a small, backend-agnostic model for SQL DDL and a
// renderer for simple CREATE TABLE statements.
//
// Dialect differences (identifier quoting, the default text type, how to make
// creation idempotent) are supplied by the backend through a Dialect value;
// everything else is shared.
package ddl

import (
	"fmt"
	"strings"
)

// Dialect captures what differs between SQL backends when creating a table.
type Dialect struct {
	// Name is used in error messages, e.g. "postgres".
	Name string
	// QuoteIdent quotes a single identifier segment.
	QuoteIdent func(string) string
	// TextType is used for columns whose SQLType is empty.
	TextType string
	// IfNotExists is emitted after CREATE TABLE when the dialect supports it.
	IfNotExists bool
	// Guard wraps the whole statement for dialects without IF NOT EXISTS,
	// e.g. SQL Server's IF OBJECT_ID(...) IS NULL. Optional.
	Guard func(fqn, stmt string) string
}

// QuoteFQN quotes each dotted segment of fqn with d.QuoteIdent.
func (d Dialect) QuoteFQN(fqn string) string {
	parts := strings.Split(fqn, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, d.QuoteIdent(p))
	}
	return strings.Join(out, ".")
}

// BuildCreateTableSQL renders t for dialect d:
//
//	CREATE TABLE [IF NOT EXISTS] "schema"."table" (
//	  "col1" TYPE [NOT NULL] [DEFAULT expr],
//	  ...,
//	  PRIMARY KEY ("pk1", ...)
//	);
//
// ColumnDef.Default is emitted as raw SQL.
func BuildCreateTableSQL(t TableDef, d Dialect) (string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("%s ddl: table FQN must not be empty", d.Name)
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("%s ddl: at least one column is required", d.Name)
	}
	if d.QuoteIdent == nil {
		return "", fmt.Errorf("%s ddl: dialect has no identifier quoting", d.Name)
	}

	cols := make([]string, 0, len(t.Columns)+1)
	var pks []string
	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("%s ddl: column with empty name in table %s", d.Name, fqn)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			typ = d.TextType
		}
		if typ == "" {
			return "", fmt.Errorf("%s ddl: column %s missing SQLType", d.Name, name)
		}

		var sb strings.Builder
		sb.WriteString(d.QuoteIdent(name))
		sb.WriteByte(' ')
		sb.WriteString(typ)
		if !c.Nullable {
			sb.WriteString(" NOT NULL")
		}
		if def := strings.TrimSpace(c.Default); def != "" {
			sb.WriteString(" DEFAULT ")
			sb.WriteString(def)
		}
		cols = append(cols, sb.String())

		if c.PrimaryKey {
			pks = append(pks, d.QuoteIdent(name))
		}
	}
	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}

	head := "CREATE TABLE "
	if d.IfNotExists {
		head += "IF NOT EXISTS "
	}
	stmt := fmt.Sprintf("%s%s (\n  %s\n);", head, d.QuoteFQN(fqn), strings.Join(cols, ",\n  "))
	if d.Guard != nil {
		stmt = d.Guard(fqn, stmt)
	}
	return stmt, nil
}
