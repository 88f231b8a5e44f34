package pgstore

import (
	"fmt"
	"strings"
)

// TableDef and ColumnDef model a target rollup table for BuildCreateTableSQL.
// Unlike the plan-builder's column lists, identifiers here are quoted at
// render time, not by the caller.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}

type ColumnDef struct {
	Name       string
	SQLType    string
	Nullable   bool
	PrimaryKey bool
	Default    string
}

// BuildCreateTableSQL renders a CREATE TABLE IF NOT EXISTS statement from a
// TableDef, quoting every identifier and collecting PrimaryKey columns into
// a trailing composite PRIMARY KEY clause.
func BuildCreateTableSQL(t TableDef) (string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("pgstore: table FQN must not be empty")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("pgstore: at least one column is required")
	}

	cols := make([]string, 0, len(t.Columns)+1)
	pks := make([]string, 0, len(t.Columns))

	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("pgstore: column with empty name in table %s", fqn)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return "", fmt.Errorf("pgstore: column %s missing SQLType", name)
		}

		var sb strings.Builder
		sb.WriteString(pgIdent(name))
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
			pks = append(pks, pgIdent(name))
		}
	}

	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n);", pgFQN(fqn), strings.Join(cols, ",\n  ")), nil
}

// BuildIndexSQL renders a CREATE INDEX IF NOT EXISTS statement.
func BuildIndexSQL(indexName, tableFQN string, columns []string, using string, desc bool) string {
	colExprs := make([]string, len(columns))
	for i, c := range columns {
		expr := pgIdent(c)
		if desc && i == len(columns)-1 {
			expr += " DESC"
		}
		colExprs[i] = expr
	}
	usingClause := ""
	if using != "" {
		usingClause = "USING " + using + " "
	}
	return fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s %s(%s);",
		pgIdent(indexName), pgFQN(tableFQN), usingClause, strings.Join(colExprs, ", "))
}
