// Package planner implements the Plan Builder (C2): given a config, a
// window, and a column classification, it synthesises the single
// parameterised INSERT ... SELECT ... GROUP BY ... ON CONFLICT statement
// that performs one rollup run.
package planner

import (
	"fmt"
	"strings"
	"time"
)

// pgIdent and pgFQN mirror the quoting helpers used throughout the store
// layer; the planner renders SQL text but never executes it, so it keeps
// its own copy rather than importing pgstore.
func pgIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

func pgFQN(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = pgIdent(p)
	}
	return strings.Join(parts, ".")
}

// Classification is the subset of schema.Classification the planner needs;
// declared locally to avoid an import cycle back into internal/schema.
type Classification struct {
	Dimensions []string
	Numeric    []string
	NonNumeric []string
	// JSONColumns lists the non-numeric columns that are JSON/JSONB and
	// therefore aggregated with array_agg instead of MODE() WITHIN GROUP.
	JSONColumns []string
}

// Plan is a fully rendered, ready-to-execute statement plus its bind args.
type Plan struct {
	SQL  string
	Args []any
	// Degenerate is true when the plan has no dimensions and no aggregated
	// columns at all — a plan-degeneracy error per the error taxonomy.
	Degenerate bool
}

// Build synthesises the INSERT ... SELECT ... GROUP BY ... ON CONFLICT
// statement for one (source, target, interval, window, classification).
// Column ordering in INSERT and SELECT is positional and matches: dims,
// then min/max/avg per numeric column, then array_agg/MODE per non-numeric
// column, then rollup_count and last_updated_at.
func Build(sourceTable, targetTable string, interval time.Duration, start, end time.Time, c Classification) Plan {
	isJSON := make(map[string]bool, len(c.JSONColumns))
	for _, j := range c.JSONColumns {
		isJSON[j] = true
	}

	insertCols := make([]string, 0, len(c.Dimensions)+3*len(c.Numeric)+len(c.NonNumeric)+3)
	selectExprs := make([]string, 0, cap(insertCols))
	groupBy := []string{fmt.Sprintf("time_bucket($1, %s)", pgIdent("timestamp"))}

	insertCols = append(insertCols, pgIdent("timestamp"))
	selectExprs = append(selectExprs, fmt.Sprintf("time_bucket($1, %s)", pgIdent("timestamp")))

	for _, d := range c.Dimensions {
		insertCols = append(insertCols, pgIdent(d))
		selectExprs = append(selectExprs, pgIdent(d))
		groupBy = append(groupBy, pgIdent(d))
	}

	for _, x := range c.Numeric {
		insertCols = append(insertCols, pgIdent(minCol(x)), pgIdent(maxCol(x)), pgIdent(avgCol(x)))
		selectExprs = append(selectExprs,
			fmt.Sprintf("MIN(%s)", pgIdent(x)),
			fmt.Sprintf("MAX(%s)", pgIdent(x)),
			fmt.Sprintf("AVG(%s)", pgIdent(x)),
		)
	}

	for _, o := range c.NonNumeric {
		insertCols = append(insertCols, pgIdent(o))
		if isJSON[o] {
			selectExprs = append(selectExprs, fmt.Sprintf("array_agg(%s)", pgIdent(o)))
		} else {
			selectExprs = append(selectExprs, fmt.Sprintf("MODE() WITHIN GROUP (ORDER BY %s)", pgIdent(o)))
		}
	}

	insertCols = append(insertCols, pgIdent("rollup_count"), pgIdent("last_updated_at"))
	selectExprs = append(selectExprs, "COUNT(*)", "NOW()")

	// Degenerate: no dimensions AND no aggregated (numeric or non-numeric)
	// columns at all — only rollup_count/last_updated_at would be projected.
	degenerate := len(c.Dimensions) == 0 && len(c.Numeric) == 0 && len(c.NonNumeric) == 0

	conflictTarget := []string{pgIdent("timestamp")}
	conflictTarget = append(conflictTarget, mapIdent(c.Dimensions)...)

	updateCols := make([]string, 0, len(c.Numeric)*3+len(c.NonNumeric)+2)
	for _, x := range c.Numeric {
		updateCols = append(updateCols, minCol(x), maxCol(x), avgCol(x))
	}
	updateCols = append(updateCols, c.NonNumeric...)
	// With no aggregated columns there is nothing to update on conflict, so
	// the statement falls back to DO NOTHING.
	if len(updateCols) > 0 {
		updateCols = append(updateCols, "rollup_count", "last_updated_at")
	}

	var conflictAction string
	if len(updateCols) == 0 {
		conflictAction = "DO NOTHING"
	} else {
		sets := make([]string, len(updateCols))
		for i, col := range updateCols {
			sets[i] = fmt.Sprintf("%s = EXCLUDED.%s", pgIdent(col), pgIdent(col))
		}
		conflictAction = "DO UPDATE SET " + strings.Join(sets, ", ")
	}

	sql := fmt.Sprintf(
		"INSERT INTO %s (%s)\nSELECT %s\nFROM %s\nWHERE %s >= $2 AND %s < $3\nGROUP BY %s\nON CONFLICT (%s) %s",
		pgFQN(targetTable),
		strings.Join(insertCols, ", "),
		strings.Join(selectExprs, ", "),
		pgFQN(sourceTable),
		pgIdent("timestamp"), pgIdent("timestamp"),
		strings.Join(groupBy, ", "),
		strings.Join(conflictTarget, ", "),
		conflictAction,
	)

	return Plan{
		SQL:        sql,
		Args:       []any{interval, start, end},
		Degenerate: degenerate,
	}
}

func minCol(x string) string { return "min_" + x }
func maxCol(x string) string { return "max_" + x }
func avgCol(x string) string { return "avg_" + x }

func mapIdent(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = pgIdent(c)
	}
	return out
}
