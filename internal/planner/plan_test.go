package planner

import (
	"strings"
	"testing"
	"time"
)

func TestBuild_HappyPathWithDimensionAndNumeric(t *testing.T) {
	c := Classification{
		Dimensions: []string{"tenant"},
		Numeric:    []string{"value"},
	}
	p := Build("raw.metrics", "gold.metrics_1h", time.Hour, time.Time{}, time.Time{}, c)

	if p.Degenerate {
		t.Fatalf("plan unexpectedly marked degenerate")
	}
	if !strings.Contains(p.SQL, `"min_value", "max_value", "avg_value"`) {
		t.Fatalf("SQL missing min/max/avg columns: %s", p.SQL)
	}
	if !strings.Contains(p.SQL, `ON CONFLICT ("timestamp", "tenant")`) {
		t.Fatalf("SQL missing composite conflict target: %s", p.SQL)
	}
	if !strings.Contains(p.SQL, `GROUP BY time_bucket($1, "timestamp"), "tenant"`) {
		t.Fatalf("SQL missing group by clause: %s", p.SQL)
	}
	if len(p.Args) != 3 {
		t.Fatalf("Args = %v, want 3 positional binds", p.Args)
	}
}

func TestBuild_NoDimensionsCollapsesConflictTarget(t *testing.T) {
	c := Classification{Numeric: []string{"value"}}
	p := Build("raw.metrics", "gold.metrics_1h", time.Minute, time.Time{}, time.Time{}, c)

	if !strings.Contains(p.SQL, `ON CONFLICT ("timestamp")`) {
		t.Fatalf("SQL should collapse to timestamp-only conflict target: %s", p.SQL)
	}
}

func TestBuild_NoUpdateColumnsUsesDoNothing(t *testing.T) {
	c := Classification{}
	p := Build("raw.metrics", "gold.metrics_1h", time.Minute, time.Time{}, time.Time{}, c)

	if !strings.Contains(p.SQL, "DO NOTHING") {
		t.Fatalf("expected DO NOTHING when there are no non-key columns: %s", p.SQL)
	}
	if !p.Degenerate {
		t.Fatalf("plan with no dimensions and no aggregates should be degenerate")
	}
}

func TestBuild_JSONColumnUsesArrayAgg(t *testing.T) {
	c := Classification{
		NonNumeric:  []string{"payload"},
		JSONColumns: []string{"payload"},
	}
	p := Build("raw.metrics", "gold.metrics_1h", time.Minute, time.Time{}, time.Time{}, c)

	if !strings.Contains(p.SQL, `array_agg("payload")`) {
		t.Fatalf("expected array_agg for JSON column: %s", p.SQL)
	}
}

func TestBuild_OtherNonNumericUsesMode(t *testing.T) {
	c := Classification{NonNumeric: []string{"status"}}
	p := Build("raw.metrics", "gold.metrics_1h", time.Minute, time.Time{}, time.Time{}, c)

	if !strings.Contains(p.SQL, `MODE() WITHIN GROUP (ORDER BY "status")`) {
		t.Fatalf("expected MODE() for non-numeric non-JSON column: %s", p.SQL)
	}
}
