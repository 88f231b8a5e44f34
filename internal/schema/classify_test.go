package schema

import (
	"context"
	"testing"

	"github.com/anilpraneeth/time-series-rollup/internal/model"
)

func fakeColumns(tables map[string][]model.Column) func(context.Context, string) ([]model.Column, error) {
	return func(_ context.Context, table string) ([]model.Column, error) {
		return tables[table], nil
	}
}

func fakeDimensions(dims map[string][]model.DimensionConfig) func(context.Context, string) ([]model.DimensionConfig, error) {
	return func(_ context.Context, table string) ([]model.DimensionConfig, error) {
		return dims[table], nil
	}
}

func TestClassify_HappyPath(t *testing.T) {
	src := []model.Column{
		{Name: "timestamp", Semantic: model.SemanticTimestamp},
		{Name: "tenant", Semantic: model.SemanticOther},
		{Name: "value", Semantic: model.SemanticNumeric},
		{Name: "payload", Semantic: model.SemanticJSON},
	}
	tgt := []model.Column{
		{Name: "timestamp", Semantic: model.SemanticTimestamp},
		{Name: "tenant", Semantic: model.SemanticOther},
		{Name: "min_value", Semantic: model.SemanticNumeric},
		{Name: "max_value", Semantic: model.SemanticNumeric},
		{Name: "avg_value", Semantic: model.SemanticNumeric},
		{Name: "payload", Semantic: model.SemanticJSON},
	}

	in := New(
		fakeColumns(map[string][]model.Column{"raw.metrics": src, "gold.metrics_1h": tgt}),
		fakeDimensions(map[string][]model.DimensionConfig{
			"raw.metrics": {{SourceTable: "raw.metrics", DimensionColumn: "tenant", IsActive: true}},
		}),
	)

	c, err := in.Classify(context.Background(), "raw.metrics", "gold.metrics_1h")
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if len(c.Dimensions) != 1 || c.Dimensions[0] != "tenant" {
		t.Fatalf("Dimensions = %v", c.Dimensions)
	}
	if len(c.Numeric) != 1 || c.Numeric[0] != "value" {
		t.Fatalf("Numeric = %v", c.Numeric)
	}
	if len(c.NonNumeric) != 1 || c.NonNumeric[0] != "payload" {
		t.Fatalf("NonNumeric = %v", c.NonNumeric)
	}
	if len(c.JSONColumns) != 1 || c.JSONColumns[0] != "payload" {
		t.Fatalf("JSONColumns = %v, want [payload]", c.JSONColumns)
	}
}

func TestClassify_NumericSkippedWithoutTripletOnTarget(t *testing.T) {
	src := []model.Column{
		{Name: "timestamp", Semantic: model.SemanticTimestamp},
		{Name: "value", Semantic: model.SemanticNumeric},
	}
	tgt := []model.Column{
		{Name: "timestamp", Semantic: model.SemanticTimestamp},
		// min_value/max_value/avg_value not present.
	}

	in := New(
		fakeColumns(map[string][]model.Column{"raw.metrics": src, "gold.metrics_1h": tgt}),
		fakeDimensions(nil),
	)

	c, err := in.Classify(context.Background(), "raw.metrics", "gold.metrics_1h")
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if len(c.Numeric) != 0 {
		t.Fatalf("Numeric = %v, want empty", c.Numeric)
	}
}

func TestClassify_MissingDeclaredDimensionIsReported(t *testing.T) {
	src := []model.Column{{Name: "timestamp", Semantic: model.SemanticTimestamp}}
	in := New(
		fakeColumns(map[string][]model.Column{"raw.metrics": src}),
		fakeDimensions(map[string][]model.DimensionConfig{
			"raw.metrics": {{SourceTable: "raw.metrics", DimensionColumn: "region", IsActive: true}},
		}),
	)

	c, err := in.Classify(context.Background(), "raw.metrics", "gold.metrics_1h")
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if len(c.Dimensions) != 0 {
		t.Fatalf("Dimensions = %v, want empty", c.Dimensions)
	}
	if len(c.MissingDimensions) != 1 || c.MissingDimensions[0] != "region" {
		t.Fatalf("MissingDimensions = %v", c.MissingDimensions)
	}
}

func TestClassifyForBootstrap_IncludesEverythingEligible(t *testing.T) {
	src := []model.Column{
		{Name: "timestamp", Semantic: model.SemanticTimestamp},
		{Name: "tenant", Semantic: model.SemanticOther},
		{Name: "value", Semantic: model.SemanticNumeric},
	}
	in := New(
		fakeColumns(map[string][]model.Column{"raw.metrics": src}),
		fakeDimensions(map[string][]model.DimensionConfig{
			"raw.metrics": {{SourceTable: "raw.metrics", DimensionColumn: "tenant", IsActive: true}},
		}),
	)

	c, err := in.ClassifyForBootstrap(context.Background(), "raw.metrics")
	if err != nil {
		t.Fatalf("ClassifyForBootstrap() error = %v", err)
	}
	if len(c.Numeric) != 1 || c.Numeric[0] != "value" {
		t.Fatalf("Numeric = %v", c.Numeric)
	}
	if len(c.Dimensions) != 1 || c.Dimensions[0] != "tenant" {
		t.Fatalf("Dimensions = %v", c.Dimensions)
	}
}

func TestInspector_ColumnsCached(t *testing.T) {
	calls := 0
	columnsOf := func(_ context.Context, table string) ([]model.Column, error) {
		calls++
		return []model.Column{{Name: "timestamp", Semantic: model.SemanticTimestamp}}, nil
	}
	in := New(columnsOf, fakeDimensions(nil))

	if _, err := in.Columns(context.Background(), "raw.metrics"); err != nil {
		t.Fatalf("Columns() error = %v", err)
	}
	if _, err := in.Columns(context.Background(), "raw.metrics"); err != nil {
		t.Fatalf("Columns() error = %v", err)
	}
	if calls != 1 {
		t.Fatalf("columnsOf called %d times, want 1 (cached)", calls)
	}
}
