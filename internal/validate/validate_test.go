package validate

import (
	"context"
	"testing"

	"github.com/anilpraneeth/time-series-rollup/internal/model"
)

type fakeStore struct {
	active     []model.RollupConfig
	exists     map[string]bool
	columns    map[string][]model.Column
	dimensions map[string][]model.DimensionConfig
}

func (f *fakeStore) ListActive(ctx context.Context) ([]model.RollupConfig, error) {
	return f.active, nil
}
func (f *fakeStore) TableExists(ctx context.Context, qualifiedTable string) (bool, error) {
	return f.exists[qualifiedTable], nil
}
func (f *fakeStore) Columns(ctx context.Context, qualifiedTable string) ([]model.Column, error) {
	return f.columns[qualifiedTable], nil
}
func (f *fakeStore) Dimensions(ctx context.Context, sourceTable string) ([]model.DimensionConfig, error) {
	return f.dimensions[sourceTable], nil
}

func TestValidateRollupConfig_MissingDimensionColumn(t *testing.T) {
	fs := &fakeStore{
		active: []model.RollupConfig{{SourceTable: "raw.metrics", TargetTable: "gold.metrics_1h"}},
		exists: map[string]bool{"gold.metrics_1h": true},
		columns: map[string][]model.Column{
			"raw.metrics":     {{Name: "timestamp", Semantic: model.SemanticTimestamp}, {Name: "region", Semantic: model.SemanticOther}},
			"gold.metrics_1h": {{Name: "timestamp", Semantic: model.SemanticTimestamp}},
		},
		dimensions: map[string][]model.DimensionConfig{
			"raw.metrics": {{SourceTable: "raw.metrics", DimensionColumn: "region", IsActive: true}},
		},
	}
	v := New(fs)
	results, err := v.ValidateRollupConfig(context.Background())
	if err != nil {
		t.Fatalf("ValidateRollupConfig() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
	r := results[0]
	if r.IsValid {
		t.Fatalf("IsValid = true, want false")
	}
	want := "Missing dimension columns in target table: region"
	if r.Message != want {
		t.Fatalf("Message = %q, want %q", r.Message, want)
	}
}

func TestValidateRollupConfig_MissingTargetTable(t *testing.T) {
	fs := &fakeStore{
		active: []model.RollupConfig{{SourceTable: "raw.metrics", TargetTable: "gold.metrics_1h"}},
		exists: map[string]bool{},
		columns: map[string][]model.Column{
			"raw.metrics": {{Name: "timestamp", Semantic: model.SemanticTimestamp}},
		},
	}
	v := New(fs)
	results, err := v.ValidateRollupConfig(context.Background())
	if err != nil {
		t.Fatalf("ValidateRollupConfig() error = %v", err)
	}
	if results[0].IsValid {
		t.Fatalf("IsValid = true, want false")
	}
	if results[0].Message != "Target table gold.metrics_1h does not exist" {
		t.Fatalf("Message = %q", results[0].Message)
	}
}

func TestValidateRollupConfig_MissingSourceTimestamp(t *testing.T) {
	fs := &fakeStore{
		active: []model.RollupConfig{{SourceTable: "raw.metrics", TargetTable: "gold.metrics_1h"}},
		exists: map[string]bool{"gold.metrics_1h": true},
		columns: map[string][]model.Column{
			"raw.metrics":     {{Name: "region", Semantic: model.SemanticOther}},
			"gold.metrics_1h": {},
		},
		dimensions: map[string][]model.DimensionConfig{},
	}
	v := New(fs)
	results, err := v.ValidateRollupConfig(context.Background())
	if err != nil {
		t.Fatalf("ValidateRollupConfig() error = %v", err)
	}
	if results[0].IsValid {
		t.Fatalf("IsValid = true, want false")
	}
	if results[0].Message != "Source table raw.metrics has no timestamp column" {
		t.Fatalf("Message = %q", results[0].Message)
	}
}

func TestValidateRollupConfig_Valid(t *testing.T) {
	fs := &fakeStore{
		active: []model.RollupConfig{{SourceTable: "raw.metrics", TargetTable: "gold.metrics_1h"}},
		exists: map[string]bool{"gold.metrics_1h": true},
		columns: map[string][]model.Column{
			"raw.metrics":     {{Name: "timestamp", Semantic: model.SemanticTimestamp}, {Name: "region", Semantic: model.SemanticOther}},
			"gold.metrics_1h": {{Name: "timestamp", Semantic: model.SemanticTimestamp}, {Name: "region", Semantic: model.SemanticOther}},
		},
		dimensions: map[string][]model.DimensionConfig{
			"raw.metrics": {{SourceTable: "raw.metrics", DimensionColumn: "region", IsActive: true}},
		},
	}
	v := New(fs)
	results, err := v.ValidateRollupConfig(context.Background())
	if err != nil {
		t.Fatalf("ValidateRollupConfig() error = %v", err)
	}
	if !results[0].IsValid {
		t.Fatalf("IsValid = false, want true, message = %q", results[0].Message)
	}
}
