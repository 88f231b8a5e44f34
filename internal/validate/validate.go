// Package validate implements ValidateRollupConfig: a read-only correctness
// sweep over every active config, reporting mismatches between what a
// config declares and what the catalog actually contains, without touching
// any state.
package validate

import (
	"context"
	"fmt"
	"strings"

	"github.com/anilpraneeth/time-series-rollup/internal/model"
)

// Store is the slice of pgstore.Store validation needs.
type Store interface {
	ListActive(ctx context.Context) ([]model.RollupConfig, error)
	TableExists(ctx context.Context, qualifiedTable string) (bool, error)
	Columns(ctx context.Context, qualifiedTable string) ([]model.Column, error)
	Dimensions(ctx context.Context, sourceTable string) ([]model.DimensionConfig, error)
}

// Validator drives ValidateRollupConfig.
type Validator struct {
	store Store
}

func New(store Store) *Validator {
	return &Validator{store: store}
}

// ValidateRollupConfig checks every active config for three conditions: the
// target table exists, the source table has a timestamp column, and every
// declared dimension column exists on the target. It never mutates state;
// an invalid config is reported, not corrected.
func (v *Validator) ValidateRollupConfig(ctx context.Context) ([]model.ValidationResult, error) {
	configs, err := v.store.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]model.ValidationResult, 0, len(configs))
	for _, c := range configs {
		out = append(out, v.validateOne(ctx, c))
	}
	return out, nil
}

func (v *Validator) validateOne(ctx context.Context, c model.RollupConfig) model.ValidationResult {
	result := model.ValidationResult{SourceTable: c.SourceTable, TargetTable: c.TargetTable, IsValid: true}
	var problems []string

	targetExists, err := v.store.TableExists(ctx, c.TargetTable)
	if err != nil {
		result.IsValid = false
		result.Message = fmt.Sprintf("could not verify target table: %v", err)
		return result
	}
	if !targetExists {
		problems = append(problems, fmt.Sprintf("Target table %s does not exist", c.TargetTable))
	}

	sourceCols, err := v.store.Columns(ctx, c.SourceTable)
	if err != nil {
		result.IsValid = false
		result.Message = fmt.Sprintf("could not inspect source table: %v", err)
		return result
	}
	if !hasTimestampColumn(sourceCols) {
		problems = append(problems, fmt.Sprintf("Source table %s has no timestamp column", c.SourceTable))
	}

	if targetExists {
		dims, err := v.store.Dimensions(ctx, c.SourceTable)
		if err != nil {
			result.IsValid = false
			result.Message = fmt.Sprintf("could not list dimensions: %v", err)
			return result
		}
		targetCols, err := v.store.Columns(ctx, c.TargetTable)
		if err != nil {
			result.IsValid = false
			result.Message = fmt.Sprintf("could not inspect target table: %v", err)
			return result
		}
		if missing := missingDimensions(dims, targetCols); len(missing) > 0 {
			problems = append(problems, fmt.Sprintf("Missing dimension columns in target table: %s", strings.Join(missing, ", ")))
		}
	}

	if len(problems) > 0 {
		result.IsValid = false
		result.Message = strings.Join(problems, "; ")
	}
	return result
}

func hasTimestampColumn(cols []model.Column) bool {
	for _, c := range cols {
		if c.Semantic == model.SemanticTimestamp {
			return true
		}
	}
	return false
}

func missingDimensions(dims []model.DimensionConfig, targetCols []model.Column) []string {
	present := make(map[string]bool, len(targetCols))
	for _, c := range targetCols {
		present[c.Name] = true
	}
	var missing []string
	for _, d := range dims {
		if !present[d.DimensionColumn] {
			missing = append(missing, d.DimensionColumn)
		}
	}
	return missing
}
