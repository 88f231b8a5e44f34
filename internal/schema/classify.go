// Package schema implements the Schema Inspector (C1): it turns raw column
// introspection of a source and target table into the dimension, numeric,
// and non-numeric sets the Plan Builder (C2) and Bootstrap (C8) need, per
// the classification rules in the component design.
package schema

import (
	"context"
	"strings"

	"github.com/anilpraneeth/time-series-rollup/internal/model"
)

// Inspector wraps a column-introspection source and caches results for the
// lifetime of the Inspector; entries are never invalidated. rollupctl builds
// one Inspector per command, so under "serve" the cache lasts for the whole
// process.
type Inspector struct {
	columnsOf   func(ctx context.Context, qualifiedTable string) ([]model.Column, error)
	dimensionsOf func(ctx context.Context, sourceTable string) ([]model.DimensionConfig, error)

	cache map[string][]model.Column
}

// New constructs an Inspector. columnsOf and dimensionsOf are narrow seams
// over the store so this package has no direct Postgres dependency and can
// be exercised with fakes.
func New(
	columnsOf func(ctx context.Context, qualifiedTable string) ([]model.Column, error),
	dimensionsOf func(ctx context.Context, sourceTable string) ([]model.DimensionConfig, error),
) *Inspector {
	return &Inspector{columnsOf: columnsOf, dimensionsOf: dimensionsOf, cache: make(map[string][]model.Column)}
}

// Columns returns the cached column list for a qualified table, fetching it
// on first use.
func (in *Inspector) Columns(ctx context.Context, qualifiedTable string) ([]model.Column, error) {
	if cols, ok := in.cache[qualifiedTable]; ok {
		return cols, nil
	}
	cols, err := in.columnsOf(ctx, qualifiedTable)
	if err != nil {
		return nil, err
	}
	in.cache[qualifiedTable] = cols
	return cols, nil
}

// reservedNumeric is the set of columns never eligible as an aggregated
// numeric measure regardless of type.
var reservedNumeric = map[string]bool{
	"timestamp":       true,
	"last_updated_at": true,
	"rollup_count":    true,
}

// reservedNonNumeric mirrors reservedNumeric for the non-numeric set.
var reservedNonNumeric = map[string]bool{
	"last_updated_at": true,
	"rollup_count":    true,
}

var reservedPrefixes = []string{"min_", "max_", "avg_"}

func hasReservedPrefix(name string) bool {
	for _, p := range reservedPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// Classification is the derived per-(config,run) view the Plan Builder
// consumes: the active dimension columns (in stable, shared order), the
// numeric measures to aggregate, and the other non-numeric columns to carry
// through via array_agg/MODE.
type Classification struct {
	Dimensions []string
	Numeric    []string
	NonNumeric []string
	// JSONColumns holds the subset of NonNumeric that are JSON/JSONB on the
	// source, so the Plan Builder aggregates them with array_agg instead of
	// MODE() WITHIN GROUP.
	JSONColumns []string
	// MissingDimensions holds dimensions declared on the source but not
	// found there; these are logged, not fatal.
	MissingDimensions []string
}

// Classify computes the Classification for one (source, target) pair. It
// requires the target's columns too, because a numeric measure is only
// projected when the target already carries all three of min_x/max_x/avg_x,
// and a non-numeric column is only projected if it also exists on target.
func (in *Inspector) Classify(ctx context.Context, sourceTable, targetTable string) (Classification, error) {
	srcCols, err := in.Columns(ctx, sourceTable)
	if err != nil {
		return Classification{}, err
	}

	// Target may not exist yet (Bootstrap is building it); an empty column
	// list is a valid input, not an error, in that case.
	tgtCols, _ := in.Columns(ctx, targetTable)
	tgtSet := make(map[string]bool, len(tgtCols))
	for _, c := range tgtCols {
		tgtSet[c.Name] = true
	}

	declared, err := in.dimensionsOf(ctx, sourceTable)
	if err != nil {
		return Classification{}, err
	}

	srcSet := make(map[string]model.Column, len(srcCols))
	for _, c := range srcCols {
		srcSet[c.Name] = c
	}

	var dims []string
	var missing []string
	dimSet := make(map[string]bool)
	for _, d := range declared {
		if !d.IsActive {
			continue
		}
		if _, ok := srcSet[d.DimensionColumn]; !ok {
			missing = append(missing, d.DimensionColumn)
			continue
		}
		dims = append(dims, d.DimensionColumn)
		dimSet[d.DimensionColumn] = true
	}

	var numeric []string
	var nonNumeric []string
	var jsonCols []string
	for _, c := range srcCols {
		if dimSet[c.Name] {
			continue
		}
		switch c.Semantic {
		case model.SemanticTimestamp:
			continue
		case model.SemanticNumeric:
			if reservedNumeric[c.Name] || hasReservedPrefix(c.Name) {
				continue
			}
			if tgtSet[minCol(c.Name)] && tgtSet[maxCol(c.Name)] && tgtSet[avgCol(c.Name)] {
				numeric = append(numeric, c.Name)
			}
			// else: silently skipped, per the projection rule.
		default:
			if reservedNonNumeric[c.Name] {
				continue
			}
			if len(tgtCols) == 0 || tgtSet[c.Name] {
				nonNumeric = append(nonNumeric, c.Name)
				if c.Semantic == model.SemanticJSON {
					jsonCols = append(jsonCols, c.Name)
				}
			}
		}
	}

	return Classification{
		Dimensions:        dims,
		Numeric:           numeric,
		NonNumeric:        nonNumeric,
		JSONColumns:       jsonCols,
		MissingDimensions: missing,
	}, nil
}

func minCol(x string) string { return "min_" + x }
func maxCol(x string) string { return "max_" + x }
func avgCol(x string) string { return "avg_" + x }

// ClassifyForBootstrap computes the same dimension/numeric/non-numeric sets
// as Classify, but for a target table that does not exist yet: every
// eligible numeric and non-numeric source column is included unconditionally,
// since Bootstrap (C8) is about to create columns for all of them.
func (in *Inspector) ClassifyForBootstrap(ctx context.Context, sourceTable string) (Classification, error) {
	srcCols, err := in.Columns(ctx, sourceTable)
	if err != nil {
		return Classification{}, err
	}

	declared, err := in.dimensionsOf(ctx, sourceTable)
	if err != nil {
		return Classification{}, err
	}

	srcSet := make(map[string]model.Column, len(srcCols))
	for _, c := range srcCols {
		srcSet[c.Name] = c
	}

	var dims []string
	var missing []string
	dimSet := make(map[string]bool)
	for _, d := range declared {
		if !d.IsActive {
			continue
		}
		if _, ok := srcSet[d.DimensionColumn]; !ok {
			missing = append(missing, d.DimensionColumn)
			continue
		}
		dims = append(dims, d.DimensionColumn)
		dimSet[d.DimensionColumn] = true
	}

	var numeric []string
	var nonNumeric []string
	var jsonCols []string
	for _, c := range srcCols {
		if dimSet[c.Name] {
			continue
		}
		switch c.Semantic {
		case model.SemanticTimestamp:
			continue
		case model.SemanticNumeric:
			if reservedNumeric[c.Name] || hasReservedPrefix(c.Name) {
				continue
			}
			numeric = append(numeric, c.Name)
		default:
			if reservedNonNumeric[c.Name] {
				continue
			}
			nonNumeric = append(nonNumeric, c.Name)
			if c.Semantic == model.SemanticJSON {
				jsonCols = append(jsonCols, c.Name)
			}
		}
	}

	return Classification{
		Dimensions:        dims,
		Numeric:           numeric,
		NonNumeric:        nonNumeric,
		JSONColumns:       jsonCols,
		MissingDimensions: missing,
	}, nil
}
