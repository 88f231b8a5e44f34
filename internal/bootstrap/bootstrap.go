// Package bootstrap implements the Bootstrap / Target Creator (C8):
// creating a new rollup target table, its indexes, and registering the
// matching RollupConfig row.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/anilpraneeth/time-series-rollup/internal/model"
	"github.com/anilpraneeth/time-series-rollup/internal/pgstore"
	"github.com/anilpraneeth/time-series-rollup/internal/schema"
)

// Store is the slice of pgstore.Store bootstrap needs.
type Store interface {
	ExecRaw(ctx context.Context, sql string, args ...any) (int64, error)
	InsertConfig(ctx context.Context, c model.RollupConfig) (int64, error)
	IngestStats(ctx context.Context, sourceTable string) (sizeBytes int64, rowsLastDay int64, err error)
	ListActive(ctx context.Context) ([]model.RollupConfig, error)
}

// PartitionManager is the slice of partitionmgr.Client bootstrap needs.
type PartitionManager interface {
	CreateParent(ctx context.Context, table, controlColumn string, interval time.Duration, premake int) error
	SetRetention(ctx context.Context, table string, retention time.Duration, keepTable, infinite bool) error
	RunMaintenance(ctx context.Context) error
}

// Bootstrapper drives CreateRollupTable and MaintainTimeseriesTables.
type Bootstrapper struct {
	store     Store
	inspector *schema.Inspector
	partMgr   PartitionManager
}

func New(store Store, inspector *schema.Inspector, partMgr PartitionManager) *Bootstrapper {
	return &Bootstrapper{store: store, inspector: inspector, partMgr: partMgr}
}

// Params is the input to CreateRollupTable.
type Params struct {
	SourceTable      string
	TargetSchema     string
	TargetName       string
	RollupInterval   time.Duration
	LookBackWindow   time.Duration
	RetentionPeriod  time.Duration
	ProcessingWindow time.Duration
	InitialStatus    model.LeaseStatus
	IsActive         bool
}

const chunkPremake = 4

// CreateRollupTable implements the six-step onboarding sequence in §4.8.
func (b *Bootstrapper) CreateRollupTable(ctx context.Context, p Params) (int64, error) {
	target := p.TargetSchema + "." + p.TargetName

	// Step 1: resolve active dimensions and eligible numeric/non-numeric
	// columns on the source (the target does not exist yet).
	classification, err := b.inspector.ClassifyForBootstrap(ctx, p.SourceTable)
	if err != nil {
		return 0, err
	}
	srcCols, err := b.inspector.Columns(ctx, p.SourceTable)
	if err != nil {
		return 0, err
	}
	byName := make(map[string]model.Column, len(srcCols))
	for _, c := range srcCols {
		byName[c.Name] = c
	}

	// Step 2 + 3: build the column list, primary key first.
	cols := []pgstore.ColumnDef{
		{Name: "timestamp", SQLType: "TIMESTAMP", Nullable: false, PrimaryKey: true},
	}
	for _, d := range classification.Dimensions {
		sqlType := sourceSQLType(byName[d])
		cols = append(cols, pgstore.ColumnDef{Name: d, SQLType: sqlType, Nullable: false, PrimaryKey: true})
	}

	var jsonCols []string
	for _, x := range classification.Numeric {
		sqlType := sourceSQLType(byName[x])
		cols = append(cols,
			pgstore.ColumnDef{Name: "min_" + x, SQLType: sqlType, Nullable: true},
			pgstore.ColumnDef{Name: "max_" + x, SQLType: sqlType, Nullable: true},
			pgstore.ColumnDef{Name: "avg_" + x, SQLType: "DOUBLE PRECISION", Nullable: true},
		)
	}
	for _, o := range classification.NonNumeric {
		col := byName[o]
		if col.Semantic == model.SemanticJSON {
			cols = append(cols, pgstore.ColumnDef{Name: o, SQLType: "JSONB[]", Nullable: true})
			jsonCols = append(jsonCols, o)
		} else {
			cols = append(cols, pgstore.ColumnDef{Name: o, SQLType: sourceSQLType(col), Nullable: true})
		}
	}

	cols = append(cols,
		pgstore.ColumnDef{Name: "rollup_count", SQLType: "INTEGER", Nullable: false, Default: "1"},
		pgstore.ColumnDef{Name: "last_updated_at", SQLType: "TIMESTAMP", Nullable: false, Default: "now()"},
	)

	createSQL, err := pgstore.BuildCreateTableSQL(pgstore.TableDef{FQN: target, Columns: cols})
	if err != nil {
		return 0, err
	}
	if _, err := b.store.ExecRaw(ctx, createSQL); err != nil {
		return 0, err
	}

	// Step 4: partition creation via the external partition manager.
	chunkInterval, err := b.optimizeChunkInterval(ctx, p.SourceTable)
	if err != nil {
		chunkInterval = 24 * time.Hour
	}
	if err := b.partMgr.CreateParent(ctx, target, "timestamp", chunkInterval, chunkPremake); err != nil {
		return 0, err
	}
	if err := b.partMgr.SetRetention(ctx, target, p.RetentionPeriod, false, true); err != nil {
		return 0, err
	}

	// Step 5: indexes.
	brin := pgstore.BuildIndexSQL(indexName(p.TargetName, "timestamp_brin"), target, []string{"timestamp"}, "brin", false)
	if _, err := b.store.ExecRaw(ctx, brin); err != nil {
		return 0, err
	}
	if len(classification.Dimensions) > 0 {
		compositeCols := append(append([]string{}, classification.Dimensions...), "timestamp")
		composite := pgstore.BuildIndexSQL(indexName(p.TargetName, "dims_ts_btree"), target, compositeCols, "btree", true)
		if _, err := b.store.ExecRaw(ctx, composite); err != nil {
			return 0, err
		}
	}
	for _, j := range jsonCols {
		gin := pgstore.BuildIndexSQL(indexName(p.TargetName, j+"_gin"), target, []string{j}, "gin", false)
		if _, err := b.store.ExecRaw(ctx, gin); err != nil {
			return 0, err
		}
	}

	// Step 6: register the config row.
	return b.store.InsertConfig(ctx, model.RollupConfig{
		SourceTable:       p.SourceTable,
		TargetTable:       target,
		IsActive:          p.IsActive,
		RollupInterval:    p.RollupInterval,
		LookBackWindow:    p.LookBackWindow,
		MaxLookBackWindow: p.LookBackWindow * 3,
		ProcessingWindow:  p.ProcessingWindow,
		ChunkInterval:     chunkInterval,
		RetentionPeriod:   p.RetentionPeriod,
		Status:            p.InitialStatus,
		MaxExecutionTime:  30 * time.Minute,
		AlertThreshold:    10 * time.Minute,
	})
}

// chunkSizeTarget is the target chunk footprint the heuristic aims for.
const chunkSizeTarget = 256 * 1024 * 1024 // 256 MiB

// optimizeChunkInterval implements the partition-sizing heuristic in §4.8:
// given current relation size, row count, and past-day ingest rate, choose
// the interval that fits chunkSizeTarget, rounded down to the nearest of
// {1h, 1d, 1w} (never below 1h), defaulting to 1 day if data is
// insufficient.
func (b *Bootstrapper) optimizeChunkInterval(ctx context.Context, sourceTable string) (time.Duration, error) {
	sizeBytes, rowsLastDay, err := b.store.IngestStats(ctx, sourceTable)
	if err != nil {
		return 0, err
	}
	if rowsLastDay <= 0 || sizeBytes <= 0 {
		return 24 * time.Hour, nil
	}

	bytesPerRow := float64(sizeBytes) / float64(rowsLastDay)
	if bytesPerRow <= 0 {
		return 24 * time.Hour, nil
	}
	rowsPerDay := float64(rowsLastDay)
	bytesPerDay := bytesPerRow * rowsPerDay
	if bytesPerDay <= 0 {
		return 24 * time.Hour, nil
	}

	daysPerChunk := float64(chunkSizeTarget) / bytesPerDay
	hoursPerChunk := daysPerChunk * 24

	switch {
	case hoursPerChunk >= 24*7:
		return 7 * 24 * time.Hour, nil
	case hoursPerChunk >= 24:
		return 24 * time.Hour, nil
	default:
		// Ingest so heavy that a chunk fills in under an hour still gets
		// the smallest allowed width.
		return time.Hour, nil
	}
}

// MaintainTimeseriesTables reconciles one target's chunk interval against
// the current ingest rate, then runs one partition-manager maintenance pass
// so newly-needed future partitions get created and retired ones get
// dropped or detached per retention.
func (b *Bootstrapper) MaintainTimeseriesTables(ctx context.Context, targetTable string, sourceTable string) error {
	newInterval, err := b.optimizeChunkInterval(ctx, sourceTable)
	if err != nil {
		return err
	}
	// Re-registering create_parent with a new interval only affects future
	// chunks in the reference partition manager; existing chunks keep their
	// original width.
	if err := b.partMgr.CreateParent(ctx, targetTable, "timestamp", newInterval, chunkPremake); err != nil {
		return err
	}
	return b.partMgr.RunMaintenance(ctx)
}

// MaintainAllTimeseriesTables runs MaintainTimeseriesTables for every active
// config's (target, source) pair. It is the daily unattended entry point the
// scheduler drives; the per-pair CLI command remains for operators who want
// to target one table.
func (b *Bootstrapper) MaintainAllTimeseriesTables(ctx context.Context) error {
	configs, err := b.store.ListActive(ctx)
	if err != nil {
		return err
	}
	var firstErr error
	for _, c := range configs {
		if err := b.MaintainTimeseriesTables(ctx, c.TargetTable, c.SourceTable); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("maintain %s: %w", c.TargetTable, err)
			}
		}
	}
	return firstErr
}

func sourceSQLType(c model.Column) string {
	if c.SQLType == "" {
		return "TEXT"
	}
	return c.SQLType
}

func indexName(target, suffix string) string {
	return fmt.Sprintf("idx_%s_%s", target, suffix)
}
