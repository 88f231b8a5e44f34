package pgstore

import (
	"context"
	"time"

	"github.com/anilpraneeth/time-series-rollup/internal/model"
	"github.com/anilpraneeth/time-series-rollup/internal/rollerr"
)

// PartitionStats reads pg_catalog sizing for one qualified table plus, when
// the table is chunked by an external partition manager, the count and
// bounds of its child chunks (named "<table>_chunk_<n>" by convention).
func (s *Store) PartitionStats(ctx context.Context, qualifiedTable string) (model.PartitionStats, error) {
	sql := `SELECT
			pg_total_relation_size($1::regclass),
			pg_relation_size($1::regclass),
			pg_indexes_size($1::regclass),
			COALESCE(
				(SELECT reltuples::bigint FROM pg_class WHERE oid = $1::regclass), 0)`

	var totalSize, tableSize, indexSize, rowEstimate int64
	row := s.QueryRowRaw(ctx, sql, qualifiedTable)
	if err := row.Scan(&totalSize, &tableSize, &indexSize, &rowEstimate); err != nil {
		return model.PartitionStats{}, classifyPgError(rollerr.KindTransientStore, "partition stats", sql, err)
	}

	chunkSQL := `SELECT count(*),
			MIN(min_range_start), MAX(max_range_end)
		FROM timescaledb_information.chunks
		WHERE hypertable_name = $1`

	stats := model.PartitionStats{
		TableName:   qualifiedTable,
		TotalSize:   totalSize,
		TableSize:   tableSize,
		IndexSize:   indexSize,
		RowEstimate: rowEstimate,
	}

	_, table, ok := splitQualified(qualifiedTable)
	if !ok {
		return stats, nil
	}

	var chunkCount int
	var oldest, newest *time.Time
	crow := s.QueryRowRaw(ctx, chunkSQL, table)
	if err := crow.Scan(&chunkCount, &oldest, &newest); err == nil {
		stats.ChunkCount = chunkCount
		stats.OldestChunk = oldest
		stats.NewestChunk = newest
	}
	// A missing timescaledb_information view (a plain Postgres install) is
	// not an error worth surfacing here: partition chunking is optional.

	return stats, nil
}

// DetailedStats matches active configs against a LIKE pattern on
// source_table and returns the matching config rows; the Operations Monitor
// (C7) derives the health/performance projection from them.
func (s *Store) DetailedStats(ctx context.Context, pattern string) ([]model.RollupConfig, error) {
	// now and per-config alert thresholds are not needed here: Health() in
	// internal/monitor derives ALERT status from each config's own
	// AlertThreshold against its own StartedAt, using its own now.
	sql := `SELECT source_table FROM silver.rollup_config WHERE source_table LIKE $1 AND is_active = true`
	rows, err := s.QueryRaw(ctx, sql, pattern)
	if err != nil {
		return nil, classifyPgError(rollerr.KindTransientStore, "detailed stats source list", sql, err)
	}
	var sources []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			rows.Close()
			return nil, classifyPgError(rollerr.KindTransientStore, "scan source", sql, err)
		}
		sources = append(sources, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var out []model.RollupConfig
	for _, src := range sources {
		configSQL := `SELECT ` + configColumns + ` FROM silver.rollup_config WHERE source_table = $1 AND is_active = true`
		crows, err := s.QueryRaw(ctx, configSQL, src)
		if err != nil {
			return nil, classifyPgError(rollerr.KindTransientStore, "detailed stats config", configSQL, err)
		}
		for crows.Next() {
			c, err := scanConfig(crows)
			if err != nil {
				crows.Close()
				return nil, classifyPgError(rollerr.KindTransientStore, "scan detailed config", configSQL, err)
			}
			out = append(out, c)
		}
		crows.Close()
	}
	return out, nil
}
