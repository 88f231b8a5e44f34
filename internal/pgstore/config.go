package pgstore

import (
	"context"
	"fmt"
	"time"

	"github.com/anilpraneeth/time-series-rollup/internal/model"
	"github.com/anilpraneeth/time-series-rollup/internal/rollerr"

	"github.com/jackc/pgx/v5"
)

const configColumns = `id, source_table, target_table, is_active,
	rollup_interval, look_back_window, max_look_back_window, processing_window,
	chunk_interval, retention_period, last_processed_time,
	status, worker_id, started_at,
	avg_processing_time, last_processed_rows, last_optimization_time,
	retry_count, last_error_time, next_retry_time,
	max_execution_time, alert_threshold`

func scanConfig(row pgx.Row) (model.RollupConfig, error) {
	var c model.RollupConfig
	err := row.Scan(
		&c.ID, &c.SourceTable, &c.TargetTable, &c.IsActive,
		&c.RollupInterval, &c.LookBackWindow, &c.MaxLookBackWindow, &c.ProcessingWindow,
		&c.ChunkInterval, &c.RetentionPeriod, &c.LastProcessedTime,
		&c.Status, &c.WorkerID, &c.StartedAt,
		&c.AvgProcessingTime, &c.LastProcessedRows, &c.LastOptimizationTime,
		&c.RetryCount, &c.LastErrorTime, &c.NextRetryTime,
		&c.MaxExecutionTime, &c.AlertThreshold,
	)
	return c, err
}

// ListCandidates returns configs eligible for PerformRollup, in claim order:
// active, matching the optional source-table filter, with a fresh or stale
// lease, oldest progress first.
func (s *Store) ListCandidates(ctx context.Context, now time.Time, specificTable string) ([]model.RollupConfig, error) {
	sql := fmt.Sprintf(`SELECT %s FROM silver.rollup_config
		WHERE is_active = true
		  AND ($2 = '' OR source_table = $2)
		  AND ( status = 'idle'
		        OR (status = 'processing' AND started_at < $1 - alert_threshold) )
		ORDER BY last_processed_time NULLS FIRST`, configColumns)

	rows, err := s.QueryRaw(ctx, sql, now, specificTable)
	if err != nil {
		return nil, classifyPgError(rollerr.KindTransientStore, "list candidates", sql, err)
	}
	defer rows.Close()

	var out []model.RollupConfig
	for rows.Next() {
		c, err := scanConfig(rows)
		if err != nil {
			return nil, classifyPgError(rollerr.KindTransientStore, "scan candidate", sql, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListRetryable returns configs eligible for HandleRetries: failed, active,
// and due.
func (s *Store) ListRetryable(ctx context.Context, now time.Time) ([]model.RollupConfig, error) {
	sql := fmt.Sprintf(`SELECT %s FROM silver.rollup_config
		WHERE retry_count > 0 AND next_retry_time <= $1 AND is_active = true`, configColumns)

	rows, err := s.QueryRaw(ctx, sql, now)
	if err != nil {
		return nil, classifyPgError(rollerr.KindTransientStore, "list retryable", sql, err)
	}
	defer rows.Close()

	var out []model.RollupConfig
	for rows.Next() {
		c, err := scanConfig(rows)
		if err != nil {
			return nil, classifyPgError(rollerr.KindTransientStore, "scan retryable", sql, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListActive returns every active config regardless of lease state, used by
// ValidateRollupConfig which reports on configuration correctness rather
// than claim eligibility.
func (s *Store) ListActive(ctx context.Context) ([]model.RollupConfig, error) {
	sql := fmt.Sprintf(`SELECT %s FROM silver.rollup_config WHERE is_active = true ORDER BY source_table`, configColumns)

	rows, err := s.QueryRaw(ctx, sql)
	if err != nil {
		return nil, classifyPgError(rollerr.KindTransientStore, "list active configs", sql, err)
	}
	defer rows.Close()

	var out []model.RollupConfig
	for rows.Next() {
		c, err := scanConfig(rows)
		if err != nil {
			return nil, classifyPgError(rollerr.KindTransientStore, "scan active config", sql, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetByID fetches one config row.
func (s *Store) GetByID(ctx context.Context, id int64) (model.RollupConfig, error) {
	sql := fmt.Sprintf(`SELECT %s FROM silver.rollup_config WHERE id = $1`, configColumns)
	row := s.QueryRowRaw(ctx, sql, id)
	c, err := scanConfig(row)
	if err != nil {
		return model.RollupConfig{}, classifyPgError(rollerr.KindTransientStore, "get config", sql, err)
	}
	return c, nil
}

// Claim performs the optimistic lease acquisition described in the lease
// manager: it succeeds either on an idle row or a stale (abandoned)
// processing row, in a single conditional UPDATE ... RETURNING.
// A nil, nil result means another worker holds a fresh lease.
func (s *Store) Claim(ctx context.Context, id int64, workerID string, now time.Time) (*model.RollupConfig, error) {
	sql := fmt.Sprintf(`UPDATE silver.rollup_config
		SET status = 'processing', worker_id = $2, started_at = $3
		WHERE id = $1
		  AND ( status = 'idle'
		        OR (status = 'processing' AND started_at < $3 - alert_threshold) )
		RETURNING %s`, configColumns)

	row := s.QueryRowRaw(ctx, sql, id, workerID, now)
	c, err := scanConfig(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, classifyPgError(rollerr.KindTransientStore, "claim config", sql, err)
	}
	return &c, nil
}

// ReleaseSuccess commits a successful window: advances progress, clears the
// lease and retry state, and updates the adaptive window/EWMA fields.
// Zero rows affected means the lease was revoked mid-run (a lost lease); the
// caller must not treat that as a normal success.
func (s *Store) ReleaseSuccess(ctx context.Context, id int64, workerID string, endTime time.Time, rows int64, newProcessingWindow, newAvgProcessingTime time.Duration) (bool, error) {
	sql := `UPDATE silver.rollup_config
		SET status = 'idle', worker_id = NULL, started_at = NULL,
		    last_processed_time = $3,
		    last_processed_rows = $4,
		    processing_window = $5,
		    avg_processing_time = $6,
		    retry_count = 0, last_error_time = NULL, next_retry_time = NULL,
		    last_optimization_time = now()
		WHERE id = $1 AND worker_id = $2`

	affected, err := s.ExecRaw(ctx, sql, id, workerID, endTime, rows, newProcessingWindow, newAvgProcessingTime)
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ReleaseEmpty releases a lease with no work done (start >= end); progress
// and retry state are untouched.
func (s *Store) ReleaseEmpty(ctx context.Context, id int64, workerID string) (bool, error) {
	sql := `UPDATE silver.rollup_config
		SET status = 'idle', worker_id = NULL, started_at = NULL
		WHERE id = $1 AND worker_id = $2`
	affected, err := s.ExecRaw(ctx, sql, id, workerID)
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ReleaseFailure releases a lease after an error and schedules the next
// retry with exponential backoff.
func (s *Store) ReleaseFailure(ctx context.Context, id int64, workerID string, now time.Time, newRetryCount int, nextRetry time.Time) (bool, error) {
	sql := `UPDATE silver.rollup_config
		SET status = 'idle', worker_id = NULL, started_at = NULL,
		    retry_count = $3, last_error_time = $4, next_retry_time = $5
		WHERE id = $1 AND worker_id = $2`
	affected, err := s.ExecRaw(ctx, sql, id, workerID, newRetryCount, now, nextRetry)
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ClearForRetry flips a due, failed config back to idle so PerformRollup
// will pick it up in the same HandleRetries pass.
func (s *Store) ClearForRetry(ctx context.Context, id int64) error {
	sql := `UPDATE silver.rollup_config SET status = 'idle' WHERE id = $1 AND status != 'processing'`
	_, err := s.ExecRaw(ctx, sql, id)
	return err
}

// Dimensions returns the active dimension columns declared for a source
// table, ordered by dimension_column so that Plan Builder (C2) and
// Bootstrap (C8) agree on column order without needing to coordinate
// out of band.
func (s *Store) Dimensions(ctx context.Context, sourceTable string) ([]model.DimensionConfig, error) {
	sql := `SELECT source_table, dimension_column, is_active
		FROM silver.dimension_config
		WHERE source_table = $1 AND is_active = true
		ORDER BY dimension_column`

	rows, err := s.QueryRaw(ctx, sql, sourceTable)
	if err != nil {
		return nil, classifyPgError(rollerr.KindTransientStore, "list dimensions", sql, err)
	}
	defer rows.Close()

	var out []model.DimensionConfig
	for rows.Next() {
		var d model.DimensionConfig
		if err := rows.Scan(&d.SourceTable, &d.DimensionColumn, &d.IsActive); err != nil {
			return nil, classifyPgError(rollerr.KindTransientStore, "scan dimension", sql, err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// InsertConfig registers a new RollupConfig row, used by Bootstrap (C8).
func (s *Store) InsertConfig(ctx context.Context, c model.RollupConfig) (int64, error) {
	sql := `INSERT INTO silver.rollup_config
		(source_table, target_table, is_active, rollup_interval, look_back_window,
		 max_look_back_window, processing_window, chunk_interval, retention_period,
		 status, max_execution_time, alert_threshold)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING id`

	row := s.QueryRowRaw(ctx, sql,
		c.SourceTable, c.TargetTable, c.IsActive, c.RollupInterval, c.LookBackWindow,
		c.MaxLookBackWindow, c.ProcessingWindow, c.ChunkInterval, c.RetentionPeriod,
		c.Status, c.MaxExecutionTime, c.AlertThreshold,
	)
	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, classifyPgError(rollerr.KindExecution, "insert config", sql, err)
	}
	return id, nil
}
