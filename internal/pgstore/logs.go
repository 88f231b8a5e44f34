package pgstore

import (
	"context"

	"github.com/anilpraneeth/time-series-rollup/internal/model"
	"github.com/anilpraneeth/time-series-rollup/internal/rollerr"
)

// AppendRefreshLog records one successfully committed window.
func (s *Store) AppendRefreshLog(ctx context.Context, r model.RefreshLog) error {
	sql := `INSERT INTO silver.refresh_log
		(table_name, start_time, end_time, records_processed, refresh_timestamp)
		VALUES ($1,$2,$3,$4,$5)`
	_, err := s.ExecRaw(ctx, sql, r.TableName, r.StartTime, r.EndTime, r.RecordsProcessed, r.RefreshTimestamp)
	if err != nil {
		return classifyPgError(rollerr.KindTransientStore, "append refresh log", sql, err)
	}
	return nil
}

// AppendErrorLog records one diagnostic error row. This call itself must
// not fail the run it is diagnosing; callers should log and continue if it
// errors.
func (s *Store) AppendErrorLog(ctx context.Context, e model.ErrorLog) error {
	sql := `INSERT INTO silver.error_log
		(source_table, target_table, error_timestamp, message, sql_state, detail, hint, context, attempted_query, kind, fingerprint)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`
	_, err := s.ExecRaw(ctx, sql,
		e.SourceTable, e.TargetTable, e.ErrorTimestamp, e.Message,
		e.SQLState, e.Detail, e.Hint, e.Context, e.AttemptedQuery,
		e.Kind, int64(e.Fingerprint))
	if err != nil {
		return classifyPgError(rollerr.KindTransientStore, "append error log", sql, err)
	}
	return nil
}

// LatestError returns the most recent ErrorLog row for a (source, target)
// pair, or nil if none exists. Used by the Operations Monitor (C7).
func (s *Store) LatestError(ctx context.Context, sourceTable, targetTable string) (*model.ErrorLog, error) {
	sql := `SELECT source_table, target_table, error_timestamp, message, sql_state, detail, hint, context, attempted_query, kind, fingerprint
		FROM silver.error_log
		WHERE source_table = $1 AND target_table = $2
		ORDER BY error_timestamp DESC
		LIMIT 1`
	row := s.QueryRowRaw(ctx, sql, sourceTable, targetTable)
	var e model.ErrorLog
	var fingerprint int64
	err := row.Scan(&e.SourceTable, &e.TargetTable, &e.ErrorTimestamp, &e.Message,
		&e.SQLState, &e.Detail, &e.Hint, &e.Context, &e.AttemptedQuery, &e.Kind, &fingerprint)
	if err != nil {
		return nil, nil // no rows or scan error: treated as "no error on record"
	}
	e.Fingerprint = uint64(fingerprint)
	return &e, nil
}

// RefreshLogStats24h returns the 24-hour average duration and success rate
// (success = records_processed > 0) for one table_name.
func (s *Store) RefreshLogStats24h(ctx context.Context, tableName string) (avgSeconds float64, successRate float64, err error) {
	sql := `SELECT
			COALESCE(AVG(EXTRACT(EPOCH FROM (end_time - start_time))), 0),
			COALESCE(AVG(CASE WHEN records_processed > 0 THEN 1 ELSE 0 END), 0)
		FROM silver.refresh_log
		WHERE table_name = $1 AND refresh_timestamp > now() - interval '24 hours'`
	row := s.QueryRowRaw(ctx, sql, tableName)
	if scanErr := row.Scan(&avgSeconds, &successRate); scanErr != nil {
		return 0, 0, classifyPgError(rollerr.KindTransientStore, "refresh log stats", sql, scanErr)
	}
	return avgSeconds, successRate, nil
}
