package pgstore

import (
	"context"

	"github.com/anilpraneeth/time-series-rollup/internal/rollerr"
)

// IngestStats samples a source table's current size and its ingest rate
// over the past day, feeding Bootstrap's optimize_chunk_interval heuristic.
func (s *Store) IngestStats(ctx context.Context, sourceTable string) (sizeBytes int64, rowsLastDay int64, err error) {
	sizeSQL := `SELECT pg_total_relation_size($1::regclass)`
	row := s.QueryRowRaw(ctx, sizeSQL, sourceTable)
	if err := row.Scan(&sizeBytes); err != nil {
		return 0, 0, classifyPgError(rollerr.KindSchemaInspection, "ingest size sample", sizeSQL, err)
	}

	countSQL := `SELECT count(*) FROM ` + pgFQN(sourceTable) + ` WHERE "timestamp" > now() - interval '1 day'`
	crow := s.QueryRowRaw(ctx, countSQL)
	if err := crow.Scan(&rowsLastDay); err != nil {
		// A missing timestamp column here would already have failed schema
		// inspection earlier; treat as zero ingest rather than fail bootstrap.
		return sizeBytes, 0, nil
	}
	return sizeBytes, rowsLastDay, nil
}
