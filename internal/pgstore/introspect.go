package pgstore

import (
	"context"
	"strings"
	"time"

	"github.com/anilpraneeth/time-series-rollup/internal/model"
	"github.com/anilpraneeth/time-series-rollup/internal/rollerr"

	"golang.org/x/time/rate"
)

// Columns introspects one qualified table via information_schema and
// returns its columns in ordinal position order, classified into the four
// semantic buckets the Schema Inspector (C1) works with.
func (s *Store) Columns(ctx context.Context, qualifiedTable string) ([]model.Column, error) {
	schema, table, ok := splitQualified(qualifiedTable)
	if !ok {
		return nil, rollerr.New(rollerr.KindSchemaInspection, "table name must be schema-qualified: "+qualifiedTable)
	}

	sql := `SELECT column_name, data_type, udt_name
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position`

	rows, err := s.QueryRaw(ctx, sql, schema, table)
	if err != nil {
		return nil, classifyPgError(rollerr.KindSchemaInspection, "introspect columns", sql, err)
	}
	defer rows.Close()

	var out []model.Column
	for rows.Next() {
		var name, dataType, udtName string
		if err := rows.Scan(&name, &dataType, &udtName); err != nil {
			return nil, classifyPgError(rollerr.KindSchemaInspection, "scan column", sql, err)
		}
		out = append(out, model.Column{
			Name:     name,
			Semantic: classifyPgType(dataType, udtName),
			SQLType:  dataType,
		})
	}
	return out, rows.Err()
}

// classifyPgType maps a Postgres information_schema data_type into one of
// the four semantic buckets the plan builder cares about.
func classifyPgType(dataType, udtName string) model.SemanticType {
	switch dataType {
	case "timestamp without time zone", "timestamp with time zone", "date":
		return model.SemanticTimestamp
	case "smallint", "integer", "bigint", "decimal", "numeric", "real", "double precision":
		return model.SemanticNumeric
	case "jsonb", "json":
		return model.SemanticJSON
	default:
		if strings.HasPrefix(udtName, "int") || strings.HasPrefix(udtName, "float") {
			return model.SemanticNumeric
		}
		return model.SemanticOther
	}
}

// TableExists reports whether a qualified table exists in the catalog.
func (s *Store) TableExists(ctx context.Context, qualifiedTable string) (bool, error) {
	schema, table, ok := splitQualified(qualifiedTable)
	if !ok {
		return false, nil
	}
	sql := `SELECT EXISTS (
		SELECT 1 FROM information_schema.tables WHERE table_schema = $1 AND table_name = $2
	)`
	var exists bool
	row := s.QueryRowRaw(ctx, sql, schema, table)
	if err := row.Scan(&exists); err != nil {
		return false, classifyPgError(rollerr.KindSchemaInspection, "table exists check", sql, err)
	}
	return exists, nil
}

func splitQualified(name string) (schema, table string, ok bool) {
	parts := strings.SplitN(name, ".", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// activityLimiter throttles pg_stat_activity sampling to at most once per
// second: the window controller's load sample is best-effort and must
// never itself become a source of load.
var activityLimiter = rate.NewLimiter(rate.Every(time.Second), 1)

// ActivePeerCount samples pg_stat_activity for the number of concurrently
// active sessions, excluding the caller's own backend and any introspection
// queries against information_schema. Rate limited; returns -1 when the
// limiter denies the call, which callers treat as "sample skipped".
func (s *Store) ActivePeerCount(ctx context.Context) (int, error) {
	if !activityLimiter.Allow() {
		return -1, nil
	}

	sql := `SELECT count(*) FROM pg_stat_activity
		WHERE state = 'active'
		  AND pid != pg_backend_pid()
		  AND query NOT ILIKE '%information_schema%'`
	var n int
	row := s.QueryRowRaw(ctx, sql)
	if err := row.Scan(&n); err != nil {
		return 0, classifyPgError(rollerr.KindTransientStore, "sample pg_stat_activity", sql, err)
	}
	return n, nil
}
