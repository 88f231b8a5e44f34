// Package pgstore is the sole owner of SQL text and Postgres wire access in
// the orchestrator. It wraps a pgxpool.Pool with a circuit breaker so that a
// misbehaving store does not turn a scan of many configs into a slow-motion
// timeout storm, and exposes narrow, typed methods for every operation the
// rest of the packages need; the bare *pgxpool.Pool is reachable only
// through Pool.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anilpraneeth/time-series-rollup/internal/rollerr"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sony/gobreaker"
)

// Store is a Postgres-backed repository for every entity the orchestrator
// reads and writes: RollupConfig, DimensionConfig, RefreshLog, ErrorLog, and
// the raw introspection/target-table DDL operations.
type Store struct {
	pool *pgxpool.Pool
	cb   *gobreaker.CircuitBreaker
}

// New constructs a Store and returns a Close function for cleanup.
func New(ctx context.Context, dsn string) (*Store, func(), error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("pgstore: pgxpool: %w", err)
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "pgstore",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})

	close := func() { pool.Close() }
	return &Store{pool: pool, cb: cb}, close, nil
}

// execute runs fn through the circuit breaker, translating a broken-circuit
// condition into a transient store error so callers do not need to special
// case gobreaker.
func (s *Store) execute(ctx context.Context, fn func(context.Context) (any, error)) (any, error) {
	v, err := s.cb.Execute(func() (any, error) { return fn(ctx) })
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, rollerr.Wrap(rollerr.KindTransientStore, "store circuit open", err)
		}
		return nil, err
	}
	return v, nil
}

// classifyPgError converts a pgconn.PgError into a rollerr.Error carrying
// the diagnostic fields ErrorLog persists.
func classifyPgError(kind rollerr.Kind, message, query string, err error) *rollerr.Error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &rollerr.Error{
			Kind:           kind,
			Message:        message,
			SQLState:       pgErr.SQLState(),
			Detail:         pgErr.Detail,
			Hint:           pgErr.Hint,
			AttemptedQuery: query,
			Wrapped:        err,
		}
	}
	return &rollerr.Error{Kind: kind, Message: message, AttemptedQuery: query, Wrapped: err}
}

// Pool exposes the underlying pool, bypassing the circuit breaker. Nothing
// in this module calls it: bootstrap DDL and partition maintenance go
// through ExecRaw.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// ExecRaw runs a single statement through the circuit breaker and returns
// the affected row count. Used by the orchestrator to execute the Plan
// Builder's statement and by Bootstrap DDL.
func (s *Store) ExecRaw(ctx context.Context, sql string, args ...any) (int64, error) {
	v, err := s.execute(ctx, func(ctx context.Context) (any, error) {
		tag, err := s.pool.Exec(ctx, sql, args...)
		if err != nil {
			return nil, classifyPgError(rollerr.KindExecution, "execute statement", sql, err)
		}
		return tag.RowsAffected(), nil
	})
	if err != nil {
		return 0, err
	}
	return v.(int64), nil
}

// QueryRaw is a thin passthrough used by callers that need pgx.Rows
// directly (introspection, stats). It is not wrapped by the breaker itself;
// callers are expected to be read-only, best-effort queries.
func (s *Store) QueryRaw(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return s.pool.Query(ctx, sql, args...)
}

// QueryRowRaw is the single-row counterpart to QueryRaw.
func (s *Store) QueryRowRaw(ctx context.Context, sql string, args ...any) pgx.Row {
	return s.pool.QueryRow(ctx, sql, args...)
}
