// Package lease implements the Lease Manager (C4): claim/release of a
// RollupConfig row under optimistic concurrency, plus the budget check that
// aborts a run claimed from an abandoned worker.
package lease

import (
	"context"
	"time"

	"github.com/anilpraneeth/time-series-rollup/internal/model"
	"github.com/anilpraneeth/time-series-rollup/internal/rollerr"
)

// Store is the narrow slice of pgstore.Store the lease manager needs. Kept
// as an interface so orchestrator tests can supply an in-memory fake.
type Store interface {
	Claim(ctx context.Context, id int64, workerID string, now time.Time) (*model.RollupConfig, error)
	ReleaseSuccess(ctx context.Context, id int64, workerID string, endTime time.Time, rows int64, newProcessingWindow, newAvgProcessingTime time.Duration) (bool, error)
	ReleaseEmpty(ctx context.Context, id int64, workerID string) (bool, error)
	ReleaseFailure(ctx context.Context, id int64, workerID string, now time.Time, newRetryCount int, nextRetry time.Time) (bool, error)
}

// Manager coordinates lease acquisition and release for one worker process.
type Manager struct {
	store    Store
	workerID string
}

func New(store Store, workerID string) *Manager {
	return &Manager{store: store, workerID: workerID}
}

// Claim attempts to acquire the lease for one config. A nil, nil result
// means another worker holds a fresh lease; the caller should skip.
func (m *Manager) Claim(ctx context.Context, id int64, now time.Time) (*model.RollupConfig, error) {
	return m.store.Claim(ctx, id, m.workerID, now)
}

// CheckBudget reports whether a just-claimed config (potentially taken over
// from a stale lease) has already exceeded max_execution_time as measured
// from its (possibly stale) started_at. A non-nil result is a budget-overrun
// error: the run must abort before doing further work.
func CheckBudget(c model.RollupConfig, now time.Time) error {
	if c.StartedAt == nil {
		return nil
	}
	if now.Sub(*c.StartedAt) > c.MaxExecutionTime {
		return rollerr.New(rollerr.KindBudgetOverrun, "claimed lease already exceeds max_execution_time")
	}
	return nil
}

// ReleaseSuccess commits a successful run. If the lease was lost mid-run
// (zero rows affected), it returns a lost-lease diagnostic error rather
// than an execution failure — the caller must not treat it as a retryable
// error and must not attempt to overwrite progress again.
func (m *Manager) ReleaseSuccess(ctx context.Context, id int64, endTime time.Time, rows int64, newProcessingWindow, newAvgProcessingTime time.Duration) error {
	ok, err := m.store.ReleaseSuccess(ctx, id, m.workerID, endTime, rows, newProcessingWindow, newAvgProcessingTime)
	if err != nil {
		return err
	}
	if !ok {
		return rollerr.New(rollerr.KindLostLease, "lease was revoked before success could be committed")
	}
	return nil
}

// ReleaseEmpty releases a lease with no work performed (start >= end).
func (m *Manager) ReleaseEmpty(ctx context.Context, id int64) error {
	ok, err := m.store.ReleaseEmpty(ctx, id, m.workerID)
	if err != nil {
		return err
	}
	if !ok {
		return rollerr.New(rollerr.KindLostLease, "lease was revoked before empty-window release")
	}
	return nil
}

// ReleaseFailure releases a lease after a failed run, scheduling the
// backoff computed by the retry scheduler.
func (m *Manager) ReleaseFailure(ctx context.Context, id int64, now time.Time, newRetryCount int, nextRetry time.Time) error {
	ok, err := m.store.ReleaseFailure(ctx, id, m.workerID, now, newRetryCount, nextRetry)
	if err != nil {
		return err
	}
	if !ok {
		return rollerr.New(rollerr.KindLostLease, "lease was revoked before failure could be recorded")
	}
	return nil
}
