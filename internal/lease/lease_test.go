package lease

import (
	"context"
	"testing"
	"time"

	"github.com/anilpraneeth/time-series-rollup/internal/model"
	"github.com/anilpraneeth/time-series-rollup/internal/rollerr"
)

type fakeStore struct {
	claimResult *model.RollupConfig
	claimErr    error

	releaseSuccessOK  bool
	releaseEmptyOK    bool
	releaseFailureOK  bool
}

func (f *fakeStore) Claim(ctx context.Context, id int64, workerID string, now time.Time) (*model.RollupConfig, error) {
	return f.claimResult, f.claimErr
}
func (f *fakeStore) ReleaseSuccess(ctx context.Context, id int64, workerID string, endTime time.Time, rows int64, w, a time.Duration) (bool, error) {
	return f.releaseSuccessOK, nil
}
func (f *fakeStore) ReleaseEmpty(ctx context.Context, id int64, workerID string) (bool, error) {
	return f.releaseEmptyOK, nil
}
func (f *fakeStore) ReleaseFailure(ctx context.Context, id int64, workerID string, now time.Time, n int, next time.Time) (bool, error) {
	return f.releaseFailureOK, nil
}

func TestManager_Claim(t *testing.T) {
	cfg := &model.RollupConfig{ID: 7}
	m := New(&fakeStore{claimResult: cfg}, "worker-1")

	got, err := m.Claim(context.Background(), 7, time.Now())
	if err != nil {
		t.Fatalf("Claim() error = %v", err)
	}
	if got != cfg {
		t.Fatalf("Claim() = %v, want %v", got, cfg)
	}
}

func TestCheckBudget_ExceedsMaxExecutionTime(t *testing.T) {
	started := time.Now().Add(-2 * time.Hour)
	c := model.RollupConfig{StartedAt: &started, MaxExecutionTime: time.Hour}

	err := CheckBudget(c, time.Now())
	if err == nil {
		t.Fatalf("expected budget overrun error")
	}
	var rerr *rollerr.Error
	if !castRollerr(err, &rerr) || rerr.Kind != rollerr.KindBudgetOverrun {
		t.Fatalf("expected KindBudgetOverrun, got %v", err)
	}
}

func TestCheckBudget_WithinBudget(t *testing.T) {
	started := time.Now().Add(-10 * time.Minute)
	c := model.RollupConfig{StartedAt: &started, MaxExecutionTime: time.Hour}
	if err := CheckBudget(c, time.Now()); err != nil {
		t.Fatalf("CheckBudget() error = %v, want nil", err)
	}
}

func TestManager_ReleaseSuccess_LostLease(t *testing.T) {
	m := New(&fakeStore{releaseSuccessOK: false}, "worker-1")
	err := m.ReleaseSuccess(context.Background(), 7, time.Now(), 100, time.Hour, time.Minute)
	if err == nil {
		t.Fatalf("expected lost-lease error")
	}
	var rerr *rollerr.Error
	if !castRollerr(err, &rerr) || rerr.Kind != rollerr.KindLostLease {
		t.Fatalf("expected KindLostLease, got %v", err)
	}
}

func TestManager_ReleaseSuccess_OK(t *testing.T) {
	m := New(&fakeStore{releaseSuccessOK: true}, "worker-1")
	if err := m.ReleaseSuccess(context.Background(), 7, time.Now(), 100, time.Hour, time.Minute); err != nil {
		t.Fatalf("ReleaseSuccess() error = %v, want nil", err)
	}
}

func castRollerr(err error, out **rollerr.Error) bool {
	re, ok := err.(*rollerr.Error)
	if !ok {
		return false
	}
	*out = re
	return true
}
