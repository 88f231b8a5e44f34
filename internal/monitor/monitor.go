// Package monitor implements the Operations Monitor (C7): a read-only
// projection joining RollupConfig with its latest ErrorLog entry and a
// 24-hour rollup of RefreshLog, deriving a health status per config.
package monitor

import (
	"context"
	"time"

	"github.com/anilpraneeth/time-series-rollup/internal/model"
)

// Store is the narrow slice of pgstore.Store the monitor needs.
type Store interface {
	GetByID(ctx context.Context, id int64) (model.RollupConfig, error)
	LatestError(ctx context.Context, sourceTable, targetTable string) (*model.ErrorLog, error)
	RefreshLogStats24h(ctx context.Context, tableName string) (avgSeconds float64, successRate float64, err error)
	PartitionStats(ctx context.Context, qualifiedTable string) (model.PartitionStats, error)
	DetailedStats(ctx context.Context, pattern string) ([]model.RollupConfig, error)
}

// Monitor answers the GetPartitionStats/GetDetailedStats CLI operations.
type Monitor struct {
	store Store
}

func New(store Store) *Monitor {
	return &Monitor{store: store}
}

// Health derives the health status of one config per §4.7:
//   - ALERT   if processing and the lease is stale
//   - WARNING if retry_count > 3
//   - RUNNING if processing
//   - OK      otherwise
func Health(c model.RollupConfig, now time.Time) model.HealthStatus {
	if c.Status == model.LeaseProcessing && c.StartedAt != nil && now.Sub(*c.StartedAt) > c.AlertThreshold {
		return model.HealthAlert
	}
	if c.RetryCount > 3 {
		return model.HealthWarning
	}
	if c.Status == model.LeaseProcessing {
		return model.HealthRunning
	}
	return model.HealthOK
}

// GetPartitionStats reports storage/chunk statistics for one target table.
func (m *Monitor) GetPartitionStats(ctx context.Context, targetTable string) (model.PartitionStats, error) {
	return m.store.PartitionStats(ctx, targetTable)
}

// GetDetailedStats matches configs by a LIKE pattern on source_table and
// returns the joined health/performance projection for each.
func (m *Monitor) GetDetailedStats(ctx context.Context, pattern string) ([]model.DetailedStats, error) {
	now := time.Now()
	configs, err := m.store.DetailedStats(ctx, pattern)
	if err != nil {
		return nil, err
	}

	out := make([]model.DetailedStats, 0, len(configs))
	for _, c := range configs {
		avgSeconds, successRate, err := m.store.RefreshLogStats24h(ctx, c.SourceTable)
		if err != nil {
			avgSeconds, successRate = 0, 0
		}
		lastErr, _ := m.store.LatestError(ctx, c.SourceTable, c.TargetTable)

		out = append(out, model.DetailedStats{
			SourceTable:       c.SourceTable,
			TargetTable:       c.TargetTable,
			Health:            Health(c, now),
			Status:            c.Status,
			RetryCount:        c.RetryCount,
			LastProcessedTime: c.LastProcessedTime,
			AvgProcessingTime: c.AvgProcessingTime,
			Avg24hDuration:    time.Duration(avgSeconds * float64(time.Second)),
			SuccessRate24h:    successRate,
			LastError:         lastErr,
		})
	}
	return out, nil
}
