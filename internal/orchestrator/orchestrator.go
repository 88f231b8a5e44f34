// Package orchestrator implements the Orchestrator (C6): the top-level
// scan-and-process loop and per-config state machine that ties together
// schema inspection, plan building, window control, leasing, and retry
// scheduling.
package orchestrator

import (
	"context"
	"log"
	"time"

	"github.com/anilpraneeth/time-series-rollup/internal/ids"
	"github.com/anilpraneeth/time-series-rollup/internal/lease"
	"github.com/anilpraneeth/time-series-rollup/internal/metrics"
	"github.com/anilpraneeth/time-series-rollup/internal/model"
	"github.com/anilpraneeth/time-series-rollup/internal/planner"
	"github.com/anilpraneeth/time-series-rollup/internal/retry"
	"github.com/anilpraneeth/time-series-rollup/internal/rollerr"
	"github.com/anilpraneeth/time-series-rollup/internal/schema"
	"github.com/anilpraneeth/time-series-rollup/internal/window"
)

// Store is the full slice of pgstore.Store the orchestrator drives.
type Store interface {
	lease.Store

	ListCandidates(ctx context.Context, now time.Time, specificTable string) ([]model.RollupConfig, error)
	ListRetryable(ctx context.Context, now time.Time) ([]model.RollupConfig, error)
	ClearForRetry(ctx context.Context, id int64) error

	ActivePeerCount(ctx context.Context) (int, error)
	ExecRaw(ctx context.Context, sql string, args ...any) (int64, error)

	AppendRefreshLog(ctx context.Context, r model.RefreshLog) error
	AppendErrorLog(ctx context.Context, e model.ErrorLog) error
}

// Orchestrator holds everything one worker process needs to run
// PerformRollup and HandleRetries invocations.
type Orchestrator struct {
	store       Store
	inspector   *schema.Inspector
	leaser      *lease.Manager
	workerID    string
	pollTimeout time.Duration
}

// New constructs an Orchestrator bound to one worker identity. pollTimeout
// is the soft per-invocation budget from config.Config.PollTimeout; zero
// disables it (PerformRollup then always drains every candidate).
func New(store Store, inspector *schema.Inspector, workerID string, pollTimeout time.Duration) *Orchestrator {
	if workerID == "" {
		workerID = ids.NewWorkerID()
	}
	return &Orchestrator{
		store:       store,
		inspector:   inspector,
		leaser:      lease.New(store, workerID),
		workerID:    workerID,
		pollTimeout: pollTimeout,
	}
}

// PerformRollup processes all active, claimable configs (or one, if
// specificTable is non-empty), one window each. It returns the last
// unrecoverable error encountered outside the per-config loop, if any;
// per-config errors are recorded and do not abort the invocation.
func (o *Orchestrator) PerformRollup(ctx context.Context, specificTable string) error {
	runID := ids.NewRunID()
	loopStart := time.Now()

	candidates, err := o.store.ListCandidates(ctx, loopStart, specificTable)
	if err != nil {
		return err
	}

	for i, c := range candidates {
		if o.pollTimeout > 0 && time.Since(loopStart) > o.pollTimeout {
			log.Printf("[run=%s] PerformRollup: poll_timeout (%s) exceeded, deferring remaining %d candidate(s) to the next invocation", runID, o.pollTimeout, len(candidates)-i)
			break
		}
		o.runOnce(ctx, c, runID)
	}

	if elapsed := time.Since(loopStart); len(candidates) > 0 {
		for _, c := range candidates {
			if elapsed > c.AlertThreshold {
				log.Printf("[run=%s] PerformRollup: loop took %s, exceeding alert_threshold for %s→%s", runID, elapsed, c.SourceTable, c.TargetTable)
			}
		}
	}
	return nil
}

// HandleRetries sweeps configs due for retry, clears their lease back to
// idle, and re-invokes the rollup path for each one's source table.
func (o *Orchestrator) HandleRetries(ctx context.Context) error {
	runID := ids.NewRunID()
	now := time.Now()

	due, err := o.store.ListRetryable(ctx, now)
	if err != nil {
		return err
	}

	for _, c := range due {
		if err := o.store.ClearForRetry(ctx, c.ID); err != nil {
			log.Printf("[run=%s] HandleRetries: failed to clear %s→%s for retry: %v", runID, c.SourceTable, c.TargetTable, err)
			continue
		}
		metrics.RecordRetry(c.SourceTable, c.RetryCount)
		if err := o.PerformRollup(ctx, c.SourceTable); err != nil {
			log.Printf("[run=%s] HandleRetries: rollup pass for %s failed: %v", runID, c.SourceTable, err)
		}
	}
	return nil
}

// runOnce drives the eight-step per-config state machine in §4.6. All
// errors are recorded and swallowed here; the loop in PerformRollup
// continues regardless.
//
// On success last_processed_time advances to the planned window end w.End,
// not to the newest source timestamp actually seen. Rows that arrive later
// with a timestamp before that end are not picked up by later runs.
func (o *Orchestrator) runOnce(ctx context.Context, candidate model.RollupConfig, runID string) {
	now := time.Now()

	// Step 1: claim.
	claimed, err := o.leaser.Claim(ctx, candidate.ID, now)
	if err != nil {
		log.Printf("[run=%s] claim %s→%s failed: %v", runID, candidate.SourceTable, candidate.TargetTable, err)
		return
	}
	if claimed == nil {
		return // another worker holds a fresh lease
	}
	c := *claimed
	// candidate reflects the row as ListCandidates saw it, before our claim;
	// ListCandidates only returns idle rows or stale processing rows, so a
	// candidate already in "processing" means we just took over its lease.
	if candidate.Status == model.LeaseProcessing {
		metrics.RecordLeaseTakeover(c.SourceTable)
	}

	stepStart := time.Now()

	// Step 2: budget check. Must run against candidate, the pre-claim row
	// ListCandidates saw: Claim's RETURNING always sets started_at to now,
	// so checking the post-claim row c would make this check permanently
	// dead. candidate.StartedAt still carries the abandoned worker's
	// original claim time for a stale-lease takeover, which is what
	// max_execution_time is measured against.
	if err := lease.CheckBudget(candidate, now); err != nil {
		o.recordFailure(ctx, c, runID, err.(*rollerr.Error))
		metrics.RecordRun(c.SourceTable, "budget_check", err, time.Since(stepStart))
		return
	}

	// Step 3: compute window.
	activePeers := -1
	if c.LastProcessedTime != nil {
		if n, err := o.store.ActivePeerCount(ctx); err == nil {
			activePeers = n
		}
	}
	w := window.Compute(window.Params{
		Now:               now,
		LastProcessedTime: c.LastProcessedTime,
		LookBackWindow:    c.LookBackWindow,
		MaxLookBackWindow: c.MaxLookBackWindow,
		ProcessingWindow:  c.ProcessingWindow,
		RollupInterval:    c.RollupInterval,
		ActivePeers:       activePeers,
	})
	if w.Empty {
		if err := o.leaser.ReleaseEmpty(ctx, c.ID); err != nil {
			log.Printf("[run=%s] %s→%s: release after empty window: %v", runID, c.SourceTable, c.TargetTable, err)
		}
		return
	}

	// Step 4: build plan.
	classification, err := o.inspector.Classify(ctx, c.SourceTable, c.TargetTable)
	if err != nil {
		o.recordFailure(ctx, c, runID, rollerr.Wrap(rollerr.KindSchemaInspection, "column classification failed", err))
		metrics.RecordRun(c.SourceTable, "classify", err, time.Since(stepStart))
		return
	}
	for _, missing := range classification.MissingDimensions {
		_ = o.store.AppendErrorLog(ctx, model.ErrorLog{
			SourceTable:    c.SourceTable,
			TargetTable:    c.TargetTable,
			ErrorTimestamp: now,
			Message:        "declared dimension not found on source table: " + missing,
			Context:        "dimension column check",
		})
	}

	plan := planner.Build(c.SourceTable, c.TargetTable, c.RollupInterval, w.Start, w.End, planner.Classification{
		Dimensions:  classification.Dimensions,
		Numeric:     classification.Numeric,
		NonNumeric:  classification.NonNumeric,
		JSONColumns: classification.JSONColumns,
	})
	if plan.Degenerate {
		degErr := rollerr.New(rollerr.KindPlanDegeneracy, "plan has no dimensions and no aggregated columns")
		o.recordFailure(ctx, c, runID, degErr)
		metrics.RecordRun(c.SourceTable, "build_plan", degErr, time.Since(stepStart))
		return
	}

	// Step 5: execute.
	rows, execErr := o.store.ExecRaw(ctx, plan.SQL, plan.Args...)
	if execErr != nil {
		rerr, ok := execErr.(*rollerr.Error)
		if !ok {
			rerr = rollerr.Wrap(rollerr.KindExecution, "execute rollup statement", execErr)
		}
		rerr = rerr.WithQuery(plan.SQL)
		o.recordFailure(ctx, c, runID, rerr)
		metrics.RecordRun(c.SourceTable, "execute", execErr, time.Since(stepStart))
		return
	}
	if rows < 0 {
		rows = 0
	}

	// Step 6: success bookkeeping.
	newWindow := window.AdjustAfterRun(w.OptimalSeed, rows, c.MaxLookBackWindow)
	newAvg := window.EWMA(c.AvgProcessingTime, time.Since(stepStart))

	if err := o.store.AppendRefreshLog(ctx, model.RefreshLog{
		TableName:        c.SourceTable,
		StartTime:        stepStart,
		EndTime:          time.Now(),
		RecordsProcessed: rows,
		RefreshTimestamp: now,
	}); err != nil {
		log.Printf("[run=%s] %s: refresh log append failed: %v", runID, c.SourceTable, err)
	}

	if err := o.leaser.ReleaseSuccess(ctx, c.ID, w.End, rows, newWindow, newAvg); err != nil {
		log.Printf("[run=%s] %s→%s: %v", runID, c.SourceTable, c.TargetTable, err)
	}

	metrics.RecordRows(c.SourceTable, rows)
	metrics.RecordRun(c.SourceTable, "execute", nil, time.Since(stepStart))
}

// recordFailure writes an ErrorLog entry, then either applies the retry
// scheduler's backoff (step 7) or releases straight back to idle, depending
// on whether rerr.Kind is retryable per the error taxonomy in §7: a schema
// inspection error ends this config's run and releases the lease without
// accumulating backoff the way a plan/execution/budget failure does.
func (o *Orchestrator) recordFailure(ctx context.Context, c model.RollupConfig, runID string, rerr *rollerr.Error) {
	now := time.Now()

	if err := o.store.AppendErrorLog(ctx, model.ErrorLog{
		Kind:           string(rerr.Kind),
		SourceTable:    c.SourceTable,
		TargetTable:    c.TargetTable,
		ErrorTimestamp: now,
		Message:        rerr.Message,
		SQLState:       rerr.SQLState,
		Detail:         rerr.Detail,
		Hint:           rerr.Hint,
		Context:        "run=" + runID,
		AttemptedQuery: rerr.AttemptedQuery,
		Fingerprint:    rerr.Fingerprint(),
	}); err != nil {
		log.Printf("[run=%s] %s→%s: error log append failed: %v", runID, c.SourceTable, c.TargetTable, err)
	}

	if !rerr.Retryable() {
		if err := o.leaser.ReleaseEmpty(ctx, c.ID); err != nil {
			log.Printf("[run=%s] %s→%s: release after non-retryable failure: %v", runID, c.SourceTable, c.TargetTable, err)
		}
		return
	}

	newRetryCount := c.RetryCount + 1
	next := retry.NextRetryTime(now, newRetryCount)
	if err := o.leaser.ReleaseFailure(ctx, c.ID, now, newRetryCount, next); err != nil {
		log.Printf("[run=%s] %s→%s: release after failure: %v", runID, c.SourceTable, c.TargetTable, err)
	}
}
