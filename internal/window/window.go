// Package window implements the Window Controller (C3): it computes the
// [start, end) bound for one run and adapts processing_window between runs
// based on observed throughput and store load.
package window

import "time"

// Params is the input to Compute for one claimed config.
type Params struct {
	Now               time.Time
	LastProcessedTime *time.Time
	LookBackWindow    time.Duration
	MaxLookBackWindow time.Duration
	ProcessingWindow  time.Duration
	RollupInterval    time.Duration
	// ActivePeers is the sampled concurrent session count, or -1 if the
	// sample was skipped (rate limited) or this is the first run.
	ActivePeers int
}

// Result is the computed window plus the adapted seed used to derive it,
// so the caller can plug the same optimalWindow into AdjustAfterRun.
type Result struct {
	Start        time.Time
	End          time.Time
	OptimalSeed  time.Duration
	Empty        bool
}

// Compute derives [start, end) for a freshly claimed config, per §4.3.
func Compute(p Params) Result {
	var start time.Time
	firstRun := p.LastProcessedTime == nil
	if !firstRun {
		start = *p.LastProcessedTime
	} else {
		start = p.Now.Add(-p.LookBackWindow)
	}

	optimal := p.ProcessingWindow
	if firstRun {
		optimal = minDuration(p.ProcessingWindow, time.Hour)
	}

	if !firstRun {
		switch {
		case p.ActivePeers > 5:
			optimal = scaleDuration(optimal, 0.5)
		case p.ActivePeers >= 0 && p.ActivePeers < 2:
			optimal = minDuration(scaleDuration(optimal, 1.5), p.MaxLookBackWindow)
		}
	}

	buffer := safetyBuffer(p.RollupInterval)
	end := minTime(p.Now.Add(-buffer), start.Add(optimal))

	return Result{
		Start:       start,
		End:         end,
		OptimalSeed: optimal,
		Empty:       !start.Before(end),
	}
}

// safetyBuffer implements the interval-dependent minimum distance kept from
// now, per §4.3.
func safetyBuffer(interval time.Duration) time.Duration {
	switch {
	case interval <= time.Second:
		return 30 * time.Second
	case interval == time.Minute:
		return 60 * time.Second
	default:
		return interval
	}
}

// AdjustAfterRun computes the next processing_window after a successful
// run, per the throughput-based rule in §4.3.
func AdjustAfterRun(optimal time.Duration, rowsProcessed int64, maxLookBack time.Duration) time.Duration {
	switch {
	case rowsProcessed > 1_000_000:
		return scaleDuration(optimal, 0.8)
	case rowsProcessed < 100_000:
		return minDuration(scaleDuration(optimal, 1.2), maxLookBack)
	default:
		return optimal
	}
}

// EWMA rolls the average processing time with the fixed alpha the design
// notes specify (α = 0.3): avg_new = 0.7*prev + 0.3*sample.
func EWMA(prev, sample time.Duration) time.Duration {
	return time.Duration(0.7*float64(prev) + 0.3*float64(sample))
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

func scaleDuration(d time.Duration, factor float64) time.Duration {
	return time.Duration(float64(d) * factor)
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
