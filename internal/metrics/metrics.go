// Package metrics is the counters-and-histograms sink for the rollup
// lifecycle: claim, budget check, window, plan, execute, and the
// commit/error outcome of each. Callers never see a concrete backend —
// internal/orchestrator calls the package-level Record* functions below,
// and a process wires in a real
// Backend (or none) exactly once, at startup, via SetBackend.
package metrics

import "time"

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the sink a concrete metrics system implements. It stays this
// narrow so swapping Pushgateway for anything else never touches call sites.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

// nopBackend discards everything; it's the default so Record* calls are
// always safe even when no backend has been configured yet.
type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs the process-wide backend. A nil argument is a no-op,
// so a failed backend construction can safely fall through to the nop.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordRun records one PerformRollup/HandleRetries pass over a single
// config: latency plus success/failure.
func RecordRun(sourceTable, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}

	lbls := Labels{
		"source": sourceTable,
		"step":   step,
		"status": status,
	}

	backend.IncCounter("rollup_run_total", 1, lbls)
	backend.ObserveHistogram("rollup_run_duration_seconds", d.Seconds(), lbls)
}

// RecordRows increments the rows-processed counter for one successfully
// committed window.
func RecordRows(sourceTable string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter("rollup_rows_total", float64(delta), Labels{
		"source": sourceTable,
	})
}

// RecordRetry increments the retry counter each time HandleRetries re-runs a
// due, backed-off config.
func RecordRetry(sourceTable string, retryCount int) {
	backend.IncCounter("rollup_retries_total", 1, Labels{
		"source": sourceTable,
	})
	_ = retryCount
}

// RecordLeaseTakeover increments a counter whenever a stale lease is taken
// over from a presumed-dead worker.
func RecordLeaseTakeover(sourceTable string) {
	backend.IncCounter("rollup_lease_takeover_total", 1, Labels{
		"source": sourceTable,
	})
}
