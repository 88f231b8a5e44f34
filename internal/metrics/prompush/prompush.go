// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package.
//
// This package adapts the generic metrics.Backend interface to Prometheus by:
//
//   - Using client_golang CounterVec and SummaryVec collectors.
//   - Mapping the common orchestrator labels (source, step, status) onto
//     Prometheus labels.
//   - Pushing collected metrics to a Prometheus Pushgateway instance instead
//     of exposing an HTTP scrape endpoint — the orchestrator is invoked by an
//     external scheduler and may not live long enough to be scraped.
//
// The package intentionally contains all Prometheus-specific dependencies so
// that the rest of the project remains decoupled from Prometheus and can
// swap to an alternative backend without changes to internal/orchestrator.
package prompush

import (
	"fmt"

	"github.com/anilpraneeth/time-series-rollup/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string // e.g. http://pushgateway:9091
	jobName    string // Pushgateway "job" group
	reg        *prometheus.Registry

	runCounter    *prometheus.CounterVec // "rollup_run_total"
	runDuration   *prometheus.SummaryVec // "rollup_run_duration_seconds"
	rowsCounter   *prometheus.CounterVec // "rollup_rows_total"
	retryCounter  *prometheus.CounterVec // "rollup_retries_total"
	leaseTakeover *prometheus.CounterVec // "rollup_lease_takeover_total"
}

// NewBackend constructs a Prometheus Pushgateway backend.
// jobName: the Pushgateway "job" name (often the orchestrator's config name).
// gatewayURL: base URL of the Pushgateway server.
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "rollup_orchestrator"
	}

	reg := prometheus.NewRegistry()

	runCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rollup_run_total",
			Help: "Total number of per-config rollup steps, partitioned by source, step, and status.",
		},
		[]string{"source", "step", "status"},
	)
	runDuration := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "rollup_run_duration_seconds",
			Help:       "Duration of per-config rollup steps in seconds.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"source", "step", "status"},
	)
	rowsCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rollup_rows_total",
			Help: "Rows committed to the target table per source, across successful windows.",
		},
		[]string{"source"},
	)
	retryCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rollup_retries_total",
			Help: "Number of times HandleRetries re-ran a due, backed-off config.",
		},
		[]string{"source"},
	)
	leaseTakeover := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rollup_lease_takeover_total",
			Help: "Number of times a stale lease was taken over from a presumed-dead worker.",
		},
		[]string{"source"},
	)

	for _, c := range []prometheus.Collector{runCounter, runDuration, rowsCounter, retryCounter, leaseTakeover} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register collector: %w", err)
		}
	}

	return &Backend{
		gatewayURL:    gatewayURL,
		jobName:       jobName,
		reg:           reg,
		runCounter:    runCounter,
		runDuration:   runDuration,
		rowsCounter:   rowsCounter,
		retryCounter:  retryCounter,
		leaseTakeover: leaseTakeover,
	}, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case "rollup_run_total":
		b.runCounter.WithLabelValues(labels["source"], labels["step"], labels["status"]).Add(delta)
	case "rollup_rows_total":
		b.rowsCounter.WithLabelValues(labels["source"]).Add(delta)
	case "rollup_retries_total":
		b.retryCounter.WithLabelValues(labels["source"]).Add(delta)
	case "rollup_lease_takeover_total":
		b.leaseTakeover.WithLabelValues(labels["source"]).Add(delta)
	default:
		// unknown metric name: ignore
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != "rollup_run_duration_seconds" {
		return
	}
	b.runDuration.WithLabelValues(labels["source"], labels["step"], labels["status"]).Observe(value)
}

// Flush pushes the current registry to the Pushgateway.
func (b *Backend) Flush() error {
	return push.New(b.gatewayURL, b.jobName).
		Gatherer(b.reg).
		Push()
}
