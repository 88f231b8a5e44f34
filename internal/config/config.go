// Package config defines the canonical configuration for the rollup
// orchestrator daemon and CLI. It is intentionally small and explicit: no
// third-party config library, just flag-populated fields with environment
// variable fallbacks (12-factor style), the same resolution order the
// teacher's CLI used for its metrics backend flags.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds everything rollupctl needs to talk to the store and to size
// its own operational behavior. It carries no per-config values (those live
// in RollupConfig rows) — only what every invocation needs regardless of
// which configs it touches.
type Config struct {
	// DSN is the pgx connection string for the silver/gold store.
	DSN string

	// WorkerID is the opaque lease identity this process claims configs
	// under. Defaults to a fresh UUID (see internal/ids) when empty.
	WorkerID string

	// PollTimeout bounds how long a single PerformRollup invocation keeps
	// starting new configs: once it has elapsed, the remaining candidates are
	// left for the next invocation. It does not cancel in-flight SQL.
	PollTimeout time.Duration

	// MetricsBackend selects the metrics.Backend implementation: "pushgateway"
	// or "none".
	MetricsBackend string

	// PushgatewayURL is the base URL for the Prometheus Pushgateway backend.
	PushgatewayURL string

	// MetricsJob names the Pushgateway grouping key / job label.
	MetricsJob string

	// Verbose enables additional per-config log lines.
	Verbose bool
}

// FromEnv resolves flag-provided values against environment variable
// fallbacks and fills in defaults. Flags win over environment; environment
// wins over the hardcoded default. Empty flag values (the zero value for
// their type) are treated as "not set" for the purposes of falling through.
func FromEnv(c Config) Config {
	if c.DSN == "" {
		c.DSN = os.Getenv("ROLLUP_DSN")
	}
	if c.WorkerID == "" {
		c.WorkerID = os.Getenv("ROLLUP_WORKER_ID")
	}
	if c.PollTimeout == 0 {
		if v := os.Getenv("ROLLUP_POLL_TIMEOUT"); v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				c.PollTimeout = d
			}
		}
	}
	if c.PollTimeout == 0 {
		c.PollTimeout = 55 * time.Second
	}
	if c.MetricsBackend == "" {
		c.MetricsBackend = envOr("ROLLUP_METRICS_BACKEND", "none")
	}
	if c.PushgatewayURL == "" {
		c.PushgatewayURL = envOr("PUSHGATEWAY_URL", "http://localhost:9091")
	}
	if c.MetricsJob == "" {
		c.MetricsJob = envOr("ROLLUP_METRICS_JOB", "rollup_orchestrator")
	}
	if !c.Verbose {
		c.Verbose = envBool("ROLLUP_VERBOSE", false)
	}
	return c
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
