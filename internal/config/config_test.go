package config

import (
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("ROLLUP_DSN", "")
	t.Setenv("ROLLUP_WORKER_ID", "")
	t.Setenv("ROLLUP_POLL_TIMEOUT", "")
	t.Setenv("ROLLUP_METRICS_BACKEND", "")
	t.Setenv("PUSHGATEWAY_URL", "")
	t.Setenv("ROLLUP_METRICS_JOB", "")

	c := FromEnv(Config{})

	if c.PollTimeout != 55*time.Second {
		t.Fatalf("PollTimeout = %v, want 55s", c.PollTimeout)
	}
	if c.MetricsBackend != "none" {
		t.Fatalf("MetricsBackend = %q, want none", c.MetricsBackend)
	}
	if c.PushgatewayURL != "http://localhost:9091" {
		t.Fatalf("PushgatewayURL = %q", c.PushgatewayURL)
	}
	if c.MetricsJob != "rollup_orchestrator" {
		t.Fatalf("MetricsJob = %q", c.MetricsJob)
	}
}

func TestFromEnv_EnvironmentFallback(t *testing.T) {
	t.Setenv("ROLLUP_DSN", "postgres://env/db")
	t.Setenv("ROLLUP_POLL_TIMEOUT", "10s")

	c := FromEnv(Config{})

	if c.DSN != "postgres://env/db" {
		t.Fatalf("DSN = %q, want env value", c.DSN)
	}
	if c.PollTimeout != 10*time.Second {
		t.Fatalf("PollTimeout = %v, want 10s", c.PollTimeout)
	}
}

func TestFromEnv_FlagWinsOverEnv(t *testing.T) {
	t.Setenv("ROLLUP_DSN", "postgres://env/db")

	c := FromEnv(Config{DSN: "postgres://flag/db"})

	if c.DSN != "postgres://flag/db" {
		t.Fatalf("DSN = %q, want flag value to win", c.DSN)
	}
}
