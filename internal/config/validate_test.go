package config

import (
	"testing"
	"time"
)

func TestValidate_MissingDSN(t *testing.T) {
	c := Config{PollTimeout: time.Second, MetricsBackend: "none"}
	issues := Validate(c)
	if !HasErrors(issues) {
		t.Fatalf("expected an error for missing dsn")
	}
}

func TestValidate_NonPositivePollTimeout(t *testing.T) {
	c := Config{DSN: "postgres://x/y", PollTimeout: 0, MetricsBackend: "none"}
	issues := Validate(c)
	if !HasErrors(issues) {
		t.Fatalf("expected an error for non-positive poll_timeout")
	}
}

func TestValidate_PushgatewayRequiresURL(t *testing.T) {
	c := Config{DSN: "postgres://x/y", PollTimeout: time.Second, MetricsBackend: "pushgateway"}
	issues := Validate(c)
	if !HasErrors(issues) {
		t.Fatalf("expected an error when pushgateway_url is missing")
	}
}

func TestValidate_Clean(t *testing.T) {
	c := Config{
		DSN:            "postgres://x/y",
		PollTimeout:    time.Second,
		MetricsBackend: "pushgateway",
		PushgatewayURL: "http://localhost:9091",
	}
	issues := Validate(c)
	if HasErrors(issues) {
		t.Fatalf("did not expect errors, got %v", issues)
	}
}
