package retry

import (
	"testing"
	"time"
)

func TestBackoffDelay_Sequence(t *testing.T) {
	cases := []struct {
		retryCount int
		want       time.Duration
	}{
		{1, 5 * time.Minute},
		{2, 10 * time.Minute},
		{3, 20 * time.Minute},
		{4, 40 * time.Minute},
	}
	for _, c := range cases {
		if got := BackoffDelay(c.retryCount); got != c.want {
			t.Fatalf("BackoffDelay(%d) = %v, want %v", c.retryCount, got, c.want)
		}
	}
}

func TestBackoffDelay_ClampsNonPositive(t *testing.T) {
	if got := BackoffDelay(0); got != 5*time.Minute {
		t.Fatalf("BackoffDelay(0) = %v, want treated as retryCount=1", got)
	}
}

func TestNextRetryTime(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	got := NextRetryTime(now, 2)
	want := now.Add(10 * time.Minute)
	if !got.Equal(want) {
		t.Fatalf("NextRetryTime() = %v, want %v", got, want)
	}
}
