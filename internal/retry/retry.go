// Package retry implements the Retry Scheduler (C5): exponential backoff
// calculation for a failed run.
package retry

import "time"

// baseDelay is the 5 min base of the "5 min * 2^(retry_count-1)" schedule
// from the component design.
const baseDelay = 5 * time.Minute

// NextRetryTime computes the next_retry_time after the retryCount-th
// failure (1-indexed: the first failure produces a 5 minute delay, the
// second a 10 minute delay, and so on).
func NextRetryTime(now time.Time, retryCount int) time.Time {
	return now.Add(BackoffDelay(retryCount))
}

// BackoffDelay returns the raw backoff duration for the given retry count.
// No operational ceiling is applied here; the only clamp is the overflow
// guard below, which stops doubling after 2^20 * 5 min.
func BackoffDelay(retryCount int) time.Duration {
	if retryCount < 1 {
		retryCount = 1
	}
	shift := retryCount - 1
	if shift > 20 {
		// Guard against overflow on pathologically large retry counts;
		// 2^20 * 5min is already far beyond any operationally sane ceiling.
		shift = 20
	}
	return baseDelay * time.Duration(uint64(1)<<uint(shift))
}
