package ingest

import "time"

// RetryConfig holds the retry policy for source downloads.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// BaseDelay is the delay before the second attempt; it doubles on
	// every further attempt.
	BaseDelay time.Duration
}

// DefaultRetryConfig returns the standard download retry policy.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxAttempts: 3, BaseDelay: time.Second}
}

// Delay returns the backoff before the given attempt (1-based): zero for
// the first attempt, then base, 2*base, 4*base, ...
func (c RetryConfig) Delay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}
	return c.BaseDelay << (attempt - 2)
}
