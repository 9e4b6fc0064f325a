package engine

import "time"

// Backoff computes the delay before retrying an item after attempt
// transient failures, per spec.md §4.5: base * 2^attempt, attempt counting
// from zero for the first retry.
func Backoff(base time.Duration, attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
	}
	return d
}
