package domain

import "time"

// RetryPolicy is the value object every bounded retry loop shares. Delay
// grows geometrically: BaseDelay * BackoffFactor^(attempt-1).
type RetryPolicy struct {
	MaxAttempts   int
	BaseDelay     time.Duration
	BackoffFactor int
}

// Delay returns the sleep before retrying after the given 1-indexed attempt.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= time.Duration(p.BackoffFactor)
	}
	return d
}

// WithMaxAttempts returns a copy of the policy with the attempt budget
// overridden, keeping the backoff shape.
func (p RetryPolicy) WithMaxAttempts(n int) RetryPolicy {
	p.MaxAttempts = n
	return p
}
