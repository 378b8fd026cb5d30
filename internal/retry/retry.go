// Package retry provides the shared retry-with-backoff executor. Backoff math
// lives in domain.RetryPolicy; classification lives in common.Retryable. This
// package only drives the loop.
package retry

import (
	"context"
	"time"

	"github.com/hxuan190/sell-engine/internal/common"
	"github.com/hxuan190/sell-engine/internal/domain"
)

// SleepFunc sleeps for d or returns early with the context error. Tests
// substitute a recording implementation.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the production SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Do runs op up to policy.MaxAttempts+1 times. A nil error stops the loop; a
// non-retryable error short-circuits immediately; a retryable error sleeps
// policy.Delay(attempt) and tries again until the budget is spent, at which
// point the last error is returned unchanged.
func Do(ctx context.Context, policy domain.RetryPolicy, sleep SleepFunc, op func(attempt int) error) error {
	if sleep == nil {
		sleep = Sleep
	}
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := op(attempt)
		if err == nil {
			return nil
		}
		if !common.Retryable(err) || attempt > policy.MaxAttempts {
			return err
		}
		if serr := sleep(ctx, policy.Delay(attempt)); serr != nil {
			return serr
		}
	}
}
