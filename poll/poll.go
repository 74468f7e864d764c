// Package poll evaluates a boolean condition at a fixed interval until it reaches a target value
// or an attempt budget runs out.
package poll

import (
	"context"
	"time"
)

// Condition reports the currently observed value. It may block, e.g. on a subprocess.
type Condition func(ctx context.Context) (bool, error)

// Until evaluates cond at most maxAttempts times, sleeping interval between non-matching attempts.
// It returns as soon as cond reports target, and never sleeps after a match or after the last attempt.
// The returned value is the last observed one, so callers compare it to target to tell a match from a timeout.
// An error from cond ends the loop immediately.
func Until(ctx context.Context, cond Condition, target bool, maxAttempts int, interval time.Duration) (bool, error) {
	observed := !target
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		v, err := cond(ctx)
		if err != nil {
			return observed, err
		}
		observed = v
		if observed == target || attempt == maxAttempts {
			break
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return observed, ctx.Err()
		case <-timer.C:
		}
	}
	return observed, nil
}
