package ticket

import (
	"context"
	"time"
)

// RetryPolicy retries an operation with exponential backoff.  The
// Sleep hook exists so tests can drive the policy with a fake clock
// instead of waiting out real delays.
type RetryPolicy struct {
	MaxAttempts int                 // total attempts including the first
	BaseDelay   time.Duration       // delay before the second attempt
	Multiplier  int                 // delay growth factor per attempt
	Sleep       func(time.Duration) // nil means time.Sleep
}

// DefaultRetryPolicy mirrors the delivery policy used after payment
// confirmation: one initial attempt plus two retries, starting at
// five seconds and doubling.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: 5 * time.Second, Multiplier: 2}
}

// Do runs fn until it succeeds or attempts are exhausted, sleeping
// between attempts.  The last error is returned on exhaustion.  A
// cancelled context stops further attempts.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	delay := p.BaseDelay
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		sleep(delay)
		if p.Multiplier > 1 {
			delay *= time.Duration(p.Multiplier)
		}
	}
	return err
}
