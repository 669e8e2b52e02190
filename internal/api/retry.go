package api

import (
	"context"
	"time"
)

// RetryPolicy governs retries of requests that got no response at all.
// HTTP statuses are never retried by this policy; 401 goes through Refresh.
type RetryPolicy struct {
	MaxRetries int
	Delay      time.Duration
}

// DefaultRetryPolicy is two retries, 500ms apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 2, Delay: 500 * time.Millisecond}
}

// wait sleeps for the fixed delay or until ctx is done.
func (p RetryPolicy) wait(ctx context.Context) error {
	if p.Delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(p.Delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
