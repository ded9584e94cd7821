package cache

import (
	"context"
	"time"

	"github.com/avast/retry-go"
)

const (
	DefaultRetryAttempts = 3
	DefaultRetryDelay    = 100 * time.Millisecond
)

// RetryPolicy wraps an operation in exponential backoff: the n-th retry
// waits BaseDelay * 2^n. The last error is returned once attempts are
// exhausted.
type RetryPolicy struct {
	Attempts  uint
	BaseDelay time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: DefaultRetryAttempts, BaseDelay: DefaultRetryDelay}
}

// Do runs op until it succeeds or attempts run out. Context cancellation
// aborts the backoff wait and surfaces ctx.Err().
func (p RetryPolicy) Do(ctx context.Context, op func() error) error {
	attempts := p.Attempts
	if attempts == 0 {
		attempts = DefaultRetryAttempts
	}
	delay := p.BaseDelay
	if delay <= 0 {
		delay = DefaultRetryDelay
	}
	return retry.Do(op,
		retry.Attempts(attempts),
		retry.Delay(delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
}
