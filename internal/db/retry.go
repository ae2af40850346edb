package db

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Retrier re-runs read operations that failed with a transient error.
type Retrier struct {
	maxRetries uint64
	initial    time.Duration
}

func NewRetrier(maxRetries uint64) *Retrier {
	return &Retrier{maxRetries: maxRetries, initial: 50 * time.Millisecond}
}

// Do calls fn until it succeeds, returns a non-transient error, the retry
// budget is spent or ctx is done. A nil Retrier calls fn once.
func (r *Retrier) Do(ctx context.Context, fn func() error) error {
	if r == nil || r.maxRetries == 0 {
		return fn()
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = r.initial
	eb.MaxInterval = time.Second
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, r.maxRetries), ctx)

	return backoff.Retry(func() error {
		err := fn()
		if err != nil && !IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
}
