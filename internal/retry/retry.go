// Package retry wraps external calls in a fixed linear backoff.
package retry

import (
	"context"
	"errors"
	"time"

	goretry "github.com/sethvargo/go-retry"
)

const (
	DefaultAttempts  = 3
	DefaultBaseDelay = time.Second
)

// Linear returns a backoff that waits baseDelay*n after the n-th failed
// attempt and stops once attempts calls have been made.
func Linear(attempts int, baseDelay time.Duration) goretry.Backoff {
	if attempts < 1 {
		attempts = DefaultAttempts
	}
	if baseDelay < 0 {
		baseDelay = DefaultBaseDelay
	}
	n := 0
	return goretry.BackoffFunc(func() (time.Duration, bool) {
		n++
		if n >= attempts {
			return 0, true
		}
		return baseDelay * time.Duration(n), false
	})
}

// Do runs fn until it succeeds or attempts are exhausted, returning the last
// error. Waiting between attempts stops early when ctx is done.
func Do(ctx context.Context, attempts int, baseDelay time.Duration, fn func(ctx context.Context) error) error {
	var last error
	err := goretry.Do(ctx, Linear(attempts, baseDelay), func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			last = err
			return goretry.RetryableError(err)
		}
		return nil
	})
	if err != nil && last != nil && errors.Is(err, last) {
		return last
	}
	return err
}

// Value is Do for operations that produce a result.
func Value[T any](ctx context.Context, attempts int, baseDelay time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := Do(ctx, attempts, baseDelay, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	return result, err
}
