package util

import (
	"context"
	"errors"
	"time"
)

// RetryErrWithContext calls fn up to maxTries times until it returns nil,
// waiting backoff (doubled after every failure) between attempts. Context
// errors are returned immediately.
func RetryErrWithContext(ctx context.Context, maxTries int, backoff time.Duration, fn func(context.Context) error) error {
	if maxTries <= 0 {
		maxTries = 1
	}

	var lastErr error
	for i := 0; i < maxTries; i++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		lastErr = err
		if backoff > 0 && i < maxTries-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}
	return lastErr
}

// RetryWithContext is RetryErrWithContext for functions that return a
// value.
func RetryWithContext[T any](ctx context.Context, maxTries int, backoff time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var result T
	err := RetryErrWithContext(ctx, maxTries, backoff, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	return result, err
}
