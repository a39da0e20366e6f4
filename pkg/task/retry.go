// Package task holds the retry policy applied to individual cloud calls.
package task

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// RetryPolicy defines how an operation should be retried
type RetryPolicy struct {
	MaxAttempts       int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	InitialDelay      time.Duration `mapstructure:"initial_delay" yaml:"initial_delay"`
	MaxDelay          time.Duration `mapstructure:"max_delay" yaml:"max_delay"`
	BackoffMultiplier float64       `mapstructure:"multiplier" yaml:"multiplier"`
}

// DefaultRetryPolicy is used by cloud calls when no policy is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:       3,
		InitialDelay:      time.Second,
		MaxDelay:          30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// NoRetry runs an operation exactly once.
func NoRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 1}
}

// Validate checks the policy for nonsensical values.
func (p RetryPolicy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("retry: max attempts must be at least 1, got %d", p.MaxAttempts)
	}
	if p.InitialDelay < 0 || p.MaxDelay < 0 {
		return fmt.Errorf("retry: delays must be non-negative")
	}
	if p.MaxAttempts > 1 && p.BackoffMultiplier < 1 {
		return fmt.Errorf("retry: backoff multiplier must be >= 1, got %v", p.BackoffMultiplier)
	}
	return nil
}

// nextDelay returns the delay to use after d.
func (p RetryPolicy) nextDelay(d time.Duration) time.Duration {
	next := time.Duration(float64(d) * p.BackoffMultiplier)
	if p.MaxDelay > 0 && next > p.MaxDelay {
		next = p.MaxDelay
	}
	return next
}

// Retryable decides whether an error is worth another attempt.
type Retryable func(err error) bool

// RetryAll retries every error except context cancellation.
func RetryAll(err error) bool {
	return !errors.Is(err, context.Canceled)
}

// RetryHook is called before each retry with the attempt about to run.
type RetryHook func(attempt int, delay time.Duration, lastErr error)

// Retry runs fn until it succeeds, the policy is exhausted, retryable rejects
// the error, or ctx is done.
func Retry(ctx context.Context, policy RetryPolicy, retryable Retryable, fn func(ctx context.Context) error, hooks ...RetryHook) error {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if retryable == nil {
		retryable = RetryAll
	}

	var lastErr error
	delay := policy.InitialDelay

	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			for _, h := range hooks {
				h(attempt+1, delay, lastErr)
			}

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return errors.Join(lastErr, ctx.Err())
			case <-timer.C:
			}

			delay = policy.nextDelay(delay)
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}
	}

	if policy.MaxAttempts == 1 {
		return lastErr
	}
	return fmt.Errorf("failed after %d attempts: %w", policy.MaxAttempts, lastErr)
}
