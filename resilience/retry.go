package resilience

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/jonwraymond/chwire/wireerr"
)

// RetryConfig configures Retry.
type RetryConfig struct {
	// MaxAttempts includes the first call. Default: 3
	MaxAttempts int

	// InitialDelay is the delay before the first retry. Default: 100ms
	InitialDelay time.Duration

	// MaxDelay caps a single delay. Default: 30s
	MaxDelay time.Duration

	// Multiplier grows the delay after each retry. Default: 2.0
	Multiplier float64

	// Jitter is the randomization factor applied to each delay, in [0, 1).
	// Zero means no jitter.
	Jitter float64

	// RetryIf decides whether err is worth another attempt.
	// Default: wireerr.Retryable, so server exceptions, protocol errors and
	// cancellation are returned at once.
	RetryIf func(err error) bool

	// OnRetry is called before each retry.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Retry re-runs failed operations with exponential backoff. The client never
// retries on its own; callers opt in by wrapping calls, e.g. with Do.
type Retry struct {
	config RetryConfig
}

// NewRetry creates a Retry, applying defaults to zero fields.
func NewRetry(config RetryConfig) *Retry {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = 100 * time.Millisecond
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 30 * time.Second
	}
	if config.Multiplier <= 0 {
		config.Multiplier = 2.0
	}
	if config.Jitter < 0 || config.Jitter >= 1 {
		config.Jitter = 0
	}
	if config.RetryIf == nil {
		config.RetryIf = wireerr.Retryable
	}
	return &Retry{config: config}
}

// Config returns the effective configuration.
func (r *Retry) Config() RetryConfig {
	return r.config
}

func (r *Retry) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.config.InitialDelay
	b.MaxInterval = r.config.MaxDelay
	b.Multiplier = r.config.Multiplier
	b.RandomizationFactor = r.config.Jitter
	b.Reset()
	return b
}

// Execute runs op until it succeeds, returns a non-retryable error, runs out
// of attempts or ctx ends.
func (r *Retry) Execute(ctx context.Context, op func(context.Context) error) error {
	_, err := Do(ctx, r, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// Do is Execute for operations that return a value.
func Do[T any](ctx context.Context, r *Retry, op func(context.Context) (T, error)) (T, error) {
	b := r.newBackOff()
	for attempt := 1; ; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		if !r.config.RetryIf(err) {
			return v, err
		}
		if attempt >= r.config.MaxAttempts {
			return v, fmt.Errorf("%w after %d attempts: %w", ErrMaxRetriesExceeded, attempt, err)
		}

		delay := b.NextBackOff()
		if delay == backoff.Stop {
			return v, fmt.Errorf("%w after %d attempts: %w", ErrMaxRetriesExceeded, attempt, err)
		}
		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, err, delay)
		}

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return v, ctx.Err()
		case <-t.C:
		}
	}
}
