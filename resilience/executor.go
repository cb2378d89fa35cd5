package resilience

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/jonwraymond/chwire/transport"
)

// Executor composes a circuit breaker around a retry policy.
type Executor struct {
	circuitBreaker *CircuitBreaker
	retry          *Retry
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// NewExecutor creates an Executor. Without options it runs op once.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithCircuitBreaker guards calls with cb.
func WithCircuitBreaker(cb *CircuitBreaker) ExecutorOption {
	return func(e *Executor) { e.circuitBreaker = cb }
}

// WithRetry retries calls with r.
func WithRetry(r *Retry) ExecutorOption {
	return func(e *Executor) { e.retry = r }
}

// Execute runs op. The breaker sees one outcome per Execute, however many
// attempts the retry policy made.
func (e *Executor) Execute(ctx context.Context, op func(context.Context) error) error {
	execute := op

	if e.retry != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return e.retry.Execute(ctx, inner)
		}
	}

	if e.circuitBreaker != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return e.circuitBreaker.Execute(ctx, inner)
		}
	}

	return execute(ctx)
}

// Pinger is satisfied by *transport.Client.
type Pinger interface {
	Ping(ctx context.Context) transport.PingResult
}

// WaitReachable pings until the server answers or ctx ends, backing off
// between attempts from initial up to maxDelay. It returns the last ping error
// when ctx ends first.
func WaitReachable(ctx context.Context, p Pinger, initial, maxDelay time.Duration) error {
	b := backoff.NewExponentialBackOff()
	if initial > 0 {
		b.InitialInterval = initial
	}
	if maxDelay > 0 {
		b.MaxInterval = maxDelay
	}
	b.Reset()

	for {
		res := p.Ping(ctx)
		if res.Success {
			return nil
		}
		delay := b.NextBackOff()
		if delay == backoff.Stop {
			delay = b.MaxInterval
		}
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			if res.Err != nil {
				return res.Err
			}
			return ctx.Err()
		case <-t.C:
		}
	}
}
