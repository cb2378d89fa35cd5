// Package resilience provides caller-side retry and circuit breaking for
// client calls.
//
// The transport never retries on its own: a failed call yields exactly one
// error. Callers that want retries opt in here. Policies are kind-aware:
// by default only retryable transport failures (timeouts, refused or reset
// connections, hang-ups, truncated bodies) are retried, and only transport
// failures count against the circuit breaker. Server exceptions and protocol
// errors pass straight through.
//
//	retry := resilience.NewRetry(resilience.RetryConfig{
//	    MaxAttempts:  4,
//	    InitialDelay: 50 * time.Millisecond,
//	    Jitter:       0.2,
//	})
//	exec := resilience.NewExecutor(
//	    resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{})),
//	    resilience.WithRetry(retry),
//	)
//	err := exec.Execute(ctx, func(ctx context.Context) error {
//	    _, err := client.Command(ctx, transport.CommandParams{Query: "SYSTEM FLUSH LOGS"})
//	    return err
//	})
//
// Retrying a non-idempotent insert may duplicate data; pass a RetryIf that
// fits the statement.
package resilience
