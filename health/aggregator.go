package health

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/chwire/wireerr"
)

const defaultCheckTimeout = 10 * time.Second

// AggregatorConfig configures an Aggregator.
type AggregatorConfig struct {
	// Timeout bounds a CheckAll call. Default: 10s
	Timeout time.Duration

	// MaxConcurrent bounds checks running at once; zero runs all at once and
	// one runs them in registration order.
	MaxConcurrent int
}

type entry struct {
	name    string
	checker Checker
}

// Aggregator checks a set of destinations, typically one ServerChecker per
// server a process talks to, and folds their results into one status.
type Aggregator struct {
	cfg AggregatorConfig

	mu      sync.RWMutex
	entries []entry
}

// NewAggregator creates an aggregator. Only the first config is used.
func NewAggregator(config ...AggregatorConfig) *Aggregator {
	var cfg AggregatorConfig
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultCheckTimeout
	}
	return &Aggregator{cfg: cfg}
}

// Register adds checker under name. A checker already registered under name
// is replaced and keeps its position.
func (a *Aggregator) Register(name string, checker Checker) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if i := a.indexLocked(name); i >= 0 {
		a.entries[i].checker = checker
		return
	}
	a.entries = append(a.entries, entry{name: name, checker: checker})
}

// Unregister removes the checker registered under name.
func (a *Aggregator) Unregister(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = slices.DeleteFunc(a.entries, func(e entry) bool { return e.name == name })
}

// CheckerNames returns the checker names in registration order.
func (a *Aggregator) CheckerNames() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	names := make([]string, len(a.entries))
	for i, e := range a.entries {
		names[i] = e.name
	}
	return names
}

// Check runs one named checker under the aggregator's timeout.
func (a *Aggregator) Check(ctx context.Context, name string) (Result, error) {
	a.mu.RLock()
	i := a.indexLocked(name)
	var checker Checker
	if i >= 0 {
		checker = a.entries[i].checker
	}
	a.mu.RUnlock()

	if checker == nil {
		return Result{}, ErrCheckerNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()
	return runCheck(ctx, checker), nil
}

// CheckAll runs every checker and returns the results by name.
func (a *Aggregator) CheckAll(ctx context.Context) map[string]Result {
	a.mu.RLock()
	entries := slices.Clone(a.entries)
	a.mu.RUnlock()

	results := make([]Result, len(entries))
	if len(entries) > 0 {
		ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()

		var g errgroup.Group
		if a.cfg.MaxConcurrent > 0 {
			g.SetLimit(a.cfg.MaxConcurrent)
		}
		for i, e := range entries {
			g.Go(func() error {
				results[i] = runCheck(ctx, e.checker)
				return nil
			})
		}
		_ = g.Wait()
	}

	byName := make(map[string]Result, len(entries))
	for i, e := range entries {
		byName[e.name] = results[i]
	}
	return byName
}

// OverallStatus is the worst status in results; no results is healthy.
func (a *Aggregator) OverallStatus(results map[string]Result) Status {
	worst := StatusHealthy
	for _, r := range results {
		worst = max(worst, r.Status)
	}
	return worst
}

func (a *Aggregator) indexLocked(name string) int {
	return slices.IndexFunc(a.entries, func(e entry) bool { return e.name == name })
}

// runCheck returns when checker does or when ctx ends, whichever is first; a
// checker that ignores ctx is abandoned and reported as timed out.
func runCheck(ctx context.Context, checker Checker) Result {
	start := time.Now()
	done := make(chan Result, 1)
	go func() {
		r := checker.Check(ctx)
		if r.Duration == 0 {
			r.Duration = time.Since(start)
		}
		if r.Timestamp.IsZero() {
			r.Timestamp = start
		}
		done <- r
	}()

	select {
	case r := <-done:
		return r
	case <-ctx.Done():
		r := Unhealthy("check timed out", ErrCheckTimeout).
			WithDetails(map[string]any{"error_kind": wireerr.KindTimeout.String()}).
			WithDuration(time.Since(start))
		r.Timestamp = start
		return r
	}
}

// poolDetailKeys are the ServerChecker details summed across destinations.
var poolDetailKeys = []string{"pool_open", "pool_idle", "pool_leased", "pool_waiting"}

// Checker exposes the aggregate as one Checker. Its details hold one entry
// per destination plus pool totals.
func (a *Aggregator) Checker() Checker {
	return &aggregatorChecker{agg: a}
}

type aggregatorChecker struct {
	agg *Aggregator
}

func (c *aggregatorChecker) Name() string { return "aggregate" }

func (c *aggregatorChecker) Check(ctx context.Context) Result {
	results := c.agg.CheckAll(ctx)

	details := make(map[string]any, len(results)+len(poolDetailKeys))
	totals := make(map[string]int, len(poolDetailKeys))
	healthy := 0
	for name, r := range results {
		if r.Status == StatusHealthy {
			healthy++
		}
		dest := map[string]any{
			"status":     r.Status.String(),
			"message":    r.Message,
			"latency_ms": r.Duration.Milliseconds(),
		}
		for k, v := range r.Details {
			dest[k] = v
		}
		for _, k := range poolDetailKeys {
			if n, ok := r.Details[k].(int); ok {
				totals[k] += n
			}
		}
		details[name] = dest
	}
	for k, n := range totals {
		details[k+"_total"] = n
	}

	return Result{
		Status:    c.agg.OverallStatus(results),
		Message:   fmt.Sprintf("%d of %d destinations healthy", healthy, len(results)),
		Details:   details,
		Timestamp: time.Now(),
	}
}
