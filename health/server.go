package health

import (
	"context"
	"fmt"
	"time"

	"github.com/jonwraymond/chwire/pool"
	"github.com/jonwraymond/chwire/transport"
	"github.com/jonwraymond/chwire/wireerr"
)

// Pinger is satisfied by *transport.Client.
type Pinger interface {
	Ping(ctx context.Context) transport.PingResult
}

// statser is implemented by clients that expose pool statistics.
type statser interface {
	Stats() pool.Stats
}

// ServerCheckerConfig configures a ServerChecker.
type ServerCheckerConfig struct {
	// SlowThreshold marks a successful ping slower than this as degraded.
	// Zero disables the latency check.
	SlowThreshold time.Duration
}

// ServerChecker checks a server with ping. A failed ping is unhealthy; a
// slow ping, or callers queued for a socket, is degraded.
type ServerChecker struct {
	name   string
	client Pinger
	config ServerCheckerConfig
}

// NewServerChecker creates a checker pinging through client.
func NewServerChecker(name string, client Pinger, config ServerCheckerConfig) *ServerChecker {
	return &ServerChecker{name: name, client: client, config: config}
}

func (c *ServerChecker) Name() string { return c.name }

func (c *ServerChecker) Check(ctx context.Context) Result {
	start := time.Now()
	res := c.client.Ping(ctx)
	elapsed := time.Since(start)

	details := map[string]any{"latency_ms": elapsed.Milliseconds()}
	var stats *pool.Stats
	if s, ok := c.client.(statser); ok {
		st := s.Stats()
		stats = &st
		details["pool_open"] = st.Open
		details["pool_idle"] = st.Idle
		details["pool_leased"] = st.Leased
		details["pool_waiting"] = st.Waiting
	}

	if !res.Success {
		if kind, ok := wireerr.KindOf(res.Err); ok {
			details["error_kind"] = kind.String()
		}
		return Unhealthy("ping failed", res.Err).WithDetails(details).WithDuration(elapsed)
	}

	switch {
	case c.config.SlowThreshold > 0 && elapsed > c.config.SlowThreshold:
		return Degraded(fmt.Sprintf("ping took %s", elapsed.Round(time.Millisecond))).WithDetails(details).WithDuration(elapsed)
	case stats != nil && stats.Waiting > 0:
		return Degraded(fmt.Sprintf("%d callers waiting for a socket", stats.Waiting)).WithDetails(details).WithDuration(elapsed)
	}
	return Healthy("ping ok").WithDetails(details).WithDuration(elapsed)
}
