package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/metric"

	"github.com/jonwraymond/chwire/observe"
	"github.com/jonwraymond/chwire/pool"
)

// Version is reported in the User-Agent header.
const Version = "1.0.0"

var (
	// ErrInvalidURL is returned by New for URLs it cannot connect to.
	ErrInvalidURL = errors.New("transport: invalid url")

	// ErrMissingTable is returned by Insert without a table name.
	ErrMissingTable = errors.New("transport: insert requires a table")
)

// Client executes operations against one server.
//
// Contract:
// - Concurrency: safe for concurrent use; each call leases its own socket.
// - Context: every call honors ctx cancellation in addition to its timeout.
// - Errors: transport failures are *wireerr.Error, server exceptions
//   *wireerr.ServerError. Nothing is retried implicitly.
type Client struct {
	cfg       config
	base      *url.URL
	userAgent string
	pool      *pool.Pool
	events    *observe.Emitter
	inst      *observe.Instrumentation
	gauges    metric.Registration
}

// New creates a client for rawURL (http or https, default port 8123).
func New(rawURL string, opts ...Option) (*Client, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	base, dest, err := parseDestination(rawURL, cfg.tlsConfig)
	if err != nil {
		return nil, err
	}

	events := observe.NewEmitter(cfg.logger, cfg.redaction)
	p, err := pool.New(dest, pool.Options{
		MaxOpen:   cfg.maxOpen,
		KeepAlive: cfg.keepAlive,
		IdleTTL:   cfg.idleTTL,
		Dialer:    cfg.dialer,
		Emitter:   events,
	})
	if err != nil {
		return nil, err
	}

	inst := cfg.instrumentation
	if inst == nil {
		inst = observe.NoopInstrumentation()
	}

	c := &Client{
		cfg:       cfg,
		base:      base,
		userAgent: userAgent(cfg.application),
		pool:      p,
		events:    events,
		inst:      inst,
	}

	if cfg.meter != nil {
		reg, err := observe.RegisterPoolGauges(cfg.meter, dest.Address, c.poolSnapshot)
		if err != nil {
			return nil, fmt.Errorf("transport: register pool gauges: %w", err)
		}
		c.gauges = reg
	}
	return c, nil
}

func parseDestination(rawURL string, tlsConfig *tls.Config) (*url.URL, pool.Destination, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, pool.Destination{}, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Host == "" {
		return nil, pool.Destination{}, fmt.Errorf("%w: %q has no host", ErrInvalidURL, rawURL)
	}

	dest := pool.Destination{Network: "tcp"}
	port := u.Port()
	switch u.Scheme {
	case "http":
		if port == "" {
			port = "8123"
		}
	case "https":
		if port == "" {
			port = "8443"
		}
		dest.TLS = tlsConfig
		if dest.TLS == nil {
			dest.TLS = &tls.Config{MinVersion: tls.VersionTLS12}
		}
	default:
		return nil, pool.Destination{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	dest.Address = net.JoinHostPort(u.Hostname(), port)

	base := &url.URL{Scheme: u.Scheme, Host: dest.Address, Path: strings.TrimRight(u.Path, "/")}
	return base, dest, nil
}

func userAgent(application string) string {
	ua := "chwire/" + Version
	if application != "" {
		ua = application + " " + ua
	}
	return ua
}

// Ping checks reachability with GET /ping. It never returns an error
// directly; a failure is reported in PingResult.Err.
func (c *Client) Ping(ctx context.Context) PingResult {
	_, err := c.execute(ctx, pingRequest())
	if err != nil {
		return PingResult{Success: false, Err: err}
	}
	return PingResult{Success: true}
}

// Query sends a query and returns its result as a stream.
func (c *Client) Query(ctx context.Context, p QueryParams) (*Result, error) {
	return c.execute(ctx, c.queryRequest(p))
}

// Insert streams p.Values into p.Table.
func (c *Client) Insert(ctx context.Context, p InsertParams) (*InsertResult, error) {
	if p.Table == "" {
		return nil, ErrMissingTable
	}
	if p.Values == nil {
		p.Values = strings.NewReader("")
	}
	res, err := c.execute(ctx, c.insertRequest(p))
	if err != nil {
		return nil, err
	}
	return &InsertResult{QueryID: res.QueryID, Header: res.Header, Summary: res.Summary}, nil
}

// Exec sends a statement and returns the response stream.
func (c *Client) Exec(ctx context.Context, p ExecParams) (*Result, error) {
	return c.execute(ctx, c.execRequest(OpExec, p))
}

// Command sends a statement and discards the response body.
func (c *Client) Command(ctx context.Context, p CommandParams) (*CommandResult, error) {
	res, err := c.execute(ctx, c.execRequest(OpCommand, p))
	if err != nil {
		return nil, err
	}
	return &CommandResult{QueryID: res.QueryID, Header: res.Header, Summary: res.Summary}, nil
}

// Close shuts the pool down: new calls fail, idle sockets close at once and
// in-flight requests get the shutdown grace period to finish.
func (c *Client) Close(ctx context.Context) error {
	if c.gauges != nil {
		_ = c.gauges.Unregister()
	}
	return c.pool.Shutdown(ctx, c.cfg.shutdownGrace)
}

// Stats returns the pool statistics.
func (c *Client) Stats() pool.Stats { return c.pool.Stats() }

func (c *Client) poolSnapshot() observe.PoolSnapshot {
	s := c.pool.Stats()
	return observe.PoolSnapshot{Open: s.Open, Idle: s.Idle, Leased: s.Leased, Waiting: s.Waiting}
}

// drain reads and discards a body, returning the read error.
func drain(r io.Reader) error {
	_, err := io.Copy(io.Discard, r)
	return err
}
