package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonwraymond/chwire/auth"
	"github.com/jonwraymond/chwire/observe"
	"github.com/jonwraymond/chwire/secret"
	"github.com/jonwraymond/chwire/transport"
)

// ResolveSecrets returns a copy of c with credentials and header values
// expanded and their secret references resolved. A nil resolver uses
// secret.NewDefaultResolver rooted at the loaded file's directory.
func (c Config) ResolveSecrets(ctx context.Context, r *secret.Resolver) (Config, error) {
	if r == nil {
		r = secret.NewDefaultResolver(c.dir)
	}

	out := c
	fields := []struct {
		name string
		dst  *string
	}{
		{"username", &out.Username},
		{"password", &out.Password},
		{"access_token", &out.AccessToken},
	}
	for _, f := range fields {
		v, err := r.ResolveValue(ctx, *f.dst)
		if err != nil {
			return Config{}, fmt.Errorf("config: %s: %w", f.name, err)
		}
		*f.dst = v
	}

	headers, err := r.ResolveMap(ctx, c.HTTPHeaders)
	if err != nil {
		return Config{}, fmt.Errorf("config: http_headers: %w", err)
	}
	out.HTTPHeaders = headers
	return out, nil
}

// Options translates c into client options. Secrets are used as they are;
// call ResolveSecrets first when the file references any.
func (c Config) Options() ([]transport.Option, error) {
	creds, err := auth.NewCredentials(auth.Config{
		Username:    c.Username,
		Password:    c.Password,
		AccessToken: c.AccessToken,
	})
	if err != nil {
		return nil, fmt.Errorf("config: credentials: %w", err)
	}

	return []transport.Option{
		transport.WithRequestTimeout(millis(c.RequestTimeout)),
		transport.WithMaxOpenConnections(c.MaxOpenConnections),
		transport.WithKeepAlive(c.KeepAlive.Enable),
		transport.WithIdleSocketTTL(millis(c.KeepAlive.IdleSocketTTL)),
		transport.WithShutdownGrace(millis(c.ShutdownGrace)),
		transport.WithDatabase(c.Database),
		transport.WithApplication(c.Application),
		transport.WithSettings(c.ClickHouseSettings),
		transport.WithHTTPHeaders(c.HTTPHeaders),
		transport.WithCredentials(creds),
		transport.WithUnredactedQueries(c.Log.UnsafeLogUnredactedQueries),
	}, nil
}

// Client is a transport.Client that also owns the telemetry providers
// built for it.
type Client struct {
	*transport.Client
	obs observe.Observer
}

// NewClient resolves secrets, sets up logging and telemetry, and creates a
// client. Options in extra are applied last.
func NewClient(ctx context.Context, cfg Config, extra ...transport.Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg, err := cfg.ResolveSecrets(ctx, nil)
	if err != nil {
		return nil, err
	}
	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}

	oc := cfg.observeConfig()
	if oc.ServiceName == "" {
		oc.ServiceName = Default().Observability.ServiceName
	}
	obs, err := observe.NewObserver(ctx, oc)
	if err != nil {
		return nil, fmt.Errorf("config: observability: %w", err)
	}
	opts = append(opts, transport.WithLogger(obs.Logger()))
	if cfg.Observability.enabled() {
		inst, err := observe.InstrumentationFromObserver(obs)
		if err != nil {
			_ = obs.Shutdown(ctx)
			return nil, fmt.Errorf("config: instrumentation: %w", err)
		}
		opts = append(opts, transport.WithInstrumentation(inst))
	}
	if cfg.Observability.Metrics.Enabled {
		opts = append(opts, transport.WithMeter(obs.Meter()))
	}
	opts = append(opts, extra...)

	tc, err := transport.New(cfg.URL, opts...)
	if err != nil {
		_ = obs.Shutdown(ctx)
		return nil, err
	}
	return &Client{Client: tc, obs: obs}, nil
}

// Close closes the client and then flushes its telemetry.
func (c *Client) Close(ctx context.Context) error {
	return errors.Join(c.Client.Close(ctx), c.obs.Shutdown(ctx))
}

// Observer returns the telemetry providers the client reports to.
func (c *Client) Observer() observe.Observer { return c.obs }
