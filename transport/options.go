package transport

import (
	"crypto/tls"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/jonwraymond/chwire/auth"
	"github.com/jonwraymond/chwire/observe"
	"github.com/jonwraymond/chwire/pool"
)

// Defaults applied by New.
const (
	DefaultRequestTimeout     = 30 * time.Second
	DefaultMaxOpenConnections = 10
	DefaultIdleSocketTTL      = 2500 * time.Millisecond
	DefaultShutdownGrace      = 5 * time.Second
)

type config struct {
	requestTimeout time.Duration
	maxOpen        int
	keepAlive      bool
	idleTTL        time.Duration
	shutdownGrace  time.Duration

	database    string
	application string
	settings    map[string]string
	headers     http.Header
	credentials auth.Credentials

	logger          observe.Logger
	redaction       observe.RedactionPolicy
	instrumentation *observe.Instrumentation
	meter           metric.Meter

	dialer    pool.Dialer
	tlsConfig *tls.Config
}

// Option configures a New(...) call.
type Option func(*config)

func defaultConfig() config {
	return config{
		requestTimeout: DefaultRequestTimeout,
		maxOpen:        DefaultMaxOpenConnections,
		keepAlive:      true,
		idleTTL:        DefaultIdleSocketTTL,
		shutdownGrace:  DefaultShutdownGrace,
		credentials:    auth.None{},
		logger:         observe.NoopLogger(),
	}
}

// WithRequestTimeout sets the default per-request timeout. Non-positive
// values are ignored.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.requestTimeout = d
		}
	}
}

// WithMaxOpenConnections sets the socket ceiling. Default 10.
func WithMaxOpenConnections(n int) Option {
	return func(c *config) { c.maxOpen = n }
}

// WithKeepAlive enables or disables socket reuse. When disabled every request
// sends "Connection: close" and its socket is destroyed afterwards.
func WithKeepAlive(enabled bool) Option {
	return func(c *config) { c.keepAlive = enabled }
}

// WithIdleSocketTTL sets how long a released socket may stay idle. It should
// stay below the server's keep_alive_timeout. Zero disables expiry.
func WithIdleSocketTTL(d time.Duration) Option {
	return func(c *config) { c.idleTTL = d }
}

// WithShutdownGrace bounds how long Close waits for in-flight requests.
func WithShutdownGrace(d time.Duration) Option {
	return func(c *config) { c.shutdownGrace = d }
}

// WithDatabase sets the default database.
func WithDatabase(name string) Option {
	return func(c *config) { c.database = name }
}

// WithApplication prefixes the User-Agent with name.
func WithApplication(name string) Option {
	return func(c *config) { c.application = name }
}

// WithSettings sets server settings sent with every statement.
func WithSettings(settings map[string]string) Option {
	return func(c *config) {
		if c.settings == nil {
			c.settings = make(map[string]string, len(settings))
		}
		for k, v := range settings {
			c.settings[k] = v
		}
	}
}

// WithHTTPHeaders adds headers to every request.
func WithHTTPHeaders(headers map[string]string) Option {
	return func(c *config) {
		if c.headers == nil {
			c.headers = make(http.Header, len(headers))
		}
		for k, v := range headers {
			c.headers.Set(k, v)
		}
	}
}

// WithCredentials sets request authentication. Default auth.None.
func WithCredentials(creds auth.Credentials) Option {
	return func(c *config) {
		if creds != nil {
			c.credentials = creds
		}
	}
}

// WithLogger sets the log event sink. Default discards.
func WithLogger(l observe.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithUnredactedQueries passes query text and URL parameters to the logger
// unchanged. Leave it off unless logs are as protected as the data.
func WithUnredactedQueries(enabled bool) Option {
	return func(c *config) { c.redaction = observe.RedactionPolicy{Unredacted: enabled} }
}

// WithInstrumentation sets the tracer and metrics each request reports to.
func WithInstrumentation(in *observe.Instrumentation) Option {
	return func(c *config) { c.instrumentation = in }
}

// WithMeter exports pool statistics as observable gauges on meter.
func WithMeter(m metric.Meter) Option {
	return func(c *config) { c.meter = m }
}

// WithDialer replaces the default *net.Dialer.
func WithDialer(d pool.Dialer) Option {
	return func(c *config) { c.dialer = d }
}

// WithTLSConfig sets the TLS configuration for https URLs.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(c *config) { c.tlsConfig = cfg }
}
