package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/chwire/observe"
)

// Config is the YAML client configuration.
type Config struct {
	URL                string              `yaml:"url"`
	RequestTimeout     int                 `yaml:"request_timeout"`
	MaxOpenConnections int                 `yaml:"max_open_connections"`
	Database           string              `yaml:"database"`
	Username           string              `yaml:"username"`
	Password           string              `yaml:"password"`
	AccessToken        string              `yaml:"access_token"`
	Application        string              `yaml:"application"`
	KeepAlive          KeepAliveConfig     `yaml:"keep_alive"`
	Log                LogConfig           `yaml:"log"`
	ClickHouseSettings map[string]string   `yaml:"clickhouse_settings"`
	HTTPHeaders        map[string]string   `yaml:"http_headers"`
	ShutdownGrace      int                 `yaml:"shutdown_grace"`
	Observability      ObservabilityConfig `yaml:"observability"`

	// dir is the directory of the loaded file; relative secret file
	// references resolve against it.
	dir string
}

// KeepAliveConfig controls socket reuse.
type KeepAliveConfig struct {
	Enable        bool `yaml:"enable"`
	IdleSocketTTL int  `yaml:"idle_socket_ttl"`
}

// LogConfig controls the client's log events.
type LogConfig struct {
	Level string `yaml:"level"`
	// UnsafeLogUnredactedQueries logs query text and bound parameters.
	UnsafeLogUnredactedQueries bool `yaml:"unsafe_log_unredacted_queries"`
}

// ObservabilityConfig enables OpenTelemetry export of request spans and
// metrics.
type ObservabilityConfig struct {
	ServiceName string        `yaml:"service_name"`
	Tracing     TracingConfig `yaml:"tracing"`
	Metrics     MetricsConfig `yaml:"metrics"`
}

// TracingConfig selects the span exporter.
type TracingConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Exporter  string  `yaml:"exporter"`
	SamplePct float64 `yaml:"sample_pct"`
}

// MetricsConfig selects the metrics reader.
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
}

// Default returns the configuration used for keys a document leaves out.
func Default() Config {
	return Config{
		URL:                "http://localhost:8123",
		RequestTimeout:     30000,
		MaxOpenConnections: 10,
		KeepAlive:          KeepAliveConfig{Enable: true, IdleSocketTTL: 2500},
		Log:                LogConfig{Level: "warn"},
		ShutdownGrace:      5000,
		Observability:      ObservabilityConfig{ServiceName: "chwire", Tracing: TracingConfig{SamplePct: 1}},
	}
}

// Load reads and validates the YAML file at path.
func Load(path string) (Config, error) {
	f, err := os.Open(path) // #nosec G304 -- path is operator-supplied configuration.
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer func() { _ = f.Close() }()

	cfg, err := Decode(f)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	cfg.dir = filepath.Dir(path)
	return cfg, nil
}

// Decode reads and validates one YAML document. An empty document yields
// the defaults.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the values a client cannot work with.
func (c Config) Validate() error {
	u, err := url.Parse(c.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidURL, c.URL)
	}
	if c.MaxOpenConnections < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidMaxOpen, c.MaxOpenConnections)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%w: request_timeout %d", ErrInvalidTimeout, c.RequestTimeout)
	}
	if c.KeepAlive.IdleSocketTTL < 0 {
		return fmt.Errorf("%w: keep_alive.idle_socket_ttl %d", ErrInvalidTimeout, c.KeepAlive.IdleSocketTTL)
	}
	if c.ShutdownGrace < 0 {
		return fmt.Errorf("%w: shutdown_grace %d", ErrInvalidTimeout, c.ShutdownGrace)
	}
	if !slices.Contains(observe.ValidLogLevels, c.Log.Level) {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Log.Level)
	}
	if c.Observability.enabled() {
		oc := c.observeConfig()
		if err := oc.Validate(); err != nil {
			return fmt.Errorf("config: observability: %w", err)
		}
	}
	return nil
}

func (o ObservabilityConfig) enabled() bool {
	return o.Tracing.Enabled || o.Metrics.Enabled
}

func (c Config) observeConfig() observe.Config {
	return observe.Config{
		ServiceName: c.Observability.ServiceName,
		Tracing: observe.TracingConfig{
			Enabled:   c.Observability.Tracing.Enabled,
			Exporter:  c.Observability.Tracing.Exporter,
			SamplePct: c.Observability.Tracing.SamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  c.Observability.Metrics.Enabled,
			Exporter: c.Observability.Metrics.Exporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: c.Log.Level != "off",
			Level:   c.Log.Level,
		},
	}
}

func millis(ms int) time.Duration { return time.Duration(ms) * time.Millisecond }
