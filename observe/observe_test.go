package observe

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/jonwraymond/chwire/observe/exporters"
)

func init() {
	exporters.Stdout = io.Discard
}

func TestConfigValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			ServiceName: "test-service",
			Version:     "1.0.0",
			Tracing:     TracingConfig{Enabled: true, Exporter: "stdout", SamplePct: 1.0},
			Metrics:     MetricsConfig{Enabled: true, Exporter: "stdout"},
			Logging:     LoggingConfig{Enabled: true, Level: "debug"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing service name", mutate: func(c *Config) { c.ServiceName = "" }, wantErr: ErrMissingServiceName},
		{name: "unknown tracing exporter", mutate: func(c *Config) { c.Tracing.Exporter = "zipkin" }, wantErr: ErrInvalidTracingExporter},
		{name: "sample pct above range", mutate: func(c *Config) { c.Tracing.SamplePct = 1.5 }, wantErr: ErrInvalidSamplePct},
		{name: "sample pct negative", mutate: func(c *Config) { c.Tracing.SamplePct = -0.1 }, wantErr: ErrInvalidSamplePct},
		{name: "unknown metrics exporter", mutate: func(c *Config) { c.Metrics.Exporter = "statsd" }, wantErr: ErrInvalidMetricsExporter},
		{name: "unknown log level", mutate: func(c *Config) { c.Logging.Level = "verbose" }, wantErr: ErrInvalidLogLevel},
		{name: "disabled parts are not checked", mutate: func(c *Config) {
			c.Tracing = TracingConfig{Exporter: "zipkin"}
			c.Metrics = MetricsConfig{Exporter: "statsd"}
			c.Logging = LoggingConfig{Level: "verbose"}
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestNewObserver_DisabledNoop(t *testing.T) {
	obs, err := NewObserver(context.Background(), Config{ServiceName: "test-service"})
	if err != nil {
		t.Fatalf("NewObserver: %v", err)
	}
	if obs.Tracer() == nil || obs.Meter() == nil || obs.Logger() == nil {
		t.Fatal("disabled observer must still return usable primitives")
	}
	if err := obs.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}

func TestNewObserver_Enabled(t *testing.T) {
	var buf bytes.Buffer
	obs, err := NewObserver(context.Background(), Config{
		ServiceName: "test-service",
		Tracing:     TracingConfig{Enabled: true, Exporter: "stdout", SamplePct: 0.5},
		Metrics:     MetricsConfig{Enabled: true, Exporter: "stdout"},
		Logging:     LoggingConfig{Enabled: true, Level: "info", Writer: &buf},
	})
	if err != nil {
		t.Fatalf("NewObserver: %v", err)
	}

	obs.Logger().Info(context.Background(), "hello")
	if buf.Len() == 0 {
		t.Error("expected logger to write to the configured writer")
	}

	inst, err := InstrumentationFromObserver(obs)
	if err != nil {
		t.Fatalf("InstrumentationFromObserver: %v", err)
	}
	_, finish := inst.Start(context.Background(), RequestMeta{Operation: "ping"})
	finish(nil)

	if err := obs.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}

func TestNewObserver_InvalidConfig(t *testing.T) {
	_, err := NewObserver(context.Background(), Config{})
	if !errors.Is(err, ErrMissingServiceName) {
		t.Fatalf("err = %v, want ErrMissingServiceName", err)
	}
}

func TestNoopLogger(t *testing.T) {
	logger := NoopLogger()
	if logger.With(Field{Key: "k", Value: 1}) == nil {
		t.Fatal("With must return a logger")
	}
	logger.Trace(context.Background(), "x")
	logger.Error(context.Background(), "x")
}
