package exporters

import (
	"context"
	"errors"
	"io"
	"testing"
)

func init() {
	Stdout = io.Discard
}

func TestNewTracingExporter(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "")

	tests := []struct {
		name    string
		wantNil bool
		wantErr error
	}{
		{name: "stdout"},
		{name: "none", wantNil: true},
		{name: "", wantNil: true},
		{name: "otlp", wantErr: ErrEndpointNotConfigured},
		{name: "jaeger", wantErr: ErrUnknownExporter},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			exp, err := NewTracingExporter(context.Background(), tc.name)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("err = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if (exp == nil) != tc.wantNil {
				t.Errorf("exporter nil = %v, want %v", exp == nil, tc.wantNil)
			}
		})
	}
}

func TestNewTracingExporter_OtlpWithEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://localhost:4317")

	exp, err := NewTracingExporter(context.Background(), "otlp")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exp == nil {
		t.Fatal("expected exporter")
	}
	_ = exp.Shutdown(context.Background())
}

func TestNewMetricsReader(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT", "")

	tests := []struct {
		name    string
		wantNil bool
		wantErr error
	}{
		{name: "stdout"},
		{name: "prometheus"},
		{name: "none", wantNil: true},
		{name: "otlp", wantErr: ErrEndpointNotConfigured},
		{name: "badvalue", wantErr: ErrUnknownExporter},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			reader, err := NewMetricsReader(context.Background(), tc.name)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("err = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if (reader == nil) != tc.wantNil {
				t.Errorf("reader nil = %v, want %v", reader == nil, tc.wantNil)
			}
		})
	}
}
