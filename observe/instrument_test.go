package observe

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/jonwraymond/chwire/wireerr"
)

func newTestInstrumentation(t *testing.T) (*Instrumentation, *tracetest.SpanRecorder, *sdkmetric.ManualReader) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	metrics, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return NewInstrumentation(NewTracer(tp.Tracer("test")), metrics), recorder, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func sumValue(t *testing.T, m *metricdata.Metrics) int64 {
	t.Helper()
	if m == nil {
		return 0
	}
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %s is %T, want Sum[int64]", m.Name, m.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestInstrumentation_Success(t *testing.T) {
	inst, recorder, reader := newTestInstrumentation(t)

	_, finish := inst.Start(context.Background(), RequestMeta{Operation: "query", Destination: "localhost:8123", QueryID: "q1"})
	finish(nil)

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Name() != "chwire.query" {
		t.Errorf("span name = %q", spans[0].Name())
	}
	if spans[0].Status().Code != codes.Ok {
		t.Errorf("status = %v", spans[0].Status())
	}
	attrs := attribute.NewSet(spans[0].Attributes()...)
	if v, ok := attrs.Value("chwire.query_id"); !ok || v.AsString() != "q1" {
		t.Errorf("query_id attribute = %v", v)
	}

	rm := collect(t, reader)
	if got := sumValue(t, findMetric(rm, "chwire.request.total")); got != 1 {
		t.Errorf("total = %d, want 1", got)
	}
	if got := sumValue(t, findMetric(rm, "chwire.request.errors")); got != 0 {
		t.Errorf("errors = %d, want 0", got)
	}
	if findMetric(rm, "chwire.request.duration_ms") == nil {
		t.Error("duration histogram missing")
	}
}

func TestInstrumentation_ErrorKindLabel(t *testing.T) {
	inst, recorder, reader := newTestInstrumentation(t)

	_, finish := inst.Start(context.Background(), RequestMeta{Operation: "ping"})
	finish(wireerr.New(wireerr.KindConnectionRefused, "Ping", wireerr.PhaseConnect, nil))

	span := recorder.Ended()[0]
	if span.Status().Code != codes.Error {
		t.Errorf("status = %v, want error", span.Status())
	}
	attrs := attribute.NewSet(span.Attributes()...)
	if v, _ := attrs.Value("error.kind"); v.AsString() != "connection_refused" {
		t.Errorf("span error.kind = %q", v.AsString())
	}

	m := findMetric(collect(t, reader), "chwire.request.errors")
	if got := sumValue(t, m); got != 1 {
		t.Fatalf("errors = %d, want 1", got)
	}
	dp := m.Data.(metricdata.Sum[int64]).DataPoints[0]
	if v, _ := dp.Attributes.Value("error.kind"); v.AsString() != "connection_refused" {
		t.Errorf("metric error.kind = %q", v.AsString())
	}
}

func TestInstrumentation_ServerErrorMessageNotRecorded(t *testing.T) {
	inst, recorder, _ := newTestInstrumentation(t)

	_, finish := inst.Start(context.Background(), RequestMeta{Operation: "query"})
	finish(&wireerr.ServerError{Op: "Query", Status: 400, Code: 62, Type: "SYNTAX_ERROR", Message: "near 'hunter2'"})

	span := recorder.Ended()[0]
	if strings.Contains(span.Status().Description, "hunter2") {
		t.Errorf("status description = %q", span.Status().Description)
	}
	if !strings.Contains(span.Status().Description, "SYNTAX_ERROR") {
		t.Errorf("status description = %q, want exception type", span.Status().Description)
	}
	for _, ev := range span.Events() {
		for _, kv := range ev.Attributes {
			if strings.Contains(kv.Value.Emit(), "hunter2") {
				t.Errorf("span event %q attribute %s = %q", ev.Name, kv.Key, kv.Value.Emit())
			}
		}
	}
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{wireerr.New(wireerr.KindAborted, "Query", wireerr.PhaseBody, nil), "aborted"},
		{&wireerr.ServerError{Status: 500}, "server_exception"},
		{errors.New("other"), "unknown"},
	}
	for _, tc := range tests {
		if got := ErrorKind(tc.err); got != tc.want {
			t.Errorf("ErrorKind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestInstrumentation_Concurrent(t *testing.T) {
	inst, _, reader := newTestInstrumentation(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, finish := inst.Start(context.Background(), RequestMeta{Operation: "ping"})
			time.Sleep(time.Millisecond)
			finish(nil)
		}()
	}
	wg.Wait()

	if got := sumValue(t, findMetric(collect(t, reader), "chwire.request.total")); got != 20 {
		t.Errorf("total = %d, want 20", got)
	}
}

func TestNoopInstrumentation(t *testing.T) {
	ctx, finish := NoopInstrumentation().Start(context.Background(), RequestMeta{Operation: "exec"})
	if ctx == nil {
		t.Fatal("nil context")
	}
	finish(errors.New("boom"))
}

func TestRegisterPoolGauges(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	reg, err := RegisterPoolGauges(mp.Meter("test"), "localhost:8123", func() PoolSnapshot {
		return PoolSnapshot{Open: 3, Idle: 1, Leased: 2, Waiting: 4}
	})
	if err != nil {
		t.Fatalf("RegisterPoolGauges: %v", err)
	}
	defer func() { _ = reg.Unregister() }()

	rm := collect(t, reader)
	want := map[string]int64{
		"chwire.pool.open":    3,
		"chwire.pool.idle":    1,
		"chwire.pool.leased":  2,
		"chwire.pool.waiting": 4,
	}
	for name, v := range want {
		m := findMetric(rm, name)
		if m == nil {
			t.Errorf("%s missing", name)
			continue
		}
		g, ok := m.Data.(metricdata.Gauge[int64])
		if !ok || len(g.DataPoints) != 1 || g.DataPoints[0].Value != v {
			t.Errorf("%s = %+v, want %d", name, m.Data, v)
		}
	}
}
