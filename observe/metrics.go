package observe

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/jonwraymond/chwire/wireerr"
)

// RequestMeta describes one executed operation for telemetry purposes.
type RequestMeta struct {
	Operation   string // ping|query|insert|exec|command
	Destination string // host:port
	QueryID     string // optional
}

// SpanName returns the span name for the operation: chwire.<operation>.
func (m RequestMeta) SpanName() string {
	return "chwire." + m.Operation
}

// ErrorKind returns the telemetry label for err: the wireerr kind name,
// "server_exception" for server replies, or "unknown".
func ErrorKind(err error) string {
	if kind, ok := wireerr.KindOf(err); ok {
		return kind.String()
	}
	var se *wireerr.ServerError
	if errors.As(err, &se) {
		return "server_exception"
	}
	return "unknown"
}

// Metrics records per-request metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	RecordRequest(ctx context.Context, meta RequestMeta, duration time.Duration, err error)
}

type metricsImpl struct {
	totalCount   metric.Int64Counter
	errorCount   metric.Int64Counter
	durationHist metric.Float64Histogram
}

// NewMetrics creates the request instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	totalCount, err := meter.Int64Counter(
		"chwire.request.total",
		metric.WithDescription("Total number of executed requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"chwire.request.errors",
		metric.WithDescription("Total number of failed requests by error kind"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"chwire.request.duration_ms",
		metric.WithDescription("Request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		totalCount:   totalCount,
		errorCount:   errorCount,
		durationHist: durationHist,
	}, nil
}

func (m *metricsImpl) RecordRequest(ctx context.Context, meta RequestMeta, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("chwire.operation", meta.Operation),
	}
	if meta.Destination != "" {
		attrs = append(attrs, attribute.String("server.address", meta.Destination))
	}
	opt := metric.WithAttributes(attrs...)

	m.totalCount.Add(ctx, 1, opt)
	if err != nil {
		m.errorCount.Add(ctx, 1, metric.WithAttributes(append(attrs, attribute.String("error.kind", ErrorKind(err)))...))
	}
	m.durationHist.Record(ctx, float64(duration.Milliseconds()), opt)
}

type noopMetrics struct{}

func (noopMetrics) RecordRequest(context.Context, RequestMeta, time.Duration, error) {}

// PoolSnapshot is the point-in-time pool state exported as gauges.
type PoolSnapshot struct {
	Open    int
	Idle    int
	Leased  int
	Waiting int
}

// RegisterPoolGauges registers observable gauges reading snapshot on every
// collection. The returned registration is unregistered when the pool closes.
func RegisterPoolGauges(meter metric.Meter, destination string, snapshot func() PoolSnapshot) (metric.Registration, error) {
	open, err := meter.Int64ObservableGauge("chwire.pool.open",
		metric.WithDescription("Open sockets"), metric.WithUnit("{socket}"))
	if err != nil {
		return nil, err
	}
	idle, err := meter.Int64ObservableGauge("chwire.pool.idle",
		metric.WithDescription("Idle sockets"), metric.WithUnit("{socket}"))
	if err != nil {
		return nil, err
	}
	leased, err := meter.Int64ObservableGauge("chwire.pool.leased",
		metric.WithDescription("Sockets leased to in-flight requests"), metric.WithUnit("{socket}"))
	if err != nil {
		return nil, err
	}
	waiting, err := meter.Int64ObservableGauge("chwire.pool.waiting",
		metric.WithDescription("Callers blocked on acquisition"), metric.WithUnit("{caller}"))
	if err != nil {
		return nil, err
	}

	opt := metric.WithAttributes(attribute.String("server.address", destination))
	return meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		s := snapshot()
		o.ObserveInt64(open, int64(s.Open), opt)
		o.ObserveInt64(idle, int64(s.Idle), opt)
		o.ObserveInt64(leased, int64(s.Leased), opt)
		o.ObserveInt64(waiting, int64(s.Waiting), opt)
		return nil
	}, open, idle, leased, waiting)
}
