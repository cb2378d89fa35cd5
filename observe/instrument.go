package observe

import (
	"context"
	"time"
)

// Instrumentation bundles the tracer and metrics the request executor drives
// once per operation. Logging is not part of it: the executor emits its own
// events through an Emitter.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Context: the context returned by Start carries the request span.
//   - Errors: the error passed to finish is recorded, never altered.
type Instrumentation struct {
	tracer  Tracer
	metrics Metrics
}

// NewInstrumentation builds an Instrumentation. Nil parts become no-ops.
func NewInstrumentation(tracer Tracer, metrics Metrics) *Instrumentation {
	if tracer == nil {
		tracer = newNoopTracer()
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Instrumentation{tracer: tracer, metrics: metrics}
}

// NoopInstrumentation records nothing.
func NoopInstrumentation() *Instrumentation {
	return NewInstrumentation(nil, nil)
}

// InstrumentationFromObserver creates an Instrumentation from an Observer's
// tracer and meter.
func InstrumentationFromObserver(obs Observer) (*Instrumentation, error) {
	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewInstrumentation(NewTracer(obs.Tracer()), metrics), nil
}

// Start opens the span for one request. finish ends the span and records
// metrics; it must be called exactly once.
func (in *Instrumentation) Start(ctx context.Context, meta RequestMeta) (context.Context, func(error)) {
	ctx, span := in.tracer.StartSpan(ctx, meta)
	start := time.Now()

	return ctx, func(err error) {
		in.tracer.EndSpan(span, err)
		in.metrics.RecordRequest(ctx, meta, time.Since(start), err)
	}
}
