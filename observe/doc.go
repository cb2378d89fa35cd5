// Package observe provides the logging, metrics and tracing surface of the
// wire client.
//
// The transport never logs through a global. It receives a Logger at
// construction and emits structured Events through an Emitter, which applies
// the RedactionPolicy to query-bearing arguments before the Logger sees them.
// Level filtering is the Logger's job: events are always built, and only the
// emission side decides whether they are written.
//
// Metrics and spans are OpenTelemetry instruments obtained from an Observer
// (or any metric.Meter / trace.Tracer) and bundled into an Instrumentation
// that the request executor starts once per operation.
package observe
