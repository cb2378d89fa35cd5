package observe

import (
	"context"
	"errors"
	"net/url"
	"sort"
	"strings"
)

// Argument keys that carry query text. They are the only keys the
// RedactionPolicy touches.
const (
	// ArgQuery holds raw statement text.
	ArgQuery = "query"
	// ArgRequestParams holds the encoded URL search parameters of a request.
	ArgRequestParams = "request_params"
)

// Event is one structured log event: a message, an optional cause and an
// argument mapping.
type Event struct {
	Module  string
	Message string
	Err     error
	Args    map[string]any
}

// RedactedError is implemented by errors whose text may echo query text,
// such as server syntax errors. Unless the policy is unredacted, the Emitter
// logs Redacted instead of Error.
type RedactedError interface {
	error
	Redacted() string
}

// RedactionPolicy decides whether query-bearing arguments reach the logger.
// The zero value redacts.
type RedactionPolicy struct {
	// Unredacted passes query text and URL search parameters through
	// unchanged.
	Unredacted bool
}

// Apply returns a copy of args with query-bearing values removed. The input
// map is never modified.
func (p RedactionPolicy) Apply(args map[string]any) map[string]any {
	if args == nil {
		return nil
	}
	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = v
	}
	if p.Unredacted {
		return out
	}
	delete(out, ArgQuery)
	if raw, ok := out[ArgRequestParams].(string); ok {
		out[ArgRequestParams] = RedactParams(raw)
	}
	return out
}

func (p RedactionPolicy) errorText(err error) string {
	var re RedactedError
	if !p.Unredacted && errors.As(err, &re) {
		return re.Redacted()
	}
	return err.Error()
}

// RedactParams strips the query parameter and every bound param_<name>
// parameter from an encoded URL query string. Unparseable input is dropped
// entirely.
func RedactParams(raw string) string {
	if raw == "" {
		return ""
	}
	values, err := url.ParseQuery(raw)
	if err != nil {
		return ""
	}
	for k := range values {
		if k == ArgQuery || strings.HasPrefix(k, "param_") {
			values.Del(k)
		}
	}
	return values.Encode()
}

// Emitter turns Events into Logger calls, applying the RedactionPolicy on the
// way. It never filters by level; that is the Logger's decision.
type Emitter struct {
	logger Logger
	policy RedactionPolicy
}

// NewEmitter returns an Emitter writing to logger. A nil logger discards.
func NewEmitter(logger Logger, policy RedactionPolicy) *Emitter {
	if logger == nil {
		logger = NoopLogger()
	}
	return &Emitter{logger: logger, policy: policy}
}

// Policy returns the emitter's redaction policy.
func (e *Emitter) Policy() RedactionPolicy { return e.policy }

func (e *Emitter) Trace(ctx context.Context, ev Event) { e.logger.Trace(ctx, ev.Message, e.fields(ev)...) }
func (e *Emitter) Debug(ctx context.Context, ev Event) { e.logger.Debug(ctx, ev.Message, e.fields(ev)...) }
func (e *Emitter) Info(ctx context.Context, ev Event)  { e.logger.Info(ctx, ev.Message, e.fields(ev)...) }
func (e *Emitter) Warn(ctx context.Context, ev Event)  { e.logger.Warn(ctx, ev.Message, e.fields(ev)...) }
func (e *Emitter) Error(ctx context.Context, ev Event) { e.logger.Error(ctx, ev.Message, e.fields(ev)...) }

func (e *Emitter) fields(ev Event) []Field {
	args := e.policy.Apply(ev.Args)

	fields := make([]Field, 0, len(args)+3)
	if ev.Module != "" {
		fields = append(fields, Field{Key: "module", Value: ev.Module})
	}
	if ev.Err != nil {
		fields = append(fields,
			Field{Key: "error", Value: e.policy.errorText(ev.Err)},
			Field{Key: "error_kind", Value: ErrorKind(ev.Err)},
		)
	}

	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fields = append(fields, Field{Key: k, Value: args[k]})
	}
	return fields
}
