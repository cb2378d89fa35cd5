package transport

import (
	"context"
	"net/http"
	"time"

	"github.com/jonwraymond/chwire/observe"
)

const eventModule = "HTTP Transport"

// exchange carries what the log events of one request need.
type exchange struct {
	c      *Client
	req    *request
	start  time.Time
	finish func(error)
	params string
	header http.Header
}

func (x *exchange) event(msg string, err error, extra map[string]any) observe.Event {
	args := map[string]any{
		"operation":              x.req.op.String(),
		"query_id":               x.req.queryID,
		"elapsed_ms":             time.Since(x.start).Milliseconds(),
		observe.ArgRequestParams: x.params,
	}
	if x.req.query != "" {
		args[observe.ArgQuery] = x.req.query
	}
	if x.header != nil {
		args["request_headers"] = headerArgs(x.header)
	}
	for k, v := range extra {
		args[k] = v
	}
	return observe.Event{Module: eventModule, Message: msg, Err: err, Args: args}
}

// responded emits the one debug event of a completed response.
func (x *exchange) responded(ctx context.Context, resp *http.Response) {
	x.c.events.Debug(ctx, x.event("got a response", nil, map[string]any{
		"response_status":  resp.StatusCode,
		"response_headers": headerArgs(resp.Header),
	}))
}

// fail logs err, ends instrumentation and returns err.
func (x *exchange) fail(ctx context.Context, err error) error {
	x.c.events.Error(ctx, x.event("request failed", err, nil))
	x.finish(err)
	return err
}
