package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/textproto"
	"strconv"
	"time"

	"golang.org/x/net/http/httpguts"

	"github.com/jonwraymond/chwire/observe"
	"github.com/jonwraymond/chwire/pool"
	"github.com/jonwraymond/chwire/wireerr"
)

// maxExceptionBody caps how much of a non-2xx reply is kept as the
// exception text.
const maxExceptionBody = 64 << 10

// aLongTimeAgo is a deadline in the past; setting it unblocks pending I/O.
var aLongTimeAgo = time.Unix(1, 0)

// execute runs one request/response cycle. Any 2xx status is a success.
// Buffered operations return a Result whose body was already consumed;
// streamed ones hand the body to the caller.
func (c *Client) execute(parent context.Context, req *request) (*Result, error) {
	timeout := req.timeout
	if timeout <= 0 {
		timeout = c.cfg.requestTimeout
	}
	op := req.op.String()

	ctx, cancel := context.WithTimeout(parent, timeout)
	ctx, finish := c.inst.Start(ctx, observe.RequestMeta{
		Operation:   req.op.metricName(),
		Destination: c.pool.Destination().Address,
		QueryID:     req.queryID,
	})
	x := &exchange{c: c, req: req, start: time.Now(), finish: finish}

	httpReq, err := c.newHTTPRequest(ctx, req)
	if err != nil {
		cancel()
		return nil, x.fail(parent, err)
	}
	x.params = httpReq.URL.RawQuery
	x.header = httpReq.Header

	h, err := c.pool.Acquire(ctx)
	if err != nil {
		phase := wireerr.PhaseAcquire
		var de *pool.DialError
		if errors.As(err, &de) {
			phase = wireerr.PhaseConnect
		}
		werr := c.classify(ctx, op, phase, err)
		cancel()
		return nil, x.fail(parent, werr)
	}

	conn := h.Conn()
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}
	stopWatch := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(aLongTimeAgo) })

	// abort destroys the socket: after any failure its state is unknown.
	abort := func(phase wireerr.Phase, err error) (*Result, error) {
		werr := c.classify(ctx, op, phase, err)
		stopWatch()
		cancel()
		h.MarkBroken()
		c.pool.Release(h, false)
		return nil, x.fail(parent, werr)
	}

	c.events.Trace(parent, x.event("sending request", nil, map[string]any{"socket_id": h.ID(), "socket_reused": h.Reused()}))
	if err := httpReq.Write(h.Writer()); err != nil {
		return abort(wireerr.PhaseWrite, err)
	}
	if err := h.Writer().Flush(); err != nil {
		return abort(wireerr.PhaseWrite, err)
	}

	resp, err := http.ReadResponse(h.Reader(), httpReq)
	if err == nil {
		err = checkHeaderNames(resp.Header)
	}
	if err != nil {
		return abort(wireerr.PhaseHeaders, err)
	}
	reusable := c.cfg.keepAlive && !resp.Close

	res := &Result{
		QueryID: req.queryID,
		Status:  resp.StatusCode,
		Header:  resp.Header,
		Summary: parseSummary(resp.Header),
	}
	if id := resp.Header.Get(headerQueryID); id != "" {
		res.QueryID = id
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxExceptionBody+1))
		if err != nil {
			return abort(wireerr.PhaseBody, err)
		}
		if len(body) > maxExceptionBody {
			// The unread remainder makes the socket unusable.
			body = body[:maxExceptionBody]
			reusable = false
		}
		if !stopWatch() {
			reusable = false
		}
		cancel()
		c.pool.Release(h, reusable)
		x.responded(parent, resp)

		serr := wireerr.ParseServerError(op, resp.StatusCode, body, resp.Header.Get(headerExceptionCode))
		serr.QueryID = res.QueryID
		return nil, x.fail(parent, serr)
	}

	if !req.op.streamed() {
		if err := drain(resp.Body); err != nil {
			return abort(wireerr.PhaseBody, err)
		}
		if !stopWatch() {
			reusable = false
		}
		cancel()
		c.pool.Release(h, reusable)
		x.responded(parent, resp)
		x.finish(nil)
		res.Body = http.NoBody
		return res, nil
	}

	// The head arrived in time. From here the request timeout only bounds
	// inactivity between reads, and the caller's own context bounds the rest.
	if !stopWatch() {
		return abort(wireerr.PhaseBody, ctx.Err())
	}
	_ = conn.SetDeadline(time.Time{})
	cancel()

	x.responded(parent, resp)
	res.Body = newStreamBody(parent, x, h, resp.Body, reusable, timeout)
	return res, nil
}

func (c *Client) newHTTPRequest(ctx context.Context, req *request) (*http.Request, error) {
	u := *c.base
	u.Path = c.base.Path + req.path
	u.RawQuery = req.params.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u.String(), req.body)
	if err != nil {
		return nil, err
	}
	for k, vs := range c.cfg.headers {
		httpReq.Header[k] = append([]string(nil), vs...)
	}
	httpReq.Header.Set("User-Agent", c.userAgent)
	if !c.cfg.keepAlive {
		httpReq.Close = true
	}
	if err := c.cfg.credentials.Apply(ctx, httpReq.Header); err != nil {
		return nil, err
	}
	return httpReq, nil
}

// checkHeaderNames rejects field names net/http tolerates for compatibility,
// such as names containing spaces.
func checkHeaderNames(h http.Header) error {
	for k := range h {
		if !httpguts.ValidHeaderFieldName(k) {
			return textproto.ProtocolError("malformed response header name " + strconv.Quote(k))
		}
	}
	return nil
}

// classify types a failure. When ctx has ended, the I/O error is only the
// symptom of the watcher's forced deadline, so ctx decides the kind.
func (c *Client) classify(ctx context.Context, op string, phase wireerr.Phase, err error) *wireerr.Error {
	if errors.Is(err, pool.ErrClosed) {
		return wireerr.New(wireerr.KindTransport, op, phase, err)
	}
	switch ctxErr := ctx.Err(); {
	case errors.Is(ctxErr, context.DeadlineExceeded):
		return wireerr.New(wireerr.KindTimeout, op, phase, joinCause(ctxErr, err))
	case errors.Is(ctxErr, context.Canceled):
		return wireerr.New(wireerr.KindTransport, op, phase, joinCause(ctxErr, err))
	}
	return wireerr.Classify(op, phase, err)
}

func joinCause(ctxErr, err error) error {
	if err == nil || errors.Is(err, ctxErr) {
		return ctxErr
	}
	return fmt.Errorf("%w (%w)", ctxErr, err)
}
