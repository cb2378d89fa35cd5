package transport

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/jonwraymond/chwire/pool"
	"github.com/jonwraymond/chwire/wireerr"
)

// ErrBodyClosed is returned by reads after a stream was closed.
var ErrBodyClosed = errors.New("transport: read on closed body")

// streamBody owns a leased socket until the response body is consumed.
// Reaching EOF returns the socket to the pool; closing early destroys it.
type streamBody struct {
	ctx      context.Context
	x        *exchange
	h        *pool.Handle
	body     io.ReadCloser
	idle     time.Duration
	reusable bool
	stop     func() bool

	mu     sync.Mutex
	done   bool
	closed bool
	err    error
}

func newStreamBody(ctx context.Context, x *exchange, h *pool.Handle, body io.ReadCloser, reusable bool, idle time.Duration) *streamBody {
	b := &streamBody{ctx: ctx, x: x, h: h, body: body, idle: idle, reusable: reusable}
	// Closing the socket is the only reliable way to interrupt a read that
	// re-arms its own deadline; the socket is discarded anyway.
	b.stop = context.AfterFunc(ctx, func() { _ = h.Conn().Close() })
	return b
}

// Read reads from the response. Each call may block at most the request
// timeout before failing with a timeout error.
func (b *streamBody) Read(p []byte) (int, error) {
	b.mu.Lock()
	if b.done {
		err := b.err
		switch {
		case b.closed:
			err = ErrBodyClosed
		case err == nil:
			err = io.EOF
		}
		b.mu.Unlock()
		return 0, err
	}
	b.mu.Unlock()

	if b.idle > 0 {
		_ = b.h.Conn().SetReadDeadline(time.Now().Add(b.idle))
	}
	n, err := b.body.Read(p)
	switch {
	case err == nil:
		return n, nil
	case err == io.EOF:
		b.complete(nil, b.reusable)
		return n, io.EOF
	default:
		werr := b.x.c.classify(b.ctx, b.x.req.op.String(), wireerr.PhaseBody, err)
		b.complete(werr, false)
		return n, werr
	}
}

// Close releases the stream. Before EOF the socket still holds unread
// response bytes, so it is destroyed rather than reused.
func (b *streamBody) Close() error {
	b.mu.Lock()
	if b.done {
		b.closed = true
		b.mu.Unlock()
		return nil
	}
	b.mu.Unlock()
	b.complete(nil, false)
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	return nil
}

func (b *streamBody) complete(err error, reusable bool) {
	b.mu.Lock()
	if b.done {
		b.mu.Unlock()
		return
	}
	b.done = true
	b.err = err
	b.mu.Unlock()

	if !b.stop() {
		reusable = false
	}
	if !reusable {
		b.h.MarkBroken()
	}
	b.x.c.pool.Release(b.h, reusable)
	if err != nil {
		_ = b.x.fail(b.ctx, err)
		return
	}
	b.x.finish(nil)
}
