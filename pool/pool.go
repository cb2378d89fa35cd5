package pool

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/chwire/observe"
)

const module = "Connection Pool"

// Options configures a Pool.
type Options struct {
	// MaxOpen is the ceiling on idle, leased and dialing sockets.
	MaxOpen int
	// KeepAlive returns released sockets to the idle set. When false every
	// socket is closed on release.
	KeepAlive bool
	// IdleTTL destroys sockets idle for longer. Zero keeps them until the
	// peer closes them.
	IdleTTL time.Duration
	// Dialer opens raw connections. Defaults to a *net.Dialer with a 30s
	// TCP keep-alive.
	Dialer Dialer
	// Emitter receives trace-level socket lifecycle events.
	Emitter *observe.Emitter
}

// Stats is a point-in-time view of the pool plus cumulative counters.
type Stats struct {
	Open    int // Idle + Leased + Dialing
	Idle    int
	Leased  int
	Dialing int
	Waiting int

	Dials    int64 // sockets opened
	Reuses   int64 // acquisitions served from the idle set
	Discards int64 // sockets destroyed after use or a failed check
	Expired  int64 // idle sockets destroyed by the idle timer
}

// grant is what a waiter receives: a ready handle, a capacity slot it may
// dial with, or an error.
type grant struct {
	h    *Handle
	slot bool
	err  error
}

// Pool manages sockets to a single destination.
type Pool struct {
	dest    Destination
	dialer  Dialer
	maxOpen int
	keep    bool
	idleTTL time.Duration
	events  *observe.Emitter

	mu        sync.Mutex
	idle      []*Handle // LIFO
	leased    map[*Handle]struct{}
	dialing   int
	waiters   []chan grant
	closed    bool
	drained   chan struct{}
	isDrained bool

	dials    atomic.Int64
	reuses   atomic.Int64
	discards atomic.Int64
	expired  atomic.Int64
}

// New creates a pool for dest.
func New(dest Destination, opts Options) (*Pool, error) {
	if opts.MaxOpen < 1 {
		return nil, ErrInvalidMaxOpen
	}
	dialer := opts.Dialer
	if dialer == nil {
		dialer = &net.Dialer{KeepAlive: 30 * time.Second}
	}
	events := opts.Emitter
	if events == nil {
		events = observe.NewEmitter(nil, observe.RedactionPolicy{})
	}
	return &Pool{
		dest:    dest,
		dialer:  dialer,
		maxOpen: opts.MaxOpen,
		keep:    opts.KeepAlive,
		idleTTL: opts.IdleTTL,
		events:  events,
		leased:  make(map[*Handle]struct{}),
		drained: make(chan struct{}),
	}, nil
}

// Destination returns the pool's destination.
func (p *Pool) Destination() Destination { return p.dest }

// Acquire returns a leased handle: a healthy idle one if available, a newly
// dialed one while under the ceiling, or one released by another caller.
// It waits while the pool is saturated and fails with ctx.Err() wrapped when
// ctx ends first. Dial failures are returned as *DialError.
func (p *Pool) Acquire(ctx context.Context) (*Handle, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("pool: acquire: %w", err)
		}

		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return nil, ErrClosed
		}

		if h := p.popIdleLocked(); h != nil {
			p.mu.Unlock()
			if err := connCheck(h.conn); err != nil {
				p.events.Trace(ctx, p.event("idle socket failed liveness check", h, err))
				p.destroy(h)
				continue
			}
			p.reuses.Add(1)
			p.events.Trace(ctx, p.event("reusing socket", h, nil))
			return h, nil
		}

		if p.openLocked() < p.maxOpen {
			p.dialing++
			p.mu.Unlock()
			return p.dial(ctx)
		}

		ch := make(chan grant, 1)
		p.waiters = append(p.waiters, ch)
		p.mu.Unlock()

		select {
		case g := <-ch:
			switch {
			case g.err != nil:
				return nil, g.err
			case g.h != nil:
				p.reuses.Add(1)
				p.events.Trace(ctx, p.event("reusing released socket", g.h, nil))
				return g.h, nil
			default:
				return p.dial(ctx)
			}
		case <-ctx.Done():
			p.abandon(ch)
			return nil, fmt.Errorf("pool: acquire: %w", ctx.Err())
		}
	}
}

// abandon removes a waiter whose context ended. A grant that raced in is
// handed back so no capacity is lost.
func (p *Pool) abandon(ch chan grant) {
	p.mu.Lock()
	for i, w := range p.waiters {
		if w == ch {
			p.waiters = append(p.waiters[:i], p.waiters[i+1:]...)
			p.mu.Unlock()
			return
		}
	}
	p.mu.Unlock()

	g := <-ch
	switch {
	case g.h != nil:
		p.Release(g.h, true)
	case g.slot:
		p.mu.Lock()
		p.dialing--
		p.handOffLocked()
		p.signalDrainedLocked()
		p.mu.Unlock()
	}
}

func (p *Pool) dial(ctx context.Context) (*Handle, error) {
	conn, err := dial(ctx, p.dialer, p.dest)

	p.mu.Lock()
	p.dialing--
	if err != nil {
		p.handOffLocked()
		p.signalDrainedLocked()
		p.mu.Unlock()
		return nil, &DialError{Address: p.dest.Address, Err: err}
	}
	if p.closed {
		p.signalDrainedLocked()
		p.mu.Unlock()
		_ = conn.Close()
		return nil, ErrClosed
	}
	h := newHandle(conn)
	h.uses = 1
	p.leased[h] = struct{}{}
	p.mu.Unlock()

	p.dials.Add(1)
	p.events.Trace(ctx, p.event("socket created", h, nil))
	return h, nil
}

// Release returns a leased handle. It goes back to the idle set only when
// reusable is true, keep-alive is on, the handle is not broken and the pool
// is open; otherwise the socket is closed and its capacity freed.
// Releasing a handle that is not leased is a no-op.
func (p *Pool) Release(h *Handle, reusable bool) {
	p.mu.Lock()
	if _, ok := p.leased[h]; !ok {
		p.mu.Unlock()
		return
	}

	if !reusable || !p.keep || p.closed || h.State() != StateLeased || h.br.Buffered() > 0 {
		delete(p.leased, h)
		h.setState(StateBroken)
		p.handOffLocked()
		p.signalDrainedLocked()
		p.mu.Unlock()
		p.discards.Add(1)
		p.closeHandle(h, "socket destroyed")
		return
	}

	_ = h.conn.SetDeadline(time.Time{})
	h.touch()

	if len(p.waiters) > 0 {
		ch := p.waiters[0]
		p.waiters = p.waiters[1:]
		h.uses++
		p.mu.Unlock()
		ch <- grant{h: h}
		return
	}

	delete(p.leased, h)
	h.setState(StateIdle)
	p.armIdleTimerLocked(h)
	p.idle = append(p.idle, h)
	p.mu.Unlock()

	p.events.Trace(context.Background(), p.event("socket released to idle set", h, nil))
}

// destroy closes a handle the caller leased but must not use.
func (p *Pool) destroy(h *Handle) {
	h.MarkBroken()
	p.Release(h, false)
}

// closeHandle closes the socket. Callers count it as a discard or an expiry.
func (p *Pool) closeHandle(h *Handle, msg string) {
	_ = h.conn.Close()
	p.events.Trace(context.Background(), p.event(msg, h, nil))
}

// popIdleLocked takes the most recently released idle handle that has not
// passed its keep-alive deadline and leases it. Expired handles found on the
// way are closed.
func (p *Pool) popIdleLocked() *Handle {
	now := time.Now()
	for len(p.idle) > 0 {
		h := p.idle[len(p.idle)-1]
		p.idle[len(p.idle)-1] = nil
		p.idle = p.idle[:len(p.idle)-1]
		h.stopIdleTimerLocked()

		if h.expired(now) {
			h.setState(StateBroken)
			p.expired.Add(1)
			go p.closeHandle(h, "idle socket expired")
			continue
		}

		h.setState(StateLeased)
		h.keepAliveDeadline = time.Time{}
		h.uses++
		h.touch()
		p.leased[h] = struct{}{}
		return h
	}
	return nil
}

func (p *Pool) armIdleTimerLocked(h *Handle) {
	if p.idleTTL <= 0 {
		return
	}
	h.stopIdleTimerLocked()
	gen := h.idleGen
	h.keepAliveDeadline = time.Now().Add(p.idleTTL)
	h.idleTimer = time.AfterFunc(p.idleTTL, func() { p.expireIdle(h, gen) })
}

// expireIdle runs when an idle timer fires. A handle leased again since the
// timer was armed carries a newer generation and is left alone.
func (p *Pool) expireIdle(h *Handle, gen uint64) {
	p.mu.Lock()
	if h.idleGen != gen || h.State() != StateIdle {
		p.mu.Unlock()
		return
	}
	for i, c := range p.idle {
		if c == h {
			p.idle = append(p.idle[:i], p.idle[i+1:]...)
			break
		}
	}
	h.idleTimer = nil
	h.setState(StateBroken)
	p.expired.Add(1)
	p.handOffLocked()
	p.mu.Unlock()

	p.closeHandle(h, "idle socket TTL elapsed")
}

// handOffLocked gives freed capacity to the longest waiting caller.
func (p *Pool) handOffLocked() {
	if p.closed || len(p.waiters) == 0 || p.openLocked() >= p.maxOpen {
		return
	}
	ch := p.waiters[0]
	p.waiters = p.waiters[1:]
	p.dialing++
	ch <- grant{slot: true}
}

func (p *Pool) openLocked() int {
	return len(p.idle) + len(p.leased) + p.dialing
}

func (p *Pool) signalDrainedLocked() {
	if p.closed && !p.isDrained && len(p.leased) == 0 && p.dialing == 0 {
		p.isDrained = true
		close(p.drained)
	}
}

// Shutdown stops the pool. New acquisitions fail with ErrClosed, waiters are
// woken with ErrClosed and idle sockets are closed immediately. Leased
// sockets are closed when released; any still leased after grace, or when
// ctx ends, are closed by force. Shutdown is idempotent.
func (p *Pool) Shutdown(ctx context.Context, grace time.Duration) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true

	idle := p.idle
	p.idle = nil
	for _, h := range idle {
		h.stopIdleTimerLocked()
		h.setState(StateBroken)
	}
	for _, ch := range p.waiters {
		ch <- grant{err: ErrClosed}
	}
	p.waiters = nil
	for h := range p.leased {
		if h.State() == StateLeased {
			h.setState(StateDraining)
		}
	}
	p.signalDrainedLocked()
	p.mu.Unlock()

	var g errgroup.Group
	for _, h := range idle {
		g.Go(func() error {
			err := h.conn.Close()
			p.discards.Add(1)
			if err != nil && !errors.Is(err, net.ErrClosed) {
				return err
			}
			return nil
		})
	}
	closeErr := g.Wait()

	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-p.drained:
		return closeErr
	case <-timer.C:
	case <-ctx.Done():
	}

	p.mu.Lock()
	forced := make([]*Handle, 0, len(p.leased))
	for h := range p.leased {
		h.setState(StateBroken)
		forced = append(forced, h)
	}
	p.mu.Unlock()

	// Closing the sockets fails the in-flight operations; their Release
	// calls then empty the leased set.
	for _, h := range forced {
		_ = h.conn.Close()
		p.events.Trace(ctx, p.event("socket force-closed on shutdown", h, nil))
	}
	return closeErr
}

// Stats returns the current pool statistics.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	s := Stats{
		Idle:    len(p.idle),
		Leased:  len(p.leased),
		Dialing: p.dialing,
		Waiting: len(p.waiters),
	}
	p.mu.Unlock()
	s.Open = s.Idle + s.Leased + s.Dialing
	s.Dials = p.dials.Load()
	s.Reuses = p.reuses.Load()
	s.Discards = p.discards.Load()
	s.Expired = p.expired.Load()
	return s
}

func (p *Pool) event(msg string, h *Handle, err error) observe.Event {
	return observe.Event{
		Module:  module,
		Message: msg,
		Err:     err,
		Args: map[string]any{
			"socket_id":   h.id,
			"destination": p.dest.Address,
		},
	}
}
