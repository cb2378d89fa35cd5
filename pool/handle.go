package pool

import (
	"bufio"
	"net"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// State is the lifecycle state of a Handle.
type State int32

const (
	StateIdle State = iota
	StateLeased
	// StateDraining marks a leased handle whose pool is shutting down; it is
	// closed on release.
	StateDraining
	// StateBroken handles are never leased again.
	StateBroken
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLeased:
		return "leased"
	case StateDraining:
		return "draining"
	case StateBroken:
		return "broken"
	default:
		return "unknown"
	}
}

const bufferSize = 16 << 10

// Handle is one pooled socket. Between Acquire and Release it belongs to a
// single caller, which may use Reader and Writer freely.
type Handle struct {
	id        string
	conn      net.Conn
	br        *bufio.Reader
	bw        *bufio.Writer
	createdAt time.Time

	state    atomic.Int32
	lastUsed atomic.Int64 // unix nanos

	// Guarded by the owning pool's mutex.
	uses              int
	keepAliveDeadline time.Time
	idleTimer         *time.Timer
	idleGen           uint64
}

func newHandle(conn net.Conn) *Handle {
	now := time.Now()
	h := &Handle{
		id:        uuid.NewString(),
		conn:      conn,
		br:        bufio.NewReaderSize(conn, bufferSize),
		bw:        bufio.NewWriterSize(conn, bufferSize),
		createdAt: now,
	}
	h.state.Store(int32(StateLeased))
	h.lastUsed.Store(now.UnixNano())
	return h
}

// ID returns the handle's unique identifier.
func (h *Handle) ID() string { return h.id }

// Conn returns the underlying connection.
func (h *Handle) Conn() net.Conn { return h.conn }

// Reader returns the buffered reader bound to the connection. Buffered bytes
// survive across requests, so callers must consume responses fully.
func (h *Handle) Reader() *bufio.Reader { return h.br }

// Writer returns the buffered writer bound to the connection.
func (h *Handle) Writer() *bufio.Writer { return h.bw }

// State returns the current state.
func (h *Handle) State() State { return State(h.state.Load()) }

// CreatedAt returns when the socket was opened.
func (h *Handle) CreatedAt() time.Time { return h.createdAt }

// LastUsed returns when the handle was last released or leased.
func (h *Handle) LastUsed() time.Time { return time.Unix(0, h.lastUsed.Load()) }

// Reused reports whether the handle served an earlier request.
func (h *Handle) Reused() bool { return h.uses > 1 }

// MarkBroken flags the handle after any I/O error or timeout. Release then
// destroys it regardless of the reusable argument.
func (h *Handle) MarkBroken() {
	h.state.Store(int32(StateBroken))
}

func (h *Handle) setState(s State) { h.state.Store(int32(s)) }

func (h *Handle) touch() { h.lastUsed.Store(time.Now().UnixNano()) }

func (h *Handle) expired(now time.Time) bool {
	return !h.keepAliveDeadline.IsZero() && !now.Before(h.keepAliveDeadline)
}

// stopIdleTimerLocked disarms the idle timer. Caller holds the pool mutex.
func (h *Handle) stopIdleTimerLocked() {
	h.idleGen++
	if h.idleTimer != nil {
		h.idleTimer.Stop()
		h.idleTimer = nil
	}
}
