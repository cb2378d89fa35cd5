package wireerr

import (
	"errors"
	"strings"
)

// Kind identifies a transport failure category.
type Kind int

const (
	// KindTransport is the fallback for unclassified stream failures.
	KindTransport Kind = iota
	// KindTimeout means the deadline elapsed before the response completed.
	KindTimeout
	// KindConnectionRefused means the OS refused the connection attempt.
	KindConnectionRefused
	// KindSocketHangUp means the peer closed without completing the response head.
	KindSocketHangUp
	// KindConnectionReset means the peer reset the connection.
	KindConnectionReset
	// KindProtocol means the response framing was malformed.
	KindProtocol
	// KindAborted means the body was truncated before its declared end.
	KindAborted
)

// String returns the stable name of the kind.
func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindConnectionRefused:
		return "connection_refused"
	case KindSocketHangUp:
		return "socket_hang_up"
	case KindConnectionReset:
		return "connection_reset"
	case KindProtocol:
		return "protocol_error"
	case KindAborted:
		return "aborted"
	default:
		return "transport_error"
	}
}

// Retryable reports whether an identical request may succeed later.
// Malformed framing points at a misbehaving server or proxy and is not retryable.
func (k Kind) Retryable() bool {
	switch k {
	case KindTimeout, KindConnectionRefused, KindSocketHangUp, KindConnectionReset, KindAborted:
		return true
	default:
		return false
	}
}

// message is the stable phrase each kind carries in Error().
func (k Kind) message() string {
	switch k {
	case KindTimeout:
		return "Timeout error."
	case KindConnectionRefused:
		return "connection refused"
	case KindSocketHangUp:
		return "socket hang up"
	case KindConnectionReset:
		return "connection reset by peer"
	case KindProtocol:
		return "malformed response"
	case KindAborted:
		return "response aborted"
	default:
		return "transport error"
	}
}

// Phase is the point of the request lifecycle where a failure was observed.
type Phase int

const (
	PhaseAcquire Phase = iota
	PhaseConnect
	PhaseWrite
	PhaseHeaders
	PhaseBody
)

func (p Phase) String() string {
	switch p {
	case PhaseAcquire:
		return "acquire"
	case PhaseConnect:
		return "connect"
	case PhaseWrite:
		return "write"
	case PhaseHeaders:
		return "headers"
	case PhaseBody:
		return "body"
	default:
		return "unknown"
	}
}

// Error is a classified transport failure.
type Error struct {
	Kind  Kind
	Op    string // operation name, e.g. "Ping"
	Phase Phase
	Code  string // OS error code name when known, e.g. "ECONNREFUSED"

	cause error
}

// New creates an Error of the given kind.
func New(kind Kind, op string, phase Phase, cause error) *Error {
	return &Error{Kind: kind, Op: op, Phase: phase, cause: cause}
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	b.WriteString("chwire: ")
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.message())
	if e.Code != "" {
		b.WriteString(" (")
		b.WriteString(e.Code)
		b.WriteString(")")
	}
	if e.cause != nil {
		b.WriteString(": ")
		b.WriteString(e.cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches any *Error with the same Kind, so the package sentinels work
// with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t == nil {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.cause == nil
}

// Sentinels for errors.Is matching by kind.
var (
	ErrTransport         = &Error{Kind: KindTransport}
	ErrTimeout           = &Error{Kind: KindTimeout}
	ErrConnectionRefused = &Error{Kind: KindConnectionRefused}
	ErrSocketHangUp      = &Error{Kind: KindSocketHangUp}
	ErrConnectionReset   = &Error{Kind: KindConnectionReset}
	ErrProtocol          = &Error{Kind: KindProtocol}
	ErrAborted           = &Error{Kind: KindAborted}
)

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return KindTransport, false
}

// Retryable reports whether err is a transport failure worth retrying.
// Server exceptions and unclassified errors are not.
func Retryable(err error) bool {
	kind, ok := KindOf(err)
	return ok && kind.Retryable()
}

// IsTransport reports whether err carries a classified transport failure.
func IsTransport(err error) bool {
	_, ok := KindOf(err)
	return ok
}
