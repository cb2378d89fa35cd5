package pool

import "errors"

var (
	// ErrClosed is returned by Acquire once Shutdown has started.
	ErrClosed = errors.New("pool: closed")

	// ErrInvalidMaxOpen indicates a ceiling below one.
	ErrInvalidMaxOpen = errors.New("pool: max open connections must be at least 1")
)

// DialError wraps a failure to open a new socket, so callers can tell a
// refused connection apart from a failure on an established one.
type DialError struct {
	Address string
	Err     error
}

func (e *DialError) Error() string {
	return "pool: dial " + e.Address + ": " + e.Err.Error()
}

func (e *DialError) Unwrap() error { return e.Err }
