package wireerr

import (
	"context"
	"errors"
	"io"
	"net"
	"net/textproto"
	"os"
	"syscall"
)

// Classify maps a low-level failure observed during phase to a typed error.
//
// An err that is already an *Error is returned unchanged. The phase decides
// how an early end of stream is read: before the response head is complete it
// is a hang-up, inside the body it is a truncated transfer.
func Classify(op string, phase Phase, err error) *Error {
	if err == nil {
		return nil
	}
	var we *Error
	if errors.As(err, &we) {
		return we
	}

	e := &Error{Kind: KindTransport, Op: op, Phase: phase, cause: err}
	switch {
	case isTimeout(err):
		e.Kind = KindTimeout
	case errors.Is(err, context.Canceled):
		e.Kind = KindTransport
	case errors.Is(err, syscall.ECONNREFUSED):
		e.Kind = KindConnectionRefused
		e.Code = "ECONNREFUSED"
	case errors.Is(err, syscall.ECONNRESET):
		e.Kind = KindConnectionReset
		e.Code = "ECONNRESET"
	case errors.Is(err, syscall.ECONNABORTED):
		e.Kind = KindConnectionReset
		e.Code = "ECONNABORTED"
	case errors.Is(err, syscall.EPIPE):
		e.Kind = KindSocketHangUp
		e.Code = "EPIPE"
	case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF):
		if phase == PhaseBody {
			e.Kind = KindAborted
		} else {
			e.Kind = KindSocketHangUp
		}
	case isFraming(err):
		e.Kind = KindProtocol
	case phase == PhaseHeaders && !isNetError(err):
		// http.ReadResponse reports bad status lines and header syntax with
		// plain errors; anything that is not an I/O failure is framing.
		e.Kind = KindProtocol
	}
	return e
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func isFraming(err error) bool {
	var pe textproto.ProtocolError
	return errors.As(err, &pe)
}

func isNetError(err error) bool {
	if errors.Is(err, net.ErrClosed) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	var errno syscall.Errno
	return errors.As(err, &errno)
}
