package wireerr

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ServerError is an exception the server reported in a non-2xx reply.
//
// It is not a transport failure: the exchange completed and the connection
// stays usable.
type ServerError struct {
	Op      string
	Status  int    // HTTP status code
	Code    int    // server exception code, 0 if unknown
	Type    string // exception type name, e.g. "UNKNOWN_TABLE"
	Message string
	QueryID string
}

func (e *ServerError) Error() string {
	s := e.Redacted()
	if e.Message != "" {
		s += ": " + e.Message
	}
	return s
}

// Redacted is Error without the server's message, which may quote the
// statement.
func (e *ServerError) Redacted() string {
	var b strings.Builder
	b.WriteString("chwire: ")
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Code != 0 {
		fmt.Fprintf(&b, "server exception %d", e.Code)
		if e.Type != "" {
			b.WriteString(" (" + e.Type + ")")
		}
	} else {
		fmt.Fprintf(&b, "server returned status %d", e.Status)
	}
	return b.String()
}

var exceptionPattern = regexp.MustCompile(`(?s)(?:Code|Error): (\d+).*?Exception: (.+)\(([A-Z0-9_]*[A-Z]{3}[A-Z0-9_]*)\)`)

// ParseServerError builds a ServerError from a reply body.
//
// Bodies of the form "Code: 60. DB::Exception: Table x does not exist.
// (UNKNOWN_TABLE) (version ...)" are split into code, message and type.
// Anything else is kept verbatim as the message. codeHeader is the value of
// the X-ClickHouse-Exception-Code header, used when the body carries no code.
func ParseServerError(op string, status int, body []byte, codeHeader string) *ServerError {
	e := &ServerError{Op: op, Status: status}
	text := strings.TrimSpace(string(body))

	if m := exceptionPattern.FindStringSubmatch(text); m != nil {
		e.Code, _ = strconv.Atoi(m[1])
		e.Message = strings.TrimSpace(m[2])
		e.Type = m[3]
		return e
	}

	e.Message = text
	if codeHeader != "" {
		e.Code, _ = strconv.Atoi(strings.TrimSpace(codeHeader))
	}
	return e
}
