package transport

import (
	"io"
	"net/http"

	json "github.com/goccy/go-json"
)

// PingResult reports reachability. Ping never returns an error directly;
// a failed ping carries it in Err.
type PingResult struct {
	Success bool
	Err     error
}

// Summary is the server's progress summary from the X-ClickHouse-Summary
// header. The server encodes every number as a string.
type Summary struct {
	ReadRows        uint64 `json:"read_rows,string"`
	ReadBytes       uint64 `json:"read_bytes,string"`
	WrittenRows     uint64 `json:"written_rows,string"`
	WrittenBytes    uint64 `json:"written_bytes,string"`
	TotalRowsToRead uint64 `json:"total_rows_to_read,string"`
	ResultRows      uint64 `json:"result_rows,string"`
	ResultBytes     uint64 `json:"result_bytes,string"`
	ElapsedNs       uint64 `json:"elapsed_ns,string"`
}

const (
	headerSummary       = "X-Clickhouse-Summary"
	headerQueryID       = "X-Clickhouse-Query-Id"
	headerExceptionCode = "X-Clickhouse-Exception-Code"
)

// parseSummary returns nil when the header is absent or unparseable.
func parseSummary(h http.Header) *Summary {
	raw := h.Get(headerSummary)
	if raw == "" {
		return nil
	}
	var s Summary
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil
	}
	return &s
}

// Result is a streamed response. The caller must read Body to EOF or Close
// it; reading to EOF returns the socket to the pool, closing early destroys
// it.
type Result struct {
	QueryID string
	Status  int
	Header  http.Header
	Summary *Summary
	Body    io.ReadCloser
}

// Close closes the body.
func (r *Result) Close() error { return r.Body.Close() }

// Ack acknowledges an insert or command whose response body was consumed.
type Ack struct {
	QueryID string
	Header  http.Header
	Summary *Summary
}

// InsertResult is returned by Insert.
type InsertResult = Ack

// CommandResult is returned by Command.
type CommandResult = Ack
