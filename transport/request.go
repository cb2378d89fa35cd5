package transport

import (
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Operation is the kind of request being executed.
type Operation int

const (
	OpPing Operation = iota
	OpQuery
	OpInsert
	OpExec
	OpCommand
)

// String returns the operation name used in errors and log events.
func (o Operation) String() string {
	switch o {
	case OpPing:
		return "Ping"
	case OpQuery:
		return "Query"
	case OpInsert:
		return "Insert"
	case OpExec:
		return "Exec"
	case OpCommand:
		return "Command"
	default:
		return "Unknown"
	}
}

func (o Operation) metricName() string { return strings.ToLower(o.String()) }

// streamed reports whether the operation hands its body to the caller.
func (o Operation) streamed() bool { return o == OpQuery || o == OpExec }

// QueryParams describes a query whose result is streamed back.
type QueryParams struct {
	Query string
	// Format is appended as "FORMAT <Format>" when set.
	Format string
	// QueryID identifies the query on the server; generated when empty.
	QueryID string
	// Settings are per-query server settings, merged over the client's.
	Settings map[string]string
	// Params are bound query parameters, sent as param_<name>.
	Params map[string]string
	// Timeout overrides the client's request timeout when positive.
	Timeout time.Duration
}

// InsertParams describes an insert whose data is the request body.
type InsertParams struct {
	Table   string
	Columns []string
	Format  string
	// Values is the encoded data. Its length is sent when known, otherwise
	// the body is chunked.
	Values   io.Reader
	QueryID  string
	Settings map[string]string
	Timeout  time.Duration
}

// ExecParams describes a statement sent as the request body.
type ExecParams struct {
	Query    string
	QueryID  string
	Settings map[string]string
	Params   map[string]string
	Timeout  time.Duration
}

// CommandParams describes a statement whose response is discarded.
type CommandParams = ExecParams

// request is one prepared request/response cycle.
type request struct {
	op      Operation
	method  string
	path    string
	params  url.Values
	body    io.Reader
	timeout time.Duration
	// query is the statement text, carried for log events only.
	query   string
	queryID string
}

func newQueryID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

// searchParams builds the URL parameters shared by all statement requests.
func (c *Client) searchParams(queryID string, settings, bound map[string]string) url.Values {
	v := url.Values{}
	if c.cfg.database != "" {
		v.Set("database", c.cfg.database)
	}
	v.Set("query_id", queryID)
	for k, s := range c.cfg.settings {
		v.Set(k, s)
	}
	for k, s := range settings {
		v.Set(k, s)
	}
	for k, s := range bound {
		v.Set("param_"+k, s)
	}
	return v
}

func pingRequest() *request {
	return &request{op: OpPing, method: http.MethodGet, path: "/ping"}
}

func (c *Client) queryRequest(p QueryParams) *request {
	id := newQueryID(p.QueryID)
	text := strings.TrimRight(strings.TrimSpace(p.Query), ";")
	if p.Format != "" {
		text += "\nFORMAT " + p.Format
	}
	return &request{
		op:      OpQuery,
		method:  http.MethodPost,
		path:    "/",
		params:  c.searchParams(id, p.Settings, p.Params),
		body:    strings.NewReader(text),
		timeout: p.Timeout,
		query:   text,
		queryID: id,
	}
}

func (c *Client) insertRequest(p InsertParams) *request {
	id := newQueryID(p.QueryID)
	stmt := insertStatement(p.Table, p.Columns, p.Format)
	params := c.searchParams(id, p.Settings, nil)
	params.Set("query", stmt)
	return &request{
		op:      OpInsert,
		method:  http.MethodPost,
		path:    "/",
		params:  params,
		body:    p.Values,
		timeout: p.Timeout,
		query:   stmt,
		queryID: id,
	}
}

func (c *Client) execRequest(op Operation, p ExecParams) *request {
	id := newQueryID(p.QueryID)
	return &request{
		op:      op,
		method:  http.MethodPost,
		path:    "/",
		params:  c.searchParams(id, p.Settings, p.Params),
		body:    strings.NewReader(p.Query),
		timeout: p.Timeout,
		query:   p.Query,
		queryID: id,
	}
}

func insertStatement(table string, columns []string, format string) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(table)
	if len(columns) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(columns, ", "))
		b.WriteString(")")
	}
	if format != "" {
		b.WriteString(" FORMAT ")
		b.WriteString(format)
	}
	return b.String()
}

// headerArgs flattens headers for log events. Authorization never appears.
func headerArgs(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if strings.EqualFold(k, "Authorization") {
			out[k] = "[REDACTED]"
			continue
		}
		out[k] = strings.Join(h[k], ", ")
	}
	return out
}
