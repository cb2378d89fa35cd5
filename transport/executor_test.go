package transport

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonwraymond/chwire/observe"
	"github.com/jonwraymond/chwire/wireerr"
)

const okPing = "HTTP/1.1 200 OK\r\nContent-Length: 4\r\n\r\nOk.\n"

// rawServer accepts connections and hands each to serve with its index.
type rawServer struct {
	ln    net.Listener
	wg    sync.WaitGroup
	mu    sync.Mutex
	conns []net.Conn
	n     atomic.Int32
}

func newRawServer(t *testing.T, serve func(i int, conn net.Conn)) *rawServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	return startRawServer(t, ln, serve)
}

func startRawServer(t *testing.T, ln net.Listener, serve func(i int, conn net.Conn)) *rawServer {
	t.Helper()
	s := &rawServer{ln: ln}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			s.mu.Lock()
			s.conns = append(s.conns, conn)
			s.mu.Unlock()
			i := int(s.n.Add(1)) - 1
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				serve(i, conn)
			}()
		}
	}()
	t.Cleanup(s.close)
	return s
}

func (s *rawServer) url() string { return "http://" + s.ln.Addr().String() }

func (s *rawServer) close() {
	_ = s.ln.Close()
	s.mu.Lock()
	for _, c := range s.conns {
		_ = c.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// readRequests reads requests from conn and calls reply for each until the
// connection fails.
func readRequests(conn net.Conn, reply func(n int, req *http.Request) bool) {
	br := bufio.NewReader(conn)
	for n := 0; ; n++ {
		req, err := http.ReadRequest(br)
		if err != nil {
			return
		}
		_, _ = io.Copy(io.Discard, req.Body)
		if !reply(n, req) {
			return
		}
	}
}

// silent reads whatever arrives and never answers.
func silent(conn net.Conn) { _, _ = io.Copy(io.Discard, conn) }

func newTestClient(t *testing.T, rawURL string, opts ...Option) *Client {
	t.Helper()
	c, err := New(rawURL, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	return c
}

func wantKind(t *testing.T, err error, kind wireerr.Kind) {
	t.Helper()
	got, ok := wireerr.KindOf(err)
	if !ok {
		t.Fatalf("err = %v (%T), want a *wireerr.Error", err, err)
	}
	if got != kind {
		t.Fatalf("kind = %v, want %v (err: %v)", got, kind, err)
	}
}

// syncBuffer is a bytes.Buffer safe for concurrent writers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestPing_TimeoutWhenServerNeverResponds(t *testing.T) {
	srv := newRawServer(t, func(_ int, conn net.Conn) { silent(conn) })
	c := newTestClient(t, srv.url(), WithRequestTimeout(10*time.Millisecond))

	for i := 0; i < 5; i++ {
		res := c.Ping(context.Background())
		if res.Success {
			t.Fatalf("ping %d succeeded", i)
		}
		wantKind(t, res.Err, wireerr.KindTimeout)
		if !strings.Contains(res.Err.Error(), "Timeout error.") {
			t.Fatalf("message = %q, want it to contain %q", res.Err.Error(), "Timeout error.")
		}
	}
	if s := c.Stats(); s.Open != 0 {
		t.Fatalf("open sockets after timeouts = %d, want 0", s.Open)
	}
}

func TestPing_RecoversAfterTimeout(t *testing.T) {
	srv := newRawServer(t, func(i int, conn net.Conn) {
		if i == 0 {
			silent(conn)
			return
		}
		readRequests(conn, func(int, *http.Request) bool {
			_, err := io.WriteString(conn, okPing)
			return err == nil
		})
	})
	c := newTestClient(t, srv.url(), WithRequestTimeout(50*time.Millisecond))

	res := c.Ping(context.Background())
	if res.Success {
		t.Fatal("first ping succeeded against a silent server")
	}
	wantKind(t, res.Err, wireerr.KindTimeout)

	res = c.Ping(context.Background())
	if !res.Success {
		t.Fatalf("second ping: %v", res.Err)
	}
	if s := c.Stats(); s.Dials != 2 {
		t.Fatalf("dials = %d, want 2 (timed-out socket must not be reused)", s.Dials)
	}
}

func TestPing_ConnectionRefusedThenListening(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	c := newTestClient(t, "http://"+addr, WithRequestTimeout(time.Second))

	res := c.Ping(context.Background())
	if res.Success {
		t.Fatal("ping succeeded with nothing listening")
	}
	wantKind(t, res.Err, wireerr.KindConnectionRefused)
	if !errors.Is(res.Err, wireerr.ErrConnectionRefused) {
		t.Fatalf("errors.Is(err, ErrConnectionRefused) = false for %v", res.Err)
	}
	var we *wireerr.Error
	if errors.As(res.Err, &we) && we.Phase != wireerr.PhaseConnect {
		t.Fatalf("phase = %v, want connect", we.Phase)
	}

	ln, err = net.Listen("tcp", addr)
	if err != nil {
		t.Skipf("port %s was taken before it could be reused: %v", addr, err)
	}
	startRawServer(t, ln, func(_ int, conn net.Conn) {
		readRequests(conn, func(int, *http.Request) bool {
			_, err := io.WriteString(conn, okPing)
			return err == nil
		})
	})

	if res := c.Ping(context.Background()); !res.Success {
		t.Fatalf("ping after server start: %v", res.Err)
	}
}

func TestPing_MalformedResponses(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		kind  wireerr.Kind
	}{
		{"partial headers then close", "HTTP/1.1 200 OK\r\nContent-Le", wireerr.KindSocketHangUp},
		{"no bytes then close", "", wireerr.KindSocketHangUp},
		{"not a status line", "not a header\r\n\r\n", wireerr.KindProtocol},
		{"header without colon", "HTTP/1.1 200 OK\r\nno colon here\r\nContent-Length: 4\r\n\r\nOk.\n", wireerr.KindProtocol},
		{"space inside header name", "HTTP/1.1 200 OK\r\nBad Name: x\r\nContent-Length: 4\r\n\r\nOk.\n", wireerr.KindProtocol},
		{"space before colon", "HTTP/1.1 200 OK\r\nX : a\r\nContent-Length: 4\r\n\r\nOk.\n", wireerr.KindProtocol},
		{"short body", "HTTP/1.1 200 OK\r\nContent-Length: 100\r\n\r\nOk.\n", wireerr.KindAborted},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := newRawServer(t, func(_ int, conn net.Conn) {
				readRequests(conn, func(int, *http.Request) bool {
					_, _ = io.WriteString(conn, tc.reply)
					return false
				})
				_ = conn.Close()
			})
			c := newTestClient(t, srv.url(), WithRequestTimeout(time.Second))

			res := c.Ping(context.Background())
			if res.Success {
				t.Fatal("ping succeeded")
			}
			wantKind(t, res.Err, tc.kind)
			if s := c.Stats(); s.Open != 0 {
				t.Fatalf("open = %d, want 0", s.Open)
			}
		})
	}
}

func TestPing_ResetOnReusedSocket(t *testing.T) {
	srv := newRawServer(t, func(_ int, conn net.Conn) {
		readRequests(conn, func(n int, _ *http.Request) bool {
			if n == 0 {
				_, err := io.WriteString(conn, okPing)
				return err == nil
			}
			if tc, ok := conn.(*net.TCPConn); ok {
				_ = tc.SetLinger(0)
			}
			_ = conn.Close()
			return false
		})
	})
	c := newTestClient(t, srv.url(), WithRequestTimeout(time.Second))

	if res := c.Ping(context.Background()); !res.Success {
		t.Fatalf("first ping: %v", res.Err)
	}
	res := c.Ping(context.Background())
	if res.Success {
		t.Fatal("second ping succeeded on a reset socket")
	}
	wantKind(t, res.Err, wireerr.KindConnectionReset)
	if s := c.Stats(); s.Reuses != 1 {
		t.Fatalf("reuses = %d, want 1", s.Reuses)
	}
}

func TestPing_TimeoutWhileWaitingForSocket(t *testing.T) {
	block := make(chan struct{})
	var once sync.Once
	release := func() { once.Do(func() { close(block) }) }
	entered := make(chan struct{}, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		entered <- struct{}{}
		<-block
		_, _ = io.WriteString(w, "Ok.\n")
	}))
	defer srv.Close()
	defer release()

	c := newTestClient(t, srv.URL, WithMaxOpenConnections(2), WithRequestTimeout(5*time.Second))

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if res := c.Ping(context.Background()); !res.Success {
				t.Errorf("blocked ping: %v", res.Err)
			}
		}()
	}
	<-entered
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	res := c.Ping(ctx)
	if res.Success {
		t.Fatal("third ping succeeded beyond the socket ceiling")
	}
	wantKind(t, res.Err, wireerr.KindTimeout)
	var we *wireerr.Error
	if errors.As(res.Err, &we) && we.Phase != wireerr.PhaseAcquire {
		t.Fatalf("phase = %v, want acquire", we.Phase)
	}
	if s := c.Stats(); s.Open > 2 {
		t.Fatalf("open = %d, exceeds ceiling 2", s.Open)
	}

	release()
	wg.Wait()
}

func TestPing_CanceledContext(t *testing.T) {
	srv := newRawServer(t, func(_ int, conn net.Conn) { silent(conn) })
	c := newTestClient(t, srv.url(), WithRequestTimeout(5*time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)
	res := c.Ping(ctx)
	if res.Success {
		t.Fatal("ping succeeded")
	}
	wantKind(t, res.Err, wireerr.KindTransport)
	if !errors.Is(res.Err, context.Canceled) {
		t.Fatalf("errors.Is(err, context.Canceled) = false for %v", res.Err)
	}
}

func TestLogging_OneDebugEventPerResponse(t *testing.T) {
	srv := newRawServer(t, func(_ int, conn net.Conn) {
		readRequests(conn, func(int, *http.Request) bool {
			_, err := io.WriteString(conn, okPing)
			return err == nil
		})
	})
	buf := &syncBuffer{}
	c := newTestClient(t, srv.url(), WithLogger(observe.NewLoggerWithWriter("debug", buf)))

	for i := 0; i < 3; i++ {
		if res := c.Ping(context.Background()); !res.Success {
			t.Fatalf("ping %d: %v", i, res.Err)
		}
	}
	if n := strings.Count(buf.String(), `"msg":"got a response"`); n != 3 {
		t.Fatalf("got %d response events, want 3\n%s", n, buf.String())
	}
	if !strings.Contains(buf.String(), `"module":"HTTP Transport"`) {
		t.Fatalf("events lack the module name:\n%s", buf.String())
	}
}

func TestLogging_OffEmitsNothing(t *testing.T) {
	srv := newRawServer(t, func(i int, conn net.Conn) {
		if i == 0 {
			silent(conn)
			return
		}
		readRequests(conn, func(int, *http.Request) bool {
			_, err := io.WriteString(conn, okPing)
			return err == nil
		})
	})
	buf := &syncBuffer{}
	c := newTestClient(t, srv.url(),
		WithRequestTimeout(20*time.Millisecond),
		WithLogger(observe.NewLoggerWithWriter("off", buf)),
	)

	c.Ping(context.Background())
	c.Ping(context.Background())
	if got := buf.String(); got != "" {
		t.Fatalf("log output with level off:\n%s", got)
	}
}

func TestLogging_Redaction(t *testing.T) {
	const secret = "s3cr3t-value"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "1\n")
	}))
	defer srv.Close()

	for _, unredacted := range []bool{false, true} {
		buf := &syncBuffer{}
		c := newTestClient(t, srv.URL,
			WithLogger(observe.NewLoggerWithWriter("debug", buf)),
			WithUnredactedQueries(unredacted),
		)
		res, err := c.Query(context.Background(), QueryParams{
			Query:  "SELECT {id:String}",
			Params: map[string]string{"id": secret},
		})
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		_, _ = io.Copy(io.Discard, res.Body)
		_ = res.Close()

		out := buf.String()
		if !strings.Contains(out, "got a response") {
			t.Fatalf("no response event:\n%s", out)
		}
		if got := strings.Contains(out, secret); got != unredacted {
			t.Fatalf("unredacted=%v: secret in log = %v\n%s", unredacted, got, out)
		}
		if got := strings.Contains(out, "SELECT"); got != unredacted {
			t.Fatalf("unredacted=%v: query text in log = %v\n%s", unredacted, got, out)
		}
	}
}

func TestLogging_ServerErrorMessageRedacted(t *testing.T) {
	const secret = "hunter2_table"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, "Code: 62. DB::Exception: Syntax error: failed at position 8 ('"+secret+"'). (SYNTAX_ERROR)\n")
	}))
	defer srv.Close()

	for _, unredacted := range []bool{false, true} {
		buf := &syncBuffer{}
		c := newTestClient(t, srv.URL,
			WithLogger(observe.NewLoggerWithWriter("error", buf)),
			WithUnredactedQueries(unredacted),
		)
		_, err := c.Query(context.Background(), QueryParams{Query: "SELEC " + secret})
		if err == nil || !strings.Contains(err.Error(), secret) {
			t.Fatalf("returned error should keep the full message: %v", err)
		}

		out := buf.String()
		if !strings.Contains(out, "SYNTAX_ERROR") {
			t.Fatalf("missing error event:\n%s", out)
		}
		if got := strings.Contains(out, secret); got != unredacted {
			t.Fatalf("unredacted=%v: server message in log = %v\n%s", unredacted, got, out)
		}
	}
}

func TestLogging_ErrorEvent(t *testing.T) {
	srv := newRawServer(t, func(_ int, conn net.Conn) { silent(conn) })
	buf := &syncBuffer{}
	c := newTestClient(t, srv.url(),
		WithRequestTimeout(10*time.Millisecond),
		WithLogger(observe.NewLoggerWithWriter("error", buf)),
	)

	c.Ping(context.Background())
	out := buf.String()
	if !strings.Contains(out, `"msg":"request failed"`) || !strings.Contains(out, `"error_kind":"timeout"`) {
		t.Fatalf("missing error event:\n%s", out)
	}
}
