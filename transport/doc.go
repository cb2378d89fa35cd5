// Package transport executes ping, query, insert, exec and command requests
// against the server's HTTP interface over pooled keep-alive sockets.
//
// Every operation runs one request/response cycle on a socket leased from a
// pool.Pool. The cycle is bounded by the request timeout: acquisition, dialing,
// writing the request and reading the response head always are, and buffered
// operations (ping, insert, command) also bound the body. Streamed results
// (query, exec) switch to a per-read inactivity timeout once the head has
// arrived.
//
// A socket that saw any failure, including a timeout, is destroyed; a socket
// whose response completed cleanly goes back to the pool unless the server
// asked to close it. No operation is retried implicitly: each call yields
// exactly one result or one error. Transport failures are *wireerr.Error
// values; server exceptions are *wireerr.ServerError.
//
//	client, err := transport.New("http://localhost:8123",
//		transport.WithRequestTimeout(10*time.Second),
//		transport.WithLogger(observe.NewLogger("debug")),
//	)
//	if err != nil {
//		return err
//	}
//	defer client.Close(context.Background())
//
//	if res := client.Ping(ctx); !res.Success {
//		return res.Err
//	}
package transport
