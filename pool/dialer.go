package pool

import (
	"context"
	"crypto/tls"
	"net"
)

// Destination identifies where the pool connects.
type Destination struct {
	Network string // defaults to "tcp"
	Address string // host:port
	TLS     *tls.Config
}

func (d Destination) String() string { return d.Address }

func (d Destination) network() string {
	if d.Network == "" {
		return "tcp"
	}
	return d.Network
}

// Dialer opens raw connections. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context, network, address string) (net.Conn, error)

func (f DialerFunc) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	return f(ctx, network, address)
}

// dial opens a connection and completes the TLS handshake when configured.
func dial(ctx context.Context, d Dialer, dest Destination) (net.Conn, error) {
	conn, err := d.DialContext(ctx, dest.network(), dest.Address)
	if err != nil {
		return nil, err
	}
	if dest.TLS == nil {
		return conn, nil
	}

	cfg := dest.TLS
	if cfg.ServerName == "" {
		cfg = cfg.Clone()
		if host, _, err := net.SplitHostPort(dest.Address); err == nil {
			cfg.ServerName = host
		}
	}
	tc := tls.Client(conn, cfg)
	if err := tc.HandshakeContext(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return tc, nil
}
