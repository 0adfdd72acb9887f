// Package transport is the thin, explicitly external QUIC wiring the
// capability-RPC stack runs over. Certificate loading and endpoint
// lifecycle are the caller's problem (out of scope per spec §1); this
// package only turns a *quic.Listener/quic.Connection into the
// io.ReadWriteCloser streams codec.Framed and dispatch.DispatchStream
// expect.
package transport

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/quic-go/quic-go"
)

// Stream is quic.Stream under a local name. It satisfies the plain
// io.ReadWriteCloser shape dispatch/codec consume, so neither package needs
// to know about QUIC.
type Stream = quic.Stream

// Listener accepts incoming QUIC connections and hands back their first
// bidirectional stream, one per connection, matching the one-stream-per-
// logical-session usage the dispatch engine expects.
type Listener struct {
	ql *quic.Listener
}

// ListenQUIC starts listening on addr with the given TLS and QUIC
// configuration. tlsConf must carry at least one certificate — the demo
// binary generates an ephemeral self-signed one for local testing; real
// certificate provisioning is out of scope here.
func ListenQUIC(addr string, tlsConf *tls.Config, cfg *quic.Config) (*Listener, error) {
	ql, err := quic.ListenAddr(addr, tlsConf, cfg)
	if err != nil {
		return nil, fmt.Errorf("transport: listening on %s: %w", addr, err)
	}
	return &Listener{ql: ql}, nil
}

// Accept blocks for the next incoming connection and returns its first
// bidirectional stream.
func (l *Listener) Accept(ctx context.Context) (Stream, error) {
	conn, err := l.ql.Accept(ctx)
	if err != nil {
		return nil, fmt.Errorf("transport: accepting connection: %w", err)
	}
	stream, err := conn.AcceptStream(ctx)
	if err != nil {
		return nil, fmt.Errorf("transport: accepting stream: %w", err)
	}
	return stream, nil
}

// Close stops accepting new connections.
func (l *Listener) Close() error {
	return l.ql.Close()
}

// Addr reports the address the listener is bound to.
func (l *Listener) Addr() string {
	return l.ql.Addr().String()
}

// DialQUIC opens a QUIC connection to addr and returns its first
// bidirectional stream.
func DialQUIC(ctx context.Context, addr string, tlsConf *tls.Config, cfg *quic.Config) (Stream, error) {
	conn, err := quic.DialAddr(ctx, addr, tlsConf, cfg)
	if err != nil {
		return nil, fmt.Errorf("transport: dialing %s: %w", addr, err)
	}
	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		return nil, fmt.Errorf("transport: opening stream to %s: %w", addr, err)
	}
	return stream, nil
}
