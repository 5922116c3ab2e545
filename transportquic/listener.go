package transportquic

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"

	"github.com/quic-go/quic-go"
)

// Listener accepts inbound QUIC connections and returns each one from
// Accept as a *Session, mirroring the teacher's
// internal/webtransport.Server accept loop minus the HTTP/3 upgrade.
type Listener struct {
	ql  *quic.Listener
	log *slog.Logger
}

// Listen starts a QUIC listener on addr presenting cert and negotiating
// one of alpn. cfg supplies the transport's idle-timeout and stream-count
// knobs (core specification §6's configuration list).
func Listen(addr string, cert tls.Certificate, cfg Config, alpn ...string) (*Listener, error) {
	tlsConf := TLSConfigFor(cert, alpn...)
	ql, err := quic.ListenAddr(addr, tlsConf, cfg.quicConfig())
	if err != nil {
		return nil, fmt.Errorf("transportquic: listen %s: %w", addr, err)
	}
	return &Listener{ql: ql, log: slog.With("component", "transportquic.listener", "addr", addr)}, nil
}

// Accept blocks for the next inbound QUIC connection and wraps it as a
// Session.
func (l *Listener) Accept(ctx context.Context) (*Session, error) {
	conn, err := l.ql.Accept(ctx)
	if err != nil {
		return nil, fmt.Errorf("transportquic: accept: %w", err)
	}
	l.log.Debug("connection accepted", "remote", conn.RemoteAddr())
	return NewSession(conn), nil
}

// Close shuts the listener down; connections already accepted are
// unaffected.
func (l *Listener) Close() error { return l.ql.Close() }

// Addr returns the listener's local network address.
func (l *Listener) Addr() string { return l.ql.Addr().String() }

// Dial opens an outbound QUIC connection to addr presenting serverName for
// TLS verification (insecureSkipVerify left to the caller's tls.Config
// when dialing a self-signed relay peer by fingerprint instead).
func Dial(ctx context.Context, addr, serverName string, tlsConf *tls.Config, cfg Config, alpn ...string) (*Session, error) {
	conf := tlsConf.Clone()
	conf.ServerName = serverName
	conf.NextProtos = alpn
	conn, err := quic.DialAddr(ctx, addr, conf, cfg.quicConfig())
	if err != nil {
		return nil, fmt.Errorf("transportquic: dial %s: %w", addr, err)
	}
	return NewSession(conn), nil
}
