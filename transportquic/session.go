package transportquic

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/quic-go/quic-go"

	"github.com/moqcore/relay/internal/connstate"
)

// Session wraps a quic.Connection and implements connstate.Transport
// directly on top of it: the control stream is a QUIC bidirectional
// stream opened once per connection, data streams are QUIC unidirectional
// streams opened on demand by ConnState.SendObject. This plays the role
// the teacher's internal/webtransport.Session plays for its HTTP/3
// WebTransport sessions, minus the WebTransport upgrade handshake this
// relay core doesn't need.
type Session struct {
	conn quic.Connection
}

// NewSession wraps an established quic.Connection.
func NewSession(conn quic.Connection) *Session {
	return &Session{conn: conn}
}

// Conn returns the underlying quic.Connection, for callers that need the
// remote address or connection-level close.
func (s *Session) Conn() quic.Connection { return s.conn }

// OpenControlStream opens an outbound bidirectional QUIC stream and marks
// it high priority, matching the core specification's "priority flag set"
// requirement for the control stream (§4.5).
func (s *Session) OpenControlStream(ctx context.Context) (connstate.BidiStream, error) {
	st, err := s.conn.OpenStreamSync(ctx)
	if err != nil {
		return nil, fmt.Errorf("transportquic: open control stream: %w", err)
	}
	st.SetPriority(0)
	return st, nil
}

// OpenDataStream opens an outbound unidirectional QUIC stream for one
// SUBGROUP's worth of objects.
func (s *Session) OpenDataStream(ctx context.Context) (connstate.SendStream, error) {
	st, err := s.conn.OpenUniStreamSync(ctx)
	if err != nil {
		return nil, fmt.Errorf("transportquic: open data stream: %w", err)
	}
	return &sendStream{SendStream: st}, nil
}

// AcceptControlStream blocks until the peer opens the (one) bidirectional
// control stream, per the core specification's single-control-stream
// invariant.
func (s *Session) AcceptControlStream(ctx context.Context) (connstate.BidiStream, error) {
	st, err := s.conn.AcceptStream(ctx)
	if err != nil {
		return nil, fmt.Errorf("transportquic: accept control stream: %w", err)
	}
	return st, nil
}

// AcceptDataStream blocks until the peer opens an inbound unidirectional
// data stream. The returned quic.ReceiveStream is read directly by the
// caller's accept loop and fed to a connstate.InboundDataStream.
func (s *Session) AcceptDataStream(ctx context.Context) (quic.ReceiveStream, error) {
	st, err := s.conn.AcceptUniStream(ctx)
	if err != nil {
		return nil, fmt.Errorf("transportquic: accept data stream: %w", err)
	}
	return st, nil
}

// CloseWithError closes the underlying connection, matching the core
// specification's connection-fatal error handling (§7): the whole
// connection is torn down with an application error code and reason.
func (s *Session) CloseWithError(code uint64, reason string) error {
	return s.conn.CloseWithError(quic.ApplicationErrorCode(code), reason)
}

// sendStream adapts quic.SendStream to connstate.SendStream: quic.Stream
// and quic.SendStream already satisfy io.Reader/io.Writer/io.Closer
// structurally, so only CancelWrite's signature (quic.StreamErrorCode vs
// connstate.SendStream's plain uint64) needs an adapter.
type sendStream struct {
	quic.SendStream
}

func (s *sendStream) CancelWrite(errorCode uint64) {
	s.SendStream.CancelWrite(quic.StreamErrorCode(errorCode))
}

// TLSConfigFor builds a minimal server tls.Config presenting cert and
// negotiating alpn, matching the teacher's internal/distribution.Server
// constructing its own http3/webtransport TLS config from a generated
// certs.CertInfo.
func TLSConfigFor(cert tls.Certificate, alpn ...string) *tls.Config {
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   alpn,
	}
}
