package connstate

import (
	"context"
	"io"
)

// BidiStream is the control stream's transport-facing shape: readable and
// writable, closable. The concrete implementation (transportquic) wraps a
// QUIC/WebTransport stream; tests use an in-memory pipe.
type BidiStream interface {
	io.Reader
	io.Writer
	io.Closer
}

// SendStream is a unidirectional data stream's transport-facing shape.
// CancelWrite implements the best-effort cancellation abort_if_sending
// relies on.
type SendStream interface {
	io.Writer
	io.Closer
	CancelWrite(errorCode uint64)
}

// Transport is the external collaborator every connection depends on —
// the QUIC/WebTransport runtime is treated as out of scope per the core
// specification and is injected at construction instead of referenced as
// a singleton.
type Transport interface {
	OpenControlStream(ctx context.Context) (BidiStream, error)
	OpenDataStream(ctx context.Context) (SendStream, error)
}
