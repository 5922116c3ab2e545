// Package wire implements the MoQT wire-level codec: variable-length
// integers (C1), control and data message framing (C2), and the
// incremental per-stream deserializer (C3). It contains no session,
// store, or transport logic; those live in sibling packages.
package wire

import "errors"

// Sentinel errors for the wire codec. Callers distinguish failure modes
// with errors.Is.
var (
	// ErrNeedMoreData indicates the supplied buffer does not yet hold
	// enough bytes to make progress. It is recoverable: the caller should
	// retry once more bytes have arrived.
	ErrNeedMoreData = errors.New("wire: need more data")

	// ErrValueTooLarge indicates a varint encode was attempted for a value
	// that does not fit the 62-bit quic-style varint space.
	ErrValueTooLarge = errors.New("wire: value too large for varint")

	// ErrUnknownMessageType indicates a control-stream message type byte
	// did not match any message this codec understands. Fatal for the
	// stream it was read from.
	ErrUnknownMessageType = errors.New("wire: unknown message type")

	// ErrFraming indicates a declared body length did not match the
	// number of bytes actually consumed while parsing the body. Fatal for
	// the stream it was read from.
	ErrFraming = errors.New("wire: framing error")
)

// ParseError records which field of a message failed to parse and why.
type ParseError struct {
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	return "wire: parse " + e.Field + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error { return e.Err }
