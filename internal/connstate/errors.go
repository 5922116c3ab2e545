package connstate

import "errors"

var (
	// ErrControlStreamAlreadyEstablished indicates EstablishControlStream
	// was called more than once on the same connection — fatal per the
	// "idempotency beyond first call is a fatal error" rule.
	ErrControlStreamAlreadyEstablished = errors.New("connstate: control stream already established")

	// ErrNoControlStream indicates SendControl was attempted before a
	// control stream was established or accepted.
	ErrNoControlStream = errors.New("connstate: no control stream")

	// ErrConnectionExpired indicates an operation targeted a connection
	// whose backing transport has gone away.
	ErrConnectionExpired = errors.New("connstate: connection expired")

	// ErrProtocolViolation indicates a message arrived out of the order
	// the handshake or stream role permits — fatal for the connection.
	ErrProtocolViolation = errors.New("connstate: protocol violation")
)
