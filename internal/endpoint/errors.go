package endpoint

import "errors"

// Error codes carried in SUBSCRIBE_ERROR's error-code field. The core
// specification leaves these unenumerated (§7 only names the conditions);
// we pick a small stable numbering rather than leave the field meaningless.
const (
	ErrCodeTrackDoesNotExist  uint64 = 1
	ErrCodeGroupDoesNotExist  uint64 = 2
	ErrCodeObjectDoesNotExist uint64 = 3
	ErrCodeInternal           uint64 = 4
)

var (
	// ErrNotReady indicates a subscriber tried to subscribe before the
	// CLIENT_SETUP/SERVER_SETUP handshake completed.
	ErrNotReady = errors.New("endpoint: setup handshake not complete")

	// ErrUnknownSubscription indicates a control message referenced a
	// subscribe-id this endpoint has no record of.
	ErrUnknownSubscription = errors.New("endpoint: unknown subscribe-id")

	// ErrVersionMismatch indicates the server selected a version the
	// client did not offer in CLIENT_SETUP.
	ErrVersionMismatch = errors.New("endpoint: server selected unsupported version")
)
