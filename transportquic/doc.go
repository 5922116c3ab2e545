// Package transportquic implements connstate.Transport directly on top of
// quic-go: a control stream is a QUIC bidirectional stream, a data stream
// is a QUIC unidirectional stream, matching the core specification's
// transport configuration (§6). The teacher's own internal/webtransport
// wrapper is not used here — its own go.mod never lists the WebTransport
// module it depends on, so building on quic-go's native stream API
// directly is both simpler and the part of the teacher's stack that is
// actually a fetchable dependency.
package transportquic
