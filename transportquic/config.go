package transportquic

import (
	"time"

	"github.com/quic-go/quic-go"
)

// Config mirrors the configuration knobs the core specification enumerates
// for the transport layer (§6). ExecutionWorkers stands in for the
// specification's processor-pinning/worker-count "execution_config" —
// quic-go has no processor-affinity knob. ExecutionWorkers and
// SendBuffering are carried in Config but not read by quicConfig or by
// cmd/relay, which sizes its subscription engine on its own.
type Config struct {
	IdleTimeout             time.Duration
	PeerUnidiStreamCount    int64
	PeerBidiStreamCount     int64
	SendBuffering           bool
	StreamRecvWindowDefault uint64
	StreamRecvBufferDefault uint64
	ServerResumptionLevel   int
	ExecutionWorkers        int
}

// DefaultConfig returns the teacher's own quic.Config values
// (zsiec-prism/internal/distribution/server.go's 30s idle timeout) plus
// spec-reasonable defaults for the fields the teacher never set.
func DefaultConfig() Config {
	return Config{
		IdleTimeout:             30 * time.Second,
		PeerUnidiStreamCount:    1000,
		PeerBidiStreamCount:     100,
		SendBuffering:           true,
		StreamRecvWindowDefault: 1 << 20,
		StreamRecvBufferDefault: 1 << 20,
		ServerResumptionLevel:   0,
		ExecutionWorkers:        4,
	}
}

// quicConfig translates Config into quic-go's own quic.Config, the split
// the teacher's server.go makes between its own ServerConfig and the
// quic.Config it hands to quic-go directly.
func (c Config) quicConfig() *quic.Config {
	return &quic.Config{
		MaxIdleTimeout:                 c.IdleTimeout,
		MaxIncomingStreams:             c.PeerBidiStreamCount,
		MaxIncomingUniStreams:          c.PeerUnidiStreamCount,
		InitialStreamReceiveWindow:     c.StreamRecvWindowDefault,
		InitialConnectionReceiveWindow: c.StreamRecvBufferDefault,
		Allow0RTT:                      c.ServerResumptionLevel > 0,
	}
}
