package transportquic

import (
	"testing"
	"time"

	"github.com/moqcore/relay/internal/certs"
)

func TestDefaultConfigQuicConfig(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	qc := cfg.quicConfig()

	if qc.MaxIdleTimeout != cfg.IdleTimeout {
		t.Errorf("MaxIdleTimeout = %v, want %v", qc.MaxIdleTimeout, cfg.IdleTimeout)
	}
	if qc.MaxIncomingStreams != cfg.PeerBidiStreamCount {
		t.Errorf("MaxIncomingStreams = %v, want %v", qc.MaxIncomingStreams, cfg.PeerBidiStreamCount)
	}
	if qc.MaxIncomingUniStreams != cfg.PeerUnidiStreamCount {
		t.Errorf("MaxIncomingUniStreams = %v, want %v", qc.MaxIncomingUniStreams, cfg.PeerUnidiStreamCount)
	}
	if qc.Allow0RTT {
		t.Error("Allow0RTT should be false for ServerResumptionLevel 0")
	}
}

func TestTLSConfigFor(t *testing.T) {
	t.Parallel()
	c, err := certs.Generate(24 * time.Hour)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	tlsConf := TLSConfigFor(c.TLSCert, "moqcore-relay-01")
	if len(tlsConf.Certificates) != 1 {
		t.Fatalf("Certificates len = %d, want 1", len(tlsConf.Certificates))
	}
	if len(tlsConf.NextProtos) != 1 || tlsConf.NextProtos[0] != "moqcore-relay-01" {
		t.Errorf("NextProtos = %v, want [moqcore-relay-01]", tlsConf.NextProtos)
	}
}
