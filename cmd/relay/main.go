// Command relay runs a standalone Media-over-QUIC relay: a QUIC listener
// accepting both publisher and subscriber connections against one shared
// DataStore, fulfilled by a subscription engine worker pool. This is the
// example program the core specification's §1 scope explicitly leaves
// external — wiring here is intentionally minimal, mirroring the teacher's
// own cmd/prism entrypoint (self-signed cert generation, slog setup,
// signal-driven shutdown via errgroup).
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/moqcore/relay/internal/certs"
	"github.com/moqcore/relay/internal/connstate"
	"github.com/moqcore/relay/internal/endpoint"
	"github.com/moqcore/relay/internal/store"
	"github.com/moqcore/relay/internal/subscription"
	"github.com/moqcore/relay/internal/wire"
	"github.com/moqcore/relay/transportquic"
)

const alpn = "moqcore-relay-01"

func main() {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	addr := envOr("RELAY_ADDR", ":4443")

	cert, err := certs.Generate(14 * 24 * time.Hour)
	if err != nil {
		slog.Error("generate certificate", "error", err)
		os.Exit(1)
	}
	slog.Info("certificate generated", "fingerprint", cert.FingerprintBase64(), "expires", cert.NotAfter.Format(time.RFC3339))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("shutting down")
		cancel()
	}()

	st := store.New()
	engine := subscription.NewEngine(st, subscription.Config{Workers: 4})

	ln, err := transportquic.Listen(addr, cert.TLSCert, transportquic.DefaultConfig(), alpn)
	if err != nil {
		slog.Error("listen", "error", err)
		os.Exit(1)
	}
	defer ln.Close()
	slog.Info("relay listening", "addr", ln.Addr())

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return engine.Start(ctx) })
	g.Go(func() error { return acceptLoop(ctx, ln, st, engine) })

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		slog.Error("relay exited", "error", err)
		os.Exit(1)
	}
}

// acceptLoop accepts inbound QUIC connections and spawns a connHandler
// goroutine per connection — a publisher pushing objects in, a subscriber
// pulling objects out, or both, distinguished by which control messages
// the peer actually sends rather than by a separate negotiated role.
func acceptLoop(ctx context.Context, ln *transportquic.Listener, st *store.DataStore, engine *subscription.Engine) error {
	for {
		sess, err := ln.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Warn("accept failed", "error", err)
			continue
		}
		go handleConnection(ctx, sess, st, engine)
	}
}

func handleConnection(ctx context.Context, sess *transportquic.Session, st *store.DataStore, engine *subscription.Engine) {
	log := slog.With("component", "connection", "remote", sess.Conn().RemoteAddr())

	conn := connstate.New(st, sess, connstate.RoleBoth)
	pub := endpoint.NewPublisherSession(st, engine, conn)
	sub := endpoint.NewSubscriberSession(conn)

	control, err := sess.AcceptControlStream(ctx)
	if err != nil {
		log.Warn("accept control stream", "error", err)
		return
	}
	if err := conn.AcceptControlStream(control); err != nil {
		log.Warn("register control stream", "error", err)
		return
	}

	go acceptDataStreams(ctx, sess, conn, log)

	_, decoder, _ := conn.Control()
	buf := make([]byte, 4096)
	for {
		n, err := control.Read(buf)
		if n > 0 {
			if pushErr := decoder.Push(buf[:n], func(msgType uint64, body []byte) error {
				return dispatchControl(msgType, body, conn, pub, sub, log)
			}); pushErr != nil {
				log.Warn("control stream framing error", "error", pushErr)
				sess.CloseWithError(1, "framing error")
				return
			}
		}
		if err != nil {
			log.Info("control stream closed", "error", err)
			return
		}
	}
}

func dispatchControl(msgType uint64, body []byte, conn *connstate.ConnState, pub *endpoint.PublisherSession, sub *endpoint.SubscriberSession, log *slog.Logger) error {
	msg, err := wire.Decode(msgType, body)
	if err != nil {
		return err
	}
	switch m := msg.(type) {
	case wire.ClientSetup:
		return conn.SendControl(wire.ServerSetup{SelectedVersion: m.Versions[0]})
	case wire.ServerSetup:
		sub.HandleServerSetup(m)
	case wire.Subscribe:
		return pub.HandleSubscribe(m)
	case wire.BatchSubscribe:
		return pub.HandleBatchSubscribe(m)
	case wire.Unsubscribe:
		pub.HandleUnsubscribe(m)
	case wire.SubscribeError:
		sub.HandleSubscribeError(m)
	case wire.TrackStatusRequest:
		status := pub.HandleTrackStatusRequest(m)
		log.Debug("track status", "namespace", m.Namespace, "name", m.TrackName, "exists", status.Exists)
	default:
		log.Warn("unhandled control message", "type", msgType)
	}
	return nil
}

// acceptDataStreams accepts inbound unidirectional data streams and feeds
// each one's bytes into the shared DataStore via a per-stream decoder and
// InboundDataStream, so objects a peer publishes become visible to this
// endpoint's own subscription engine immediately.
func acceptDataStreams(ctx context.Context, sess *transportquic.Session, conn *connstate.ConnState, log *slog.Logger) {
	for {
		rs, err := sess.AcceptDataStream(ctx)
		if err != nil {
			return
		}
		go func() {
			dec := wire.NewDataStreamDecoder()
			ids := conn.AcceptDataStream()
			buf := make([]byte, 4096)
			for {
				n, err := rs.Read(buf)
				if n > 0 {
					if feedErr := ids.Feed(dec, buf[:n]); feedErr != nil {
						log.Warn("data stream framing error", "error", feedErr)
						return
					}
				}
				if err != nil {
					return
				}
			}
		}()
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
