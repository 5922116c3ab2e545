package endpoint

import (
	"log/slog"
	"sync"

	"github.com/moqcore/relay/internal/connstate"
	"github.com/moqcore/relay/internal/store"
	"github.com/moqcore/relay/internal/subscription"
	"github.com/moqcore/relay/internal/wire"
)

// PublisherSession is the publisher-side façade for one connection: it
// admits SUBSCRIBE/BATCH_SUBSCRIBE/TRACK_STATUS_REQUEST control messages
// against the backing DataStore and hands admitted subscriptions to the
// shared subscription Engine.
type PublisherSession struct {
	store  *store.DataStore
	engine *subscription.Engine
	conn   *connstate.ConnState
	log    *slog.Logger

	mu   sync.Mutex
	subs map[uint64]*subscription.SubscriptionState
}

// NewPublisherSession wires a connection's publisher half to st and engine.
func NewPublisherSession(st *store.DataStore, engine *subscription.Engine, conn *connstate.ConnState) *PublisherSession {
	return &PublisherSession{
		store:  st,
		engine: engine,
		conn:   conn,
		log:    slog.With("component", "publisher-session"),
		subs:   make(map[uint64]*subscription.SubscriptionState),
	}
}

// HandleSubscribe processes one SUBSCRIBE: validates the track exists,
// binds the track alias, expands the filter into a SubscriptionState, and
// submits it to the engine. A missing track or an unsatisfiable filter is
// reported as SUBSCRIBE_ERROR rather than returned as a Go error — only
// transport-level send failures propagate.
func (p *PublisherSession) HandleSubscribe(msg wire.Subscribe) error {
	id := store.NewTrackIdentifier(msg.Namespace, msg.TrackName)

	if _, ok := p.store.TrackByID(id); !ok {
		return p.reject(msg.SubscribeID, msg.TrackAlias, ErrCodeTrackDoesNotExist, "track does not exist")
	}

	p.conn.BindTrackAlias(store.TrackAlias(msg.TrackAlias), id)

	sub, err := subscription.Expand(p.store, p.conn, id, msg)
	if err != nil {
		return p.reject(msg.SubscribeID, msg.TrackAlias, ErrCodeGroupDoesNotExist, err.Error())
	}

	p.mu.Lock()
	p.subs[msg.SubscribeID] = sub
	p.mu.Unlock()

	p.engine.Submit(sub)
	return nil
}

// HandleBatchSubscribe expands a BATCH_SUBSCRIBE into its constituent
// SUBSCRIBEs, prefixing each element's namespace tuple with the shared
// prefix, and admits each exactly as HandleSubscribe would. The first
// per-element failure is returned; earlier elements in the batch are still
// admitted, matching the "N independent SUBSCRIBEs" framing in the core
// specification.
func (p *PublisherSession) HandleBatchSubscribe(msg wire.BatchSubscribe) error {
	var firstErr error
	for _, s := range msg.Subscribes {
		full := make([]string, 0, len(msg.NamespacePrefix)+len(s.Namespace))
		full = append(full, msg.NamespacePrefix...)
		full = append(full, s.Namespace...)
		s.Namespace = full
		if err := p.HandleSubscribe(s); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// HandleUnsubscribe cancels the named subscription, if this session holds
// one under that subscribe-id.
func (p *PublisherSession) HandleUnsubscribe(msg wire.Unsubscribe) {
	p.mu.Lock()
	sub, ok := p.subs[msg.SubscribeID]
	if ok {
		delete(p.subs, msg.SubscribeID)
	}
	p.mu.Unlock()
	if ok {
		sub.Cancel()
	}
}

// TrackStatus reports on a track's existence and, if present, its latest
// registered group/object — the C4 state backing TRACK_STATUS_REQUEST.
type TrackStatus struct {
	Exists       bool
	LatestGroup  store.GroupID
	LatestObject store.ObjectID
}

// HandleTrackStatusRequest answers a TRACK_STATUS_REQUEST from the store.
func (p *PublisherSession) HandleTrackStatusRequest(msg wire.TrackStatusRequest) TrackStatus {
	id := store.NewTrackIdentifier(msg.Namespace, msg.TrackName)
	th, ok := p.store.TrackByID(id)
	if !ok {
		return TrackStatus{}
	}
	gid, oid, ok := th.GetLatestRegisteredObject()
	if !ok {
		return TrackStatus{Exists: true}
	}
	return TrackStatus{Exists: true, LatestGroup: gid, LatestObject: oid}
}

func (p *PublisherSession) reject(subscribeID, trackAlias, code uint64, reason string) error {
	p.log.Warn("rejecting subscribe", "subscribe_id", subscribeID, "code", code, "reason", reason)
	return p.conn.SendControl(wire.SubscribeError{
		SubscribeID:  subscribeID,
		ErrorCode:    code,
		ReasonPhrase: reason,
		TrackAlias:   trackAlias,
	})
}
