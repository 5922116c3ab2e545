package endpoint

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/moqcore/relay/internal/connstate"
	"github.com/moqcore/relay/internal/store"
	"github.com/moqcore/relay/internal/wire"
)

// ReceivedObject is one object delivered to a subscriber-facing handle.
type ReceivedObject struct {
	Track    store.TrackIdentifier
	Group    store.GroupID
	Subgroup store.SubgroupID
	Object   store.ObjectID
	Payload  []byte
}

// SubscriptionHandle is the user-visible result of Subscribe/BatchSubscribe:
// a channel of received objects plus a Done signal that closes when a
// SUBSCRIBE_ERROR arrives, after which Err returns that error. No other
// path closes Done.
type SubscriptionHandle struct {
	SubscribeID uint64
	Track       store.TrackIdentifier
	Objects     chan ReceivedObject
	Done        chan struct{}

	errOnce sync.Once
	errVal  error
}

func newSubscriptionHandle(subscribeID uint64, track store.TrackIdentifier) *SubscriptionHandle {
	return &SubscriptionHandle{
		SubscribeID: subscribeID,
		Track:       track,
		Objects:     make(chan ReceivedObject, 64),
		Done:        make(chan struct{}),
	}
}

func (h *SubscriptionHandle) fail(err error) {
	h.errOnce.Do(func() {
		h.errVal = err
		close(h.Done)
	})
}

// Err returns the terminal error, if Done has fired with one.
func (h *SubscriptionHandle) Err() error { return h.errVal }

// SubscriberSession is the subscriber-side façade for one connection: it
// drives the CLIENT_SETUP/SERVER_SETUP handshake, parks subscribe/
// batch_subscribe calls until SERVER_SETUP arrives, and routes inbound
// data-stream objects (via connstate.InboundDataStream's callback) to the
// per-subscription handle the caller is reading from.
type SubscriberSession struct {
	conn *connstate.ConnState
	log  *slog.Logger

	ready     chan struct{}
	readyOnce sync.Once
	version   atomic.Uint64

	nextSubscribeID atomic.Uint64

	mu        sync.Mutex
	byID      map[uint64]*SubscriptionHandle
	byTrack   map[store.TrackIdentifier]*SubscriptionHandle
}

// NewSubscriberSession wires a connection's subscriber half.
func NewSubscriberSession(conn *connstate.ConnState) *SubscriberSession {
	return &SubscriberSession{
		conn:    conn,
		log:     slog.With("component", "subscriber-session"),
		ready:   make(chan struct{}),
		byID:    make(map[uint64]*SubscriptionHandle),
		byTrack: make(map[store.TrackIdentifier]*SubscriptionHandle),
	}
}

// SendClientSetup opens the control stream if needed and sends CLIENT_SETUP
// advertising versions.
func (s *SubscriberSession) SendClientSetup(ctx context.Context, versions []uint64) error {
	if err := s.conn.EstablishControlStream(ctx); err != nil {
		return err
	}
	return s.conn.SendControl(wire.ClientSetup{Versions: versions})
}

// HandleServerSetup processes the server's SERVER_SETUP reply, unblocking
// any call parked in WaitReady/Subscribe/BatchSubscribe.
func (s *SubscriberSession) HandleServerSetup(msg wire.ServerSetup) {
	s.version.Store(msg.SelectedVersion)
	s.readyOnce.Do(func() { close(s.ready) })
}

// WaitReady blocks until SERVER_SETUP has been processed or ctx is done.
func (s *SubscriberSession) WaitReady(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SelectedVersion returns the version SERVER_SETUP selected, valid only
// after WaitReady returns nil.
func (s *SubscriberSession) SelectedVersion() uint64 { return s.version.Load() }

// Subscribe parks until setup completes, then sends a SUBSCRIBE for track
// and returns a handle the caller reads received objects from.
func (s *SubscriberSession) Subscribe(ctx context.Context, track store.TrackIdentifier, filter wire.FilterType, start, end *wire.GroupObject, priority uint8, params []wire.Parameter) (*SubscriptionHandle, error) {
	if err := s.WaitReady(ctx); err != nil {
		return nil, err
	}

	id := s.nextSubscribeID.Add(1)
	msg := wire.Subscribe{
		SubscribeID:  id,
		TrackAlias:   id,
		Namespace:    track.NamespaceTuple(),
		TrackName:    track.Name,
		SubPriority:  priority,
		FilterType:   filter,
		Start:        start,
		End:          end,
		Params:       params,
	}

	h := newSubscriptionHandle(id, track)
	s.mu.Lock()
	s.byID[id] = h
	s.byTrack[track] = h
	s.mu.Unlock()
	s.conn.BindTrackAlias(store.TrackAlias(id), track)

	if err := s.conn.SendControl(msg); err != nil {
		s.forget(id, track)
		return nil, err
	}
	return h, nil
}

// BatchSubscribe parks until setup completes, then sends one
// BATCH_SUBSCRIBE covering every (track, filter) pair sharing prefix.
func (s *SubscriberSession) BatchSubscribe(ctx context.Context, prefix []string, items []SubscribeItem) ([]*SubscriptionHandle, error) {
	if err := s.WaitReady(ctx); err != nil {
		return nil, err
	}

	handles := make([]*SubscriptionHandle, 0, len(items))
	subs := make([]wire.Subscribe, 0, len(items))
	for _, it := range items {
		id := s.nextSubscribeID.Add(1)
		rel := it.Track.NamespaceTuple()[len(prefix):]
		subs = append(subs, wire.Subscribe{
			SubscribeID: id,
			TrackAlias:  id,
			Namespace:   rel,
			TrackName:   it.Track.Name,
			SubPriority: it.Priority,
			FilterType:  it.Filter,
			Start:       it.Start,
			End:         it.End,
			Params:      it.Params,
		})
		h := newSubscriptionHandle(id, it.Track)
		handles = append(handles, h)
		s.mu.Lock()
		s.byID[id] = h
		s.byTrack[it.Track] = h
		s.mu.Unlock()
		s.conn.BindTrackAlias(store.TrackAlias(id), it.Track)
	}

	if err := s.conn.SendControl(wire.BatchSubscribe{NamespacePrefix: prefix, Subscribes: subs}); err != nil {
		for i, it := range items {
			s.forget(subs[i].SubscribeID, it.Track)
		}
		return nil, err
	}
	return handles, nil
}

// SubscribeItem is one element of a BatchSubscribe call.
type SubscribeItem struct {
	Track    store.TrackIdentifier
	Filter   wire.FilterType
	Start    *wire.GroupObject
	End      *wire.GroupObject
	Priority uint8
	Params   []wire.Parameter
}

// HandleSubscribeError routes a SUBSCRIBE_ERROR to its handle's Done signal.
func (s *SubscriberSession) HandleSubscribeError(msg wire.SubscribeError) {
	s.mu.Lock()
	h, ok := s.byID[msg.SubscribeID]
	s.mu.Unlock()
	if !ok {
		return
	}
	h.fail(fmt.Errorf("subscribe_error: code=%d %s", msg.ErrorCode, msg.ReasonPhrase))
}

// AttachDataStream wires an inbound data stream into the DataStore and, for
// any object on a track this session holds a subscription handle for, also
// forwards it to that handle's Objects channel.
func (s *SubscriberSession) AttachDataStream() *connstate.InboundDataStream {
	ids := s.conn.AcceptDataStream()
	ids.OnObject(func(oid store.ObjectIdentifier, subgroup store.SubgroupID, payload []byte) {
		s.mu.Lock()
		h, ok := s.byTrack[oid.Track]
		s.mu.Unlock()
		if !ok {
			return
		}
		select {
		case h.Objects <- ReceivedObject{Track: oid.Track, Group: oid.Group, Subgroup: subgroup, Object: oid.Object, Payload: payload}:
		default:
			s.log.Warn("dropping object, subscriber channel full", "track", oid.Track, "object", oid.Object)
		}
	})
	return ids
}

func (s *SubscriberSession) forget(id uint64, track store.TrackIdentifier) {
	s.mu.Lock()
	delete(s.byID, id)
	delete(s.byTrack, track)
	s.mu.Unlock()
}
