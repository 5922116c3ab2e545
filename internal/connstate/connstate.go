package connstate

import (
	"context"
	"sync"
	"time"

	"github.com/moqcore/relay/internal/store"
	"github.com/moqcore/relay/internal/wire"
)

// Role is the peer's negotiated capability at SETUP.
type Role int

const (
	RolePublisher Role = iota
	RoleSubscriber
	RoleBoth
)

// ConnState is the per-connection bookkeeping described by the core
// specification's connection/stream state machine: one optional control
// stream, an ordered set of data streams each remembering its SUBGROUP
// header, a bidirectional track-alias map, and a per-track current-group
// cursor.
type ConnState struct {
	store     *store.DataStore
	transport Transport
	role      Role

	controlOnce sync.Once
	controlErr  error
	controlMu   sync.Mutex // serializes sends; writes must not reorder
	control     BidiStream
	decoder     *wire.ControlDecoder

	dataMu  sync.Mutex
	streams []*dataStream

	aliasMu  sync.RWMutex
	byAlias  map[store.TrackAlias]store.TrackIdentifier
	byID     map[store.TrackIdentifier]store.TrackAlias
	current  map[store.TrackIdentifier]store.GroupID
}

type dataStream struct {
	mu           sync.Mutex
	stream       SendStream
	header       *wire.SubgroupHeader
	expectedNext store.ObjectID
}

// New returns a ConnState backed by st and communicating over transport.
func New(st *store.DataStore, transport Transport, role Role) *ConnState {
	return &ConnState{
		store:     st,
		transport: transport,
		role:      role,
		byAlias:   make(map[store.TrackAlias]store.TrackIdentifier),
		byID:      make(map[store.TrackIdentifier]store.TrackAlias),
		current:   make(map[store.TrackIdentifier]store.GroupID),
	}
}

// EstablishControlStream opens an outbound bidirectional control stream.
// Calling it more than once returns ErrControlStreamAlreadyEstablished.
func (c *ConnState) EstablishControlStream(ctx context.Context) error {
	opened := false
	c.controlOnce.Do(func() {
		stream, err := c.transport.OpenControlStream(ctx)
		if err != nil {
			c.controlErr = err
			return
		}
		c.control = stream
		c.decoder = wire.NewControlDecoder()
		opened = true
	})
	if c.controlErr != nil {
		return c.controlErr
	}
	if !opened {
		return ErrControlStreamAlreadyEstablished
	}
	return nil
}

// AcceptControlStream registers an inbound control stream — the server
// side of the handshake, where the peer rather than this endpoint opened
// it.
func (c *ConnState) AcceptControlStream(stream BidiStream) error {
	c.controlMu.Lock()
	defer c.controlMu.Unlock()
	c.control = stream
	c.decoder = wire.NewControlDecoder()
	return nil
}

// AcceptDataStream registers an inbound unidirectional data stream,
// returning the stream's tracking slot so the caller can feed it to a
// wire.DataStreamDecoder and, once the SUBGROUP header is known, write
// received objects into the backing DataStore.
func (c *ConnState) AcceptDataStream() *InboundDataStream {
	return &InboundDataStream{conn: c}
}

// Control returns the current control stream and its decoder, or false if
// none has been established or accepted yet.
func (c *ConnState) Control() (BidiStream, *wire.ControlDecoder, bool) {
	c.controlMu.Lock()
	defer c.controlMu.Unlock()
	if c.control == nil {
		return nil, nil, false
	}
	return c.control, c.decoder, true
}

// SendControl serializes msg onto the control stream. Concurrent callers
// are serialized so sends never reorder relative to each other.
func (c *ConnState) SendControl(msg wire.Message) error {
	c.controlMu.Lock()
	defer c.controlMu.Unlock()
	if c.control == nil {
		return ErrNoControlStream
	}
	return wire.WriteMessage(c.control, msg)
}

// BindTrackAlias records the alias ↔ identifier binding established by a
// SUBSCRIBE (for a subscriber endpoint's outbound alias choice) or a
// publisher's own track registration.
func (c *ConnState) BindTrackAlias(alias store.TrackAlias, id store.TrackIdentifier) {
	c.aliasMu.Lock()
	defer c.aliasMu.Unlock()
	c.byAlias[alias] = id
	c.byID[id] = alias
}

// ResolveAlias returns the TrackIdentifier bound to alias.
func (c *ConnState) ResolveAlias(alias store.TrackAlias) (store.TrackIdentifier, bool) {
	c.aliasMu.RLock()
	defer c.aliasMu.RUnlock()
	id, ok := c.byAlias[alias]
	return id, ok
}

// ResolveTrack returns the TrackAlias bound to id.
func (c *ConnState) ResolveTrack(id store.TrackIdentifier) (store.TrackAlias, bool) {
	c.aliasMu.RLock()
	defer c.aliasMu.RUnlock()
	alias, ok := c.byID[id]
	return alias, ok
}

// AdvanceCurrentGroup records gid as the most recently observed live group
// for id, used by LatestGroup/LatestObject filters to locate "current".
func (c *ConnState) AdvanceCurrentGroup(id store.TrackIdentifier, gid store.GroupID) {
	c.aliasMu.Lock()
	defer c.aliasMu.Unlock()
	if cur, ok := c.current[id]; !ok || gid > cur {
		c.current[id] = gid
	}
}

// CurrentGroup returns the most recently observed live group for id.
func (c *ConnState) CurrentGroup(id store.TrackIdentifier) (store.GroupID, bool) {
	c.aliasMu.RLock()
	defer c.aliasMu.RUnlock()
	gid, ok := c.current[id]
	return gid, ok
}

// canSendObject reports whether ds's remembered SUBGROUP header matches
// oid/subgroup and ds is expecting oid.Object next.
func (ds *dataStream) canSendObject(oid store.ObjectIdentifier, subgroup store.SubgroupID, alias store.TrackAlias) bool {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	if ds.header == nil {
		return false
	}
	return store.TrackAlias(ds.header.TrackAlias) == alias &&
		store.GroupID(ds.header.GroupID) == oid.Group &&
		store.SubgroupID(ds.header.SubgroupID) == subgroup &&
		ds.expectedNext == oid.Object
}

// SendObject routes payload onto the first data stream whose remembered
// header matches oid/subgroup and whose expected-next object-id is
// oid.Object. If none exists, a new unidirectional stream is opened, its
// SUBGROUP header is written, and the object follows. subgroup is purely
// a transmission hint — object identity (oid) never carries one.
func (c *ConnState) SendObject(ctx context.Context, oid store.ObjectIdentifier, subgroup store.SubgroupID, priority store.PublisherPriority, payload []byte, timeout time.Duration) error {
	alias, ok := c.ResolveTrack(oid.Track)
	if !ok {
		return ErrProtocolViolation
	}

	c.dataMu.Lock()
	var target *dataStream
	for _, ds := range c.streams {
		if ds.canSendObject(oid, subgroup, alias) {
			target = ds
			break
		}
	}
	c.dataMu.Unlock()

	if target == nil {
		sendCtx := ctx
		var cancel context.CancelFunc
		if timeout > 0 {
			sendCtx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		stream, err := c.transport.OpenDataStream(sendCtx)
		if err != nil {
			return ErrConnectionExpired
		}
		header := wire.SubgroupHeader{
			TrackAlias: uint64(alias),
			GroupID:    uint64(oid.Group),
			SubgroupID: uint64(subgroup),
			Priority:   uint8(priority),
		}
		buf := wire.AppendSubgroupHeader(nil, header)
		if _, err := stream.Write(buf); err != nil {
			return ErrConnectionExpired
		}
		target = &dataStream{stream: stream, header: &header, expectedNext: oid.Object}
		c.dataMu.Lock()
		c.streams = append(c.streams, target)
		c.dataMu.Unlock()
	}

	target.mu.Lock()
	defer target.mu.Unlock()
	buf := wire.AppendSubgroupObject(nil, wire.SubgroupObject{ObjectID: uint64(oid.Object), Status: wire.ObjectStatusNormal, Payload: payload})
	if _, err := target.stream.Write(buf); err != nil {
		return ErrConnectionExpired
	}
	target.expectedNext = oid.Object + 1
	return nil
}

// AbortIfSending cancels the data stream currently queued to send oid on
// subgroup, if any. No-op if no stream is waiting on exactly that object.
func (c *ConnState) AbortIfSending(oid store.ObjectIdentifier, subgroup store.SubgroupID) {
	alias, ok := c.ResolveTrack(oid.Track)
	if !ok {
		return
	}
	c.dataMu.Lock()
	defer c.dataMu.Unlock()
	for i, ds := range c.streams {
		if ds.canSendObject(oid, subgroup, alias) {
			ds.stream.CancelWrite(0)
			c.streams = append(c.streams[:i], c.streams[i+1:]...)
			return
		}
	}
}

// InboundDataStream adapts an accepted unidirectional data stream into the
// DataStore: it parses the SUBGROUP header and each object in order,
// writing payloads into the backing store so they become visible to
// subscribers on this endpoint.
type InboundDataStream struct {
	conn    *ConnState
	track   store.TrackIdentifier
	group   *store.GroupHandle
	sub     *store.SubgroupHandle
	onObject func(store.ObjectIdentifier, store.SubgroupID, []byte)
}

// OnObject registers a callback invoked with every concrete object Feed
// writes into the store, in addition to the store write itself. Endpoint
// façades use this to route inbound objects to a subscriber's own
// user-visible queue without needing to poll the store separately. The
// subgroup is passed alongside the identifier since it is a transmission
// hint, not part of oid.
func (ids *InboundDataStream) OnObject(fn func(store.ObjectIdentifier, store.SubgroupID, []byte)) {
	ids.onObject = fn
}

// Feed parses p with a wire.DataStreamDecoder and writes each resulting
// object into the store. Call repeatedly as bytes arrive on the stream.
func (ids *InboundDataStream) Feed(dec *wire.DataStreamDecoder, p []byte) error {
	return dec.Push(p,
		func(kind uint64, h wire.SubgroupHeader) error {
			if kind != wire.StreamSubgroup {
				return nil
			}
			id, ok := ids.conn.ResolveAlias(store.TrackAlias(h.TrackAlias))
			if !ok {
				return ErrProtocolViolation
			}
			ids.track = id
			track, _ := ids.conn.store.GetOrCreateTrack(id)
			ids.group = track.AddGroup(store.GroupID(h.GroupID))
			ids.sub = ids.group.AddOpenEndedSubgroup(store.SubgroupID(h.SubgroupID), store.PublisherPriority(h.Priority))
			ids.conn.AdvanceCurrentGroup(id, store.GroupID(h.GroupID))
			return nil
		},
		func(o wire.SubgroupObject) error {
			if ids.sub == nil {
				return ErrProtocolViolation
			}
			switch o.Status {
			case wire.ObjectStatusNormal:
				if err := ids.sub.AddObject(store.ObjectID(o.ObjectID), o.Payload); err != nil {
					return err
				}
				if ids.onObject != nil {
					oid := store.ObjectIdentifier{Track: ids.track, Group: ids.group.ID(), Object: store.ObjectID(o.ObjectID)}
					ids.onObject(oid, ids.sub.ID(), o.Payload)
				}
				return nil
			case wire.ObjectStatusEndOfGroup, wire.ObjectStatusEndOfTrack:
				return ids.sub.Cap(store.ObjectID(o.ObjectID))
			default:
				return nil
			}
		},
	)
}
