package endpoint

import (
	"context"

	"github.com/moqcore/relay/internal/connstate"
	"github.com/moqcore/relay/internal/store"
	"github.com/moqcore/relay/internal/subscription"
	"github.com/moqcore/relay/internal/wire"
)

// Relay composes a SubscriberSession pulling from an upstream connection
// with a PublisherSession serving downstream subscribers, both backed by
// the same DataStore: objects the subscriber side writes in become visible
// to the publisher side's subscription engine with no extra copy, matching
// the core specification's framing of a relay as the two façades composed
// over one store.
type Relay struct {
	Store      *store.DataStore
	Upstream   *SubscriberSession
	Downstream *PublisherSession
}

// NewRelay wires a Relay over st, which upstreamConn and downstreamConn
// must both have been constructed against (connstate.New(st, ...)) so that
// objects written by the upstream subscription are visible to the engine
// serving downstream subscribers.
func NewRelay(st *store.DataStore, upstreamConn, downstreamConn *connstate.ConnState, engine *subscription.Engine) *Relay {
	return &Relay{
		Store:      st,
		Upstream:   NewSubscriberSession(upstreamConn),
		Downstream: NewPublisherSession(st, engine, downstreamConn),
	}
}

// PullUpstream subscribes to an upstream track; received objects land in
// the shared store (via the upstream connection's inbound data streams,
// attached separately with AttachDataStream) and become visible to
// downstream subscribers without any extra copy.
func (r *Relay) PullUpstream(ctx context.Context, track store.TrackIdentifier, filter wire.FilterType, start, end *wire.GroupObject) (*SubscriptionHandle, error) {
	return r.Upstream.Subscribe(ctx, track, filter, start, end, 0, nil)
}
