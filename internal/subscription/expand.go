package subscription

import (
	"time"

	"github.com/moqcore/relay/internal/connstate"
	"github.com/moqcore/relay/internal/store"
	"github.com/moqcore/relay/internal/wire"
)

// ErrGroupMissing is returned by Expand when a filter references a group
// that does not exist in the store; the caller reports SUBSCRIBE_ERROR and
// does not retry.
var ErrGroupMissing = errGroupMissing{}

type errGroupMissing struct{}

func (errGroupMissing) Error() string { return "subscription: referenced group does not exist" }

// Expand builds a SubscriptionState and its MinorSubscriptionStates from a
// parsed SUBSCRIBE message, per the filter-expansion table in the core
// specification's subscription engine design.
//
// Every minor is anchored to a (group, object) pair: object-ids are a
// group-wide space (§3), so "next object" never needs a subgroup to
// advance — it crosses subgroup boundaries transparently, and the
// subgroup a given object ends up on is resolved only when it is
// actually transmitted.
func Expand(st *store.DataStore, conn *connstate.ConnState, track store.TrackIdentifier, msg wire.Subscribe) (*SubscriptionState, error) {
	order := store.GroupOrder(msg.GroupOrder)
	if order != store.GroupOrderDescending {
		order = store.GroupOrderAscending
	}

	sub := &SubscriptionState{
		Conn:        conn,
		Track:       track,
		SubscribeID: msg.SubscribeID,
		TrackAlias:  store.TrackAlias(msg.TrackAlias),
		Priority:    store.PublisherPriority(msg.SubPriority),
		GroupOrder:  order,
		Status:      StatusNew,
	}
	if ms, ok := wire.DeliveryTimeoutMS(msg.Params); ok {
		sub.Timeout = time.Duration(ms) * time.Millisecond
	}

	trackHandle, ok := st.TrackByID(track)
	if !ok {
		return nil, ErrGroupMissing
	}

	switch msg.FilterType {
	case wire.FilterLatestGroup:
		gid, ok := latestGroupID(conn, track, trackHandle)
		if !ok {
			return nil, ErrGroupMissing
		}
		g, ok := trackHandle.Group(gid)
		if !ok {
			return nil, ErrGroupMissing
		}
		oid, _ := g.GetFirstObject()
		sub.addMinor(&MinorSubscriptionState{group: gid, next: oid, mustSend: true})

	case wire.FilterLatestObject:
		gid, oid, ok := trackHandle.GetLatestRegisteredObject()
		if !ok {
			return nil, ErrGroupMissing
		}
		sub.addMinor(&MinorSubscriptionState{group: gid, next: oid, mustSend: true})

	case wire.FilterAbsoluteStart:
		if msg.Start == nil {
			return nil, ErrGroupMissing
		}
		startGroup := store.GroupID(msg.Start.Group)
		if _, ok := trackHandle.Group(startGroup); !ok {
			return nil, ErrGroupMissing
		}
		sub.addMinor(&MinorSubscriptionState{group: startGroup, next: store.ObjectID(msg.Start.Object), mustSend: true})
		for _, gid := range laterGroups(trackHandle, startGroup) {
			sub.addMinor(&MinorSubscriptionState{group: gid, next: 0, mustSend: true})
		}

	case wire.FilterAbsoluteRange:
		if msg.Start == nil || msg.End == nil {
			return nil, ErrGroupMissing
		}
		startGroup := store.GroupID(msg.Start.Group)
		endGroup := store.GroupID(msg.End.Group)
		if _, ok := trackHandle.Group(startGroup); !ok {
			return nil, ErrGroupMissing
		}
		if _, ok := trackHandle.Group(endGroup); !ok {
			return nil, ErrGroupMissing
		}

		if startGroup == endGroup {
			sub.addMinor(&MinorSubscriptionState{
				group: startGroup, next: store.ObjectID(msg.Start.Object),
				hasEnd: true, end: store.ObjectID(msg.End.Object), mustSend: true,
			})
		} else {
			sub.addMinor(&MinorSubscriptionState{group: startGroup, next: store.ObjectID(msg.Start.Object), mustSend: true})
			for _, gid := range groupsBetween(trackHandle, startGroup, endGroup) {
				sub.addMinor(&MinorSubscriptionState{group: gid, next: 0, mustSend: true})
			}
			sub.addMinor(&MinorSubscriptionState{
				group: endGroup, next: 0, hasEnd: true, end: store.ObjectID(msg.End.Object), mustSend: true,
			})
		}

	case wire.FilterLatestPerGroupTrack:
		groups := allGroups(trackHandle)
		if len(groups) == 0 {
			return nil, ErrGroupMissing
		}
		for _, gid := range groups {
			g, _ := trackHandle.Group(gid)
			start, _, ok := g.GetLatestConcreteObject()
			if !ok {
				start = 0
			}
			sub.addMinor(&MinorSubscriptionState{group: gid, next: start, mustSend: false})
		}

	default:
		return nil, ErrGroupMissing
	}

	sub.sortMinorsByGroupOrder()
	return sub, nil
}

func latestGroupID(conn *connstate.ConnState, track store.TrackIdentifier, th *store.TrackHandle) (store.GroupID, bool) {
	if gid, ok := conn.CurrentGroup(track); ok {
		return gid, true
	}
	ids := sortedAsc(groupIDs(th))
	if len(ids) == 0 {
		return 0, false
	}
	return ids[len(ids)-1], true
}

func laterGroups(th *store.TrackHandle, after store.GroupID) []store.GroupID {
	var out []store.GroupID
	for _, gid := range groupIDs(th) {
		if gid > after {
			out = append(out, gid)
		}
	}
	return sortedAsc(out)
}

func groupsBetween(th *store.TrackHandle, start, end store.GroupID) []store.GroupID {
	var out []store.GroupID
	for _, gid := range groupIDs(th) {
		if gid > start && gid < end {
			out = append(out, gid)
		}
	}
	return sortedAsc(out)
}

func allGroups(th *store.TrackHandle) []store.GroupID {
	return sortedAsc(groupIDs(th))
}
