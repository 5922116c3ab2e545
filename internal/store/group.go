package store

import "sync"

// GroupHandle is a reference-counted handle to one group's subgroups.
//
// Object-ids are a group-wide space: each subgroup reserves a slice of it
// (data_manager.hpp's GroupHandle::objectIds_, a set of tagged begin/end
// markers), and the subgroup a given id was carried on is resolved by
// range lookup, never part of the object's identity.
type GroupHandle struct {
	id GroupID

	mu        sync.RWMutex
	subgroups map[SubgroupID]*SubgroupHandle
	cursor    ObjectID

	refs int32
}

func newGroup(id GroupID) *GroupHandle {
	return &GroupHandle{
		id:        id,
		subgroups: make(map[SubgroupID]*SubgroupHandle),
		refs:      1,
	}
}

// ID returns the group's identifier.
func (g *GroupHandle) ID() GroupID { return g.id }

// AddSubgroup reserves a subgroup of exactly nObjects objects starting at
// the group's current cursor, capped immediately. Subgroup identifiers are
// publisher-chosen — they travel on the wire in the SUBGROUP header — so
// creation is idempotent per id the same way AddGroup is idempotent per
// group-id: a second call with the same id returns the existing handle
// with its refcount bumped instead of re-reserving it.
func (g *GroupHandle) AddSubgroup(id SubgroupID, priority PublisherPriority, nObjects ObjectID) (*SubgroupHandle, error) {
	g.mu.Lock()
	if sg, ok := g.subgroups[id]; ok {
		g.mu.Unlock()
		sg.addRef()
		return sg, nil
	}
	begin := g.cursor
	end := begin + nObjects
	if end > maxObjectID {
		g.mu.Unlock()
		return nil, ErrObjectIDTooLarge
	}
	g.cursor = end
	sg := newSubgroup(id, priority, g, begin)
	g.subgroups[id] = sg
	g.mu.Unlock()
	sg.Cap(end)
	return sg, nil
}

// AddOpenEndedSubgroup reserves a subgroup whose final length is not yet
// known, beginning at the group's current cursor; callers close it later
// with Cap or CapAndNext. The cursor only advances past this reservation's
// single marker so sibling subgroups opened concurrently (e.g. separate
// encoding layers within the same group) get distinct, strictly later
// begins; the actual extent each ends up claiming is the publisher's to
// keep disjoint, the same way a single upstream DataManager instance would
// serialize every add_subgroup/add_open_ended_subgroup call for a group.
func (g *GroupHandle) AddOpenEndedSubgroup(id SubgroupID, priority PublisherPriority) *SubgroupHandle {
	g.mu.Lock()
	defer g.mu.Unlock()
	if sg, ok := g.subgroups[id]; ok {
		sg.addRef()
		return sg
	}
	begin := g.cursor
	if g.cursor < maxObjectID {
		g.cursor++
	}
	sg := newSubgroup(id, priority, g, begin)
	g.subgroups[id] = sg
	return sg
}

func (g *GroupHandle) subgroupCapped(end ObjectID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if end > g.cursor {
		g.cursor = end
	}
}

// SubgroupIDs returns every registered subgroup id, in no particular order.
func (g *GroupHandle) SubgroupIDs() []SubgroupID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ids := make([]SubgroupID, 0, len(g.subgroups))
	for id := range g.subgroups {
		ids = append(ids, id)
	}
	return ids
}

// Subgroup returns the subgroup with id, if it has been created.
func (g *GroupHandle) Subgroup(id SubgroupID) (*SubgroupHandle, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	sg, ok := g.subgroups[id]
	return sg, ok
}

// SubgroupForObject returns the subgroup currently claiming id, if any.
func (g *GroupHandle) SubgroupForObject(id ObjectID) (*SubgroupHandle, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, sg := range g.subgroups {
		if sg.Contains(id) {
			return sg, true
		}
	}
	return nil, false
}

// GetFirstObject returns the group's smallest present object-id across
// every subgroup.
func (g *GroupHandle) GetFirstObject() (ObjectID, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var best ObjectID
	found := false
	for _, sg := range g.subgroups {
		objID, ok := sg.GetFirstObject()
		if !ok {
			continue
		}
		if !found || objID < best {
			best, found = objID, true
		}
	}
	return best, found
}

// GetLatestConcreteObject returns the group's largest object-id whose
// payload has actually been delivered, and that payload.
func (g *GroupHandle) GetLatestConcreteObject() (ObjectID, []byte, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var bestID ObjectID
	var bestPayload []byte
	found := false
	for _, sg := range g.subgroups {
		objID, payload, ok := sg.LatestObject()
		if !ok {
			continue
		}
		if !found || objID > bestID {
			bestID, bestPayload, found = objID, payload, true
		}
	}
	return bestID, bestPayload, found
}

// Next returns the smallest present object-id strictly greater than after,
// scanning across every subgroup in the group.
func (g *GroupHandle) Next(after ObjectID) (ObjectID, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var best ObjectID
	found := false
	for _, sg := range g.subgroups {
		next, ok := sg.Next(after)
		if !ok {
			continue
		}
		if !found || next < best {
			best, found = next, true
		}
	}
	return best, found
}

// TryGetObject resolves id to whichever subgroup currently claims it and
// polls that subgroup; ready is false if no subgroup has claimed id yet.
func (g *GroupHandle) TryGetObject(id ObjectID) (payload []byte, status ObjectPresence, ready bool) {
	sg, ok := g.SubgroupForObject(id)
	if !ok {
		return nil, ObjectPending, false
	}
	return sg.TryGetObject(id)
}

func (g *GroupHandle) addRef() { atomicAdd(&g.refs, 1) }
func (g *GroupHandle) release() bool {
	return atomicAdd(&g.refs, -1) == 0
}
