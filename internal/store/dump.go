package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// TrackSnapshot is the JSON shape written by DumpTo for one track,
// mirroring the teacher's PipelineDebugSnapshot: a plain JSON
// aggregation meant for a human or a debugging script to read, never for
// a caller to depend on structurally.
type TrackSnapshot struct {
	Namespace []string        `json:"namespace"`
	Name      string          `json:"name"`
	Alias     TrackAlias      `json:"alias"`
	Groups    []GroupSnapshot `json:"groups"`
}

// GroupSnapshot reports one group's subgroups.
type GroupSnapshot struct {
	GroupID   GroupID            `json:"groupId"`
	Subgroups []SubgroupSnapshot `json:"subgroups"`
}

// SubgroupSnapshot reports one subgroup's presence range and cap state.
type SubgroupSnapshot struct {
	SubgroupID SubgroupID `json:"subgroupId"`
	Priority   uint8      `json:"priority"`
	OpenEnded  bool       `json:"openEnded"`
	FirstObj   *ObjectID  `json:"firstObject,omitempty"`
	LastObj    *ObjectID  `json:"lastObject,omitempty"`
}

// DumpTo writes one JSON file per known track into dir, named by the
// track's alias. It is a debugging aid only — the core specification is
// explicit that nothing may depend on it for correctness, so a write
// failure for one track is logged into the return error but does not
// abort dumping the rest.
func (d *DataStore) DumpTo(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("store: dump mkdir: %w", err)
	}

	d.mu.RLock()
	tracks := make([]*TrackHandle, 0, len(d.byID))
	for _, t := range d.byID {
		tracks = append(tracks, t)
	}
	d.mu.RUnlock()

	var firstErr error
	for _, t := range tracks {
		snap := t.snapshot()
		path := filepath.Join(dir, fmt.Sprintf("track-%d.json", snap.Alias))
		b, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("store: marshal track %v: %w", t.id, err)
			}
			continue
		}
		if err := os.WriteFile(path, b, 0o644); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("store: write track %v: %w", t.id, err)
			}
		}
	}
	return firstErr
}

func (t *TrackHandle) snapshot() TrackSnapshot {
	t.mu.RLock()
	groupIDs := make([]GroupID, 0, len(t.groups))
	groups := make(map[GroupID]*GroupHandle, len(t.groups))
	for id, g := range t.groups {
		groupIDs = append(groupIDs, id)
		groups[id] = g
	}
	t.mu.RUnlock()
	sort.Slice(groupIDs, func(i, j int) bool { return groupIDs[i] < groupIDs[j] })

	snap := TrackSnapshot{
		Namespace: t.id.NamespaceTuple(),
		Name:      t.id.Name,
		Alias:     t.alias,
	}
	for _, gid := range groupIDs {
		snap.Groups = append(snap.Groups, groups[gid].snapshot())
	}
	return snap
}

func (g *GroupHandle) snapshot() GroupSnapshot {
	g.mu.RLock()
	subIDs := make([]SubgroupID, 0, len(g.subgroups))
	subs := make(map[SubgroupID]*SubgroupHandle, len(g.subgroups))
	for id, sg := range g.subgroups {
		subIDs = append(subIDs, id)
		subs[id] = sg
	}
	g.mu.RUnlock()
	sort.Slice(subIDs, func(i, j int) bool { return subIDs[i] < subIDs[j] })

	out := GroupSnapshot{GroupID: g.id}
	for _, sid := range subIDs {
		out.Subgroups = append(out.Subgroups, subs[sid].snapshot())
	}
	return out
}

func (s *SubgroupHandle) snapshot() SubgroupSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := SubgroupSnapshot{
		SubgroupID: s.id,
		Priority:   uint8(s.priority),
		OpenEnded:  !s.capped,
	}
	if id, ok := s.present.first(); ok {
		v := id
		out.FirstObj = &v
	}
	if id, ok := s.present.last(); ok {
		v := id
		out.LastObj = &v
	}
	return out
}
