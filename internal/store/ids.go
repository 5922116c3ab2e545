package store

import "strings"

// Strong types for the identifiers that flow through the store, grounded
// on the Raven original's StrongTypeImpl/UintCTRPTrait CRTP wrappers
// (includes/strong_types.hpp). Go has no template mixins, so each is a
// plain named integer type instead of a generated arithmetic wrapper; the
// point — preventing an ObjectID from being passed where a GroupID is
// expected — holds without the machinery.
type (
	ObjectID          uint64
	GroupID           uint64
	SubgroupID        uint64
	TrackAlias        uint64
	PublisherPriority uint8
	SubscriberPriority uint8
)

// GroupOrder selects the iteration direction a subscriber wants groups
// delivered in.
type GroupOrder uint8

const (
	GroupOrderAscending  GroupOrder = 1
	GroupOrderDescending GroupOrder = 2
)

// TrackIdentifier names a track by its namespace tuple and track name.
// Comparable, so it works directly as a map key.
type TrackIdentifier struct {
	Namespace string // namespace tuple parts joined with a NUL separator
	Name      string
}

// NewTrackIdentifier builds a TrackIdentifier from a namespace tuple and
// track name.
func NewTrackIdentifier(namespace []string, name string) TrackIdentifier {
	return TrackIdentifier{Namespace: joinNamespace(namespace), Name: name}
}

// NamespaceTuple splits the joined namespace back into its tuple parts.
func (t TrackIdentifier) NamespaceTuple() []string {
	if t.Namespace == "" {
		return nil
	}
	return strings.Split(t.Namespace, "\x00")
}

func joinNamespace(parts []string) string {
	if len(parts) == 0 {
		return ""
	}
	n := len(parts) - 1
	for _, p := range parts {
		n += len(p)
	}
	b := make([]byte, 0, n)
	for i, p := range parts {
		if i > 0 {
			b = append(b, 0)
		}
		b = append(b, p...)
	}
	return string(b)
}

// GroupIdentifier names a group within a track.
type GroupIdentifier struct {
	Track TrackIdentifier
	Group GroupID
}

// ObjectIdentifier names a single object within a track. The subgroup an
// object was carried on is not part of its identity (includes/data_manager.hpp's
// ObjectIdentifier has no subgroup field either) — only the group-wide
// object-id distinguishes it; the subgroup is purely a transmission hint
// resolved by range lookup when one is needed.
type ObjectIdentifier struct {
	Track  TrackIdentifier
	Group  GroupID
	Object ObjectID
}

// maxObjectID is the largest legal object-id. The group-wide ordered set
// that tracks subgroup boundaries tags end-markers with an object-id's high
// bit (GroupHandle.Comparator in data_manager.hpp), which leaves bit 63
// unusable for an actual id.
const maxObjectID ObjectID = 1<<63 - 1
