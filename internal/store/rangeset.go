package store

import "sort"

// objRange is a closed, inclusive range [Start, End] of object IDs known to
// be present in a subgroup. rangeSet keeps a sorted, non-overlapping,
// non-adjacent list of these, giving O(log n) answers to "what is the
// first/next present object" even when objects arrive out of order and
// leave gaps.
//
// This is the Go-idiomatic reading of the Raven original's
// GroupHandle::Comparator (includes/data_manager.hpp), which achieves the
// same query by storing begin/end boundary markers in a single
// std::set<uint64_t> ordered with the top bit masked off for comparison
// and used as a begin/end tiebreaker at equal positions. Go has no
// built-in ordered multiset, and introducing one purely to mimic the
// bit-packed std::set would be inventing a container the retrieved corpus
// never shows a library for; a sorted slice of merged ranges answers the
// same two queries (first present, next present after X) with the same
// asymptotic cost and is the shape every other sorted-interval code in
// this module already uses.
type rangeSet struct {
	ranges []objRange
}

type objRange struct {
	Start, End ObjectID
}

// insert records id as present, merging it into an adjacent or overlapping
// range if one exists.
func (s *rangeSet) insert(id ObjectID) {
	i := sort.Search(len(s.ranges), func(i int) bool { return s.ranges[i].Start > id })

	mergeLeft := i > 0 && s.ranges[i-1].End+1 >= id && s.ranges[i-1].Start <= id
	mergeRight := i < len(s.ranges) && s.ranges[i].Start <= id+1

	switch {
	case mergeLeft && mergeRight:
		s.ranges[i-1].End = s.ranges[i].End
		s.ranges = append(s.ranges[:i], s.ranges[i+1:]...)
	case mergeLeft:
		if id > s.ranges[i-1].End {
			s.ranges[i-1].End = id
		}
	case mergeRight:
		if id < s.ranges[i].Start {
			s.ranges[i].Start = id
		}
	default:
		s.ranges = append(s.ranges, objRange{})
		copy(s.ranges[i+1:], s.ranges[i:])
		s.ranges[i] = objRange{Start: id, End: id}
	}
}

// contains reports whether id falls within a known-present range.
func (s *rangeSet) contains(id ObjectID) bool {
	i := sort.Search(len(s.ranges), func(i int) bool { return s.ranges[i].End >= id })
	return i < len(s.ranges) && s.ranges[i].Start <= id
}

// first returns the smallest present object ID, if any.
func (s *rangeSet) first() (ObjectID, bool) {
	if len(s.ranges) == 0 {
		return 0, false
	}
	return s.ranges[0].Start, true
}

// nextAfter returns the smallest present object ID strictly greater than
// id, if any.
func (s *rangeSet) nextAfter(id ObjectID) (ObjectID, bool) {
	i := sort.Search(len(s.ranges), func(i int) bool { return s.ranges[i].End > id })
	if i >= len(s.ranges) {
		return 0, false
	}
	if s.ranges[i].Start > id {
		return s.ranges[i].Start, true
	}
	return id + 1, true
}

// last returns the largest present object ID, if any.
func (s *rangeSet) last() (ObjectID, bool) {
	if len(s.ranges) == 0 {
		return 0, false
	}
	return s.ranges[len(s.ranges)-1].End, true
}
