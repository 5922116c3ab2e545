package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGetOrCreateTrackIdempotent(t *testing.T) {
	t.Parallel()
	s := New()
	id := NewTrackIdentifier([]string{"live", "cam1"}, "video")

	t1, created := s.GetOrCreateTrack(id)
	require.True(t, created)
	t2, created := s.GetOrCreateTrack(id)
	require.False(t, created)
	require.Same(t, t1, t2)

	got, ok := s.TrackByAlias(t1.Alias())
	require.True(t, ok)
	require.Same(t, t1, got)
}

func TestAddObjectAndGetObjectBlocksUntilReady(t *testing.T) {
	t.Parallel()
	s := New()
	track, _ := s.GetOrCreateTrack(NewTrackIdentifier([]string{"ns"}, "t"))
	group := track.AddGroup(1)
	sub := group.AddOpenEndedSubgroup(0, 128)

	done := make(chan struct{})
	var got []byte
	go func() {
		defer close(done)
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		v, err := sub.GetObject(ctx, 3)
		if err == nil {
			got = v
		}
	}()

	require.NoError(t, sub.AddObject(3, []byte("payload")))
	<-done
	require.Equal(t, []byte("payload"), got)
}

func TestCapMarksUnfilledIndicesMissing(t *testing.T) {
	t.Parallel()
	s := New()
	track, _ := s.GetOrCreateTrack(NewTrackIdentifier([]string{"ns"}, "t"))
	group := track.AddGroup(1)
	sub := group.AddOpenEndedSubgroup(0, 128)

	require.NoError(t, sub.AddObject(0, []byte("a")))
	require.NoError(t, sub.Cap(1))

	ctx := context.Background()
	v, err := sub.GetObject(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, []byte("a"), v)

	_, err = sub.GetObject(ctx, 1)
	require.ErrorIs(t, err, ErrObjectDoesNotExist)

	require.ErrorIs(t, sub.AddObject(2, []byte("late")), ErrAlreadyCapped)
}

func TestCapAndNext(t *testing.T) {
	t.Parallel()
	s := New()
	track, _ := s.GetOrCreateTrack(NewTrackIdentifier([]string{"ns"}, "t"))
	group := track.AddGroup(1)
	sub := group.AddOpenEndedSubgroup(0, 128)

	require.NoError(t, sub.AddObject(0, []byte("a")))
	require.NoError(t, sub.AddObject(1, []byte("b")))

	next, ok := sub.CapAndNext(3)
	require.True(t, ok)
	require.Equal(t, ObjectID(2), next)

	next, ok = sub.CapAndNext(3)
	require.True(t, ok)
	require.Equal(t, ObjectID(2), next)
}

func TestRangeSetFirstAndNext(t *testing.T) {
	t.Parallel()
	var rs rangeSet
	for _, id := range []ObjectID{5, 1, 2, 9, 3} {
		rs.insert(id)
	}
	first, ok := rs.first()
	require.True(t, ok)
	require.Equal(t, ObjectID(1), first)

	n, ok := rs.nextAfter(3)
	require.True(t, ok)
	require.Equal(t, ObjectID(5), n)

	n, ok = rs.nextAfter(9)
	require.False(t, ok)
	_ = n
}

func TestGetLatestConcreteObjectWalksBackToReadyGroup(t *testing.T) {
	t.Parallel()
	s := New()
	track, _ := s.GetOrCreateTrack(NewTrackIdentifier([]string{"ns"}, "t"))

	g1 := track.AddGroup(1)
	sg1 := g1.AddOpenEndedSubgroup(0, 128)
	require.NoError(t, sg1.AddObject(0, []byte("g1o0")))

	g2 := track.AddGroup(2)
	g2.AddOpenEndedSubgroup(0, 128) // registered but nothing delivered yet

	gid, oid, payload, ok := track.GetLatestConcreteObject()
	require.True(t, ok)
	require.Equal(t, GroupID(1), gid)
	require.Equal(t, ObjectID(0), oid)
	require.Equal(t, []byte("g1o0"), payload)
}

func TestAddSubgroupReservesDisjointRangesInOneGroup(t *testing.T) {
	t.Parallel()
	s := New()
	track, _ := s.GetOrCreateTrack(NewTrackIdentifier([]string{"ns"}, "t"))
	group := track.AddGroup(0)

	sg0, err := group.AddSubgroup(0, 0, 3)
	require.NoError(t, err)
	sg1, err := group.AddSubgroup(1, 0, 2)
	require.NoError(t, err)

	require.Equal(t, ObjectID(0), sg0.Begin())
	require.Equal(t, ObjectID(3), sg1.Begin())

	require.NoError(t, sg0.AddObject(0, []byte("g0o0")))
	require.NoError(t, sg0.AddObject(1, []byte("g0o1")))
	require.NoError(t, sg1.AddObject(3, []byte("g1o0")))
	require.NoError(t, sg1.AddObject(4, []byte("g1o1")))

	// The ids 3 and 4 belong to sg1, not sg0, even though sg0 never
	// registered them: a second subgroup in the same group must not be
	// able to silently alias the first's ids.
	require.ErrorIs(t, sg0.AddObject(3, []byte("wrong")), ErrAlreadyCapped)

	found, ok := group.SubgroupForObject(3)
	require.True(t, ok)
	require.Equal(t, SubgroupID(1), found.ID())

	first, ok := group.GetFirstObject()
	require.True(t, ok)
	require.Equal(t, ObjectID(0), first)

	next, ok := group.Next(1)
	require.True(t, ok)
	require.Equal(t, ObjectID(3), next)

	latestID, latestPayload, ok := group.GetLatestConcreteObject()
	require.True(t, ok)
	require.Equal(t, ObjectID(4), latestID)
	require.Equal(t, []byte("g1o1"), latestPayload)
}

func TestOpenEndedSubgroupsInOneGroupGetDistinctBegins(t *testing.T) {
	t.Parallel()
	s := New()
	track, _ := s.GetOrCreateTrack(NewTrackIdentifier([]string{"ns"}, "t"))
	group := track.AddGroup(0)

	first := group.AddOpenEndedSubgroup(0, 0)
	second := group.AddOpenEndedSubgroup(1, 0)
	require.Less(t, int64(first.Begin()), int64(second.Begin()))
}

func TestObjectIDAboveCeilingRejected(t *testing.T) {
	t.Parallel()
	s := New()
	track, _ := s.GetOrCreateTrack(NewTrackIdentifier([]string{"ns"}, "t"))
	group := track.AddGroup(0)
	sub := group.AddOpenEndedSubgroup(0, 0)

	require.ErrorIs(t, sub.AddObject(maxObjectID+1, []byte("x")), ErrObjectIDTooLarge)

	_, err := group.AddSubgroup(9, 0, maxObjectID+1)
	require.ErrorIs(t, err, ErrObjectIDTooLarge)
}

func TestGetFirstGroupAndObject(t *testing.T) {
	t.Parallel()
	s := New()
	track, _ := s.GetOrCreateTrack(NewTrackIdentifier([]string{"ns"}, "t"))
	track.AddGroup(5)
	g3 := track.AddGroup(3)
	sub := g3.AddOpenEndedSubgroup(2, 128)
	require.NoError(t, sub.AddObject(7, []byte("x")))

	g, ok := track.GetFirstGroup()
	require.True(t, ok)
	require.Equal(t, GroupID(3), g.ID())

	objID, ok := g.GetFirstObject()
	require.True(t, ok)
	require.Equal(t, ObjectID(7), objID)
}
