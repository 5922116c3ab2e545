package subscription

import (
	"context"
	"testing"

	"github.com/moqcore/relay/internal/connstate"
	"github.com/moqcore/relay/internal/store"
	"github.com/moqcore/relay/internal/wire"
	"github.com/stretchr/testify/require"
)

type nopTransport struct{}

func (nopTransport) OpenControlStream(ctx context.Context) (connstate.BidiStream, error) {
	return nil, nil
}
func (nopTransport) OpenDataStream(ctx context.Context) (connstate.SendStream, error) {
	return nil, nil
}

func TestExpandAbsoluteRangeSingleGroup(t *testing.T) {
	t.Parallel()
	st := store.New()
	id := store.NewTrackIdentifier([]string{"ns"}, "t")
	track, _ := st.GetOrCreateTrack(id)
	g := track.AddGroup(0)
	sub := g.AddOpenEndedSubgroup(0, 1)
	require.NoError(t, sub.AddObject(0, []byte("a")))

	conn := connstate.New(st, nopTransport{}, connstate.RoleSubscriber)
	msg := wire.Subscribe{
		FilterType: wire.FilterAbsoluteRange,
		Start:      &wire.GroupObject{Group: 0, Object: 0},
		End:        &wire.GroupObject{Group: 0, Object: 1},
	}
	got, err := Expand(st, conn, id, msg)
	require.NoError(t, err)
	require.Len(t, got.minors, 1)
	require.Equal(t, store.GroupID(0), got.minors[0].group)
	require.True(t, got.minors[0].hasEnd)
}

func TestExpandMissingGroupErrors(t *testing.T) {
	t.Parallel()
	st := store.New()
	id := store.NewTrackIdentifier([]string{"ns"}, "t")
	st.GetOrCreateTrack(id)

	conn := connstate.New(st, nopTransport{}, connstate.RoleSubscriber)
	msg := wire.Subscribe{
		FilterType: wire.FilterAbsoluteStart,
		Start:      &wire.GroupObject{Group: 7, Object: 0},
	}
	_, err := Expand(st, conn, id, msg)
	require.ErrorIs(t, err, ErrGroupMissing)
}

func TestExpandLatestPerGroupInTrack(t *testing.T) {
	t.Parallel()
	st := store.New()
	id := store.NewTrackIdentifier([]string{"ns"}, "t")
	track, _ := st.GetOrCreateTrack(id)
	for _, gid := range []store.GroupID{0, 1, 2} {
		track.AddGroup(gid)
	}

	conn := connstate.New(st, nopTransport{}, connstate.RoleSubscriber)
	msg := wire.Subscribe{FilterType: wire.FilterLatestPerGroupTrack}
	got, err := Expand(st, conn, id, msg)
	require.NoError(t, err)
	require.Len(t, got.minors, 3)
	for _, m := range got.minors {
		require.False(t, m.mustSend)
	}
}

func TestExpandHonorsDescendingGroupOrder(t *testing.T) {
	t.Parallel()
	st := store.New()
	id := store.NewTrackIdentifier([]string{"ns"}, "t")
	track, _ := st.GetOrCreateTrack(id)
	for _, gid := range []store.GroupID{0, 1, 2} {
		track.AddGroup(gid)
	}

	conn := connstate.New(st, nopTransport{}, connstate.RoleSubscriber)
	msg := wire.Subscribe{FilterType: wire.FilterLatestPerGroupTrack, GroupOrder: uint8(store.GroupOrderDescending)}
	got, err := Expand(st, conn, id, msg)
	require.NoError(t, err)
	require.Equal(t, store.GroupOrderDescending, got.GroupOrder)
	require.Len(t, got.minors, 3)
	require.Equal(t, store.GroupID(2), got.minors[0].group)
	require.Equal(t, store.GroupID(1), got.minors[1].group)
	require.Equal(t, store.GroupID(0), got.minors[2].group)
}

func TestExpandDefaultsToAscendingGroupOrder(t *testing.T) {
	t.Parallel()
	st := store.New()
	id := store.NewTrackIdentifier([]string{"ns"}, "t")
	track, _ := st.GetOrCreateTrack(id)
	for _, gid := range []store.GroupID{0, 1, 2} {
		track.AddGroup(gid)
	}

	conn := connstate.New(st, nopTransport{}, connstate.RoleSubscriber)
	msg := wire.Subscribe{FilterType: wire.FilterLatestPerGroupTrack}
	got, err := Expand(st, conn, id, msg)
	require.NoError(t, err)
	require.Equal(t, store.GroupOrderAscending, got.GroupOrder)
	require.Equal(t, store.GroupID(0), got.minors[0].group)
	require.Equal(t, store.GroupID(2), got.minors[2].group)
}
