package endpoint

import (
	"context"
	"testing"
	"time"

	"github.com/moqcore/relay/internal/connstate"
	"github.com/moqcore/relay/internal/store"
	"github.com/moqcore/relay/internal/wire"
	"github.com/stretchr/testify/require"
)

func TestSubscribeParksUntilServerSetup(t *testing.T) {
	t.Parallel()
	st := store.New()
	tr := &fakeTransport{}
	conn := connstate.New(st, tr, connstate.RoleSubscriber)
	s := NewSubscriberSession(conn)

	require.NoError(t, s.SendClientSetup(context.Background(), []uint64{1}))

	done := make(chan error, 1)
	go func() {
		_, err := s.Subscribe(context.Background(), store.NewTrackIdentifier([]string{"ns"}, "t"), wire.FilterLatestGroup, nil, nil, 0, nil)
		done <- err
	}()

	select {
	case <-done:
		t.Fatal("Subscribe returned before SERVER_SETUP")
	case <-time.After(20 * time.Millisecond):
	}

	s.HandleServerSetup(wire.ServerSetup{SelectedVersion: 1})

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Subscribe never unblocked")
	}
}

func TestSubscribeErrorFailsHandle(t *testing.T) {
	t.Parallel()
	st := store.New()
	tr := &fakeTransport{}
	conn := connstate.New(st, tr, connstate.RoleSubscriber)
	s := NewSubscriberSession(conn)
	require.NoError(t, s.SendClientSetup(context.Background(), []uint64{1}))
	s.HandleServerSetup(wire.ServerSetup{SelectedVersion: 1})

	h, err := s.Subscribe(context.Background(), store.NewTrackIdentifier([]string{"ns"}, "t"), wire.FilterLatestGroup, nil, nil, 0, nil)
	require.NoError(t, err)

	s.HandleSubscribeError(wire.SubscribeError{SubscribeID: h.SubscribeID, ErrorCode: 1, ReasonPhrase: "nope"})

	select {
	case <-h.Done:
		require.Error(t, h.Err())
	case <-time.After(time.Second):
		t.Fatal("handle never failed")
	}
}

func TestAttachDataStreamRoutesToHandle(t *testing.T) {
	t.Parallel()
	st := store.New()
	tr := &fakeTransport{}
	conn := connstate.New(st, tr, connstate.RoleSubscriber)
	s := NewSubscriberSession(conn)
	require.NoError(t, s.SendClientSetup(context.Background(), []uint64{1}))
	s.HandleServerSetup(wire.ServerSetup{SelectedVersion: 1})

	track := store.NewTrackIdentifier([]string{"ns"}, "t")
	h, err := s.Subscribe(context.Background(), track, wire.FilterLatestGroup, nil, nil, 0, nil)
	require.NoError(t, err)

	alias, ok := conn.ResolveTrack(track)
	require.True(t, ok)

	ids := s.AttachDataStream()
	dec := wire.NewDataStreamDecoder()
	buf := wire.AppendSubgroupHeader(nil, wire.SubgroupHeader{TrackAlias: uint64(alias), GroupID: 0, SubgroupID: 0, Priority: 0})
	buf = wire.AppendSubgroupObject(buf, wire.SubgroupObject{ObjectID: 0, Status: wire.ObjectStatusNormal, Payload: []byte("hi")})
	require.NoError(t, ids.Feed(dec, buf))

	select {
	case obj := <-h.Objects:
		require.Equal(t, []byte("hi"), obj.Payload)
	case <-time.After(time.Second):
		t.Fatal("object never routed to handle")
	}
}
