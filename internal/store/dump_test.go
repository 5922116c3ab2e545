package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDumpToWritesPerTrackSnapshot(t *testing.T) {
	t.Parallel()
	s := New()
	track, _ := s.GetOrCreateTrack(NewTrackIdentifier([]string{"live", "cam1"}, "video"))
	group := track.AddGroup(0)
	sg := group.AddOpenEndedSubgroup(0, 1)
	require.NoError(t, sg.AddObject(0, []byte("frame")))
	require.NoError(t, sg.Cap(1))

	dir := t.TempDir()
	require.NoError(t, s.DumpTo(dir))

	path := filepath.Join(dir, "track-"+strconv.FormatUint(uint64(track.Alias()), 10)+".json")
	b, err := os.ReadFile(path)
	require.NoError(t, err)

	var snap TrackSnapshot
	require.NoError(t, json.Unmarshal(b, &snap))
	require.Equal(t, []string{"live", "cam1"}, snap.Namespace)
	require.Equal(t, "video", snap.Name)
	require.Len(t, snap.Groups, 1)
	require.Len(t, snap.Groups[0].Subgroups, 1)
	require.False(t, snap.Groups[0].Subgroups[0].OpenEnded)
	require.NotNil(t, snap.Groups[0].Subgroups[0].FirstObj)
	require.Equal(t, ObjectID(0), *snap.Groups[0].Subgroups[0].FirstObj)
}
