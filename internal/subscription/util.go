package subscription

import (
	"sort"

	"github.com/moqcore/relay/internal/store"
)

func groupIDs(th *store.TrackHandle) []store.GroupID {
	return th.GroupIDs()
}

func sortedAsc(ids []store.GroupID) []store.GroupID {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
