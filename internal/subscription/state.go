package subscription

import (
	"sort"
	"sync"
	"time"

	"github.com/moqcore/relay/internal/connstate"
	"github.com/moqcore/relay/internal/store"
	"github.com/moqcore/relay/internal/wire"
)

// Status is a subscription's lifecycle state, mirroring the core
// specification's New → Active → {Done, Errored → Done, Cancelled → Done}
// state machine.
type Status int

const (
	StatusNew Status = iota
	StatusActive
	StatusErrored
	StatusCancelled
	StatusDone
)

// MinorSubscriptionState tracks delivery progress for a single group
// within a subscription. must_send=false minors are supersedable: a newer
// object replaces a still-queued older one rather than both being sent.
type MinorSubscriptionState struct {
	parent *SubscriptionState

	group    store.GroupID
	next     store.ObjectID
	hasEnd   bool
	end      store.ObjectID // inclusive, only meaningful if hasEnd
	mustSend bool
	lastSent *store.ObjectID

	done    bool
	errored bool
}

// SubscriptionState is the parent of one or more MinorSubscriptionStates,
// one per group the filter expands to.
type SubscriptionState struct {
	mu sync.Mutex

	Conn        *connstate.ConnState
	Track       store.TrackIdentifier
	SubscribeID uint64
	TrackAlias  store.TrackAlias
	Priority    store.PublisherPriority
	Timeout     time.Duration // subscribe-level delivery timeout, 0 = none

	GroupOrder store.GroupOrder

	Status Status
	minors []*MinorSubscriptionState

	ErrorCode    uint64
	ErrorMessage string
}

func (s *SubscriptionState) addMinor(m *MinorSubscriptionState) {
	m.parent = s
	s.minors = append(s.minors, m)
}

// sortMinorsByGroupOrder reorders the subscription's minors so the worker
// pool services them group-ascending or group-descending per the
// negotiated GroupOrder, rather than in whatever order Expand happened to
// construct them.
func (s *SubscriptionState) sortMinorsByGroupOrder() {
	sort.SliceStable(s.minors, func(i, j int) bool {
		if s.GroupOrder == store.GroupOrderDescending {
			return s.minors[i].group > s.minors[j].group
		}
		return s.minors[i].group < s.minors[j].group
	})
}

func (s *SubscriptionState) markErrored(code uint64, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Status == StatusErrored || s.Status == StatusDone {
		return
	}
	s.Status = StatusErrored
	s.ErrorCode = code
	s.ErrorMessage = msg
}

// IsTerminal reports whether the subscription has reached Errored,
// Cancelled, or Done and should be reaped.
func (s *SubscriptionState) IsTerminal() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.Status {
	case StatusErrored, StatusCancelled, StatusDone:
		return true
	default:
		return false
	}
}

// Cancel marks the subscription cancelled; minors are released without
// partial transmissions left pending.
func (s *SubscriptionState) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Status == StatusDone {
		return
	}
	s.Status = StatusCancelled
}

func effectiveTimeout(subLevel time.Duration, params []wire.Parameter) time.Duration {
	objLevel := subLevel
	if ms, ok := wire.DeliveryTimeoutMS(params); ok {
		t := time.Duration(ms) * time.Millisecond
		if subLevel == 0 || t < subLevel {
			objLevel = t
		}
	}
	return objLevel
}
