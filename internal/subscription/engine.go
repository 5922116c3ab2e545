package subscription

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/moqcore/relay/internal/store"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Engine is the fixed-size worker pool that fulfils subscriptions from the
// data store, per the core specification's subscription engine design.
type Engine struct {
	store   *store.DataStore
	workers int
	queue   chan *SubscriptionState
	log     *slog.Logger

	idleBackoff time.Duration

	// inFlight bounds the number of concurrently in-flight
	// fulfillSomeMinor sends across the whole pool, so one subscriber
	// stuck on a slow SendObject can't starve every worker's goroutines.
	inFlight *semaphore.Weighted
}

// Config controls worker-pool sizing and idle behavior.
type Config struct {
	Workers          int
	QueueDepth       int
	IdleBackoff      time.Duration // how long an idle worker sleeps before polling again
	MaxInFlightSends int64         // concurrent fulfillSomeMinor sends across the pool
	Logger           *slog.Logger
}

// NewEngine returns an Engine ready to Start.
func NewEngine(st *store.DataStore, cfg Config) *Engine {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = 1024
	}
	if cfg.IdleBackoff <= 0 {
		cfg.IdleBackoff = 5 * time.Millisecond
	}
	if cfg.MaxInFlightSends <= 0 {
		cfg.MaxInFlightSends = int64(cfg.Workers) * 64
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Engine{
		store:       st,
		workers:     cfg.Workers,
		queue:       make(chan *SubscriptionState, cfg.QueueDepth),
		log:         cfg.Logger,
		idleBackoff: cfg.IdleBackoff,
		inFlight:    semaphore.NewWeighted(cfg.MaxInFlightSends),
	}
}

// Submit enqueues a newly admitted subscription for fulfilment. Enqueue is
// non-blocking as long as the queue has room; a full queue indicates the
// worker pool is saturated and Submit blocks until room frees up, which the
// caller should treat as backpressure on SUBSCRIBE admission.
func (e *Engine) Submit(sub *SubscriptionState) {
	e.queue <- sub
}

// Start launches the worker pool and blocks until ctx is cancelled or a
// worker returns an unrecoverable error.
func (e *Engine) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < e.workers; i++ {
		g.Go(func() error {
			e.workerLoop(ctx)
			return nil
		})
	}
	return g.Wait()
}

func (e *Engine) workerLoop(ctx context.Context) {
	var local []*SubscriptionState

	for {
		if ctx.Err() != nil {
			return
		}

		local = e.drain(local)

		progressed := false
		for _, sub := range local {
			if sub.IsTerminal() {
				continue
			}
			if e.fulfillSome(ctx, sub) {
				progressed = true
			}
		}
		local = e.compact(local)

		if progressed {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case sub := <-e.queue:
			local = append(local, sub)
		case <-time.After(e.idleBackoff):
		}
	}
}

// drain pulls every subscription currently waiting on the shared queue into
// the worker's local collection without blocking.
func (e *Engine) drain(local []*SubscriptionState) []*SubscriptionState {
	for {
		select {
		case sub := <-e.queue:
			local = append(local, sub)
		default:
			return local
		}
	}
}

func (e *Engine) compact(local []*SubscriptionState) []*SubscriptionState {
	out := local[:0]
	for _, sub := range local {
		if sub.IsTerminal() {
			e.notifyTerminal(sub)
			continue
		}
		out = append(out, sub)
	}
	return out
}

func (e *Engine) notifyTerminal(sub *SubscriptionState) {
	sub.mu.Lock()
	status := sub.Status
	code, msg := sub.ErrorCode, sub.ErrorMessage
	sub.mu.Unlock()

	if status != StatusErrored {
		return
	}
	e.log.Warn("subscription errored", "subscribe_id", sub.SubscribeID, "track", sub.Track, "code", code, "msg", msg)
	sub.Conn.SendControl(subscribeErrorMessage(sub, code, msg))
}

// fulfillSome advances every non-blocked minor subscription of sub one
// step, per fulfill_some. It returns true if any minor made progress.
func (e *Engine) fulfillSome(ctx context.Context, sub *SubscriptionState) bool {
	sub.mu.Lock()
	minors := sub.minors
	sub.mu.Unlock()

	var (
		wg         sync.WaitGroup
		resultsMu  sync.Mutex
		progressed bool
	)
	for _, m := range minors {
		if m.done || m.errored {
			continue
		}
		if err := e.inFlight.Acquire(ctx, 1); err != nil {
			// Pool shutting down or ctx cancelled; stop fanning out more
			// work this pass, the next pass will pick these minors back up.
			break
		}
		m := m
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer e.inFlight.Release(1)
			p, err := e.fulfillSomeMinor(ctx, sub, m)
			resultsMu.Lock()
			defer resultsMu.Unlock()
			if err != nil {
				m.errored = true
				sub.markErrored(0, err.Error())
				return
			}
			if p {
				progressed = true
			}
		}()
	}
	wg.Wait()

	allDone := true
	for _, m := range minors {
		if !m.done && !m.errored {
			allDone = false
		}
	}

	if allDone {
		sub.mu.Lock()
		if sub.Status == StatusNew || sub.Status == StatusActive {
			sub.Status = StatusDone
		}
		sub.mu.Unlock()
	} else {
		sub.mu.Lock()
		if sub.Status == StatusNew {
			sub.Status = StatusActive
		}
		sub.mu.Unlock()
	}
	return progressed
}

// fulfillSomeMinor fetches the next object for m, sends it, and advances m.
// It returns (progressed, err); err is non-nil only for an unrecoverable
// condition (the track or group disappeared from the store), which the
// caller turns into a subscription-level error.
//
// m.next is a group-wide object-id, not anchored to any one subgroup: a
// group that fans its objects across several subgroups (e.g. distinct
// encoding layers sharing one group) is walked transparently, crossing
// from one subgroup's range into the next's as m.next advances. Skipping
// a confirmed hole uses TrackHandle.Next directly rather than
// reimplementing its traversal inline.
func (e *Engine) fulfillSomeMinor(ctx context.Context, sub *SubscriptionState, m *MinorSubscriptionState) (bool, error) {
	th, ok := e.store.TrackByID(sub.Track)
	if !ok {
		return false, ErrGroupMissing
	}
	g, ok := th.Group(m.group)
	if !ok {
		return false, ErrGroupMissing
	}

	payload, status, ready := g.TryGetObject(m.next)
	if !ready {
		return false, nil // no subgroup claims m.next yet; cooperative wait
	}

	if status == store.ObjectMissing {
		// m.next lies at or past the end its subgroup was capped at: it
		// will never arrive. Jump straight to the next registered object in this
		// group (TrackHandle.Next, the core next(oid) traversal), which
		// itself crosses subgroup boundaries, rather than stepping past the
		// hole one id at a time.
		if gid, next, ok := th.Next(m.group, m.next); ok && gid == m.group {
			m.next = next
			if m.hasEnd && m.next > m.end {
				m.done = true
			}
			return true, nil
		}
		e.advanceMinor(m)
		return true, nil
	}

	sgID, ok := subgroupFor(g, m.next)
	if !ok {
		return false, nil // raced with a cap; retry next pass
	}

	if !m.mustSend && m.lastSent != nil {
		if prevSub, ok := subgroupFor(g, *m.lastSent); ok {
			prev := store.ObjectIdentifier{Track: sub.Track, Group: m.group, Object: *m.lastSent}
			sub.Conn.AbortIfSending(prev, prevSub)
		}
	}

	oid := store.ObjectIdentifier{Track: sub.Track, Group: m.group, Object: m.next}
	if err := sub.Conn.SendObject(ctx, oid, sgID, sub.Priority, payload, sub.Timeout); err != nil {
		return false, nil // transport hiccup; retry the same object next pass
	}

	sent := m.next
	m.lastSent = &sent
	e.advanceMinor(m)
	return true, nil
}

// advanceMinor moves m.next to the next group-wide object-id, marking m
// done once it has passed a bounded minor's inclusive end.
func (e *Engine) advanceMinor(m *MinorSubscriptionState) {
	if m.hasEnd && m.next >= m.end {
		m.done = true
		return
	}
	m.next++
}

func subgroupFor(g *store.GroupHandle, oid store.ObjectID) (store.SubgroupID, bool) {
	sg, ok := g.SubgroupForObject(oid)
	if !ok {
		return 0, false
	}
	return sg.ID(), true
}
