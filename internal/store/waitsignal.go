package store

import (
	"context"
	"sync"
)

// waitSignal is a single-shot release/acquire flag: Release may be called
// at most meaningfully once (subsequent calls are no-ops), and any number
// of goroutines may Acquire, blocking until Release fires or their context
// is cancelled. Used by subgroups to wake readers parked on an object that
// has not arrived yet.
type waitSignal struct {
	once sync.Once
	ch   chan struct{}
}

func newWaitSignal() *waitSignal {
	return &waitSignal{ch: make(chan struct{})}
}

func (w *waitSignal) release() {
	w.once.Do(func() { close(w.ch) })
}

func (w *waitSignal) acquire(ctx context.Context) error {
	select {
	case <-w.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
