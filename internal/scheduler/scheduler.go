// Package scheduler provides cancellable deferred and periodic callbacks.
//
// Real runs callbacks on the wall clock. Manual runs them synchronously in
// virtual-time order when Advance is called, which makes timer-driven state
// machines deterministic under test.
package scheduler

import (
	"sync"
	"time"
)

// Handle cancels a scheduled callback. Cancel is idempotent and safe to call
// from inside the callback itself.
type Handle interface {
	Cancel()
}

// Scheduler schedules callbacks.
type Scheduler interface {
	// AfterFunc runs fn once after d.
	AfterFunc(d time.Duration, fn func()) Handle
	// Every runs fn every d until cancelled.
	Every(d time.Duration, fn func()) Handle
}

// Real schedules callbacks on the wall clock. Callbacks run on their own
// goroutines, so callers must serialize any shared state they touch.
type Real struct{}

// NewReal creates a wall-clock scheduler.
func NewReal() *Real {
	return &Real{}
}

// AfterFunc runs fn once after d.
func (Real) AfterFunc(d time.Duration, fn func()) Handle {
	return realTimer{t: time.AfterFunc(d, fn)}
}

// Every runs fn every d until the handle is cancelled.
func (Real) Every(d time.Duration, fn func()) Handle {
	t := &realTicker{
		ticker: time.NewTicker(d),
		done:   make(chan struct{}),
	}
	go t.run(fn)
	return t
}

type realTimer struct {
	t *time.Timer
}

func (r realTimer) Cancel() {
	r.t.Stop()
}

type realTicker struct {
	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

func (t *realTicker) run(fn func()) {
	for {
		select {
		case <-t.done:
			return
		case <-t.ticker.C:
			// A tick may already be buffered when Cancel runs.
			select {
			case <-t.done:
				return
			default:
			}
			fn()
		}
	}
}

func (t *realTicker) Cancel() {
	t.once.Do(func() {
		t.ticker.Stop()
		close(t.done)
	})
}
