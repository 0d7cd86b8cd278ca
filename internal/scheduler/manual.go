package scheduler

import (
	"sync"
	"time"
)

// Manual is a virtual-time scheduler. Nothing fires until Advance is called;
// Advance then runs due callbacks one at a time on the calling goroutine in
// order of due time, ties broken by scheduling order.
type Manual struct {
	mu      sync.Mutex
	now     time.Duration
	seq     uint64
	entries map[*manualEntry]struct{}
}

type manualEntry struct {
	m      *Manual
	at     time.Duration
	period time.Duration
	seq    uint64
	fn     func()
}

// NewManual creates a virtual-time scheduler at elapsed time zero.
func NewManual() *Manual {
	return &Manual{entries: make(map[*manualEntry]struct{})}
}

// AfterFunc runs fn once when virtual time reaches now+d.
func (m *Manual) AfterFunc(d time.Duration, fn func()) Handle {
	return m.schedule(d, 0, fn)
}

// Every runs fn each time virtual time crosses a multiple of d from now.
func (m *Manual) Every(d time.Duration, fn func()) Handle {
	if d <= 0 {
		panic("scheduler: non-positive interval")
	}
	return m.schedule(d, d, fn)
}

func (m *Manual) schedule(d, period time.Duration, fn func()) Handle {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	e := &manualEntry{m: m, at: m.now + d, period: period, seq: m.seq, fn: fn}
	m.entries[e] = struct{}{}
	return e
}

// Advance moves virtual time forward by d, running every callback that falls
// due. Callbacks may schedule or cancel other callbacks.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	for {
		m.mu.Lock()
		e := m.nextDue(target)
		if e == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		m.now = e.at
		if e.period > 0 {
			m.seq++
			e.at += e.period
			e.seq = m.seq
		} else {
			delete(m.entries, e)
		}
		fn := e.fn
		m.mu.Unlock()

		fn()
	}
}

// Elapsed returns the virtual time since the scheduler was created.
func (m *Manual) Elapsed() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Pending returns the number of live callbacks.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Manual) nextDue(target time.Duration) *manualEntry {
	var next *manualEntry
	for e := range m.entries {
		if e.at > target {
			continue
		}
		if next == nil || e.at < next.at || (e.at == next.at && e.seq < next.seq) {
			next = e
		}
	}
	return next
}

func (e *manualEntry) Cancel() {
	e.m.mu.Lock()
	defer e.m.mu.Unlock()
	delete(e.m.entries, e)
}
