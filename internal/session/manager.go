// Package session owns report sessions: one Session per browser client, each
// holding the slot registry, upload simulator and report pipeline for a
// single report.
package session

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/comp-report/intake/internal/notify"
	"github.com/comp-report/intake/internal/scheduler"
	"github.com/comp-report/intake/internal/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrSessionNotFound is returned for unknown session ids.
	ErrSessionNotFound = errors.New("session not found")
	// ErrTooManySessions is returned when the session cap is reached and no
	// idle session can be evicted.
	ErrTooManySessions = errors.New("too many active sessions")
)

// ManagerOptions bounds the number and lifetime of sessions.
type ManagerOptions struct {
	MaxSessions     int
	KeepAliveWindow time.Duration // Sessions touched within this window are never evicted
	EventBuffer     int
	RecentNotices   int
}

// DefaultManagerOptions returns the standard limits.
func DefaultManagerOptions() ManagerOptions {
	return ManagerOptions{
		MaxSessions:     100,
		KeepAliveWindow: 5 * time.Minute,
		EventBuffer:     64,
		RecentNotices:   20,
	}
}

// Manager handles active report sessions.
type Manager struct {
	sessions map[string]*State
	mu       sync.RWMutex
	cfg      Config
	opts     ManagerOptions
	sched    scheduler.Scheduler
	previews storage.PreviewStore
	now      func() time.Time
	log      *zap.Logger
}

// State holds a session, its event hub and access bookkeeping.
type State struct {
	Session      *Session
	Events       *notify.Hub
	CreatedAt    time.Time
	LastAccessed time.Time
}

// NewManager creates a session manager.
func NewManager(cfg Config, opts ManagerOptions, sched scheduler.Scheduler, previews storage.PreviewStore, log *zap.Logger) *Manager {
	return &Manager{
		sessions: make(map[string]*State),
		cfg:      cfg,
		opts:     opts,
		sched:    sched,
		previews: previews,
		now:      time.Now,
		log:      log,
	}
}

// Create starts a new session with every slot empty.
func (m *Manager) Create() (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.opts.MaxSessions > 0 && len(m.sessions) >= m.opts.MaxSessions {
		m.evictIdleLocked(len(m.sessions) - m.opts.MaxSessions + 1)
		if len(m.sessions) >= m.opts.MaxSessions {
			return nil, ErrTooManySessions
		}
	}

	id := uuid.New().String()
	hub := notify.NewHub(m.opts.EventBuffer, m.opts.RecentNotices, m.log.Named("events"))
	now := m.now()
	state := &State{
		Session:      New(id, m.cfg, m.sched, m.previews, hub, m.log.Named("session")),
		Events:       hub,
		CreatedAt:    now,
		LastAccessed: now,
	}
	m.sessions[id] = state

	m.log.Info("session created", zap.String("session", shortID(id)), zap.Int("active", len(m.sessions)))
	return state, nil
}

// Get returns a session by id and marks it as accessed.
func (m *Manager) Get(id string) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	state.LastAccessed = m.now()
	return state, nil
}

// Touch updates the LastAccessed timestamp for a session.
func (m *Manager) Touch(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.sessions[id]
	if !ok {
		return false
	}
	state.LastAccessed = m.now()
	return true
}

// Delete closes a session and releases everything it holds.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	state, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	closeState(state)
	return nil
}

// Len returns the number of active sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CleanupIdle closes sessions not accessed within maxIdle and returns how
// many were removed.
func (m *Manager) CleanupIdle(maxIdle time.Duration) int {
	m.mu.Lock()
	cutoff := m.now().Add(-maxIdle)
	var stale []*State
	for id, state := range m.sessions {
		if state.LastAccessed.Before(cutoff) {
			stale = append(stale, state)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, state := range stale {
		closeState(state)
		m.log.Info("cleaned up idle session",
			zap.String("session", shortID(state.Session.ID())),
			zap.Duration("idle", m.now().Sub(state.LastAccessed).Round(time.Second)))
	}
	return len(stale)
}

// CloseAll closes every session.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*State)
	m.mu.Unlock()

	for _, state := range all {
		closeState(state)
	}
}

// evictIdleLocked removes up to n of the least recently used sessions that
// are outside the keep-alive window.
func (m *Manager) evictIdleLocked(n int) {
	keepAliveCutoff := m.now().Add(-m.opts.KeepAliveWindow)

	var candidates []*State
	for _, state := range m.sessions {
		if state.LastAccessed.Before(keepAliveCutoff) {
			candidates = append(candidates, state)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].LastAccessed.Before(candidates[j].LastAccessed)
	})

	for i := 0; i < n && i < len(candidates); i++ {
		state := candidates[i]
		delete(m.sessions, state.Session.ID())
		closeState(state)
		m.log.Info("evicted session to make room", zap.String("session", shortID(state.Session.ID())))
	}
}

func closeState(state *State) {
	state.Session.Close()
	state.Events.Close()
}
