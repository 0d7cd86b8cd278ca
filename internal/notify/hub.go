// Package notify fans session events out to subscribers such as websocket
// connections.
package notify

import (
	"sync"

	"github.com/comp-report/intake/internal/models"
	"go.uber.org/zap"
)

// Event types.
const (
	EventSnapshot     = "snapshot"
	EventNotification = "notification"
)

// Event is a state change or user-facing notice from a session.
type Event struct {
	Type         string               `json:"type"`
	Snapshot     *models.Snapshot     `json:"snapshot,omitempty"`
	Notification *models.Notification `json:"notification,omitempty"`
}

// Publisher accepts session events. Publish must not block.
type Publisher interface {
	Publish(e Event)
}

// Hub delivers events to every subscriber without blocking the publisher.
// Slow subscribers drop events; the next snapshot supersedes anything lost.
type Hub struct {
	mu        sync.RWMutex
	subs      map[uint64]chan Event
	nextID    uint64
	recent    []models.Notification
	maxRecent int
	bufSize   int
	closed    bool
	log       *zap.Logger
}

// NewHub creates a hub with per-subscriber buffers of bufSize that keeps the
// last maxRecent notifications.
func NewHub(bufSize, maxRecent int, log *zap.Logger) *Hub {
	return &Hub{
		subs:      make(map[uint64]chan Event),
		maxRecent: maxRecent,
		bufSize:   bufSize,
		log:       log,
	}
}

// Subscribe returns a channel of events and a function that ends the
// subscription. The channel is closed when either is called or the hub closes.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, h.bufSize)
	if h.closed {
		close(ch)
		return ch, func() {}
	}

	id := h.nextID
	h.nextID++
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() { h.unsubscribe(id) })
	}
}

func (h *Hub) unsubscribe(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}

// Publish delivers e to every subscriber that has room for it.
func (h *Hub) Publish(e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}

	if e.Notification != nil && h.maxRecent > 0 {
		h.recent = append(h.recent, *e.Notification)
		if len(h.recent) > h.maxRecent {
			h.recent = h.recent[len(h.recent)-h.maxRecent:]
		}
	}

	for id, ch := range h.subs {
		select {
		case ch <- e:
		default:
			h.log.Debug("subscriber buffer full, event dropped",
				zap.Uint64("subscriber", id),
				zap.String("type", e.Type))
		}
	}
}

// Recent returns the retained notifications, oldest first.
func (h *Hub) Recent() []models.Notification {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]models.Notification(nil), h.recent...)
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close ends every subscription. Later publishes are dropped.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
