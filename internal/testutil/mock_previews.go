// mock_previews.go - Recording fakes for tests
package testutil

import (
	"errors"
	"fmt"
	"sync"

	"github.com/comp-report/intake/internal/models"
	"github.com/comp-report/intake/internal/notify"
	"github.com/comp-report/intake/internal/storage"
)

// MockPreviewStore implements storage.PreviewStore and records every call.
type MockPreviewStore struct {
	mu        sync.Mutex
	live      map[string]*storage.Preview
	created   []string
	released  []string
	nextID    int
	CreateErr error
}

// NewMockPreviewStore creates an empty mock preview store.
func NewMockPreviewStore() *MockPreviewStore {
	return &MockPreviewStore{live: make(map[string]*storage.Preview)}
}

func (m *MockPreviewStore) Create(file models.FileInfo, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CreateErr != nil {
		return "", m.CreateErr
	}

	m.nextID++
	handle := fmt.Sprintf("preview-%d", m.nextID)
	m.live[handle] = &storage.Preview{
		Handle:      handle,
		FileName:    file.Name,
		ContentType: file.Type,
		Data:        data,
	}
	m.created = append(m.created, handle)
	return handle, nil
}

func (m *MockPreviewStore) Get(handle string) (*storage.Preview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.live[handle]
	if !ok {
		return nil, storage.ErrPreviewNotFound
	}
	return p, nil
}

func (m *MockPreviewStore) Release(handle string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.live[handle]; !ok {
		return errors.Join(storage.ErrPreviewNotFound, fmt.Errorf("handle %s", handle))
	}
	delete(m.live, handle)
	m.released = append(m.released, handle)
	return nil
}

func (m *MockPreviewStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.live)
}

// Created returns every handle ever created, in order.
func (m *MockPreviewStore) Created() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.created...)
}

// Released returns every handle released, in order.
func (m *MockPreviewStore) Released() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.released...)
}

// RecordingPublisher implements notify.Publisher and keeps every event.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []notify.Event
}

func (p *RecordingPublisher) Publish(e notify.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

// Notifications returns the notifications published so far.
func (p *RecordingPublisher) Notifications() []models.Notification {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []models.Notification
	for _, e := range p.events {
		if e.Notification != nil {
			out = append(out, *e.Notification)
		}
	}
	return out
}

// Kinds returns the kinds of the notifications published so far.
func (p *RecordingPublisher) Kinds() []models.NotificationKind {
	var kinds []models.NotificationKind
	for _, n := range p.Notifications() {
		kinds = append(kinds, n.Kind)
	}
	return kinds
}

// LastSnapshot returns the most recent published snapshot, or nil.
func (p *RecordingPublisher) LastSnapshot() *models.Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := len(p.events) - 1; i >= 0; i-- {
		if p.events[i].Snapshot != nil {
			return p.events[i].Snapshot
		}
	}
	return nil
}

// Reset forgets recorded events.
func (p *RecordingPublisher) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}
