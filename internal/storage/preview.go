// Package storage holds in-memory resources owned by report sessions.
package storage

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/comp-report/intake/internal/models"
	"github.com/google/uuid"
)

// ErrPreviewNotFound is returned for unknown or released handles.
var ErrPreviewNotFound = errors.New("preview not found")

// PreviewStore holds renderable previews for image attachments. Each handle
// is owned by exactly one attachment and must be released when that
// attachment is replaced or removed.
type PreviewStore interface {
	Create(file models.FileInfo, data []byte) (string, error)
	Get(handle string) (*Preview, error)
	Release(handle string) error
	Len() int
}

// Preview is a display resource derived from a selected image file.
type Preview struct {
	Handle      string    `json:"handle"`
	FileName    string    `json:"fileName"`
	ContentType string    `json:"contentType"`
	Data        []byte    `json:"-"`
	CreatedAt   time.Time `json:"createdAt"`
}

// MemoryStore implements PreviewStore in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	previews map[string]*Preview
	maxBytes int64
}

// NewMemoryStore creates a preview store. maxBytes caps the size of a single
// preview; zero means no cap.
func NewMemoryStore(maxBytes int64) *MemoryStore {
	return &MemoryStore{
		previews: make(map[string]*Preview),
		maxBytes: maxBytes,
	}
}

// Create stores a preview and returns its handle.
func (s *MemoryStore) Create(file models.FileInfo, data []byte) (string, error) {
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return "", fmt.Errorf("preview for %s is %d bytes, limit %d", file.Name, len(data), s.maxBytes)
	}

	p := &Preview{
		Handle:      uuid.New().String(),
		FileName:    file.Name,
		ContentType: file.Type,
		Data:        append([]byte(nil), data...),
		CreatedAt:   time.Now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.previews[p.Handle] = p

	return p.Handle, nil
}

// Get retrieves a live preview by handle.
func (s *MemoryStore) Get(handle string) (*Preview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.previews[handle]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPreviewNotFound, handle)
	}
	return p, nil
}

// Release frees a preview. Releasing an unknown handle returns ErrPreviewNotFound.
func (s *MemoryStore) Release(handle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.previews[handle]; !ok {
		return fmt.Errorf("%w: %s", ErrPreviewNotFound, handle)
	}
	delete(s.previews, handle)
	return nil
}

// Len returns the number of live previews.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.previews)
}

// List returns live previews, newest first.
func (s *MemoryStore) List() []*Preview {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*Preview, 0, len(s.previews))
	for _, p := range s.previews {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list
}
