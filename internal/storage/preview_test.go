// preview_test.go - Tests for the preview store
package storage

import (
	"errors"
	"testing"

	"github.com/comp-report/intake/internal/models"
)

func TestMemoryStore_CreateAndGet(t *testing.T) {
	store := NewMemoryStore(0)
	file := models.FileInfo{Name: "front.png", Size: 3, Type: "image/png"}

	handle, err := store.Create(file, []byte{1, 2, 3})
	if err != nil {
		t.Fatalf("Failed to create preview: %v", err)
	}
	if handle == "" {
		t.Fatal("Expected handle to be set")
	}

	p, err := store.Get(handle)
	if err != nil {
		t.Fatalf("Failed to get preview: %v", err)
	}
	if p.FileName != "front.png" {
		t.Errorf("Expected name 'front.png', got %v", p.FileName)
	}
	if p.ContentType != "image/png" {
		t.Errorf("Expected content type 'image/png', got %v", p.ContentType)
	}
	if len(p.Data) != 3 {
		t.Errorf("Expected 3 bytes, got %d", len(p.Data))
	}
}

func TestMemoryStore_CopiesData(t *testing.T) {
	store := NewMemoryStore(0)
	data := []byte("abc")

	handle, _ := store.Create(models.FileInfo{Name: "a.png"}, data)
	data[0] = 'z'

	p, _ := store.Get(handle)
	if string(p.Data) != "abc" {
		t.Errorf("Expected stored data to be independent of caller buffer, got %q", p.Data)
	}
}

func TestMemoryStore_Release(t *testing.T) {
	t.Run("releases live handle", func(t *testing.T) {
		store := NewMemoryStore(0)
		handle, _ := store.Create(models.FileInfo{Name: "a.png"}, nil)

		if err := store.Release(handle); err != nil {
			t.Fatalf("Failed to release: %v", err)
		}
		if store.Len() != 0 {
			t.Errorf("Expected 0 previews, got %d", store.Len())
		}
		if _, err := store.Get(handle); !errors.Is(err, ErrPreviewNotFound) {
			t.Errorf("Expected ErrPreviewNotFound, got %v", err)
		}
	})

	t.Run("double release reports not found", func(t *testing.T) {
		store := NewMemoryStore(0)
		handle, _ := store.Create(models.FileInfo{Name: "a.png"}, nil)
		_ = store.Release(handle)

		if err := store.Release(handle); !errors.Is(err, ErrPreviewNotFound) {
			t.Errorf("Expected ErrPreviewNotFound, got %v", err)
		}
	})
}

func TestMemoryStore_MaxBytes(t *testing.T) {
	store := NewMemoryStore(4)

	if _, err := store.Create(models.FileInfo{Name: "big.png"}, make([]byte, 5)); err == nil {
		t.Error("Expected error for oversized preview")
	}
	if _, err := store.Create(models.FileInfo{Name: "ok.png"}, make([]byte, 4)); err != nil {
		t.Errorf("Expected preview at the cap to be accepted, got %v", err)
	}
	if store.Len() != 1 {
		t.Errorf("Expected 1 preview, got %d", store.Len())
	}
}

func TestMemoryStore_List(t *testing.T) {
	store := NewMemoryStore(0)
	store.Create(models.FileInfo{Name: "a.png"}, nil)
	store.Create(models.FileInfo{Name: "b.png"}, nil)

	if got := len(store.List()); got != 2 {
		t.Errorf("Expected 2 previews, got %d", got)
	}
}
