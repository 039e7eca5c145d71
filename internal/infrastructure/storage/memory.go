package storage

import (
	"context"
	"errors"
	"sync"

	catalogapp "github.com/markethub/backend/internal/application/catalog"
)

// Ensure InMemoryImageStorage implements ImageStorage
var _ catalogapp.ImageStorage = (*InMemoryImageStorage)(nil)

// InMemoryImageStorage keeps objects in a process-local map. Used for
// development and tests; nothing survives a restart.
type InMemoryImageStorage struct {
	// BaseURL prefixes returned object URLs
	BaseURL string

	mu      sync.RWMutex
	objects map[string][]byte
}

// NewInMemoryImageStorage creates an in-memory image store
func NewInMemoryImageStorage() *InMemoryImageStorage {
	return &InMemoryImageStorage{
		BaseURL: "https://storage.example.com",
		objects: make(map[string][]byte),
	}
}

// Store keeps the bytes and returns the object URL
func (s *InMemoryImageStorage) Store(_ context.Context, key string, data []byte, _ string) (string, error) {
	if key == "" {
		return "", errors.New("storage key is required")
	}

	copied := make([]byte, len(data))
	copy(copied, data)

	s.mu.Lock()
	s.objects[key] = copied
	s.mu.Unlock()

	return s.BaseURL + "/" + key, nil
}

// Object returns the stored bytes for a key, if present
func (s *InMemoryImageStorage) Object(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[key]
	return data, ok
}

// Len returns the number of stored objects
func (s *InMemoryImageStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
