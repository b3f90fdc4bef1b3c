package snapshot

import (
	"context"
	"sync"
)

// Memory keeps snapshots in a map for tests.
type Memory struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemory returns an in-memory store.
func NewMemory() *Memory {
	return &Memory{objects: make(map[string][]byte)}
}

// Save records the object and returns a mem:// URI.
func (s *Memory) Save(_ context.Context, objectName string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	s.objects[objectName] = cp
	return "mem://" + objectName, nil
}

// Object returns the stored bytes for a name, if present.
func (s *Memory) Object(objectName string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[objectName]
	return data, ok
}

// Len returns how many objects are stored.
func (s *Memory) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
