package storage

import (
	"context"
	"sync"
)

// MemoryObjectStorage keeps objects in process memory. It backs the
// "stub" provider in development and tests.
type MemoryObjectStorage struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemoryObjectStorage() *MemoryObjectStorage {
	return &MemoryObjectStorage{objects: make(map[string][]byte)}
}

func (m *MemoryObjectStorage) Put(_ context.Context, key string, data []byte, _ string) error {
	if key == "" {
		return ErrKeyRequired
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	m.mu.Lock()
	m.objects[key] = buf
	m.mu.Unlock()
	return nil
}

func (m *MemoryObjectStorage) Get(_ context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrKeyRequired
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, ErrObjectNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *MemoryObjectStorage) Delete(_ context.Context, key string) error {
	if key == "" {
		return ErrKeyRequired
	}
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryObjectStorage) Exists(_ context.Context, key string) (bool, error) {
	if key == "" {
		return false, ErrKeyRequired
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[key]
	return ok, nil
}

// Len returns the number of stored objects.
func (m *MemoryObjectStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

var _ ObjectStore = (*MemoryObjectStorage)(nil)
