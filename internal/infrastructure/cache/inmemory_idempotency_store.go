package cache

import (
	"context"
	"sync"
	"time"

	"github.com/stocker/backend/internal/domain/shared"
)

// InMemoryIdempotencyStore implements IdempotencyStore with a map.
// Claims are not shared between processes, so it only suits a single
// instance or tests.
type InMemoryIdempotencyStore struct {
	mu        sync.RWMutex
	entries   map[string]time.Time
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryIdempotencyStore creates the store and starts a sweeper that
// drops expired claims every cleanupInterval (5m when zero).
func NewInMemoryIdempotencyStore(cleanupInterval ...time.Duration) *InMemoryIdempotencyStore {
	interval := 5 * time.Minute
	if len(cleanupInterval) > 0 && cleanupInterval[0] > 0 {
		interval = cleanupInterval[0]
	}

	s := &InMemoryIdempotencyStore{
		entries:  make(map[string]time.Time),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	s.wg.Add(1)
	go s.cleanupLoop(interval)
	return s
}

// MarkProcessed claims key until ttl elapses.
func (s *InMemoryIdempotencyStore) MarkProcessed(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if exp, ok := s.entries[key]; ok && now.Before(exp) {
		return false, nil
	}
	s.entries[key] = now.Add(ttl)
	return true, nil
}

// IsProcessed checks if key holds a live claim.
func (s *InMemoryIdempotencyStore) IsProcessed(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	exp, ok := s.entries[key]
	return ok && s.now().Before(exp), nil
}

// Release drops the claim on key.
func (s *InMemoryIdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// Close stops the sweeper. Safe to call multiple times.
func (s *InMemoryIdempotencyStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

func (s *InMemoryIdempotencyStore) cleanupLoop(interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *InMemoryIdempotencyStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, exp := range s.entries {
		if !now.Before(exp) {
			delete(s.entries, key)
		}
	}
}

// Size returns the number of stored claims, expired ones included.
func (s *InMemoryIdempotencyStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

var _ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
