package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationList records tokens revoked before they expire.
type RevocationList interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

const revokedKeyPrefix = "stocker:revoked:"

type RedisRevocationList struct {
	client *redis.Client
}

func NewRedisRevocationList(client *redis.Client) *RedisRevocationList {
	return &RedisRevocationList{client: client}
}

func (r *RedisRevocationList) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, revokedKeyPrefix+jti, "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (r *RedisRevocationList) IsRevoked(ctx context.Context, jti string) (bool, error) {
	err := r.client.Get(ctx, revokedKeyPrefix+jti).Err()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, redis.Nil):
		return false, nil
	}
	return false, fmt.Errorf("check revoked token: %w", err)
}

// MemoryRevocationList is the single-instance fallback when Redis is off.
type MemoryRevocationList struct {
	mu      sync.RWMutex
	entries map[string]time.Time
}

func NewMemoryRevocationList() *MemoryRevocationList {
	return &MemoryRevocationList{entries: make(map[string]time.Time)}
}

func (m *MemoryRevocationList) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for k, exp := range m.entries {
		if now.After(exp) {
			delete(m.entries, k)
		}
	}
	m.entries[jti] = now.Add(ttl)
	return nil
}

func (m *MemoryRevocationList) IsRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	exp, ok := m.entries[jti]
	return ok && time.Now().Before(exp), nil
}

var (
	_ RevocationList = (*RedisRevocationList)(nil)
	_ RevocationList = (*MemoryRevocationList)(nil)
)
