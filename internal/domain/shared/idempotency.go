package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers keys of work that has already been done, such
// as an imported migration chunk or a handled event.
type IdempotencyStore interface {
	// MarkProcessed atomically claims key for ttl.
	// It returns false if the key was already claimed.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed checks if a key has already been claimed
	IsProcessed(ctx context.Context, key string) (bool, error)

	// Release forgets a key so the work can be attempted again.
	Release(ctx context.Context, key string) error

	// Close closes the store and releases resources
	Close() error
}
