// Package storage keeps uploaded migration payloads in object storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	infraconfig "github.com/stocker/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

var (
	ErrObjectNotFound = errors.New("object not found")
	ErrKeyRequired    = errors.New("storage key is required")
)

// ObjectStore is the payload store used by the migration pipeline.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// New builds the store selected by cfg.Provider.
func New(ctx context.Context, cfg *infraconfig.StorageConfig, logger *zap.Logger) (ObjectStore, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "stub", "memory":
		logger.Warn("using in-memory object storage, uploads are lost on restart")
		return NewMemoryObjectStorage(), nil
	case "s3":
		s, err := NewS3ObjectStorage(cfg, WithLogger(logger))
		if err != nil {
			return nil, err
		}
		if err := s.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Provider)
	}
}

// ChunkKey is the object key of one uploaded migration chunk.
func ChunkKey(tenantID, sessionID, entityType string, chunkIndex int) string {
	return path.Join("migrations", tenantID, sessionID, entityType, fmt.Sprintf("chunk-%05d.json", chunkIndex))
}
