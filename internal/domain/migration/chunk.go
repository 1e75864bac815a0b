package migration

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stocker/backend/internal/domain/shared"
)

// MigrationChunk is one uploaded slice of records for a single entity type.
// The raw payload lives in object storage under StorageKey.
type MigrationChunk struct {
	shared.BaseEntity
	TenantID    uuid.UUID
	SessionID   uuid.UUID
	EntityType  EntityType
	ChunkIndex  int
	TotalChunks int
	RecordCount int
	StorageKey  string
	Checksum    string
	Status      ChunkStatus

	ValidRecords    int
	WarningRecords  int
	ErrorRecords    int
	ImportedRecords int
	FailedRecords   int

	ProcessedAt  *time.Time
	ErrorMessage string
}

// NewMigrationChunk creates a PENDING chunk.
func NewMigrationChunk(
	session *MigrationSession,
	entityType EntityType,
	chunkIndex, totalChunks, recordCount int,
	storageKey, checksum string,
) (*MigrationChunk, error) {
	if session == nil {
		return nil, shared.NewDomainError("INVALID_SESSION", "Session is required")
	}
	if !entityType.IsValid() {
		return nil, shared.NewDomainError("INVALID_ENTITY_TYPE", fmt.Sprintf("Unsupported entity type: %s", entityType))
	}
	if chunkIndex < 0 {
		return nil, shared.NewDomainError("INVALID_CHUNK_INDEX", "Chunk index cannot be negative")
	}
	if totalChunks < 0 {
		return nil, shared.NewDomainError("INVALID_CHUNK_INDEX", "Total chunks cannot be negative")
	}
	if totalChunks > 0 && chunkIndex >= totalChunks {
		return nil, shared.NewDomainError("INVALID_CHUNK_INDEX",
			fmt.Sprintf("Chunk index %d is out of range for %d chunks", chunkIndex, totalChunks))
	}
	if recordCount <= 0 {
		return nil, shared.NewDomainError("EMPTY_CHUNK", "Chunk must contain at least one record")
	}
	if storageKey == "" {
		return nil, shared.NewDomainError("INVALID_STORAGE_KEY", "Storage key is required")
	}

	return &MigrationChunk{
		BaseEntity:  shared.NewBaseEntity(),
		TenantID:    session.TenantID,
		SessionID:   session.ID,
		EntityType:  entityType,
		ChunkIndex:  chunkIndex,
		TotalChunks: totalChunks,
		RecordCount: recordCount,
		StorageKey:  storageKey,
		Checksum:    checksum,
		Status:      ChunkStatusPending,
	}, nil
}

// ResetValidation returns a validated chunk to PENDING before re-validation.
func (c *MigrationChunk) ResetValidation() error {
	if c.Status != ChunkStatusPending && c.Status != ChunkStatusValidated {
		return shared.NewInvalidStateError("Cannot reset a chunk in %s status", c.Status)
	}
	c.Status = ChunkStatusPending
	c.ValidRecords = 0
	c.WarningRecords = 0
	c.ErrorRecords = 0
	c.ProcessedAt = nil
	c.ErrorMessage = ""
	c.Touch()
	return nil
}

// MarkValidated stores the per-status counts of the chunk's records.
func (c *MigrationChunk) MarkValidated(valid, warning, errCount int) error {
	if c.Status != ChunkStatusPending {
		return shared.NewInvalidStateError("Cannot validate a chunk in %s status", c.Status)
	}
	if valid+warning+errCount != c.RecordCount {
		return shared.NewDomainError("INVALID_COUNT",
			fmt.Sprintf("Chunk holds %d records but %d were validated", c.RecordCount, valid+warning+errCount))
	}
	now := time.Now()
	c.ValidRecords = valid
	c.WarningRecords = warning
	c.ErrorRecords = errCount
	c.Status = ChunkStatusValidated
	c.ProcessedAt = &now
	c.Touch()
	return nil
}

// MarkImported records the import outcome of the chunk.
func (c *MigrationChunk) MarkImported(imported, failed int) error {
	if c.Status != ChunkStatusValidated {
		return shared.NewInvalidStateError("Cannot import a chunk in %s status", c.Status)
	}
	if imported < 0 || failed < 0 || imported+failed > c.RecordCount {
		return shared.NewDomainError("INVALID_COUNT", "Import counts are out of range")
	}
	now := time.Now()
	c.ImportedRecords = imported
	c.FailedRecords = failed
	c.Status = ChunkStatusImported
	c.ProcessedAt = &now
	c.Touch()
	return nil
}

// MarkFailed records an unrecoverable processing error.
func (c *MigrationChunk) MarkFailed(reason string) error {
	if c.Status == ChunkStatusImported {
		return shared.NewInvalidStateError("Cannot fail an imported chunk")
	}
	now := time.Now()
	c.Status = ChunkStatusFailed
	c.ErrorMessage = reason
	c.ProcessedAt = &now
	c.Touch()
	return nil
}
