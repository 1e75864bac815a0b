package migration

import (
	"context"

	"github.com/google/uuid"
	"github.com/stocker/backend/internal/domain/shared"
)

// SessionFilter narrows a session listing.
type SessionFilter struct {
	shared.Filter
	Status       SessionStatus
	SourceSystem SourceSystem
}

// ResultFilter narrows a validation result listing.
type ResultFilter struct {
	shared.Filter
	Status     RecordStatus
	EntityType EntityType
	ChunkID    *uuid.UUID
}

// StatusCount is one row of a per-entity, per-status breakdown.
type StatusCount struct {
	EntityType EntityType
	Status     RecordStatus
	Count      int64
}

// IssueCount is how often an issue code occurred in a session.
type IssueCount struct {
	Field string
	Code  string
	Count int64
}

// SessionRepository persists MigrationSession aggregates.
type SessionRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*MigrationSession, error)
	// FindByIDUnscoped loads a session without a tenant filter. Only background
	// jobs use it; the job record carries the tenant.
	FindByIDUnscoped(ctx context.Context, id uuid.UUID) (*MigrationSession, error)
	FindAll(ctx context.Context, tenantID uuid.UUID, filter SessionFilter) ([]MigrationSession, int64, error)
	// Save inserts or updates the session, failing with
	// shared.ErrConcurrencyConflict when the stored version moved on.
	Save(ctx context.Context, session *MigrationSession) error
}

// ChunkRepository persists MigrationChunk entities.
type ChunkRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*MigrationChunk, error)
	// FindBySession returns chunks ordered by entity type and index.
	FindBySession(ctx context.Context, tenantID, sessionID uuid.UUID) ([]MigrationChunk, error)
	ExistsByIndex(ctx context.Context, sessionID uuid.UUID, entityType EntityType, chunkIndex int) (bool, error)
	Save(ctx context.Context, chunk *MigrationChunk) error
}

// ValidationResultRepository persists MigrationValidationResult rows.
type ValidationResultRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*MigrationValidationResult, error)
	FindBySession(ctx context.Context, tenantID, sessionID uuid.UUID, filter ResultFilter) ([]MigrationValidationResult, int64, error)
	// FindByChunk returns every result of a chunk ordered by record index.
	FindByChunk(ctx context.Context, tenantID, chunkID uuid.UUID) ([]MigrationValidationResult, error)
	Save(ctx context.Context, result *MigrationValidationResult) error
	SaveBatch(ctx context.Context, results []*MigrationValidationResult, batchSize int) error
	DeleteByChunk(ctx context.Context, tenantID, chunkID uuid.UUID) error
	CountByStatus(ctx context.Context, tenantID, sessionID uuid.UUID) ([]StatusCount, error)
	TopIssues(ctx context.Context, tenantID, sessionID uuid.UUID, limit int) ([]IssueCount, error)
}
