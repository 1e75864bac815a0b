package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/stocker/backend/internal/domain/migration"
	"github.com/stocker/backend/internal/domain/shared"
	"github.com/stocker/backend/internal/infrastructure/persistence/models"
	"github.com/stocker/backend/internal/infrastructure/persistence/tenant"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormChunkRepository implements migration.ChunkRepository.
type GormChunkRepository struct {
	db *gorm.DB
}

func NewGormChunkRepository(db *gorm.DB) *GormChunkRepository {
	return &GormChunkRepository{db: db}
}

func (r *GormChunkRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*migration.MigrationChunk, error) {
	var model models.MigrationChunkModel
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(tenantID)).
		Where("id = ?", id).
		First(&model).Error
	if err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

func (r *GormChunkRepository) FindBySession(ctx context.Context, tenantID, sessionID uuid.UUID) ([]migration.MigrationChunk, error) {
	var rows []models.MigrationChunkModel
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(tenantID)).
		Where("session_id = ?", sessionID).
		Order("entity_type ASC, chunk_index ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	chunks := make([]migration.MigrationChunk, len(rows))
	for i := range rows {
		chunks[i] = *rows[i].ToDomain()
	}
	return chunks, nil
}

func (r *GormChunkRepository) ExistsByIndex(ctx context.Context, sessionID uuid.UUID, entityType migration.EntityType, chunkIndex int) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.MigrationChunkModel{}).
		Where("session_id = ? AND entity_type = ? AND chunk_index = ?", sessionID, entityType, chunkIndex).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save upserts the chunk by primary key.
func (r *GormChunkRepository) Save(ctx context.Context, chunk *migration.MigrationChunk) error {
	model := models.MigrationChunkModelFromDomain(chunk)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns(chunkMutableColumns),
		}).
		Create(model).Error
	if isUniqueViolation(err) {
		return shared.ErrAlreadyExists
	}
	return err
}

var chunkMutableColumns = []string{
	"status", "valid_records", "warning_records", "error_records",
	"imported_records", "failed_records", "processed_at", "error_message", "updated_at",
}

var _ migration.ChunkRepository = (*GormChunkRepository)(nil)
