package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/stocker/backend/internal/domain/migration"
	"github.com/stocker/backend/internal/infrastructure/persistence/models"
	"github.com/stocker/backend/internal/infrastructure/persistence/tenant"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultResultBatchSize = 500

// GormValidationResultRepository implements migration.ValidationResultRepository.
type GormValidationResultRepository struct {
	db *gorm.DB
}

func NewGormValidationResultRepository(db *gorm.DB) *GormValidationResultRepository {
	return &GormValidationResultRepository{db: db}
}

func (r *GormValidationResultRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*migration.MigrationValidationResult, error) {
	var model models.MigrationValidationResultModel
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(tenantID)).
		Where("id = ?", id).
		First(&model).Error
	if err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

func (r *GormValidationResultRepository) FindBySession(ctx context.Context, tenantID, sessionID uuid.UUID, filter migration.ResultFilter) ([]migration.MigrationValidationResult, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.MigrationValidationResultModel{}).
		Scopes(tenant.Scope(tenantID)).
		Where("session_id = ?", sessionID)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.EntityType != "" {
		query = query.Where("entity_type = ?", filter.EntityType)
	}
	if filter.ChunkID != nil {
		query = query.Where("chunk_id = ?", *filter.ChunkID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.OrderBy == "" {
		filter.OrderBy = "record_index"
		filter.OrderDir = "asc"
	}
	var rows []models.MigrationValidationResultModel
	if err := applyPaging(query, filter.Filter, ValidationResultSortFields, "record_index").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return resultsToDomain(rows), total, nil
}

func (r *GormValidationResultRepository) FindByChunk(ctx context.Context, tenantID, chunkID uuid.UUID) ([]migration.MigrationValidationResult, error) {
	var rows []models.MigrationValidationResultModel
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(tenantID)).
		Where("chunk_id = ?", chunkID).
		Order("record_index ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return resultsToDomain(rows), nil
}

func (r *GormValidationResultRepository) Save(ctx context.Context, result *migration.MigrationValidationResult) error {
	model := models.MigrationValidationResultModelFromDomain(result)
	return r.db.WithContext(ctx).Clauses(resultUpsert).Create(model).Error
}

// SaveBatch writes results in multi-row INSERTs of batchSize rows.
func (r *GormValidationResultRepository) SaveBatch(ctx context.Context, results []*migration.MigrationValidationResult, batchSize int) error {
	if len(results) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = defaultResultBatchSize
	}
	rows := make([]*models.MigrationValidationResultModel, len(results))
	for i, res := range results {
		rows[i] = models.MigrationValidationResultModelFromDomain(res)
	}
	return r.db.WithContext(ctx).Clauses(resultUpsert).CreateInBatches(rows, batchSize).Error
}

func (r *GormValidationResultRepository) DeleteByChunk(ctx context.Context, tenantID, chunkID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Scopes(tenant.Scope(tenantID)).
		Where("chunk_id = ?", chunkID).
		Delete(&models.MigrationValidationResultModel{}).Error
}

func (r *GormValidationResultRepository) CountByStatus(ctx context.Context, tenantID, sessionID uuid.UUID) ([]migration.StatusCount, error) {
	var counts []migration.StatusCount
	err := r.db.WithContext(ctx).
		Model(&models.MigrationValidationResultModel{}).
		Select("entity_type, status, COUNT(*) AS count").
		Scopes(tenant.Scope(tenantID)).
		Where("session_id = ?", sessionID).
		Group("entity_type, status").
		Order("entity_type, status").
		Scan(&counts).Error
	return counts, err
}

const topIssuesSQL = `SELECT issue->>'field' AS field, issue->>'code' AS code, COUNT(*) AS count
FROM migration_validation_results r,
     jsonb_array_elements(r.errors || r.warnings) AS issue
WHERE r.tenant_id = ? AND r.session_id = ?
GROUP BY 1, 2
ORDER BY count DESC, field ASC
LIMIT ?`

// TopIssues ranks the error and warning codes of a session by frequency.
func (r *GormValidationResultRepository) TopIssues(ctx context.Context, tenantID, sessionID uuid.UUID, limit int) ([]migration.IssueCount, error) {
	if limit <= 0 {
		limit = 10
	}
	var issues []migration.IssueCount
	err := r.db.WithContext(ctx).Raw(topIssuesSQL, tenantID, sessionID, limit).Scan(&issues).Error
	return issues, err
}

var resultUpsert = clause.OnConflict{
	Columns: []clause.Column{{Name: "id"}},
	DoUpdates: clause.AssignmentColumns([]string{
		"transformed_data", "status", "errors", "warnings", "user_action", "resolved_at", "updated_at",
	}),
}

func resultsToDomain(rows []models.MigrationValidationResultModel) []migration.MigrationValidationResult {
	out := make([]migration.MigrationValidationResult, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out
}

var _ migration.ValidationResultRepository = (*GormValidationResultRepository)(nil)
