package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/stocker/backend/internal/domain/migration"
	"github.com/stocker/backend/internal/infrastructure/persistence/models"
	"github.com/stocker/backend/internal/infrastructure/persistence/tenant"
	"gorm.io/gorm"
)

// GormSessionRepository implements migration.SessionRepository.
type GormSessionRepository struct {
	db *gorm.DB
}

func NewGormSessionRepository(db *gorm.DB) *GormSessionRepository {
	return &GormSessionRepository{db: db}
}

func (r *GormSessionRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*migration.MigrationSession, error) {
	var model models.MigrationSessionModel
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(tenantID)).
		Where("id = ?", id).
		First(&model).Error
	if err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

func (r *GormSessionRepository) FindByIDUnscoped(ctx context.Context, id uuid.UUID) (*migration.MigrationSession, error) {
	var model models.MigrationSessionModel
	if err := r.db.WithContext(ctx).Unscoped().Where("id = ?", id).First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

func (r *GormSessionRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter migration.SessionFilter) ([]migration.MigrationSession, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.MigrationSessionModel{}).
		Scopes(tenant.Scope(tenantID))
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.SourceSystem != "" {
		query = query.Where("source_system = ?", filter.SourceSystem)
	}
	if filter.Search != "" {
		query = query.Where("name ILIKE ?", "%"+filter.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.MigrationSessionModel
	if err := applyPaging(query, filter.Filter, SessionSortFields, "created_at").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	sessions := make([]migration.MigrationSession, len(rows))
	for i := range rows {
		sessions[i] = *rows[i].ToDomain()
	}
	return sessions, total, nil
}

func (r *GormSessionRepository) Save(ctx context.Context, session *migration.MigrationSession) error {
	model := models.MigrationSessionModelFromDomain(session)
	return saveVersioned(ctx, r.db, model, session, session.TenantID, &model.Version)
}

var _ migration.SessionRepository = (*GormSessionRepository)(nil)
