package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/stocker/backend/internal/domain/manufacturing"
	"github.com/stocker/backend/internal/infrastructure/persistence/models"
	"github.com/stocker/backend/internal/infrastructure/persistence/tenant"
	"gorm.io/gorm"
)

// GormRoutingRepository implements manufacturing.RoutingRepository.
type GormRoutingRepository struct {
	db *gorm.DB
}

func NewGormRoutingRepository(db *gorm.DB) *GormRoutingRepository {
	return &GormRoutingRepository{db: db}
}

func (r *GormRoutingRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*manufacturing.Routing, error) {
	var model models.RoutingModel
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(tenantID)).
		Where("id = ?", id).
		First(&model).Error
	if err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

func (r *GormRoutingRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter manufacturing.RoutingFilter) ([]manufacturing.Routing, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.RoutingModel{}).
		Scopes(tenant.Scope(tenantID))
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.ProductID != nil {
		query = query.Where("product_id = ?", *filter.ProductID)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("code ILIKE ? OR name ILIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.RoutingModel
	if err := applyPaging(query, filter.Filter, RoutingSortFields, "created_at").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	routings := make([]manufacturing.Routing, len(rows))
	for i := range rows {
		routings[i] = *rows[i].ToDomain()
	}
	return routings, total, nil
}

func (r *GormRoutingRepository) ExistsByCodeRevision(ctx context.Context, tenantID uuid.UUID, code string, revision int) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.RoutingModel{}).
		Scopes(tenant.Scope(tenantID)).
		Where("code = ? AND revision = ?", code, revision).
		Count(&count).Error
	return count > 0, err
}

func (r *GormRoutingRepository) Save(ctx context.Context, routing *manufacturing.Routing) error {
	model := models.RoutingModelFromDomain(routing)
	return saveVersioned(ctx, r.db, model, routing, routing.TenantID, &model.Version)
}

var _ manufacturing.RoutingRepository = (*GormRoutingRepository)(nil)
