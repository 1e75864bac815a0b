package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/stocker/backend/internal/domain/crm"
	"github.com/stocker/backend/internal/domain/shared"
	"github.com/stocker/backend/internal/infrastructure/persistence/models"
	"github.com/stocker/backend/internal/infrastructure/persistence/tenant"
	"gorm.io/gorm"
)

// GormDealRepository implements crm.DealRepository.
type GormDealRepository struct {
	db *gorm.DB
}

func NewGormDealRepository(db *gorm.DB) *GormDealRepository {
	return &GormDealRepository{db: db}
}

func (r *GormDealRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*crm.Deal, error) {
	var model models.DealModel
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(tenantID)).
		Where("id = ?", id).
		First(&model).Error
	if err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

func (r *GormDealRepository) FindByExternalRef(ctx context.Context, tenantID uuid.UUID, ref string) (*crm.Deal, error) {
	if ref == "" {
		return nil, shared.ErrNotFound
	}
	var model models.DealModel
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(tenantID)).
		Where("external_ref = ?", ref).
		First(&model).Error
	if err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

func (r *GormDealRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter crm.DealFilter) ([]crm.Deal, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.DealModel{}).
		Scopes(tenant.Scope(tenantID))
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Stage != "" {
		query = query.Where("stage = ?", filter.Stage)
	}
	if filter.OwnerID != nil {
		query = query.Where("owner_id = ?", *filter.OwnerID)
	}
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.Search != "" {
		query = query.Where("title ILIKE ?", "%"+filter.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.DealModel
	if err := applyPaging(query, filter.Filter, DealSortFields, "created_at").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	deals := make([]crm.Deal, len(rows))
	for i := range rows {
		deals[i] = *rows[i].ToDomain()
	}
	return deals, total, nil
}

func (r *GormDealRepository) Save(ctx context.Context, deal *crm.Deal) error {
	model := models.DealModelFromDomain(deal)
	return saveVersioned(ctx, r.db, model, deal, deal.TenantID, &model.Version)
}

func (r *GormDealRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Scopes(tenant.Scope(tenantID)).
		Where("id = ?", id).
		Delete(&models.DealModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ crm.DealRepository = (*GormDealRepository)(nil)
