package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/stocker/backend/internal/domain/inventory"
	"github.com/stocker/backend/internal/infrastructure/persistence/models"
	"github.com/stocker/backend/internal/infrastructure/persistence/tenant"
	"gorm.io/gorm"
)

// GormReorderRuleRepository implements inventory.ReorderRuleRepository.
type GormReorderRuleRepository struct {
	db *gorm.DB
}

func NewGormReorderRuleRepository(db *gorm.DB) *GormReorderRuleRepository {
	return &GormReorderRuleRepository{db: db}
}

func (r *GormReorderRuleRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*inventory.ReorderRule, error) {
	var model models.ReorderRuleModel
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(tenantID)).
		Where("id = ?", id).
		First(&model).Error
	if err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindByProduct matches a nil warehouse to the tenant-wide rule.
func (r *GormReorderRuleRepository) FindByProduct(ctx context.Context, tenantID, productID uuid.UUID, warehouseID *uuid.UUID) (*inventory.ReorderRule, error) {
	query := r.db.WithContext(ctx).
		Scopes(tenant.Scope(tenantID)).
		Where("product_id = ?", productID)
	if warehouseID == nil {
		query = query.Where("warehouse_id IS NULL")
	} else {
		query = query.Where("warehouse_id = ?", *warehouseID)
	}

	var model models.ReorderRuleModel
	if err := query.First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

func (r *GormReorderRuleRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter inventory.ReorderRuleFilter) ([]inventory.ReorderRule, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.ReorderRuleModel{}).
		Scopes(tenant.Scope(tenantID))
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.ProductID != nil {
		query = query.Where("product_id = ?", *filter.ProductID)
	}
	if filter.WarehouseID != nil {
		query = query.Where("warehouse_id = ?", *filter.WarehouseID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.ReorderRuleModel
	if err := applyPaging(query, filter.Filter, ReorderRuleSortFields, "created_at").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	rules := make([]inventory.ReorderRule, len(rows))
	for i := range rows {
		rules[i] = *rows[i].ToDomain()
	}
	return rules, total, nil
}

func (r *GormReorderRuleRepository) Save(ctx context.Context, rule *inventory.ReorderRule) error {
	model := models.ReorderRuleModelFromDomain(rule)
	return saveVersioned(ctx, r.db, model, rule, rule.TenantID, &model.Version)
}

var _ inventory.ReorderRuleRepository = (*GormReorderRuleRepository)(nil)
