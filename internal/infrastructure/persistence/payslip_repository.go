package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/stocker/backend/internal/domain/hr"
	"github.com/stocker/backend/internal/infrastructure/persistence/models"
	"github.com/stocker/backend/internal/infrastructure/persistence/tenant"
	"gorm.io/gorm"
)

// GormPayslipRepository implements hr.PayslipRepository.
type GormPayslipRepository struct {
	db *gorm.DB
}

func NewGormPayslipRepository(db *gorm.DB) *GormPayslipRepository {
	return &GormPayslipRepository{db: db}
}

func (r *GormPayslipRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*hr.Payslip, error) {
	var model models.PayslipModel
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(tenantID)).
		Where("id = ?", id).
		First(&model).Error
	if err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

func (r *GormPayslipRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter hr.PayslipFilter) ([]hr.Payslip, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.PayslipModel{}).
		Scopes(tenant.Scope(tenantID))
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.EmployeeID != nil {
		query = query.Where("employee_id = ?", *filter.EmployeeID)
	}
	if filter.Search != "" {
		query = query.Where("payslip_number ILIKE ?", "%"+filter.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.PayslipModel
	if err := applyPaging(query, filter.Filter, PayslipSortFields, "created_at").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	payslips := make([]hr.Payslip, len(rows))
	for i := range rows {
		payslips[i] = *rows[i].ToDomain()
	}
	return payslips, total, nil
}

func (r *GormPayslipRepository) ExistsByNumber(ctx context.Context, tenantID uuid.UUID, number string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PayslipModel{}).
		Scopes(tenant.Scope(tenantID)).
		Where("payslip_number = ?", number).
		Count(&count).Error
	return count > 0, err
}

func (r *GormPayslipRepository) Save(ctx context.Context, payslip *hr.Payslip) error {
	model := models.PayslipModelFromDomain(payslip)
	return saveVersioned(ctx, r.db, model, payslip, payslip.TenantID, &model.Version)
}

var _ hr.PayslipRepository = (*GormPayslipRepository)(nil)
