package hrapp

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/stocker/backend/internal/domain/hr"
	"github.com/stocker/backend/internal/domain/shared"
)

type GetPayslipQuery struct {
	TenantID  uuid.UUID `json:"-"`
	PayslipID uuid.UUID `json:"-" validate:"required"`
}

func (q GetPayslipQuery) GetTenantID() uuid.UUID { return q.TenantID }

type ListPayslipsQuery struct {
	TenantID   uuid.UUID  `json:"-"`
	Page       int        `form:"page" validate:"gte=0"`
	PageSize   int        `form:"page_size" validate:"gte=0,lte=200"`
	OrderBy    string     `form:"order_by"`
	OrderDir   string     `form:"order_dir" validate:"omitempty,oneof=asc desc"`
	Search     string     `form:"search"`
	Status     string     `form:"status" validate:"omitempty,oneof=DRAFT FINALIZED PAID CANCELLED"`
	EmployeeID *uuid.UUID `form:"-"`
}

func (q ListPayslipsQuery) GetTenantID() uuid.UUID { return q.TenantID }

func (h *Handlers) GetPayslip(ctx context.Context, q GetPayslipQuery) (PayslipDTO, error) {
	p, err := h.payslips.FindByID(ctx, q.TenantID, q.PayslipID)
	if err != nil {
		return PayslipDTO{}, err
	}
	return ToPayslipDTO(p), nil
}

func (h *Handlers) ListPayslips(ctx context.Context, q ListPayslipsQuery) (shared.Paginated[PayslipDTO], error) {
	filter := hr.PayslipFilter{
		Filter: shared.Filter{
			Page:     q.Page,
			PageSize: q.PageSize,
			OrderBy:  q.OrderBy,
			OrderDir: strings.ToLower(q.OrderDir),
			Search:   strings.TrimSpace(q.Search),
		}.Normalize(),
		Status:     hr.PayslipStatus(strings.ToUpper(q.Status)),
		EmployeeID: q.EmployeeID,
	}
	payslips, total, err := h.payslips.FindAll(ctx, q.TenantID, filter)
	if err != nil {
		return shared.Paginated[PayslipDTO]{}, err
	}
	items := make([]PayslipDTO, len(payslips))
	for i := range payslips {
		items[i] = ToPayslipDTO(&payslips[i])
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}
