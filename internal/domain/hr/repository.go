package hr

import (
	"context"

	"github.com/google/uuid"
	"github.com/stocker/backend/internal/domain/shared"
)

// PayslipFilter narrows a payslip listing.
type PayslipFilter struct {
	shared.Filter
	Status     PayslipStatus
	EmployeeID *uuid.UUID
}

// PayslipRepository persists Payslip aggregates.
type PayslipRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Payslip, error)
	FindAll(ctx context.Context, tenantID uuid.UUID, filter PayslipFilter) ([]Payslip, int64, error)
	ExistsByNumber(ctx context.Context, tenantID uuid.UUID, number string) (bool, error)
	Save(ctx context.Context, payslip *Payslip) error
}
