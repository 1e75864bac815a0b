package hrapp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stocker/backend/internal/domain/hr"
	"github.com/stocker/backend/internal/domain/shared"
	"github.com/stocker/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// CreatePayslipCommand opens a DRAFT payslip for one pay period.
type CreatePayslipCommand struct {
	TenantID      uuid.UUID       `json:"-"`
	UserID        *uuid.UUID      `json:"-"`
	EmployeeID    uuid.UUID       `json:"employee_id" validate:"required"`
	PayslipNumber string          `json:"payslip_number" validate:"required,max=50"`
	PeriodStart   time.Time       `json:"period_start" validate:"required"`
	PeriodEnd     time.Time       `json:"period_end" validate:"required"`
	BaseSalary    decimal.Decimal `json:"base_salary"`
	Currency      string          `json:"currency" validate:"omitempty,len=3"`
}

func (c CreatePayslipCommand) GetTenantID() uuid.UUID { return c.TenantID }

type AddPayslipLineCommand struct {
	TenantID    uuid.UUID       `json:"-"`
	PayslipID   uuid.UUID       `json:"-" validate:"required"`
	Kind        string          `json:"kind" validate:"required,oneof=EARNING DEDUCTION"`
	Code        string          `json:"code" validate:"required,max=30"`
	Description string          `json:"description" validate:"max=200"`
	Amount      decimal.Decimal `json:"amount"`
}

func (c AddPayslipLineCommand) GetTenantID() uuid.UUID { return c.TenantID }

type RemovePayslipLineCommand struct {
	TenantID  uuid.UUID `json:"-"`
	PayslipID uuid.UUID `json:"-" validate:"required"`
	LineID    uuid.UUID `json:"-" validate:"required"`
}

func (c RemovePayslipLineCommand) GetTenantID() uuid.UUID { return c.TenantID }

type FinalizePayslipCommand struct {
	TenantID  uuid.UUID `json:"-"`
	PayslipID uuid.UUID `json:"-" validate:"required"`
}

func (c FinalizePayslipCommand) GetTenantID() uuid.UUID { return c.TenantID }

type RevertPayslipCommand struct {
	TenantID  uuid.UUID `json:"-"`
	PayslipID uuid.UUID `json:"-" validate:"required"`
}

func (c RevertPayslipCommand) GetTenantID() uuid.UUID { return c.TenantID }

type MarkPayslipPaidCommand struct {
	TenantID  uuid.UUID `json:"-"`
	PayslipID uuid.UUID `json:"-" validate:"required"`
	Reference string    `json:"payment_reference" validate:"max=100"`
}

func (c MarkPayslipPaidCommand) GetTenantID() uuid.UUID { return c.TenantID }

type CancelPayslipCommand struct {
	TenantID  uuid.UUID `json:"-"`
	PayslipID uuid.UUID `json:"-" validate:"required"`
	Reason    string    `json:"reason" validate:"max=500"`
}

func (c CancelPayslipCommand) GetTenantID() uuid.UUID { return c.TenantID }

func (h *Handlers) CreatePayslip(ctx context.Context, cmd CreatePayslipCommand) (PayslipDTO, error) {
	number := strings.TrimSpace(cmd.PayslipNumber)
	exists, err := h.payslips.ExistsByNumber(ctx, cmd.TenantID, number)
	if err != nil {
		return PayslipDTO{}, err
	}
	if exists {
		return PayslipDTO{}, shared.NewDomainErrorWithCause(shared.CodeAlreadyExists,
			fmt.Sprintf("Payslip %s already exists", number), shared.ErrAlreadyExists)
	}

	p, err := hr.NewPayslip(cmd.TenantID, cmd.EmployeeID, number, cmd.PeriodStart, cmd.PeriodEnd, cmd.BaseSalary, cmd.Currency)
	if err != nil {
		return PayslipDTO{}, err
	}
	if cmd.UserID != nil {
		p.SetCreatedBy(*cmd.UserID)
	}
	if err := h.payslips.Save(ctx, p); err != nil {
		return PayslipDTO{}, err
	}
	logger.L(ctx).Info("payslip created",
		zap.String("payslip_id", p.ID.String()),
		zap.String("payslip_number", p.PayslipNumber),
	)
	return ToPayslipDTO(p), nil
}

func (h *Handlers) AddPayslipLine(ctx context.Context, cmd AddPayslipLineCommand) (PayslipDTO, error) {
	return h.mutate(ctx, cmd.TenantID, cmd.PayslipID, func(p *hr.Payslip) error {
		_, err := p.AddLine(hr.LineKind(strings.ToUpper(cmd.Kind)), cmd.Code, cmd.Description, cmd.Amount)
		return err
	})
}

func (h *Handlers) RemovePayslipLine(ctx context.Context, cmd RemovePayslipLineCommand) (PayslipDTO, error) {
	return h.mutate(ctx, cmd.TenantID, cmd.PayslipID, func(p *hr.Payslip) error {
		return p.RemoveLine(cmd.LineID)
	})
}

func (h *Handlers) FinalizePayslip(ctx context.Context, cmd FinalizePayslipCommand) (PayslipDTO, error) {
	return h.mutate(ctx, cmd.TenantID, cmd.PayslipID, (*hr.Payslip).Finalize)
}

func (h *Handlers) RevertPayslip(ctx context.Context, cmd RevertPayslipCommand) (PayslipDTO, error) {
	return h.mutate(ctx, cmd.TenantID, cmd.PayslipID, (*hr.Payslip).RevertToDraft)
}

func (h *Handlers) MarkPayslipPaid(ctx context.Context, cmd MarkPayslipPaidCommand) (PayslipDTO, error) {
	return h.mutate(ctx, cmd.TenantID, cmd.PayslipID, func(p *hr.Payslip) error {
		return p.MarkPaid(cmd.Reference)
	})
}

func (h *Handlers) CancelPayslip(ctx context.Context, cmd CancelPayslipCommand) (PayslipDTO, error) {
	return h.mutate(ctx, cmd.TenantID, cmd.PayslipID, func(p *hr.Payslip) error {
		return p.Cancel(cmd.Reason)
	})
}

func (h *Handlers) mutate(ctx context.Context, tenantID, id uuid.UUID, fn func(*hr.Payslip) error) (PayslipDTO, error) {
	p, err := h.payslips.FindByID(ctx, tenantID, id)
	if err != nil {
		return PayslipDTO{}, err
	}
	if err := fn(p); err != nil {
		return PayslipDTO{}, err
	}
	if err := h.payslips.Save(ctx, p); err != nil {
		return PayslipDTO{}, err
	}
	h.publish(ctx, p.PullDomainEvents())
	return ToPayslipDTO(p), nil
}
