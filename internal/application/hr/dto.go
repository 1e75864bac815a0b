package hrapp

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stocker/backend/internal/domain/hr"
)

type PayslipLineDTO struct {
	ID          uuid.UUID       `json:"id"`
	Kind        string          `json:"kind"`
	Code        string          `json:"code"`
	Description string          `json:"description,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
}

// PayslipDTO is the API view of a payslip.
type PayslipDTO struct {
	ID               uuid.UUID        `json:"id"`
	TenantID         uuid.UUID        `json:"tenant_id"`
	EmployeeID       uuid.UUID        `json:"employee_id"`
	PayslipNumber    string           `json:"payslip_number"`
	PeriodStart      time.Time        `json:"period_start"`
	PeriodEnd        time.Time        `json:"period_end"`
	Currency         string           `json:"currency"`
	BaseSalary       decimal.Decimal  `json:"base_salary"`
	Lines            []PayslipLineDTO `json:"lines"`
	GrossPay         decimal.Decimal  `json:"gross_pay"`
	TotalDeductions  decimal.Decimal  `json:"total_deductions"`
	NetPay           decimal.Decimal  `json:"net_pay"`
	Status           string           `json:"status"`
	FinalizedAt      *time.Time       `json:"finalized_at,omitempty"`
	PaidAt           *time.Time       `json:"paid_at,omitempty"`
	PaymentReference string           `json:"payment_reference,omitempty"`
	CancelReason     string           `json:"cancel_reason,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
	Version          int              `json:"version"`
}

func ToPayslipDTO(p *hr.Payslip) PayslipDTO {
	lines := make([]PayslipLineDTO, len(p.Lines))
	for i, l := range p.Lines {
		lines[i] = PayslipLineDTO{
			ID:          l.ID,
			Kind:        string(l.Kind),
			Code:        l.Code,
			Description: l.Description,
			Amount:      l.Amount,
		}
	}
	return PayslipDTO{
		ID:               p.ID,
		TenantID:         p.TenantID,
		EmployeeID:       p.EmployeeID,
		PayslipNumber:    p.PayslipNumber,
		PeriodStart:      p.PeriodStart,
		PeriodEnd:        p.PeriodEnd,
		Currency:         p.Currency,
		BaseSalary:       p.BaseSalary,
		Lines:            lines,
		GrossPay:         p.GrossPay,
		TotalDeductions:  p.TotalDeductions,
		NetPay:           p.NetPay,
		Status:           string(p.Status),
		FinalizedAt:      p.FinalizedAt,
		PaidAt:           p.PaidAt,
		PaymentReference: p.PaymentReference,
		CancelReason:     p.CancelReason,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
		Version:          p.Version,
	}
}
