package hr

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stocker/backend/internal/domain/shared"
)

const (
	EventTypePayslipFinalized = "PayslipFinalized"
	EventTypePayslipPaid      = "PayslipPaid"
)

type PayslipFinalizedEvent struct {
	shared.BaseDomainEvent
	EmployeeID uuid.UUID       `json:"employee_id"`
	NetPay     decimal.Decimal `json:"net_pay"`
}

func NewPayslipFinalizedEvent(p *Payslip) *PayslipFinalizedEvent {
	return &PayslipFinalizedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePayslipFinalized, AggregateTypePayslip, p.ID, p.TenantID),
		EmployeeID:      p.EmployeeID,
		NetPay:          p.NetPay,
	}
}

type PayslipPaidEvent struct {
	shared.BaseDomainEvent
	EmployeeID       uuid.UUID       `json:"employee_id"`
	NetPay           decimal.Decimal `json:"net_pay"`
	PaymentReference string          `json:"payment_reference"`
}

func NewPayslipPaidEvent(p *Payslip) *PayslipPaidEvent {
	return &PayslipPaidEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypePayslipPaid, AggregateTypePayslip, p.ID, p.TenantID),
		EmployeeID:       p.EmployeeID,
		NetPay:           p.NetPay,
		PaymentReference: p.PaymentReference,
	}
}
