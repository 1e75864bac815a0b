// Package hr holds payroll aggregates.
package hr

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stocker/backend/internal/domain/shared"
)

const AggregateTypePayslip = "Payslip"

// PayslipStatus is the lifecycle state of a payslip.
type PayslipStatus string

const (
	PayslipStatusDraft     PayslipStatus = "DRAFT"
	PayslipStatusFinalized PayslipStatus = "FINALIZED"
	PayslipStatusPaid      PayslipStatus = "PAID"
	PayslipStatusCancelled PayslipStatus = "CANCELLED"
)

// IsValid checks if the status is valid
func (s PayslipStatus) IsValid() bool {
	switch s {
	case PayslipStatusDraft, PayslipStatusFinalized, PayslipStatusPaid, PayslipStatusCancelled:
		return true
	}
	return false
}

// LineKind separates earnings from deductions.
type LineKind string

const (
	LineKindEarning   LineKind = "EARNING"
	LineKindDeduction LineKind = "DEDUCTION"
)

// PayslipLine is one earning or deduction on a payslip.
type PayslipLine struct {
	ID          uuid.UUID       `json:"id"`
	Kind        LineKind        `json:"kind"`
	Code        string          `json:"code"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

// Payslip is an employee's pay statement for one period.
type Payslip struct {
	shared.TenantAggregateRoot
	EmployeeID       uuid.UUID
	PayslipNumber    string
	PeriodStart      time.Time
	PeriodEnd        time.Time
	Currency         string
	BaseSalary       decimal.Decimal
	Lines            []PayslipLine
	GrossPay         decimal.Decimal
	TotalDeductions  decimal.Decimal
	NetPay           decimal.Decimal
	Status           PayslipStatus
	FinalizedAt      *time.Time
	PaidAt           *time.Time
	PaymentReference string
	CancelReason     string
}

// NewPayslip creates a DRAFT payslip.
func NewPayslip(
	tenantID, employeeID uuid.UUID,
	number string,
	periodStart, periodEnd time.Time,
	baseSalary decimal.Decimal,
	currency string,
) (*Payslip, error) {
	if tenantID == uuid.Nil {
		return nil, shared.ErrInvalidTenant
	}
	if employeeID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_EMPLOYEE", "Employee is required")
	}
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, shared.NewDomainError("INVALID_NUMBER", "Payslip number cannot be empty")
	}
	if !periodEnd.After(periodStart) {
		return nil, shared.NewDomainError("INVALID_PERIOD", "Period end must be after period start")
	}
	if baseSalary.IsNegative() {
		return nil, shared.NewDomainError("INVALID_SALARY", "Base salary cannot be negative")
	}
	if currency == "" {
		currency = "TRY"
	}

	p := &Payslip{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		EmployeeID:          employeeID,
		PayslipNumber:       number,
		PeriodStart:         periodStart,
		PeriodEnd:           periodEnd,
		Currency:            strings.ToUpper(currency),
		BaseSalary:          baseSalary,
		Lines:               make([]PayslipLine, 0),
		Status:              PayslipStatusDraft,
	}
	p.recalculate()
	return p, nil
}

// AddLine adds an earning or deduction to a draft payslip.
func (p *Payslip) AddLine(kind LineKind, code, description string, amount decimal.Decimal) (*PayslipLine, error) {
	if p.Status != PayslipStatusDraft {
		return nil, shared.NewInvalidStateError("Cannot change lines of a %s payslip", p.Status)
	}
	if kind != LineKindEarning && kind != LineKindDeduction {
		return nil, shared.NewDomainError("INVALID_LINE_KIND", fmt.Sprintf("Invalid line kind: %s", kind))
	}
	if strings.TrimSpace(code) == "" {
		return nil, shared.NewDomainError("INVALID_LINE_CODE", "Line code cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Line amount must be positive")
	}
	line := PayslipLine{
		ID:          uuid.New(),
		Kind:        kind,
		Code:        strings.ToUpper(strings.TrimSpace(code)),
		Description: description,
		Amount:      amount,
	}
	p.Lines = append(p.Lines, line)
	p.recalculate()
	p.Touch()
	return &p.Lines[len(p.Lines)-1], nil
}

// RemoveLine removes a line from a draft payslip.
func (p *Payslip) RemoveLine(lineID uuid.UUID) error {
	if p.Status != PayslipStatusDraft {
		return shared.NewInvalidStateError("Cannot change lines of a %s payslip", p.Status)
	}
	for i, l := range p.Lines {
		if l.ID == lineID {
			p.Lines = append(p.Lines[:i], p.Lines[i+1:]...)
			p.recalculate()
			p.Touch()
			return nil
		}
	}
	return shared.NewDomainError(shared.CodeNotFound, "Payslip line not found")
}

func (p *Payslip) recalculate() {
	gross := p.BaseSalary
	deductions := decimal.Zero
	for _, l := range p.Lines {
		if l.Kind == LineKindEarning {
			gross = gross.Add(l.Amount)
		} else {
			deductions = deductions.Add(l.Amount)
		}
	}
	p.GrossPay = gross.Round(2)
	p.TotalDeductions = deductions.Round(2)
	p.NetPay = gross.Sub(deductions).Round(2)
}

// Finalize locks the payslip for payment.
func (p *Payslip) Finalize() error {
	switch p.Status {
	case PayslipStatusPaid:
		return shared.NewInvalidStateError("Cannot finalize a paid payslip")
	case PayslipStatusCancelled:
		return shared.NewInvalidStateError("Cannot finalize a cancelled payslip")
	case PayslipStatusFinalized:
		return shared.NewInvalidStateError("Payslip is already finalized")
	}
	p.recalculate()
	if p.NetPay.IsNegative() {
		return shared.NewDomainError("NEGATIVE_NET_PAY", "Deductions exceed gross pay")
	}
	now := time.Now()
	p.Status = PayslipStatusFinalized
	p.FinalizedAt = &now
	p.Touch()

	p.AddDomainEvent(NewPayslipFinalizedEvent(p))
	return nil
}

// RevertToDraft reopens a finalized payslip for correction.
func (p *Payslip) RevertToDraft() error {
	if p.Status != PayslipStatusFinalized {
		return shared.NewInvalidStateError("Only finalized payslips can be reverted, payslip is %s", p.Status)
	}
	p.Status = PayslipStatusDraft
	p.FinalizedAt = nil
	p.Touch()
	return nil
}

// MarkPaid records the payment of a finalized payslip.
func (p *Payslip) MarkPaid(reference string) error {
	if p.Status != PayslipStatusFinalized {
		return shared.NewInvalidStateError("Only finalized payslips can be paid, payslip is %s", p.Status)
	}
	now := time.Now()
	p.Status = PayslipStatusPaid
	p.PaidAt = &now
	p.PaymentReference = strings.TrimSpace(reference)
	p.Touch()

	p.AddDomainEvent(NewPayslipPaidEvent(p))
	return nil
}

// Cancel voids a payslip that has not been paid.
func (p *Payslip) Cancel(reason string) error {
	switch p.Status {
	case PayslipStatusPaid:
		return shared.NewInvalidStateError("Cannot cancel a paid payslip")
	case PayslipStatusCancelled:
		return shared.NewInvalidStateError("Payslip is already cancelled")
	}
	p.Status = PayslipStatusCancelled
	p.CancelReason = reason
	p.Touch()
	return nil
}
