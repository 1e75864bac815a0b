package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stocker/backend/internal/domain/hr"
	"gorm.io/datatypes"
)

// PayslipModel is the persistence model for the Payslip aggregate. Lines
// are owned by the payslip and stored inline as jsonb.
type PayslipModel struct {
	TenantAggregateModel
	EmployeeID       uuid.UUID        `gorm:"type:uuid;not null;index"`
	PayslipNumber    string           `gorm:"type:varchar(50);not null"`
	PeriodStart      time.Time        `gorm:"type:date;not null"`
	PeriodEnd        time.Time        `gorm:"type:date;not null"`
	Currency         string           `gorm:"type:char(3);not null"`
	BaseSalary       decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	Lines            datatypes.JSON   `gorm:"type:jsonb;not null"`
	GrossPay         decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	TotalDeductions  decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	NetPay           decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	Status           hr.PayslipStatus `gorm:"type:varchar(20);not null;index"`
	FinalizedAt      *time.Time       `gorm:"type:timestamptz"`
	PaidAt           *time.Time       `gorm:"type:timestamptz"`
	PaymentReference string           `gorm:"type:varchar(100)"`
	CancelReason     string           `gorm:"type:text"`
}

func (PayslipModel) TableName() string {
	return "payslips"
}

func (m *PayslipModel) ToDomain() *hr.Payslip {
	p := &hr.Payslip{
		TenantAggregateRoot: m.TenantAggregateRoot(),
		EmployeeID:          m.EmployeeID,
		PayslipNumber:       m.PayslipNumber,
		PeriodStart:         m.PeriodStart,
		PeriodEnd:           m.PeriodEnd,
		Currency:            m.Currency,
		BaseSalary:          m.BaseSalary,
		GrossPay:            m.GrossPay,
		TotalDeductions:     m.TotalDeductions,
		NetPay:              m.NetPay,
		Status:              m.Status,
		FinalizedAt:         m.FinalizedAt,
		PaidAt:              m.PaidAt,
		PaymentReference:    m.PaymentReference,
		CancelReason:        m.CancelReason,
	}
	fromJSON(m.Lines, &p.Lines)
	return p
}

func PayslipModelFromDomain(p *hr.Payslip) *PayslipModel {
	m := &PayslipModel{
		EmployeeID:       p.EmployeeID,
		PayslipNumber:    p.PayslipNumber,
		PeriodStart:      p.PeriodStart,
		PeriodEnd:        p.PeriodEnd,
		Currency:         p.Currency,
		BaseSalary:       p.BaseSalary,
		Lines:            toJSON(p.Lines, "[]"),
		GrossPay:         p.GrossPay,
		TotalDeductions:  p.TotalDeductions,
		NetPay:           p.NetPay,
		Status:           p.Status,
		FinalizedAt:      p.FinalizedAt,
		PaidAt:           p.PaidAt,
		PaymentReference: p.PaymentReference,
		CancelReason:     p.CancelReason,
	}
	m.FromDomainTenantAggregateRoot(p.TenantAggregateRoot)
	return m
}
