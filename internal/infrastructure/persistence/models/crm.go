package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stocker/backend/internal/domain/crm"
)

// DealModel is the persistence model for the Deal aggregate.
type DealModel struct {
	TenantAggregateModel
	Title             string          `gorm:"type:varchar(200);not null"`
	CustomerID        *uuid.UUID      `gorm:"type:uuid;index"`
	OwnerID           *uuid.UUID      `gorm:"type:uuid;index"`
	Stage             crm.DealStage   `gorm:"type:varchar(20);not null"`
	Amount            decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Currency          string          `gorm:"type:char(3);not null"`
	Probability       int             `gorm:"not null"`
	ExpectedCloseDate *time.Time      `gorm:"type:date"`
	Status            crm.DealStatus  `gorm:"type:varchar(10);not null;index"`
	ClosedAt          *time.Time      `gorm:"type:timestamptz"`
	LostReason        string          `gorm:"type:text"`
	ExternalRef       string          `gorm:"type:varchar(100);index"`
}

func (DealModel) TableName() string {
	return "deals"
}

func (m *DealModel) ToDomain() *crm.Deal {
	return &crm.Deal{
		TenantAggregateRoot: m.TenantAggregateRoot(),
		Title:               m.Title,
		CustomerID:          m.CustomerID,
		OwnerID:             m.OwnerID,
		Stage:               m.Stage,
		Amount:              m.Amount,
		Currency:            m.Currency,
		Probability:         m.Probability,
		ExpectedCloseDate:   m.ExpectedCloseDate,
		Status:              m.Status,
		ClosedAt:            m.ClosedAt,
		LostReason:          m.LostReason,
		ExternalRef:         m.ExternalRef,
	}
}

func DealModelFromDomain(d *crm.Deal) *DealModel {
	m := &DealModel{
		Title:             d.Title,
		CustomerID:        d.CustomerID,
		OwnerID:           d.OwnerID,
		Stage:             d.Stage,
		Amount:            d.Amount,
		Currency:          d.Currency,
		Probability:       d.Probability,
		ExpectedCloseDate: d.ExpectedCloseDate,
		Status:            d.Status,
		ClosedAt:          d.ClosedAt,
		LostReason:        d.LostReason,
		ExternalRef:       d.ExternalRef,
	}
	m.FromDomainTenantAggregateRoot(d.TenantAggregateRoot)
	return m
}
