package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stocker/backend/internal/domain/inventory"
)

// ReorderRuleModel is the persistence model for the ReorderRule aggregate.
type ReorderRuleModel struct {
	TenantAggregateModel
	ProductID       uuid.UUID                   `gorm:"type:uuid;not null;index"`
	WarehouseID     *uuid.UUID                  `gorm:"type:uuid;index"`
	ReorderPoint    decimal.Decimal             `gorm:"type:decimal(18,4);not null"`
	MaxQuantity     decimal.Decimal             `gorm:"type:decimal(18,4);not null"`
	ReorderQuantity decimal.Decimal             `gorm:"type:decimal(18,4);not null"`
	LeadTimeDays    int                         `gorm:"not null"`
	Status          inventory.ReorderRuleStatus `gorm:"type:varchar(20);not null;index"`
	LastTriggeredAt *time.Time                  `gorm:"type:timestamptz"`
	ExternalRef     string                      `gorm:"type:varchar(100);index"`
}

func (ReorderRuleModel) TableName() string {
	return "reorder_rules"
}

func (m *ReorderRuleModel) ToDomain() *inventory.ReorderRule {
	return &inventory.ReorderRule{
		TenantAggregateRoot: m.TenantAggregateRoot(),
		ProductID:           m.ProductID,
		WarehouseID:         m.WarehouseID,
		ReorderLevels: inventory.ReorderLevels{
			ReorderPoint:    m.ReorderPoint,
			MaxQuantity:     m.MaxQuantity,
			ReorderQuantity: m.ReorderQuantity,
			LeadTimeDays:    m.LeadTimeDays,
		},
		Status:          m.Status,
		LastTriggeredAt: m.LastTriggeredAt,
		ExternalRef:     m.ExternalRef,
	}
}

func ReorderRuleModelFromDomain(r *inventory.ReorderRule) *ReorderRuleModel {
	m := &ReorderRuleModel{
		ProductID:       r.ProductID,
		WarehouseID:     r.WarehouseID,
		ReorderPoint:    r.ReorderPoint,
		MaxQuantity:     r.MaxQuantity,
		ReorderQuantity: r.ReorderQuantity,
		LeadTimeDays:    r.LeadTimeDays,
		Status:          r.Status,
		LastTriggeredAt: r.LastTriggeredAt,
		ExternalRef:     r.ExternalRef,
	}
	m.FromDomainTenantAggregateRoot(r.TenantAggregateRoot)
	return m
}
