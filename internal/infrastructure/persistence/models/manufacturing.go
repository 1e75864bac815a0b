package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/stocker/backend/internal/domain/manufacturing"
	"gorm.io/datatypes"
)

// RoutingModel is the persistence model for the Routing aggregate.
type RoutingModel struct {
	TenantAggregateModel
	Code        string                      `gorm:"type:varchar(50);not null"`
	Revision    int                         `gorm:"not null"`
	Name        string                      `gorm:"type:varchar(200);not null"`
	ProductID   uuid.UUID                   `gorm:"type:uuid;not null;index"`
	Operations  datatypes.JSON              `gorm:"type:jsonb;not null"`
	Status      manufacturing.RoutingStatus `gorm:"type:varchar(20);not null;index"`
	ApprovedBy  *uuid.UUID                  `gorm:"type:uuid"`
	ApprovedAt  *time.Time                  `gorm:"type:timestamptz"`
	ActivatedAt *time.Time                  `gorm:"type:timestamptz"`
}

func (RoutingModel) TableName() string {
	return "routings"
}

func (m *RoutingModel) ToDomain() *manufacturing.Routing {
	r := &manufacturing.Routing{
		TenantAggregateRoot: m.TenantAggregateRoot(),
		Code:                m.Code,
		Name:                m.Name,
		ProductID:           m.ProductID,
		Revision:            m.Revision,
		Status:              m.Status,
		ApprovedBy:          m.ApprovedBy,
		ApprovedAt:          m.ApprovedAt,
		ActivatedAt:         m.ActivatedAt,
	}
	fromJSON(m.Operations, &r.Operations)
	return r
}

func RoutingModelFromDomain(r *manufacturing.Routing) *RoutingModel {
	m := &RoutingModel{
		Code:        r.Code,
		Revision:    r.Revision,
		Name:        r.Name,
		ProductID:   r.ProductID,
		Operations:  toJSON(r.Operations, "[]"),
		Status:      r.Status,
		ApprovedBy:  r.ApprovedBy,
		ApprovedAt:  r.ApprovedAt,
		ActivatedAt: r.ActivatedAt,
	}
	m.FromDomainTenantAggregateRoot(r.TenantAggregateRoot)
	return m
}
