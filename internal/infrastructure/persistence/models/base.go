package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/stocker/backend/internal/domain/shared"
	"gorm.io/datatypes"
)

// BaseModel provides common persistence fields for all models.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// ToDomain converts BaseModel to domain BaseEntity
func (m *BaseModel) ToDomain() shared.BaseEntity {
	return shared.BaseEntity{
		ID:        m.ID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func (m *BaseModel) FromDomainBaseEntity(e shared.BaseEntity) {
	m.ID = e.ID
	m.CreatedAt = e.CreatedAt
	m.UpdatedAt = e.UpdatedAt
}

// TenantModel is a tenant-owned row that is not an aggregate root.
type TenantModel struct {
	BaseModel
	TenantID uuid.UUID `gorm:"type:uuid;not null;index"`
}

// TenantAggregateModel adds the optimistic-lock version and creator to a
// tenant-owned row.
type TenantAggregateModel struct {
	TenantModel
	Version   int        `gorm:"not null"`
	CreatedBy *uuid.UUID `gorm:"type:uuid"`
}

// FromDomainTenantAggregateRoot populates TenantAggregateModel from the domain root.
func (m *TenantAggregateModel) FromDomainTenantAggregateRoot(t shared.TenantAggregateRoot) {
	m.FromDomainBaseEntity(t.BaseEntity)
	m.TenantID = t.TenantID
	m.Version = t.Version
	m.CreatedBy = t.CreatedBy
}

// TenantAggregateRoot rebuilds the domain root fields.
func (m *TenantAggregateModel) TenantAggregateRoot() shared.TenantAggregateRoot {
	return shared.TenantAggregateRoot{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: m.BaseModel.ToDomain(),
			Version:    m.Version,
		},
		TenantID:  m.TenantID,
		CreatedBy: m.CreatedBy,
	}
}

// toJSON marshals v for a jsonb column. A nil slice or map becomes the
// matching empty literal so the column is never SQL NULL.
func toJSON(v any, empty string) datatypes.JSON {
	b, err := json.Marshal(v)
	if err != nil || string(b) == "null" {
		return datatypes.JSON(empty)
	}
	return datatypes.JSON(b)
}

// fromJSON decodes a jsonb column, leaving dst untouched when empty.
func fromJSON(raw datatypes.JSON, dst any) {
	if len(raw) == 0 {
		return
	}
	_ = json.Unmarshal(raw, dst)
}
