package manufacturingapp

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stocker/backend/internal/domain/manufacturing"
)

type RoutingOperationDTO struct {
	Sequence     int             `json:"sequence"`
	WorkCenterID uuid.UUID       `json:"work_center_id"`
	Name         string          `json:"name"`
	SetupMinutes decimal.Decimal `json:"setup_minutes"`
	RunMinutes   decimal.Decimal `json:"run_minutes"`
	Description  string          `json:"description,omitempty"`
}

// RoutingDTO is the API view of a routing.
type RoutingDTO struct {
	ID          uuid.UUID             `json:"id"`
	TenantID    uuid.UUID             `json:"tenant_id"`
	Code        string                `json:"code"`
	Name        string                `json:"name"`
	ProductID   uuid.UUID             `json:"product_id"`
	Revision    int                   `json:"revision"`
	Operations  []RoutingOperationDTO `json:"operations"`
	Status      string                `json:"status"`
	ApprovedBy  *uuid.UUID            `json:"approved_by,omitempty"`
	ApprovedAt  *time.Time            `json:"approved_at,omitempty"`
	ActivatedAt *time.Time            `json:"activated_at,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
	Version     int                   `json:"version"`
}

func ToRoutingDTO(r *manufacturing.Routing) RoutingDTO {
	ops := make([]RoutingOperationDTO, len(r.Operations))
	for i, op := range r.Operations {
		ops[i] = RoutingOperationDTO(op)
	}
	return RoutingDTO{
		ID:          r.ID,
		TenantID:    r.TenantID,
		Code:        r.Code,
		Name:        r.Name,
		ProductID:   r.ProductID,
		Revision:    r.Revision,
		Operations:  ops,
		Status:      string(r.Status),
		ApprovedBy:  r.ApprovedBy,
		ApprovedAt:  r.ApprovedAt,
		ActivatedAt: r.ActivatedAt,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		Version:     r.Version,
	}
}

// LeadTimeDTO is the production time for a quantity on a routing.
type LeadTimeDTO struct {
	RoutingID    uuid.UUID       `json:"routing_id"`
	Quantity     decimal.Decimal `json:"quantity"`
	TotalMinutes decimal.Decimal `json:"total_minutes"`
	Duration     string          `json:"duration"`
}
