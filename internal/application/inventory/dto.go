package inventoryapp

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stocker/backend/internal/domain/inventory"
)

// ReorderRuleDTO is the API view of a reorder rule.
type ReorderRuleDTO struct {
	ID              uuid.UUID       `json:"id"`
	TenantID        uuid.UUID       `json:"tenant_id"`
	ProductID       uuid.UUID       `json:"product_id"`
	WarehouseID     *uuid.UUID      `json:"warehouse_id,omitempty"`
	ReorderPoint    decimal.Decimal `json:"reorder_point"`
	MaxQuantity     decimal.Decimal `json:"max_quantity"`
	ReorderQuantity decimal.Decimal `json:"reorder_quantity"`
	LeadTimeDays    int             `json:"lead_time_days"`
	Status          string          `json:"status"`
	LastTriggeredAt *time.Time      `json:"last_triggered_at,omitempty"`
	ExternalRef     string          `json:"external_ref,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Version         int             `json:"version"`
}

func ToReorderRuleDTO(r *inventory.ReorderRule) ReorderRuleDTO {
	return ReorderRuleDTO{
		ID:              r.ID,
		TenantID:        r.TenantID,
		ProductID:       r.ProductID,
		WarehouseID:     r.WarehouseID,
		ReorderPoint:    r.ReorderPoint,
		MaxQuantity:     r.MaxQuantity,
		ReorderQuantity: r.ReorderQuantity,
		LeadTimeDays:    r.LeadTimeDays,
		Status:          string(r.Status),
		LastTriggeredAt: r.LastTriggeredAt,
		ExternalRef:     r.ExternalRef,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
		Version:         r.Version,
	}
}

// ReorderSuggestionDTO answers whether a product needs replenishing.
type ReorderSuggestionDTO struct {
	RuleID            uuid.UUID       `json:"rule_id"`
	ProductID         uuid.UUID       `json:"product_id"`
	WarehouseID       *uuid.UUID      `json:"warehouse_id,omitempty"`
	OnHand            decimal.Decimal `json:"on_hand"`
	ShouldReorder     bool            `json:"should_reorder"`
	SuggestedQuantity decimal.Decimal `json:"suggested_quantity"`
	ExpectedArrival   *time.Time      `json:"expected_arrival,omitempty"`
	Triggered         bool            `json:"triggered"`
}

func suggestionFor(r *inventory.ReorderRule, onHand decimal.Decimal, now time.Time) ReorderSuggestionDTO {
	s := ReorderSuggestionDTO{
		RuleID:            r.ID,
		ProductID:         r.ProductID,
		WarehouseID:       r.WarehouseID,
		OnHand:            onHand,
		ShouldReorder:     r.ShouldReorder(onHand),
		SuggestedQuantity: decimal.Zero,
	}
	if s.ShouldReorder {
		s.SuggestedQuantity = r.SuggestedQuantity(onHand)
		arrival := r.ExpectedArrival(now)
		s.ExpectedArrival = &arrival
	}
	return s
}
