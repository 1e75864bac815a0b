// Package inventory holds stock replenishment aggregates.
package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stocker/backend/internal/domain/shared"
)

const AggregateTypeReorderRule = "ReorderRule"

// ReorderRuleStatus is the lifecycle state of a reorder rule.
type ReorderRuleStatus string

const (
	ReorderRuleStatusActive   ReorderRuleStatus = "ACTIVE"
	ReorderRuleStatusPaused   ReorderRuleStatus = "PAUSED"
	ReorderRuleStatusDisabled ReorderRuleStatus = "DISABLED"
)

// IsValid checks if the status is valid
func (s ReorderRuleStatus) IsValid() bool {
	switch s {
	case ReorderRuleStatusActive, ReorderRuleStatusPaused, ReorderRuleStatusDisabled:
		return true
	}
	return false
}

// ReorderLevels are the quantities that drive replenishment.
type ReorderLevels struct {
	ReorderPoint    decimal.Decimal
	MaxQuantity     decimal.Decimal
	ReorderQuantity decimal.Decimal
	LeadTimeDays    int
}

func (l ReorderLevels) validate() error {
	if l.ReorderPoint.IsNegative() {
		return shared.NewDomainError("INVALID_REORDER_POINT", "Reorder point cannot be negative")
	}
	if !l.MaxQuantity.GreaterThan(l.ReorderPoint) {
		return shared.NewDomainError("INVALID_MAX_QUANTITY", "Maximum quantity must be greater than the reorder point")
	}
	if l.ReorderQuantity.IsNegative() {
		return shared.NewDomainError("INVALID_REORDER_QUANTITY", "Reorder quantity cannot be negative")
	}
	if l.LeadTimeDays < 0 || l.LeadTimeDays > 365 {
		return shared.NewDomainError("INVALID_LEAD_TIME", "Lead time must be between 0 and 365 days")
	}
	return nil
}

// ReorderRule decides when and how much of a product to replenish.
type ReorderRule struct {
	shared.TenantAggregateRoot
	ProductID   uuid.UUID
	WarehouseID *uuid.UUID
	ReorderLevels
	Status          ReorderRuleStatus
	LastTriggeredAt *time.Time
	ExternalRef     string
}

// NewReorderRule creates an ACTIVE reorder rule.
func NewReorderRule(tenantID, productID uuid.UUID, warehouseID *uuid.UUID, levels ReorderLevels) (*ReorderRule, error) {
	if tenantID == uuid.Nil {
		return nil, shared.ErrInvalidTenant
	}
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product is required")
	}
	if err := levels.validate(); err != nil {
		return nil, err
	}
	return &ReorderRule{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		ProductID:           productID,
		WarehouseID:         warehouseID,
		ReorderLevels:       levels,
		Status:              ReorderRuleStatusActive,
	}, nil
}

// Update replaces the reorder levels.
func (r *ReorderRule) Update(levels ReorderLevels) error {
	if r.Status == ReorderRuleStatusDisabled {
		return shared.NewInvalidStateError("Cannot update a disabled reorder rule")
	}
	if err := levels.validate(); err != nil {
		return err
	}
	r.ReorderLevels = levels
	r.Touch()
	return nil
}

// Pause suspends an active rule.
func (r *ReorderRule) Pause() error {
	if r.Status != ReorderRuleStatusActive {
		return shared.NewInvalidStateError("Only active rules can be paused, rule is %s", r.Status)
	}
	r.Status = ReorderRuleStatusPaused
	r.Touch()
	return nil
}

// Activate resumes a paused rule.
func (r *ReorderRule) Activate() error {
	if r.Status != ReorderRuleStatusPaused {
		return shared.NewInvalidStateError("Only paused rules can be activated, rule is %s", r.Status)
	}
	r.Status = ReorderRuleStatusActive
	r.Touch()
	return nil
}

// Disable retires the rule permanently.
func (r *ReorderRule) Disable() error {
	if r.Status == ReorderRuleStatusDisabled {
		return shared.NewInvalidStateError("Reorder rule is already disabled")
	}
	r.Status = ReorderRuleStatusDisabled
	r.Touch()
	return nil
}

// ShouldReorder reports whether onHand has fallen to the reorder point.
func (r *ReorderRule) ShouldReorder(onHand decimal.Decimal) bool {
	return r.Status == ReorderRuleStatusActive && onHand.LessThanOrEqual(r.ReorderPoint)
}

// SuggestedQuantity returns how much to order to refill to MaxQuantity,
// never less than ReorderQuantity.
func (r *ReorderRule) SuggestedQuantity(onHand decimal.Decimal) decimal.Decimal {
	refill := r.MaxQuantity.Sub(onHand)
	if refill.LessThan(r.ReorderQuantity) {
		return r.ReorderQuantity
	}
	return refill
}

// ExpectedArrival is when an order placed at now should arrive.
func (r *ReorderRule) ExpectedArrival(now time.Time) time.Time {
	return now.AddDate(0, 0, r.LeadTimeDays)
}

// Trigger records a replenishment request for onHand and returns the
// suggested quantity.
func (r *ReorderRule) Trigger(onHand decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	if !r.ShouldReorder(onHand) {
		if r.Status != ReorderRuleStatusActive {
			return decimal.Zero, shared.NewInvalidStateError("Cannot trigger a %s reorder rule", r.Status)
		}
		return decimal.Zero, shared.NewDomainError("ABOVE_REORDER_POINT", "Stock on hand is above the reorder point")
	}
	qty := r.SuggestedQuantity(onHand)
	r.LastTriggeredAt = &now
	r.Touch()

	r.AddDomainEvent(NewReorderTriggeredEvent(r, onHand, qty, r.ExpectedArrival(now)))
	return qty, nil
}
