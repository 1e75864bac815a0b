package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/stocker/backend/internal/domain/shared"
)

// ReorderRuleFilter narrows a reorder rule listing.
type ReorderRuleFilter struct {
	shared.Filter
	Status      ReorderRuleStatus
	ProductID   *uuid.UUID
	WarehouseID *uuid.UUID
}

// ReorderRuleRepository persists ReorderRule aggregates.
type ReorderRuleRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*ReorderRule, error)
	// FindByProduct returns the rule for a product and warehouse pair.
	FindByProduct(ctx context.Context, tenantID, productID uuid.UUID, warehouseID *uuid.UUID) (*ReorderRule, error)
	FindAll(ctx context.Context, tenantID uuid.UUID, filter ReorderRuleFilter) ([]ReorderRule, int64, error)
	Save(ctx context.Context, rule *ReorderRule) error
}
