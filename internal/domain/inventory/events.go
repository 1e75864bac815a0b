package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stocker/backend/internal/domain/shared"
)

const EventTypeReorderTriggered = "ReorderTriggered"

// ReorderTriggeredEvent asks purchasing to replenish a product.
type ReorderTriggeredEvent struct {
	shared.BaseDomainEvent
	ProductID         uuid.UUID       `json:"product_id"`
	WarehouseID       *uuid.UUID      `json:"warehouse_id,omitempty"`
	OnHand            decimal.Decimal `json:"on_hand"`
	SuggestedQuantity decimal.Decimal `json:"suggested_quantity"`
	ExpectedArrival   time.Time       `json:"expected_arrival"`
}

func NewReorderTriggeredEvent(r *ReorderRule, onHand, qty decimal.Decimal, arrival time.Time) *ReorderTriggeredEvent {
	return &ReorderTriggeredEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeReorderTriggered, AggregateTypeReorderRule, r.ID, r.TenantID),
		ProductID:         r.ProductID,
		WarehouseID:       r.WarehouseID,
		OnHand:            onHand,
		SuggestedQuantity: qty,
		ExpectedArrival:   arrival,
	}
}
