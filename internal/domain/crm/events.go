package crm

import (
	"github.com/shopspring/decimal"
	"github.com/stocker/backend/internal/domain/shared"
)

const (
	EventTypeDealStageChanged = "DealStageChanged"
	EventTypeDealWon          = "DealWon"
	EventTypeDealLost         = "DealLost"
)

type DealStageChangedEvent struct {
	shared.BaseDomainEvent
	FromStage DealStage `json:"from_stage"`
	ToStage   DealStage `json:"to_stage"`
}

func NewDealStageChangedEvent(d *Deal, from DealStage) *DealStageChangedEvent {
	return &DealStageChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDealStageChanged, AggregateTypeDeal, d.ID, d.TenantID),
		FromStage:       from,
		ToStage:         d.Stage,
	}
}

type DealWonEvent struct {
	shared.BaseDomainEvent
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

func NewDealWonEvent(d *Deal) *DealWonEvent {
	return &DealWonEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDealWon, AggregateTypeDeal, d.ID, d.TenantID),
		Amount:          d.Amount,
		Currency:        d.Currency,
	}
}

type DealLostEvent struct {
	shared.BaseDomainEvent
	Reason string `json:"reason"`
}

func NewDealLostEvent(d *Deal) *DealLostEvent {
	return &DealLostEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDealLost, AggregateTypeDeal, d.ID, d.TenantID),
		Reason:          d.LostReason,
	}
}
