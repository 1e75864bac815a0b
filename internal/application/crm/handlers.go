// Package crmapp serves the deal commands and queries.
package crmapp

import (
	"context"
	"errors"

	"github.com/stocker/backend/internal/application/mediator"
	"github.com/stocker/backend/internal/domain/crm"
	"github.com/stocker/backend/internal/domain/shared"
	"github.com/stocker/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// Handlers serves the deal commands and queries.
type Handlers struct {
	deals  crm.DealRepository
	events shared.EventPublisher
	logger *zap.Logger
}

func NewHandlers(deals crm.DealRepository, events shared.EventPublisher, log *zap.Logger) *Handlers {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handlers{deals: deals, events: events, logger: log.Named("crm")}
}

// Register binds every deal request type on m.
func (h *Handlers) Register(m *mediator.Mediator) error {
	return errors.Join(
		mediator.Register(m, mediator.HandlerFunc[CreateDealCommand, DealDTO](h.CreateDeal)),
		mediator.Register(m, mediator.HandlerFunc[UpdateDealCommand, DealDTO](h.UpdateDeal)),
		mediator.Register(m, mediator.HandlerFunc[MoveDealStageCommand, DealDTO](h.MoveDealStage)),
		mediator.Register(m, mediator.HandlerFunc[WinDealCommand, DealDTO](h.WinDeal)),
		mediator.Register(m, mediator.HandlerFunc[LoseDealCommand, DealDTO](h.LoseDeal)),
		mediator.Register(m, mediator.HandlerFunc[ReopenDealCommand, DealDTO](h.ReopenDeal)),
		mediator.Register(m, mediator.HandlerFunc[DeleteDealCommand, struct{}](h.DeleteDeal)),
		mediator.Register(m, mediator.HandlerFunc[GetDealQuery, DealDTO](h.GetDeal)),
		mediator.Register(m, mediator.HandlerFunc[ListDealsQuery, shared.Paginated[DealDTO]](h.ListDeals)),
	)
}

func (h *Handlers) publish(ctx context.Context, events []shared.DomainEvent) {
	if h.events == nil || len(events) == 0 {
		return
	}
	if err := h.events.Publish(ctx, events...); err != nil {
		logger.L(ctx).Warn("failed to publish deal events", zap.Error(err), zap.Int("count", len(events)))
	}
}
