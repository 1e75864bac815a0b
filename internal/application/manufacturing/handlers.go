// Package manufacturingapp serves routing commands and queries.
package manufacturingapp

import (
	"context"
	"errors"

	"github.com/stocker/backend/internal/application/mediator"
	"github.com/stocker/backend/internal/domain/manufacturing"
	"github.com/stocker/backend/internal/domain/shared"
	"github.com/stocker/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

type Handlers struct {
	routings manufacturing.RoutingRepository
	events   shared.EventPublisher
	logger   *zap.Logger
}

func NewHandlers(routings manufacturing.RoutingRepository, events shared.EventPublisher, log *zap.Logger) *Handlers {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handlers{routings: routings, events: events, logger: log.Named("manufacturing")}
}

func (h *Handlers) Register(m *mediator.Mediator) error {
	return errors.Join(
		mediator.Register(m, mediator.HandlerFunc[CreateRoutingCommand, RoutingDTO](h.CreateRouting)),
		mediator.Register(m, mediator.HandlerFunc[AddRoutingOperationCommand, RoutingDTO](h.AddRoutingOperation)),
		mediator.Register(m, mediator.HandlerFunc[RemoveRoutingOperationCommand, RoutingDTO](h.RemoveRoutingOperation)),
		mediator.Register(m, mediator.HandlerFunc[ApproveRoutingCommand, RoutingDTO](h.ApproveRouting)),
		mediator.Register(m, mediator.HandlerFunc[ActivateRoutingCommand, RoutingDTO](h.ActivateRouting)),
		mediator.Register(m, mediator.HandlerFunc[ObsoleteRoutingCommand, RoutingDTO](h.ObsoleteRouting)),
		mediator.Register(m, mediator.HandlerFunc[ReviseRoutingCommand, RoutingDTO](h.ReviseRouting)),
		mediator.Register(m, mediator.HandlerFunc[GetRoutingQuery, RoutingDTO](h.GetRouting)),
		mediator.Register(m, mediator.HandlerFunc[GetRoutingLeadTimeQuery, LeadTimeDTO](h.GetRoutingLeadTime)),
		mediator.Register(m, mediator.HandlerFunc[ListRoutingsQuery, shared.Paginated[RoutingDTO]](h.ListRoutings)),
	)
}

func (h *Handlers) publish(ctx context.Context, events []shared.DomainEvent) {
	if h.events == nil || len(events) == 0 {
		return
	}
	if err := h.events.Publish(ctx, events...); err != nil {
		logger.L(ctx).Warn("failed to publish routing events", zap.Error(err), zap.Int("count", len(events)))
	}
}
