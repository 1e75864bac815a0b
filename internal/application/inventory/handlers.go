// Package inventoryapp serves reorder rule commands and queries.
package inventoryapp

import (
	"context"
	"errors"
	"time"

	"github.com/stocker/backend/internal/application/mediator"
	"github.com/stocker/backend/internal/domain/inventory"
	"github.com/stocker/backend/internal/domain/shared"
	"github.com/stocker/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

type Handlers struct {
	rules  inventory.ReorderRuleRepository
	events shared.EventPublisher
	logger *zap.Logger
	now    func() time.Time
}

func NewHandlers(rules inventory.ReorderRuleRepository, events shared.EventPublisher, log *zap.Logger) *Handlers {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handlers{rules: rules, events: events, logger: log.Named("inventory"), now: time.Now}
}

// Register binds every reorder rule request type on m.
func (h *Handlers) Register(m *mediator.Mediator) error {
	return errors.Join(
		mediator.Register(m, mediator.HandlerFunc[CreateReorderRuleCommand, ReorderRuleDTO](h.CreateReorderRule)),
		mediator.Register(m, mediator.HandlerFunc[UpdateReorderRuleCommand, ReorderRuleDTO](h.UpdateReorderRule)),
		mediator.Register(m, mediator.HandlerFunc[PauseReorderRuleCommand, ReorderRuleDTO](h.PauseReorderRule)),
		mediator.Register(m, mediator.HandlerFunc[ActivateReorderRuleCommand, ReorderRuleDTO](h.ActivateReorderRule)),
		mediator.Register(m, mediator.HandlerFunc[DisableReorderRuleCommand, ReorderRuleDTO](h.DisableReorderRule)),
		mediator.Register(m, mediator.HandlerFunc[TriggerReorderRuleCommand, ReorderSuggestionDTO](h.TriggerReorderRule)),
		mediator.Register(m, mediator.HandlerFunc[GetReorderRuleQuery, ReorderRuleDTO](h.GetReorderRule)),
		mediator.Register(m, mediator.HandlerFunc[CheckReorderQuery, ReorderSuggestionDTO](h.CheckReorder)),
		mediator.Register(m, mediator.HandlerFunc[ListReorderRulesQuery, shared.Paginated[ReorderRuleDTO]](h.ListReorderRules)),
	)
}

func (h *Handlers) publish(ctx context.Context, events []shared.DomainEvent) {
	if h.events == nil || len(events) == 0 {
		return
	}
	if err := h.events.Publish(ctx, events...); err != nil {
		logger.L(ctx).Warn("failed to publish reorder events", zap.Error(err), zap.Int("count", len(events)))
	}
}
