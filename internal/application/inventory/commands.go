package inventoryapp

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stocker/backend/internal/domain/inventory"
	"github.com/stocker/backend/internal/domain/shared"
	"github.com/stocker/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// CreateReorderRuleCommand adds a rule for a product, optionally scoped to
// one warehouse. A product and warehouse pair has at most one rule.
type CreateReorderRuleCommand struct {
	TenantID        uuid.UUID       `json:"-"`
	UserID          *uuid.UUID      `json:"-"`
	ProductID       uuid.UUID       `json:"product_id" validate:"required"`
	WarehouseID     *uuid.UUID      `json:"warehouse_id"`
	ReorderPoint    decimal.Decimal `json:"reorder_point"`
	MaxQuantity     decimal.Decimal `json:"max_quantity"`
	ReorderQuantity decimal.Decimal `json:"reorder_quantity"`
	LeadTimeDays    int             `json:"lead_time_days" validate:"gte=0,lte=365"`
}

func (c CreateReorderRuleCommand) GetTenantID() uuid.UUID { return c.TenantID }

func (c CreateReorderRuleCommand) levels() inventory.ReorderLevels {
	return inventory.ReorderLevels{
		ReorderPoint:    c.ReorderPoint,
		MaxQuantity:     c.MaxQuantity,
		ReorderQuantity: c.ReorderQuantity,
		LeadTimeDays:    c.LeadTimeDays,
	}
}

type UpdateReorderRuleCommand struct {
	TenantID        uuid.UUID       `json:"-"`
	RuleID          uuid.UUID       `json:"-" validate:"required"`
	ReorderPoint    decimal.Decimal `json:"reorder_point"`
	MaxQuantity     decimal.Decimal `json:"max_quantity"`
	ReorderQuantity decimal.Decimal `json:"reorder_quantity"`
	LeadTimeDays    int             `json:"lead_time_days" validate:"gte=0,lte=365"`
}

func (c UpdateReorderRuleCommand) GetTenantID() uuid.UUID { return c.TenantID }

type PauseReorderRuleCommand struct {
	TenantID uuid.UUID `json:"-"`
	RuleID   uuid.UUID `json:"-" validate:"required"`
}

func (c PauseReorderRuleCommand) GetTenantID() uuid.UUID { return c.TenantID }

type ActivateReorderRuleCommand struct {
	TenantID uuid.UUID `json:"-"`
	RuleID   uuid.UUID `json:"-" validate:"required"`
}

func (c ActivateReorderRuleCommand) GetTenantID() uuid.UUID { return c.TenantID }

type DisableReorderRuleCommand struct {
	TenantID uuid.UUID `json:"-"`
	RuleID   uuid.UUID `json:"-" validate:"required"`
}

func (c DisableReorderRuleCommand) GetTenantID() uuid.UUID { return c.TenantID }

// TriggerReorderRuleCommand records a replenishment request for the given
// stock level and emits ReorderTriggered.
type TriggerReorderRuleCommand struct {
	TenantID uuid.UUID       `json:"-"`
	RuleID   uuid.UUID       `json:"-" validate:"required"`
	OnHand   decimal.Decimal `json:"on_hand"`
}

func (c TriggerReorderRuleCommand) GetTenantID() uuid.UUID { return c.TenantID }

func (h *Handlers) CreateReorderRule(ctx context.Context, cmd CreateReorderRuleCommand) (ReorderRuleDTO, error) {
	existing, err := h.rules.FindByProduct(ctx, cmd.TenantID, cmd.ProductID, cmd.WarehouseID)
	switch {
	case err == nil && existing != nil:
		return ReorderRuleDTO{}, shared.NewDomainErrorWithCause(shared.CodeAlreadyExists,
			"A reorder rule already exists for this product and warehouse", shared.ErrAlreadyExists)
	case err != nil && !errors.Is(err, shared.ErrNotFound):
		return ReorderRuleDTO{}, err
	}

	rule, err := inventory.NewReorderRule(cmd.TenantID, cmd.ProductID, cmd.WarehouseID, cmd.levels())
	if err != nil {
		return ReorderRuleDTO{}, err
	}
	if cmd.UserID != nil {
		rule.SetCreatedBy(*cmd.UserID)
	}
	if err := h.rules.Save(ctx, rule); err != nil {
		return ReorderRuleDTO{}, err
	}
	logger.L(ctx).Info("reorder rule created",
		zap.String("rule_id", rule.ID.String()),
		zap.String("product_id", rule.ProductID.String()),
	)
	return ToReorderRuleDTO(rule), nil
}

func (h *Handlers) UpdateReorderRule(ctx context.Context, cmd UpdateReorderRuleCommand) (ReorderRuleDTO, error) {
	return h.mutate(ctx, cmd.TenantID, cmd.RuleID, func(r *inventory.ReorderRule) error {
		return r.Update(inventory.ReorderLevels{
			ReorderPoint:    cmd.ReorderPoint,
			MaxQuantity:     cmd.MaxQuantity,
			ReorderQuantity: cmd.ReorderQuantity,
			LeadTimeDays:    cmd.LeadTimeDays,
		})
	})
}

func (h *Handlers) PauseReorderRule(ctx context.Context, cmd PauseReorderRuleCommand) (ReorderRuleDTO, error) {
	return h.mutate(ctx, cmd.TenantID, cmd.RuleID, (*inventory.ReorderRule).Pause)
}

func (h *Handlers) ActivateReorderRule(ctx context.Context, cmd ActivateReorderRuleCommand) (ReorderRuleDTO, error) {
	return h.mutate(ctx, cmd.TenantID, cmd.RuleID, (*inventory.ReorderRule).Activate)
}

func (h *Handlers) DisableReorderRule(ctx context.Context, cmd DisableReorderRuleCommand) (ReorderRuleDTO, error) {
	return h.mutate(ctx, cmd.TenantID, cmd.RuleID, (*inventory.ReorderRule).Disable)
}

func (h *Handlers) TriggerReorderRule(ctx context.Context, cmd TriggerReorderRuleCommand) (ReorderSuggestionDTO, error) {
	now := h.now()
	var suggestion ReorderSuggestionDTO
	_, err := h.mutate(ctx, cmd.TenantID, cmd.RuleID, func(r *inventory.ReorderRule) error {
		suggestion = suggestionFor(r, cmd.OnHand, now)
		if _, err := r.Trigger(cmd.OnHand, now); err != nil {
			return err
		}
		suggestion.Triggered = true
		return nil
	})
	if err != nil {
		return ReorderSuggestionDTO{}, err
	}
	logger.L(ctx).Info("reorder triggered",
		zap.String("rule_id", suggestion.RuleID.String()),
		zap.String("suggested_quantity", suggestion.SuggestedQuantity.String()),
	)
	return suggestion, nil
}

func (h *Handlers) mutate(ctx context.Context, tenantID, id uuid.UUID, fn func(*inventory.ReorderRule) error) (ReorderRuleDTO, error) {
	rule, err := h.rules.FindByID(ctx, tenantID, id)
	if err != nil {
		return ReorderRuleDTO{}, err
	}
	if err := fn(rule); err != nil {
		return ReorderRuleDTO{}, err
	}
	if err := h.rules.Save(ctx, rule); err != nil {
		return ReorderRuleDTO{}, err
	}
	h.publish(ctx, rule.PullDomainEvents())
	return ToReorderRuleDTO(rule), nil
}
