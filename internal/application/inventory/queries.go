package inventoryapp

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stocker/backend/internal/domain/inventory"
	"github.com/stocker/backend/internal/domain/shared"
)

type GetReorderRuleQuery struct {
	TenantID uuid.UUID `json:"-"`
	RuleID   uuid.UUID `json:"-" validate:"required"`
}

func (q GetReorderRuleQuery) GetTenantID() uuid.UUID { return q.TenantID }

// CheckReorderQuery evaluates the rule for a product against a stock level
// without recording anything.
type CheckReorderQuery struct {
	TenantID    uuid.UUID       `json:"-"`
	ProductID   uuid.UUID       `form:"-" validate:"required"`
	WarehouseID *uuid.UUID      `form:"-"`
	OnHand      decimal.Decimal `form:"-"`
}

func (q CheckReorderQuery) GetTenantID() uuid.UUID { return q.TenantID }

type ListReorderRulesQuery struct {
	TenantID    uuid.UUID  `json:"-"`
	Page        int        `form:"page" validate:"gte=0"`
	PageSize    int        `form:"page_size" validate:"gte=0,lte=200"`
	OrderBy     string     `form:"order_by"`
	OrderDir    string     `form:"order_dir" validate:"omitempty,oneof=asc desc"`
	Status      string     `form:"status" validate:"omitempty,oneof=ACTIVE PAUSED DISABLED"`
	ProductID   *uuid.UUID `form:"-"`
	WarehouseID *uuid.UUID `form:"-"`
}

func (q ListReorderRulesQuery) GetTenantID() uuid.UUID { return q.TenantID }

func (h *Handlers) GetReorderRule(ctx context.Context, q GetReorderRuleQuery) (ReorderRuleDTO, error) {
	rule, err := h.rules.FindByID(ctx, q.TenantID, q.RuleID)
	if err != nil {
		return ReorderRuleDTO{}, err
	}
	return ToReorderRuleDTO(rule), nil
}

func (h *Handlers) CheckReorder(ctx context.Context, q CheckReorderQuery) (ReorderSuggestionDTO, error) {
	rule, err := h.rules.FindByProduct(ctx, q.TenantID, q.ProductID, q.WarehouseID)
	if err != nil {
		return ReorderSuggestionDTO{}, err
	}
	return suggestionFor(rule, q.OnHand, h.now()), nil
}

func (h *Handlers) ListReorderRules(ctx context.Context, q ListReorderRulesQuery) (shared.Paginated[ReorderRuleDTO], error) {
	filter := inventory.ReorderRuleFilter{
		Filter: shared.Filter{
			Page:     q.Page,
			PageSize: q.PageSize,
			OrderBy:  q.OrderBy,
			OrderDir: strings.ToLower(q.OrderDir),
		}.Normalize(),
		Status:      inventory.ReorderRuleStatus(strings.ToUpper(q.Status)),
		ProductID:   q.ProductID,
		WarehouseID: q.WarehouseID,
	}
	rules, total, err := h.rules.FindAll(ctx, q.TenantID, filter)
	if err != nil {
		return shared.Paginated[ReorderRuleDTO]{}, err
	}
	items := make([]ReorderRuleDTO, len(rules))
	for i := range rules {
		items[i] = ToReorderRuleDTO(&rules[i])
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}
