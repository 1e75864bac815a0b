package crmapp

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/stocker/backend/internal/domain/crm"
	"github.com/stocker/backend/internal/domain/shared"
)

type GetDealQuery struct {
	TenantID uuid.UUID `json:"-"`
	DealID   uuid.UUID `json:"-" validate:"required"`
}

func (q GetDealQuery) GetTenantID() uuid.UUID { return q.TenantID }

type ListDealsQuery struct {
	TenantID   uuid.UUID  `json:"-"`
	Page       int        `form:"page" validate:"gte=0"`
	PageSize   int        `form:"page_size" validate:"gte=0,lte=200"`
	OrderBy    string     `form:"order_by"`
	OrderDir   string     `form:"order_dir" validate:"omitempty,oneof=asc desc"`
	Search     string     `form:"search"`
	Status     string     `form:"status" validate:"omitempty,oneof=OPEN WON LOST"`
	Stage      string     `form:"stage" validate:"omitempty,oneof=PROSPECTING QUALIFICATION PROPOSAL NEGOTIATION"`
	OwnerID    *uuid.UUID `form:"-"`
	CustomerID *uuid.UUID `form:"-"`
}

func (q ListDealsQuery) GetTenantID() uuid.UUID { return q.TenantID }

func (h *Handlers) GetDeal(ctx context.Context, q GetDealQuery) (DealDTO, error) {
	deal, err := h.deals.FindByID(ctx, q.TenantID, q.DealID)
	if err != nil {
		return DealDTO{}, err
	}
	return ToDealDTO(deal), nil
}

func (h *Handlers) ListDeals(ctx context.Context, q ListDealsQuery) (shared.Paginated[DealDTO], error) {
	filter := crm.DealFilter{
		Filter: shared.Filter{
			Page:     q.Page,
			PageSize: q.PageSize,
			OrderBy:  q.OrderBy,
			OrderDir: strings.ToLower(q.OrderDir),
			Search:   strings.TrimSpace(q.Search),
		}.Normalize(),
		Status:     crm.DealStatus(strings.ToUpper(q.Status)),
		Stage:      crm.DealStage(strings.ToUpper(q.Stage)),
		OwnerID:    q.OwnerID,
		CustomerID: q.CustomerID,
	}
	deals, total, err := h.deals.FindAll(ctx, q.TenantID, filter)
	if err != nil {
		return shared.Paginated[DealDTO]{}, err
	}
	items := make([]DealDTO, len(deals))
	for i := range deals {
		items[i] = ToDealDTO(&deals[i])
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}
