package manufacturingapp

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stocker/backend/internal/domain/manufacturing"
	"github.com/stocker/backend/internal/domain/shared"
)

type GetRoutingQuery struct {
	TenantID  uuid.UUID `json:"-"`
	RoutingID uuid.UUID `json:"-" validate:"required"`
}

func (q GetRoutingQuery) GetTenantID() uuid.UUID { return q.TenantID }

type GetRoutingLeadTimeQuery struct {
	TenantID  uuid.UUID       `json:"-"`
	RoutingID uuid.UUID       `json:"-" validate:"required"`
	Quantity  decimal.Decimal `form:"-"`
}

func (q GetRoutingLeadTimeQuery) GetTenantID() uuid.UUID { return q.TenantID }

type ListRoutingsQuery struct {
	TenantID  uuid.UUID  `json:"-"`
	Page      int        `form:"page" validate:"gte=0"`
	PageSize  int        `form:"page_size" validate:"gte=0,lte=200"`
	OrderBy   string     `form:"order_by"`
	OrderDir  string     `form:"order_dir" validate:"omitempty,oneof=asc desc"`
	Search    string     `form:"search"`
	Status    string     `form:"status" validate:"omitempty,oneof=DRAFT APPROVED ACTIVE OBSOLETE"`
	ProductID *uuid.UUID `form:"-"`
}

func (q ListRoutingsQuery) GetTenantID() uuid.UUID { return q.TenantID }

func (h *Handlers) GetRouting(ctx context.Context, q GetRoutingQuery) (RoutingDTO, error) {
	r, err := h.routings.FindByID(ctx, q.TenantID, q.RoutingID)
	if err != nil {
		return RoutingDTO{}, err
	}
	return ToRoutingDTO(r), nil
}

func (h *Handlers) GetRoutingLeadTime(ctx context.Context, q GetRoutingLeadTimeQuery) (LeadTimeDTO, error) {
	if q.Quantity.IsNegative() {
		return LeadTimeDTO{}, shared.NewDomainError(shared.CodeInvalidInput, "Quantity cannot be negative")
	}
	r, err := h.routings.FindByID(ctx, q.TenantID, q.RoutingID)
	if err != nil {
		return LeadTimeDTO{}, err
	}
	d := r.TotalLeadTime(q.Quantity)
	return LeadTimeDTO{
		RoutingID:    r.ID,
		Quantity:     q.Quantity,
		TotalMinutes: decimal.NewFromInt(int64(d)).Div(decimal.NewFromInt(int64(time.Minute))).Round(2),
		Duration:     d.String(),
	}, nil
}

func (h *Handlers) ListRoutings(ctx context.Context, q ListRoutingsQuery) (shared.Paginated[RoutingDTO], error) {
	filter := manufacturing.RoutingFilter{
		Filter: shared.Filter{
			Page:     q.Page,
			PageSize: q.PageSize,
			OrderBy:  q.OrderBy,
			OrderDir: strings.ToLower(q.OrderDir),
			Search:   strings.TrimSpace(q.Search),
		}.Normalize(),
		Status:    manufacturing.RoutingStatus(strings.ToUpper(q.Status)),
		ProductID: q.ProductID,
	}
	routings, total, err := h.routings.FindAll(ctx, q.TenantID, filter)
	if err != nil {
		return shared.Paginated[RoutingDTO]{}, err
	}
	items := make([]RoutingDTO, len(routings))
	for i := range routings {
		items[i] = ToRoutingDTO(&routings[i])
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}
