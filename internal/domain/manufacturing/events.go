package manufacturing

import (
	"github.com/google/uuid"
	"github.com/stocker/backend/internal/domain/shared"
)

const EventTypeRoutingApproved = "RoutingApproved"

type RoutingApprovedEvent struct {
	shared.BaseDomainEvent
	Code       string    `json:"code"`
	Revision   int       `json:"revision"`
	ApprovedBy uuid.UUID `json:"approved_by"`
}

func NewRoutingApprovedEvent(r *Routing) *RoutingApprovedEvent {
	ev := &RoutingApprovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRoutingApproved, AggregateTypeRouting, r.ID, r.TenantID),
		Code:            r.Code,
		Revision:        r.Revision,
	}
	if r.ApprovedBy != nil {
		ev.ApprovedBy = *r.ApprovedBy
	}
	return ev
}
