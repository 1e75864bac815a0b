package manufacturing

import (
	"context"

	"github.com/google/uuid"
	"github.com/stocker/backend/internal/domain/shared"
)

// RoutingFilter narrows a routing listing.
type RoutingFilter struct {
	shared.Filter
	Status    RoutingStatus
	ProductID *uuid.UUID
}

// RoutingRepository persists Routing aggregates.
type RoutingRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Routing, error)
	FindAll(ctx context.Context, tenantID uuid.UUID, filter RoutingFilter) ([]Routing, int64, error)
	ExistsByCodeRevision(ctx context.Context, tenantID uuid.UUID, code string, revision int) (bool, error)
	Save(ctx context.Context, routing *Routing) error
}
