package crm

import (
	"context"

	"github.com/google/uuid"
	"github.com/stocker/backend/internal/domain/shared"
)

// DealFilter narrows a deal listing.
type DealFilter struct {
	shared.Filter
	Status     DealStatus
	Stage      DealStage
	OwnerID    *uuid.UUID
	CustomerID *uuid.UUID
}

// DealRepository persists Deal aggregates.
type DealRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Deal, error)
	// FindByExternalRef finds a deal created by a data migration.
	FindByExternalRef(ctx context.Context, tenantID uuid.UUID, ref string) (*Deal, error)
	FindAll(ctx context.Context, tenantID uuid.UUID, filter DealFilter) ([]Deal, int64, error)
	Save(ctx context.Context, deal *Deal) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}
