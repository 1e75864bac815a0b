package manufacturingapp

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stocker/backend/internal/domain/manufacturing"
	"github.com/stocker/backend/internal/domain/shared"
	"github.com/stocker/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

type CreateRoutingCommand struct {
	TenantID  uuid.UUID  `json:"-"`
	UserID    *uuid.UUID `json:"-"`
	ProductID uuid.UUID  `json:"product_id" validate:"required"`
	Code      string     `json:"code" validate:"required,max=50"`
	Name      string     `json:"name" validate:"required,max=200"`
}

func (c CreateRoutingCommand) GetTenantID() uuid.UUID { return c.TenantID }

type AddRoutingOperationCommand struct {
	TenantID     uuid.UUID       `json:"-"`
	RoutingID    uuid.UUID       `json:"-" validate:"required"`
	Sequence     int             `json:"sequence" validate:"required,gt=0"`
	WorkCenterID uuid.UUID       `json:"work_center_id" validate:"required"`
	Name         string          `json:"name" validate:"required,max=200"`
	SetupMinutes decimal.Decimal `json:"setup_minutes"`
	RunMinutes   decimal.Decimal `json:"run_minutes"`
	Description  string          `json:"description" validate:"max=500"`
}

func (c AddRoutingOperationCommand) GetTenantID() uuid.UUID { return c.TenantID }

type RemoveRoutingOperationCommand struct {
	TenantID  uuid.UUID `json:"-"`
	RoutingID uuid.UUID `json:"-" validate:"required"`
	Sequence  int       `validate:"gt=0"`
}

func (c RemoveRoutingOperationCommand) GetTenantID() uuid.UUID { return c.TenantID }

// ApproveRoutingCommand is approved by the calling user.
type ApproveRoutingCommand struct {
	TenantID  uuid.UUID  `json:"-"`
	UserID    *uuid.UUID `json:"-"`
	RoutingID uuid.UUID  `json:"-" validate:"required"`
}

func (c ApproveRoutingCommand) GetTenantID() uuid.UUID { return c.TenantID }

type ActivateRoutingCommand struct {
	TenantID  uuid.UUID `json:"-"`
	RoutingID uuid.UUID `json:"-" validate:"required"`
}

func (c ActivateRoutingCommand) GetTenantID() uuid.UUID { return c.TenantID }

type ObsoleteRoutingCommand struct {
	TenantID  uuid.UUID `json:"-"`
	RoutingID uuid.UUID `json:"-" validate:"required"`
}

func (c ObsoleteRoutingCommand) GetTenantID() uuid.UUID { return c.TenantID }

// ReviseRoutingCommand creates the next revision of a released routing.
type ReviseRoutingCommand struct {
	TenantID  uuid.UUID  `json:"-"`
	UserID    *uuid.UUID `json:"-"`
	RoutingID uuid.UUID  `json:"-" validate:"required"`
}

func (c ReviseRoutingCommand) GetTenantID() uuid.UUID { return c.TenantID }

func (h *Handlers) CreateRouting(ctx context.Context, cmd CreateRoutingCommand) (RoutingDTO, error) {
	r, err := manufacturing.NewRouting(cmd.TenantID, cmd.ProductID, cmd.Code, cmd.Name)
	if err != nil {
		return RoutingDTO{}, err
	}
	if err := h.ensureUnique(ctx, r); err != nil {
		return RoutingDTO{}, err
	}
	return h.create(ctx, r, cmd.UserID)
}

func (h *Handlers) ReviseRouting(ctx context.Context, cmd ReviseRoutingCommand) (RoutingDTO, error) {
	src, err := h.routings.FindByID(ctx, cmd.TenantID, cmd.RoutingID)
	if err != nil {
		return RoutingDTO{}, err
	}
	rev, err := src.NewRevision()
	if err != nil {
		return RoutingDTO{}, err
	}
	if err := h.ensureUnique(ctx, rev); err != nil {
		return RoutingDTO{}, err
	}
	return h.create(ctx, rev, cmd.UserID)
}

func (h *Handlers) ensureUnique(ctx context.Context, r *manufacturing.Routing) error {
	exists, err := h.routings.ExistsByCodeRevision(ctx, r.TenantID, r.Code, r.Revision)
	if err != nil {
		return err
	}
	if exists {
		return shared.NewDomainErrorWithCause(shared.CodeAlreadyExists,
			fmt.Sprintf("Routing %s revision %d already exists", r.Code, r.Revision), shared.ErrAlreadyExists)
	}
	return nil
}

func (h *Handlers) create(ctx context.Context, r *manufacturing.Routing, userID *uuid.UUID) (RoutingDTO, error) {
	if userID != nil {
		r.SetCreatedBy(*userID)
	}
	if err := h.routings.Save(ctx, r); err != nil {
		return RoutingDTO{}, err
	}
	logger.L(ctx).Info("routing created",
		zap.String("routing_id", r.ID.String()),
		zap.String("code", r.Code),
		zap.Int("revision", r.Revision),
	)
	return ToRoutingDTO(r), nil
}

func (h *Handlers) AddRoutingOperation(ctx context.Context, cmd AddRoutingOperationCommand) (RoutingDTO, error) {
	return h.mutate(ctx, cmd.TenantID, cmd.RoutingID, func(r *manufacturing.Routing) error {
		return r.AddOperation(manufacturing.RoutingOperation{
			Sequence:     cmd.Sequence,
			WorkCenterID: cmd.WorkCenterID,
			Name:         cmd.Name,
			SetupMinutes: cmd.SetupMinutes,
			RunMinutes:   cmd.RunMinutes,
			Description:  cmd.Description,
		})
	})
}

func (h *Handlers) RemoveRoutingOperation(ctx context.Context, cmd RemoveRoutingOperationCommand) (RoutingDTO, error) {
	return h.mutate(ctx, cmd.TenantID, cmd.RoutingID, func(r *manufacturing.Routing) error {
		return r.RemoveOperation(cmd.Sequence)
	})
}

func (h *Handlers) ApproveRouting(ctx context.Context, cmd ApproveRoutingCommand) (RoutingDTO, error) {
	approver := uuid.Nil
	if cmd.UserID != nil {
		approver = *cmd.UserID
	}
	return h.mutate(ctx, cmd.TenantID, cmd.RoutingID, func(r *manufacturing.Routing) error {
		return r.Approve(approver)
	})
}

func (h *Handlers) ActivateRouting(ctx context.Context, cmd ActivateRoutingCommand) (RoutingDTO, error) {
	return h.mutate(ctx, cmd.TenantID, cmd.RoutingID, (*manufacturing.Routing).Activate)
}

func (h *Handlers) ObsoleteRouting(ctx context.Context, cmd ObsoleteRoutingCommand) (RoutingDTO, error) {
	return h.mutate(ctx, cmd.TenantID, cmd.RoutingID, (*manufacturing.Routing).MakeObsolete)
}

func (h *Handlers) mutate(ctx context.Context, tenantID, id uuid.UUID, fn func(*manufacturing.Routing) error) (RoutingDTO, error) {
	r, err := h.routings.FindByID(ctx, tenantID, id)
	if err != nil {
		return RoutingDTO{}, err
	}
	if err := fn(r); err != nil {
		return RoutingDTO{}, err
	}
	if err := h.routings.Save(ctx, r); err != nil {
		return RoutingDTO{}, err
	}
	h.publish(ctx, r.PullDomainEvents())
	return ToRoutingDTO(r), nil
}
