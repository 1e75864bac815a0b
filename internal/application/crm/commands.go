package crmapp

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stocker/backend/internal/domain/crm"
	"github.com/stocker/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// CreateDealCommand opens a deal in the PROSPECTING stage.
type CreateDealCommand struct {
	TenantID          uuid.UUID       `json:"-"`
	UserID            *uuid.UUID      `json:"-"`
	Title             string          `json:"title" validate:"required,max=200"`
	CustomerID        *uuid.UUID      `json:"customer_id"`
	OwnerID           *uuid.UUID      `json:"owner_id"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency" validate:"omitempty,len=3"`
	ExpectedCloseDate *time.Time      `json:"expected_close_date"`
}

func (c CreateDealCommand) GetTenantID() uuid.UUID { return c.TenantID }

func (c CreateDealCommand) details() crm.DealDetails {
	return crm.DealDetails{
		Title:             c.Title,
		CustomerID:        c.CustomerID,
		OwnerID:           c.OwnerID,
		Amount:            c.Amount,
		Currency:          c.Currency,
		ExpectedCloseDate: c.ExpectedCloseDate,
	}
}

// UpdateDealCommand replaces the editable fields of an open deal.
type UpdateDealCommand struct {
	TenantID          uuid.UUID       `json:"-"`
	DealID            uuid.UUID       `json:"-" validate:"required"`
	Title             string          `json:"title" validate:"required,max=200"`
	CustomerID        *uuid.UUID      `json:"customer_id"`
	OwnerID           *uuid.UUID      `json:"owner_id"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency" validate:"omitempty,len=3"`
	ExpectedCloseDate *time.Time      `json:"expected_close_date"`
}

func (c UpdateDealCommand) GetTenantID() uuid.UUID { return c.TenantID }

type MoveDealStageCommand struct {
	TenantID    uuid.UUID `json:"-"`
	DealID      uuid.UUID `json:"-" validate:"required"`
	Stage       string    `json:"stage" validate:"required,oneof=PROSPECTING QUALIFICATION PROPOSAL NEGOTIATION"`
	Probability int       `json:"probability" validate:"gte=0,lte=100"`
}

func (c MoveDealStageCommand) GetTenantID() uuid.UUID { return c.TenantID }

type WinDealCommand struct {
	TenantID uuid.UUID `json:"-"`
	DealID   uuid.UUID `json:"-" validate:"required"`
}

func (c WinDealCommand) GetTenantID() uuid.UUID { return c.TenantID }

type LoseDealCommand struct {
	TenantID uuid.UUID `json:"-"`
	DealID   uuid.UUID `json:"-" validate:"required"`
	Reason   string    `json:"reason" validate:"required,max=500"`
}

func (c LoseDealCommand) GetTenantID() uuid.UUID { return c.TenantID }

type ReopenDealCommand struct {
	TenantID uuid.UUID `json:"-"`
	DealID   uuid.UUID `json:"-" validate:"required"`
}

func (c ReopenDealCommand) GetTenantID() uuid.UUID { return c.TenantID }

type DeleteDealCommand struct {
	TenantID uuid.UUID `json:"-"`
	DealID   uuid.UUID `json:"-" validate:"required"`
}

func (c DeleteDealCommand) GetTenantID() uuid.UUID { return c.TenantID }

func (h *Handlers) CreateDeal(ctx context.Context, cmd CreateDealCommand) (DealDTO, error) {
	deal, err := crm.NewDeal(cmd.TenantID, cmd.details())
	if err != nil {
		return DealDTO{}, err
	}
	if cmd.UserID != nil {
		deal.SetCreatedBy(*cmd.UserID)
	}
	if err := h.deals.Save(ctx, deal); err != nil {
		return DealDTO{}, err
	}
	logger.L(ctx).Info("deal created", zap.String("deal_id", deal.ID.String()))
	return ToDealDTO(deal), nil
}

func (h *Handlers) UpdateDeal(ctx context.Context, cmd UpdateDealCommand) (DealDTO, error) {
	return h.mutate(ctx, cmd.TenantID, cmd.DealID, func(d *crm.Deal) error {
		return d.UpdateDetails(crm.DealDetails{
			Title:             cmd.Title,
			CustomerID:        cmd.CustomerID,
			OwnerID:           cmd.OwnerID,
			Amount:            cmd.Amount,
			Currency:          cmd.Currency,
			ExpectedCloseDate: cmd.ExpectedCloseDate,
		})
	})
}

func (h *Handlers) MoveDealStage(ctx context.Context, cmd MoveDealStageCommand) (DealDTO, error) {
	return h.mutate(ctx, cmd.TenantID, cmd.DealID, func(d *crm.Deal) error {
		return d.MoveToStage(crm.DealStage(strings.ToUpper(cmd.Stage)), cmd.Probability)
	})
}

func (h *Handlers) WinDeal(ctx context.Context, cmd WinDealCommand) (DealDTO, error) {
	return h.mutate(ctx, cmd.TenantID, cmd.DealID, (*crm.Deal).Win)
}

func (h *Handlers) LoseDeal(ctx context.Context, cmd LoseDealCommand) (DealDTO, error) {
	return h.mutate(ctx, cmd.TenantID, cmd.DealID, func(d *crm.Deal) error {
		return d.Lose(cmd.Reason)
	})
}

func (h *Handlers) ReopenDeal(ctx context.Context, cmd ReopenDealCommand) (DealDTO, error) {
	return h.mutate(ctx, cmd.TenantID, cmd.DealID, (*crm.Deal).Reopen)
}

func (h *Handlers) DeleteDeal(ctx context.Context, cmd DeleteDealCommand) (struct{}, error) {
	if _, err := h.deals.FindByID(ctx, cmd.TenantID, cmd.DealID); err != nil {
		return struct{}{}, err
	}
	if err := h.deals.Delete(ctx, cmd.TenantID, cmd.DealID); err != nil {
		return struct{}{}, err
	}
	logger.L(ctx).Info("deal deleted", zap.String("deal_id", cmd.DealID.String()))
	return struct{}{}, nil
}

// mutate loads a deal, applies fn, saves it and publishes its events.
func (h *Handlers) mutate(ctx context.Context, tenantID, dealID uuid.UUID, fn func(*crm.Deal) error) (DealDTO, error) {
	deal, err := h.deals.FindByID(ctx, tenantID, dealID)
	if err != nil {
		return DealDTO{}, err
	}
	if err := fn(deal); err != nil {
		return DealDTO{}, err
	}
	if err := h.deals.Save(ctx, deal); err != nil {
		return DealDTO{}, err
	}
	h.publish(ctx, deal.PullDomainEvents())
	return ToDealDTO(deal), nil
}
