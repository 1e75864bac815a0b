package crmapp

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stocker/backend/internal/domain/crm"
)

// DealDTO is the API view of a deal.
type DealDTO struct {
	ID                uuid.UUID       `json:"id"`
	TenantID          uuid.UUID       `json:"tenant_id"`
	Title             string          `json:"title"`
	CustomerID        *uuid.UUID      `json:"customer_id,omitempty"`
	OwnerID           *uuid.UUID      `json:"owner_id,omitempty"`
	Stage             string          `json:"stage"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	Probability       int             `json:"probability"`
	WeightedAmount    decimal.Decimal `json:"weighted_amount"`
	ExpectedCloseDate *time.Time      `json:"expected_close_date,omitempty"`
	Status            string          `json:"status"`
	ClosedAt          *time.Time      `json:"closed_at,omitempty"`
	LostReason        string          `json:"lost_reason,omitempty"`
	ExternalRef       string          `json:"external_ref,omitempty"`
	CreatedBy         *uuid.UUID      `json:"created_by,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	Version           int             `json:"version"`
}

func ToDealDTO(d *crm.Deal) DealDTO {
	return DealDTO{
		ID:                d.ID,
		TenantID:          d.TenantID,
		Title:             d.Title,
		CustomerID:        d.CustomerID,
		OwnerID:           d.OwnerID,
		Stage:             string(d.Stage),
		Amount:            d.Amount,
		Currency:          d.Currency,
		Probability:       d.Probability,
		WeightedAmount:    d.WeightedAmount(),
		ExpectedCloseDate: d.ExpectedCloseDate,
		Status:            string(d.Status),
		ClosedAt:          d.ClosedAt,
		LostReason:        d.LostReason,
		ExternalRef:       d.ExternalRef,
		CreatedBy:         d.CreatedBy,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
		Version:           d.Version,
	}
}
