// Package crm holds the sales pipeline aggregates.
package crm

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stocker/backend/internal/domain/shared"
)

const AggregateTypeDeal = "Deal"

// DealStatus is the outcome state of a deal.
type DealStatus string

const (
	DealStatusOpen DealStatus = "OPEN"
	DealStatusWon  DealStatus = "WON"
	DealStatusLost DealStatus = "LOST"
)

// IsValid checks if the status is valid
func (s DealStatus) IsValid() bool {
	return s == DealStatusOpen || s == DealStatusWon || s == DealStatusLost
}

// DealStage is the pipeline stage of an open deal.
type DealStage string

const (
	DealStageProspecting   DealStage = "PROSPECTING"
	DealStageQualification DealStage = "QUALIFICATION"
	DealStageProposal      DealStage = "PROPOSAL"
	DealStageNegotiation   DealStage = "NEGOTIATION"
)

// IsValid checks if the stage is valid
func (s DealStage) IsValid() bool {
	switch s {
	case DealStageProspecting, DealStageQualification, DealStageProposal, DealStageNegotiation:
		return true
	}
	return false
}

// DefaultProbability is the win probability assigned when a deal enters stage.
func (s DealStage) DefaultProbability() int {
	switch s {
	case DealStageQualification:
		return 25
	case DealStageProposal:
		return 50
	case DealStageNegotiation:
		return 75
	}
	return 10
}

// Deal is a sales opportunity with a customer.
type Deal struct {
	shared.TenantAggregateRoot
	Title             string
	CustomerID        *uuid.UUID
	OwnerID           *uuid.UUID
	Stage             DealStage
	Amount            decimal.Decimal
	Currency          string
	Probability       int
	ExpectedCloseDate *time.Time
	Status            DealStatus
	ClosedAt          *time.Time
	LostReason        string
	ExternalRef       string
}

// DealDetails carries the editable fields of a deal.
type DealDetails struct {
	Title             string
	CustomerID        *uuid.UUID
	OwnerID           *uuid.UUID
	Amount            decimal.Decimal
	Currency          string
	ExpectedCloseDate *time.Time
}

// NewDeal creates an OPEN deal in the PROSPECTING stage.
func NewDeal(tenantID uuid.UUID, d DealDetails) (*Deal, error) {
	if tenantID == uuid.Nil {
		return nil, shared.ErrInvalidTenant
	}
	deal := &Deal{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Stage:               DealStageProspecting,
		Probability:         DealStageProspecting.DefaultProbability(),
		Status:              DealStatusOpen,
	}
	if err := deal.applyDetails(d); err != nil {
		return nil, err
	}
	return deal, nil
}

func (d *Deal) applyDetails(in DealDetails) error {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return shared.NewDomainError("INVALID_TITLE", "Deal title cannot be empty")
	}
	if len([]rune(title)) > 200 {
		return shared.NewDomainError("INVALID_TITLE", "Deal title cannot exceed 200 characters")
	}
	if in.Amount.IsNegative() {
		return shared.NewDomainError("INVALID_AMOUNT", "Deal amount cannot be negative")
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = "TRY"
	}
	if len(currency) != 3 {
		return shared.NewDomainError("INVALID_CURRENCY", fmt.Sprintf("Invalid currency code: %s", in.Currency))
	}
	d.Title = title
	d.CustomerID = in.CustomerID
	d.OwnerID = in.OwnerID
	d.Amount = in.Amount
	d.Currency = currency
	d.ExpectedCloseDate = in.ExpectedCloseDate
	return nil
}

// UpdateDetails edits an open deal.
func (d *Deal) UpdateDetails(in DealDetails) error {
	if d.Status != DealStatusOpen {
		return shared.NewInvalidStateError("Cannot edit a %s deal", d.Status)
	}
	if err := d.applyDetails(in); err != nil {
		return err
	}
	d.Touch()
	return nil
}

// MoveToStage advances or rewinds an open deal in the pipeline. A
// probability of 0 or less takes the stage default.
func (d *Deal) MoveToStage(stage DealStage, probability int) error {
	if d.Status != DealStatusOpen {
		return shared.NewInvalidStateError("Cannot move a %s deal", d.Status)
	}
	if !stage.IsValid() {
		return shared.NewDomainError("INVALID_STAGE", fmt.Sprintf("Invalid stage: %s", stage))
	}
	if probability > 100 {
		return shared.NewDomainError("INVALID_PROBABILITY", "Probability must be between 0 and 100")
	}
	if probability <= 0 {
		probability = stage.DefaultProbability()
	}
	from := d.Stage
	d.Stage = stage
	d.Probability = probability
	d.Touch()

	if from != stage {
		d.AddDomainEvent(NewDealStageChangedEvent(d, from))
	}
	return nil
}

// Win closes the deal as won.
func (d *Deal) Win() error {
	if d.Status != DealStatusOpen {
		return shared.NewInvalidStateError("Only open deals can be won, deal is %s", d.Status)
	}
	now := time.Now()
	d.Status = DealStatusWon
	d.Probability = 100
	d.ClosedAt = &now
	d.LostReason = ""
	d.Touch()

	d.AddDomainEvent(NewDealWonEvent(d))
	return nil
}

// Lose closes the deal as lost with a reason.
func (d *Deal) Lose(reason string) error {
	if d.Status != DealStatusOpen {
		return shared.NewInvalidStateError("Only open deals can be lost, deal is %s", d.Status)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "A lost reason is required")
	}
	now := time.Now()
	d.Status = DealStatusLost
	d.Probability = 0
	d.ClosedAt = &now
	d.LostReason = reason
	d.Touch()

	d.AddDomainEvent(NewDealLostEvent(d))
	return nil
}

// Reopen puts a closed deal back into the pipeline at its last stage.
func (d *Deal) Reopen() error {
	if d.Status == DealStatusOpen {
		return shared.NewInvalidStateError("Deal is already open")
	}
	d.Status = DealStatusOpen
	d.Probability = d.Stage.DefaultProbability()
	d.ClosedAt = nil
	d.LostReason = ""
	d.Touch()
	return nil
}

// WeightedAmount is the amount scaled by the win probability.
func (d *Deal) WeightedAmount() decimal.Decimal {
	return d.Amount.Mul(decimal.NewFromInt(int64(d.Probability))).Div(decimal.NewFromInt(100)).Round(2)
}

// IsClosed returns true for won and lost deals.
func (d *Deal) IsClosed() bool {
	return d.Status != DealStatusOpen
}
