// Package manufacturing holds production planning aggregates.
package manufacturing

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stocker/backend/internal/domain/shared"
)

const AggregateTypeRouting = "Routing"

// RoutingStatus is the lifecycle state of a routing.
type RoutingStatus string

const (
	RoutingStatusDraft    RoutingStatus = "DRAFT"
	RoutingStatusApproved RoutingStatus = "APPROVED"
	RoutingStatusActive   RoutingStatus = "ACTIVE"
	RoutingStatusObsolete RoutingStatus = "OBSOLETE"
)

// IsValid checks if the status is valid
func (s RoutingStatus) IsValid() bool {
	switch s {
	case RoutingStatusDraft, RoutingStatusApproved, RoutingStatusActive, RoutingStatusObsolete:
		return true
	}
	return false
}

// RoutingOperation is one step a product goes through at a work center.
type RoutingOperation struct {
	Sequence     int             `json:"sequence"`
	WorkCenterID uuid.UUID       `json:"work_center_id"`
	Name         string          `json:"name"`
	SetupMinutes decimal.Decimal `json:"setup_minutes"`
	RunMinutes   decimal.Decimal `json:"run_minutes"`
	Description  string          `json:"description,omitempty"`
}

// Routing is the ordered list of operations that produce a product.
type Routing struct {
	shared.TenantAggregateRoot
	Code        string
	Name        string
	ProductID   uuid.UUID
	Revision    int
	Operations  []RoutingOperation
	Status      RoutingStatus
	ApprovedBy  *uuid.UUID
	ApprovedAt  *time.Time
	ActivatedAt *time.Time
}

// NewRouting creates a DRAFT routing at revision 1.
func NewRouting(tenantID, productID uuid.UUID, code, name string) (*Routing, error) {
	if tenantID == uuid.Nil {
		return nil, shared.ErrInvalidTenant
	}
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product is required")
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" || len(code) > 50 {
		return nil, shared.NewDomainError("INVALID_CODE", "Routing code must be 1 to 50 characters")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Routing name cannot be empty")
	}
	return &Routing{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Code:                code,
		Name:                name,
		ProductID:           productID,
		Revision:            1,
		Operations:          make([]RoutingOperation, 0),
		Status:              RoutingStatusDraft,
	}, nil
}

// AddOperation inserts an operation keeping the list ordered by sequence.
func (r *Routing) AddOperation(op RoutingOperation) error {
	if r.Status != RoutingStatusDraft {
		return shared.NewInvalidStateError("Cannot change operations of a %s routing", r.Status)
	}
	if op.Sequence <= 0 {
		return shared.NewDomainError("INVALID_SEQUENCE", "Operation sequence must be positive")
	}
	if op.WorkCenterID == uuid.Nil {
		return shared.NewDomainError("INVALID_WORK_CENTER", "Work center is required")
	}
	if strings.TrimSpace(op.Name) == "" {
		return shared.NewDomainError("INVALID_NAME", "Operation name cannot be empty")
	}
	if op.SetupMinutes.IsNegative() || op.RunMinutes.IsNegative() {
		return shared.NewDomainError("INVALID_DURATION", "Operation times cannot be negative")
	}
	for _, existing := range r.Operations {
		if existing.Sequence == op.Sequence {
			return shared.NewDomainError(shared.CodeAlreadyExists, fmt.Sprintf("Operation sequence %d already exists", op.Sequence))
		}
	}
	r.Operations = append(r.Operations, op)
	sort.Slice(r.Operations, func(i, j int) bool {
		return r.Operations[i].Sequence < r.Operations[j].Sequence
	})
	r.Touch()
	return nil
}

// RemoveOperation deletes the operation at sequence.
func (r *Routing) RemoveOperation(sequence int) error {
	if r.Status != RoutingStatusDraft {
		return shared.NewInvalidStateError("Cannot change operations of a %s routing", r.Status)
	}
	for i, op := range r.Operations {
		if op.Sequence == sequence {
			r.Operations = append(r.Operations[:i], r.Operations[i+1:]...)
			r.Touch()
			return nil
		}
	}
	return shared.NewDomainError(shared.CodeNotFound, fmt.Sprintf("Operation sequence %d not found", sequence))
}

// Approve freezes a draft routing.
func (r *Routing) Approve(approvedBy uuid.UUID) error {
	if r.Status != RoutingStatusDraft {
		return shared.NewInvalidStateError("Only draft routings can be approved, routing is %s", r.Status)
	}
	if len(r.Operations) == 0 {
		return shared.NewDomainError("NO_OPERATIONS", "Routing must have at least one operation")
	}
	if approvedBy == uuid.Nil {
		return shared.NewDomainError("INVALID_APPROVER", "Approver is required")
	}
	now := time.Now()
	r.Status = RoutingStatusApproved
	r.ApprovedBy = &approvedBy
	r.ApprovedAt = &now
	r.Touch()

	r.AddDomainEvent(NewRoutingApprovedEvent(r))
	return nil
}

// Activate releases an approved routing to production.
func (r *Routing) Activate() error {
	if r.Status != RoutingStatusApproved {
		return shared.NewInvalidStateError("Only approved routings can be activated, routing is %s", r.Status)
	}
	now := time.Now()
	r.Status = RoutingStatusActive
	r.ActivatedAt = &now
	r.Touch()
	return nil
}

// MakeObsolete retires an approved or active routing.
func (r *Routing) MakeObsolete() error {
	if r.Status != RoutingStatusApproved && r.Status != RoutingStatusActive {
		return shared.NewInvalidStateError("Cannot retire a %s routing", r.Status)
	}
	r.Status = RoutingStatusObsolete
	r.Touch()
	return nil
}

// NewRevision copies the operations into a new DRAFT routing with the next
// revision number. The source routing is left untouched.
func (r *Routing) NewRevision() (*Routing, error) {
	if r.Status == RoutingStatusDraft {
		return nil, shared.NewInvalidStateError("Cannot revise a draft routing")
	}
	rev, err := NewRouting(r.TenantID, r.ProductID, r.Code, r.Name)
	if err != nil {
		return nil, err
	}
	rev.Revision = r.Revision + 1
	rev.Operations = append(rev.Operations, r.Operations...)
	return rev, nil
}

// TotalLeadTime is the time to produce quantity units: every setup once
// plus the run time per unit.
func (r *Routing) TotalLeadTime(quantity decimal.Decimal) time.Duration {
	minutes := decimal.Zero
	for _, op := range r.Operations {
		minutes = minutes.Add(op.SetupMinutes).Add(op.RunMinutes.Mul(quantity))
	}
	return time.Duration(minutes.Mul(decimal.NewFromInt(int64(time.Minute))).IntPart())
}
