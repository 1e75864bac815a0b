package migrationapp

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stocker/backend/internal/domain/crm"
	"github.com/stocker/backend/internal/domain/inventory"
	"github.com/stocker/backend/internal/domain/migration"
	"github.com/stocker/backend/internal/domain/shared"
	csvimport "github.com/stocker/backend/internal/infrastructure/import"
)

// ImportOutcome says what happened to one record.
type ImportOutcome int

const (
	OutcomeCreated ImportOutcome = iota
	OutcomeUpdated
	OutcomeSkipped
)

// ImportTarget is what an importer writes into: the repositories of the
// chunk's transaction and the session's conflict policy.
type ImportTarget struct {
	Repos    TransactionalRepositories
	TenantID uuid.UUID
	UserID   *uuid.UUID
	Mode     migration.ConflictMode

	events []shared.DomainEvent
}

type eventSource interface {
	PullDomainEvents() []shared.DomainEvent
}

func (t *ImportTarget) collect(agg eventSource) {
	t.events = append(t.events, agg.PullDomainEvents()...)
}

// Events returns the domain events raised by imported aggregates.
func (t *ImportTarget) Events() []shared.DomainEvent {
	return t.events
}

// RecordImporter turns the transformed data of one validated record into a
// target aggregate. A *shared.DomainError fails only that record; any other
// error aborts the chunk.
type RecordImporter interface {
	Import(ctx context.Context, target *ImportTarget, data map[string]any) (ImportOutcome, error)
}

// DefaultImporters returns an importer for every supported entity type.
func DefaultImporters() map[migration.EntityType]RecordImporter {
	return map[migration.EntityType]RecordImporter{
		migration.EntityDeal:        DealImporter{},
		migration.EntityReorderRule: ReorderRuleImporter{},
	}
}

func errRecordExists(entity, key string) error {
	return shared.NewDomainErrorWithCause(shared.CodeAlreadyExists,
		fmt.Sprintf("%s %s already exists", entity, key), shared.ErrAlreadyExists)
}

// isRecordError reports whether err is confined to one record. A
// concurrency conflict is not: the failed statement poisons the chunk's
// transaction.
func isRecordError(err error) bool {
	var de *shared.DomainError
	return errors.As(err, &de) && !errors.Is(err, shared.ErrConcurrencyConflict)
}

// DealImporter creates deals keyed by external_ref.
type DealImporter struct{}

func (DealImporter) Import(ctx context.Context, t *ImportTarget, data map[string]any) (ImportOutcome, error) {
	ref := asString(data[colExternalRef])
	details, err := dealDetails(data)
	if err != nil {
		return 0, err
	}

	deal, err := t.Repos.Deals().FindByExternalRef(ctx, t.TenantID, ref)
	outcome := OutcomeUpdated
	switch {
	case errors.Is(err, shared.ErrNotFound):
		if deal, err = crm.NewDeal(t.TenantID, details); err != nil {
			return 0, err
		}
		deal.ExternalRef = ref
		if t.UserID != nil {
			deal.SetCreatedBy(*t.UserID)
		}
		outcome = OutcomeCreated
	case err != nil:
		return 0, err
	case t.Mode == migration.ConflictModeSkip:
		return OutcomeSkipped, nil
	case t.Mode == migration.ConflictModeFail:
		return 0, errRecordExists("deal", ref)
	default:
		if deal.IsClosed() {
			if err := deal.Reopen(); err != nil {
				return 0, err
			}
		}
		if err := deal.UpdateDetails(details); err != nil {
			return 0, err
		}
	}

	if err := applyDealState(deal, data); err != nil {
		return 0, err
	}
	if err := t.Repos.Deals().Save(ctx, deal); err != nil {
		return 0, err
	}
	t.collect(deal)
	return outcome, nil
}

func dealDetails(data map[string]any) (crm.DealDetails, error) {
	amount, err := asDecimal(data[colAmount])
	if err != nil {
		return crm.DealDetails{}, err
	}
	customerID, err := asUUIDPtr(data[colCustomerID])
	if err != nil {
		return crm.DealDetails{}, err
	}
	ownerID, err := asUUIDPtr(data[colOwnerID])
	if err != nil {
		return crm.DealDetails{}, err
	}
	closeDate, err := asDatePtr(data[colExpectedCloseDate])
	if err != nil {
		return crm.DealDetails{}, err
	}
	return crm.DealDetails{
		Title:             asString(data[colTitle]),
		CustomerID:        customerID,
		OwnerID:           ownerID,
		Amount:            amount,
		Currency:          asString(data[colCurrency]),
		ExpectedCloseDate: closeDate,
	}, nil
}

// applyDealState replays the source stage and outcome through the
// aggregate so its events and invariants hold.
func applyDealState(deal *crm.Deal, data map[string]any) error {
	probability, err := asInt(data[colProbability])
	if err != nil {
		return err
	}
	if stage := crm.DealStage(asString(data[colStage])); stage != "" {
		if err := deal.MoveToStage(stage, probability); err != nil {
			return err
		}
	}
	switch crm.DealStatus(asString(data[colStatus])) {
	case crm.DealStatusWon:
		return deal.Win()
	case crm.DealStatusLost:
		return deal.Lose(asString(data[colLostReason]))
	}
	return nil
}

// ReorderRuleImporter creates reorder rules keyed by product and warehouse.
type ReorderRuleImporter struct{}

func (ReorderRuleImporter) Import(ctx context.Context, t *ImportTarget, data map[string]any) (ImportOutcome, error) {
	productID, err := asUUIDPtr(data[colProductID])
	if err != nil {
		return 0, err
	}
	if productID == nil {
		return 0, shared.NewDomainError("INVALID_PRODUCT", "Product is required")
	}
	warehouseID, err := asUUIDPtr(data[colWarehouseID])
	if err != nil {
		return 0, err
	}
	levels, err := reorderLevels(data)
	if err != nil {
		return 0, err
	}

	rule, err := t.Repos.ReorderRules().FindByProduct(ctx, t.TenantID, *productID, warehouseID)
	outcome := OutcomeUpdated
	switch {
	case errors.Is(err, shared.ErrNotFound):
		if rule, err = inventory.NewReorderRule(t.TenantID, *productID, warehouseID, levels); err != nil {
			return 0, err
		}
		if t.UserID != nil {
			rule.SetCreatedBy(*t.UserID)
		}
		outcome = OutcomeCreated
	case err != nil:
		return 0, err
	case t.Mode == migration.ConflictModeSkip:
		return OutcomeSkipped, nil
	case t.Mode == migration.ConflictModeFail:
		return 0, errRecordExists("reorder rule for product", productID.String())
	default:
		if err := rule.Update(levels); err != nil {
			return 0, err
		}
	}

	if ref := asString(data[colExternalRef]); ref != "" {
		rule.ExternalRef = ref
	}
	if err := t.Repos.ReorderRules().Save(ctx, rule); err != nil {
		return 0, err
	}
	t.collect(rule)
	return outcome, nil
}

func reorderLevels(data map[string]any) (inventory.ReorderLevels, error) {
	var (
		l   inventory.ReorderLevels
		err error
	)
	if l.ReorderPoint, err = asDecimal(data[colReorderPoint]); err != nil {
		return l, err
	}
	if l.MaxQuantity, err = asDecimal(data[colMaxQuantity]); err != nil {
		return l, err
	}
	if l.ReorderQuantity, err = asDecimal(data[colReorderQuantity]); err != nil {
		return l, err
	}
	l.LeadTimeDays, err = asInt(data[colLeadTimeDays])
	return l, err
}

// Transformed data has been through a jsonb column by the time it is
// imported, so ints may come back as float64 or json.Number.

func asString(v any) string {
	return csvimport.Stringify(v)
}

func badValue(field string, v any) error {
	return shared.NewDomainError(shared.CodeInvalidInput, fmt.Sprintf("invalid %s value %q", field, asString(v)))
}

func asDecimal(v any) (decimal.Decimal, error) {
	s := asString(v)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, badValue("decimal", v)
	}
	return d, nil
}

func asInt(v any) (int, error) {
	s := asString(v)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, badValue("integer", v)
	}
	return n, nil
}

func asUUIDPtr(v any) (*uuid.UUID, error) {
	s := asString(v)
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, badValue("uuid", v)
	}
	return &id, nil
}

func asDatePtr(v any) (*time.Time, error) {
	s := asString(v)
	if s == "" {
		return nil, nil
	}
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, badValue("date", v)
	}
	return &d, nil
}
