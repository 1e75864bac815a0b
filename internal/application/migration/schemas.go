package migrationapp

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/stocker/backend/internal/domain/crm"
	"github.com/stocker/backend/internal/domain/migration"
	csvimport "github.com/stocker/backend/internal/infrastructure/import"
)

// Columns shared by more than one place.
const (
	colExternalRef = "external_ref"

	colTitle             = "title"
	colCustomerID        = "customer_id"
	colOwnerID           = "owner_id"
	colStage             = "stage"
	colAmount            = "amount"
	colCurrency          = "currency"
	colProbability       = "probability"
	colExpectedCloseDate = "expected_close_date"
	colStatus            = "status"
	colLostReason        = "lost_reason"

	colProductID       = "product_id"
	colWarehouseID     = "warehouse_id"
	colReorderPoint    = "reorder_point"
	colMaxQuantity     = "max_quantity"
	colReorderQuantity = "reorder_quantity"
	colLeadTimeDays    = "lead_time_days"
)

// ErrCodeImportInconsistent flags values that are valid alone but
// contradict another field of the same record.
const ErrCodeImportInconsistent = "ERR_IMPORT_INCONSISTENT"

// EntitySchema is the field schema of one entity type plus the checks that
// span more than one field.
type EntitySchema struct {
	*csvimport.Schema
	crossCheck func(data map[string]any) []migration.Issue
}

// Check runs the field rules, then the cross-field checks on the coerced
// data when the fields themselves were fine.
func (s *EntitySchema) Check(rec map[string]any, uniq *csvimport.UniqueIndex, owner string) csvimport.Outcome {
	out := s.Schema.Check(rec, uniq, owner)
	if len(out.Errors) == 0 && s.crossCheck != nil {
		out.Errors = append(out.Errors, s.crossCheck(out.Data)...)
	}
	return out
}

// Schemas maps each supported entity type to its schema.
type Schemas map[migration.EntityType]*EntitySchema

// DefaultSchemas returns the schemas of every entity type an importer
// exists for.
func DefaultSchemas() Schemas {
	return Schemas{
		migration.EntityDeal:        dealSchema(),
		migration.EntityReorderRule: reorderRuleSchema(),
	}
}

// For returns the schema of entityType.
func (s Schemas) For(entityType migration.EntityType) (*EntitySchema, error) {
	schema, ok := s[entityType]
	if !ok {
		return nil, fmt.Errorf("no schema for entity type %s", entityType)
	}
	return schema, nil
}

func dealSchema() *EntitySchema {
	zero := decimal.Zero
	return &EntitySchema{
		Schema: csvimport.NewSchema(migration.EntityDeal,
			csvimport.Field(colExternalRef).Required().MaxLength(64).Unique(),
			csvimport.Field(colTitle).Required().MaxLength(200).Truncate(),
			csvimport.Field(colCustomerID).UUID(),
			csvimport.Field(colOwnerID).UUID(),
			csvimport.Field(colStage).Enum(
				string(crm.DealStageProspecting),
				string(crm.DealStageQualification),
				string(crm.DealStageProposal),
				string(crm.DealStageNegotiation),
			),
			csvimport.Field(colAmount).Decimal().MinValue(zero),
			csvimport.Field(colCurrency).Length(3, 3),
			csvimport.Field(colProbability).Int().Range(zero, decimal.NewFromInt(100)),
			csvimport.Field(colExpectedCloseDate).Date(),
			csvimport.Field(colStatus).Enum(
				string(crm.DealStatusOpen),
				string(crm.DealStatusWon),
				string(crm.DealStatusLost),
			),
			csvimport.Field(colLostReason).MaxLength(500),
		),
		crossCheck: func(data map[string]any) []migration.Issue {
			if data[colStatus] == string(crm.DealStatusLost) && asString(data[colLostReason]) == "" {
				return []migration.Issue{{
					Field:   colLostReason,
					Code:    csvimport.ErrCodeImportRequiredField,
					Message: "a lost deal needs a lost_reason",
				}}
			}
			return nil
		},
	}
}

func reorderRuleSchema() *EntitySchema {
	zero := decimal.Zero
	return &EntitySchema{
		Schema: csvimport.NewSchema(migration.EntityReorderRule,
			csvimport.Field(colExternalRef).MaxLength(64).Unique(),
			csvimport.Field(colProductID).Required().UUID(),
			csvimport.Field(colWarehouseID).UUID(),
			csvimport.Field(colReorderPoint).Required().Decimal().MinValue(zero),
			csvimport.Field(colMaxQuantity).Required().Decimal().MinValue(zero),
			csvimport.Field(colReorderQuantity).Decimal().MinValue(zero),
			csvimport.Field(colLeadTimeDays).Int().Range(zero, decimal.NewFromInt(365)),
		),
		crossCheck: func(data map[string]any) []migration.Issue {
			point, err1 := decimal.NewFromString(asString(data[colReorderPoint]))
			maxQty, err2 := decimal.NewFromString(asString(data[colMaxQuantity]))
			if err1 != nil || err2 != nil || maxQty.GreaterThan(point) {
				return nil
			}
			return []migration.Issue{{
				Field:   colMaxQuantity,
				Code:    ErrCodeImportInconsistent,
				Message: "max_quantity must be greater than reorder_point",
				Value:   maxQty.String(),
			}}
		},
	}
}
