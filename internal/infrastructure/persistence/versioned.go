package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/stocker/backend/internal/domain/shared"
	"github.com/stocker/backend/internal/infrastructure/persistence/tenant"
	"gorm.io/gorm"
)

// saveVersioned writes an aggregate row with optimistic locking.
//
// It first updates the row stored at the aggregate's current version and
// bumps the version. If no row matched, the aggregate is new and is
// inserted; a primary-key clash on insert means another writer got there
// first. version points at the model's Version field.
func saveVersioned(ctx context.Context, db *gorm.DB, model any, agg shared.AggregateRoot, tenantID uuid.UUID, version *int) error {
	loaded := agg.GetVersion()
	*version = loaded + 1

	res := db.WithContext(ctx).
		Model(model).
		Scopes(tenant.Scope(tenantID)).
		Where("version = ?", loaded).
		Select("*").
		Omit("id", "tenant_id", "created_at", "created_by").
		Updates(model)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		agg.IncrementVersion()
		return nil
	}

	*version = loaded
	if err := db.WithContext(ctx).Create(model).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.ErrConcurrencyConflict
		}
		return err
	}
	return nil
}

// isUniqueViolation matches both the translated GORM error and the raw
// PostgreSQL message, since TranslateError is off in some test setups.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "SQLSTATE 23505")
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}
	return err
}

// applyPaging orders and pages a listing. The sort column is checked
// against allowed before it reaches SQL.
func applyPaging(q *gorm.DB, f shared.Filter, allowed map[string]bool, defaultField string) *gorm.DB {
	f = f.Normalize()
	field := ValidateSortField(f.OrderBy, allowed, defaultField)
	return q.Order(field + " " + ValidateSortOrder(f.OrderDir)).
		Offset(f.Offset()).
		Limit(f.PageSize)
}
