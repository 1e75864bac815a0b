// Package tenant scopes GORM statements to the tenant of the request.
//
// Repositories apply Scope explicitly with the tenant they were given.
// The Callback registered by Register adds the same filter to any
// statement whose context carries a tenant ID but which forgot the clause.
package tenant

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/stocker/backend/internal/infrastructure/logger"
	"gorm.io/gorm"
)

const Column = "tenant_id"

var (
	// ErrTenantIDRequired is returned when a statement needs a tenant and the
	// context has none.
	ErrTenantIDRequired = errors.New("tenant_id is required but not found in context")
	ErrInvalidTenantID  = errors.New("invalid tenant_id format")
)

// Scope filters a statement to tenantID.
func Scope(tenantID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(Column+" = ?", tenantID)
	}
}

// FromContext parses the tenant ID stored in ctx by the tenant middleware or
// the job worker.
func FromContext(ctx context.Context) (uuid.UUID, error) {
	raw := logger.GetTenantID(ctx)
	if raw == "" {
		return uuid.Nil, ErrTenantIDRequired
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, ErrInvalidTenantID
	}
	return id, nil
}

// WithContext returns db bound to ctx and scoped to its tenant. A missing or
// malformed tenant poisons the returned DB so every operation fails.
func WithContext(ctx context.Context, db *gorm.DB) *gorm.DB {
	tx := db.WithContext(ctx)
	id, err := FromContext(ctx)
	if err != nil {
		_ = tx.AddError(err)
		return tx
	}
	return tx.Scopes(Scope(id))
}
