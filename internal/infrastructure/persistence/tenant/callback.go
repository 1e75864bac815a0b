package tenant

import (
	"strings"

	"github.com/google/uuid"
	"github.com/stocker/backend/internal/infrastructure/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Callback adds a tenant filter to queries, updates and deletes.
type Callback struct {
	column   string
	required bool
}

// NewCallback creates a tenant callback. With required set, a statement
// whose context has no tenant fails with ErrTenantIDRequired; otherwise it
// runs unfiltered.
func NewCallback(column string, required bool) *Callback {
	if column == "" {
		column = Column
	}
	return &Callback{column: column, required: required}
}

// Register installs the callback on db. Create is not covered: new rows
// carry their tenant explicitly.
func (tc *Callback) Register(db *gorm.DB) error {
	cb := db.Callback()
	if err := cb.Query().Before("gorm:query").Register("tenant:before_query", tc.addTenantFilter); err != nil {
		return err
	}
	if err := cb.Update().Before("gorm:update").Register("tenant:before_update", tc.addTenantFilter); err != nil {
		return err
	}
	if err := cb.Delete().Before("gorm:delete").Register("tenant:before_delete", tc.addTenantFilter); err != nil {
		return err
	}
	return cb.Row().Before("gorm:row").Register("tenant:before_row", tc.addTenantFilter)
}

// Unregister removes the callbacks. Used by tests.
func (tc *Callback) Unregister(db *gorm.DB) {
	cb := db.Callback()
	_ = cb.Query().Remove("tenant:before_query")
	_ = cb.Update().Remove("tenant:before_update")
	_ = cb.Delete().Remove("tenant:before_delete")
	_ = cb.Row().Remove("tenant:before_row")
}

func (tc *Callback) addTenantFilter(db *gorm.DB) {
	if db.Statement.Context == nil || db.Statement.Unscoped {
		return
	}
	if db.Statement.Schema != nil && db.Statement.Schema.LookUpField(tc.column) == nil {
		return
	}
	if tc.hasTenantCondition(db) {
		return
	}

	raw := logger.GetTenantID(db.Statement.Context)
	if raw == "" {
		if tc.required {
			_ = db.AddError(ErrTenantIDRequired)
		}
		return
	}
	if _, err := uuid.Parse(raw); err != nil {
		_ = db.AddError(ErrInvalidTenantID)
		return
	}

	db.Statement.AddClause(clause.Where{
		Exprs: []clause.Expression{
			clause.Eq{
				Column: clause.Column{Table: clause.CurrentTable, Name: tc.column},
				Value:  raw,
			},
		},
	})
}

func (tc *Callback) hasTenantCondition(db *gorm.DB) bool {
	c, ok := db.Statement.Clauses["WHERE"]
	if !ok {
		return false
	}
	where, ok := c.Expression.(clause.Where)
	if !ok {
		return false
	}
	for _, expr := range where.Exprs {
		if tc.exprMentionsTenant(expr) {
			return true
		}
	}
	return false
}

func (tc *Callback) exprMentionsTenant(expr clause.Expression) bool {
	switch e := expr.(type) {
	case clause.Eq:
		return columnName(e.Column) == tc.column
	case clause.IN:
		return columnName(e.Column) == tc.column
	case clause.Expr:
		return strings.Contains(e.SQL, tc.column)
	case clause.NamedExpr:
		return strings.Contains(e.SQL, tc.column)
	case clause.AndConditions:
		for _, c := range e.Exprs {
			if tc.exprMentionsTenant(c) {
				return true
			}
		}
	case clause.OrConditions:
		for _, c := range e.Exprs {
			if tc.exprMentionsTenant(c) {
				return true
			}
		}
	}
	return false
}

func columnName(col any) string {
	switch c := col.(type) {
	case clause.Column:
		return c.Name
	case string:
		return c
	}
	return ""
}
