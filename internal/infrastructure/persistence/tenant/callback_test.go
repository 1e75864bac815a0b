package tenant

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stocker/backend/internal/infrastructure/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type note struct {
	ID       uuid.UUID `gorm:"primaryKey"`
	TenantID uuid.UUID
	Body     string
}

type setting struct {
	Key   string `gorm:"primaryKey"`
	Value string
}

func setupSQLite(t *testing.T, required bool) (*gorm.DB, uuid.UUID, uuid.UUID) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&note{}, &setting{}))

	tenantA, tenantB := uuid.New(), uuid.New()
	require.NoError(t, db.Create([]note{
		{ID: uuid.New(), TenantID: tenantA, Body: "a1"},
		{ID: uuid.New(), TenantID: tenantA, Body: "a2"},
		{ID: uuid.New(), TenantID: tenantB, Body: "b1"},
	}).Error)
	require.NoError(t, db.Create(&setting{Key: "k", Value: "v"}).Error)

	require.NoError(t, NewCallback("", required).Register(db))
	return db, tenantA, tenantB
}

func ctxFor(tenantID uuid.UUID) context.Context {
	return logger.WithTenantID(context.Background(), tenantID.String())
}

func TestCallback_FiltersByContextTenant(t *testing.T) {
	db, tenantA, tenantB := setupSQLite(t, false)

	var notes []note
	require.NoError(t, db.WithContext(ctxFor(tenantA)).Find(&notes).Error)
	assert.Len(t, notes, 2)

	var count int64
	require.NoError(t, db.WithContext(ctxFor(tenantB)).Model(&note{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCallback_UpdateAndDeleteStayInTenant(t *testing.T) {
	db, tenantA, tenantB := setupSQLite(t, false)

	res := db.WithContext(ctxFor(tenantB)).Model(&note{}).Where("body LIKE ?", "%").Update("body", "changed")
	require.NoError(t, res.Error)
	assert.Equal(t, int64(1), res.RowsAffected)

	res = db.WithContext(ctxFor(tenantB)).Where("1 = 1").Delete(&note{})
	require.NoError(t, res.Error)
	assert.Equal(t, int64(1), res.RowsAffected)

	var remaining int64
	require.NoError(t, db.WithContext(ctxFor(tenantA)).Model(&note{}).Count(&remaining).Error)
	assert.Equal(t, int64(2), remaining)
}

func TestCallback_ExplicitScopeIsKept(t *testing.T) {
	db, tenantA, tenantB := setupSQLite(t, true)

	// Context says A, explicit scope says B: the explicit clause wins and no
	// second filter is added, so the query is not forced empty.
	var notes []note
	require.NoError(t, db.WithContext(ctxFor(tenantA)).Scopes(Scope(tenantB)).Find(&notes).Error)
	require.Len(t, notes, 1)
	assert.Equal(t, "b1", notes[0].Body)
}

func TestCallback_Required(t *testing.T) {
	db, _, _ := setupSQLite(t, true)

	var notes []note
	err := db.WithContext(context.Background()).Find(&notes).Error
	assert.ErrorIs(t, err, ErrTenantIDRequired)

	bad := logger.WithTenantID(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, db.WithContext(bad).Find(&notes).Error, ErrInvalidTenantID)

	// Tables without a tenant column are not affected.
	var settings []setting
	require.NoError(t, db.WithContext(context.Background()).Find(&settings).Error)
	assert.Len(t, settings, 1)

	// Unscoped bypasses the filter for system work.
	require.NoError(t, db.WithContext(context.Background()).Unscoped().Find(&notes).Error)
	assert.Len(t, notes, 3)
}

func TestCallback_Unregister(t *testing.T) {
	db, _, _ := setupSQLite(t, true)
	NewCallback("", true).Unregister(db)

	var notes []note
	require.NoError(t, db.WithContext(context.Background()).Find(&notes).Error)
	assert.Len(t, notes, 3)
}
