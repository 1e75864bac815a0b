package tenant

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stocker/backend/internal/infrastructure/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContext(t *testing.T) {
	_, err := FromContext(context.Background())
	assert.ErrorIs(t, err, ErrTenantIDRequired)

	_, err = FromContext(logger.WithTenantID(context.Background(), "nope"))
	assert.ErrorIs(t, err, ErrInvalidTenantID)

	id := uuid.New()
	got, err := FromContext(logger.WithTenantID(context.Background(), id.String()))
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestWithContext(t *testing.T) {
	db, tenantA, _ := setupSQLite(t, false)

	var notes []note
	require.NoError(t, WithContext(ctxFor(tenantA), db).Find(&notes).Error)
	assert.Len(t, notes, 2)

	err := WithContext(context.Background(), db).Find(&notes).Error
	assert.ErrorIs(t, err, ErrTenantIDRequired)
}
