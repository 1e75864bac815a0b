// Package testutil holds helpers shared by the Stocker test suites: a
// sqlmock-backed gorm handle, tenant scoped contexts, polling assertions,
// an event recorder and a small client for the HTTP API.
package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stocker/backend/internal/infrastructure/logger"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// MockDB is a gorm handle whose SQL goes to sqlmock.
type MockDB struct {
	DB    *gorm.DB
	Mock  sqlmock.Sqlmock
	SqlDB *sql.DB
}

// NewMockDB opens a postgres-dialect gorm handle over sqlmock. Expectations
// are verified and the connection closed when the test ends.
func NewMockDB(t *testing.T) *MockDB {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB, DriverName: "postgres"}), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	m := &MockDB{DB: db, Mock: mock, SqlDB: sqlDB}
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet(), "unmet database expectations")
		_ = sqlDB.Close()
	})
	return m
}

// NewTestUUID derives a stable UUID from seed.
func NewTestUUID(seed string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("stocker-test/"+seed))
}

func TestTenantID() uuid.UUID { return NewTestUUID("tenant") }

func TestUserID() uuid.UUID { return NewTestUUID("user") }

// TenantContext carries the tenant the way the HTTP tenant middleware and the
// job workers do, so the gorm tenant callback scopes queries to it.
func TenantContext(tenantID uuid.UUID) context.Context {
	return logger.WithTenantID(context.Background(), tenantID.String())
}

// RequireEventually polls condition on the calling goroutine until it holds
// or timeout elapses. Unlike require.Eventually the condition may use t.
func RequireEventually(t *testing.T, condition func() bool, timeout, interval time.Duration, msgAndArgs ...any) {
	t.Helper()

	if WaitForCondition(condition, timeout, interval) {
		return
	}
	require.Fail(t, "condition not met within "+timeout.String(), msgAndArgs...)
}

// WaitForCondition reports whether condition held before timeout.
func WaitForCondition(condition func() bool, timeout, interval time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if condition() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(interval)
	}
}
