package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stocker/backend/internal/domain/crm"
	"github.com/stocker/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDeal(t *testing.T, tenantID uuid.UUID) *crm.Deal {
	t.Helper()
	deal, err := crm.NewDeal(tenantID, crm.DealDetails{
		Title:    "Annual licence renewal",
		Amount:   decimal.NewFromInt(12000),
		Currency: "EUR",
	})
	require.NoError(t, err)
	return deal
}

func TestGormDealRepository_FindByID(t *testing.T) {
	t.Run("finds deal within tenant", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewGormDealRepository(db)
		tenantID, dealID := uuid.New(), uuid.New()

		rows := sqlmock.NewRows([]string{"id", "tenant_id", "version", "title", "stage", "amount", "currency", "status"}).
			AddRow(dealID, tenantID, 3, "Fleet deal", "PROPOSAL", "2500.5", "TRY", "OPEN")
		mock.ExpectQuery(`SELECT \* FROM "deals" WHERE tenant_id = \$1 AND id = \$2 ORDER BY .* LIMIT .*`).
			WithArgs(tenantID, dealID, 1).
			WillReturnRows(rows)

		deal, err := repo.FindByID(context.Background(), tenantID, dealID)
		require.NoError(t, err)
		assert.Equal(t, dealID, deal.ID)
		assert.Equal(t, 3, deal.Version)
		assert.Equal(t, crm.DealStageProposal, deal.Stage)
		assert.True(t, deal.Amount.Equal(decimal.RequireFromString("2500.5")))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps missing row to ErrNotFound", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewGormDealRepository(db)

		mock.ExpectQuery(`SELECT \* FROM "deals" WHERE tenant_id = \$1 AND id = \$2`).
			WillReturnError(gorm.ErrRecordNotFound)

		deal, err := repo.FindByID(context.Background(), uuid.New(), uuid.New())
		assert.Nil(t, deal)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormDealRepository_FindByExternalRef(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormDealRepository(db)
	tenantID := uuid.New()

	_, err := repo.FindByExternalRef(context.Background(), tenantID, "")
	assert.ErrorIs(t, err, shared.ErrNotFound, "blank refs never match")

	rows := sqlmock.NewRows([]string{"id", "tenant_id", "title", "external_ref"}).
		AddRow(uuid.New(), tenantID, "Imported", "LOGO-0042")
	mock.ExpectQuery(`SELECT \* FROM "deals" WHERE tenant_id = \$1 AND external_ref = \$2`).
		WithArgs(tenantID, "LOGO-0042", 1).
		WillReturnRows(rows)

	deal, err := repo.FindByExternalRef(context.Background(), tenantID, "LOGO-0042")
	require.NoError(t, err)
	assert.Equal(t, "LOGO-0042", deal.ExternalRef)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormDealRepository_FindAll(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormDealRepository(db)
	tenantID := uuid.New()

	mock.ExpectQuery(`SELECT count\(\*\) FROM "deals" WHERE tenant_id = \$1 AND status = \$2 AND stage = \$3`).
		WithArgs(tenantID, crm.DealStatusOpen, crm.DealStageProposal).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(`SELECT \* FROM "deals" WHERE tenant_id = \$1 AND status = \$2 AND stage = \$3 ORDER BY amount ASC LIMIT`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "title"}).
			AddRow(uuid.New(), tenantID, "A").
			AddRow(uuid.New(), tenantID, "B"))

	filter := crm.DealFilter{
		Filter: shared.Filter{Page: 1, PageSize: 10, OrderBy: "amount", OrderDir: "asc"},
		Status: crm.DealStatusOpen,
		Stage:  crm.DealStageProposal,
	}
	deals, total, err := repo.FindAll(context.Background(), tenantID, filter)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, deals, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormDealRepository_FindAll_RejectsUnknownSortField(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormDealRepository(db)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "deals"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT \* FROM "deals" WHERE tenant_id = \$1 ORDER BY created_at DESC`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	filter := crm.DealFilter{Filter: shared.Filter{OrderBy: "amount;DROP TABLE deals", OrderDir: "sideways"}}
	_, _, err := repo.FindAll(context.Background(), uuid.New(), filter)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormDealRepository_Save(t *testing.T) {
	t.Run("updates the stored version and bumps it", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewGormDealRepository(db)
		deal := newTestDeal(t, uuid.New())
		deal.Version = 4

		mock.ExpectExec(`UPDATE "deals" SET .* WHERE tenant_id = \$\d+ AND version = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Save(context.Background(), deal))
		assert.Equal(t, 5, deal.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("inserts a new deal at its initial version", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewGormDealRepository(db)
		deal := newTestDeal(t, uuid.New())

		mock.ExpectExec(`UPDATE "deals" SET`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`INSERT INTO "deals"`).WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Save(context.Background(), deal))
		assert.Equal(t, 1, deal.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports a stale version as a conflict", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewGormDealRepository(db)
		deal := newTestDeal(t, uuid.New())
		deal.Version = 2

		mock.ExpectExec(`UPDATE "deals" SET`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`INSERT INTO "deals"`).
			WillReturnError(errors.New(`ERROR: duplicate key value violates unique constraint "deals_pkey" (SQLSTATE 23505)`))

		err := repo.Save(context.Background(), deal)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
		assert.Equal(t, 2, deal.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormDealRepository_Delete(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormDealRepository(db)
	tenantID, dealID := uuid.New(), uuid.New()

	mock.ExpectExec(`DELETE FROM "deals" WHERE tenant_id = \$1 AND id = \$2`).
		WithArgs(tenantID, dealID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Delete(context.Background(), tenantID, dealID))

	mock.ExpectExec(`DELETE FROM "deals"`).WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Delete(context.Background(), tenantID, dealID), shared.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
