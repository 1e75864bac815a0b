package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stocker/backend/internal/domain/hr"
	"github.com/stocker/backend/internal/domain/migration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToJSON_EmptyValuesNeverNull(t *testing.T) {
	var issues []migration.Issue
	assert.Equal(t, "[]", string(toJSON(issues, "[]")))

	var data map[string]any
	assert.Equal(t, "{}", string(toJSON(data, "{}")))
}

func TestMigrationValidationResultModel_PreservesJSONColumns(t *testing.T) {
	tenantID := uuid.New()
	session, err := migration.NewMigrationSession(tenantID, "Q3 import", migration.SourceCSV,
		[]migration.EntityType{migration.EntityDeal}, migration.SessionOptions{})
	require.NoError(t, err)
	chunk, err := migration.NewMigrationChunk(session, migration.EntityDeal, 0, 1, 1, "k", "c")
	require.NoError(t, err)

	result := migration.NewValidationResult(chunk, 0,
		map[string]any{"Title": " Big deal "},
		map[string]any{"title": "Big deal"},
		[]migration.Issue{{Field: "amount", Code: "REQUIRED", Message: "amount is required"}},
		nil,
	)

	model := MigrationValidationResultModelFromDomain(result)
	assert.JSONEq(t, `[]`, string(model.Warnings))

	back := model.ToDomain()
	assert.Equal(t, result.ID, back.ID)
	assert.Equal(t, tenantID, back.TenantID)
	assert.Equal(t, "Big deal", back.TransformedData["title"])
	assert.Equal(t, migration.RecordStatusError, back.Status)
	require.Len(t, back.Errors, 1)
	assert.Equal(t, "REQUIRED", back.Errors[0].Code)
	assert.Empty(t, back.Warnings)
}

func TestPayslipModel_KeepsVersionAndLines(t *testing.T) {
	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	p, err := hr.NewPayslip(uuid.New(), uuid.New(), "PS-2026-09-001", start, start.AddDate(0, 1, -1), decimal.NewFromInt(50000), "TRY")
	require.NoError(t, err)
	_, err = p.AddLine(hr.LineKindDeduction, "SGK", "social security", decimal.NewFromInt(7000))
	require.NoError(t, err)
	p.Version = 4

	back := PayslipModelFromDomain(p).ToDomain()
	assert.Equal(t, 4, back.Version)
	require.Len(t, back.Lines, 1)
	assert.True(t, back.NetPay.Equal(p.NetPay))
	assert.True(t, back.Lines[0].Amount.Equal(decimal.NewFromInt(7000)))
}
