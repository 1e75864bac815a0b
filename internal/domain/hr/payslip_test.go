package hr

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stocker/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	periodStart = time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	periodEnd   = time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC)
)

func newTestPayslip(t *testing.T) *Payslip {
	t.Helper()
	p, err := NewPayslip(uuid.New(), uuid.New(), "PS-2026-09-001", periodStart, periodEnd, decimal.NewFromInt(30000), "")
	require.NoError(t, err)
	return p
}

func TestNewPayslip(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		p := newTestPayslip(t)
		assert.Equal(t, PayslipStatusDraft, p.Status)
		assert.Equal(t, "TRY", p.Currency)
		assert.True(t, p.NetPay.Equal(decimal.NewFromInt(30000)))
	})

	tests := []struct {
		name     string
		employee uuid.UUID
		number   string
		start    time.Time
		end      time.Time
		salary   decimal.Decimal
		wantCode string
	}{
		{"no employee", uuid.Nil, "PS-1", periodStart, periodEnd, decimal.Zero, "INVALID_EMPLOYEE"},
		{"no number", uuid.New(), " ", periodStart, periodEnd, decimal.Zero, "INVALID_NUMBER"},
		{"inverted period", uuid.New(), "PS-1", periodEnd, periodStart, decimal.Zero, "INVALID_PERIOD"},
		{"negative salary", uuid.New(), "PS-1", periodStart, periodEnd, decimal.NewFromInt(-5), "INVALID_SALARY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPayslip(uuid.New(), tt.employee, tt.number, tt.start, tt.end, tt.salary, "TRY")
			assert.Equal(t, tt.wantCode, shared.CodeOf(err))
		})
	}
}

func TestPayslip_Lines(t *testing.T) {
	p := newTestPayslip(t)

	_, err := p.AddLine(LineKindEarning, "overtime", "Overtime", decimal.NewFromInt(2500))
	require.NoError(t, err)
	tax, err := p.AddLine(LineKindDeduction, "TAX", "Income tax", decimal.NewFromInt(4500))
	require.NoError(t, err)
	assert.Equal(t, "OVERTIME", p.Lines[0].Code)

	assert.True(t, p.GrossPay.Equal(decimal.NewFromInt(32500)))
	assert.True(t, p.TotalDeductions.Equal(decimal.NewFromInt(4500)))
	assert.True(t, p.NetPay.Equal(decimal.NewFromInt(28000)))

	require.NoError(t, p.RemoveLine(tax.ID))
	assert.True(t, p.NetPay.Equal(decimal.NewFromInt(32500)))
	assert.ErrorIs(t, p.RemoveLine(uuid.New()), shared.ErrNotFound)

	_, err = p.AddLine("BONUS", "X", "", decimal.NewFromInt(1))
	assert.Equal(t, "INVALID_LINE_KIND", shared.CodeOf(err))
	_, err = p.AddLine(LineKindEarning, "X", "", decimal.Zero)
	assert.Equal(t, "INVALID_AMOUNT", shared.CodeOf(err))
}

func TestPayslip_Finalize(t *testing.T) {
	t.Run("draft to finalized", func(t *testing.T) {
		p := newTestPayslip(t)
		require.NoError(t, p.Finalize())
		assert.Equal(t, PayslipStatusFinalized, p.Status)
		assert.NotNil(t, p.FinalizedAt)
		require.Len(t, p.GetDomainEvents(), 1)
		assert.Equal(t, EventTypePayslipFinalized, p.GetDomainEvents()[0].EventType())

		_, err := p.AddLine(LineKindEarning, "X", "", decimal.NewFromInt(1))
		assert.ErrorIs(t, err, shared.ErrInvalidState)
		assert.ErrorIs(t, p.Finalize(), shared.ErrInvalidState)
	})

	t.Run("cannot finalize a paid payslip", func(t *testing.T) {
		p := newTestPayslip(t)
		require.NoError(t, p.Finalize())
		require.NoError(t, p.MarkPaid("TRX-1"))

		err := p.Finalize()
		assert.ErrorIs(t, err, shared.ErrInvalidState)
		assert.Contains(t, err.Error(), "paid")
	})

	t.Run("cannot finalize cancelled", func(t *testing.T) {
		p := newTestPayslip(t)
		require.NoError(t, p.Cancel("duplicate"))
		assert.ErrorIs(t, p.Finalize(), shared.ErrInvalidState)
	})

	t.Run("negative net pay", func(t *testing.T) {
		p := newTestPayslip(t)
		_, err := p.AddLine(LineKindDeduction, "ADV", "Advance", decimal.NewFromInt(40000))
		require.NoError(t, err)
		assert.Equal(t, "NEGATIVE_NET_PAY", shared.CodeOf(p.Finalize()))
		assert.Equal(t, PayslipStatusDraft, p.Status)
	})
}

func TestPayslip_PaymentAndCancel(t *testing.T) {
	p := newTestPayslip(t)
	assert.ErrorIs(t, p.MarkPaid("TRX"), shared.ErrInvalidState)

	require.NoError(t, p.Finalize())
	require.NoError(t, p.RevertToDraft())
	assert.Equal(t, PayslipStatusDraft, p.Status)
	assert.Nil(t, p.FinalizedAt)

	require.NoError(t, p.Finalize())
	require.NoError(t, p.MarkPaid(" TRX-42 "))
	assert.Equal(t, PayslipStatusPaid, p.Status)
	assert.Equal(t, "TRX-42", p.PaymentReference)

	assert.ErrorIs(t, p.Cancel("oops"), shared.ErrInvalidState)
	assert.ErrorIs(t, p.RevertToDraft(), shared.ErrInvalidState)
}
