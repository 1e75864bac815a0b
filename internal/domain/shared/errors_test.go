package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Is(t *testing.T) {
	t.Run("matches sentinel by code", func(t *testing.T) {
		err := NewDomainError(CodeNotFound, "deal not found")
		assert.True(t, errors.Is(err, ErrNotFound))
		assert.False(t, errors.Is(err, ErrInvalidState))
	})

	t.Run("matches through wrapping", func(t *testing.T) {
		err := fmt.Errorf("load deal: %w", NewInvalidStateError("deal is %s", "WON"))
		assert.True(t, errors.Is(err, ErrInvalidState))
		assert.Equal(t, CodeInvalidState, CodeOf(err))
	})

	t.Run("unwraps cause", func(t *testing.T) {
		cause := errors.New("connection reset")
		err := NewDomainErrorWithCause(CodeInvalidInput, "bad payload", cause)
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, "bad payload: connection reset", err.Error())
	})

	t.Run("code of plain error is empty", func(t *testing.T) {
		assert.Equal(t, "", CodeOf(errors.New("boom")))
	})
}

func TestFilter_Normalize(t *testing.T) {
	tests := []struct {
		name     string
		in       Filter
		page     int
		pageSize int
		dir      string
	}{
		{"zero values", Filter{}, 1, DefaultPageSize, "desc"},
		{"page size capped", Filter{Page: 3, PageSize: 1000, OrderDir: "asc"}, 3, MaxPageSize, "asc"},
		{"unknown direction", Filter{Page: 2, PageSize: 10, OrderDir: "sideways"}, 2, 10, "desc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := tt.in.Normalize()
			assert.Equal(t, tt.page, f.Page)
			assert.Equal(t, tt.pageSize, f.PageSize)
			assert.Equal(t, tt.dir, f.OrderDir)
			assert.Equal(t, (tt.page-1)*tt.pageSize, f.Offset())
		})
	}
}

func TestNewPaginated(t *testing.T) {
	p := NewPaginated([]int{1, 2, 3}, 41, 1, 20)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, int64(41), p.Total)

	empty := NewPaginated([]int{}, 0, 1, 0)
	assert.Equal(t, 0, empty.TotalPages)
	assert.Equal(t, DefaultPageSize, empty.PageSize)
}

func TestTenantAggregateRoot(t *testing.T) {
	root := NewTenantAggregateRoot([16]byte{1})
	assert.Equal(t, 1, root.GetVersion())
	assert.True(t, root.BelongsTo([16]byte{1}))

	root.AddDomainEvent(&BaseDomainEvent{Type: "Test"})
	events := root.PullDomainEvents()
	assert.Len(t, events, 1)
	assert.Empty(t, root.GetDomainEvents())
}
