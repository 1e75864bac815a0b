package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSortOrder(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string returns DESC", "", "DESC"},
		{"ASC uppercase returns ASC", "ASC", "ASC"},
		{"asc lowercase returns ASC", "asc", "ASC"},
		{"invalid value returns DESC", "sideways", "DESC"},
		{"injection attempt returns DESC", "ASC; DROP TABLE deals;--", "DESC"},
		{"whitespace around asc returns ASC", "  asc  ", "ASC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateSortOrder(tt.input))
		})
	}
}

func TestValidateSortField(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"whitelisted field", "amount", "amount"},
		{"trimmed field", " title ", "title"},
		{"empty falls back", "", "created_at"},
		{"unknown falls back", "password", "created_at"},
		{"injection falls back", "amount; DELETE FROM deals", "created_at"},
		{"case sensitive", "AMOUNT", "created_at"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateSortField(tt.input, DealSortFields, "created_at"))
		})
	}
}

func TestSortFieldWhitelists(t *testing.T) {
	lists := map[string]map[string]bool{
		"sessions":      SessionSortFields,
		"results":       ValidationResultSortFields,
		"deals":         DealSortFields,
		"payslips":      PayslipSortFields,
		"reorder rules": ReorderRuleSortFields,
		"routings":      RoutingSortFields,
	}
	for name, fields := range lists {
		t.Run(name, func(t *testing.T) {
			assert.NotEmpty(t, fields)
			for field := range fields {
				assert.Regexp(t, `^[a-z_]+$`, field)
			}
		})
	}
}
