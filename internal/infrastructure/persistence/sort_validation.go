package persistence

import (
	"strings"
)

// ValidateSortOrder normalizes a sort direction to ASC or DESC, defaulting
// to DESC.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField returns sortField when it is whitelisted, otherwise
// defaultField. Column names cannot be bound as parameters, so every
// ORDER BY goes through here.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

var SessionSortFields = map[string]bool{
	"created_at":    true,
	"updated_at":    true,
	"name":          true,
	"status":        true,
	"total_records": true,
	"completed_at":  true,
}

var ValidationResultSortFields = map[string]bool{
	"record_index": true,
	"entity_type":  true,
	"status":       true,
	"created_at":   true,
}

var DealSortFields = map[string]bool{
	"created_at":          true,
	"updated_at":          true,
	"title":               true,
	"amount":              true,
	"stage":               true,
	"probability":         true,
	"expected_close_date": true,
}

var PayslipSortFields = map[string]bool{
	"created_at":     true,
	"payslip_number": true,
	"period_start":   true,
	"net_pay":        true,
	"status":         true,
}

var ReorderRuleSortFields = map[string]bool{
	"created_at":        true,
	"updated_at":        true,
	"reorder_point":     true,
	"last_triggered_at": true,
}

var RoutingSortFields = map[string]bool{
	"created_at": true,
	"code":       true,
	"name":       true,
	"revision":   true,
	"status":     true,
}
