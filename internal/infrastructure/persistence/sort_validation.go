package persistence

import (
	"strings"

	"github.com/feedsync/backend/internal/domain/shared"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
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

// CatalogSortFields contains allowed sort fields for catalogs
var CatalogSortFields = map[string]bool{
	"id":          true,
	"created_at":  true,
	"updated_at":  true,
	"name":        true,
	"ad_platform": true,
}

// orderClause builds a safe ORDER BY clause from a filter
func orderClause(filter shared.Filter, allowed map[string]bool, defaultField string) string {
	return ValidateSortField(filter.OrderBy, allowed, defaultField) + " " + ValidateSortOrder(filter.OrderDir)
}
