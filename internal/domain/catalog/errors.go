package catalog

import "github.com/feedsync/backend/internal/domain/shared"

var (
	ErrCatalogNotFound        = shared.NewDomainError(shared.CodeNotFound, "catalog not found")
	ErrProductNotFound        = shared.NewDomainError(shared.CodeNotFound, "product not found")
	ErrCatalogItemNotFound    = shared.NewDomainError(shared.CodeNotFound, "catalog item not found")
	ErrInvalidCatalog         = shared.NewDomainError(shared.CodeValidation, "invalid catalog")
	ErrInvalidFeedSettings    = shared.NewDomainError(shared.CodeValidation, "invalid feed settings")
	ErrInvalidOutOfStockRule  = shared.NewDomainError(shared.CodeValidation, "invalid out-of-stock rule")
	ErrInvalidProduct         = shared.NewDomainError(shared.CodeValidation, "invalid product")
	ErrCatalogVersionConflict = shared.NewDomainError(shared.CodeConflict, "catalog was modified concurrently")
)
