package catalog

import (
	"context"

	"github.com/feedsync/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// CatalogRepository defines the interface for catalog persistence
type CatalogRepository interface {
	// FindByIDForMerchant loads a catalog with its items, scoped to the owning merchant
	FindByIDForMerchant(ctx context.Context, merchantID, id uuid.UUID) (*Catalog, error)

	// FindAllForMerchant lists a merchant's catalogs without their items
	FindAllForMerchant(ctx context.Context, merchantID uuid.UUID, filter shared.Filter) ([]Catalog, int64, error)

	// FindSyncEnabled returns every catalog flagged for scheduled sync that targets a platform
	FindSyncEnabled(ctx context.Context) ([]Catalog, error)

	// FindByProductIDs returns the merchant's catalogs that reference any of the products
	FindByProductIDs(ctx context.Context, merchantID uuid.UUID, productIDs []string) ([]Catalog, error)

	// Create inserts a new catalog and its items
	Create(ctx context.Context, catalog *Catalog) error

	// Update saves catalog fields, failing with ErrCatalogVersionConflict on a stale version
	Update(ctx context.Context, catalog *Catalog) error

	// SaveItem inserts an item or updates the overrides of the existing (catalog, product) item
	SaveItem(ctx context.Context, item *CatalogProductItem) error

	// DeleteItem removes a product from a catalog
	DeleteItem(ctx context.Context, catalogID uuid.UUID, productID string) error

	// DeleteForMerchant deletes a catalog together with its items and sync history
	DeleteForMerchant(ctx context.Context, merchantID, id uuid.UUID) error
}

// ProductRepository defines the interface for product persistence
type ProductRepository interface {
	// FindByIDs returns the merchant's products with the given source identifiers.
	// Unknown identifiers are omitted from the result.
	FindByIDs(ctx context.Context, merchantID uuid.UUID, ids []string) ([]Product, error)

	// SaveBatch upserts products; the last write wins
	SaveBatch(ctx context.Context, products []*Product) error
}
