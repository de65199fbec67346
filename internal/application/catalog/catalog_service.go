package catalog

import (
	"context"
	"fmt"

	"github.com/feedsync/backend/internal/domain/catalog"
	"github.com/feedsync/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// CatalogService handles catalog and catalog item operations for merchants
type CatalogService struct {
	catalogRepo catalog.CatalogRepository
	productRepo catalog.ProductRepository
}

// NewCatalogService creates a new CatalogService
func NewCatalogService(catalogRepo catalog.CatalogRepository, productRepo catalog.ProductRepository) *CatalogService {
	return &CatalogService{
		catalogRepo: catalogRepo,
		productRepo: productRepo,
	}
}

// Create creates a new catalog
func (s *CatalogService) Create(ctx context.Context, merchantID uuid.UUID, req CreateCatalogRequest) (*CatalogResponse, error) {
	settings := catalog.DefaultFeedSettings()
	if req.FeedFormat != "" || req.CustomFileName != "" {
		format := catalog.FeedFormat(req.FeedFormat)
		if format == "" {
			format = settings.Format
		}
		var err error
		if settings, err = catalog.NewFeedSettings(format, req.CustomFileName); err != nil {
			return nil, err
		}
	}

	rule := catalog.DefaultOutOfStockRule()
	if req.StockHandling != "" {
		var err error
		if rule, err = catalog.NewOutOfStockRule(catalog.StockHandling(req.StockHandling), req.TemporaryAllowanceDays); err != nil {
			return nil, err
		}
	}

	c, err := catalog.NewCatalog(merchantID, req.Name, catalog.AdPlatform(req.AdPlatform), settings, rule)
	if err != nil {
		return nil, err
	}
	if req.Description != "" {
		if err := c.Update(req.Name, req.Description); err != nil {
			return nil, err
		}
	}
	if req.SyncEnabled {
		c.EnableSync()
	}

	if err := s.catalogRepo.Create(ctx, c); err != nil {
		return nil, err
	}

	response := ToCatalogResponse(c)
	return &response, nil
}

// GetByID returns a catalog with its items
func (s *CatalogService) GetByID(ctx context.Context, merchantID, id uuid.UUID) (*CatalogResponse, error) {
	c, err := s.catalogRepo.FindByIDForMerchant(ctx, merchantID, id)
	if err != nil {
		return nil, err
	}
	response := ToCatalogResponse(c)
	return &response, nil
}

// List returns a page of the merchant's catalogs
func (s *CatalogService) List(ctx context.Context, merchantID uuid.UUID, filter shared.Filter) ([]CatalogListResponse, int64, error) {
	catalogs, total, err := s.catalogRepo.FindAllForMerchant(ctx, merchantID, filter.Normalize())
	if err != nil {
		return nil, 0, err
	}
	return ToCatalogListResponses(catalogs), total, nil
}

// Update applies a partial update guarded by the catalog version
func (s *CatalogService) Update(ctx context.Context, merchantID, id uuid.UUID, req UpdateCatalogRequest) (*CatalogResponse, error) {
	c, err := s.catalogRepo.FindByIDForMerchant(ctx, merchantID, id)
	if err != nil {
		return nil, err
	}
	if req.Version != c.Version {
		return nil, fmt.Errorf("%w: expected version %d, got %d", catalog.ErrCatalogVersionConflict, c.Version, req.Version)
	}

	if req.Name != nil || req.Description != nil {
		name, description := c.Name, c.Description
		if req.Name != nil {
			name = *req.Name
		}
		if req.Description != nil {
			description = *req.Description
		}
		if err := c.Update(name, description); err != nil {
			return nil, err
		}
	}

	if req.AdPlatform != nil {
		if err := c.SetAdPlatform(catalog.AdPlatform(*req.AdPlatform)); err != nil {
			return nil, err
		}
	}

	if req.FeedFormat != nil || req.CustomFileName != nil {
		format, fileName := c.FeedSettings.Format, c.FeedSettings.CustomFileName
		if req.FeedFormat != nil {
			format = catalog.FeedFormat(*req.FeedFormat)
		}
		if req.CustomFileName != nil {
			fileName = *req.CustomFileName
		}
		settings, err := catalog.NewFeedSettings(format, fileName)
		if err != nil {
			return nil, err
		}
		c.ChangeFeedSettings(settings)
	}

	if req.StockHandling != nil || req.TemporaryAllowanceDays != nil {
		handling, days := c.OutOfStockRule.Handling, c.OutOfStockRule.TemporaryAllowanceDays
		if req.StockHandling != nil {
			handling = catalog.StockHandling(*req.StockHandling)
		}
		if req.TemporaryAllowanceDays != nil {
			days = *req.TemporaryAllowanceDays
		}
		rule, err := catalog.NewOutOfStockRule(handling, days)
		if err != nil {
			return nil, err
		}
		c.ChangeOutOfStockRule(rule)
	}

	if req.SyncEnabled != nil {
		if *req.SyncEnabled {
			c.EnableSync()
		} else {
			c.DisableSync()
		}
	}

	if err := s.catalogRepo.Update(ctx, c); err != nil {
		return nil, err
	}

	response := ToCatalogResponse(c)
	return &response, nil
}

// Delete removes a catalog with its items and sync history
func (s *CatalogService) Delete(ctx context.Context, merchantID, id uuid.UUID) error {
	return s.catalogRepo.DeleteForMerchant(ctx, merchantID, id)
}

// AddItem adds a product to a catalog. Adding a product already in the
// catalog updates its overrides; created reports which case applied.
func (s *CatalogService) AddItem(ctx context.Context, merchantID, catalogID uuid.UUID, req AddItemRequest) (*CatalogItemResponse, bool, error) {
	c, err := s.catalogRepo.FindByIDForMerchant(ctx, merchantID, catalogID)
	if err != nil {
		return nil, false, err
	}

	products, err := s.productRepo.FindByIDs(ctx, merchantID, []string{req.ProductID})
	if err != nil {
		return nil, false, err
	}
	if len(products) == 0 {
		return nil, false, fmt.Errorf("%w: %s", catalog.ErrProductNotFound, req.ProductID)
	}

	item, created, err := c.AddItem(req.ProductID, req.CustomTitle, req.CustomDescription)
	if err != nil {
		return nil, false, err
	}
	if err := s.catalogRepo.SaveItem(ctx, item); err != nil {
		return nil, false, err
	}

	response := ToCatalogItemResponse(item)
	return &response, created, nil
}

// RemoveItem removes a product from a catalog
func (s *CatalogService) RemoveItem(ctx context.Context, merchantID, catalogID uuid.UUID, productID string) error {
	c, err := s.catalogRepo.FindByIDForMerchant(ctx, merchantID, catalogID)
	if err != nil {
		return err
	}
	if _, err := c.RemoveItem(productID); err != nil {
		return err
	}
	return s.catalogRepo.DeleteItem(ctx, catalogID, productID)
}
