package catalog

import (
	"time"

	"github.com/feedsync/backend/internal/domain/catalog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateCatalogRequest represents a request to create a catalog
type CreateCatalogRequest struct {
	Name                   string `json:"name" binding:"required,min=1,max=200"`
	Description            string `json:"description" binding:"max=2000"`
	AdPlatform             string `json:"ad_platform" binding:"omitempty,ad_platform"`
	FeedFormat             string `json:"feed_format" binding:"omitempty,feed_format"`
	CustomFileName         string `json:"custom_file_name" binding:"max=100"`
	StockHandling          string `json:"stock_handling" binding:"omitempty,stock_handling"`
	TemporaryAllowanceDays int    `json:"temporary_allowance_days" binding:"min=0,max=365"`
	SyncEnabled            bool   `json:"sync_enabled"`
}

// UpdateCatalogRequest represents a partial catalog update.
// Version must match the stored catalog.
type UpdateCatalogRequest struct {
	Name                   *string `json:"name" binding:"omitempty,min=1,max=200"`
	Description            *string `json:"description" binding:"omitempty,max=2000"`
	AdPlatform             *string `json:"ad_platform" binding:"omitempty,ad_platform"`
	FeedFormat             *string `json:"feed_format" binding:"omitempty,feed_format"`
	CustomFileName         *string `json:"custom_file_name" binding:"omitempty,max=100"`
	StockHandling          *string `json:"stock_handling" binding:"omitempty,stock_handling"`
	TemporaryAllowanceDays *int    `json:"temporary_allowance_days" binding:"omitempty,min=0,max=365"`
	SyncEnabled            *bool   `json:"sync_enabled"`
	Version                int     `json:"version" binding:"min=0"`
}

// AddItemRequest adds a product to a catalog or updates its overrides
type AddItemRequest struct {
	ProductID         string  `json:"product_id" binding:"required,min=1,max=255"`
	CustomTitle       *string `json:"custom_title" binding:"omitempty,max=500"`
	CustomDescription *string `json:"custom_description" binding:"omitempty,max=5000"`
}

// ProductInput is one full product record in a bulk import
type ProductInput struct {
	ID           string          `json:"id" binding:"required,min=1,max=255"`
	Title        string          `json:"title" binding:"required,min=1,max=500"`
	Description  string          `json:"description" binding:"max=5000"`
	Price        decimal.Decimal `json:"price"`
	Currency     string          `json:"currency" binding:"required,len=3"`
	Availability string          `json:"availability" binding:"required,oneof=in_stock out_of_stock preorder backorder"`
	StockLevel   int             `json:"stock_level"`
	ImageURL     string          `json:"image_url" binding:"omitempty,url"`
	ProductURL   string          `json:"product_url" binding:"omitempty,url"`
	Brand        string          `json:"brand" binding:"max=200"`
	GTIN         string          `json:"gtin" binding:"max=50"`
	MPN          string          `json:"mpn" binding:"max=100"`
	Category     string          `json:"category" binding:"max=500"`
}

// ImportProductsRequest is a bulk product upsert
type ImportProductsRequest struct {
	Products []ProductInput `json:"products" binding:"required,min=1,max=1000,dive"`
}

// ImportProductsResult summarizes a bulk upsert
type ImportProductsResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
}

// CatalogItemResponse represents a catalog item in API responses
type CatalogItemResponse struct {
	ID                uuid.UUID `json:"id"`
	ProductID         string    `json:"product_id"`
	CustomTitle       *string   `json:"custom_title,omitempty"`
	CustomDescription *string   `json:"custom_description,omitempty"`
	AddedAt           time.Time `json:"added_at"`
}

// CatalogResponse represents a catalog with its items
type CatalogResponse struct {
	ID                     uuid.UUID             `json:"id"`
	MerchantID             uuid.UUID             `json:"merchant_id"`
	Name                   string                `json:"name"`
	Description            string                `json:"description"`
	AdPlatform             string                `json:"ad_platform,omitempty"`
	FeedFormat             string                `json:"feed_format"`
	CustomFileName         string                `json:"custom_file_name,omitempty"`
	StockHandling          string                `json:"stock_handling"`
	TemporaryAllowanceDays int                   `json:"temporary_allowance_days,omitempty"`
	SyncEnabled            bool                  `json:"sync_enabled"`
	Items                  []CatalogItemResponse `json:"items"`
	CreatedAt              time.Time             `json:"created_at"`
	UpdatedAt              time.Time             `json:"updated_at"`
	Version                int                   `json:"version"`
}

// CatalogListResponse represents a catalog in list responses
type CatalogListResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	AdPlatform  string    `json:"ad_platform,omitempty"`
	FeedFormat  string    `json:"feed_format"`
	SyncEnabled bool      `json:"sync_enabled"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ToCatalogResponse converts a domain Catalog to CatalogResponse
func ToCatalogResponse(c *catalog.Catalog) CatalogResponse {
	items := make([]CatalogItemResponse, 0, len(c.Items))
	for _, item := range c.Items {
		items = append(items, ToCatalogItemResponse(&item))
	}
	return CatalogResponse{
		ID:                     c.ID,
		MerchantID:             c.MerchantID,
		Name:                   c.Name,
		Description:            c.Description,
		AdPlatform:             c.AdPlatform.String(),
		FeedFormat:             c.FeedSettings.Format.String(),
		CustomFileName:         c.FeedSettings.CustomFileName,
		StockHandling:          c.OutOfStockRule.Handling.String(),
		TemporaryAllowanceDays: c.OutOfStockRule.TemporaryAllowanceDays,
		SyncEnabled:            c.SyncEnabled,
		Items:                  items,
		CreatedAt:              c.CreatedAt,
		UpdatedAt:              c.UpdatedAt,
		Version:                c.Version,
	}
}

// ToCatalogItemResponse converts a catalog item to its response
func ToCatalogItemResponse(item *catalog.CatalogProductItem) CatalogItemResponse {
	return CatalogItemResponse{
		ID:                item.ID,
		ProductID:         item.ProductID,
		CustomTitle:       item.CustomTitle,
		CustomDescription: item.CustomDescription,
		AddedAt:           item.AddedAt,
	}
}

// ToCatalogListResponses converts catalogs to list responses
func ToCatalogListResponses(catalogs []catalog.Catalog) []CatalogListResponse {
	out := make([]CatalogListResponse, len(catalogs))
	for i, c := range catalogs {
		out[i] = CatalogListResponse{
			ID:          c.ID,
			Name:        c.Name,
			AdPlatform:  c.AdPlatform.String(),
			FeedFormat:  c.FeedSettings.Format.String(),
			SyncEnabled: c.SyncEnabled,
			UpdatedAt:   c.UpdatedAt,
		}
	}
	return out
}

func (in ProductInput) toDomain(merchantID uuid.UUID) *catalog.Product {
	return &catalog.Product{
		ID:           in.ID,
		MerchantID:   merchantID,
		Title:        in.Title,
		Description:  in.Description,
		Price:        in.Price,
		Currency:     in.Currency,
		Availability: catalog.Availability(in.Availability),
		StockLevel:   in.StockLevel,
		ImageURL:     in.ImageURL,
		ProductURL:   in.ProductURL,
		Brand:        in.Brand,
		GTIN:         in.GTIN,
		MPN:          in.MPN,
		Category:     in.Category,
	}
}
