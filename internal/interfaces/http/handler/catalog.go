package handler

import (
	catalogapp "github.com/feedsync/backend/internal/application/catalog"
	syncapp "github.com/feedsync/backend/internal/application/feedsync"
	"github.com/feedsync/backend/internal/domain/catalog"
	"github.com/feedsync/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// CatalogHandler handles catalog and catalog item endpoints
type CatalogHandler struct {
	BaseHandler
	catalogService *catalogapp.CatalogService
	feedService    *syncapp.FeedService
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(catalogService *catalogapp.CatalogService, feedService *syncapp.FeedService) *CatalogHandler {
	return &CatalogHandler{
		catalogService: catalogService,
		feedService:    feedService,
	}
}

// GenerateFeedQuery selects the feed format; empty uses the catalog setting
type GenerateFeedQuery struct {
	Format string `form:"format" binding:"omitempty,feed_format"`
}

// Create creates a catalog for the merchant
// POST /catalogs
func (h *CatalogHandler) Create(c *gin.Context) {
	merchantID, ok := h.requireMerchant(c)
	if !ok {
		return
	}

	var req catalogapp.CreateCatalogRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.catalogService.Create(c.Request.Context(), merchantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// List returns the merchant's catalogs
// GET /catalogs?page=&page_size=&search=
func (h *CatalogHandler) List(c *gin.Context) {
	merchantID, ok := h.requireMerchant(c)
	if !ok {
		return
	}

	var page dto.PageRequest
	if !h.bindQuery(c, &page) {
		return
	}
	filter := page.ToFilter()

	catalogs, total, err := h.catalogService.List(c.Request.Context(), merchantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, catalogs, total, filter.Page, filter.PageSize)
}

// Get returns one catalog with its items
// GET /catalogs/:id
func (h *CatalogHandler) Get(c *gin.Context) {
	merchantID, ok := h.requireMerchant(c)
	if !ok {
		return
	}
	catalogID, ok := h.parseID(c, "id", "catalog")
	if !ok {
		return
	}

	resp, err := h.catalogService.GetByID(c.Request.Context(), merchantID, catalogID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Update applies a partial, version-checked catalog update
// PUT /catalogs/:id
func (h *CatalogHandler) Update(c *gin.Context) {
	merchantID, ok := h.requireMerchant(c)
	if !ok {
		return
	}
	catalogID, ok := h.parseID(c, "id", "catalog")
	if !ok {
		return
	}

	var req catalogapp.UpdateCatalogRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.catalogService.Update(c.Request.Context(), merchantID, catalogID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Delete removes a catalog and its items
// DELETE /catalogs/:id
func (h *CatalogHandler) Delete(c *gin.Context) {
	merchantID, ok := h.requireMerchant(c)
	if !ok {
		return
	}
	catalogID, ok := h.parseID(c, "id", "catalog")
	if !ok {
		return
	}

	if err := h.catalogService.Delete(c.Request.Context(), merchantID, catalogID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// AddItem adds a product to the catalog, or updates its overrides when present.
// Returns 201 for a new item and 200 for an update.
// PUT /catalogs/:id/items
func (h *CatalogHandler) AddItem(c *gin.Context) {
	merchantID, ok := h.requireMerchant(c)
	if !ok {
		return
	}
	catalogID, ok := h.parseID(c, "id", "catalog")
	if !ok {
		return
	}

	var req catalogapp.AddItemRequest
	if !h.bindJSON(c, &req) {
		return
	}

	item, created, err := h.catalogService.AddItem(c.Request.Context(), merchantID, catalogID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if created {
		h.Created(c, item)
		return
	}
	h.Success(c, item)
}

// RemoveItem removes a product from the catalog
// DELETE /catalogs/:id/items/:product_id
func (h *CatalogHandler) RemoveItem(c *gin.Context) {
	merchantID, ok := h.requireMerchant(c)
	if !ok {
		return
	}
	catalogID, ok := h.parseID(c, "id", "catalog")
	if !ok {
		return
	}

	productID := c.Param("product_id")
	if productID == "" {
		h.BadRequest(c, "Product ID is required")
		return
	}

	if err := h.catalogService.RemoveItem(c.Request.Context(), merchantID, catalogID, productID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// GenerateFeed renders the catalog feed and uploads it without submitting
// it to any platform
// POST /catalogs/:id/feed?format=
func (h *CatalogHandler) GenerateFeed(c *gin.Context) {
	merchantID, ok := h.requireMerchant(c)
	if !ok {
		return
	}
	catalogID, ok := h.parseID(c, "id", "catalog")
	if !ok {
		return
	}

	var query GenerateFeedQuery
	if !h.bindQuery(c, &query) {
		return
	}

	resp, err := h.feedService.GenerateFeed(c.Request.Context(), merchantID, catalogID, catalog.FeedFormat(query.Format))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
