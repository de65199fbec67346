package handler

import (
	catalogapp "github.com/feedsync/backend/internal/application/catalog"
	syncapp "github.com/feedsync/backend/internal/application/feedsync"
	"github.com/gin-gonic/gin"
)

// IdempotencyKeyHeader lets merchants retry change events safely
const IdempotencyKeyHeader = "Idempotency-Key"

// maxIdempotencyKeyLength bounds the client-supplied key
const maxIdempotencyKeyLength = 255

// IngestionHandler handles product change events and bulk product imports
type IngestionHandler struct {
	BaseHandler
	ingestionService *syncapp.ChangeIngestionService
	importService    *catalogapp.ProductImportService
}

// NewIngestionHandler creates a new IngestionHandler
func NewIngestionHandler(ingestionService *syncapp.ChangeIngestionService, importService *catalogapp.ProductImportService) *IngestionHandler {
	return &IngestionHandler{
		ingestionService: ingestionService,
		importService:    importService,
	}
}

// SubmitProductUpdates validates an inventory change event and enqueues it.
// POST /ingestion/product-updates
func (h *IngestionHandler) SubmitProductUpdates(c *gin.Context) {
	merchantID, ok := h.requireMerchant(c)
	if !ok {
		return
	}

	key := c.GetHeader(IdempotencyKeyHeader)
	if len(key) > maxIdempotencyKeyLength {
		h.BadRequest(c, "Idempotency-Key is too long")
		return
	}

	var req syncapp.IngestionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	receipt, err := h.ingestionService.Submit(c.Request.Context(), syncapp.PayloadFromRequest(merchantID, req), key)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Accepted(c, receipt)
}

// ImportProducts upserts full product records for the merchant
// PUT /products
func (h *IngestionHandler) ImportProducts(c *gin.Context) {
	merchantID, ok := h.requireMerchant(c)
	if !ok {
		return
	}

	var req catalogapp.ImportProductsRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.importService.UpsertProducts(c.Request.Context(), merchantID, req.Products)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
