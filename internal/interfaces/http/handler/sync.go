package handler

import (
	syncapp "github.com/feedsync/backend/internal/application/feedsync"
	"github.com/feedsync/backend/internal/domain/catalog"
	"github.com/feedsync/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// SyncHandler handles sync trigger and sync history endpoints
type SyncHandler struct {
	BaseHandler
	triggerService *syncapp.TriggerService
	queryService   *syncapp.SyncQueryService
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(triggerService *syncapp.TriggerService, queryService *syncapp.SyncQueryService) *SyncHandler {
	return &SyncHandler{
		triggerService: triggerService,
		queryService:   queryService,
	}
}

// SyncHistoryQuery filters sync history
type SyncHistoryQuery struct {
	dto.PageRequest
	Platform string `form:"platform" binding:"omitempty,ad_platform"`
}

// TriggerSync validates the catalog and enqueues a manual sync.
// An empty body syncs to the catalog's own platform.
// POST /catalogs/:id/sync
func (h *SyncHandler) TriggerSync(c *gin.Context) {
	merchantID, ok := h.requireMerchant(c)
	if !ok {
		return
	}
	catalogID, ok := h.parseID(c, "id", "catalog")
	if !ok {
		return
	}

	var req syncapp.TriggerSyncRequest
	if c.Request.ContentLength != 0 && !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.triggerService.TriggerSync(c.Request.Context(), merchantID, catalogID, catalog.AdPlatform(req.Platform))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Accepted(c, resp)
}

// Status returns the latest attempt per platform
// GET /catalogs/:id/sync/status
func (h *SyncHandler) Status(c *gin.Context) {
	merchantID, ok := h.requireMerchant(c)
	if !ok {
		return
	}
	catalogID, ok := h.parseID(c, "id", "catalog")
	if !ok {
		return
	}

	statuses, err := h.queryService.Status(c.Request.Context(), merchantID, catalogID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, statuses)
}

// History returns sync attempts newest first
// GET /catalogs/:id/sync/history?platform=&page=&page_size=
func (h *SyncHandler) History(c *gin.Context) {
	merchantID, ok := h.requireMerchant(c)
	if !ok {
		return
	}
	catalogID, ok := h.parseID(c, "id", "catalog")
	if !ok {
		return
	}

	var query SyncHistoryQuery
	if !h.bindQuery(c, &query) {
		return
	}
	filter := query.ToFilter()

	rows, total, err := h.queryService.History(c.Request.Context(), merchantID, catalogID, catalog.AdPlatform(query.Platform), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, rows, total, filter.Page, filter.PageSize)
}
