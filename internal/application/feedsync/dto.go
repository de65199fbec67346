package feedsync

import (
	"encoding/json"
	"time"

	"github.com/feedsync/backend/internal/domain/feedsync"
	"github.com/google/uuid"
)

// GenerateFeedResponse is the result of on-demand feed generation
type GenerateFeedResponse struct {
	FeedURL   string `json:"feed_url"`
	Format    string `json:"format"`
	ItemCount int    `json:"item_count"`
}

// TriggerSyncRequest requests a manual sync. An empty platform uses the catalog's platform.
type TriggerSyncRequest struct {
	Platform string `json:"platform" binding:"omitempty,ad_platform"`
}

// TriggerSyncResponse acknowledges an enqueued sync
type TriggerSyncResponse struct {
	CatalogID   uuid.UUID `json:"catalog_id"`
	Platform    string    `json:"platform"`
	TriggerType string    `json:"trigger_type"`
}

// ProductUpdateRequest is one inventory delta in an ingestion request
type ProductUpdateRequest struct {
	ExternalID   string  `json:"external_id" binding:"required,min=1,max=255"`
	Stock        *int    `json:"stock"`
	Availability *string `json:"availability" binding:"omitempty,oneof=in_stock out_of_stock preorder backorder"`
}

// IngestionRequest is an inventory change event.
// The merchant comes from the request scope.
type IngestionRequest struct {
	ProductUpdates []ProductUpdateRequest `json:"product_updates" binding:"required,min=1,max=1000,dive"`
}

// IngestionReceipt acknowledges an accepted change event
type IngestionReceipt struct {
	Accepted  bool `json:"accepted"`
	Duplicate bool `json:"duplicate"`
	Updates   int  `json:"updates"`
}

// IngestionResult summarizes an applied change event
type IngestionResult struct {
	Updated   int
	Unmatched []string
	Enqueued  int
}

// PlatformSyncStatusResponse is the latest attempt on one platform
type PlatformSyncStatusResponse struct {
	Platform    string    `json:"platform"`
	LastAttempt time.Time `json:"last_attempt"`
	Status      string    `json:"status"`
	HistoryID   uuid.UUID `json:"history_id"`
}

// SyncHistoryResponse represents one sync attempt in API responses
type SyncHistoryResponse struct {
	ID            uuid.UUID       `json:"id"`
	CatalogID     uuid.UUID       `json:"catalog_id"`
	AdPlatform    string          `json:"ad_platform"`
	TriggerType   string          `json:"trigger_type"`
	Status        string          `json:"status"`
	SyncStartedAt time.Time       `json:"sync_started_at"`
	SyncEndedAt   *time.Time      `json:"sync_ended_at,omitempty"`
	ErrorMessage  string          `json:"error_message,omitempty"`
	ErrorCode     string          `json:"error_code,omitempty"`
	Details       json.RawMessage `json:"details,omitempty"`
	Retries       int             `json:"retries"`
}

// ToSyncHistoryResponse converts a history row to its response
func ToSyncHistoryResponse(h *feedsync.SyncHistory) SyncHistoryResponse {
	resp := SyncHistoryResponse{
		ID:            h.ID,
		CatalogID:     h.CatalogID,
		AdPlatform:    h.AdPlatform.String(),
		TriggerType:   h.TriggerType.String(),
		Status:        h.Status.String(),
		SyncStartedAt: h.SyncStartedAt,
		SyncEndedAt:   h.SyncEndedAt,
		ErrorMessage:  h.ErrorMessage,
		ErrorCode:     h.ErrorCode,
		Retries:       h.Retries,
	}
	if h.Details != nil {
		if raw, err := json.Marshal(h.Details); err == nil {
			resp.Details = raw
		}
	}
	return resp
}
