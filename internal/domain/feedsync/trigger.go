package feedsync

import (
	"github.com/feedsync/backend/internal/domain/catalog"
	"github.com/google/uuid"
)

// TriggerType records why a sync attempt was started
type TriggerType string

const (
	TriggerManualSync        TriggerType = "MANUAL_SYNC"
	TriggerWebhookUpdate     TriggerType = "WEBHOOK_PRODUCT_UPDATE"
	TriggerScheduledEnqueued TriggerType = "SCHEDULED_SYNC_JOB_ENQUEUED"
)

// IsValid returns true if the trigger type is a known value
func (t TriggerType) IsValid() bool {
	switch t {
	case TriggerManualSync, TriggerWebhookUpdate, TriggerScheduledEnqueued:
		return true
	default:
		return false
	}
}

func (t TriggerType) String() string {
	return string(t)
}

// SyncTrigger is a unit of sync work handed to the trigger transport
type SyncTrigger struct {
	CatalogID   uuid.UUID          `json:"catalog_id"`
	MerchantID  uuid.UUID          `json:"merchant_id"`
	AdPlatform  catalog.AdPlatform `json:"ad_platform"`
	TriggerType TriggerType        `json:"trigger_type"`
	// WebhookPayload carries an inventory change to ingest instead of a direct sync request
	WebhookPayload *IngestionPayload `json:"webhook_payload,omitempty"`
}

// IngestionPayload is an inbound inventory change event
type IngestionPayload struct {
	MerchantID     uuid.UUID       `json:"merchant_id"`
	ProductUpdates []ProductUpdate `json:"product_updates"`
}

// ProductUpdate is a stock or availability delta for one source product
type ProductUpdate struct {
	ExternalID   string                `json:"external_id"`
	Stock        *int                  `json:"stock,omitempty"`
	Availability *catalog.Availability `json:"availability,omitempty"`
}
