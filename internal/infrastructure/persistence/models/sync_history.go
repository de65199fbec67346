package models

import (
	"encoding/json"
	"time"

	"github.com/feedsync/backend/internal/domain/catalog"
	"github.com/feedsync/backend/internal/domain/feedsync"
	"github.com/google/uuid"
)

// SyncHistoryModel is the persistence model for one sync attempt
type SyncHistoryModel struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key"`
	CatalogID     uuid.UUID `gorm:"type:uuid;not null;index:idx_sync_history_catalog_platform"`
	AdPlatform    string    `gorm:"type:varchar(50);not null;index:idx_sync_history_catalog_platform"`
	TriggerType   string    `gorm:"type:varchar(50);not null"`
	Status        string    `gorm:"type:varchar(30);not null;index"`
	SyncStartedAt time.Time `gorm:"not null;index:idx_sync_history_catalog_platform"`
	SyncEndedAt   *time.Time
	ErrorMessage  string  `gorm:"type:text"`
	ErrorCode     string  `gorm:"type:varchar(50)"`
	Details       *string `gorm:"type:jsonb"`
	Retries       int     `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SyncHistoryModel) TableName() string {
	return "sync_history"
}

// ToDomain converts the persistence model to a domain SyncHistory.
// Unreadable details are dropped rather than failing the read.
func (m *SyncHistoryModel) ToDomain() *feedsync.SyncHistory {
	h := &feedsync.SyncHistory{
		ID:            m.ID,
		CatalogID:     m.CatalogID,
		AdPlatform:    catalog.AdPlatform(m.AdPlatform),
		TriggerType:   feedsync.TriggerType(m.TriggerType),
		Status:        feedsync.SyncStatus(m.Status),
		SyncStartedAt: m.SyncStartedAt,
		SyncEndedAt:   m.SyncEndedAt,
		ErrorMessage:  m.ErrorMessage,
		ErrorCode:     m.ErrorCode,
		Retries:       m.Retries,
	}
	if m.Details != nil {
		var details feedsync.SyncDetails
		if err := json.Unmarshal([]byte(*m.Details), &details); err == nil {
			h.Details = &details
		}
	}
	return h
}

// SyncHistoryModelFromDomain creates a new persistence model from a domain SyncHistory
func SyncHistoryModelFromDomain(h *feedsync.SyncHistory) (*SyncHistoryModel, error) {
	m := &SyncHistoryModel{
		ID:            h.ID,
		CatalogID:     h.CatalogID,
		AdPlatform:    string(h.AdPlatform),
		TriggerType:   string(h.TriggerType),
		Status:        string(h.Status),
		SyncStartedAt: h.SyncStartedAt,
		SyncEndedAt:   h.SyncEndedAt,
		ErrorMessage:  h.ErrorMessage,
		ErrorCode:     h.ErrorCode,
		Retries:       h.Retries,
	}
	if h.Details != nil {
		raw, err := json.Marshal(h.Details)
		if err != nil {
			return nil, err
		}
		details := string(raw)
		m.Details = &details
	}
	return m, nil
}
