package feedsync

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/feedsync/backend/internal/domain/catalog"
	"github.com/feedsync/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// SyncStatus represents the state of one sync attempt
type SyncStatus string

const (
	SyncStatusPending        SyncStatus = "PENDING"
	SyncStatusInProgress     SyncStatus = "IN_PROGRESS"
	SyncStatusSuccess        SyncStatus = "SUCCESS"
	SyncStatusFailed         SyncStatus = "FAILED"
	SyncStatusPartialSuccess SyncStatus = "PARTIAL_SUCCESS"
	SyncStatusQuarantined    SyncStatus = "QUARANTINED"
)

// IsValid returns true if the status is a known value
func (s SyncStatus) IsValid() bool {
	switch s {
	case SyncStatusPending, SyncStatusInProgress, SyncStatusSuccess,
		SyncStatusFailed, SyncStatusPartialSuccess, SyncStatusQuarantined:
		return true
	default:
		return false
	}
}

// IsTerminal returns true once an attempt has been finalized
func (s SyncStatus) IsTerminal() bool {
	switch s {
	case SyncStatusSuccess, SyncStatusFailed, SyncStatusPartialSuccess, SyncStatusQuarantined:
		return true
	default:
		return false
	}
}

func (s SyncStatus) String() string {
	return string(s)
}

var (
	ErrSyncHistoryFinalized = shared.NewDomainError(shared.CodeConflict, "sync history already finalized")
	ErrInvalidTransition    = shared.NewDomainError(shared.CodeConflict, "invalid sync status transition")
)

// SyncDetails is the structured payload recorded with a finalized attempt
type SyncDetails struct {
	TriggerType      TriggerType     `json:"trigger_type,omitempty"`
	FeedURL          string          `json:"feed_url,omitempty"`
	FeedFormat       string          `json:"feed_format,omitempty"`
	ItemCount        int             `json:"item_count"`
	ItemsRejected    int             `json:"items_rejected,omitempty"`
	PlatformResponse json.RawMessage `json:"platform_response,omitempty"`
	Transient        *bool           `json:"transient,omitempty"`
}

// SyncHistory is the audit record of one sync attempt. It is created when
// the attempt starts and updated exactly once to a terminal status.
type SyncHistory struct {
	ID            uuid.UUID
	CatalogID     uuid.UUID
	AdPlatform    catalog.AdPlatform
	TriggerType   TriggerType
	Status        SyncStatus
	SyncStartedAt time.Time
	SyncEndedAt   *time.Time
	ErrorMessage  string
	ErrorCode     string
	Details       *SyncDetails
	Retries       int
}

// NewSyncHistory creates a PENDING history row for a new attempt
func NewSyncHistory(catalogID uuid.UUID, platform catalog.AdPlatform, trigger TriggerType) *SyncHistory {
	return &SyncHistory{
		ID:            uuid.New(),
		CatalogID:     catalogID,
		AdPlatform:    platform,
		TriggerType:   trigger,
		Status:        SyncStatusPending,
		SyncStartedAt: time.Now().UTC(),
	}
}

// Start moves the attempt into IN_PROGRESS
func (h *SyncHistory) Start() error {
	if h.Status != SyncStatusPending {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, h.Status, SyncStatusInProgress)
	}
	h.Status = SyncStatusInProgress
	return nil
}

// Succeed finalizes the attempt as SUCCESS, or PARTIAL_SUCCESS when the
// platform rejected some items
func (h *SyncHistory) Succeed(retries int, details *SyncDetails) error {
	status := SyncStatusSuccess
	if details != nil && details.ItemsRejected > 0 {
		status = SyncStatusPartialSuccess
	}
	return h.finalize(status, retries, details, "", "")
}

// Fail finalizes the attempt as FAILED
func (h *SyncHistory) Fail(retries int, code, message string, details *SyncDetails) error {
	return h.finalize(SyncStatusFailed, retries, details, code, message)
}

// Quarantine finalizes the attempt as QUARANTINED without delivering
func (h *SyncHistory) Quarantine(message string, details *SyncDetails) error {
	return h.finalize(SyncStatusQuarantined, 0, details, "", message)
}

func (h *SyncHistory) finalize(status SyncStatus, retries int, details *SyncDetails, code, message string) error {
	if h.Status.IsTerminal() {
		return ErrSyncHistoryFinalized
	}
	// Only quarantine may short-circuit an attempt that never started
	if h.Status == SyncStatusPending && status != SyncStatusQuarantined && status != SyncStatusFailed {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, h.Status, status)
	}
	now := time.Now().UTC()
	h.Status = status
	h.SyncEndedAt = &now
	h.Retries = max(retries, 0)
	h.Details = details
	h.ErrorCode = code
	h.ErrorMessage = message
	return nil
}

// Duration returns how long the attempt ran, or zero while it is open
func (h *SyncHistory) Duration() time.Duration {
	if h.SyncEndedAt == nil {
		return 0
	}
	return h.SyncEndedAt.Sub(h.SyncStartedAt)
}

// PlatformSyncStatus summarizes the latest attempt for one platform
type PlatformSyncStatus struct {
	Platform    catalog.AdPlatform
	LastAttempt time.Time
	Status      SyncStatus
	HistoryID   uuid.UUID
}
