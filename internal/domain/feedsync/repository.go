package feedsync

import (
	"context"

	"github.com/feedsync/backend/internal/domain/catalog"
	"github.com/feedsync/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// SyncHistoryRepository defines the interface for sync history persistence.
// Rows are only created and finalized; deletion happens through catalog cascade.
type SyncHistoryRepository interface {
	// Create inserts a new attempt row
	Create(ctx context.Context, history *SyncHistory) error

	// Save persists a status change of an existing row
	Save(ctx context.Context, history *SyncHistory) error

	// FindByCatalog lists attempts newest first, optionally for one platform
	FindByCatalog(ctx context.Context, catalogID uuid.UUID, platform catalog.AdPlatform, filter shared.Filter) ([]SyncHistory, int64, error)

	// FindLatestPerPlatform returns the newest attempt for each platform of a catalog
	FindLatestPerPlatform(ctx context.Context, catalogID uuid.UUID) ([]SyncHistory, error)

	// FindRecentTerminal returns the newest finalized attempts for a catalog
	// and platform, excluding the given statuses
	FindRecentTerminal(ctx context.Context, catalogID uuid.UUID, platform catalog.AdPlatform, limit int, exclude ...SyncStatus) ([]SyncHistory, error)

	// FindLatest returns the newest attempt for a catalog and platform, or nil
	FindLatest(ctx context.Context, catalogID uuid.UUID, platform catalog.AdPlatform) (*SyncHistory, error)
}
