package feedsync

import (
	"context"
	"fmt"

	"github.com/feedsync/backend/internal/domain/catalog"
	"github.com/feedsync/backend/internal/domain/feedsync"
	"github.com/feedsync/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// SyncQueryService reads sync status and history for a merchant's catalogs
type SyncQueryService struct {
	catalogRepo catalog.CatalogRepository
	historyRepo feedsync.SyncHistoryRepository
}

// NewSyncQueryService creates a new SyncQueryService
func NewSyncQueryService(catalogRepo catalog.CatalogRepository, historyRepo feedsync.SyncHistoryRepository) *SyncQueryService {
	return &SyncQueryService{
		catalogRepo: catalogRepo,
		historyRepo: historyRepo,
	}
}

// Status returns the latest attempt for each platform a catalog was synced to
func (s *SyncQueryService) Status(ctx context.Context, merchantID, catalogID uuid.UUID) ([]PlatformSyncStatusResponse, error) {
	if _, err := s.catalogRepo.FindByIDForMerchant(ctx, merchantID, catalogID); err != nil {
		return nil, err
	}

	latest, err := s.historyRepo.FindLatestPerPlatform(ctx, catalogID)
	if err != nil {
		return nil, err
	}

	out := make([]PlatformSyncStatusResponse, len(latest))
	for i, h := range latest {
		out[i] = PlatformSyncStatusResponse{
			Platform:    h.AdPlatform.String(),
			LastAttempt: h.SyncStartedAt,
			Status:      h.Status.String(),
			HistoryID:   h.ID,
		}
	}
	return out, nil
}

// History returns a page of attempts, newest first. An empty platform lists all platforms.
func (s *SyncQueryService) History(ctx context.Context, merchantID, catalogID uuid.UUID, platform catalog.AdPlatform, filter shared.Filter) ([]SyncHistoryResponse, int64, error) {
	if platform.IsSet() && !platform.IsValid() {
		return nil, 0, shared.NewValidationError(fmt.Sprintf("unsupported ad platform '%s'", platform))
	}
	if _, err := s.catalogRepo.FindByIDForMerchant(ctx, merchantID, catalogID); err != nil {
		return nil, 0, err
	}

	rows, total, err := s.historyRepo.FindByCatalog(ctx, catalogID, platform, filter.Normalize())
	if err != nil {
		return nil, 0, err
	}

	out := make([]SyncHistoryResponse, len(rows))
	for i := range rows {
		out[i] = ToSyncHistoryResponse(&rows[i])
	}
	return out, total, nil
}
