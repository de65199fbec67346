package feedsync

import (
	"context"
	"fmt"

	"github.com/feedsync/backend/internal/domain/catalog"
	"github.com/feedsync/backend/internal/domain/feedsync"
	"github.com/feedsync/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TriggerService enqueues manual sync requests after validating the catalog
type TriggerService struct {
	catalogRepo catalog.CatalogRepository
	publisher   feedsync.TriggerPublisher
	logger      *zap.Logger
	metrics     *telemetry.SyncMetrics
}

// NewTriggerService creates a new TriggerService
func NewTriggerService(catalogRepo catalog.CatalogRepository, publisher feedsync.TriggerPublisher, logger *zap.Logger) *TriggerService {
	return &TriggerService{
		catalogRepo: catalogRepo,
		publisher:   publisher,
		logger:      logger,
	}
}

// SetSyncMetrics sets the metrics recorder for enqueued triggers
func (s *TriggerService) SetSyncMetrics(m *telemetry.SyncMetrics) {
	s.metrics = m
}

// TriggerSync validates the catalog and platform, then enqueues a MANUAL_SYNC trigger.
// Unknown catalogs fail here, before anything is enqueued or recorded.
func (s *TriggerService) TriggerSync(ctx context.Context, merchantID, catalogID uuid.UUID, platform catalog.AdPlatform) (*TriggerSyncResponse, error) {
	c, err := s.catalogRepo.FindByIDForMerchant(ctx, merchantID, catalogID)
	if err != nil {
		return nil, err
	}

	resolved, err := resolvePlatform(c, platform)
	if err != nil {
		return nil, err
	}

	trigger := feedsync.SyncTrigger{
		CatalogID:   c.ID,
		MerchantID:  merchantID,
		AdPlatform:  resolved,
		TriggerType: feedsync.TriggerManualSync,
	}
	if err := s.publisher.Publish(ctx, trigger); err != nil {
		return nil, fmt.Errorf("enqueue sync trigger: %w", err)
	}
	s.metrics.RecordEnqueued(ctx, trigger.TriggerType)

	s.logger.Info("manual sync enqueued",
		zap.String("catalog_id", c.ID.String()),
		zap.String("merchant_id", merchantID.String()),
		zap.String("platform", resolved.String()),
	)

	return &TriggerSyncResponse{
		CatalogID:   c.ID,
		Platform:    resolved.String(),
		TriggerType: trigger.TriggerType.String(),
	}, nil
}
