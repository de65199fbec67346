package feedsync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/feedsync/backend/internal/domain/catalog"
	"github.com/feedsync/backend/internal/domain/feedsync"
	"github.com/feedsync/backend/internal/domain/shared"
	"github.com/feedsync/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultIdempotencyTTL is how long an ingestion idempotency key is remembered
const DefaultIdempotencyTTL = 24 * time.Hour

// IngestionConfig holds change ingestion settings
type IngestionConfig struct {
	// RealtimeIngestion enqueues syncs for catalogs affected by a change
	RealtimeIngestion bool
	// IdempotencyTTL is how long request keys are remembered
	IdempotencyTTL time.Duration
}

// ChangeIngestionService accepts inventory change events, applies them to
// products and enqueues syncs for the catalogs they affect
type ChangeIngestionService struct {
	productRepo catalog.ProductRepository
	catalogRepo catalog.CatalogRepository
	publisher   feedsync.TriggerPublisher
	idempotency feedsync.IdempotencyStore
	config      IngestionConfig
	logger      *zap.Logger
	metrics     *telemetry.SyncMetrics
	now         func() time.Time
}

// NewChangeIngestionService creates a new ChangeIngestionService.
// idempotency may be nil to disable duplicate detection.
func NewChangeIngestionService(
	productRepo catalog.ProductRepository,
	catalogRepo catalog.CatalogRepository,
	publisher feedsync.TriggerPublisher,
	idempotency feedsync.IdempotencyStore,
	cfg IngestionConfig,
	logger *zap.Logger,
) *ChangeIngestionService {
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = DefaultIdempotencyTTL
	}
	return &ChangeIngestionService{
		productRepo: productRepo,
		catalogRepo: catalogRepo,
		publisher:   publisher,
		idempotency: idempotency,
		config:      cfg,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// SetSyncMetrics sets the metrics recorder for ingestion
func (s *ChangeIngestionService) SetSyncMetrics(m *telemetry.SyncMetrics) {
	s.metrics = m
}

// NewIngestionPayloadError reports a malformed change event
func NewIngestionPayloadError(message string) *shared.DomainError {
	return shared.NewDomainError(shared.CodeIngestionPayload, message)
}

// ValidatePayload checks a change event before it is accepted
func ValidatePayload(p *feedsync.IngestionPayload) error {
	if p == nil {
		return NewIngestionPayloadError("payload is required")
	}
	if p.MerchantID == uuid.Nil {
		return NewIngestionPayloadError("merchant_id is required")
	}
	if len(p.ProductUpdates) == 0 {
		return NewIngestionPayloadError("product_updates cannot be empty")
	}
	for i, u := range p.ProductUpdates {
		if strings.TrimSpace(u.ExternalID) == "" {
			return NewIngestionPayloadError(fmt.Sprintf("product_updates[%d]: external_id is required", i))
		}
		if u.Stock == nil && u.Availability == nil {
			return NewIngestionPayloadError(fmt.Sprintf("product_updates[%d]: stock or availability is required", i))
		}
		if u.Availability != nil && !u.Availability.IsValid() {
			return NewIngestionPayloadError(fmt.Sprintf("product_updates[%d]: unknown availability '%s'", i, *u.Availability))
		}
	}
	return nil
}

// PayloadFromRequest builds a change event for a merchant from an API request
func PayloadFromRequest(merchantID uuid.UUID, req IngestionRequest) *feedsync.IngestionPayload {
	updates := make([]feedsync.ProductUpdate, len(req.ProductUpdates))
	for i, u := range req.ProductUpdates {
		updates[i] = feedsync.ProductUpdate{ExternalID: u.ExternalID, Stock: u.Stock}
		if u.Availability != nil {
			a := catalog.Availability(*u.Availability)
			updates[i].Availability = &a
		}
	}
	return &feedsync.IngestionPayload{MerchantID: merchantID, ProductUpdates: updates}
}

// Submit validates a change event and enqueues it for asynchronous ingestion.
// A non-empty idempotency key already seen for the merchant is acknowledged
// without enqueuing again.
func (s *ChangeIngestionService) Submit(ctx context.Context, payload *feedsync.IngestionPayload, idempotencyKey string) (*IngestionReceipt, error) {
	if err := ValidatePayload(payload); err != nil {
		s.metrics.RecordIngestion(ctx, telemetry.IngestionRejected, 0)
		return nil, err
	}

	var key string
	if idempotencyKey != "" && s.idempotency != nil {
		key = payload.MerchantID.String() + ":" + idempotencyKey
		fresh, err := s.idempotency.MarkProcessed(ctx, key, s.config.IdempotencyTTL)
		if err != nil {
			return nil, fmt.Errorf("check idempotency key: %w", err)
		}
		if !fresh {
			s.metrics.RecordIngestion(ctx, telemetry.IngestionDuplicate, 0)
			s.logger.Info("duplicate change event ignored",
				zap.String("merchant_id", payload.MerchantID.String()),
				zap.String("idempotency_key", idempotencyKey),
			)
			return &IngestionReceipt{Accepted: true, Duplicate: true, Updates: len(payload.ProductUpdates)}, nil
		}
	}

	trigger := feedsync.SyncTrigger{
		MerchantID:     payload.MerchantID,
		TriggerType:    feedsync.TriggerWebhookUpdate,
		WebhookPayload: payload,
	}
	if err := s.publisher.Publish(ctx, trigger); err != nil {
		// the key only counts once the event is queued
		if key != "" {
			if ferr := s.idempotency.Forget(context.WithoutCancel(ctx), key); ferr != nil {
				s.logger.Error("failed to release idempotency key",
					zap.String("merchant_id", payload.MerchantID.String()),
					zap.String("idempotency_key", idempotencyKey),
					zap.Error(ferr),
				)
			}
		}
		return nil, fmt.Errorf("enqueue change event: %w", err)
	}
	s.metrics.RecordIngestion(ctx, telemetry.IngestionAccepted, len(payload.ProductUpdates))

	return &IngestionReceipt{Accepted: true, Updates: len(payload.ProductUpdates)}, nil
}

// Ingest applies a change event: it updates matched products and, when
// realtime ingestion is enabled, enqueues a sync for every affected catalog
// that targets a platform. Unmatched products are logged and skipped.
func (s *ChangeIngestionService) Ingest(ctx context.Context, payload *feedsync.IngestionPayload) (*IngestionResult, error) {
	if err := ValidatePayload(payload); err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "ingestion", "apply",
		telemetry.WithAttribute(telemetry.SpanAttrMerchantID, payload.MerchantID.String()),
	)
	defer span.End()

	log := s.logger.With(zap.String("merchant_id", payload.MerchantID.String()))

	ids := make([]string, 0, len(payload.ProductUpdates))
	seen := make(map[string]bool, len(payload.ProductUpdates))
	for _, u := range payload.ProductUpdates {
		if !seen[u.ExternalID] {
			seen[u.ExternalID] = true
			ids = append(ids, u.ExternalID)
		}
	}

	found, err := s.productRepo.FindByIDs(ctx, payload.MerchantID, ids)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	byID := make(map[string]*catalog.Product, len(found))
	for i := range found {
		byID[found[i].ID] = &found[i]
	}

	result := &IngestionResult{}
	now := s.now()
	for _, u := range payload.ProductUpdates {
		p, ok := byID[u.ExternalID]
		if !ok {
			continue
		}
		p.ApplyStockUpdate(u.Stock, u.Availability, now)
	}

	updated := make([]*catalog.Product, 0, len(byID))
	updatedIDs := make([]string, 0, len(byID))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			updated = append(updated, p)
			updatedIDs = append(updatedIDs, id)
		} else {
			result.Unmatched = append(result.Unmatched, id)
		}
	}
	if len(result.Unmatched) > 0 {
		log.Warn("change event references unknown products", zap.Strings("external_ids", result.Unmatched))
	}
	if len(updated) == 0 {
		return result, nil
	}

	if err := s.productRepo.SaveBatch(ctx, updated); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	result.Updated = len(updated)

	if !s.config.RealtimeIngestion {
		log.Debug("realtime ingestion disabled, no syncs enqueued", zap.Int("updated", result.Updated))
		return result, nil
	}

	catalogs, err := s.catalogRepo.FindByProductIDs(ctx, payload.MerchantID, updatedIDs)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	for _, c := range catalogs {
		if !c.AdPlatform.IsSet() {
			continue
		}
		trigger := feedsync.SyncTrigger{
			CatalogID:   c.ID,
			MerchantID:  payload.MerchantID,
			AdPlatform:  c.AdPlatform,
			TriggerType: feedsync.TriggerWebhookUpdate,
		}
		if err := s.publisher.Publish(ctx, trigger); err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("enqueue sync for catalog %s: %w", c.ID, err)
		}
		s.metrics.RecordEnqueued(ctx, trigger.TriggerType)
		result.Enqueued++
	}

	log.Info("change event applied",
		zap.Int("updated", result.Updated),
		zap.Int("unmatched", len(result.Unmatched)),
		zap.Int("enqueued", result.Enqueued),
	)
	return result, nil
}
