package feedsync

import (
	"context"
	"errors"

	"github.com/feedsync/backend/internal/domain/feedsync"
	"github.com/feedsync/backend/internal/domain/shared"
	"github.com/feedsync/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// TriggerHandler processes queued triggers. Change events are routed to
// ingestion; everything else becomes a sync attempt.
type TriggerHandler struct {
	orchestrator *SyncOrchestrator
	ingestion    *ChangeIngestionService
	logger       *zap.Logger
}

// NewTriggerHandler creates a new TriggerHandler
func NewTriggerHandler(orchestrator *SyncOrchestrator, ingestion *ChangeIngestionService, logger *zap.Logger) *TriggerHandler {
	return &TriggerHandler{
		orchestrator: orchestrator,
		ingestion:    ingestion,
		logger:       logger,
	}
}

// Handle runs the trigger. A returned error leaves the message unacknowledged.
// A finalized sync, including a failed one, is acknowledged. Sync triggers for
// catalogs that no longer exist are dropped.
func (h *TriggerHandler) Handle(ctx context.Context, trigger feedsync.SyncTrigger) error {
	if trigger.WebhookPayload != nil {
		_, err := h.ingestion.Ingest(ctx, trigger.WebhookPayload)
		if err != nil && errors.Is(err, shared.ErrIngestionPayload) {
			// left unacked so the transport dead-letters it
			h.logger.Warn("malformed change event",
				zap.String("merchant_id", trigger.WebhookPayload.MerchantID.String()),
				zap.Error(err),
			)
		}
		return err
	}

	var (
		outcome *SyncOutcome
		err     error
	)
	telemetry.WithProfilingLabels(ctx, map[string]string{
		telemetry.ProfilingLabelPlatform: trigger.AdPlatform.String(),
		telemetry.ProfilingLabelTrigger:  trigger.TriggerType.String(),
	}, func(ctx context.Context) {
		outcome, err = h.orchestrator.Sync(ctx, SyncRequest{
			CatalogID:  trigger.CatalogID,
			MerchantID: trigger.MerchantID,
			Platform:   trigger.AdPlatform,
			Trigger:    trigger.TriggerType,
		})
	})
	if err != nil {
		// the catalog was deleted or detached after the trigger was enqueued
		if errors.Is(err, shared.ErrNotFound) || errors.Is(err, shared.ErrValidation) {
			h.logger.Info("dropping trigger that can no longer run",
				zap.String("catalog_id", trigger.CatalogID.String()),
				zap.Error(err),
			)
			return nil
		}
		return err
	}

	h.logger.Debug("trigger handled",
		zap.String("catalog_id", trigger.CatalogID.String()),
		zap.String("history_id", outcome.HistoryID.String()),
		zap.String("status", outcome.Status.String()),
	)
	return nil
}
