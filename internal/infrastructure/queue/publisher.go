package queue

import (
	"context"
	"fmt"

	"github.com/feedsync/backend/internal/domain/feedsync"
	"go.uber.org/zap"
)

// Publisher enqueues sync triggers onto a transport
type Publisher struct {
	transport Transport
	logger    *zap.Logger
}

// NewPublisher creates a trigger publisher
func NewPublisher(transport Transport, logger *zap.Logger) *Publisher {
	return &Publisher{transport: transport, logger: logger}
}

// Publish serializes and appends the trigger
func (p *Publisher) Publish(ctx context.Context, trigger feedsync.SyncTrigger) error {
	body, err := EncodeTrigger(trigger)
	if err != nil {
		return fmt.Errorf("failed to encode trigger: %w", err)
	}
	id, err := p.transport.Publish(ctx, body)
	if err != nil {
		return err
	}
	p.logger.Debug("Sync trigger enqueued",
		zap.String("message_id", id),
		zap.String("catalog_id", trigger.CatalogID.String()),
		zap.String("platform", trigger.AdPlatform.String()),
		zap.String("trigger_type", trigger.TriggerType.String()),
		zap.Bool("webhook_payload", trigger.WebhookPayload != nil),
	)
	return nil
}

// Ensure Publisher implements TriggerPublisher
var _ feedsync.TriggerPublisher = (*Publisher)(nil)
