package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/feedsync/backend/internal/domain/catalog"
	"github.com/feedsync/backend/internal/domain/feedsync"
	"github.com/feedsync/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Webhook event names
const (
	EventSyncSucceeded = "catalog.sync.succeeded"
	EventSyncFailed    = "catalog.sync.failed"
)

// WebhookEvent is the JSON body posted to the notification webhook
type WebhookEvent struct {
	Event       string    `json:"event"`
	MerchantID  uuid.UUID `json:"merchant_id"`
	CatalogName string    `json:"catalog_name"`
	Platform    string    `json:"platform"`
	Message     string    `json:"message,omitempty"`
	Code        string    `json:"code,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// WebhookNotifier posts sync outcomes to an HTTP endpoint
type WebhookNotifier struct {
	url        string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewWebhookNotifier creates a webhook notifier from configuration
func NewWebhookNotifier(cfg config.NotificationConfig, logger *zap.Logger) *WebhookNotifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookNotifier{
		url:        cfg.WebhookURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// NotifySyncSuccess posts a success event
func (n *WebhookNotifier) NotifySyncSuccess(ctx context.Context, merchantID uuid.UUID, catalogName string, platform catalog.AdPlatform) error {
	return n.post(ctx, WebhookEvent{
		Event:       EventSyncSucceeded,
		MerchantID:  merchantID,
		CatalogName: catalogName,
		Platform:    platform.String(),
		OccurredAt:  time.Now().UTC(),
	})
}

// NotifySyncFailure posts a failure event
func (n *WebhookNotifier) NotifySyncFailure(ctx context.Context, merchantID uuid.UUID, catalogName string, platform catalog.AdPlatform, message, code string) error {
	return n.post(ctx, WebhookEvent{
		Event:       EventSyncFailed,
		MerchantID:  merchantID,
		CatalogName: catalogName,
		Platform:    platform.String(),
		Message:     message,
		Code:        code,
		OccurredAt:  time.Now().UTC(),
	})
}

func (n *WebhookNotifier) post(ctx context.Context, event WebhookEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode webhook event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	n.logger.Debug("Sync notification delivered",
		zap.String("event", event.Event),
		zap.String("merchant_id", event.MerchantID.String()),
	)
	return nil
}

// New builds the configured notifier: always the log notifier, plus the
// webhook notifier when a webhook URL is set
func New(cfg config.NotificationConfig, logger *zap.Logger) feedsync.Notifier {
	notifiers := MultiNotifier{NewLogNotifier(logger)}
	if cfg.WebhookURL != "" {
		notifiers = append(notifiers, NewWebhookNotifier(cfg, logger))
	}
	return notifiers
}

var _ feedsync.Notifier = (*WebhookNotifier)(nil)
