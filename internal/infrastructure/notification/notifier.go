// Package notification informs merchants about sync outcomes.
package notification

import (
	"context"
	"errors"

	"github.com/feedsync/backend/internal/domain/catalog"
	"github.com/feedsync/backend/internal/domain/feedsync"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LogNotifier writes sync outcomes to the structured log
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a notifier backed by logger
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// NotifySyncSuccess logs a successful sync
func (n *LogNotifier) NotifySyncSuccess(_ context.Context, merchantID uuid.UUID, catalogName string, platform catalog.AdPlatform) error {
	n.logger.Info("Catalog sync succeeded",
		zap.String("merchant_id", merchantID.String()),
		zap.String("catalog_name", catalogName),
		zap.String("platform", platform.String()),
	)
	return nil
}

// NotifySyncFailure logs a failed sync
func (n *LogNotifier) NotifySyncFailure(_ context.Context, merchantID uuid.UUID, catalogName string, platform catalog.AdPlatform, message, code string) error {
	n.logger.Warn("Catalog sync failed",
		zap.String("merchant_id", merchantID.String()),
		zap.String("catalog_name", catalogName),
		zap.String("platform", platform.String()),
		zap.String("error_code", code),
		zap.String("error_message", message),
	)
	return nil
}

// MultiNotifier fans a notification out to several notifiers. Every notifier
// is called; the errors are joined.
type MultiNotifier []feedsync.Notifier

// NotifySyncSuccess calls every notifier
func (m MultiNotifier) NotifySyncSuccess(ctx context.Context, merchantID uuid.UUID, catalogName string, platform catalog.AdPlatform) error {
	var errs []error
	for _, n := range m {
		errs = append(errs, n.NotifySyncSuccess(ctx, merchantID, catalogName, platform))
	}
	return errors.Join(errs...)
}

// NotifySyncFailure calls every notifier
func (m MultiNotifier) NotifySyncFailure(ctx context.Context, merchantID uuid.UUID, catalogName string, platform catalog.AdPlatform, message, code string) error {
	var errs []error
	for _, n := range m {
		errs = append(errs, n.NotifySyncFailure(ctx, merchantID, catalogName, platform, message, code))
	}
	return errors.Join(errs...)
}

var (
	_ feedsync.Notifier = (*LogNotifier)(nil)
	_ feedsync.Notifier = MultiNotifier(nil)
)
