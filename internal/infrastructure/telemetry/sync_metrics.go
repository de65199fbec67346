package telemetry

import (
	"context"
	"errors"

	"github.com/feedsync/backend/internal/domain/feedsync"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the meter used for sync pipeline instruments.
const MeterName = "feedsync"

// ErrMeterNil is returned when a nil meter is passed to a metrics constructor.
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// Metric attribute keys.
var (
	AttrPlatform    = attribute.Key("ad_platform")
	AttrStatus      = attribute.Key("status")
	AttrTriggerType = attribute.Key("trigger_type")
	AttrErrorCode   = attribute.Key("error_code")
	AttrOutcome     = attribute.Key("outcome")
)

// Ingestion outcomes.
const (
	IngestionAccepted  = "accepted"
	IngestionRejected  = "rejected"
	IngestionDuplicate = "duplicate"
	IngestionDisabled  = "disabled"
)

var syncDurationBuckets = []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300}

// SyncMetrics holds the instruments for sync attempts and change ingestion.
// All methods are safe on a nil receiver.
type SyncMetrics struct {
	attempts       *Counter
	duration       *Histogram
	feedItems      *Counter
	itemsRejected  *Counter
	retries        *Counter
	ingestion      *Counter
	productUpdates *Counter
	enqueued       *Counter
}

// NewSyncMetrics creates the sync instruments on meter.
func NewSyncMetrics(meter metric.Meter) (*SyncMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	m := &SyncMetrics{}
	var err error

	if m.attempts, err = NewCounter(meter, "feedsync_sync_attempts_total",
		"Finalized sync attempts by platform, status and trigger", "{attempt}"); err != nil {
		return nil, err
	}
	if m.duration, err = NewHistogram(meter, HistogramOpts{
		Name:        "feedsync_sync_duration_seconds",
		Description: "Wall time of finalized sync attempts",
		Unit:        "s",
		Boundaries:  syncDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if m.feedItems, err = NewCounter(meter, "feedsync_feed_items_total",
		"Items rendered into delivered feeds", "{item}"); err != nil {
		return nil, err
	}
	if m.itemsRejected, err = NewCounter(meter, "feedsync_feed_items_rejected_total",
		"Items rejected by platforms", "{item}"); err != nil {
		return nil, err
	}
	if m.retries, err = NewCounter(meter, "feedsync_delivery_retries_total",
		"Delivery retries beyond the first attempt", "{retry}"); err != nil {
		return nil, err
	}
	if m.ingestion, err = NewCounter(meter, "feedsync_ingestion_requests_total",
		"Inventory change events by outcome", "{request}"); err != nil {
		return nil, err
	}
	if m.productUpdates, err = NewCounter(meter, "feedsync_ingestion_product_updates_total",
		"Product updates contained in accepted change events", "{update}"); err != nil {
		return nil, err
	}
	if m.enqueued, err = NewCounter(meter, "feedsync_triggers_enqueued_total",
		"Sync triggers published to the queue", "{trigger}"); err != nil {
		return nil, err
	}

	return m, nil
}

// RecordSync records a finalized attempt.
func (m *SyncMetrics) RecordSync(ctx context.Context, h *feedsync.SyncHistory) {
	if m == nil || h == nil {
		return
	}

	attrs := []attribute.KeyValue{
		AttrPlatform.String(h.AdPlatform.String()),
		AttrStatus.String(h.Status.String()),
		AttrTriggerType.String(h.TriggerType.String()),
	}
	if h.ErrorCode != "" {
		attrs = append(attrs, AttrErrorCode.String(h.ErrorCode))
	}
	m.attempts.Inc(ctx, attrs...)
	m.duration.RecordDuration(ctx, h.Duration(), attrs[:3]...)

	platform := AttrPlatform.String(h.AdPlatform.String())
	if h.Retries > 0 {
		m.retries.Add(ctx, int64(h.Retries), platform)
	}
	if h.Details != nil {
		if h.Details.ItemCount > 0 {
			m.feedItems.Add(ctx, int64(h.Details.ItemCount), platform)
		}
		if h.Details.ItemsRejected > 0 {
			m.itemsRejected.Add(ctx, int64(h.Details.ItemsRejected), platform)
		}
	}
}

// RecordIngestion records one inventory change event and its update count.
func (m *SyncMetrics) RecordIngestion(ctx context.Context, outcome string, updates int) {
	if m == nil {
		return
	}
	m.ingestion.Inc(ctx, AttrOutcome.String(outcome))
	if outcome == IngestionAccepted && updates > 0 {
		m.productUpdates.Add(ctx, int64(updates))
	}
}

// RecordEnqueued records a trigger published to the queue.
func (m *SyncMetrics) RecordEnqueued(ctx context.Context, trigger feedsync.TriggerType) {
	if m == nil {
		return
	}
	m.enqueued.Inc(ctx, AttrTriggerType.String(trigger.String()))
}
