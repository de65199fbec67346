package feedsync

import (
	"context"
	"fmt"
	"time"

	"github.com/feedsync/backend/internal/domain/catalog"
	"github.com/feedsync/backend/internal/domain/feedsync"
	"github.com/feedsync/backend/internal/domain/shared"
	"github.com/feedsync/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// CodeQuarantined is reported to merchants when a catalog is quarantined
	CodeQuarantined = "QUARANTINED"
	// CodeInternal marks attempts that failed on an unclassified internal error
	CodeInternal = "INTERNAL_ERROR"
)

// OrchestratorConfig holds sync attempt settings
type OrchestratorConfig struct {
	// LockTTL bounds how long a catalog lease is held
	LockTTL time.Duration
	// AttemptTimeout bounds one attempt; zero means no limit
	AttemptTimeout time.Duration
	// AutoQuarantine enables quarantining catalogs after repeated failures
	AutoQuarantine bool
	// QuarantineThreshold is the number of consecutive failures that quarantine a catalog
	QuarantineThreshold int
}

// DefaultOrchestratorConfig returns the default attempt settings
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		LockTTL:             20 * time.Minute,
		AttemptTimeout:      15 * time.Minute,
		QuarantineThreshold: 5,
	}
}

// SyncRequest asks for one sync attempt. An empty Platform uses the catalog's platform.
type SyncRequest struct {
	CatalogID  uuid.UUID
	MerchantID uuid.UUID
	Platform   catalog.AdPlatform
	Trigger    feedsync.TriggerType
}

// SyncOutcome is the finalized result of an attempt
type SyncOutcome struct {
	HistoryID    uuid.UUID
	Status       feedsync.SyncStatus
	Platform     catalog.AdPlatform
	FeedURL      string
	ItemCount    int
	Retries      int
	ErrorCode    string
	ErrorMessage string
}

// Succeeded reports whether the feed was accepted by the platform
func (o *SyncOutcome) Succeeded() bool {
	return o.Status == feedsync.SyncStatusSuccess || o.Status == feedsync.SyncStatusPartialSuccess
}

// SyncOrchestrator runs sync attempts: render, store, deliver, record and notify.
// Every trigger path funnels through Sync.
type SyncOrchestrator struct {
	catalogRepo catalog.CatalogRepository
	productRepo catalog.ProductRepository
	historyRepo feedsync.SyncHistoryRepository
	renderer    *feedRenderer
	delivery    feedsync.DeliveryAdapter
	credentials feedsync.CredentialProvider
	notifier    feedsync.Notifier
	locker      feedsync.CatalogLocker
	config      OrchestratorConfig
	logger      *zap.Logger
	metrics     *telemetry.SyncMetrics
}

// NewSyncOrchestrator creates a new SyncOrchestrator
func NewSyncOrchestrator(
	catalogRepo catalog.CatalogRepository,
	productRepo catalog.ProductRepository,
	historyRepo feedsync.SyncHistoryRepository,
	generators GeneratorRegistry,
	storage feedsync.FeedStorage,
	delivery feedsync.DeliveryAdapter,
	credentials feedsync.CredentialProvider,
	notifier feedsync.Notifier,
	locker feedsync.CatalogLocker,
	cfg OrchestratorConfig,
	logger *zap.Logger,
) *SyncOrchestrator {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = DefaultOrchestratorConfig().LockTTL
	}
	return &SyncOrchestrator{
		catalogRepo: catalogRepo,
		productRepo: productRepo,
		historyRepo: historyRepo,
		renderer:    newFeedRenderer(generators, storage, logger),
		delivery:    delivery,
		credentials: credentials,
		notifier:    notifier,
		locker:      locker,
		config:      cfg,
		logger:      logger,
	}
}

// SetSyncMetrics sets the metrics recorder for finalized attempts
func (o *SyncOrchestrator) SetSyncMetrics(m *telemetry.SyncMetrics) {
	o.metrics = m
}

// Sync runs one attempt for a catalog. Failures recorded in the history row
// are reported through the outcome. An error is returned only when no row was
// finalized: unknown catalog, missing platform, busy lease or persistence failure.
func (o *SyncOrchestrator) Sync(ctx context.Context, req SyncRequest) (*SyncOutcome, error) {
	if req.CatalogID == uuid.Nil || req.MerchantID == uuid.Nil {
		return nil, shared.NewValidationError("catalog id and merchant id are required")
	}
	if !req.Trigger.IsValid() {
		return nil, shared.NewValidationError(fmt.Sprintf("unknown trigger type '%s'", req.Trigger))
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "sync", "run",
		telemetry.WithAttribute(telemetry.SpanAttrCatalogID, req.CatalogID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrMerchantID, req.MerchantID.String()),
		telemetry.WithAttribute(telemetry.SpanAttrTriggerType, req.Trigger.String()),
	)
	defer span.End()

	c, err := o.catalogRepo.FindByIDForMerchant(ctx, req.MerchantID, req.CatalogID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	platform, err := resolvePlatform(c, req.Platform)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrPlatform, platform.String())

	release, ok, err := o.locker.TryLock(ctx, c.ID, o.config.LockTTL)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("acquire catalog lease: %w", err)
	}
	if !ok {
		return nil, feedsync.ErrSyncInProgress
	}
	defer o.release(ctx, c.ID, release)

	if o.config.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.config.AttemptTimeout)
		defer cancel()
	}

	log := o.logger.With(
		zap.String("catalog_id", c.ID.String()),
		zap.String("merchant_id", c.MerchantID.String()),
		zap.String("platform", platform.String()),
		zap.String("trigger_type", req.Trigger.String()),
	)

	history := feedsync.NewSyncHistory(c.ID, platform, req.Trigger)
	if err := o.historyRepo.Create(ctx, history); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("create sync history: %w", err)
	}
	log = log.With(zap.String("history_id", history.ID.String()))

	attempt := &syncAttempt{
		orchestrator: o,
		catalog:      c,
		platform:     platform,
		history:      history,
		details:      &feedsync.SyncDetails{TriggerType: req.Trigger},
		log:          log,
	}

	if o.shouldQuarantine(ctx, c.ID, platform, req.Trigger, log) {
		return attempt.quarantine(ctx)
	}

	if err := history.Start(); err != nil {
		return nil, err
	}
	if err := o.historyRepo.Save(ctx, history); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("start sync history: %w", err)
	}

	outcome, err := attempt.run(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrSyncStatus, outcome.Status.String(),
		telemetry.SpanAttrItemCount, outcome.ItemCount,
	)
	if outcome.Succeeded() {
		telemetry.SetOK(span)
	} else {
		telemetry.RecordError(span, fmt.Errorf("%s: %s", outcome.ErrorCode, outcome.ErrorMessage))
	}
	return outcome, nil
}

func resolvePlatform(c *catalog.Catalog, requested catalog.AdPlatform) (catalog.AdPlatform, error) {
	platform := requested
	if !platform.IsSet() {
		platform = c.AdPlatform
	}
	if !platform.IsSet() {
		return "", shared.NewValidationError("catalog has no ad platform configured")
	}
	if !platform.IsValid() {
		return "", shared.NewValidationError(fmt.Sprintf("unsupported ad platform '%s'", platform))
	}
	return platform, nil
}

func (o *SyncOrchestrator) release(ctx context.Context, catalogID uuid.UUID, release func(context.Context) error) {
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := release(releaseCtx); err != nil {
		o.logger.Warn("failed to release catalog lease",
			zap.String("catalog_id", catalogID.String()),
			zap.Error(err),
		)
	}
}

// shouldQuarantine reports whether the last threshold finalized attempts all failed.
// Manual syncs always proceed.
func (o *SyncOrchestrator) shouldQuarantine(ctx context.Context, catalogID uuid.UUID, platform catalog.AdPlatform, trigger feedsync.TriggerType, log *zap.Logger) bool {
	if !o.config.AutoQuarantine || trigger == feedsync.TriggerManualSync || o.config.QuarantineThreshold <= 0 {
		return false
	}

	recent, err := o.historyRepo.FindRecentTerminal(ctx, catalogID, platform, o.config.QuarantineThreshold, feedsync.SyncStatusQuarantined)
	if err != nil {
		log.Warn("quarantine check failed, proceeding with sync", zap.Error(err))
		return false
	}
	if len(recent) < o.config.QuarantineThreshold {
		return false
	}
	for _, h := range recent {
		if h.Status != feedsync.SyncStatusFailed {
			return false
		}
	}
	return true
}

// syncAttempt carries the state of one attempt after its history row exists
type syncAttempt struct {
	orchestrator *SyncOrchestrator
	catalog      *catalog.Catalog
	platform     catalog.AdPlatform
	history      *feedsync.SyncHistory
	details      *feedsync.SyncDetails
	log          *zap.Logger
}

func (a *syncAttempt) run(ctx context.Context) (*SyncOutcome, error) {
	o := a.orchestrator
	c := a.catalog

	products, err := o.productRepo.FindByIDs(ctx, c.MerchantID, c.ProductIDs())
	if err != nil {
		return a.fail(ctx, 0, codeOrDefault(err, CodeInternal), err.Error())
	}

	feed, err := o.renderer.render(ctx, c, products, c.FeedSettings.Format)
	if err != nil {
		a.details.FeedFormat = c.FeedSettings.Format.String()
		return a.fail(ctx, 0, codeOrDefault(err, shared.CodeFeedGeneration), err.Error())
	}
	a.details.FeedURL = feed.URL
	a.details.FeedFormat = feed.Format.String()
	a.details.ItemCount = feed.ItemCount
	a.log.Debug("feed stored", zap.String("feed_url", feed.URL), zap.Int("item_count", feed.ItemCount))

	creds, err := o.credentials.Credentials(ctx, c.MerchantID, a.platform)
	if err != nil {
		return a.fail(ctx, 0, codeOrDefault(err, shared.CodeConfiguration), err.Error())
	}

	result := o.delivery.Submit(ctx, feed.reference(), creds, feedsync.CatalogMeta{
		CatalogID:  c.ID,
		MerchantID: c.MerchantID,
		Name:       c.Name,
		Platform:   a.platform,
	})

	if result.Success {
		if result.Response != nil {
			a.details.ItemsRejected = result.Response.ItemsRejected
			a.details.PlatformResponse = result.Response.Raw
		}
		if err := a.history.Succeed(result.Retries(), a.details); err != nil {
			return nil, err
		}
		return a.finish(ctx)
	}

	deliveryErr := result.Error
	if deliveryErr == nil {
		deliveryErr = feedsync.NewTransientError("", "delivery failed without a reported error", nil)
	}
	transient := deliveryErr.Transient
	a.details.Transient = &transient
	code := deliveryErr.Code
	if code == "" {
		code = shared.CodeDelivery
	}
	return a.fail(ctx, result.Retries(), code, deliveryErr.Message)
}

func (a *syncAttempt) fail(ctx context.Context, retries int, code, message string) (*SyncOutcome, error) {
	if err := a.history.Fail(retries, code, message, a.details); err != nil {
		return nil, err
	}
	return a.finish(ctx)
}

func (a *syncAttempt) quarantine(ctx context.Context) (*SyncOutcome, error) {
	message := fmt.Sprintf("catalog quarantined after %d consecutive failed syncs", a.orchestrator.config.QuarantineThreshold)
	if err := a.history.Quarantine(message, a.details); err != nil {
		return nil, err
	}
	return a.finish(ctx)
}

// finish persists the terminal row, then notifies and records metrics.
// The row is saved even when the attempt deadline has passed.
func (a *syncAttempt) finish(ctx context.Context) (*SyncOutcome, error) {
	o := a.orchestrator
	h := a.history

	saveCtx := context.WithoutCancel(ctx)
	if err := o.historyRepo.Save(saveCtx, h); err != nil {
		a.log.Error("failed to finalize sync history", zap.String("status", h.Status.String()), zap.Error(err))
		return nil, fmt.Errorf("finalize sync history: %w", err)
	}

	fields := []zap.Field{
		zap.String("status", h.Status.String()),
		zap.Int("retries", h.Retries),
		zap.Int("item_count", a.details.ItemCount),
		zap.Duration("duration", h.Duration()),
	}
	if h.Status == feedsync.SyncStatusSuccess || h.Status == feedsync.SyncStatusPartialSuccess {
		a.log.Info("sync finished", fields...)
	} else {
		a.log.Warn("sync finished", append(fields, zap.String("error_code", h.ErrorCode), zap.String("error", h.ErrorMessage))...)
	}

	o.metrics.RecordSync(saveCtx, h)
	a.notify(saveCtx)

	return &SyncOutcome{
		HistoryID:    h.ID,
		Status:       h.Status,
		Platform:     h.AdPlatform,
		FeedURL:      a.details.FeedURL,
		ItemCount:    a.details.ItemCount,
		Retries:      h.Retries,
		ErrorCode:    h.ErrorCode,
		ErrorMessage: h.ErrorMessage,
	}, nil
}

// notify informs the merchant. Notifier errors and panics are logged only.
func (a *syncAttempt) notify(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			a.log.Error("notifier panicked", zap.Any("panic", r))
		}
	}()

	n := a.orchestrator.notifier
	if n == nil {
		return
	}

	h := a.history
	var err error
	switch h.Status {
	case feedsync.SyncStatusSuccess, feedsync.SyncStatusPartialSuccess:
		err = n.NotifySyncSuccess(ctx, a.catalog.MerchantID, a.catalog.Name, a.platform)
	case feedsync.SyncStatusQuarantined:
		err = n.NotifySyncFailure(ctx, a.catalog.MerchantID, a.catalog.Name, a.platform, h.ErrorMessage, CodeQuarantined)
	default:
		err = n.NotifySyncFailure(ctx, a.catalog.MerchantID, a.catalog.Name, a.platform, h.ErrorMessage, h.ErrorCode)
	}
	if err != nil {
		a.log.Warn("failed to notify merchant", zap.Error(err))
	}
}

func codeOrDefault(err error, fallback string) string {
	if code := shared.ErrorCode(err); code != "" {
		return code
	}
	return fallback
}
