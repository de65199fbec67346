// Package scheduler periodically enqueues sync triggers for catalogs that
// have not been synced within the configured interval.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/feedsync/backend/internal/domain/catalog"
	"github.com/feedsync/backend/internal/domain/feedsync"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ParseInterval accepts "@every <duration>" or a bare Go duration such as "4h"
func ParseInterval(expr string) (time.Duration, error) {
	s := strings.TrimSpace(expr)
	s = strings.TrimSpace(strings.TrimPrefix(s, "@every"))
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%w %q: %w", ErrInvalidInterval, expr, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w %q: must be positive", ErrInvalidInterval, expr)
	}
	return d, nil
}

// RunSummary reports the outcome of one scheduling pass
type RunSummary struct {
	Considered int
	Enqueued   int
	Skipped    int
	Failed     int
}

// DefaultPendingTTL bounds how long an unfinished attempt or an unconsumed
// trigger holds back the next scheduled one
const DefaultPendingTTL = 20 * time.Minute

// Option configures a SyncScheduler
type Option func(*SyncScheduler)

// WithPendingTTL sets how long an in-flight attempt or queued trigger
// suppresses scheduling. It should match the catalog lease TTL.
func WithPendingTTL(d time.Duration) Option {
	return func(s *SyncScheduler) {
		if d > 0 {
			s.pendingTTL = d
		}
	}
}

type scheduleKey struct {
	catalogID uuid.UUID
	platform  catalog.AdPlatform
}

// SyncScheduler enqueues SCHEDULED_SYNC_JOB_ENQUEUED triggers. It never runs
// syncs itself; the queue consumer's worker pool bounds concurrency.
type SyncScheduler struct {
	interval   time.Duration
	pendingTTL time.Duration
	catalogs   catalog.CatalogRepository
	history    feedsync.SyncHistoryRepository
	publisher  feedsync.TriggerPublisher
	logger     *zap.Logger
	now        func() time.Time

	// enqueued remembers triggers published by this scheduler that no
	// attempt has picked up yet. Guarded by runMu.
	enqueued map[scheduleKey]time.Time

	runMu     sync.Mutex
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewSyncScheduler creates a scheduler for the given interval expression
func NewSyncScheduler(
	interval string,
	catalogs catalog.CatalogRepository,
	history feedsync.SyncHistoryRepository,
	publisher feedsync.TriggerPublisher,
	logger *zap.Logger,
	opts ...Option,
) (*SyncScheduler, error) {
	d, err := ParseInterval(interval)
	if err != nil {
		return nil, err
	}
	s := &SyncScheduler{
		interval:   d,
		pendingTTL: DefaultPendingTTL,
		catalogs:   catalogs,
		history:    history,
		publisher:  publisher,
		logger:     logger,
		now:        time.Now,
		enqueued:   make(map[scheduleKey]time.Time),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Interval returns the parsed scheduling interval
func (s *SyncScheduler) Interval() time.Duration {
	return s.interval
}

// Start runs a pass immediately and then on every tick
func (s *SyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}
	s.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.runLoop(ctx)

	s.logger.Info("Sync scheduler started", zap.Duration("interval", s.interval))
	return nil
}

// Stop stops the loop and waits for an in-progress pass
func (s *SyncScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.isRunning = false
	s.cancel()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Sync scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SyncScheduler) runLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.RunNow(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("Scheduled sync pass failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunNow performs one scheduling pass: every sync-enabled catalog with an ad
// platform and no attempt since now - interval gets a trigger. Catalogs with
// an unfinished attempt or an unconsumed trigger younger than the pending TTL
// are skipped.
func (s *SyncScheduler) RunNow(ctx context.Context) (RunSummary, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	var summary RunSummary
	catalogs, err := s.catalogs.FindSyncEnabled(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to load sync-enabled catalogs: %w", err)
	}
	now := s.now()
	cutoff := now.Add(-s.interval)

	for i := range catalogs {
		c := &catalogs[i]
		if !c.SyncEnabled || !c.AdPlatform.IsSet() {
			continue
		}
		summary.Considered++
		fields := []zap.Field{
			zap.String("catalog_id", c.ID.String()),
			zap.String("merchant_id", c.MerchantID.String()),
			zap.String("platform", c.AdPlatform.String()),
		}

		latest, err := s.history.FindLatest(ctx, c.ID, c.AdPlatform)
		if err != nil {
			summary.Failed++
			s.logger.Error("Failed to read last sync attempt", append(fields, zap.Error(err))...)
			continue
		}
		key := scheduleKey{catalogID: c.ID, platform: c.AdPlatform}
		if !s.due(key, latest, now, cutoff) {
			summary.Skipped++
			continue
		}

		err = s.publisher.Publish(ctx, feedsync.SyncTrigger{
			CatalogID:   c.ID,
			MerchantID:  c.MerchantID,
			AdPlatform:  c.AdPlatform,
			TriggerType: feedsync.TriggerScheduledEnqueued,
		})
		if err != nil {
			summary.Failed++
			s.logger.Error("Failed to enqueue scheduled sync", append(fields, zap.Error(err))...)
			continue
		}
		s.enqueued[key] = now
		summary.Enqueued++
	}

	s.logger.Info("Scheduled sync pass completed",
		zap.Int("considered", summary.Considered),
		zap.Int("enqueued", summary.Enqueued),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
	)
	return summary, nil
}

// due reports whether a catalog needs a new trigger. Must hold runMu.
func (s *SyncScheduler) due(key scheduleKey, latest *feedsync.SyncHistory, now, cutoff time.Time) bool {
	if latest != nil && !latest.Status.IsTerminal() && now.Sub(latest.SyncStartedAt) < s.pendingTTL {
		return false
	}

	if at, ok := s.enqueued[key]; ok {
		consumed := latest != nil && !latest.SyncStartedAt.Before(at)
		if consumed || now.Sub(at) >= s.pendingTTL {
			delete(s.enqueued, key)
		} else {
			return false
		}
	}

	return latest == nil || !latest.SyncStartedAt.After(cutoff)
}
