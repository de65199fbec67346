// Package delivery submits stored feeds to ad platforms with bounded retries.
package delivery

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/feedsync/backend/internal/domain/catalog"
	"github.com/feedsync/backend/internal/domain/feedsync"
	"github.com/feedsync/backend/internal/domain/shared"
	"github.com/feedsync/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// CodeCancelled marks a delivery abandoned because its context ended
const CodeCancelled = "DELIVERY_CANCELLED"

// ClientResolver looks up the API client for a platform
type ClientResolver interface {
	Client(platform catalog.AdPlatform) (feedsync.PlatformClient, error)
}

// RetryConfig holds the retry policy
type RetryConfig struct {
	// MaxRetries is the number of attempts allowed after the first
	MaxRetries int
	// InitialDelay is the wait before the first retry; it doubles on each retry
	InitialDelay time.Duration
	// MaxDelay caps the backoff
	MaxDelay time.Duration
	// Jitter spreads each delay by up to this fraction in either direction
	Jitter float64
}

// DefaultRetryConfig returns the default retry policy
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   3,
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		Jitter:       0.2,
	}
}

// RetryConfigFromSync builds the retry policy from the sync settings
func RetryConfigFromSync(cfg config.SyncConfig) RetryConfig {
	return RetryConfig{
		MaxRetries:   cfg.MaxRetries,
		InitialDelay: cfg.InitialDelay,
		MaxDelay:     cfg.MaxDelay,
		Jitter:       cfg.Jitter,
	}
}

// Sleeper waits for d or until ctx is done
type Sleeper func(ctx context.Context, d time.Duration) error

// Adapter implements feedsync.DeliveryAdapter
type Adapter struct {
	clients ClientResolver
	config  RetryConfig
	sleep   Sleeper
	random  func() float64
	logger  *zap.Logger
}

// Option configures an Adapter
type Option func(*Adapter)

// WithSleeper replaces the timer-based wait, mainly for tests
func WithSleeper(s Sleeper) Option {
	return func(a *Adapter) {
		a.sleep = s
	}
}

// WithRandom replaces the jitter source
func WithRandom(fn func() float64) Option {
	return func(a *Adapter) {
		a.random = fn
	}
}

// NewAdapter creates a delivery adapter
func NewAdapter(clients ClientResolver, cfg RetryConfig, logger *zap.Logger, opts ...Option) *Adapter {
	a := &Adapter{
		clients: clients,
		config:  cfg,
		sleep:   timerSleep,
		random:  rand.Float64,
		logger:  logger.Named("delivery"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Submit delivers a feed reference, retrying transient failures with
// exponential backoff. Permanent failures stop immediately.
func (a *Adapter) Submit(ctx context.Context, ref feedsync.FeedReference, creds feedsync.Credentials, meta feedsync.CatalogMeta) *feedsync.DeliveryResult {
	result := &feedsync.DeliveryResult{}

	client, err := a.clients.Client(meta.Platform)
	if err != nil {
		result.Error = feedsync.NewPermanentError(shared.CodeConfiguration, err.Error(), err)
		return result
	}

	log := a.logger.With(
		zap.String("catalog_id", meta.CatalogID.String()),
		zap.String("platform", meta.Platform.String()),
	)

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			result.Error = feedsync.NewTransientError(CodeCancelled, "delivery aborted", err)
			return result
		}

		result.Attempts++
		resp, err := client.SubmitFeed(ctx, ref.URL, creds, meta.Name)
		if err == nil {
			result.Success = true
			result.Response = resp
			result.Error = nil
			log.Info("Feed delivered", zap.Int("attempts", result.Attempts))
			return result
		}

		de := feedsync.AsDeliveryError(err)
		result.Error = de
		if !de.Transient {
			log.Warn("Feed delivery failed permanently",
				zap.Int("attempts", result.Attempts),
				zap.String("code", de.Code),
				zap.Error(err),
			)
			return result
		}
		if attempt >= a.config.MaxRetries {
			log.Warn("Feed delivery retries exhausted",
				zap.Int("attempts", result.Attempts),
				zap.Error(err),
			)
			return result
		}

		delay := a.backoff(attempt)
		log.Info("Retrying feed delivery",
			zap.Int("attempt", result.Attempts),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if err := a.sleep(ctx, delay); err != nil {
			result.Error = feedsync.NewTransientError(CodeCancelled, "delivery aborted during backoff", err)
			return result
		}
	}
}

// backoff returns initialDelay * 2^retry capped at maxDelay, then jittered
func (a *Adapter) backoff(retry int) time.Duration {
	delay := a.config.MaxDelay
	if retry < 30 {
		delay = a.config.InitialDelay * time.Duration(1<<uint(retry))
	}
	if a.config.MaxDelay > 0 && delay > a.config.MaxDelay {
		delay = a.config.MaxDelay
	}
	if a.config.Jitter > 0 {
		spread := a.config.Jitter * (2*a.random() - 1)
		delay = time.Duration(float64(delay) * (1 + spread))
	}
	return max(delay, 0)
}

func timerSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Ensure Adapter implements DeliveryAdapter
var _ feedsync.DeliveryAdapter = (*Adapter)(nil)
