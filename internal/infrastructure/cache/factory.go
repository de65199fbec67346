package cache

import (
	"context"
	"fmt"

	"github.com/feedsync/backend/internal/domain/feedsync"
	"github.com/feedsync/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Coordination bundles the lease and idempotency primitives for one process
type Coordination struct {
	Locker      feedsync.CatalogLocker
	Idempotency feedsync.IdempotencyStore
	// Redis is nil when running on the in-memory fallback
	Redis *redis.Client

	closers []func() error
}

// Close releases the redis connection or stops the in-memory sweeper
func (c *Coordination) Close() error {
	var firstErr error
	for _, closeFn := range c.closers {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// NewCoordination connects to redis when enabled and falls back to in-memory
// primitives otherwise. With allowFallback false an unreachable redis is an error.
func NewCoordination(ctx context.Context, cfg config.RedisConfig, allowFallback bool, logger *zap.Logger) (*Coordination, error) {
	client, err := NewRedisClient(ctx, cfg)
	if err == nil {
		logger.Info("Using redis for catalog locks and idempotency", zap.String("addr", cfg.Addr()))
		return &Coordination{
			Locker:      NewRedisCatalogLocker(client, ""),
			Idempotency: NewRedisIdempotencyStore(client, ""),
			Redis:       client,
			closers:     []func() error{client.Close},
		}, nil
	}

	if cfg.Enabled && !allowFallback {
		return nil, fmt.Errorf("redis required but unavailable: %w", err)
	}
	if cfg.Enabled {
		logger.Warn("Redis unavailable, falling back to in-memory catalog locks. "+
			"Concurrent syncs of one catalog are only prevented within this process.",
			zap.Error(err),
		)
	}

	store := NewMemoryIdempotencyStore(0)
	return &Coordination{
		Locker:      NewMemoryCatalogLocker(),
		Idempotency: store,
		closers:     []func() error{store.Close},
	}, nil
}
