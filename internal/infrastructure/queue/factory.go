package queue

import (
	"context"
	"fmt"

	"github.com/feedsync/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewTransport builds the transport selected by cfg.Driver. client may be nil
// for the memory driver.
func NewTransport(ctx context.Context, cfg config.QueueConfig, client *redis.Client, logger *zap.Logger) (Transport, error) {
	opts := Options{
		Block:         cfg.Block,
		ClaimMinIdle:  cfg.ClaimMinIdle,
		MaxDeliveries: cfg.MaxDeliveries,
	}
	switch cfg.Driver {
	case "redis":
		if client == nil {
			return nil, fmt.Errorf("queue driver redis requires a redis connection")
		}
		logger.Info("Using redis stream trigger queue",
			zap.String("stream", cfg.Stream),
			zap.String("group", cfg.Group),
		)
		return NewRedisStreamTransport(ctx, client, cfg.Stream, cfg.Group, opts, logger)
	case "memory", "":
		logger.Info("Using in-memory trigger queue")
		return NewMemoryTransport(opts), nil
	default:
		return nil, fmt.Errorf("unsupported queue driver %q", cfg.Driver)
	}
}
