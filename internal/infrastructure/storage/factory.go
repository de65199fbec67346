package storage

import (
	"context"
	"fmt"

	"github.com/feedsync/backend/internal/domain/feedsync"
	"github.com/feedsync/backend/internal/domain/shared"
	infraconfig "github.com/feedsync/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// NewFeedStorage builds the storage selected by cfg.Driver
func NewFeedStorage(ctx context.Context, cfg *infraconfig.StorageConfig, logger *zap.Logger) (feedsync.FeedStorage, error) {
	switch cfg.Driver {
	case "s3":
		s3Storage, err := NewS3FeedStorage(cfg, WithLogger(logger))
		if err != nil {
			return nil, err
		}
		if err := s3Storage.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		logger.Info("Using S3 feed storage", zap.String("bucket", s3Storage.Bucket()))
		return s3Storage, nil
	case "local", "":
		local, err := NewLocalFeedStorage(cfg.LocalDir, cfg.LocalBaseURL, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("Using local feed storage", zap.String("dir", cfg.LocalDir))
		return local, nil
	default:
		return nil, shared.NewConfigurationError(fmt.Sprintf("unsupported storage driver %q", cfg.Driver))
	}
}
