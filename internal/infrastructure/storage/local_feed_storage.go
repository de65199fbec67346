package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/feedsync/backend/internal/domain/feedsync"
	"github.com/feedsync/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Ensure LocalFeedStorage implements FeedStorage
var _ feedsync.FeedStorage = (*LocalFeedStorage)(nil)

// LocalFeedStorage writes feeds to a directory served by the HTTP server.
// Intended for development and single-node deployments.
type LocalFeedStorage struct {
	dir     string
	baseURL string
	now     func() time.Time
	logger  *zap.Logger
}

// NewLocalFeedStorage creates a local storage rooted at dir
func NewLocalFeedStorage(dir, baseURL string, logger *zap.Logger) (*LocalFeedStorage, error) {
	if dir == "" {
		return nil, shared.NewConfigurationError("storage local_dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, shared.WrapDomainError(shared.CodeStorage, "failed to create feed directory", err)
	}
	return &LocalFeedStorage{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
		logger:  logger,
	}, nil
}

// Dir returns the root directory feeds are written to
func (s *LocalFeedStorage) Dir() string {
	return s.dir
}

// Upload writes the feed atomically and returns its URL under the base URL
func (s *LocalFeedStorage) Upload(ctx context.Context, content []byte, fileName, contentType string, merchantID, catalogID uuid.UUID) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	key := FeedKey(merchantID, catalogID, fileName, s.now())
	target := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", shared.WrapDomainError(shared.CodeStorage, "failed to create feed directory", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return "", shared.WrapDomainError(shared.CodeStorage, "failed to write feed", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		return "", shared.WrapDomainError(shared.CodeStorage, "failed to write feed", err)
	}
	if err := tmp.Close(); err != nil {
		return "", shared.WrapDomainError(shared.CodeStorage, "failed to write feed", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", shared.WrapDomainError(shared.CodeStorage, fmt.Sprintf("failed to store feed %s", key), err)
	}

	s.logger.Debug("Feed written",
		zap.String("path", target),
		zap.String("content_type", contentType),
		zap.Int("bytes", len(content)),
	)
	return s.baseURL + "/" + key, nil
}
