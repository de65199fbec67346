package feedsync

import (
	"context"
	"fmt"
	"time"

	"github.com/feedsync/backend/internal/domain/catalog"
	"github.com/feedsync/backend/internal/domain/feedsync"
	"github.com/feedsync/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// GeneratorRegistry resolves the feed generator for a format
type GeneratorRegistry interface {
	Get(format catalog.FeedFormat) (feedsync.FeedGenerator, error)
}

// renderedFeed is a feed that has been rendered and stored
type renderedFeed struct {
	URL         string
	Format      catalog.FeedFormat
	ContentType string
	ItemCount   int
}

func (f *renderedFeed) reference() feedsync.FeedReference {
	return feedsync.FeedReference{
		URL:         f.URL,
		Format:      f.Format,
		ContentType: f.ContentType,
		ItemCount:   f.ItemCount,
	}
}

// feedRenderer builds the render set for a catalog, renders it and uploads the result.
// It is shared by on-demand generation and sync attempts.
type feedRenderer struct {
	generators GeneratorRegistry
	storage    feedsync.FeedStorage
	logger     *zap.Logger
	now        func() time.Time
}

func newFeedRenderer(generators GeneratorRegistry, storage feedsync.FeedStorage, logger *zap.Logger) *feedRenderer {
	return &feedRenderer{
		generators: generators,
		storage:    storage,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// renderSet joins the catalog's items with their products and applies the stock rule
func (r *feedRenderer) renderSet(c *catalog.Catalog, products []catalog.Product) []feedsync.FeedItem {
	items, missing := feedsync.BuildFeedItems(c, products)
	if len(missing) > 0 {
		r.logger.Warn("catalog references unknown products",
			zap.String("catalog_id", c.ID.String()),
			zap.Strings("product_ids", missing),
		)
	}
	return feedsync.ApplyOutOfStockRule(c.OutOfStockRule, items, r.now())
}

// render generates and stores the feed. Generation failures carry
// FEED_GENERATION_ERROR or CONFIGURATION_ERROR; upload failures carry STORAGE_ERROR.
func (r *feedRenderer) render(ctx context.Context, c *catalog.Catalog, products []catalog.Product, format catalog.FeedFormat) (*renderedFeed, error) {
	generator, err := r.generators.Get(format)
	if err != nil {
		return nil, err
	}

	items := r.renderSet(c, products)
	content, err := generator.Generate(c, items)
	if err != nil {
		if shared.ErrorCode(err) == "" {
			return nil, shared.WrapDomainError(shared.CodeFeedGeneration, "feed generation failed", err)
		}
		return nil, err
	}

	fileName := fmt.Sprintf("%s.%s", c.FeedFileName(), generator.FileExtension())
	url, err := r.storage.Upload(ctx, content, fileName, generator.ContentType(), c.MerchantID, c.ID)
	if err != nil {
		if shared.ErrorCode(err) == "" {
			return nil, shared.WrapDomainError(shared.CodeStorage, "feed upload failed", err)
		}
		return nil, err
	}

	return &renderedFeed{
		URL:         url,
		Format:      format,
		ContentType: generator.ContentType(),
		ItemCount:   len(items),
	}, nil
}
