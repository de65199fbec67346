package feedsync

import (
	"context"
	"fmt"

	"github.com/feedsync/backend/internal/domain/catalog"
	"github.com/feedsync/backend/internal/domain/feedsync"
	"github.com/feedsync/backend/internal/domain/shared"
	"github.com/feedsync/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FeedService renders catalog feeds on demand without delivering them
type FeedService struct {
	catalogRepo catalog.CatalogRepository
	productRepo catalog.ProductRepository
	renderer    *feedRenderer
	logger      *zap.Logger
}

// NewFeedService creates a new FeedService
func NewFeedService(
	catalogRepo catalog.CatalogRepository,
	productRepo catalog.ProductRepository,
	generators GeneratorRegistry,
	storage feedsync.FeedStorage,
	logger *zap.Logger,
) *FeedService {
	return &FeedService{
		catalogRepo: catalogRepo,
		productRepo: productRepo,
		renderer:    newFeedRenderer(generators, storage, logger),
		logger:      logger,
	}
}

// GenerateFeed renders and stores a catalog's feed and returns where it can be fetched.
// An empty format uses the catalog's configured format.
func (s *FeedService) GenerateFeed(ctx context.Context, merchantID, catalogID uuid.UUID, format catalog.FeedFormat) (*GenerateFeedResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "feed", "generate",
		telemetry.WithAttribute(telemetry.SpanAttrCatalogID, catalogID.String()),
	)
	defer span.End()

	c, err := s.catalogRepo.FindByIDForMerchant(ctx, merchantID, catalogID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if format == "" {
		format = c.FeedSettings.Format
	}
	if !format.IsValid() {
		return nil, shared.NewValidationError(fmt.Sprintf("unsupported feed format '%s'", format))
	}

	products, err := s.productRepo.FindByIDs(ctx, merchantID, c.ProductIDs())
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	feed, err := s.renderer.render(ctx, c, products, format)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrFeedFormat, format.String(),
		telemetry.SpanAttrItemCount, feed.ItemCount,
	)
	s.logger.Info("feed generated",
		zap.String("catalog_id", c.ID.String()),
		zap.String("merchant_id", merchantID.String()),
		zap.String("format", format.String()),
		zap.Int("item_count", feed.ItemCount),
	)

	return &GenerateFeedResponse{
		FeedURL:   feed.URL,
		Format:    format.String(),
		ItemCount: feed.ItemCount,
	}, nil
}
