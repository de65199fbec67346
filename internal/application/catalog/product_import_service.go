package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/feedsync/backend/internal/domain/catalog"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProductImportService creates and replaces full product records from the inventory source
type ProductImportService struct {
	productRepo catalog.ProductRepository
	logger      *zap.Logger
	now         func() time.Time
}

// NewProductImportService creates a new ProductImportService
func NewProductImportService(productRepo catalog.ProductRepository, logger *zap.Logger) *ProductImportService {
	return &ProductImportService{
		productRepo: productRepo,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// UpsertProducts validates and upserts products for a merchant.
// Repeated ids within one request collapse to the last record.
func (s *ProductImportService) UpsertProducts(ctx context.Context, merchantID uuid.UUID, inputs []ProductInput) (*ImportProductsResult, error) {
	if merchantID == uuid.Nil {
		return nil, fmt.Errorf("%w: merchant id is required", catalog.ErrInvalidProduct)
	}
	if len(inputs) == 0 {
		return &ImportProductsResult{}, nil
	}

	order := make([]string, 0, len(inputs))
	byID := make(map[string]*catalog.Product, len(inputs))
	for i, in := range inputs {
		p := in.toDomain(merchantID)
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("products[%d]: %w", i, err)
		}
		if _, seen := byID[p.ID]; !seen {
			order = append(order, p.ID)
		}
		byID[p.ID] = p
	}

	existing, err := s.productRepo.FindByIDs(ctx, merchantID, order)
	if err != nil {
		return nil, err
	}
	previous := make(map[string]*catalog.Product, len(existing))
	for i := range existing {
		previous[existing[i].ID] = &existing[i]
	}

	now := s.now()
	result := &ImportProductsResult{}
	batch := make([]*catalog.Product, 0, len(order))
	for _, id := range order {
		p := byID[id]
		prev := previous[id]
		p.MarkImported(prev, now)
		if prev == nil {
			result.Created++
		} else {
			result.Updated++
		}
		batch = append(batch, p)
	}

	if err := s.productRepo.SaveBatch(ctx, batch); err != nil {
		return nil, err
	}

	s.logger.Info("products imported",
		zap.String("merchant_id", merchantID.String()),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
	)
	return result, nil
}
