package persistence

import (
	"context"

	"github.com/feedsync/backend/internal/domain/catalog"
	"github.com/feedsync/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// productUpsertColumns are overwritten when a product is re-imported
var productUpsertColumns = []string{
	"title", "description", "price", "currency", "availability", "stock_level",
	"image_url", "product_url", "brand", "gtin", "mpn", "category",
	"source_updated_at", "out_of_stock_since", "updated_at",
}

// GormProductRepository implements ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// FindByIDs returns the merchant's products with the given source IDs
func (r *GormProductRepository) FindByIDs(ctx context.Context, merchantID uuid.UUID, ids []string) ([]catalog.Product, error) {
	if len(ids) == 0 {
		return []catalog.Product{}, nil
	}
	var rows []models.ProductModel
	if err := r.db.WithContext(ctx).
		Where("merchant_id = ? AND id IN ?", merchantID, ids).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	products := make([]catalog.Product, len(rows))
	for i := range rows {
		products[i] = *rows[i].ToDomain()
	}
	return products, nil
}

// SaveBatch upserts products keyed by (merchant_id, id)
func (r *GormProductRepository) SaveBatch(ctx context.Context, products []*catalog.Product) error {
	if len(products) == 0 {
		return nil
	}
	rows := make([]*models.ProductModel, len(products))
	for i, p := range products {
		rows[i] = models.ProductModelFromDomain(p)
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "merchant_id"}, {Name: "id"}},
		DoUpdates: clause.AssignmentColumns(productUpsertColumns),
	}).CreateInBatches(rows, 500).Error
}

// Ensure GormProductRepository implements ProductRepository
var _ catalog.ProductRepository = (*GormProductRepository)(nil)
