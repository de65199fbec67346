package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/feedsync/backend/internal/domain/catalog"
	"github.com/feedsync/backend/internal/domain/shared"
	"github.com/feedsync/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCatalogRepository implements CatalogRepository using GORM
type GormCatalogRepository struct {
	db *gorm.DB
}

// NewGormCatalogRepository creates a new GormCatalogRepository
func NewGormCatalogRepository(db *gorm.DB) *GormCatalogRepository {
	return &GormCatalogRepository{db: db}
}

// FindByIDForMerchant loads a catalog and its items for the owning merchant
func (r *GormCatalogRepository) FindByIDForMerchant(ctx context.Context, merchantID, id uuid.UUID) (*catalog.Catalog, error) {
	var model models.CatalogModel
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("added_at ASC, id ASC")
		}).
		Where("id = ? AND merchant_id = ?", id, merchantID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalog.ErrCatalogNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllForMerchant lists a merchant's catalogs, without items
func (r *GormCatalogRepository) FindAllForMerchant(ctx context.Context, merchantID uuid.UUID, filter shared.Filter) ([]catalog.Catalog, int64, error) {
	filter = filter.Normalize()
	query := r.db.WithContext(ctx).Model(&models.CatalogModel{}).Where("merchant_id = ?", merchantID)
	if filter.Search != "" {
		query = query.Where("name LIKE ?", "%"+filter.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.CatalogModel
	err := query.
		Order(orderClause(filter, CatalogSortFields, "created_at")).
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return toDomainCatalogs(rows), total, nil
}

// FindSyncEnabled returns catalogs flagged for scheduled sync that target a platform
func (r *GormCatalogRepository) FindSyncEnabled(ctx context.Context) ([]catalog.Catalog, error) {
	var rows []models.CatalogModel
	err := r.db.WithContext(ctx).
		Where("sync_enabled = ? AND ad_platform <> ''", true).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toDomainCatalogs(rows), nil
}

// FindByProductIDs returns the merchant's catalogs containing any of the products
func (r *GormCatalogRepository) FindByProductIDs(ctx context.Context, merchantID uuid.UUID, productIDs []string) ([]catalog.Catalog, error) {
	if len(productIDs) == 0 {
		return []catalog.Catalog{}, nil
	}
	sub := r.db.Model(&models.CatalogProductItemModel{}).
		Select("catalog_id").
		Where("product_id IN ?", productIDs)

	var rows []models.CatalogModel
	err := r.db.WithContext(ctx).
		Where("merchant_id = ? AND id IN (?)", merchantID, sub).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toDomainCatalogs(rows), nil
}

// Create inserts a catalog together with its items
func (r *GormCatalogRepository) Create(ctx context.Context, c *catalog.Catalog) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(models.CatalogModelFromDomain(c)).Error; err != nil {
			return err
		}
		for i := range c.Items {
			if err := upsertItem(tx, &c.Items[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// Update saves the catalog's own fields guarded by its version.
// On success the in-memory version is advanced to match the stored row.
func (r *GormCatalogRepository) Update(ctx context.Context, c *catalog.Catalog) error {
	model := models.CatalogModelFromDomain(c)
	result := r.db.WithContext(ctx).
		Model(&models.CatalogModel{}).
		Where("id = ? AND merchant_id = ? AND version = ?", c.ID, c.MerchantID, c.Version).
		Updates(map[string]any{
			"name":                     model.Name,
			"description":              model.Description,
			"ad_platform":              model.AdPlatform,
			"feed_format":              model.FeedFormat,
			"feed_file_name":           model.FeedFileName,
			"stock_handling":           model.StockHandling,
			"temporary_allowance_days": model.TemporaryAllowanceDays,
			"sync_enabled":             model.SyncEnabled,
			"updated_at":               model.UpdatedAt,
			"version":                  gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.CatalogModel{}).
			Where("id = ? AND merchant_id = ?", c.ID, c.MerchantID).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return catalog.ErrCatalogNotFound
		}
		return fmt.Errorf("%w: catalog %s at version %d", catalog.ErrCatalogVersionConflict, c.ID, c.Version)
	}
	c.IncrementVersion()
	return nil
}

// SaveItem inserts an item or updates the overrides of the existing item
// for the same (catalog, product) pair
func (r *GormCatalogRepository) SaveItem(ctx context.Context, item *catalog.CatalogProductItem) error {
	return upsertItem(r.db.WithContext(ctx), item)
}

// DeleteItem removes a product from a catalog
func (r *GormCatalogRepository) DeleteItem(ctx context.Context, catalogID uuid.UUID, productID string) error {
	result := r.db.WithContext(ctx).
		Where("catalog_id = ? AND product_id = ?", catalogID, productID).
		Delete(&models.CatalogProductItemModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return catalog.ErrCatalogItemNotFound
	}
	return nil
}

// DeleteForMerchant deletes a catalog with its items and sync history
func (r *GormCatalogRepository) DeleteForMerchant(ctx context.Context, merchantID, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ? AND merchant_id = ?", id, merchantID).Delete(&models.CatalogModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return catalog.ErrCatalogNotFound
		}
		if err := tx.Where("catalog_id = ?", id).Delete(&models.CatalogProductItemModel{}).Error; err != nil {
			return err
		}
		return tx.Where("catalog_id = ?", id).Delete(&models.SyncHistoryModel{}).Error
	})
}

func upsertItem(db *gorm.DB, item *catalog.CatalogProductItem) error {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "catalog_id"}, {Name: "product_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"custom_title", "custom_description"}),
	}).Create(models.CatalogProductItemModelFromDomain(item)).Error
}

func toDomainCatalogs(rows []models.CatalogModel) []catalog.Catalog {
	catalogs := make([]catalog.Catalog, len(rows))
	for i := range rows {
		catalogs[i] = *rows[i].ToDomain()
	}
	return catalogs
}

// Ensure GormCatalogRepository implements CatalogRepository
var _ catalog.CatalogRepository = (*GormCatalogRepository)(nil)
