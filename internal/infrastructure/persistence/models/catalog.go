package models

import (
	"time"

	"github.com/feedsync/backend/internal/domain/catalog"
	"github.com/google/uuid"
)

// CatalogModel is the persistence model for the Catalog aggregate root.
// Feed settings and the out-of-stock rule are stored as embedded columns.
type CatalogModel struct {
	AggregateModel
	MerchantID             uuid.UUID                 `gorm:"type:uuid;not null;index"`
	Name                   string                    `gorm:"type:varchar(200);not null"`
	Description            string                    `gorm:"type:text"`
	AdPlatform             string                    `gorm:"type:varchar(50);index"`
	FeedFormat             string                    `gorm:"type:varchar(30);not null"`
	FeedFileName           string                    `gorm:"type:varchar(100)"`
	StockHandling          string                    `gorm:"type:varchar(30);not null"`
	TemporaryAllowanceDays int                       `gorm:"not null"`
	SyncEnabled            bool                      `gorm:"not null;index"`
	Items                  []CatalogProductItemModel `gorm:"foreignKey:CatalogID;references:ID"`
}

// TableName returns the table name for GORM
func (CatalogModel) TableName() string {
	return "catalogs"
}

// ToDomain converts the persistence model to a domain Catalog entity
func (m *CatalogModel) ToDomain() *catalog.Catalog {
	c := &catalog.Catalog{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		MerchantID:        m.MerchantID,
		Name:              m.Name,
		Description:       m.Description,
		AdPlatform:        catalog.AdPlatform(m.AdPlatform),
		FeedSettings: catalog.FeedSettings{
			Format:         catalog.FeedFormat(m.FeedFormat),
			CustomFileName: m.FeedFileName,
		},
		OutOfStockRule: catalog.OutOfStockRule{
			Handling:               catalog.StockHandling(m.StockHandling),
			TemporaryAllowanceDays: m.TemporaryAllowanceDays,
		},
		SyncEnabled: m.SyncEnabled,
		Items:       make([]catalog.CatalogProductItem, 0, len(m.Items)),
	}
	for i := range m.Items {
		c.Items = append(c.Items, m.Items[i].ToDomain())
	}
	return c
}

// FromDomain populates the persistence model from a domain Catalog entity.
// Items are mapped separately through CatalogProductItemModelFromDomain.
func (m *CatalogModel) FromDomain(c *catalog.Catalog) {
	m.FromDomainAggregateRoot(c.BaseAggregateRoot)
	m.MerchantID = c.MerchantID
	m.Name = c.Name
	m.Description = c.Description
	m.AdPlatform = string(c.AdPlatform)
	m.FeedFormat = string(c.FeedSettings.Format)
	m.FeedFileName = c.FeedSettings.CustomFileName
	m.StockHandling = string(c.OutOfStockRule.Handling)
	m.TemporaryAllowanceDays = c.OutOfStockRule.TemporaryAllowanceDays
	m.SyncEnabled = c.SyncEnabled
}

// CatalogModelFromDomain creates a new persistence model from a domain Catalog
func CatalogModelFromDomain(c *catalog.Catalog) *CatalogModel {
	m := &CatalogModel{}
	m.FromDomain(c)
	return m
}

// CatalogProductItemModel is the persistence model for a catalog membership.
// (catalog_id, product_id) is unique.
type CatalogProductItemModel struct {
	ID                uuid.UUID `gorm:"type:uuid;primary_key"`
	CatalogID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_catalog_items_catalog_product"`
	ProductID         string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_catalog_items_catalog_product;index"`
	CustomTitle       *string   `gorm:"type:varchar(500)"`
	CustomDescription *string   `gorm:"type:text"`
	AddedAt           time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CatalogProductItemModel) TableName() string {
	return "catalog_product_items"
}

// ToDomain converts the persistence model to a domain CatalogProductItem
func (m *CatalogProductItemModel) ToDomain() catalog.CatalogProductItem {
	return catalog.CatalogProductItem{
		ID:                m.ID,
		CatalogID:         m.CatalogID,
		ProductID:         m.ProductID,
		CustomTitle:       m.CustomTitle,
		CustomDescription: m.CustomDescription,
		AddedAt:           m.AddedAt,
	}
}

// CatalogProductItemModelFromDomain creates a new persistence model from a domain item
func CatalogProductItemModelFromDomain(item *catalog.CatalogProductItem) *CatalogProductItemModel {
	return &CatalogProductItemModel{
		ID:                item.ID,
		CatalogID:         item.CatalogID,
		ProductID:         item.ProductID,
		CustomTitle:       item.CustomTitle,
		CustomDescription: item.CustomDescription,
		AddedAt:           item.AddedAt,
	}
}
