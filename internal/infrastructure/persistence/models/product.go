package models

import (
	"time"

	"github.com/feedsync/backend/internal/domain/catalog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductModel is the persistence model for the product snapshot imported
// from the inventory source. The source ID is only unique per merchant.
type ProductModel struct {
	MerchantID      uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ID              string          `gorm:"type:varchar(255);primaryKey"`
	Title           string          `gorm:"type:varchar(500);not null"`
	Description     string          `gorm:"type:text"`
	Price           decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Currency        string          `gorm:"type:varchar(3);not null"`
	Availability    string          `gorm:"type:varchar(20);not null"`
	StockLevel      int             `gorm:"not null"`
	ImageURL        string          `gorm:"type:varchar(1000)"`
	ProductURL      string          `gorm:"type:varchar(1000)"`
	Brand           string          `gorm:"type:varchar(200)"`
	GTIN            string          `gorm:"column:gtin;type:varchar(50)"`
	MPN             string          `gorm:"column:mpn;type:varchar(100)"`
	Category        string          `gorm:"type:varchar(500)"`
	SourceUpdatedAt *time.Time
	OutOfStockSince *time.Time
	CreatedAt       time.Time `gorm:"not null"`
	UpdatedAt       time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product
func (m *ProductModel) ToDomain() *catalog.Product {
	return &catalog.Product{
		ID:              m.ID,
		MerchantID:      m.MerchantID,
		Title:           m.Title,
		Description:     m.Description,
		Price:           m.Price,
		Currency:        m.Currency,
		Availability:    catalog.Availability(m.Availability),
		StockLevel:      m.StockLevel,
		ImageURL:        m.ImageURL,
		ProductURL:      m.ProductURL,
		Brand:           m.Brand,
		GTIN:            m.GTIN,
		MPN:             m.MPN,
		Category:        m.Category,
		SourceUpdatedAt: m.SourceUpdatedAt,
		OutOfStockSince: m.OutOfStockSince,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain Product
func (m *ProductModel) FromDomain(p *catalog.Product) {
	m.MerchantID = p.MerchantID
	m.ID = p.ID
	m.Title = p.Title
	m.Description = p.Description
	m.Price = p.Price
	m.Currency = p.Currency
	m.Availability = string(p.Availability)
	m.StockLevel = p.StockLevel
	m.ImageURL = p.ImageURL
	m.ProductURL = p.ProductURL
	m.Brand = p.Brand
	m.GTIN = p.GTIN
	m.MPN = p.MPN
	m.Category = p.Category
	m.SourceUpdatedAt = p.SourceUpdatedAt
	m.OutOfStockSince = p.OutOfStockSince
	m.CreatedAt = p.CreatedAt
	m.UpdatedAt = p.UpdatedAt
}

// ProductModelFromDomain creates a new persistence model from a domain Product
func ProductModelFromDomain(p *catalog.Product) *ProductModel {
	m := &ProductModel{}
	m.FromDomain(p)
	return m
}
