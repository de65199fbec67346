package catalog

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Availability is a product's availability as reported by the inventory source
type Availability string

const (
	AvailabilityInStock    Availability = "in_stock"
	AvailabilityOutOfStock Availability = "out_of_stock"
	AvailabilityPreorder   Availability = "preorder"
	AvailabilityBackorder  Availability = "backorder"
)

// IsValid returns true if the availability is a known value
func (a Availability) IsValid() bool {
	switch a {
	case AvailabilityInStock, AvailabilityOutOfStock, AvailabilityPreorder, AvailabilityBackorder:
		return true
	default:
		return false
	}
}

func (a Availability) String() string {
	return string(a)
}

// Product is a merchant product owned by the external inventory source.
// ID is the source's identifier and is unique per merchant.
type Product struct {
	ID              string
	MerchantID      uuid.UUID
	Title           string
	Description     string
	Price           decimal.Decimal
	Currency        string
	Availability    Availability
	StockLevel      int
	ImageURL        string
	ProductURL      string
	Brand           string
	GTIN            string
	MPN             string
	Category        string
	SourceUpdatedAt *time.Time
	// OutOfStockSince is when the product was first seen out of stock.
	// Nil while the product is in stock.
	OutOfStockSince *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Validate checks the fields required to list a product in a feed
func (p *Product) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidProduct)
	}
	if p.MerchantID == uuid.Nil {
		return fmt.Errorf("%w: merchant id is required for product %s", ErrInvalidProduct, p.ID)
	}
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("%w: title is required for product %s", ErrInvalidProduct, p.ID)
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("%w: price cannot be negative for product %s", ErrInvalidProduct, p.ID)
	}
	if len(p.Currency) != 3 {
		return fmt.Errorf("%w: currency must be a 3-letter code for product %s", ErrInvalidProduct, p.ID)
	}
	if !p.Availability.IsValid() {
		return fmt.Errorf("%w: unknown availability %q for product %s", ErrInvalidProduct, p.Availability, p.ID)
	}
	return nil
}

// IsOutOfStock reports whether the product has no sellable stock
func (p *Product) IsOutOfStock() bool {
	return p.StockLevel <= 0 || p.Availability == AvailabilityOutOfStock
}

// ApplyStockUpdate applies an inventory delta from the source and stamps the
// source update time. It tracks the first moment the product went out of stock.
func (p *Product) ApplyStockUpdate(stock *int, availability *Availability, now time.Time) {
	if stock != nil {
		p.StockLevel = *stock
	}
	if availability != nil {
		p.Availability = *availability
	}
	p.SourceUpdatedAt = &now
	p.UpdatedAt = now
	p.trackStockTransition(now)
}

// MarkImported records a full import of the product from the source
func (p *Product) MarkImported(previous *Product, now time.Time) {
	p.SourceUpdatedAt = &now
	p.UpdatedAt = now
	p.CreatedAt = now
	p.OutOfStockSince = nil
	if previous != nil {
		p.CreatedAt = previous.CreatedAt
		p.OutOfStockSince = previous.OutOfStockSince
	}
	p.trackStockTransition(now)
}

func (p *Product) trackStockTransition(now time.Time) {
	if !p.IsOutOfStock() {
		p.OutOfStockSince = nil
		return
	}
	if p.OutOfStockSince == nil {
		p.OutOfStockSince = &now
	}
}

// OutOfStockReference returns the timestamp temporary stock allowances are
// measured from: the first out-of-stock moment, or the last source update
// for rows recorded before that was tracked.
func (p *Product) OutOfStockReference() *time.Time {
	if p.OutOfStockSince != nil {
		return p.OutOfStockSince
	}
	return p.SourceUpdatedAt
}
