// Package feed renders catalog items into the feed documents ad platforms ingest.
package feed

import (
	"fmt"
	"strings"

	"github.com/feedsync/backend/internal/domain/catalog"
	"github.com/feedsync/backend/internal/domain/feedsync"
)

// columns is the fixed field mapping shared by every format
var columns = []string{
	"id", "title", "description", "link", "image_link", "availability",
	"price", "brand", "gtin", "mpn", "product_category",
}

// row is one feed entry after overrides are applied
type row struct {
	ID              string
	Title           string
	Description     string
	Link            string
	ImageLink       string
	Availability    string
	Price           string
	Brand           string
	GTIN            string
	MPN             string
	ProductCategory string
}

func (r row) values() []string {
	return []string{
		r.ID, r.Title, r.Description, r.Link, r.ImageLink, r.Availability,
		r.Price, r.Brand, r.GTIN, r.MPN, r.ProductCategory,
	}
}

func buildRows(c *catalog.Catalog, items []feedsync.FeedItem) ([]row, error) {
	rows := make([]row, 0, len(items))
	for _, item := range items {
		r, err := buildRow(c, item)
		if err != nil {
			return nil, err
		}
		rows = append(rows, r)
	}
	return rows, nil
}

func buildRow(c *catalog.Catalog, item feedsync.FeedItem) (row, error) {
	p := item.Product
	if strings.TrimSpace(p.ID) == "" {
		return row{}, feedsync.NewFeedGenerationError(
			fmt.Sprintf("catalog %s item %s has a product without an identifier", c.ID, item.ItemID))
	}
	return row{
		ID:              p.ID,
		Title:           item.Title(),
		Description:     item.Description(),
		Link:            p.ProductURL,
		ImageLink:       p.ImageURL,
		Availability:    string(p.Availability),
		Price:           formatPrice(p),
		Brand:           p.Brand,
		GTIN:            p.GTIN,
		MPN:             p.MPN,
		ProductCategory: p.Category,
	}, nil
}

// formatPrice renders "amount currency" with two decimals, e.g. "19.90 USD"
func formatPrice(p catalog.Product) string {
	return p.Price.StringFixed(2) + " " + strings.ToUpper(p.Currency)
}
