package feedsync

import (
	"github.com/feedsync/backend/internal/domain/catalog"
	"github.com/google/uuid"
)

// FeedItem is the render copy of a catalog product. Product is held by value
// so transforms applied before rendering never touch the stored product.
type FeedItem struct {
	ItemID            uuid.UUID
	Product           catalog.Product
	CustomTitle       *string
	CustomDescription *string
}

// Title returns the title to emit, preferring the catalog override
func (i FeedItem) Title() string {
	if i.CustomTitle != nil {
		return *i.CustomTitle
	}
	return i.Product.Title
}

// Description returns the description to emit, preferring the catalog override
func (i FeedItem) Description() string {
	if i.CustomDescription != nil {
		return *i.CustomDescription
	}
	return i.Product.Description
}

// BuildFeedItems joins a catalog's items with their resolved products in item order.
// Items whose product is unknown are returned separately.
func BuildFeedItems(c *catalog.Catalog, products []catalog.Product) ([]FeedItem, []string) {
	byID := make(map[string]catalog.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	items := make([]FeedItem, 0, len(c.Items))
	var missing []string
	for _, ci := range c.Items {
		p, ok := byID[ci.ProductID]
		if !ok {
			missing = append(missing, ci.ProductID)
			continue
		}
		items = append(items, FeedItem{
			ItemID:            ci.ID,
			Product:           p,
			CustomTitle:       ci.CustomTitle,
			CustomDescription: ci.CustomDescription,
		})
	}
	return items, missing
}
