package feedsync

import (
	"time"

	"github.com/feedsync/backend/internal/domain/catalog"
)

// ApplyOutOfStockRule applies a catalog's stock visibility policy to the
// render set. It returns a new slice and never mutates its input.
//
// ALLOW_TEMPORARILY keeps an out-of-stock item until the allowance has elapsed
// since the product's OutOfStockReference, then drops it. Items with no
// reference timestamp are kept.
func ApplyOutOfStockRule(rule catalog.OutOfStockRule, items []FeedItem, now time.Time) []FeedItem {
	out := make([]FeedItem, 0, len(items))
	for _, item := range items {
		if !item.Product.IsOutOfStock() {
			out = append(out, item)
			continue
		}

		switch rule.Handling {
		case catalog.StockHandlingMarkOutOfStock:
			item.Product.Availability = catalog.AvailabilityOutOfStock
			out = append(out, item)
		case catalog.StockHandlingAllowTemporarily:
			if withinAllowance(item.Product.OutOfStockReference(), rule.TemporaryAllowanceDays, now) {
				out = append(out, item)
			}
		default:
			// EXCLUDE_FROM_FEED
		}
	}
	return out
}

func withinAllowance(reference *time.Time, days int, now time.Time) bool {
	if reference == nil {
		return true
	}
	deadline := reference.Add(time.Duration(days) * 24 * time.Hour)
	return now.Before(deadline)
}
