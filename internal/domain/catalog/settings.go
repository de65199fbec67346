package catalog

import (
	"fmt"
	"strings"
)

const maxFileNameLength = 100

// FeedSettings describes how a catalog's feed is rendered.
// It is a value object embedded in Catalog.
type FeedSettings struct {
	Format         FeedFormat
	CustomFileName string
}

// NewFeedSettings validates and creates feed settings
func NewFeedSettings(format FeedFormat, customFileName string) (FeedSettings, error) {
	if !format.IsValid() {
		return FeedSettings{}, fmt.Errorf("%w: unsupported feed format %q", ErrInvalidFeedSettings, format)
	}
	name := strings.TrimSpace(customFileName)
	if len(name) > maxFileNameLength {
		return FeedSettings{}, fmt.Errorf("%w: file name cannot exceed %d characters", ErrInvalidFeedSettings, maxFileNameLength)
	}
	if strings.ContainsAny(name, `/\`) {
		return FeedSettings{}, fmt.Errorf("%w: file name cannot contain path separators", ErrInvalidFeedSettings)
	}
	return FeedSettings{Format: format, CustomFileName: name}, nil
}

// DefaultFeedSettings returns CSV settings without a custom file name
func DefaultFeedSettings() FeedSettings {
	return FeedSettings{Format: FeedFormatCSV}
}

// OutOfStockRule is the stock visibility policy of a catalog.
// It is a value object embedded in Catalog.
type OutOfStockRule struct {
	Handling               StockHandling
	TemporaryAllowanceDays int
}

// NewOutOfStockRule validates and creates an out-of-stock rule
func NewOutOfStockRule(handling StockHandling, allowanceDays int) (OutOfStockRule, error) {
	if !handling.IsValid() {
		return OutOfStockRule{}, fmt.Errorf("%w: unsupported handling %q", ErrInvalidOutOfStockRule, handling)
	}
	if allowanceDays < 0 {
		return OutOfStockRule{}, fmt.Errorf("%w: allowance days cannot be negative", ErrInvalidOutOfStockRule)
	}
	if handling == StockHandlingAllowTemporarily && allowanceDays == 0 {
		return OutOfStockRule{}, fmt.Errorf("%w: %s requires allowance days", ErrInvalidOutOfStockRule, handling)
	}
	if handling != StockHandlingAllowTemporarily {
		allowanceDays = 0
	}
	return OutOfStockRule{Handling: handling, TemporaryAllowanceDays: allowanceDays}, nil
}

// DefaultOutOfStockRule excludes out-of-stock products
func DefaultOutOfStockRule() OutOfStockRule {
	return OutOfStockRule{Handling: StockHandlingExclude}
}
