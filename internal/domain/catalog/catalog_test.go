package catalog

import (
	"testing"

	"github.com/feedsync/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := NewCatalog(uuid.New(), "Summer Sale", AdPlatformGoogleMerchantCenter, DefaultFeedSettings(), DefaultOutOfStockRule())
	require.NoError(t, err)
	return c
}

func TestNewCatalog(t *testing.T) {
	merchantID := uuid.New()

	t.Run("creates catalog with valid inputs", func(t *testing.T) {
		c, err := NewCatalog(merchantID, "  Summer Sale ", AdPlatformMetaCatalog, DefaultFeedSettings(), DefaultOutOfStockRule())
		require.NoError(t, err)

		assert.NotEqual(t, uuid.Nil, c.ID)
		assert.Equal(t, merchantID, c.MerchantID)
		assert.Equal(t, "Summer Sale", c.Name)
		assert.Equal(t, AdPlatformMetaCatalog, c.AdPlatform)
		assert.Equal(t, FeedFormatCSV, c.FeedSettings.Format)
		assert.Equal(t, StockHandlingExclude, c.OutOfStockRule.Handling)
		assert.Equal(t, 1, c.GetVersion())
		assert.Empty(t, c.Items)
	})

	t.Run("allows catalog without platform", func(t *testing.T) {
		c, err := NewCatalog(merchantID, "Feed only", "", DefaultFeedSettings(), DefaultOutOfStockRule())
		require.NoError(t, err)
		assert.False(t, c.AdPlatform.IsSet())
	})

	tests := []struct {
		name     string
		merchant uuid.UUID
		catName  string
		platform AdPlatform
		settings FeedSettings
		wantErr  error
	}{
		{"nil merchant", uuid.Nil, "x", "", DefaultFeedSettings(), ErrInvalidCatalog},
		{"empty name", merchantID, "   ", "", DefaultFeedSettings(), ErrInvalidCatalog},
		{"unknown platform", merchantID, "x", AdPlatform("MYSPACE"), DefaultFeedSettings(), ErrInvalidCatalog},
		{"unknown format", merchantID, "x", "", FeedSettings{Format: "JSON"}, ErrInvalidFeedSettings},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCatalog(tt.merchant, tt.catName, tt.platform, tt.settings, DefaultOutOfStockRule())
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, shared.ErrValidation)
		})
	}
}

func TestCatalog_AddItem(t *testing.T) {
	t.Run("adds new item", func(t *testing.T) {
		c := newTestCatalog(t)

		item, created, err := c.AddItem("SKU-1", strPtr("Custom"), nil)
		require.NoError(t, err)

		assert.True(t, created)
		assert.Equal(t, c.ID, item.CatalogID)
		assert.Equal(t, "SKU-1", item.ProductID)
		assert.Equal(t, "Custom", *item.CustomTitle)
		assert.Nil(t, item.CustomDescription)
		assert.Len(t, c.Items, 1)
	})

	t.Run("re-adding same product updates overrides in place", func(t *testing.T) {
		c := newTestCatalog(t)

		first, _, err := c.AddItem("SKU-1", strPtr("Old"), nil)
		require.NoError(t, err)
		firstID := first.ID

		second, created, err := c.AddItem("SKU-1", strPtr("New"), strPtr("Better description"))
		require.NoError(t, err)

		assert.False(t, created)
		assert.Equal(t, firstID, second.ID)
		require.Len(t, c.Items, 1)
		assert.Equal(t, "New", *c.Items[0].CustomTitle)
		assert.Equal(t, "Better description", *c.Items[0].CustomDescription)
	})

	t.Run("blank overrides are cleared", func(t *testing.T) {
		c := newTestCatalog(t)
		_, _, err := c.AddItem("SKU-1", strPtr("Title"), nil)
		require.NoError(t, err)

		_, _, err = c.AddItem("SKU-1", strPtr("  "), nil)
		require.NoError(t, err)

		item, ok := c.FindItem("SKU-1")
		require.True(t, ok)
		assert.Nil(t, item.CustomTitle)
	})

	t.Run("rejects empty product id", func(t *testing.T) {
		c := newTestCatalog(t)
		_, _, err := c.AddItem(" ", nil, nil)
		assert.ErrorIs(t, err, ErrInvalidCatalog)
	})
}

func TestCatalog_RemoveItem(t *testing.T) {
	c := newTestCatalog(t)
	_, _, _ = c.AddItem("SKU-1", nil, nil)
	_, _, _ = c.AddItem("SKU-2", nil, nil)

	removed, err := c.RemoveItem("SKU-1")
	require.NoError(t, err)
	assert.Equal(t, "SKU-1", removed.ProductID)
	assert.Equal(t, []string{"SKU-2"}, c.ProductIDs())

	_, err = c.RemoveItem("SKU-1")
	assert.ErrorIs(t, err, ErrCatalogItemNotFound)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCatalog_FeedFileName(t *testing.T) {
	c := newTestCatalog(t)
	assert.Equal(t, "catalog-"+c.ID.String(), c.FeedFileName())

	settings, err := NewFeedSettings(FeedFormatXML, "summer")
	require.NoError(t, err)
	c.ChangeFeedSettings(settings)
	assert.Equal(t, "summer", c.FeedFileName())
}

func TestNewFeedSettings(t *testing.T) {
	_, err := NewFeedSettings(FeedFormatCSV, "../etc/passwd")
	assert.ErrorIs(t, err, ErrInvalidFeedSettings)

	_, err = NewFeedSettings("TSV", "")
	assert.ErrorIs(t, err, ErrInvalidFeedSettings)

	s, err := NewFeedSettings(FeedFormatPlatformSchema, " google ")
	require.NoError(t, err)
	assert.Equal(t, "google", s.CustomFileName)
}

func TestNewOutOfStockRule(t *testing.T) {
	t.Run("allow temporarily requires days", func(t *testing.T) {
		_, err := NewOutOfStockRule(StockHandlingAllowTemporarily, 0)
		assert.ErrorIs(t, err, ErrInvalidOutOfStockRule)
	})

	t.Run("days are dropped for other handlings", func(t *testing.T) {
		r, err := NewOutOfStockRule(StockHandlingMarkOutOfStock, 7)
		require.NoError(t, err)
		assert.Equal(t, 0, r.TemporaryAllowanceDays)
	})

	t.Run("negative days rejected", func(t *testing.T) {
		_, err := NewOutOfStockRule(StockHandlingAllowTemporarily, -1)
		assert.ErrorIs(t, err, ErrInvalidOutOfStockRule)
	})

	t.Run("unknown handling rejected", func(t *testing.T) {
		_, err := NewOutOfStockRule("HIDE", 0)
		assert.ErrorIs(t, err, ErrInvalidOutOfStockRule)
	})
}
