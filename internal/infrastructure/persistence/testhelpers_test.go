package persistence

import (
	"testing"

	"github.com/feedsync/backend/internal/domain/catalog"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	// :memory: databases are per connection
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(AllModels()...))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func newTestCatalog(t *testing.T, merchantID uuid.UUID, name string) *catalog.Catalog {
	t.Helper()
	c, err := catalog.NewCatalog(merchantID, name, catalog.AdPlatformGoogleMerchantCenter,
		catalog.DefaultFeedSettings(), catalog.DefaultOutOfStockRule())
	require.NoError(t, err)
	return c
}

func strPtr(s string) *string { return &s }
