package handler

import (
	"net/http"
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	catalogapp "github.com/feedsync/backend/internal/application/catalog"
	syncapp "github.com/feedsync/backend/internal/application/feedsync"
	"github.com/feedsync/backend/internal/domain/shared"
	"github.com/feedsync/backend/internal/interfaces/http/dto"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeProduct(id string, stock int) catalogapp.ProductInput {
	availability := "in_stock"
	if stock <= 0 {
		availability = "out_of_stock"
	}
	return catalogapp.ProductInput{
		ID:           id,
		Title:        gofakeit.ProductName(),
		Description:  gofakeit.ProductDescription(),
		Price:        decimal.NewFromFloat(gofakeit.Price(5, 500)).Round(2),
		Currency:     "USD",
		Availability: availability,
		StockLevel:   stock,
		ImageURL:     "https://cdn.example.com/" + id + ".jpg",
		ProductURL:   "https://shop.example.com/p/" + id,
		Brand:        gofakeit.Company(),
	}
}

func TestCatalogHandler_Create(t *testing.T) {
	app := newTestApp(t)

	t.Run("applies defaults", func(t *testing.T) {
		created := app.createCatalog(t, "Summer Sale")
		assert.NotEqual(t, uuid.Nil, created.ID)
		assert.Equal(t, app.merchantID, created.MerchantID)
		assert.Equal(t, "GOOGLE_MERCHANT_CENTER", created.AdPlatform)
		assert.Equal(t, "CSV", created.FeedFormat)
		assert.Empty(t, created.Items)
	})

	t.Run("rejects unknown platform", func(t *testing.T) {
		w := app.do(t, http.MethodPost, "/api/v1/catalogs", map[string]any{
			"name":        "Winter",
			"ad_platform": "MYSPACE",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		env := decode[any](t, w)
		assert.Equal(t, shared.CodeValidation, env.Error.Code)
		require.Len(t, env.Error.Details, 1)
		assert.Equal(t, "ad_platform", env.Error.Details[0].Field)
	})

	t.Run("requires a name", func(t *testing.T) {
		w := app.do(t, http.MethodPost, "/api/v1/catalogs", map[string]any{"feed_format": "XML"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("requires merchant scope", func(t *testing.T) {
		w := app.do(t, http.MethodPost, "/api/v1/catalogs", map[string]any{"name": "x"},
			"X-Merchant-ID", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestCatalogHandler_ListAndGet(t *testing.T) {
	app := newTestApp(t)
	first := app.createCatalog(t, "Spring")
	app.createCatalog(t, "Autumn")

	t.Run("list with meta", func(t *testing.T) {
		w := app.do(t, http.MethodGet, "/api/v1/catalogs?page=1&page_size=1", nil)
		require.Equal(t, http.StatusOK, w.Code)
		env := decode[[]catalogapp.CatalogListResponse](t, w)
		assert.Len(t, env.Data, 1)
		require.NotNil(t, env.Meta)
		assert.Equal(t, int64(2), env.Meta.Total)
		assert.Equal(t, 2, env.Meta.TotalPages)
	})

	t.Run("rejects oversized page", func(t *testing.T) {
		w := app.do(t, http.MethodGet, "/api/v1/catalogs?page_size=500", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("get", func(t *testing.T) {
		w := app.do(t, http.MethodGet, "/api/v1/catalogs/"+first.ID.String(), nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Spring", decode[catalogapp.CatalogResponse](t, w).Data.Name)
	})

	t.Run("other merchants cannot see it", func(t *testing.T) {
		w := app.do(t, http.MethodGet, "/api/v1/catalogs/"+first.ID.String(), nil,
			"X-Merchant-ID", uuid.NewString())
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		w := app.do(t, http.MethodGet, "/api/v1/catalogs/abc", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeBadRequest, decode[any](t, w).Error.Code)
	})
}

func TestCatalogHandler_Update(t *testing.T) {
	app := newTestApp(t)
	created := app.createCatalog(t, "Spring")
	path := "/api/v1/catalogs/" + created.ID.String()

	w := app.do(t, http.MethodPut, path, map[string]any{
		"name":           "Spring Clearance",
		"feed_format":    "XML",
		"stock_handling": "MARK_AS_OUT_OF_STOCK",
		"version":        created.Version,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[catalogapp.CatalogResponse](t, w).Data
	assert.Equal(t, "Spring Clearance", updated.Name)
	assert.Equal(t, "XML", updated.FeedFormat)
	assert.Equal(t, "MARK_AS_OUT_OF_STOCK", updated.StockHandling)

	t.Run("stale version conflicts", func(t *testing.T) {
		w := app.do(t, http.MethodPut, path, map[string]any{
			"name":    "Lost Update",
			"version": created.Version,
		})
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, shared.CodeConflict, decode[any](t, w).Error.Code)
	})

	t.Run("unknown stock handling", func(t *testing.T) {
		w := app.do(t, http.MethodPut, path, map[string]any{
			"stock_handling": "HIDE",
			"version":        updated.Version,
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestCatalogHandler_Delete(t *testing.T) {
	app := newTestApp(t)
	created := app.createCatalog(t, "Spring")
	path := "/api/v1/catalogs/" + created.ID.String()

	w := app.do(t, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = app.do(t, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = app.do(t, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCatalogHandler_Items(t *testing.T) {
	app := newTestApp(t)
	app.seedProducts(t, fakeProduct("SKU-1", 4), fakeProduct("SKU-2", 0))
	created := app.createCatalog(t, "Spring")
	itemsPath := "/api/v1/catalogs/" + created.ID.String() + "/items"

	w := app.do(t, http.MethodPut, itemsPath, map[string]any{"product_id": "SKU-1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "SKU-1", decode[catalogapp.CatalogItemResponse](t, w).Data.ProductID)

	t.Run("second add updates overrides", func(t *testing.T) {
		w := app.do(t, http.MethodPut, itemsPath, map[string]any{
			"product_id":   "SKU-1",
			"custom_title": "Linen Shirt - Summer Edition",
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		item := decode[catalogapp.CatalogItemResponse](t, w).Data
		require.NotNil(t, item.CustomTitle)
		assert.Equal(t, "Linen Shirt - Summer Edition", *item.CustomTitle)
	})

	t.Run("unknown product", func(t *testing.T) {
		w := app.do(t, http.MethodPut, itemsPath, map[string]any{"product_id": "SKU-404"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("remove", func(t *testing.T) {
		w := app.do(t, http.MethodPut, itemsPath, map[string]any{"product_id": "SKU-2"})
		require.Equal(t, http.StatusCreated, w.Code)

		w = app.do(t, http.MethodDelete, itemsPath+"/SKU-2", nil)
		assert.Equal(t, http.StatusNoContent, w.Code)

		w = app.do(t, http.MethodGet, "/api/v1/catalogs/"+created.ID.String(), nil)
		items := decode[catalogapp.CatalogResponse](t, w).Data.Items
		require.Len(t, items, 1)
		assert.Equal(t, "SKU-1", items[0].ProductID)
	})
}

func TestCatalogHandler_GenerateFeed(t *testing.T) {
	app := newTestApp(t)
	app.seedProducts(t, fakeProduct("SKU-1", 4))
	created := app.createCatalog(t, "Spring")
	base := "/api/v1/catalogs/" + created.ID.String()
	w := app.do(t, http.MethodPut, base+"/items", map[string]any{"product_id": "SKU-1"})
	require.Equal(t, http.StatusCreated, w.Code)

	t.Run("catalog format", func(t *testing.T) {
		w := app.do(t, http.MethodPost, base+"/feed", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		resp := decode[syncapp.GenerateFeedResponse](t, w).Data
		assert.Equal(t, "CSV", resp.Format)
		assert.Equal(t, 1, resp.ItemCount)
		assert.True(t, strings.HasPrefix(resp.FeedURL, "http://localhost:8080/feeds/"), resp.FeedURL)
		assert.True(t, strings.HasSuffix(resp.FeedURL, ".csv"), resp.FeedURL)
	})

	t.Run("explicit format", func(t *testing.T) {
		w := app.do(t, http.MethodPost, base+"/feed?format=XML", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "XML", decode[syncapp.GenerateFeedResponse](t, w).Data.Format)
	})

	t.Run("unknown format", func(t *testing.T) {
		w := app.do(t, http.MethodPost, base+"/feed?format=PDF", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown catalog", func(t *testing.T) {
		w := app.do(t, http.MethodPost, "/api/v1/catalogs/"+uuid.NewString()+"/feed", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
