package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	catalogapp "github.com/feedsync/backend/internal/application/catalog"
	syncapp "github.com/feedsync/backend/internal/application/feedsync"
	"github.com/feedsync/backend/internal/domain/feedsync"
	"github.com/feedsync/backend/internal/infrastructure/cache"
	"github.com/feedsync/backend/internal/infrastructure/feed"
	"github.com/feedsync/backend/internal/infrastructure/persistence"
	"github.com/feedsync/backend/internal/infrastructure/queue"
	"github.com/feedsync/backend/internal/infrastructure/storage"
	"github.com/feedsync/backend/internal/interfaces/http/dto"
	"github.com/feedsync/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testApp wires the handlers to real services over an in-memory database,
// queue and a temporary feed directory
type testApp struct {
	engine     *gin.Engine
	transport  *queue.MemoryTransport
	history    feedsync.SyncHistoryRepository
	merchantID uuid.UUID
	feedDir    string
}

type envelope[T any] struct {
	Success bool           `json:"success"`
	Data    T              `json:"data"`
	Error   *dto.ErrorInfo `json:"error"`
	Meta    *dto.Meta      `json:"meta"`
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(persistence.AllModels()...))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	require.NoError(t, middleware.SetupValidator())

	log := zaptest.NewLogger(t)
	db := newTestDB(t)
	catalogRepo := persistence.NewGormCatalogRepository(db)
	productRepo := persistence.NewGormProductRepository(db)
	historyRepo := persistence.NewGormSyncHistoryRepository(db)

	transport := queue.NewMemoryTransport(queue.Options{Block: 10 * time.Millisecond})
	t.Cleanup(func() { _ = transport.Close() })
	publisher := queue.NewPublisher(transport, log)

	idempotency := cache.NewMemoryIdempotencyStore(time.Minute)
	t.Cleanup(func() { _ = idempotency.Close() })

	feedDir := t.TempDir()
	feedStorage, err := storage.NewLocalFeedStorage(feedDir, "http://localhost:8080/feeds", log)
	require.NoError(t, err)

	catalogHandler := NewCatalogHandler(
		catalogapp.NewCatalogService(catalogRepo, productRepo),
		syncapp.NewFeedService(catalogRepo, productRepo, feed.NewDefaultRegistry("https://shop.example.com"), feedStorage, log),
	)
	syncHandler := NewSyncHandler(
		syncapp.NewTriggerService(catalogRepo, publisher, log),
		syncapp.NewSyncQueryService(catalogRepo, historyRepo),
	)
	ingestionHandler := NewIngestionHandler(
		syncapp.NewChangeIngestionService(productRepo, catalogRepo, publisher, idempotency,
			syncapp.IngestionConfig{RealtimeIngestion: true}, log),
		catalogapp.NewProductImportService(productRepo, log),
	)

	engine := gin.New()
	engine.Use(middleware.RequestID(), middleware.MerchantScope())
	api := engine.Group("/api/v1")
	api.POST("/catalogs", catalogHandler.Create)
	api.GET("/catalogs", catalogHandler.List)
	api.GET("/catalogs/:id", catalogHandler.Get)
	api.PUT("/catalogs/:id", catalogHandler.Update)
	api.DELETE("/catalogs/:id", catalogHandler.Delete)
	api.PUT("/catalogs/:id/items", catalogHandler.AddItem)
	api.DELETE("/catalogs/:id/items/:product_id", catalogHandler.RemoveItem)
	api.POST("/catalogs/:id/feed", catalogHandler.GenerateFeed)
	api.POST("/catalogs/:id/sync", syncHandler.TriggerSync)
	api.GET("/catalogs/:id/sync/status", syncHandler.Status)
	api.GET("/catalogs/:id/sync/history", syncHandler.History)
	api.POST("/ingestion/product-updates", ingestionHandler.SubmitProductUpdates)
	api.PUT("/products", ingestionHandler.ImportProducts)

	return &testApp{
		engine:     engine,
		transport:  transport,
		history:    historyRepo,
		merchantID: uuid.New(),
		feedDir:    feedDir,
	}
}

// do sends a request scoped to the app's merchant. Extra headers are
// given as name/value pairs.
func (a *testApp) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader.Len() > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(middleware.MerchantHeaderKey, a.merchantID.String())
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

// enqueued drains the queue and decodes every trigger
func (a *testApp) enqueued(t *testing.T) []feedsync.SyncTrigger {
	t.Helper()
	var triggers []feedsync.SyncTrigger
	for {
		deliveries, err := a.transport.Receive(context.Background(), "test", 10)
		require.NoError(t, err)
		if len(deliveries) == 0 {
			return triggers
		}
		for _, d := range deliveries {
			trigger, err := queue.DecodeTrigger(d.Body)
			require.NoError(t, err)
			triggers = append(triggers, trigger)
			require.NoError(t, a.transport.Ack(context.Background(), d.ID))
		}
	}
}

// newMerchantHeader returns a merchant scope header for a different merchant
func newMerchantHeader() [2]string {
	return [2]string{middleware.MerchantHeaderKey, uuid.NewString()}
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var env envelope[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

// seedProducts imports products through the API
func (a *testApp) seedProducts(t *testing.T, products ...catalogapp.ProductInput) {
	t.Helper()
	w := a.do(t, http.MethodPut, "/api/v1/products", catalogapp.ImportProductsRequest{Products: products})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

// createCatalog creates a Google catalog through the API and returns it
func (a *testApp) createCatalog(t *testing.T, name string) catalogapp.CatalogResponse {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/v1/catalogs", catalogapp.CreateCatalogRequest{
		Name:        name,
		AdPlatform:  "GOOGLE_MERCHANT_CENTER",
		SyncEnabled: true,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[catalogapp.CatalogResponse](t, w).Data
}
