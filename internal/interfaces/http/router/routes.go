package router

import (
	"fmt"

	"github.com/feedsync/backend/internal/infrastructure/config"
	"github.com/feedsync/backend/internal/infrastructure/logger"
	"github.com/feedsync/backend/internal/infrastructure/telemetry"
	"github.com/feedsync/backend/internal/interfaces/http/handler"
	"github.com/feedsync/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// FeedsPath serves locally stored feed files
const FeedsPath = "/feeds"

// Handlers groups the HTTP handlers mounted on the engine
type Handlers struct {
	System    *handler.SystemHandler
	Catalog   *handler.CatalogHandler
	Sync      *handler.SyncHandler
	Ingestion *handler.IngestionHandler
}

// EngineConfig holds the settings the engine's middleware chain depends on
type EngineConfig struct {
	HTTP           config.HTTPConfig
	Storage        config.StorageConfig
	ServiceName    string
	TracingEnabled bool
	MeterProvider  *telemetry.MeterProvider
	Logger         *zap.Logger
}

// NewEngine builds the gin engine with the middleware chain and all API routes
func NewEngine(cfg EngineConfig, h Handlers) (*gin.Engine, error) {
	if err := middleware.SetupValidator(); err != nil {
		return nil, fmt.Errorf("register validators: %w", err)
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		return nil, fmt.Errorf("set trusted proxies: %w", err)
	}

	engine.Use(
		logger.Recovery(cfg.Logger),
		middleware.RequestID(),
		logger.GinMiddleware(cfg.Logger),
		middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.ServiceName,
			Enabled:     cfg.TracingEnabled,
		}),
		middleware.SpanErrorMarker(),
		middleware.Secure(),
		corsMiddleware(cfg.HTTP.CORSOrigins),
		middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
			MeterProvider: cfg.MeterProvider,
			Enabled:       cfg.MeterProvider != nil,
			Logger:        cfg.Logger,
		}),
	)

	engine.GET("/health", h.System.Health)
	if cfg.Storage.Driver == "local" && cfg.Storage.LocalDir != "" {
		engine.Static(FeedsPath, cfg.Storage.LocalDir)
	}

	merchantCfg := middleware.DefaultMerchantConfig()
	merchantCfg.Logger = cfg.Logger
	scoped := []gin.HandlerFunc{
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
		middleware.MerchantScopeWithConfig(merchantCfg),
		middleware.SpanAttributes(),
	}
	if cfg.HTTP.RateLimit > 0 {
		limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimit, cfg.HTTP.RateBurst)
		scoped = append(scoped, middleware.RateLimit(limiter))
	}

	r := NewRouter(engine, WithAPIVersion("v1"))
	r.Register(catalogRoutes(h).Use(scoped...))
	r.Register(ingestionRoutes(h).Use(scoped...))
	r.Register(systemRoutes(h).Use(scoped...))
	r.Setup()

	return engine, nil
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := middleware.DefaultCORSConfig()
	cfg.AllowOrigins = origins
	return middleware.CORSWithConfig(cfg)
}

func catalogRoutes(h Handlers) *DomainGroup {
	g := NewDomainGroup("catalogs", "/catalogs")
	g.POST("", h.Catalog.Create).
		GET("", h.Catalog.List).
		GET("/:id", h.Catalog.Get).
		PUT("/:id", h.Catalog.Update).
		DELETE("/:id", h.Catalog.Delete).
		PUT("/:id/items", h.Catalog.AddItem).
		DELETE("/:id/items/:product_id", h.Catalog.RemoveItem).
		POST("/:id/feed", h.Catalog.GenerateFeed)

	g.Group("sync", "/:id/sync").
		POST("", h.Sync.TriggerSync).
		GET("/status", h.Sync.Status).
		GET("/history", h.Sync.History)
	return g
}

func ingestionRoutes(h Handlers) *DomainGroup {
	g := NewDomainGroup("ingestion", "")
	g.POST("/ingestion/product-updates", h.Ingestion.SubmitProductUpdates).
		PUT("/products", h.Ingestion.ImportProducts)
	return g
}

func systemRoutes(h Handlers) *DomainGroup {
	g := NewDomainGroup("system", "/system")
	g.GET("/info", h.System.GetSystemInfo)
	return g
}
