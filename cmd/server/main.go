package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	catalogapp "github.com/feedsync/backend/internal/application/catalog"
	syncapp "github.com/feedsync/backend/internal/application/feedsync"
	"github.com/feedsync/backend/internal/infrastructure/cache"
	"github.com/feedsync/backend/internal/infrastructure/config"
	"github.com/feedsync/backend/internal/infrastructure/delivery"
	"github.com/feedsync/backend/internal/infrastructure/feed"
	"github.com/feedsync/backend/internal/infrastructure/logger"
	"github.com/feedsync/backend/internal/infrastructure/notification"
	"github.com/feedsync/backend/internal/infrastructure/persistence"
	"github.com/feedsync/backend/internal/infrastructure/platform"
	"github.com/feedsync/backend/internal/infrastructure/queue"
	"github.com/feedsync/backend/internal/infrastructure/scheduler"
	"github.com/feedsync/backend/internal/infrastructure/storage"
	"github.com/feedsync/backend/internal/infrastructure/telemetry"
	"github.com/feedsync/backend/internal/interfaces/http/handler"
	"github.com/feedsync/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	log.Info("Starting feed sync service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry
	tracerProvider, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	loggerProvider, err := telemetry.NewLoggerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	log = loggerProvider.Bridge(log, log.Level())
	profiler, err := telemetry.NewProfiler(cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	syncMetrics, err := telemetry.NewSyncMetrics(meterProvider.Meter(telemetry.MeterName))
	if err != nil {
		log.Fatal("Failed to create sync metrics", zap.Error(err))
	}

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Database.LogLevel), telemetry.DefaultSlowQueryThreshold)
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled: cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		DBName:  cfg.Database.DBName,
	}, log); err != nil {
		log.Fatal("Failed to enable database tracing", zap.Error(err))
	}
	log.Info("Database connected successfully")

	catalogRepo := persistence.NewGormCatalogRepository(db.DB)
	productRepo := persistence.NewGormProductRepository(db.DB)
	historyRepo := persistence.NewGormSyncHistoryRepository(db.DB)

	// Catalog locks and idempotency keys. A redis-backed queue needs redis,
	// so only the memory queue may fall back to in-process coordination.
	coordination, err := cache.NewCoordination(ctx, cfg.Redis, cfg.Queue.Driver != "redis", log)
	if err != nil {
		log.Fatal("Failed to initialize coordination", zap.Error(err))
	}
	defer func() {
		if err := coordination.Close(); err != nil {
			log.Error("Error closing coordination", zap.Error(err))
		}
	}()

	// Feed storage
	feedStorage, err := storage.NewFeedStorage(ctx, &cfg.Storage, log)
	if err != nil {
		log.Fatal("Failed to initialize feed storage", zap.Error(err))
	}

	// Trigger queue
	transport, err := queue.NewTransport(ctx, cfg.Queue, coordination.Redis, log)
	if err != nil {
		log.Fatal("Failed to initialize trigger queue", zap.Error(err))
	}
	defer func() {
		if err := transport.Close(); err != nil {
			log.Error("Error closing trigger queue", zap.Error(err))
		}
	}()
	publisher := queue.NewPublisher(transport, log)

	// Ad platforms
	platforms, err := platform.NewRegistryFromConfig(cfg, log)
	if err != nil {
		log.Fatal("Failed to configure ad platforms", zap.Error(err))
	}
	deliveryAdapter := delivery.NewAdapter(platforms, delivery.RetryConfigFromSync(cfg.Sync), log)

	// Application services
	feedBaseURL := cfg.Storage.PublicBaseURL
	if feedBaseURL == "" {
		feedBaseURL = cfg.Storage.LocalBaseURL
	}
	generators := feed.NewDefaultRegistry(feedBaseURL)
	catalogService := catalogapp.NewCatalogService(catalogRepo, productRepo)
	importService := catalogapp.NewProductImportService(productRepo, log)
	feedService := syncapp.NewFeedService(catalogRepo, productRepo, generators, feedStorage, log)
	queryService := syncapp.NewSyncQueryService(catalogRepo, historyRepo)

	triggerService := syncapp.NewTriggerService(catalogRepo, publisher, log)
	triggerService.SetSyncMetrics(syncMetrics)

	ingestionService := syncapp.NewChangeIngestionService(productRepo, catalogRepo, publisher, coordination.Idempotency,
		syncapp.IngestionConfig{
			RealtimeIngestion: cfg.Features.RealtimeIngestion,
			IdempotencyTTL:    cfg.Sync.IdempotencyTTL,
		}, log)
	ingestionService.SetSyncMetrics(syncMetrics)

	orchestrator := syncapp.NewSyncOrchestrator(
		catalogRepo,
		productRepo,
		historyRepo,
		generators,
		feedStorage,
		deliveryAdapter,
		platform.NewConfigCredentialProvider(cfg),
		notification.New(cfg.Notification, log),
		coordination.Locker,
		syncapp.OrchestratorConfig{
			LockTTL:             cfg.Sync.LockTTL,
			AttemptTimeout:      cfg.Sync.AttemptTimeout,
			AutoQuarantine:      cfg.Features.AutoQuarantine,
			QuarantineThreshold: cfg.Sync.QuarantineThreshold,
		},
		log,
	)
	orchestrator.SetSyncMetrics(syncMetrics)

	// Sync workers
	consumer := queue.NewConsumer(queue.ConsumerConfig{
		Name:           cfg.Queue.Consumer,
		Workers:        cfg.Queue.Workers,
		BatchSize:      cfg.Queue.BatchSize,
		HandlerTimeout: cfg.Sync.AttemptTimeout,
		Heartbeat:      cfg.Queue.ClaimMinIdle / 3,
	}, transport, syncapp.NewTriggerHandler(orchestrator, ingestionService, log), log)
	if err := consumer.Start(ctx); err != nil {
		log.Fatal("Failed to start sync workers", zap.Error(err))
	}

	// Periodic sync scheduler
	var syncScheduler *scheduler.SyncScheduler
	if cfg.Scheduler.Enabled {
		syncScheduler, err = scheduler.NewSyncScheduler(cfg.Scheduler.Interval, catalogRepo, historyRepo, publisher, log,
			scheduler.WithPendingTTL(cfg.Sync.LockTTL))
		if err != nil {
			log.Fatal("Failed to create sync scheduler", zap.Error(err))
		}
		if err := syncScheduler.Start(ctx); err != nil {
			log.Fatal("Failed to start sync scheduler", zap.Error(err))
		}
	}

	// HTTP
	checks := map[string]handler.HealthCheck{
		"database": db.Ping,
	}
	if coordination.Redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return coordination.Redis.Ping(ctx).Err()
		}
	}

	engine, err := router.NewEngine(router.EngineConfig{
		HTTP:           cfg.HTTP,
		Storage:        cfg.Storage,
		ServiceName:    cfg.Telemetry.ServiceName,
		TracingEnabled: cfg.Telemetry.Enabled,
		MeterProvider:  meterProvider,
		Logger:         log,
	}, router.Handlers{
		System:    handler.NewSystemHandler(cfg.App.Name, version, checks),
		Catalog:   handler.NewCatalogHandler(catalogService, feedService),
		Sync:      handler.NewSyncHandler(triggerService, queryService),
		Ingestion: handler.NewIngestionHandler(ingestionService, importService),
	})
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed", zap.Error(err))
			stop()
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if syncScheduler != nil {
		if err := syncScheduler.Stop(shutdownCtx); err != nil {
			log.Error("Error stopping sync scheduler", zap.Error(err))
		}
	}
	if err := consumer.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping sync workers", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error flushing metrics", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error flushing traces", zap.Error(err))
	}
	if err := profiler.Stop(); err != nil {
		log.Error("Error stopping profiler", zap.Error(err))
	}
	if err := loggerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error flushing logs", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
