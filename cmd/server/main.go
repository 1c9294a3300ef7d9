package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erp/fulfillment/internal/application/checkout"
	"github.com/erp/fulfillment/internal/application/customer"
	appfulfillment "github.com/erp/fulfillment/internal/application/fulfillment"
	"github.com/erp/fulfillment/internal/application/notification"
	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/infrastructure/auth"
	"github.com/erp/fulfillment/internal/infrastructure/cache"
	"github.com/erp/fulfillment/internal/infrastructure/config"
	"github.com/erp/fulfillment/internal/infrastructure/event"
	"github.com/erp/fulfillment/internal/infrastructure/logger"
	"github.com/erp/fulfillment/internal/infrastructure/messaging"
	"github.com/erp/fulfillment/internal/infrastructure/metrics"
	"github.com/erp/fulfillment/internal/infrastructure/migration"
	"github.com/erp/fulfillment/internal/infrastructure/persistence"
	"github.com/erp/fulfillment/internal/infrastructure/printing"
	"github.com/erp/fulfillment/internal/infrastructure/ratelimit"
	"github.com/erp/fulfillment/internal/infrastructure/scheduler"
	"github.com/erp/fulfillment/internal/infrastructure/storage"
	"github.com/erp/fulfillment/internal/infrastructure/telemetry"
	"github.com/erp/fulfillment/internal/infrastructure/upstream"
	"github.com/erp/fulfillment/internal/interfaces/http/handler"
	"github.com/erp/fulfillment/internal/interfaces/http/middleware"
	"github.com/erp/fulfillment/internal/interfaces/http/router"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting fulfillment bot",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	tp, err := telemetry.NewTracerProvider(rootCtx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	// ==================== Storage ====================

	db, err := persistence.NewDatabase(&cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := migrateSchema(db, cfg, log); err != nil {
		log.Fatal("Failed to prepare schema", zap.Error(err))
	}
	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		DBSystem:        cfg.Database.Driver,
		SlowQueryThresh: 200 * time.Millisecond,
	}, log); err != nil {
		log.Warn("Database tracing disabled", zap.Error(err))
	}
	log.Info("Database connected successfully", zap.String("driver", cfg.Database.Driver))

	orderRepo := persistence.NewGormSubOrderRepository(db.DB)
	userRepo := persistence.NewGormUserRepository(db.DB)
	notificationRepo := persistence.NewGormNotificationRepository(db.DB)

	// ==================== Messaging ====================

	m := metrics.New()
	bus := event.NewInMemoryEventBus(log)
	bus.Subscribe(m, m.EventTypes()...)

	var taskPublisher *messaging.KafkaTaskPublisher
	if cfg.Kafka.Enabled {
		taskPublisher = messaging.NewKafkaTaskPublisher(messaging.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic, log), log)
		bus.Subscribe(taskPublisher, taskPublisher.EventTypes()...)
		log.Info("Department task feed enabled", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}
	if err := bus.Start(rootCtx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	bot := messaging.NewTelegramClient(messaging.Options{
		APIURL:    cfg.Bot.APIURL,
		Token:     cfg.Bot.Token,
		Timeout:   cfg.Bot.RequestTimeout,
		SendRate:  cfg.Bot.SendRate,
		SendBurst: cfg.Bot.SendBurst,
	}, log)

	// ==================== Upstreams ====================

	catalog := cache.NewCatalogCache(
		upstream.NewCatalogClient(cfg.Catalog.URL, cfg.Catalog.Timeout, log),
		cfg.Catalog.Lifetime,
		cfg.Catalog.Timeout,
		cache.WithCatalogLogger(log),
		cache.WithCatalogObserver(m.ObserveRefresh),
	)
	catalog.Start(rootCtx, cfg.Catalog.InitialDelay, cfg.Catalog.RefreshInterval)
	defer catalog.Stop()

	verdicts, err := cache.NewVerdictStoreFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(!cfg.IsProduction()),
	).CreateStore()
	if err != nil {
		log.Fatal("Failed to create dealer verdict store", zap.Error(err))
	}
	defer func() {
		if err := verdicts.Close(); err != nil {
			log.Warn("Error closing verdict store", zap.Error(err))
		}
	}()
	dealers := cache.NewDealerCache(
		upstream.NewOracleClient(cfg.Dealer.URL, cfg.Dealer.Timeout),
		verdicts,
		cfg.Dealer.TTL,
		cfg.Dealer.Timeout,
		cfg.Dealer.FailOpen,
		cache.WithDealerLogger(log),
		cache.WithDealerObserver(m.ObserveRefresh),
	)

	// ==================== Documents ====================

	pool := scheduler.NewWorkerPool(scheduler.PoolConfig{
		Workers:    cfg.Workers.PoolSize,
		QueueSize:  cfg.Workers.QueueSize,
		JobTimeout: cfg.Workers.JobTimeout,
	}, log)
	if err := pool.Start(rootCtx); err != nil {
		log.Fatal("Failed to start worker pool", zap.Error(err))
	}

	pdf := printing.NewChromedpRenderer(&printing.ChromedpConfig{
		DefaultTimeout: cfg.Printing.Timeout,
		RemoteURL:      cfg.Printing.RemoteURL,
		NoSandbox:      cfg.Printing.NoSandbox,
		Logger:         log,
	})
	defer func() {
		_ = pdf.Close()
	}()
	renderer := printing.NewDocumentRenderer(
		pdf,
		printing.NewImagePreloader(&http.Client{Timeout: 10 * time.Second}, log),
		cfg.Printing.CompanyName,
		cfg.Printing.ManagerName,
	)

	var docStore appfulfillment.DocumentStore = storage.DisabledDocumentStore{}
	if cfg.Storage.Enabled {
		s3Store, err := storage.NewS3DocumentStore(&cfg.Storage, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to initialize document storage", zap.Error(err))
		}
		docStore = s3Store
	}
	documents := appfulfillment.NewDocuments(renderer, docStore, pool, log)

	// ==================== Services ====================

	roster := fulfillment.NewRoster(
		cfg.Roles.SuperAdminID,
		cfg.Roles.SalesIDs,
		cfg.Roles.WarehouseIDs,
		productionPools(cfg.Roles.Production),
	)

	// the webhook handler is built after the limiter, so expiry is bound late
	var webhook *handler.WebhookHandler
	limiter := ratelimit.New(ratelimit.Config{
		MessageLimit:   cfg.Limits.MessageLimit,
		MessageWindow:  cfg.Limits.MessageWindow,
		OrderCooldown:  cfg.Limits.OrderCooldown,
		SessionTimeout: cfg.Limits.SessionTimeout,
	},
		ratelimit.WithExemption(roster.IsAdmin),
		ratelimit.WithExpiryHandler(func(userID int64) {
			if webhook != nil {
				webhook.OnSessionExpired(userID)
			}
		}),
	)
	defer limiter.Close()

	aggregator := notification.NewAggregator(orderRepo, notificationRepo, bot, log)
	var events shared.EventPublisher = bus

	engine := appfulfillment.NewEngine(appfulfillment.Dependencies{
		Orders:     orderRepo,
		Users:      userRepo,
		Roster:     roster,
		Aggregator: aggregator,
		Messenger:  bot,
		Documents:  documents,
		Events:     events,
		Logger:     log,
	})
	checkoutService := checkout.NewService(checkout.Dependencies{
		Users:       userRepo,
		Orders:      orderRepo,
		Catalog:     catalog,
		Dealers:     dealers,
		Limiter:     limiter,
		Documents:   documents,
		Aggregator:  aggregator,
		Messenger:   bot,
		Events:      events,
		AdminChatID: cfg.Bot.AdminChatID,
		PreviewTTL:  checkout.DefaultPreviewTTL,
		Logger:      log,
	})
	customerService := customer.NewService(userRepo, roster, dealers, bot, log)

	// ==================== HTTP ====================

	webhook = handler.NewWebhookHandler(handler.WebhookDependencies{
		Customers: customerService,
		Checkout:  checkoutService,
		Orders:    engine,
		Messenger: bot,
		Limiter:   limiter,
		Dealers:   dealers,
		Metrics:   m,
		Roster:    roster,
		WebAppURL: cfg.Bot.WebAppURL,
		Logger:    log,
	})

	jwtService := auth.NewJWTService(cfg.JWT)
	if !jwtService.Enabled() {
		log.Warn("jwt.secret is empty, the admin API rejects every request")
	}

	routerEngine := router.NewEngine(router.Config{
		ServiceName:    cfg.Telemetry.ServiceName,
		TracingEnabled: cfg.Telemetry.Enabled,
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		WebhookSecret:  cfg.HTTP.WebhookSecret,
		CORS: middleware.CORSConfig{
			AllowOrigins: cfg.HTTP.CORSAllowOrigins,
			AllowMethods: cfg.HTTP.CORSAllowMethods,
			AllowHeaders: cfg.HTTP.CORSAllowHeaders,
			MaxAge:       12 * time.Hour,
		},
	}, router.Handlers{
		System:  handler.NewSystemHandler(db, cfg.App.Name, version, log),
		Orders:  handler.NewOrderHandler(engine),
		Webhook: webhook,
	}, middleware.JWTAuthMiddleware(jwtService, log), metricsExporter(cfg, m), log)

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        routerEngine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	if cfg.Bot.WebhookURL != "" {
		hookCtx, cancel := context.WithTimeout(rootCtx, cfg.Bot.RequestTimeout)
		if err := bot.SetWebhook(hookCtx, cfg.Bot.WebhookURL+"/webhook/"+cfg.HTTP.WebhookSecret, cfg.HTTP.WebhookSecret); err != nil {
			log.Error("Failed to register webhook", zap.Error(err))
		} else {
			log.Info("Webhook registered", zap.String("url", cfg.Bot.WebhookURL))
		}
		cancel()
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	stop()

	if err := pool.Stop(ctx); err != nil {
		log.Warn("Worker pool did not drain", zap.Error(err))
	}
	if err := bus.Stop(ctx); err != nil {
		log.Warn("Event bus stop failed", zap.Error(err))
	}
	if taskPublisher != nil {
		if err := taskPublisher.Close(); err != nil {
			log.Warn("Kafka writer close failed", zap.Error(err))
		}
	}
	if err := tp.Shutdown(ctx); err != nil {
		log.Warn("Tracer shutdown failed", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// migrateSchema applies the embedded SQL migrations on postgres and lets
// GORM sync the schema on sqlite
func migrateSchema(db *persistence.Database, cfg *config.Config, log *zap.Logger) error {
	if cfg.Database.Driver == "sqlite" {
		return db.AutoMigrate()
	}
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	migrator, err := migration.New(sqlDB, log)
	if err != nil {
		return err
	}
	// closing the migrator would close the shared pool
	return migrator.Up()
}

// productionPools converts configured category keys to categories
func productionPools(raw map[string][]int64) map[fulfillment.Category][]int64 {
	pools := make(map[fulfillment.Category][]int64, len(raw))
	for key, ids := range raw {
		if cat, ok := fulfillment.ParseCategory(key); ok {
			pools[cat] = ids
		}
	}
	return pools
}

func metricsExporter(cfg *config.Config, m *metrics.Metrics) router.MetricsExporter {
	if !cfg.Metrics.Enabled {
		return nil
	}
	return m
}
