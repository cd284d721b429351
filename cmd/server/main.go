package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	attributionapp "github.com/souqlink/backend/internal/application/attribution"
	connectapp "github.com/souqlink/backend/internal/application/connect"
	ingestapp "github.com/souqlink/backend/internal/application/ingest"
	syncapp "github.com/souqlink/backend/internal/application/sync"
	"github.com/souqlink/backend/internal/domain/shared"
	"github.com/souqlink/backend/internal/infrastructure/auth"
	"github.com/souqlink/backend/internal/infrastructure/cache"
	"github.com/souqlink/backend/internal/infrastructure/config"
	"github.com/souqlink/backend/internal/infrastructure/ecommerce"
	"github.com/souqlink/backend/internal/infrastructure/event"
	"github.com/souqlink/backend/internal/infrastructure/logger"
	"github.com/souqlink/backend/internal/infrastructure/persistence"
	"github.com/souqlink/backend/internal/infrastructure/telemetry"
	"github.com/souqlink/backend/internal/interfaces/http/handler"
	"github.com/souqlink/backend/internal/interfaces/http/middleware"
	"github.com/souqlink/backend/internal/interfaces/http/router"
)

// version is stamped at build time via -ldflags
var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting souqlink backend",
		zap.String("version", version),
		zap.String("env", cfg.App.Env),
	)

	// Initialize tracing
	tp, err := telemetry.NewTracerProvider(context.Background(), cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	// Initialize database connection with zap-backed gorm logger
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, logger.NewGormLogger(log))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()

	// Webhook delivery fast-path dedup. Redis is advisory here: the
	// unique index on webhook_events stays authoritative, so a store
	// outage only costs extra duplicate round-trips to the database.
	var idemStore shared.IdempotencyStore
	redisStore, err := cache.NewRedisIdempotencyStore(&cfg.Redis)
	if err != nil {
		log.Warn("Redis unavailable, falling back to in-memory idempotency store", zap.Error(err))
		idemStore = cache.NewInMemoryIdempotencyStore()
	} else {
		idemStore = redisStore
	}
	defer func() {
		if err := idemStore.Close(); err != nil {
			log.Error("Error closing idempotency store", zap.Error(err))
		}
	}()

	idemCfg := shared.DefaultIdempotencyConfig()
	if cfg.Redis.IdempotencyTTL > 0 {
		idemCfg.TTL = cfg.Redis.IdempotencyTTL
	}

	// Initialize repositories
	merchantRepo := persistence.NewGormMerchantRepository(db.DB)
	productRepo := persistence.NewGormProductRepository(db.DB)
	categoryRepo := persistence.NewGormCategoryRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	webhookEventRepo := persistence.NewGormWebhookEventRepository(db.DB)
	clickRepo := persistence.NewGormClickRepository(db.DB)
	commissionRepo := persistence.NewGormCommissionRepository(db.DB)

	// Platform adapters
	clients := ecommerce.NewClientRegistry(cfg, log)
	oauthRegistry := ecommerce.NewOAuthRegistry(cfg, log)
	decoder := ecommerce.NewWebhookDecoder()

	// Domain event bus
	bus := event.NewInMemoryEventBus(log)

	// Application services
	jwtService := auth.NewJWTService(cfg.JWT)

	connectService := connectapp.NewService(connectapp.ServiceConfig{
		Merchants: merchantRepo,
		OAuth:     oauthRegistry,
		Config:    cfg,
		Logger:    log,
	})

	syncService := syncapp.NewService(syncapp.ServiceConfig{
		Products:   productRepo,
		Categories: categoryRepo,
		Orders:     orderRepo,
		Merchants:  merchantRepo,
		Clients:    clients,
		Refresher:  connectService,
		Logger:     log,
	})

	attributionService := attributionapp.NewService(attributionapp.ServiceConfig{
		Clicks:      clickRepo,
		Commissions: commissionRepo,
		Products:    productRepo,
		Config:      cfg.Attribution,
		Events:      bus,
		Logger:      log,
	})

	ingestService := ingestapp.NewService(ingestapp.ServiceConfig{
		Events:      webhookEventRepo,
		Idempotency: idemStore,
		IdemConfig:  idemCfg,
		Merchants:   merchantRepo,
		Sync:        syncService,
		Attribution: attributionService,
		Decoder:     decoder,
		Bus:         bus,
		Config:      cfg,
		Logger:      log,
	})

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	middleware.SetupValidator()

	engine := gin.New()

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Middleware stack: recovery first, then request logging, tracing,
	// CORS, body limit and rate limiting
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	if cfg.Telemetry.Enabled {
		engine.Use(otelgin.Middleware(cfg.Telemetry.ServiceName))
	}
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{handler.RequestIDKey},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(rateLimiter.Middleware())
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// HTTP handlers
	jwtAuth := middleware.JWTAuth(jwtService)

	webhookHandler := handler.NewWebhookHandler(ingestService, log)
	oauthHandler := handler.NewOAuthHandler(connectService, jwtAuth, cfg, log)
	clickHandler := handler.NewClickHandler(attributionService, log)
	syncHandler := handler.NewSyncHandler(syncService, jwtAuth, log)
	commissionHandler := handler.NewCommissionHandler(attributionService, jwtAuth)

	router.NewRouter(engine, "v1").
		Register(webhookHandler).
		Register(oauthHandler).
		Register(clickHandler).
		Register(syncHandler).
		Register(commissionHandler).
		Setup()

	// Health probes live on the engine root, outside API versioning
	handler.NewSystemHandler(db, version).RegisterRoutes(engine)

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
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
