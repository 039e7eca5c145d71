package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	catalogapp "github.com/markethub/backend/internal/application/catalog"
	vendorapp "github.com/markethub/backend/internal/application/vendor"
	"github.com/markethub/backend/internal/infrastructure/auth"
	"github.com/markethub/backend/internal/infrastructure/cache"
	"github.com/markethub/backend/internal/infrastructure/config"
	"github.com/markethub/backend/internal/infrastructure/logger"
	"github.com/markethub/backend/internal/infrastructure/persistence"
	"github.com/markethub/backend/internal/infrastructure/shopify"
	"github.com/markethub/backend/internal/infrastructure/storage"
	"github.com/markethub/backend/internal/infrastructure/telemetry"
	"github.com/markethub/backend/internal/interfaces/http/handler"
	"github.com/markethub/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is injected at build time via -ldflags
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	ctx := context.Background()

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}

	loggerProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	if loggerProvider.IsEnabled() {
		log = log.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return zapcore.NewTee(core, loggerProvider.BridgeCore())
		}))
	}

	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close database", zap.Error(err))
		}
	}()
	db.DB.Logger = logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))

	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:         true,
			SlowQueryThresh: 200 * time.Millisecond,
			DBSystem:        "postgresql",
		}, log)
		if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
			log.Error("Failed to register database tracing", zap.Error(err))
		}
	}

	redisClient, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to redis", zap.Error(err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Error("Failed to close redis client", zap.Error(err))
		}
	}()

	shopCfg := &shopify.Config{
		APIKey:       cfg.Shopify.APIKey,
		APISecret:    cfg.Shopify.APISecret,
		ShopDomain:   cfg.Shopify.ShopDomain,
		APIVersion:   cfg.Shopify.APIVersion,
		Scopes:       cfg.Shopify.Scopes,
		RedirectURL:  cfg.Shopify.RedirectURL,
		Timeout:      cfg.Shopify.Timeout,
		MaxRetries:   cfg.Shopify.MaxRetries,
		RetryBackoff: cfg.Shopify.RetryBackoff,
	}
	if err := shopCfg.Validate(); err != nil {
		log.Fatal("Invalid Shopify configuration", zap.Error(err))
	}

	tokenStore := cache.NewRedisTokenStore(redisClient)
	stateStore := cache.NewRedisStateStore(redisClient)

	tokens, err := shopify.NewTokenSource(shopCfg, tokenStore, nil, log)
	if err != nil {
		log.Fatal("Failed to create Shopify token source", zap.Error(err))
	}
	publisher, err := shopify.NewAdapter(shopCfg, tokens, nil, log)
	if err != nil {
		log.Fatal("Failed to create Shopify adapter", zap.Error(err))
	}

	imageStorage, err := storage.NewS3ImageStorage(&cfg.Storage, storage.WithLogger(log))
	if err != nil {
		log.Fatal("Failed to create image storage", zap.Error(err))
	}
	if err := imageStorage.EnsureBucket(ctx); err != nil {
		log.Warn("Image bucket not reachable at startup", zap.Error(err))
	}

	vendorRepo := persistence.NewGormVendorRepository(db.DB)
	productRepo := persistence.NewGormProductRepository(db.DB)

	vendorService := vendorapp.NewVendorService(vendorRepo)
	productService := catalogapp.NewProductService(productRepo, vendorRepo, publisher)
	imageService := catalogapp.NewImageService(productRepo, vendorRepo, imageStorage)

	jwtService := auth.NewJWTService(cfg.JWT)

	engine := router.New(router.Handlers{
		System:  handler.NewSystemHandler(db.DB, redisClient, version),
		Vendor:  handler.NewVendorHandler(vendorService),
		Product: handler.NewProductHandler(productService, imageService),
		Shopify: handler.NewShopifyHandler(shopCfg, stateStore, tokens, log),
	}, router.Options{
		JWTService:     jwtService,
		Logger:         log,
		HTTP:           cfg.HTTP,
		TracingEnabled: cfg.Telemetry.Enabled,
		ServiceName:    cfg.Telemetry.ServiceName,
		RateLimit:      cfg.HTTP.RateLimitPerMinute,
	})

	server := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting",
			zap.String("addr", server.Addr),
			zap.String("env", cfg.App.Env),
			zap.String("version", version),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	if err := loggerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to shut down logger provider", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to shut down tracer provider", zap.Error(err))
	}

	log.Info("Server exited")
}
