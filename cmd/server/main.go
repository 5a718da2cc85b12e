package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"billpay/internal/app"
	"billpay/internal/config"
	"billpay/internal/currency"
	"billpay/internal/gateway"
	"billpay/internal/handler"
	internalRedis "billpay/internal/redis"
	"billpay/internal/service"
)

const sessionSweepInterval = time.Minute

func main() {
	// Load configuration.
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST so Redis and outbound calls are instrumented.
	var nrApp *newrelic.Application
	var err error
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.Printf("failed to initialize New Relic: %v", err)
		} else {
			log.Printf("New Relic enabled: app=%s", cfg.NewRelic.AppName)
		}
	}

	// Redis is optional: without it remembered inputs live in memory and
	// catalogs and idempotent replies are not cached.
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = app.NewRedisClient(ctx, cfg.Redis, nrApp)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
		log.Println("Connected to Redis")
	}

	converter, err := currency.NewConverter(currency.Rates{
		SatsPerLocal:   cfg.Rates.SatsPerLocal,
		LocalPerUSD:    cfg.Rates.LocalPerUSD,
		SatsPerUSD:     cfg.Rates.SatsPerUSD,
		NetworkFeeSats: cfg.Rates.NetworkFeeSats,
	})
	if err != nil {
		log.Fatalf("invalid conversion rates: %v", err)
	}

	// Wire dependencies.
	server, registry := wireServer(redisClient, nrApp, converter, cfg)

	runCtx, stopRun := context.WithCancel(context.Background())
	defer stopRun()
	go registry.Run(runCtx, sessionSweepInterval)

	// Start server in goroutine.
	go func() {
		log.Printf("Starting server on port %s (billing env=%s)", cfg.Server.Port, cfg.Billing.Environment)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}
	stopRun()
	if nrApp != nil {
		nrApp.Shutdown(5 * time.Second)
	}

	log.Println("Server exited")
}

// wireServer wires all dependencies and returns the HTTP server and the flow registry.
func wireServer(redisClient *redis.Client, nrApp *newrelic.Application, converter *currency.Converter, cfg *config.Config) (*http.Server, *service.SessionRegistry) {
	// Initialize the billing gateway.
	billing := gateway.New(gateway.Config{
		BaseURL:     cfg.Billing.BaseURL,
		AuthToken:   cfg.Billing.AuthToken,
		Timeout:     cfg.Billing.Timeout,
		Environment: gateway.Environment(cfg.Billing.Environment),
	})

	// Initialize stores.
	var (
		preferences  service.PreferenceStore = service.NewMemoryPreferenceStore()
		catalogCache service.CatalogCache
	)
	if redisClient != nil {
		preferences = internalRedis.NewPreferenceStore(redisClient)
		catalogCache = internalRedis.NewCatalogStore(redisClient, cfg.Redis.CacheTTL)
	}

	// Initialize services.
	notificationService := service.NewNotificationService()
	receiptService := service.NewReceiptService(converter, notificationService)
	catalogService := service.NewCatalogService(billing, catalogCache, converter)
	registry := service.NewSessionRegistry(service.FlowDeps{
		Gateway:       billing,
		Converter:     converter,
		Preferences:   preferences,
		Catalog:       catalogService,
		Notifications: notificationService,
		Receipts:      receiptService,
		Poll: service.PollConfig{
			Enabled:     cfg.Poll.Enabled,
			Interval:    cfg.Poll.Interval,
			MaxAttempts: cfg.Poll.MaxAttempts,
		},
	}, cfg.Session.TTL)

	// Initialize handlers.
	flowHandler := handler.NewFlowHandler(registry, receiptService)
	catalogHandler := handler.NewCatalogHandler(catalogService)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		FlowHandler:    flowHandler,
		CatalogHandler: catalogHandler,
		RedisClient:    redisClient,
		NewRelicApp:    nrApp,
	})

	// Create HTTP server.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, registry
}
