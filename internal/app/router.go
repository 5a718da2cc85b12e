package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"billpay/internal/handler"
	"billpay/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	FlowHandler    *handler.FlowHandler
	CatalogHandler *handler.CatalogHandler
	RedisClient    *redis.Client // optional; enables Idempotency-Key replay
	NewRelicApp    *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.RequestID())
	router.Use(middleware.DeviceID())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
		router.Use(middleware.NewRelicAttributes())
	}

	router.Use(middleware.IdempotencyMiddleware(deps.RedisClient))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		v1.GET("/services", deps.CatalogHandler.GetServices)
		v1.GET("/quote", deps.CatalogHandler.GetQuote)
		v1.DELETE("/remembered", deps.FlowHandler.ForgetDevice)

		// Flow routes.
		flows := v1.Group("/flows")
		{
			flows.POST("", deps.FlowHandler.CreateFlow)
			flows.GET("/:id", deps.FlowHandler.GetFlow)
			flows.POST("/:id/submit", deps.FlowHandler.Submit)
			flows.POST("/:id/retry", deps.FlowHandler.Retry)
			flows.POST("/:id/confirm", deps.FlowHandler.ConfirmPayment)
			flows.POST("/:id/back", deps.FlowHandler.Back)
			flows.POST("/:id/poll", deps.FlowHandler.PollSettlement)
			flows.GET("/:id/receipt", deps.FlowHandler.GetReceipt)
		}

		// Catalog routes.
		catalog := v1.Group("/catalog")
		{
			catalog.GET("/data-plans", deps.CatalogHandler.GetDataPlans)
			catalog.GET("/bouquets", deps.CatalogHandler.GetBouquets)
		}

		v1.POST("/meters/verify", deps.CatalogHandler.VerifyMeter)

		// Wallet routes.
		wallet := v1.Group("/wallet")
		{
			wallet.GET("/balance", deps.CatalogHandler.GetWalletBalance)
			wallet.GET("/transactions", deps.CatalogHandler.GetTransactions)
			wallet.GET("/address", deps.CatalogHandler.GetDepositAddress)
		}

		v1.GET("/invoices/:id", deps.CatalogHandler.GetInvoice)
		v1.GET("/payments/:hash", deps.CatalogHandler.VerifyPayment)
	}

	return router
}
