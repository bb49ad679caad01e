package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"shipmate/internal/handler"
	"shipmate/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	ShipmentHandler  *handler.ShipmentHandler
	BookingHandler   *handler.BookingHandler
	PaymentHandler   *handler.PaymentHandler
	DriverHandler    *handler.DriverHandler
	EarningHandler   *handler.EarningHandler
	InsuranceHandler *handler.InsuranceHandler
	WebhookHandler   *handler.WebhookHandler
	RedisClient      *redis.Client
	NewRelicApp      *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())

	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Provider callbacks carry their own signature and delivery IDs, so
	// they bypass the idempotency replay layer.
	router.POST("/v1/webhooks/payments", deps.WebhookHandler.HandlePaymentEvent)

	// API v1 routes.
	v1 := router.Group("/v1")
	v1.Use(middleware.IdempotencyMiddleware(deps.RedisClient))
	{
		// Shipment routes.
		shipments := v1.Group("/shipments")
		{
			shipments.POST("", deps.ShipmentHandler.Create)
			shipments.GET("", deps.ShipmentHandler.List)
			shipments.GET("/:id", deps.ShipmentHandler.Get)
			shipments.POST("/:id/cancel", deps.ShipmentHandler.Cancel)
			shipments.POST("/:id/pickup", deps.ShipmentHandler.Pickup)
			shipments.POST("/:id/lost", deps.ShipmentHandler.ReportLost)
			shipments.POST("/:id/deliver", deps.ShipmentHandler.Deliver)
			shipments.GET("/:id/code", deps.ShipmentHandler.PeekCode)
			shipments.POST("/:id/code/reset", deps.ShipmentHandler.ResetCode)
			shipments.POST("/:id/unlock", deps.ShipmentHandler.Unlock)
			shipments.POST("/:id/checkout", deps.PaymentHandler.Checkout)
			shipments.GET("/:id/payment", deps.PaymentHandler.Get)
		}

		// Booking routes.
		bookings := v1.Group("/bookings")
		{
			bookings.POST("", deps.BookingHandler.Create)
			bookings.GET("", deps.BookingHandler.List)
			bookings.GET("/candidates", deps.BookingHandler.Candidates)
			bookings.GET("/:id", deps.BookingHandler.Get)
			bookings.POST("/:id/confirm", deps.BookingHandler.Confirm)
			bookings.POST("/:id/start", deps.BookingHandler.Start)
			bookings.POST("/:id/complete", deps.BookingHandler.Complete)
			bookings.POST("/:id/cancel", deps.BookingHandler.Cancel)
		}

		// Driver routes.
		drivers := v1.Group("/drivers")
		{
			drivers.PUT("/:id/location", deps.DriverHandler.UpdateLocation)
			drivers.POST("/:id/offline", deps.DriverHandler.GoOffline)
			drivers.GET("/:id/earnings", deps.EarningHandler.List)
			drivers.GET("/:id/earnings/summary", deps.EarningHandler.Summary)
		}

		// Earning routes.
		earnings := v1.Group("/earnings")
		{
			earnings.POST("/payout", deps.EarningHandler.MarkPaidBatch)
			earnings.POST("/:id/payout", deps.EarningHandler.MarkPaid)
		}

		// Insurance claim routes.
		claims := v1.Group("/claims")
		{
			claims.POST("", deps.InsuranceHandler.File)
			claims.GET("", deps.InsuranceHandler.ListOpen)
			claims.GET("/:id", deps.InsuranceHandler.Get)
			claims.POST("/:id/review", deps.InsuranceHandler.StartReview)
			claims.POST("/:id/resolve", deps.InsuranceHandler.Resolve)
		}
	}

	return router
}
