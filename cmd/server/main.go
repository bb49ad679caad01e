package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"shipmate/internal/app"
	"shipmate/internal/config"
	"shipmate/internal/handler"
	internalRedis "shipmate/internal/redis"
	"shipmate/internal/repository/postgres"
	"shipmate/internal/service"
)

func main() {
	// Load configuration.
	cfg := config.Load()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
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
			log.WithError(err).Warn("failed to initialize New Relic")
		} else {
			log.WithField("app", cfg.NewRelic.AppName).Info("New Relic enabled")
		}
	}

	// Initialize database with New Relic instrumentation.
	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()
	log.Info("connected to PostgreSQL")

	// Initialize Redis with New Relic instrumentation.
	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info("connected to Redis")

	// Wire dependencies.
	server, err := wireServer(db, redisClient, nrApp, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to wire server")
	}

	// Start server in goroutine.
	go func() {
		log.WithField("port", cfg.Server.Port).Info("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server error")
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Fatal("server forced to shutdown")
	}

	log.Info("server exited")
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(db *sql.DB, redisClient *redis.Client, nrApp *newrelic.Application, cfg *config.Config, log *logrus.Logger) (*http.Server, error) {
	// Redis-backed stores.
	locationStore := internalRedis.NewLocationStore(redisClient)
	lockStore := internalRedis.NewLockStore(redisClient)
	cacheStore := internalRedis.NewCacheStore(redisClient)

	// Persistence.
	uow := postgres.NewUnitOfWork(db)

	// Payment provider and delivery-code vault.
	gateway := service.NewStripeGateway(cfg.Stripe)
	vault, err := service.NewCodeVault(cfg.Delivery)
	if err != nil {
		return nil, err
	}

	publisher := service.NewLogPublisher(log)

	// Services.
	pricingService := service.NewPricingService(cfg.Pricing, cfg.Insurance)
	earningService := service.NewEarningService(uow, pricingService, log)
	paymentService := service.NewPaymentService(uow, gateway, vault, earningService, publisher, log)
	shipmentService := service.NewShipmentService(uow, pricingService, gateway, lockStore, cacheStore, publisher, log)
	bookingService := service.NewBookingService(uow, pricingService, gateway, locationStore, lockStore, publisher, cfg.Booking, log)
	deliveryService := service.NewDeliveryService(uow, vault, paymentService, lockStore, publisher, cfg.Delivery.MaxAttempts, log)
	insuranceService := service.NewInsuranceService(uow, gateway, publisher, cfg.Insurance, log)
	matchingService := service.NewMatchingService(uow, locationStore, cacheStore, cfg.Booking.PickupRadiusKm, cfg.Booking.LocationMaxAge)
	driverService := service.NewDriverService(locationStore, cacheStore)

	// Handlers.
	shipmentHandler := handler.NewShipmentHandler(shipmentService, deliveryService)
	bookingHandler := handler.NewBookingHandler(bookingService, matchingService)
	paymentHandler := handler.NewPaymentHandler(paymentService)
	driverHandler := handler.NewDriverHandler(driverService)
	earningHandler := handler.NewEarningHandler(earningService)
	insuranceHandler := handler.NewInsuranceHandler(insuranceService)
	webhookHandler := handler.NewWebhookHandler(gateway, paymentService, log)

	// Router.
	router := app.NewRouter(app.RouterDeps{
		ShipmentHandler:  shipmentHandler,
		BookingHandler:   bookingHandler,
		PaymentHandler:   paymentHandler,
		DriverHandler:    driverHandler,
		EarningHandler:   earningHandler,
		InsuranceHandler: insuranceHandler,
		WebhookHandler:   webhookHandler,
		RedisClient:      redisClient,
		NewRelicApp:      nrApp,
	})

	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, nil
}
