package tests

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v76"

	"shipmate/internal/config"
	"shipmate/internal/domain"
	"shipmate/internal/service"
)

// env wires the full service graph over in-memory dependencies.
type env struct {
	store     *MemStore
	uow       *MemUnitOfWork
	gateway   *MockPaymentGateway
	publisher *CapturePublisher
	locks     *MockLockStore
	locations *MockLocationStore
	cache     *MockCacheStore
	vault     *service.CodeVault

	pricing   *service.PricingService
	shipments *service.ShipmentService
	bookings  *service.BookingService
	payments  *service.PaymentService
	earnings  *service.EarningService
	delivery  *service.DeliveryService
	insurance *service.InsuranceService
	matching  *service.MatchingService
}

func testPricingConfig() config.PricingConfig {
	return config.PricingConfig{
		BaseFeeCents:   500,
		PerKmCents:     60,
		PerKgCents:     30,
		MinimumCents:   700,
		CommissionRate: 0.20,
	}
}

func testInsuranceConfig() config.InsuranceConfig {
	return config.InsuranceConfig{
		Tier1LimitCents:  50000,
		Tier1Rate:        0.015,
		Tier2LimitCents:  200000,
		Tier2Rate:        0.025,
		MaxDeclaredCents: 500000,
		DeductibleRate:   0.10,
		ClaimWindow:      7 * 24 * time.Hour,
	}
}

func testBookingConfig() config.BookingConfig {
	return config.BookingConfig{
		MaxShipments:      6,
		PickupRadiusKm:    15.0,
		TripDistanceCapKm: 200.0,
		LocationMaxAge:    time.Hour,
	}
}

func testDeliveryConfig() config.DeliveryConfig {
	return config.DeliveryConfig{
		HMACSecret:   "test-hmac-secret",
		AESKeyBase64: base64.StdEncoding.EncodeToString(bytes.Repeat([]byte("k"), 32)),
		CodeTTL:      24 * time.Hour,
		MaxAttempts:  5,
	}
}

func newEnv(t *testing.T) *env {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	vault, err := service.NewCodeVault(testDeliveryConfig())
	if err != nil {
		t.Fatalf("init vault: %v", err)
	}

	e := &env{
		store:     NewMemStore(),
		gateway:   NewMockPaymentGateway(),
		publisher: NewCapturePublisher(),
		locks:     NewMockLockStore(),
		locations: NewMockLocationStore(),
		cache:     NewMockCacheStore(),
		vault:     vault,
	}
	e.uow = NewMemUnitOfWork(e.store)

	e.pricing = service.NewPricingService(testPricingConfig(), testInsuranceConfig())
	e.earnings = service.NewEarningService(e.uow, e.pricing, log)
	e.payments = service.NewPaymentService(e.uow, e.gateway, vault, e.earnings, e.publisher, log)
	e.shipments = service.NewShipmentService(e.uow, e.pricing, e.gateway, e.locks, e.cache, e.publisher, log)
	e.bookings = service.NewBookingService(e.uow, e.pricing, e.gateway, e.locations, e.locks, e.publisher, testBookingConfig(), log)
	e.delivery = service.NewDeliveryService(e.uow, vault, e.payments, e.locks, e.publisher, testDeliveryConfig().MaxAttempts, log)
	e.insurance = service.NewInsuranceService(e.uow, e.gateway, e.publisher, testInsuranceConfig(), log)
	e.matching = service.NewMatchingService(e.uow, e.locations, e.cache, testBookingConfig().PickupRadiusKm, testBookingConfig().LocationMaxAge)

	return e
}

// Fixture coordinates: pickup in central Berlin, delivery ~2km away.
const (
	pickupLat   = 52.5200
	pickupLng   = 13.4050
	deliveryLat = 52.5350
	deliveryLng = 13.4250
)

// seedShipment stores a shipment in the given status.
func seedShipment(e *env, id, senderID string, status domain.ShipmentStatus) *domain.Shipment {
	now := time.Now()
	shipment := &domain.Shipment{
		ID:              id,
		SenderID:        senderID,
		Status:          status,
		PickupAddress:   "Alexanderplatz 1",
		PickupLat:       pickupLat,
		PickupLng:       pickupLng,
		DeliveryAddress: "Warschauer Str. 2",
		DeliveryLat:     deliveryLat,
		DeliveryLng:     deliveryLng,
		PackageWeightKg: 5,
		BasePrice:       1000,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	e.store.PutShipment(shipment)
	return shipment
}

// seedBooking stores a booking and attaches the given shipments to it.
func seedBooking(e *env, id, driverID string, status domain.BookingStatus, shipmentIDs ...string) *domain.Booking {
	now := time.Now()
	booking := &domain.Booking{
		ID:        id,
		DriverID:  driverID,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	e.store.PutBooking(booking)
	for i, shipmentID := range shipmentIDs {
		shipment := e.store.Shipment(shipmentID)
		shipment.BookingID = id
		shipment.PickupOrder = i + 1
		shipment.DeliveryOrder = i + 1
		e.store.PutShipment(shipment)
	}
	return booking
}

// seedPayment stores a payment for a shipment.
func seedPayment(e *env, id, shipmentID, senderID string, status domain.PaymentStatus, amount int64, intentID string) *domain.Payment {
	now := time.Now()
	payment := &domain.Payment{
		ID:          id,
		ShipmentID:  shipmentID,
		SenderID:    senderID,
		AmountTotal: amount,
		Currency:    "usd",
		Status:      status,
		IntentID:    intentID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	e.store.PutPayment(payment)
	return payment
}

// seedDeliveryCode issues a code for the shipment and returns the plaintext.
func seedDeliveryCode(t *testing.T, e *env, shipmentID string) string {
	t.Helper()
	code, stored, err := e.vault.Generate(time.Now())
	if err != nil {
		t.Fatalf("generate code: %v", err)
	}
	shipment := e.store.Shipment(shipmentID)
	shipment.Code = stored
	e.store.PutShipment(shipment)
	return code
}

// wrongCode returns a six-digit code guaranteed to differ from code.
func wrongCode(code string) string {
	first := code[0]
	flipped := byte('0')
	if first == '0' {
		flipped = '1'
	}
	return string(flipped) + code[1:]
}

// providerEvent builds a verified-looking provider event for the reconciler.
func providerEvent(eventType, raw string) stripe.Event {
	return stripe.Event{
		Type: stripe.EventType(eventType),
		Data: &stripe.EventData{Raw: json.RawMessage(raw)},
	}
}

func intentEvent(eventType, intentID string) stripe.Event {
	return providerEvent(eventType, `{"id":"`+intentID+`"}`)
}

func refundEvent(intentID string) stripe.Event {
	return providerEvent("charge.refunded", `{"payment_intent":"`+intentID+`"}`)
}
