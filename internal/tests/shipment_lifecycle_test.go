package tests

import (
	"context"
	"testing"

	"shipmate/internal/domain"
	"shipmate/internal/service"
)

// ──────────────────────────────────────────────
// SHIPMENT CREATION AND PRICING
// ──────────────────────────────────────────────

func TestCreateShipment_SnapshotsPriceAndInsurance(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	shipment, err := e.shipments.CreateShipment(context.Background(), service.CreateShipmentRequest{
		SenderID:        "sender-1",
		PickupAddress:   "Alexanderplatz 1",
		PickupLat:       pickupLat,
		PickupLng:       pickupLng,
		DeliveryAddress: "Alexanderplatz 1",
		DeliveryLat:     pickupLat,
		DeliveryLng:     pickupLng,
		PackageWeightKg: 10,
		WithInsurance:   true,
		DeclaredValue:   100000,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if shipment.Status != domain.ShipmentStatusCreated {
		t.Errorf("expected CREATED, got %s", shipment.Status)
	}
	// Zero distance: 500 base + 10kg * 30 = 800, above the 700 floor.
	if shipment.BasePrice != 800 {
		t.Errorf("expected base price 800, got %d", shipment.BasePrice)
	}
	// 100000 declared is above the tier-1 limit: 2.5% premium.
	ins := shipment.Insurance
	if !ins.Selected || ins.Fee != 2500 || ins.CoverageAmount != 100000 || ins.DeductibleRate != 0.10 {
		t.Errorf("unexpected insurance snapshot: %+v", ins)
	}

	if e.store.Shipment(shipment.ID) == nil {
		t.Error("shipment not persisted")
	}
}

func TestCreateShipment_MinimumPriceFloor(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	shipment, err := e.shipments.CreateShipment(context.Background(), service.CreateShipmentRequest{
		SenderID:        "sender-1",
		PickupAddress:   "a",
		PickupLat:       pickupLat,
		PickupLng:       pickupLng,
		DeliveryAddress: "b",
		DeliveryLat:     pickupLat,
		DeliveryLng:     pickupLng,
		PackageWeightKg: 1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if shipment.BasePrice != 700 {
		t.Errorf("expected the 700 floor, got %d", shipment.BasePrice)
	}
}

func TestCreateShipment_Validation(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	base := service.CreateShipmentRequest{
		SenderID:        "sender-1",
		PickupAddress:   "a",
		PickupLat:       pickupLat,
		PickupLng:       pickupLng,
		DeliveryAddress: "b",
		DeliveryLat:     deliveryLat,
		DeliveryLng:     deliveryLng,
		PackageWeightKg: 5,
	}

	noWeight := base
	noWeight.PackageWeightKg = 0
	if _, err := e.shipments.CreateShipment(ctx, noWeight); err != service.ErrInvalidWeight {
		t.Errorf("expected ErrInvalidWeight, got %v", err)
	}

	badCoords := base
	badCoords.PickupLat = 123
	if _, err := e.shipments.CreateShipment(ctx, badCoords); err != service.ErrInvalidLocation {
		t.Errorf("expected ErrInvalidLocation, got %v", err)
	}

	overDeclared := base
	overDeclared.WithInsurance = true
	overDeclared.DeclaredValue = 600000
	if _, err := e.shipments.CreateShipment(ctx, overDeclared); err != service.ErrInvalidDeclaredValue {
		t.Errorf("expected ErrInvalidDeclaredValue, got %v", err)
	}
}

// ──────────────────────────────────────────────
// CANCELLATION BRANCHES
// ──────────────────────────────────────────────

func TestCancelShipment_OpenShipmentNoPayment(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	seedShipment(e, "ship-1", "sender-1", domain.ShipmentStatusCreated)

	shipment, err := e.shipments.CancelShipment(context.Background(), "ship-1", "sender-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if shipment.Status != domain.ShipmentStatusCancelled {
		t.Errorf("expected CANCELLED, got %s", shipment.Status)
	}
}

func TestCancelShipment_AuthorizedHoldIsVoided(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	seedShipment(e, "ship-1", "sender-1", domain.ShipmentStatusAssigned)
	seedBooking(e, "book-1", "driver-1", domain.BookingStatusConfirmed, "ship-1")
	seedPayment(e, "pay-1", "ship-1", "sender-1", domain.PaymentStatusAuthorized, 1000, "pi_1")

	if _, err := e.shipments.CancelShipment(context.Background(), "ship-1", "sender-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.store.Payment("pay-1").Status != domain.PaymentStatusCancelled {
		t.Error("the payment should be cancelled locally")
	}
	if len(e.gateway.CancelCalls) != 1 || e.gateway.CancelCalls[0] != "pi_1" {
		t.Errorf("the hold should be voided with the provider, cancel calls: %v", e.gateway.CancelCalls)
	}
	// The only shipment is cancelled, so the booking collapses too.
	if e.store.Booking("book-1").Status != domain.BookingStatusCancelled {
		t.Errorf("expected booking CANCELLED, got %s", e.store.Booking("book-1").Status)
	}
}

func TestCancelShipment_CapturedPaymentAwaitsRefund(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	seedShipment(e, "ship-1", "sender-1", domain.ShipmentStatusAssigned)
	seedBooking(e, "book-1", "driver-1", domain.BookingStatusConfirmed, "ship-1")
	seedPayment(e, "pay-1", "ship-1", "sender-1", domain.PaymentStatusCaptured, 1000, "pi_1")

	if _, err := e.shipments.CancelShipment(context.Background(), "ship-1", "sender-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// CAPTURED stays until the provider confirms the refund through the
	// webhook; only the refund request goes out now.
	if e.store.Payment("pay-1").Status != domain.PaymentStatusCaptured {
		t.Errorf("expected CAPTURED, got %s", e.store.Payment("pay-1").Status)
	}
	if len(e.gateway.RefundCalls) != 1 || e.gateway.RefundCalls[0] != "pi_1" {
		t.Errorf("expected a refund request, refund calls: %v", e.gateway.RefundCalls)
	}
}

func TestCancelShipment_InTransitVoidsHold(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	// The sender can pull a parcel off the road; the hold is voided and
	// the booking settles around the cancellation.
	seedShipment(e, "ship-1", "sender-1", domain.ShipmentStatusInTransit)
	seedBooking(e, "book-1", "driver-1", domain.BookingStatusInProgress, "ship-1")
	seedPayment(e, "pay-1", "ship-1", "sender-1", domain.PaymentStatusAuthorized, 1000, "pi_1")

	shipment, err := e.shipments.CancelShipment(context.Background(), "ship-1", "sender-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if shipment.Status != domain.ShipmentStatusCancelled {
		t.Errorf("expected CANCELLED, got %s", shipment.Status)
	}
	if e.store.Payment("pay-1").Status != domain.PaymentStatusCancelled {
		t.Errorf("expected payment CANCELLED, got %s", e.store.Payment("pay-1").Status)
	}
	if len(e.gateway.CancelCalls) != 1 || e.gateway.CancelCalls[0] != "pi_1" {
		t.Errorf("expected a cancel request for pi_1, got %v", e.gateway.CancelCalls)
	}
	if e.store.Booking("book-1").Status != domain.BookingStatusCompleted {
		t.Errorf("expected booking COMPLETED, got %s", e.store.Booking("book-1").Status)
	}

	// Once terminal, a second cancel bounces.
	if _, err := e.shipments.CancelShipment(context.Background(), "ship-1", "sender-1"); err != service.ErrShipmentNotCancellable {
		t.Errorf("expected ErrShipmentNotCancellable, got %v", err)
	}
}

func TestCancelShipment_OwnershipCheckedBeforeState(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	// Not cancellable AND foreign: the intruder must see the ownership
	// error, not learn the shipment's state.
	seedShipment(e, "ship-1", "sender-1", domain.ShipmentStatusDelivered)

	_, err := e.shipments.CancelShipment(context.Background(), "ship-1", "intruder")
	if err != service.ErrNotShipmentOwner {
		t.Errorf("expected ErrNotShipmentOwner, got %v", err)
	}
}

// ──────────────────────────────────────────────
// PICKUP AND LOSS
// ──────────────────────────────────────────────

func TestMarkInTransit_RequiresRunningBooking(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	seedShipment(e, "ship-1", "sender-1", domain.ShipmentStatusAssigned)
	seedBooking(e, "book-1", "driver-1", domain.BookingStatusConfirmed, "ship-1")
	seedPayment(e, "pay-1", "ship-1", "sender-1", domain.PaymentStatusAuthorized, 1000, "pi_1")

	if _, err := e.shipments.MarkInTransit(ctx, "ship-1", "driver-1"); err != service.ErrBookingNotConfirmed {
		t.Fatalf("expected ErrBookingNotConfirmed before the trip starts, got %v", err)
	}

	booking := e.store.Booking("book-1")
	booking.Status = domain.BookingStatusInProgress
	e.store.PutBooking(booking)

	shipment, err := e.shipments.MarkInTransit(ctx, "ship-1", "driver-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if shipment.Status != domain.ShipmentStatusInTransit {
		t.Errorf("expected IN_TRANSIT, got %s", shipment.Status)
	}
}

func TestMarkInTransit_UnpaidShipmentRejected(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	seedShipment(e, "ship-1", "sender-1", domain.ShipmentStatusAssigned)
	seedBooking(e, "book-1", "driver-1", domain.BookingStatusInProgress, "ship-1")
	seedPayment(e, "pay-1", "ship-1", "sender-1", domain.PaymentStatusRequired, 1000, "")

	_, err := e.shipments.MarkInTransit(context.Background(), "ship-1", "driver-1")
	if err != service.ErrPaymentNotSettled {
		t.Fatalf("expected ErrPaymentNotSettled, got %v", err)
	}
	if e.store.Shipment("ship-1").Status != domain.ShipmentStatusAssigned {
		t.Error("shipment status must not advance without a settled payment")
	}
}

func TestReportLost_CompletesBooking(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	seedShipment(e, "ship-1", "sender-1", domain.ShipmentStatusInTransit)
	seedBooking(e, "book-1", "driver-1", domain.BookingStatusInProgress, "ship-1")

	shipment, err := e.shipments.ReportLost(context.Background(), "ship-1", "driver-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if shipment.Status != domain.ShipmentStatusLost {
		t.Errorf("expected LOST, got %s", shipment.Status)
	}
	// A loss is terminal, so the single-shipment booking completes.
	if e.store.Booking("book-1").Status != domain.BookingStatusCompleted {
		t.Errorf("expected booking COMPLETED, got %s", e.store.Booking("book-1").Status)
	}
}
