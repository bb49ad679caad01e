package tests

import (
	"context"
	"sync"
	"testing"
	"time"

	"shipmate/internal/domain"
	"shipmate/internal/service"
)

// ──────────────────────────────────────────────
// BOOKING CREATION
// ──────────────────────────────────────────────

func TestCreateBooking_ClaimsShipments(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	seedShipment(e, "ship-1", "sender-1", domain.ShipmentStatusCreated)
	seedShipment(e, "ship-2", "sender-2", domain.ShipmentStatusCreated)
	e.locations.SetLocation("driver-1", pickupLat, pickupLng, time.Now())

	booking, err := e.bookings.CreateBooking(ctx, service.CreateBookingRequest{
		DriverID:    "driver-1",
		ShipmentIDs: []string{"ship-1", "ship-2"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if booking.Status != domain.BookingStatusPending {
		t.Errorf("expected PENDING, got %s", booking.Status)
	}
	if booking.TotalPrice != 2000 {
		t.Errorf("expected total 2000, got %d", booking.TotalPrice)
	}
	if booking.PlatformCommission != 400 || booking.DriverEarnings != 1600 {
		t.Errorf("unexpected split: commission=%d earnings=%d",
			booking.PlatformCommission, booking.DriverEarnings)
	}

	for i, id := range []string{"ship-1", "ship-2"} {
		shipment := e.store.Shipment(id)
		if shipment.Status != domain.ShipmentStatusAssigned {
			t.Errorf("%s: expected ASSIGNED, got %s", id, shipment.Status)
		}
		if shipment.BookingID != booking.ID {
			t.Errorf("%s: not attached to booking", id)
		}
		if shipment.PickupOrder != i+1 {
			t.Errorf("%s: pickup order %d, expected %d", id, shipment.PickupOrder, i+1)
		}
	}
}

func TestCreateBooking_StaleLocationRejected(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	seedShipment(e, "ship-1", "sender-1", domain.ShipmentStatusCreated)
	e.locations.SetLocation("driver-1", pickupLat, pickupLng, time.Now().Add(-2*time.Hour))

	_, err := e.bookings.CreateBooking(context.Background(), service.CreateBookingRequest{
		DriverID:    "driver-1",
		ShipmentIDs: []string{"ship-1"},
	})
	if err != service.ErrStaleDriverLocation {
		t.Errorf("expected ErrStaleDriverLocation, got %v", err)
	}
}

func TestCreateBooking_ClaimedShipmentRollsBackWholeBooking(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	seedShipment(e, "ship-1", "sender-1", domain.ShipmentStatusCreated)
	taken := seedShipment(e, "ship-2", "sender-2", domain.ShipmentStatusAssigned)
	taken.BookingID = "book-other"
	e.store.PutShipment(taken)
	e.locations.SetLocation("driver-1", pickupLat, pickupLng, time.Now())

	_, err := e.bookings.CreateBooking(context.Background(), service.CreateBookingRequest{
		DriverID:    "driver-1",
		ShipmentIDs: []string{"ship-1", "ship-2"},
	})
	if err != service.ErrShipmentNotAvailable {
		t.Fatalf("expected ErrShipmentNotAvailable, got %v", err)
	}

	// The first shipment's claim must not survive the rollback.
	shipment := e.store.Shipment("ship-1")
	if shipment.Status != domain.ShipmentStatusCreated || shipment.BookingID != "" {
		t.Errorf("partial claim leaked: status=%s booking=%q", shipment.Status, shipment.BookingID)
	}
}

func TestCreateBooking_PickupOutsideRadiusRejected(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	seedShipment(e, "ship-1", "sender-1", domain.ShipmentStatusCreated)
	// Hamburg is a few hundred km from the Berlin pickup.
	e.locations.SetLocation("driver-1", 53.5511, 9.9937, time.Now())

	_, err := e.bookings.CreateBooking(context.Background(), service.CreateBookingRequest{
		DriverID:    "driver-1",
		ShipmentIDs: []string{"ship-1"},
	})
	if err != service.ErrPickupTooFar {
		t.Errorf("expected ErrPickupTooFar, got %v", err)
	}
}

func TestCreateBooking_ActiveBookingBlocks(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	seedBooking(e, "book-1", "driver-1", domain.BookingStatusConfirmed)
	seedShipment(e, "ship-1", "sender-1", domain.ShipmentStatusCreated)
	e.locations.SetLocation("driver-1", pickupLat, pickupLng, time.Now())

	_, err := e.bookings.CreateBooking(context.Background(), service.CreateBookingRequest{
		DriverID:    "driver-1",
		ShipmentIDs: []string{"ship-1"},
	})
	if err != service.ErrDriverHasActiveBooking {
		t.Errorf("expected ErrDriverHasActiveBooking, got %v", err)
	}
}

func TestCreateBooking_ConcurrentClaimSingleWinner(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	seedShipment(e, "ship-1", "sender-1", domain.ShipmentStatusCreated)
	e.locations.SetLocation("driver-1", pickupLat, pickupLng, time.Now())
	e.locations.SetLocation("driver-2", pickupLat, pickupLng, time.Now())

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, driverID := range []string{"driver-1", "driver-2"} {
		wg.Add(1)
		go func(i int, driverID string) {
			defer wg.Done()
			_, errs[i] = e.bookings.CreateBooking(context.Background(), service.CreateBookingRequest{
				DriverID:    driverID,
				ShipmentIDs: []string{"ship-1"},
			})
		}(i, driverID)
	}
	wg.Wait()

	var wins, losses int
	for _, err := range errs {
		switch err {
		case nil:
			wins++
		case service.ErrShipmentNotAvailable:
			losses++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || losses != 1 {
		t.Errorf("expected exactly one winner, got %d wins / %d losses", wins, losses)
	}
}

// ──────────────────────────────────────────────
// CONFIRM / START / CANCEL
// ──────────────────────────────────────────────

func TestConfirmBooking_OpensPayments(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	insured := seedShipment(e, "ship-1", "sender-1", domain.ShipmentStatusAssigned)
	insured.Insurance = domain.Insurance{Selected: true, DeclaredValue: 100000, Fee: 2500, CoverageAmount: 100000, DeductibleRate: 0.10}
	e.store.PutShipment(insured)
	seedShipment(e, "ship-2", "sender-2", domain.ShipmentStatusAssigned)
	seedBooking(e, "book-1", "driver-1", domain.BookingStatusPending, "ship-1", "ship-2")

	booking, err := e.bookings.ConfirmBooking(ctx, "book-1", "driver-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if booking.Status != domain.BookingStatusConfirmed {
		t.Errorf("expected CONFIRMED, got %s", booking.Status)
	}

	insuredPayment := e.store.PaymentForShipment("ship-1")
	if insuredPayment == nil || insuredPayment.Status != domain.PaymentStatusRequired {
		t.Fatal("expected a REQUIRED payment for ship-1")
	}
	// Base price plus the insurance premium.
	if insuredPayment.AmountTotal != 3500 {
		t.Errorf("expected 3500, got %d", insuredPayment.AmountTotal)
	}
	plain := e.store.PaymentForShipment("ship-2")
	if plain == nil || plain.AmountTotal != 1000 {
		t.Fatal("expected a 1000 payment for ship-2")
	}
	if !e.publisher.Has("payment.required") {
		t.Error("senders should be told payment is due")
	}
}

func TestConfirmBooking_KeepsExistingPayment(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	seedShipment(e, "ship-1", "sender-1", domain.ShipmentStatusAssigned)
	seedBooking(e, "book-1", "driver-1", domain.BookingStatusPending, "ship-1")
	seedPayment(e, "pay-1", "ship-1", "sender-1", domain.PaymentStatusProcessing, 1000, "pi_1")

	if _, err := e.bookings.ConfirmBooking(context.Background(), "book-1", "driver-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	payment := e.store.PaymentForShipment("ship-1")
	if payment.ID != "pay-1" || payment.Status != domain.PaymentStatusProcessing {
		t.Error("an existing payment must not be replaced")
	}
}

func TestConfirmBooking_ConcurrentSingleTransition(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	seedShipment(e, "ship-1", "sender-1", domain.ShipmentStatusAssigned)
	seedBooking(e, "book-1", "driver-1", domain.BookingStatusPending, "ship-1")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.bookings.ConfirmBooking(context.Background(), "book-1", "driver-1")
		}(i)
	}
	wg.Wait()

	// The loser hits either the booking lock or the state check,
	// depending on timing; both mean the transition happened once.
	var wins, losses int
	for _, err := range errs {
		switch err {
		case nil:
			wins++
		case service.ErrBookingNotPending, service.ErrBookingBusy:
			losses++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || losses != 1 {
		t.Errorf("expected exactly one confirmation, got %d wins / %d losses", wins, losses)
	}
	if e.store.Booking("book-1").Status != domain.BookingStatusConfirmed {
		t.Errorf("expected CONFIRMED, got %s", e.store.Booking("book-1").Status)
	}

	var required int
	for _, name := range e.publisher.Names() {
		if name == "payment.required" {
			required++
		}
	}
	if required != 1 {
		t.Errorf("expected exactly one payment.required event, got %d", required)
	}
}

func TestStartBooking_RequiresAuthorizedPayments(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	seedShipment(e, "ship-1", "sender-1", domain.ShipmentStatusAssigned)
	seedShipment(e, "ship-2", "sender-2", domain.ShipmentStatusAssigned)
	seedBooking(e, "book-1", "driver-1", domain.BookingStatusConfirmed, "ship-1", "ship-2")
	seedPayment(e, "pay-1", "ship-1", "sender-1", domain.PaymentStatusAuthorized, 1000, "pi_1")
	seedPayment(e, "pay-2", "ship-2", "sender-2", domain.PaymentStatusRequired, 1000, "")

	_, err := e.bookings.StartBooking(ctx, "book-1", "driver-1")
	if err != service.ErrPaymentNotSettled {
		t.Fatalf("expected ErrPaymentNotSettled, got %v", err)
	}
	if e.store.Booking("book-1").Status != domain.BookingStatusConfirmed {
		t.Error("booking must stay CONFIRMED")
	}

	// The second sender pays; now the trip can start.
	payment := e.store.Payment("pay-2")
	payment.Status = domain.PaymentStatusAuthorized
	payment.IntentID = "pi_2"
	e.store.PutPayment(payment)

	booking, err := e.bookings.StartBooking(ctx, "book-1", "driver-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if booking.Status != domain.BookingStatusInProgress {
		t.Errorf("expected IN_PROGRESS, got %s", booking.Status)
	}
}

func TestCancelBooking_ReleasesShipmentsAndVoidsHolds(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	seedShipment(e, "ship-1", "sender-1", domain.ShipmentStatusAssigned)
	seedDeliveryCode(t, e, "ship-1")
	seedBooking(e, "book-1", "driver-1", domain.BookingStatusConfirmed, "ship-1")
	seedPayment(e, "pay-1", "ship-1", "sender-1", domain.PaymentStatusAuthorized, 1000, "pi_1")

	booking, err := e.bookings.CancelBooking(context.Background(), "book-1", "driver-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if booking.Status != domain.BookingStatusCancelled {
		t.Errorf("expected CANCELLED, got %s", booking.Status)
	}

	shipment := e.store.Shipment("ship-1")
	if shipment.Status != domain.ShipmentStatusCreated {
		t.Errorf("shipment should return to the open pool, got %s", shipment.Status)
	}
	if shipment.BookingID != "" || shipment.PickupOrder != 0 {
		t.Error("booking attachment should be cleared")
	}
	if shipment.Code.Issued() {
		t.Error("the stale delivery code should be discarded")
	}
	if e.store.Payment("pay-1").Status != domain.PaymentStatusCancelled {
		t.Error("the payment should be cancelled")
	}
	if len(e.gateway.CancelCalls) != 1 || e.gateway.CancelCalls[0] != "pi_1" {
		t.Errorf("the authorized hold should be voided, cancel calls: %v", e.gateway.CancelCalls)
	}
}

func TestCancelBooking_InProgressRejected(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	seedBooking(e, "book-1", "driver-1", domain.BookingStatusInProgress)

	_, err := e.bookings.CancelBooking(context.Background(), "book-1", "driver-1")
	if err != service.ErrBookingNotCancellable {
		t.Errorf("expected ErrBookingNotCancellable, got %v", err)
	}
}

func TestCompleteBooking_RequiresFinishedShipments(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	seedShipment(e, "ship-1", "sender-1", domain.ShipmentStatusInTransit)
	seedBooking(e, "book-1", "driver-1", domain.BookingStatusInProgress, "ship-1")

	if _, err := e.bookings.CompleteBooking(ctx, "book-1", "driver-1"); err != service.ErrShipmentsUnfinished {
		t.Fatalf("expected ErrShipmentsUnfinished, got %v", err)
	}

	shipment := e.store.Shipment("ship-1")
	shipment.Status = domain.ShipmentStatusLost
	e.store.PutShipment(shipment)

	booking, err := e.bookings.CompleteBooking(ctx, "book-1", "driver-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if booking.Status != domain.BookingStatusCompleted {
		t.Errorf("expected COMPLETED, got %s", booking.Status)
	}
}

func TestCancelledBookingIsAbsorbing(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	seedBooking(e, "book-1", "driver-1", domain.BookingStatusCancelled)

	if _, err := e.bookings.ConfirmBooking(ctx, "book-1", "driver-1"); err != service.ErrBookingNotPending {
		t.Errorf("confirm: expected ErrBookingNotPending, got %v", err)
	}
	if _, err := e.bookings.StartBooking(ctx, "book-1", "driver-1"); err != service.ErrBookingNotConfirmed {
		t.Errorf("start: expected ErrBookingNotConfirmed, got %v", err)
	}
	if _, err := e.bookings.CompleteBooking(ctx, "book-1", "driver-1"); err != service.ErrBookingNotInProgress {
		t.Errorf("complete: expected ErrBookingNotInProgress, got %v", err)
	}
	if _, err := e.bookings.CancelBooking(ctx, "book-1", "driver-1"); err != service.ErrBookingNotCancellable {
		t.Errorf("cancel: expected ErrBookingNotCancellable, got %v", err)
	}
}

// ──────────────────────────────────────────────
// FULL HAPPY PATH
// ──────────────────────────────────────────────

func TestLifecycle_EndToEnd(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	seedShipment(e, "ship-1", "sender-1", domain.ShipmentStatusCreated)
	e.locations.SetLocation("driver-1", pickupLat, pickupLng, time.Now())

	booking, err := e.bookings.CreateBooking(ctx, service.CreateBookingRequest{
		DriverID:    "driver-1",
		ShipmentIDs: []string{"ship-1"},
	})
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}
	if _, err := e.bookings.ConfirmBooking(ctx, booking.ID, "driver-1"); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	// Sender pays: checkout opens the intent, the provider authorizes.
	if _, err := e.payments.BeginCheckout(ctx, "ship-1", "sender-1"); err != nil {
		t.Fatalf("checkout: %v", err)
	}
	intentID := e.store.PaymentForShipment("ship-1").IntentID
	if err := e.payments.HandleProviderEvent(ctx, intentEvent("payment_intent.amount_capturable_updated", intentID)); err != nil {
		t.Fatalf("authorize webhook: %v", err)
	}

	if _, err := e.bookings.StartBooking(ctx, booking.ID, "driver-1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := e.shipments.MarkInTransit(ctx, "ship-1", "driver-1"); err != nil {
		t.Fatalf("pickup: %v", err)
	}

	codes := e.publisher.IssuedCodes()
	if len(codes) == 0 {
		t.Fatal("authorization should have issued a delivery code")
	}
	delivered, err := e.delivery.VerifyCode(ctx, service.VerifyCodeRequest{
		ShipmentID: "ship-1", DriverID: "driver-1", Code: codes[len(codes)-1],
	})
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if delivered.Status != domain.ShipmentStatusDelivered {
		t.Fatalf("expected DELIVERED, got %s", delivered.Status)
	}
	if e.store.Booking(booking.ID).Status != domain.BookingStatusCompleted {
		t.Errorf("booking should complete with its only delivery")
	}

	// The provider confirms the capture; exactly one ledger line appears.
	if err := e.payments.HandleProviderEvent(ctx, intentEvent("payment_intent.succeeded", intentID)); err != nil {
		t.Fatalf("capture webhook: %v", err)
	}
	payment := e.store.PaymentForShipment("ship-1")
	if payment.Status != domain.PaymentStatusCaptured {
		t.Errorf("expected CAPTURED, got %s", payment.Status)
	}
	if got := e.store.CountEarnings(); got != 1 {
		t.Errorf("expected exactly one ledger line, got %d", got)
	}
}

func TestConfirmBooking_ForeignDriverRejected(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	seedBooking(e, "book-1", "driver-1", domain.BookingStatusPending)

	_, err := e.bookings.ConfirmBooking(context.Background(), "book-1", "driver-2")
	if err != service.ErrNotBookingDriver {
		t.Errorf("expected ErrNotBookingDriver, got %v", err)
	}
}
