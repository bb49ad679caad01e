package tests

import (
	"context"
	"testing"
	"time"

	"shipmate/internal/domain"
	"shipmate/internal/service"
)

// lostInsuredFixture seeds a LOST shipment with an insurance snapshot.
func lostInsuredFixture(e *env, declared, coverage int64) *domain.Shipment {
	shipment := seedShipment(e, "ship-1", "sender-1", domain.ShipmentStatusLost)
	shipment.Insurance = domain.Insurance{
		Selected:       true,
		DeclaredValue:  declared,
		Fee:            2500,
		CoverageAmount: coverage,
		DeductibleRate: 0.10,
	}
	e.store.PutShipment(shipment)
	return shipment
}

// ──────────────────────────────────────────────
// FILING
// ──────────────────────────────────────────────

func TestFileClaim_CopiesCoverageTerms(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	lostInsuredFixture(e, 100000, 100000)

	claim, err := e.insurance.FileClaim(context.Background(), service.FileClaimRequest{
		ShipmentID:  "ship-1",
		ClaimantID:  "sender-1",
		Reason:      domain.ClaimReasonLost,
		Description: "never arrived",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claim.Status != domain.ClaimStatusSubmitted {
		t.Errorf("expected SUBMITTED, got %s", claim.Status)
	}
	if claim.DeclaredValue != 100000 || claim.CoverageAmount != 100000 || claim.DeductibleRate != 0.10 {
		t.Errorf("coverage terms not copied: %+v", claim)
	}
}

func TestFileClaim_Eligibility(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	req := func(shipmentID string) service.FileClaimRequest {
		return service.FileClaimRequest{
			ShipmentID: shipmentID,
			ClaimantID: "sender-1",
			Reason:     domain.ClaimReasonDamaged,
		}
	}

	// Uninsured shipment.
	seedShipment(e, "ship-plain", "sender-1", domain.ShipmentStatusLost)
	if _, err := e.insurance.FileClaim(ctx, req("ship-plain")); err != service.ErrShipmentNotInsured {
		t.Errorf("expected ErrShipmentNotInsured, got %v", err)
	}

	// Insured but still moving.
	moving := seedShipment(e, "ship-moving", "sender-1", domain.ShipmentStatusInTransit)
	moving.Insurance = domain.Insurance{Selected: true, DeclaredValue: 50000, CoverageAmount: 50000, DeductibleRate: 0.10}
	e.store.PutShipment(moving)
	if _, err := e.insurance.FileClaim(ctx, req("ship-moving")); err != service.ErrShipmentNotClaimable {
		t.Errorf("expected ErrShipmentNotClaimable, got %v", err)
	}

	// Bad reason.
	lost := lostInsuredFixture(e, 50000, 50000)
	bad := req(lost.ID)
	bad.Reason = "VANISHED"
	if _, err := e.insurance.FileClaim(ctx, bad); err != service.ErrInvalidClaimReason {
		t.Errorf("expected ErrInvalidClaimReason, got %v", err)
	}

	// Foreign claimant.
	foreign := req(lost.ID)
	foreign.ClaimantID = "intruder"
	if _, err := e.insurance.FileClaim(ctx, foreign); err != service.ErrNotShipmentOwner {
		t.Errorf("expected ErrNotShipmentOwner, got %v", err)
	}
}

func TestFileClaim_ReasonMustMatchOutcome(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	ctx := context.Background()

	delivered := seedShipment(e, "ship-done", "sender-1", domain.ShipmentStatusDelivered)
	delivered.Insurance = domain.Insurance{Selected: true, DeclaredValue: 50000, CoverageAmount: 50000, DeductibleRate: 0.10}
	delivered.DeliveredAt = time.Now()
	e.store.PutShipment(delivered)

	// A parcel that arrived cannot be claimed lost.
	_, err := e.insurance.FileClaim(ctx, service.FileClaimRequest{
		ShipmentID: "ship-done", ClaimantID: "sender-1", Reason: domain.ClaimReasonLost,
	})
	if err != service.ErrShipmentNotClaimable {
		t.Errorf("lost claim on delivered shipment: expected ErrShipmentNotClaimable, got %v", err)
	}

	// A parcel that never arrived cannot be claimed damaged.
	lostInsuredFixture(e, 50000, 50000)
	_, err = e.insurance.FileClaim(ctx, service.FileClaimRequest{
		ShipmentID: "ship-1", ClaimantID: "sender-1", Reason: domain.ClaimReasonDamaged,
	})
	if err != service.ErrShipmentNotClaimable {
		t.Errorf("damage claim on lost shipment: expected ErrShipmentNotClaimable, got %v", err)
	}

	// Damage on arrival is the matching pair.
	if _, err := e.insurance.FileClaim(ctx, service.FileClaimRequest{
		ShipmentID: "ship-done", ClaimantID: "sender-1", Reason: domain.ClaimReasonDamaged,
	}); err != nil {
		t.Errorf("damage claim on delivered shipment: unexpected error %v", err)
	}
}

func TestFileClaim_OnePerShipment(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	lostInsuredFixture(e, 50000, 50000)

	req := service.FileClaimRequest{
		ShipmentID: "ship-1",
		ClaimantID: "sender-1",
		Reason:     domain.ClaimReasonLost,
	}
	if _, err := e.insurance.FileClaim(context.Background(), req); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if _, err := e.insurance.FileClaim(context.Background(), req); err != service.ErrClaimAlreadyExists {
		t.Errorf("expected ErrClaimAlreadyExists, got %v", err)
	}
}

func TestFileClaim_WindowClosed(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	shipment := lostInsuredFixture(e, 50000, 50000)
	shipment.UpdatedAt = time.Now().Add(-8 * 24 * time.Hour)
	e.store.PutShipment(shipment)

	_, err := e.insurance.FileClaim(context.Background(), service.FileClaimRequest{
		ShipmentID: "ship-1",
		ClaimantID: "sender-1",
		Reason:     domain.ClaimReasonLost,
	})
	if err != service.ErrClaimWindowClosed {
		t.Errorf("expected ErrClaimWindowClosed, got %v", err)
	}
}

// ──────────────────────────────────────────────
// REVIEW AND RESOLUTION
// ──────────────────────────────────────────────

func fileClaim(t *testing.T, e *env) *domain.InsuranceClaim {
	t.Helper()
	claim, err := e.insurance.FileClaim(context.Background(), service.FileClaimRequest{
		ShipmentID: "ship-1",
		ClaimantID: "sender-1",
		Reason:     domain.ClaimReasonLost,
	})
	if err != nil {
		t.Fatalf("file claim: %v", err)
	}
	return claim
}

func TestStartReview_MovesSubmittedClaim(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	lostInsuredFixture(e, 50000, 50000)
	claim := fileClaim(t, e)

	reviewed, err := e.insurance.StartReview(context.Background(), claim.ID, "admin-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reviewed.Status != domain.ClaimStatusUnderReview {
		t.Errorf("expected UNDER_REVIEW, got %s", reviewed.Status)
	}
	if reviewed.AdminUserID != "admin-1" {
		t.Errorf("expected admin recorded, got %q", reviewed.AdminUserID)
	}

	if _, err := e.insurance.StartReview(context.Background(), claim.ID, "admin-2"); err != service.ErrClaimNotOpen {
		t.Errorf("expected ErrClaimNotOpen on second review, got %v", err)
	}
}

func TestResolveClaim_ApprovalDeductsTenPercent(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	lostInsuredFixture(e, 100000, 100000)
	claim := fileClaim(t, e)

	resolved, err := e.insurance.ResolveClaim(context.Background(), service.ResolveClaimRequest{
		ClaimID: claim.ID,
		AdminID: "admin-1",
		Approve: true,
		Notes:   "verified with carrier",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Status != domain.ClaimStatusApproved {
		t.Errorf("expected APPROVED, got %s", resolved.Status)
	}
	// 100000 declared, fully covered, minus the 10% deductible.
	if resolved.CompensationAmount != 90000 {
		t.Errorf("expected compensation 90000, got %d", resolved.CompensationAmount)
	}
	if resolved.ResolvedAt.IsZero() {
		t.Error("ResolvedAt should be set")
	}
}

func TestResolveClaim_CoverageCapApplies(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	// Declared above the cap: payout starts from the 200000 ceiling but
	// the deductible still runs off the declared value.
	lostInsuredFixture(e, 300000, 200000)
	claim := fileClaim(t, e)

	resolved, err := e.insurance.ResolveClaim(context.Background(), service.ResolveClaimRequest{
		ClaimID: claim.ID,
		AdminID: "admin-1",
		Approve: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.CompensationAmount != 170000 {
		t.Errorf("expected compensation 170000, got %d", resolved.CompensationAmount)
	}
}

func TestResolveClaim_LostApprovalWritesOffShipment(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	shipment := seedShipment(e, "ship-1", "sender-1", domain.ShipmentStatusInTransit)
	shipment.Insurance = domain.Insurance{Selected: true, DeclaredValue: 100000, CoverageAmount: 100000, DeductibleRate: 0.10}
	e.store.PutShipment(shipment)
	seedBooking(e, "book-1", "driver-1", domain.BookingStatusInProgress, "ship-1")
	seedPayment(e, "pay-1", "ship-1", "sender-1", domain.PaymentStatusAuthorized, 1000, "pi_1")

	claim := fileClaim(t, e)

	resolved, err := e.insurance.ResolveClaim(context.Background(), service.ResolveClaimRequest{
		ClaimID: claim.ID,
		AdminID: "admin-1",
		Approve: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Status != domain.ClaimStatusApproved {
		t.Errorf("expected APPROVED, got %s", resolved.Status)
	}
	if e.store.Shipment("ship-1").Status != domain.ShipmentStatusLost {
		t.Errorf("expected shipment LOST, got %s", e.store.Shipment("ship-1").Status)
	}
	if e.store.Booking("book-1").Status != domain.BookingStatusCompleted {
		t.Errorf("expected booking COMPLETED, got %s", e.store.Booking("book-1").Status)
	}
	// The authorized hold is voided, not refunded.
	if e.store.Payment("pay-1").Status != domain.PaymentStatusCancelled {
		t.Errorf("expected payment CANCELLED, got %s", e.store.Payment("pay-1").Status)
	}
	if len(e.gateway.CancelCalls) != 1 || e.gateway.CancelCalls[0] != "pi_1" {
		t.Errorf("expected a cancel request for pi_1, got %v", e.gateway.CancelCalls)
	}
	if !e.publisher.Has("shipment.status_changed") {
		t.Error("expected a shipment status event")
	}
}

func TestResolveClaim_LostApprovalRefundsCapturedPayment(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	// A capture that raced the loss report: the money settled while the
	// parcel was still on the road.
	shipment := seedShipment(e, "ship-1", "sender-1", domain.ShipmentStatusInTransit)
	shipment.Insurance = domain.Insurance{Selected: true, DeclaredValue: 100000, CoverageAmount: 100000, DeductibleRate: 0.10}
	e.store.PutShipment(shipment)
	seedPayment(e, "pay-1", "ship-1", "sender-1", domain.PaymentStatusCaptured, 1000, "pi_1")

	claim := fileClaim(t, e)

	if _, err := e.insurance.ResolveClaim(context.Background(), service.ResolveClaimRequest{
		ClaimID: claim.ID,
		AdminID: "admin-1",
		Approve: true,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.store.Shipment("ship-1").Status != domain.ShipmentStatusLost {
		t.Errorf("expected shipment LOST, got %s", e.store.Shipment("ship-1").Status)
	}
	// CAPTURED holds until the provider's refund webhook lands.
	if e.store.Payment("pay-1").Status != domain.PaymentStatusCaptured {
		t.Errorf("expected payment CAPTURED, got %s", e.store.Payment("pay-1").Status)
	}
	if len(e.gateway.RefundCalls) != 1 || e.gateway.RefundCalls[0] != "pi_1" {
		t.Errorf("expected a refund request for pi_1, got %v", e.gateway.RefundCalls)
	}
}

func TestResolveClaim_DeliveredShipmentNotWrittenOff(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	// Claimed lost mid-transit, but the parcel surfaced and was
	// delivered before the admin ruled. Approval must not rewrite a
	// completed delivery as a loss.
	shipment := seedShipment(e, "ship-1", "sender-1", domain.ShipmentStatusInTransit)
	shipment.Insurance = domain.Insurance{Selected: true, DeclaredValue: 100000, CoverageAmount: 100000, DeductibleRate: 0.10}
	e.store.PutShipment(shipment)
	claim := fileClaim(t, e)

	shipment = e.store.Shipment("ship-1")
	shipment.Status = domain.ShipmentStatusDelivered
	shipment.DeliveredAt = time.Now()
	e.store.PutShipment(shipment)

	_, err := e.insurance.ResolveClaim(context.Background(), service.ResolveClaimRequest{
		ClaimID: claim.ID,
		AdminID: "admin-1",
		Approve: true,
	})
	if err != service.ErrShipmentNotClaimable {
		t.Fatalf("expected ErrShipmentNotClaimable, got %v", err)
	}
	if e.store.Shipment("ship-1").Status != domain.ShipmentStatusDelivered {
		t.Errorf("shipment must stay DELIVERED, got %s", e.store.Shipment("ship-1").Status)
	}
	// The resolution rolled back with it; the claim can still be ruled on.
	if e.store.Claim(claim.ID).Status != domain.ClaimStatusSubmitted {
		t.Errorf("claim must stay SUBMITTED, got %s", e.store.Claim(claim.ID).Status)
	}
}

func TestResolveClaim_RejectionPaysNothing(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	lostInsuredFixture(e, 100000, 100000)
	claim := fileClaim(t, e)

	resolved, err := e.insurance.ResolveClaim(context.Background(), service.ResolveClaimRequest{
		ClaimID: claim.ID,
		AdminID: "admin-1",
		Approve: false,
		Notes:   "no evidence of loss",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Status != domain.ClaimStatusRejected {
		t.Errorf("expected REJECTED, got %s", resolved.Status)
	}
	if resolved.CompensationAmount != 0 {
		t.Errorf("expected compensation 0, got %d", resolved.CompensationAmount)
	}

	if _, err := e.insurance.ResolveClaim(context.Background(), service.ResolveClaimRequest{
		ClaimID: claim.ID, AdminID: "admin-1", Approve: true,
	}); err != service.ErrClaimNotOpen {
		t.Errorf("expected ErrClaimNotOpen after resolution, got %v", err)
	}
}
