package tests

import (
	"context"
	"testing"
	"time"

	"shipmate/internal/domain"
	"shipmate/internal/service"
)

// ──────────────────────────────────────────────
// CANDIDATE DISCOVERY
// ──────────────────────────────────────────────

func TestFindCandidates_NearestFirstWithinRadius(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	e.locations.SetLocation("driver-1", pickupLat, pickupLng, time.Now())

	// At the driver's position, ~10km north-east, and far outside the
	// 15km radius.
	seedShipment(e, "ship-near", "sender-1", domain.ShipmentStatusCreated)

	mid := seedShipment(e, "ship-mid", "sender-2", domain.ShipmentStatusCreated)
	mid.PickupLat, mid.PickupLng = 52.60, 13.50
	e.store.PutShipment(mid)

	far := seedShipment(e, "ship-far", "sender-3", domain.ShipmentStatusCreated)
	far.PickupLat, far.PickupLng = 53.5511, 9.9937
	e.store.PutShipment(far)

	// Already claimed shipments are never suggested.
	seedShipment(e, "ship-taken", "sender-4", domain.ShipmentStatusAssigned)

	candidates, err := e.matching.FindCandidates(context.Background(), "driver-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}
	if candidates[0].Shipment.ID != "ship-near" || candidates[1].Shipment.ID != "ship-mid" {
		t.Errorf("expected nearest-first order, got %s then %s",
			candidates[0].Shipment.ID, candidates[1].Shipment.ID)
	}
	if candidates[0].PickupKm >= candidates[1].PickupKm {
		t.Errorf("distances not ascending: %f, %f", candidates[0].PickupKm, candidates[1].PickupKm)
	}
}

func TestFindCandidates_StaleLocationRejected(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	seedShipment(e, "ship-1", "sender-1", domain.ShipmentStatusCreated)
	e.locations.SetLocation("driver-1", pickupLat, pickupLng, time.Now().Add(-2*time.Hour))

	if _, err := e.matching.FindCandidates(context.Background(), "driver-1"); err != service.ErrStaleDriverLocation {
		t.Errorf("expected ErrStaleDriverLocation, got %v", err)
	}
}

func TestFindCandidates_UnknownDriverRejected(t *testing.T) {
	t.Parallel()
	e := newEnv(t)

	seedShipment(e, "ship-1", "sender-1", domain.ShipmentStatusCreated)

	if _, err := e.matching.FindCandidates(context.Background(), "driver-ghost"); err != service.ErrStaleDriverLocation {
		t.Errorf("expected ErrStaleDriverLocation for an unreported driver, got %v", err)
	}
}

// ──────────────────────────────────────────────
// DRIVER PRESENCE
// ──────────────────────────────────────────────

func TestUpdateLocation_RecordsPosition(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	drivers := service.NewDriverService(e.locations, e.cache)

	err := drivers.UpdateLocation(context.Background(), service.UpdateLocationRequest{
		DriverID: "driver-1",
		Lat:      pickupLat,
		Lng:      pickupLng,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !e.locations.HasLocation("driver-1") {
		t.Error("location should be stored")
	}

	err = drivers.UpdateLocation(context.Background(), service.UpdateLocationRequest{
		DriverID: "driver-1",
		Lat:      91,
		Lng:      0,
	})
	if err != service.ErrInvalidLocation {
		t.Errorf("expected ErrInvalidLocation, got %v", err)
	}
}

func TestGoOffline_RemovesPosition(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	drivers := service.NewDriverService(e.locations, e.cache)

	e.locations.SetLocation("driver-1", pickupLat, pickupLng, time.Now())

	if err := drivers.GoOffline(context.Background(), "driver-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.locations.HasLocation("driver-1") {
		t.Error("location should be removed")
	}

	if _, err := e.matching.FindCandidates(context.Background(), "driver-1"); err != service.ErrStaleDriverLocation {
		t.Errorf("an offline driver should have no candidates, got %v", err)
	}
}
