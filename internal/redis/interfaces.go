package redis

import (
	"context"
	"time"
)

// LocationStoreInterface defines the interface for driver location operations.
type LocationStoreInterface interface {
	UpdateLocation(ctx context.Context, driverID string, lat, lng float64) error
	GetLocation(ctx context.Context, driverID string) (*DriverLocation, time.Time, error)
	FindNearbyDrivers(ctx context.Context, lat, lng, radiusKm float64) ([]DriverLocation, error)
	RemoveLocation(ctx context.Context, driverID string) error
}

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	AcquireShipmentLock(ctx context.Context, shipmentID string, ttl time.Duration) (bool, error)
	ReleaseShipmentLock(ctx context.Context, shipmentID string) error
	AcquireBookingLock(ctx context.Context, bookingID string, ttl time.Duration) (bool, error)
	ReleaseBookingLock(ctx context.Context, bookingID string) error
}

// CacheStoreInterface defines the interface for the shipment cache and
// the available-driver set.
type CacheStoreInterface interface {
	GetShipment(ctx context.Context, shipmentID string) (*CachedShipment, error)
	SetShipment(ctx context.Context, shipment *CachedShipment) error
	InvalidateShipment(ctx context.Context, shipmentID string) error
	AddAvailableDriver(ctx context.Context, driverID string) error
	RemoveAvailableDriver(ctx context.Context, driverID string) error
	IsDriverAvailable(ctx context.Context, driverID string) (bool, error)
}

// Ensure concrete types implement interfaces.
var (
	_ LocationStoreInterface = (*LocationStore)(nil)
	_ LockStoreInterface     = (*LockStore)(nil)
	_ CacheStoreInterface    = (*CacheStore)(nil)
)
