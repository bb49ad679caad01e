package service

import (
	"context"

	"shipmate/internal/redis"
)

// DriverService handles driver presence.
type DriverService struct {
	locationStore redis.LocationStoreInterface
	cacheStore    redis.CacheStoreInterface
}

// NewDriverService creates a new DriverService.
func NewDriverService(
	locationStore redis.LocationStoreInterface,
	cacheStore redis.CacheStoreInterface,
) *DriverService {
	return &DriverService{
		locationStore: locationStore,
		cacheStore:    cacheStore,
	}
}

// UpdateLocationRequest contains the parameters for updating driver location.
type UpdateLocationRequest struct {
	DriverID string
	Lat      float64
	Lng      float64
}

// UpdateLocation records a driver's position in Redis and marks them
// available. Location freshness is what booking creation and candidate
// discovery key off, so drivers report frequently.
func (s *DriverService) UpdateLocation(ctx context.Context, req UpdateLocationRequest) error {
	if req.DriverID == "" {
		return ErrInvalidDriverID
	}
	if !validCoords(req.Lat, req.Lng) {
		return ErrInvalidLocation
	}

	if err := s.locationStore.UpdateLocation(ctx, req.DriverID, req.Lat, req.Lng); err != nil {
		return err
	}

	if s.cacheStore != nil {
		_ = s.cacheStore.AddAvailableDriver(ctx, req.DriverID)
	}

	return nil
}

// GoOffline removes a driver from the geo index and the available set.
func (s *DriverService) GoOffline(ctx context.Context, driverID string) error {
	if driverID == "" {
		return ErrInvalidDriverID
	}

	if err := s.locationStore.RemoveLocation(ctx, driverID); err != nil {
		return err
	}

	if s.cacheStore != nil {
		_ = s.cacheStore.RemoveAvailableDriver(ctx, driverID)
	}

	return nil
}
