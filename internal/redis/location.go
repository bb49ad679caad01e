package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	driverLocationKey  = "drivers:locations"
	driverLastSeenPref = "drivers:lastseen:"
)

// DriverLocation represents a driver's position.
type DriverLocation struct {
	DriverID string
	Lat      float64
	Lng      float64
}

// LocationStore handles driver location operations in Redis.
type LocationStore struct {
	client *redis.Client
}

// NewLocationStore creates a new LocationStore.
func NewLocationStore(client *redis.Client) *LocationStore {
	return &LocationStore{client: client}
}

// UpdateLocation stores a driver's location using GEOADD and records the
// update time so callers can reject stale positions.
func (s *LocationStore) UpdateLocation(ctx context.Context, driverID string, lat, lng float64) error {
	if err := s.client.GeoAdd(ctx, driverLocationKey, &redis.GeoLocation{
		Name:      driverID,
		Longitude: lng,
		Latitude:  lat,
	}).Err(); err != nil {
		return err
	}
	return s.client.Set(ctx, driverLastSeenPref+driverID,
		strconv.FormatInt(time.Now().Unix(), 10), 0).Err()
}

// GetLocation returns a driver's last known position and when it was
// reported. Returns a nil location when the driver has never reported.
func (s *LocationStore) GetLocation(ctx context.Context, driverID string) (*DriverLocation, time.Time, error) {
	positions, err := s.client.GeoPos(ctx, driverLocationKey, driverID).Result()
	if err != nil {
		return nil, time.Time{}, err
	}
	if len(positions) == 0 || positions[0] == nil {
		return nil, time.Time{}, nil
	}

	var lastSeen time.Time
	raw, err := s.client.Get(ctx, driverLastSeenPref+driverID).Result()
	if err != nil && err != redis.Nil {
		return nil, time.Time{}, err
	}
	if err == nil {
		if unix, parseErr := strconv.ParseInt(raw, 10, 64); parseErr == nil {
			lastSeen = time.Unix(unix, 0)
		}
	}

	return &DriverLocation{
		DriverID: driverID,
		Lat:      positions[0].Latitude,
		Lng:      positions[0].Longitude,
	}, lastSeen, nil
}

// FindNearbyDrivers returns driver IDs within the given radius (in kilometers).
func (s *LocationStore) FindNearbyDrivers(ctx context.Context, lat, lng, radiusKm float64) ([]DriverLocation, error) {
	results, err := s.client.GeoRadius(ctx, driverLocationKey, lng, lat, &redis.GeoRadiusQuery{
		Radius:    radiusKm,
		Unit:      "km",
		WithCoord: true,
		Sort:      "ASC",
	}).Result()
	if err != nil {
		return nil, err
	}

	locations := make([]DriverLocation, 0, len(results))
	for _, r := range results {
		locations = append(locations, DriverLocation{
			DriverID: r.Name,
			Lat:      r.Latitude,
			Lng:      r.Longitude,
		})
	}

	return locations, nil
}

// RemoveLocation removes a driver's location from the geo index.
func (s *LocationStore) RemoveLocation(ctx context.Context, driverID string) error {
	if err := s.client.ZRem(ctx, driverLocationKey, driverID).Err(); err != nil {
		return err
	}
	return s.client.Del(ctx, driverLastSeenPref+driverID).Err()
}
