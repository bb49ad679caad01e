package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheStore handles entity caching in Redis.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// ShipmentCacheTTL is short because shipment status changes during
// matching and reconciliation.
const ShipmentCacheTTL = 10 * time.Second

const shipmentCachePrefix = "cache:shipment:"

// CachedShipment is the slice of a shipment that candidate discovery
// needs, kept hot so repeated matching queries skip the database.
type CachedShipment struct {
	ID          string  `json:"id"`
	SenderID    string  `json:"sender_id"`
	Status      string  `json:"status"`
	PickupLat   float64 `json:"pickup_lat"`
	PickupLng   float64 `json:"pickup_lng"`
	DeliveryLat float64 `json:"delivery_lat"`
	DeliveryLng float64 `json:"delivery_lng"`
	WeightKg    float64 `json:"weight_kg"`
	BasePrice   int64   `json:"base_price"`
}

// GetShipment retrieves a shipment from cache.
func (s *CacheStore) GetShipment(ctx context.Context, shipmentID string) (*CachedShipment, error) {
	key := shipmentCachePrefix + shipmentID
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var shipment CachedShipment
	if err := json.Unmarshal(data, &shipment); err != nil {
		return nil, err
	}
	return &shipment, nil
}

// SetShipment stores a shipment in cache.
func (s *CacheStore) SetShipment(ctx context.Context, shipment *CachedShipment) error {
	key := shipmentCachePrefix + shipment.ID
	data, err := json.Marshal(shipment)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, ShipmentCacheTTL).Err()
}

// InvalidateShipment removes a shipment from cache.
func (s *CacheStore) InvalidateShipment(ctx context.Context, shipmentID string) error {
	key := shipmentCachePrefix + shipmentID
	return s.client.Del(ctx, key).Err()
}

// AddAvailableDriver adds a driver to the available set.
func (s *CacheStore) AddAvailableDriver(ctx context.Context, driverID string) error {
	return s.client.SAdd(ctx, "available_drivers", driverID).Err()
}

// RemoveAvailableDriver removes a driver from the available set.
func (s *CacheStore) RemoveAvailableDriver(ctx context.Context, driverID string) error {
	return s.client.SRem(ctx, "available_drivers", driverID).Err()
}

// IsDriverAvailable checks if a driver is in the available set.
func (s *CacheStore) IsDriverAvailable(ctx context.Context, driverID string) (bool, error) {
	return s.client.SIsMember(ctx, "available_drivers", driverID).Result()
}
