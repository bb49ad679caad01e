package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LockStore handles distributed locking in Redis.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

// AcquireShipmentLock attempts to acquire a lock for the given shipment.
// Returns true if the lock was acquired, false if already held.
func (s *LockStore) AcquireShipmentLock(ctx context.Context, shipmentID string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("lock:shipment:%s", shipmentID)

	ok, err := s.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

// ReleaseShipmentLock releases the lock for the given shipment.
func (s *LockStore) ReleaseShipmentLock(ctx context.Context, shipmentID string) error {
	key := fmt.Sprintf("lock:shipment:%s", shipmentID)

	return s.client.Del(ctx, key).Err()
}

// AcquireBookingLock attempts to acquire a lock for the given booking.
// Returns true if the lock was acquired, false if already held.
func (s *LockStore) AcquireBookingLock(ctx context.Context, bookingID string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("lock:booking:%s", bookingID)

	ok, err := s.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

// ReleaseBookingLock releases the lock for the given booking.
func (s *LockStore) ReleaseBookingLock(ctx context.Context, bookingID string) error {
	key := fmt.Sprintf("lock:booking:%s", bookingID)

	return s.client.Del(ctx, key).Err()
}
