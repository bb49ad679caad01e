package service

import (
	"context"
	"sort"
	"time"

	"shipmate/internal/domain"
	"shipmate/internal/redis"
	"shipmate/internal/repository"
)

// MatchingService suggests open shipments to drivers. It only discovers
// candidates; claiming them is the booking creation's job, which is
// where the races are resolved.
type MatchingService struct {
	uow           repository.UnitOfWork
	locationStore redis.LocationStoreInterface
	cacheStore    redis.CacheStoreInterface
	radiusKm      float64
	locationMax   time.Duration
}

// NewMatchingService creates a new MatchingService.
func NewMatchingService(
	uow repository.UnitOfWork,
	locationStore redis.LocationStoreInterface,
	cacheStore redis.CacheStoreInterface,
	radiusKm float64,
	locationMax time.Duration,
) *MatchingService {
	return &MatchingService{
		uow:           uow,
		locationStore: locationStore,
		cacheStore:    cacheStore,
		radiusKm:      radiusKm,
		locationMax:   locationMax,
	}
}

// Candidate is an open shipment within reach of the driver.
type Candidate struct {
	Shipment *domain.Shipment
	PickupKm float64
}

// FindCandidates returns open shipments whose pickup lies within the
// configured radius of the driver's last known position, nearest first.
func (s *MatchingService) FindCandidates(ctx context.Context, driverID string) ([]Candidate, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	loc, lastSeen, err := s.locationStore.GetLocation(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if loc == nil || time.Since(lastSeen) > s.locationMax {
		return nil, ErrStaleDriverLocation
	}

	open, err := s.uow.Store().Shipments().ListByStatus(ctx, domain.ShipmentStatusCreated)
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(open))
	for _, shipment := range open {
		dist := DistanceKm(loc.Lat, loc.Lng, shipment.PickupLat, shipment.PickupLng)
		if dist > s.radiusKm {
			continue
		}
		candidates = append(candidates, Candidate{Shipment: shipment, PickupKm: dist})
		s.cacheShipmentAsync(shipment)
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].PickupKm < candidates[j].PickupKm
	})
	return candidates, nil
}

// cacheShipmentAsync caches a shipment snapshot (fire and forget).
func (s *MatchingService) cacheShipmentAsync(shipment *domain.Shipment) {
	if s.cacheStore == nil {
		return
	}
	go func() {
		cached := &redis.CachedShipment{
			ID:          shipment.ID,
			SenderID:    shipment.SenderID,
			Status:      string(shipment.Status),
			PickupLat:   shipment.PickupLat,
			PickupLng:   shipment.PickupLng,
			DeliveryLat: shipment.DeliveryLat,
			DeliveryLng: shipment.DeliveryLng,
			WeightKg:    shipment.PackageWeightKg,
			BasePrice:   shipment.BasePrice,
		}
		_ = s.cacheStore.SetShipment(context.Background(), cached)
	}()
}
