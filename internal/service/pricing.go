package service

import (
	"math"

	"shipmate/internal/config"
	"shipmate/internal/domain"
)

// PricingService computes shipment prices, insurance premiums and the
// commission split. It is pure policy: no storage, no side effects.
type PricingService struct {
	pricing   config.PricingConfig
	insurance config.InsuranceConfig
}

// NewPricingService creates a new PricingService.
func NewPricingService(pricing config.PricingConfig, insurance config.InsuranceConfig) *PricingService {
	return &PricingService{pricing: pricing, insurance: insurance}
}

// QuoteBasePrice prices a shipment from route distance and weight,
// floored at the configured minimum.
func (s *PricingService) QuoteBasePrice(distanceKm, weightKg float64) int64 {
	price := s.pricing.BaseFeeCents +
		int64(math.Round(distanceKm*float64(s.pricing.PerKmCents))) +
		int64(math.Round(weightKg*float64(s.pricing.PerKgCents)))

	if price < s.pricing.MinimumCents {
		return s.pricing.MinimumCents
	}
	return price
}

// QuoteInsurance computes the coverage snapshot for a declared value.
// Returns ErrInvalidDeclaredValue when the value is outside the
// insurable range.
func (s *PricingService) QuoteInsurance(declaredValueCents int64) (domain.Insurance, error) {
	if declaredValueCents <= 0 || declaredValueCents > s.insurance.MaxDeclaredCents {
		return domain.Insurance{}, ErrInvalidDeclaredValue
	}

	rate := s.insurance.Tier1Rate
	if declaredValueCents > s.insurance.Tier1LimitCents {
		rate = s.insurance.Tier2Rate
	}

	fee := int64(math.Round(float64(declaredValueCents) * rate))
	coverage := declaredValueCents
	if coverage > s.insurance.Tier2LimitCents {
		coverage = s.insurance.Tier2LimitCents
	}

	return domain.Insurance{
		Selected:       true,
		DeclaredValue:  declaredValueCents,
		Fee:            fee,
		CoverageAmount: coverage,
		DeductibleRate: s.insurance.DeductibleRate,
	}, nil
}

// CommissionSplit divides a gross amount into platform commission and
// driver net. The net never goes negative.
func (s *PricingService) CommissionSplit(grossCents int64) (commission, net int64) {
	commission = int64(math.Round(float64(grossCents) * s.pricing.CommissionRate))
	net = grossCents - commission
	if net < 0 {
		net = 0
	}
	return commission, net
}

// ShipmentTotal is the amount the sender is charged: base price plus the
// insurance premium when coverage was selected.
func (s *PricingService) ShipmentTotal(shipment *domain.Shipment) int64 {
	total := shipment.BasePrice
	if shipment.Insurance.Selected {
		total += shipment.Insurance.Fee
	}
	return total
}

const earthRadiusKm = 6371.0

// DistanceKm computes the haversine distance between two coordinates.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}
