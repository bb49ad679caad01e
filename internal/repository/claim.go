package repository

import (
	"context"

	"shipmate/internal/domain"
)

// ClaimRepository defines the persistence operations for insurance claims.
type ClaimRepository interface {
	// Create persists a new claim.
	Create(ctx context.Context, claim *domain.InsuranceClaim) error

	// GetByID retrieves a claim by ID.
	GetByID(ctx context.Context, id string) (*domain.InsuranceClaim, error)

	// GetByShipment retrieves the claim for a shipment.
	// Returns nil if none exists.
	GetByShipment(ctx context.Context, shipmentID string) (*domain.InsuranceClaim, error)

	// ListByStatus retrieves claims in the given status; an empty status
	// retrieves all claims.
	ListByStatus(ctx context.Context, status domain.ClaimStatus) ([]*domain.InsuranceClaim, error)

	// Update updates an existing claim.
	Update(ctx context.Context, claim *domain.InsuranceClaim) error
}
