package repository

import (
	"context"

	"shipmate/internal/domain"
)

// PaymentRepository defines the persistence operations for payments.
type PaymentRepository interface {
	// Create persists a new payment.
	Create(ctx context.Context, payment *domain.Payment) error

	// GetByID retrieves a payment by ID.
	GetByID(ctx context.Context, id string) (*domain.Payment, error)

	// GetByShipment retrieves the payment for a shipment.
	// Returns nil if no payment exists yet.
	GetByShipment(ctx context.Context, shipmentID string) (*domain.Payment, error)

	// GetByShipmentForUpdate is GetByShipment with a row lock.
	GetByShipmentForUpdate(ctx context.Context, shipmentID string) (*domain.Payment, error)

	// GetByIntentID retrieves the payment for an external payment-intent
	// identifier. Returns nil if no payment references the intent;
	// webhook payloads for unknown intents are dropped, not errors.
	GetByIntentID(ctx context.Context, intentID string) (*domain.Payment, error)

	// GetByIntentIDForUpdate is GetByIntentID with a row lock.
	GetByIntentIDForUpdate(ctx context.Context, intentID string) (*domain.Payment, error)

	// Update updates an existing payment.
	Update(ctx context.Context, payment *domain.Payment) error
}
