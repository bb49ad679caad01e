package repository

import (
	"context"

	"shipmate/internal/domain"
)

// ShipmentRepository defines the persistence operations for shipments.
type ShipmentRepository interface {
	// Create persists a new shipment.
	Create(ctx context.Context, shipment *domain.Shipment) error

	// GetByID retrieves a shipment by ID.
	GetByID(ctx context.Context, id string) (*domain.Shipment, error)

	// GetByIDForUpdate retrieves a shipment by ID with a row lock, so
	// concurrent lifecycle and reconciliation operations on the same
	// shipment serialize. Only meaningful inside a transaction.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Shipment, error)

	// GetByIDs retrieves the shipments with the given IDs. Missing IDs
	// are silently absent from the result.
	GetByIDs(ctx context.Context, ids []string) ([]*domain.Shipment, error)

	// ListBySender retrieves all shipments owned by a sender.
	ListBySender(ctx context.Context, senderID string) ([]*domain.Shipment, error)

	// ListByBooking retrieves the shipments attached to a booking,
	// ordered by pickup order.
	ListByBooking(ctx context.Context, bookingID string) ([]*domain.Shipment, error)

	// ListByStatus retrieves shipments in the given status.
	ListByStatus(ctx context.Context, status domain.ShipmentStatus) ([]*domain.Shipment, error)

	// Update updates an existing shipment.
	Update(ctx context.Context, shipment *domain.Shipment) error

	// Delete removes a shipment.
	Delete(ctx context.Context, id string) error

	// IncrementCodeAttempts atomically increments the delivery-code
	// attempt counter and sets the delivery lock once the counter
	// reaches maxAttempts. Returns the new counter value and whether
	// this call set the lock.
	IncrementCodeAttempts(ctx context.Context, id string, maxAttempts int) (attempts int, locked bool, err error)
}
