package repository

import (
	"context"

	"shipmate/internal/domain"
)

// BookingRepository defines the persistence operations for bookings.
type BookingRepository interface {
	// Create persists a new booking.
	Create(ctx context.Context, booking *domain.Booking) error

	// GetByID retrieves a booking by ID.
	GetByID(ctx context.Context, id string) (*domain.Booking, error)

	// GetByIDForUpdate retrieves a booking by ID with a row lock.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Booking, error)

	// GetActiveByDriver retrieves the driver's most recent booking in
	// one of the given statuses. Returns nil if none exists.
	GetActiveByDriver(ctx context.Context, driverID string, statuses ...domain.BookingStatus) (*domain.Booking, error)

	// ListByDriver retrieves all bookings of a driver, newest first.
	ListByDriver(ctx context.Context, driverID string) ([]*domain.Booking, error)

	// Update updates an existing booking.
	Update(ctx context.Context, booking *domain.Booking) error
}
