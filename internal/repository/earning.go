package repository

import (
	"context"

	"shipmate/internal/domain"
)

// EarningRepository defines the persistence operations for the driver
// earnings ledger. The table carries a unique constraint on
// (payment_id, earning_type) so duplicate posting attempts lose the
// race at the storage layer.
type EarningRepository interface {
	// CreateIfAbsent inserts a ledger line unless one already exists for
	// the same (payment, earning type). Reports whether the line was
	// created by this call.
	CreateIfAbsent(ctx context.Context, earning *domain.DriverEarning) (bool, error)

	// GetByID retrieves a ledger line by ID.
	GetByID(ctx context.Context, id string) (*domain.DriverEarning, error)

	// GetByPaymentAndType retrieves the line for a payment and earning
	// type. Returns nil if none exists.
	GetByPaymentAndType(ctx context.Context, paymentID string, earningType domain.EarningType) (*domain.DriverEarning, error)

	// ListByDriver retrieves a driver's ledger lines, newest first.
	ListByDriver(ctx context.Context, driverID string) ([]*domain.DriverEarning, error)

	// UpdatePayoutStatus updates the payout status of a line.
	UpdatePayoutStatus(ctx context.Context, id string, status domain.PayoutStatus) error

	// SummaryByDriver aggregates a driver's ledger.
	SummaryByDriver(ctx context.Context, driverID string) (*domain.EarningsSummary, error)
}
