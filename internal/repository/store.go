package repository

import "context"

// Store bundles the repositories bound to one querier, either the root
// connection pool or a single transaction.
type Store interface {
	Users() UserRepository
	Shipments() ShipmentRepository
	Bookings() BookingRepository
	Payments() PaymentRepository
	Earnings() EarningRepository
	Claims() ClaimRepository
}

// UnitOfWork creates transaction-scoped stores. Store returns
// repositories bound to the root connection, where every statement
// commits independently; WithinTx runs fn against one transaction and
// commits only when fn returns nil.
//
// The delivery-code attempt counter relies on the distinction: it is
// incremented through the root store from inside a failing verification
// transaction, so the increment survives the surrounding rollback.
type UnitOfWork interface {
	Store() Store
	WithinTx(ctx context.Context, fn func(Store) error) error
}
