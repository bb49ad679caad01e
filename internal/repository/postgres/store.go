package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"shipmate/internal/repository"
)

// Store bundles the postgres repositories over a single Querier.
type Store struct {
	q Querier
}

// NewStore creates a store bound to the given querier.
func NewStore(q Querier) *Store {
	return &Store{q: q}
}

func (s *Store) Users() repository.UserRepository         { return &UserRepository{db: s.q} }
func (s *Store) Shipments() repository.ShipmentRepository { return &ShipmentRepository{db: s.q} }
func (s *Store) Bookings() repository.BookingRepository   { return &BookingRepository{db: s.q} }
func (s *Store) Payments() repository.PaymentRepository   { return &PaymentRepository{db: s.q} }
func (s *Store) Earnings() repository.EarningRepository   { return &EarningRepository{db: s.q} }
func (s *Store) Claims() repository.ClaimRepository       { return &ClaimRepository{db: s.q} }

// UnitOfWork implements repository.UnitOfWork over *sql.DB.
type UnitOfWork struct {
	db *sql.DB
}

// NewUnitOfWork creates a unit of work over the given database handle.
func NewUnitOfWork(db *sql.DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

// Store returns repositories bound to the root connection pool.
// Statements issued through it commit independently.
func (u *UnitOfWork) Store() repository.Store {
	return NewStore(u.db)
}

// WithinTx runs fn against one transaction. The transaction commits
// when fn returns nil and rolls back otherwise.
func (u *UnitOfWork) WithinTx(ctx context.Context, fn func(repository.Store) error) error {
	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(NewStore(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

var _ repository.Store = (*Store)(nil)
var _ repository.UnitOfWork = (*UnitOfWork)(nil)
