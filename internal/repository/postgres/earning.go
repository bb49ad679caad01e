package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"shipmate/internal/domain"
	"shipmate/internal/repository"
)

// EarningRepository is a PostgreSQL implementation of repository.EarningRepository.
// The driver_earnings table has UNIQUE (payment_id, earning_type).
type EarningRepository struct {
	db Querier
}

// NewEarningRepository creates an earning repository backed by the connection pool.
func NewEarningRepository(db *sql.DB) *EarningRepository {
	return &EarningRepository{db: db}
}

// NewEarningRepositoryWithTx creates an earning repository scoped to a transaction.
func NewEarningRepositoryWithTx(tx *sql.Tx) *EarningRepository {
	return &EarningRepository{db: tx}
}

const earningColumns = `id, driver_id, shipment_id, payment_id, earning_type,
		gross_amount_cents, commission_amount_cents, net_amount_cents, payout_status, created_at`

// CreateIfAbsent races on the (payment_id, earning_type) unique
// constraint; a zero rows-affected result means another insert won.
func (r *EarningRepository) CreateIfAbsent(ctx context.Context, e *domain.DriverEarning) (bool, error) {
	query := `
		INSERT INTO driver_earnings (` + earningColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (payment_id, earning_type) DO NOTHING`

	result, err := r.db.ExecContext(ctx, query,
		e.ID, e.DriverID, e.ShipmentID, e.PaymentID, e.EarningType,
		e.GrossAmount, e.CommissionAmount, e.NetAmount, e.PayoutStatus, e.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("create earning: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("create earning rows affected: %w", err)
	}
	return rows > 0, nil
}

func (r *EarningRepository) GetByID(ctx context.Context, id string) (*domain.DriverEarning, error) {
	query := `SELECT ` + earningColumns + ` FROM driver_earnings WHERE id = $1`
	e, err := scanEarning(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get earning: %w", err)
	}
	return e, nil
}

func (r *EarningRepository) GetByPaymentAndType(ctx context.Context, paymentID string, earningType domain.EarningType) (*domain.DriverEarning, error) {
	query := `SELECT ` + earningColumns + ` FROM driver_earnings WHERE payment_id = $1 AND earning_type = $2`
	e, err := scanEarning(r.db.QueryRowContext(ctx, query, paymentID, earningType))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get earning by payment: %w", err)
	}
	return e, nil
}

func (r *EarningRepository) ListByDriver(ctx context.Context, driverID string) ([]*domain.DriverEarning, error) {
	query := `SELECT ` + earningColumns + ` FROM driver_earnings WHERE driver_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, driverID)
	if err != nil {
		return nil, fmt.Errorf("list earnings by driver: %w", err)
	}
	defer rows.Close()

	var earnings []*domain.DriverEarning
	for rows.Next() {
		e, err := scanEarning(rows)
		if err != nil {
			return nil, fmt.Errorf("scan earning: %w", err)
		}
		earnings = append(earnings, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate earnings: %w", err)
	}
	return earnings, nil
}

func (r *EarningRepository) UpdatePayoutStatus(ctx context.Context, id string, status domain.PayoutStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE driver_earnings SET payout_status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update payout status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update payout status rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *EarningRepository) SummaryByDriver(ctx context.Context, driverID string) (*domain.EarningsSummary, error) {
	query := `
		SELECT
			COALESCE(SUM(gross_amount_cents), 0),
			COALESCE(SUM(commission_amount_cents), 0),
			COALESCE(SUM(net_amount_cents), 0),
			COALESCE(SUM(net_amount_cents) FILTER (WHERE payout_status = $2), 0),
			COALESCE(SUM(net_amount_cents) FILTER (WHERE payout_status = $3), 0)
		FROM driver_earnings
		WHERE driver_id = $1`

	var s domain.EarningsSummary
	err := r.db.QueryRowContext(ctx, query, driverID, domain.PayoutStatusPending, domain.PayoutStatusPaid).
		Scan(&s.TotalGross, &s.TotalCommission, &s.TotalNet, &s.TotalPending, &s.TotalPaid)
	if err != nil {
		return nil, fmt.Errorf("summarize earnings: %w", err)
	}
	return &s, nil
}

func scanEarning(row rowScanner) (*domain.DriverEarning, error) {
	var e domain.DriverEarning
	err := row.Scan(
		&e.ID, &e.DriverID, &e.ShipmentID, &e.PaymentID, &e.EarningType,
		&e.GrossAmount, &e.CommissionAmount, &e.NetAmount, &e.PayoutStatus, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
