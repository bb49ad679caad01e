package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"shipmate/internal/domain"
	"shipmate/internal/repository"
)

// PaymentRepository is a PostgreSQL implementation of repository.PaymentRepository.
type PaymentRepository struct {
	db Querier
}

// NewPaymentRepository creates a payment repository backed by the connection pool.
func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// NewPaymentRepositoryWithTx creates a payment repository scoped to a transaction.
func NewPaymentRepositoryWithTx(tx *sql.Tx) *PaymentRepository {
	return &PaymentRepository{db: tx}
}

const paymentColumns = `id, shipment_id, sender_id, amount_total_cents, currency,
		status, intent_id, failure_reason, created_at, updated_at`

func (r *PaymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.ShipmentID, p.SenderID, p.AmountTotal, p.Currency,
		p.Status, nullString(p.IntentID), nullString(p.FailureReason), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	p, err := scanPayment(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return p, nil
}

func (r *PaymentRepository) GetByShipment(ctx context.Context, shipmentID string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE shipment_id = $1`
	return r.getOptional(ctx, query, shipmentID)
}

func (r *PaymentRepository) GetByShipmentForUpdate(ctx context.Context, shipmentID string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE shipment_id = $1 FOR UPDATE`
	return r.getOptional(ctx, query, shipmentID)
}

func (r *PaymentRepository) GetByIntentID(ctx context.Context, intentID string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE intent_id = $1`
	return r.getOptional(ctx, query, intentID)
}

func (r *PaymentRepository) GetByIntentIDForUpdate(ctx context.Context, intentID string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE intent_id = $1 FOR UPDATE`
	return r.getOptional(ctx, query, intentID)
}

func (r *PaymentRepository) Update(ctx context.Context, p *domain.Payment) error {
	query := `
		UPDATE payments
		SET status = $2, intent_id = $3, failure_reason = $4, updated_at = $5
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query,
		p.ID, p.Status, nullString(p.IntentID), nullString(p.FailureReason), p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update payment rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *PaymentRepository) getOptional(ctx context.Context, query string, args ...any) (*domain.Payment, error) {
	p, err := scanPayment(r.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return p, nil
}

func scanPayment(row rowScanner) (*domain.Payment, error) {
	var p domain.Payment
	var intentID, failureReason sql.NullString
	err := row.Scan(
		&p.ID, &p.ShipmentID, &p.SenderID, &p.AmountTotal, &p.Currency,
		&p.Status, &intentID, &failureReason, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.IntentID = intentID.String
	p.FailureReason = failureReason.String
	return &p, nil
}
