package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"shipmate/internal/domain"
	"shipmate/internal/repository"
)

// ShipmentRepository is a PostgreSQL implementation of repository.ShipmentRepository.
type ShipmentRepository struct {
	db Querier
}

// NewShipmentRepository creates a shipment repository backed by the connection pool.
func NewShipmentRepository(db *sql.DB) *ShipmentRepository {
	return &ShipmentRepository{db: db}
}

// NewShipmentRepositoryWithTx creates a shipment repository scoped to a transaction.
func NewShipmentRepositoryWithTx(tx *sql.Tx) *ShipmentRepository {
	return &ShipmentRepository{db: tx}
}

const shipmentColumns = `id, sender_id, booking_id, status,
		pickup_address, pickup_lat, pickup_lng,
		delivery_address, delivery_lat, delivery_lng,
		package_description, package_weight_kg, package_value_cents, base_price_cents,
		insurance_selected, declared_value_cents, insurance_fee_cents,
		coverage_amount_cents, deductible_rate,
		pickup_order, delivery_order,
		delivery_code_hash, delivery_code_salt, delivery_code_enc, delivery_code_iv,
		delivery_code_created_at, delivery_code_verified_at, delivery_code_attempts,
		delivery_locked, delivered_at, created_at, updated_at`

func (r *ShipmentRepository) Create(ctx context.Context, s *domain.Shipment) error {
	query := `
		INSERT INTO shipments (` + shipmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32)`

	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.SenderID, nullString(s.BookingID), s.Status,
		s.PickupAddress, s.PickupLat, s.PickupLng,
		s.DeliveryAddress, s.DeliveryLat, s.DeliveryLng,
		s.PackageDescription, s.PackageWeightKg, s.PackageValue, s.BasePrice,
		s.Insurance.Selected, s.Insurance.DeclaredValue, s.Insurance.Fee,
		s.Insurance.CoverageAmount, s.Insurance.DeductibleRate,
		s.PickupOrder, s.DeliveryOrder,
		nullString(s.Code.Hash), nullString(s.Code.Salt), nullString(s.Code.Enc), nullString(s.Code.IV),
		nullTime(s.Code.CreatedAt), nullTime(s.Code.VerifiedAt), s.Code.Attempts,
		s.DeliveryLocked, nullTime(s.DeliveredAt), s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create shipment: %w", err)
	}
	return nil
}

func (r *ShipmentRepository) GetByID(ctx context.Context, id string) (*domain.Shipment, error) {
	query := `SELECT ` + shipmentColumns + ` FROM shipments WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *ShipmentRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Shipment, error) {
	query := `SELECT ` + shipmentColumns + ` FROM shipments WHERE id = $1 FOR UPDATE`
	return r.getOne(ctx, query, id)
}

func (r *ShipmentRepository) GetByIDs(ctx context.Context, ids []string) ([]*domain.Shipment, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + shipmentColumns + ` FROM shipments WHERE id = ANY($1)`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("get shipments by ids: %w", err)
	}
	defer rows.Close()
	return scanShipments(rows)
}

func (r *ShipmentRepository) ListBySender(ctx context.Context, senderID string) ([]*domain.Shipment, error) {
	query := `SELECT ` + shipmentColumns + ` FROM shipments WHERE sender_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, senderID)
	if err != nil {
		return nil, fmt.Errorf("list shipments by sender: %w", err)
	}
	defer rows.Close()
	return scanShipments(rows)
}

func (r *ShipmentRepository) ListByBooking(ctx context.Context, bookingID string) ([]*domain.Shipment, error) {
	query := `SELECT ` + shipmentColumns + ` FROM shipments WHERE booking_id = $1 ORDER BY pickup_order`
	rows, err := r.db.QueryContext(ctx, query, bookingID)
	if err != nil {
		return nil, fmt.Errorf("list shipments by booking: %w", err)
	}
	defer rows.Close()
	return scanShipments(rows)
}

func (r *ShipmentRepository) ListByStatus(ctx context.Context, status domain.ShipmentStatus) ([]*domain.Shipment, error) {
	query := `SELECT ` + shipmentColumns + ` FROM shipments WHERE status = $1 ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("list shipments by status: %w", err)
	}
	defer rows.Close()
	return scanShipments(rows)
}

func (r *ShipmentRepository) Update(ctx context.Context, s *domain.Shipment) error {
	query := `
		UPDATE shipments
		SET booking_id = $2, status = $3,
			pickup_address = $4, pickup_lat = $5, pickup_lng = $6,
			delivery_address = $7, delivery_lat = $8, delivery_lng = $9,
			package_description = $10, package_weight_kg = $11,
			package_value_cents = $12, base_price_cents = $13,
			insurance_selected = $14, declared_value_cents = $15, insurance_fee_cents = $16,
			coverage_amount_cents = $17, deductible_rate = $18,
			pickup_order = $19, delivery_order = $20,
			delivery_code_hash = $21, delivery_code_salt = $22,
			delivery_code_enc = $23, delivery_code_iv = $24,
			delivery_code_created_at = $25, delivery_code_verified_at = $26,
			delivery_code_attempts = $27, delivery_locked = $28,
			delivered_at = $29, updated_at = $30
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query,
		s.ID, nullString(s.BookingID), s.Status,
		s.PickupAddress, s.PickupLat, s.PickupLng,
		s.DeliveryAddress, s.DeliveryLat, s.DeliveryLng,
		s.PackageDescription, s.PackageWeightKg,
		s.PackageValue, s.BasePrice,
		s.Insurance.Selected, s.Insurance.DeclaredValue, s.Insurance.Fee,
		s.Insurance.CoverageAmount, s.Insurance.DeductibleRate,
		s.PickupOrder, s.DeliveryOrder,
		nullString(s.Code.Hash), nullString(s.Code.Salt), nullString(s.Code.Enc), nullString(s.Code.IV),
		nullTime(s.Code.CreatedAt), nullTime(s.Code.VerifiedAt), s.Code.Attempts,
		s.DeliveryLocked, nullTime(s.DeliveredAt), s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update shipment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update shipment rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *ShipmentRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM shipments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete shipment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete shipment rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// IncrementCodeAttempts bumps the attempt counter and sets the delivery
// lock in one statement, so the update is durable regardless of what any
// surrounding verification transaction does.
func (r *ShipmentRepository) IncrementCodeAttempts(ctx context.Context, id string, maxAttempts int) (int, bool, error) {
	query := `
		UPDATE shipments
		SET delivery_code_attempts = delivery_code_attempts + 1,
			delivery_locked = delivery_locked OR (delivery_code_attempts + 1 >= $2),
			updated_at = NOW()
		WHERE id = $1
		RETURNING delivery_code_attempts, delivery_locked`

	var attempts int
	var locked bool
	err := r.db.QueryRowContext(ctx, query, id, maxAttempts).Scan(&attempts, &locked)
	if err == sql.ErrNoRows {
		return 0, false, repository.ErrNotFound
	}
	if err != nil {
		return 0, false, fmt.Errorf("increment code attempts: %w", err)
	}
	return attempts, locked, nil
}

func (r *ShipmentRepository) getOne(ctx context.Context, query string, args ...any) (*domain.Shipment, error) {
	s, err := scanShipment(r.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get shipment: %w", err)
	}
	return s, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanShipment(row rowScanner) (*domain.Shipment, error) {
	var s domain.Shipment
	var bookingID, codeHash, codeSalt, codeEnc, codeIV sql.NullString
	var codeCreatedAt, codeVerifiedAt, deliveredAt sql.NullTime

	err := row.Scan(
		&s.ID, &s.SenderID, &bookingID, &s.Status,
		&s.PickupAddress, &s.PickupLat, &s.PickupLng,
		&s.DeliveryAddress, &s.DeliveryLat, &s.DeliveryLng,
		&s.PackageDescription, &s.PackageWeightKg, &s.PackageValue, &s.BasePrice,
		&s.Insurance.Selected, &s.Insurance.DeclaredValue, &s.Insurance.Fee,
		&s.Insurance.CoverageAmount, &s.Insurance.DeductibleRate,
		&s.PickupOrder, &s.DeliveryOrder,
		&codeHash, &codeSalt, &codeEnc, &codeIV,
		&codeCreatedAt, &codeVerifiedAt, &s.Code.Attempts,
		&s.DeliveryLocked, &deliveredAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	s.BookingID = bookingID.String
	s.Code.Hash = codeHash.String
	s.Code.Salt = codeSalt.String
	s.Code.Enc = codeEnc.String
	s.Code.IV = codeIV.String
	s.Code.CreatedAt = codeCreatedAt.Time
	s.Code.VerifiedAt = codeVerifiedAt.Time
	s.DeliveredAt = deliveredAt.Time
	return &s, nil
}

func scanShipments(rows *sql.Rows) ([]*domain.Shipment, error) {
	var shipments []*domain.Shipment
	for rows.Next() {
		s, err := scanShipment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan shipment: %w", err)
		}
		shipments = append(shipments, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate shipments: %w", err)
	}
	return shipments, nil
}
