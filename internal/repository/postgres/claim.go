package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"shipmate/internal/domain"
	"shipmate/internal/repository"
)

// ClaimRepository is a PostgreSQL implementation of repository.ClaimRepository.
type ClaimRepository struct {
	db Querier
}

// NewClaimRepository creates a claim repository backed by the connection pool.
func NewClaimRepository(db *sql.DB) *ClaimRepository {
	return &ClaimRepository{db: db}
}

// NewClaimRepositoryWithTx creates a claim repository scoped to a transaction.
func NewClaimRepositoryWithTx(tx *sql.Tx) *ClaimRepository {
	return &ClaimRepository{db: tx}
}

const claimColumns = `id, shipment_id, claimant_id, reason, description, status,
		declared_value_cents, coverage_amount_cents, deductible_rate,
		compensation_amount_cents, admin_user_id, admin_notes, resolved_at, created_at`

func (r *ClaimRepository) Create(ctx context.Context, c *domain.InsuranceClaim) error {
	query := `
		INSERT INTO insurance_claims (` + claimColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := r.db.ExecContext(ctx, query,
		c.ID, c.ShipmentID, c.ClaimantID, c.Reason, c.Description, c.Status,
		c.DeclaredValue, c.CoverageAmount, c.DeductibleRate,
		c.CompensationAmount, nullString(c.AdminUserID), nullString(c.AdminNotes),
		nullTime(c.ResolvedAt), c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create claim: %w", err)
	}
	return nil
}

func (r *ClaimRepository) GetByID(ctx context.Context, id string) (*domain.InsuranceClaim, error) {
	query := `SELECT ` + claimColumns + ` FROM insurance_claims WHERE id = $1`
	c, err := scanClaim(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get claim: %w", err)
	}
	return c, nil
}

func (r *ClaimRepository) GetByShipment(ctx context.Context, shipmentID string) (*domain.InsuranceClaim, error) {
	query := `SELECT ` + claimColumns + ` FROM insurance_claims WHERE shipment_id = $1`
	c, err := scanClaim(r.db.QueryRowContext(ctx, query, shipmentID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get claim by shipment: %w", err)
	}
	return c, nil
}

func (r *ClaimRepository) ListByStatus(ctx context.Context, status domain.ClaimStatus) ([]*domain.InsuranceClaim, error) {
	query := `SELECT ` + claimColumns + ` FROM insurance_claims`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	defer rows.Close()

	var claims []*domain.InsuranceClaim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("scan claim: %w", err)
		}
		claims = append(claims, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate claims: %w", err)
	}
	return claims, nil
}

func (r *ClaimRepository) Update(ctx context.Context, c *domain.InsuranceClaim) error {
	query := `
		UPDATE insurance_claims
		SET status = $2, compensation_amount_cents = $3, admin_user_id = $4,
			admin_notes = $5, resolved_at = $6
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query,
		c.ID, c.Status, c.CompensationAmount, nullString(c.AdminUserID),
		nullString(c.AdminNotes), nullTime(c.ResolvedAt),
	)
	if err != nil {
		return fmt.Errorf("update claim: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update claim rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func scanClaim(row rowScanner) (*domain.InsuranceClaim, error) {
	var c domain.InsuranceClaim
	var adminUserID, adminNotes sql.NullString
	var resolvedAt sql.NullTime
	err := row.Scan(
		&c.ID, &c.ShipmentID, &c.ClaimantID, &c.Reason, &c.Description, &c.Status,
		&c.DeclaredValue, &c.CoverageAmount, &c.DeductibleRate,
		&c.CompensationAmount, &adminUserID, &adminNotes, &resolvedAt, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.AdminUserID = adminUserID.String
	c.AdminNotes = adminNotes.String
	c.ResolvedAt = resolvedAt.Time
	return &c, nil
}
