package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"shipmate/internal/domain"
	"shipmate/internal/repository"
)

// EarningService maintains the append-only driver earnings ledger.
// Posting is exactly-once per (payment, type): the unique constraint in
// storage resolves races, and a lost insert race is treated as success.
type EarningService struct {
	uow     repository.UnitOfWork
	pricing *PricingService
	log     *logrus.Logger
}

// NewEarningService creates a new EarningService.
func NewEarningService(uow repository.UnitOfWork, pricing *PricingService, log *logrus.Logger) *EarningService {
	return &EarningService{uow: uow, pricing: pricing, log: log}
}

// postOriginal writes the ORIGINAL line for a captured payment inside
// the caller's transaction.
func (s *EarningService) postOriginal(ctx context.Context, store repository.Store, payment *domain.Payment, shipment *domain.Shipment, driverID string) error {
	gross := payment.AmountTotal
	commission, net := s.pricing.CommissionSplit(gross)

	earning := &domain.DriverEarning{
		ID:               uuid.New().String(),
		DriverID:         driverID,
		ShipmentID:       shipment.ID,
		PaymentID:        payment.ID,
		EarningType:      domain.EarningTypeOriginal,
		GrossAmount:      gross,
		CommissionAmount: commission,
		NetAmount:        net,
		PayoutStatus:     domain.PayoutStatusPending,
		CreatedAt:        time.Now(),
	}

	created, err := store.Earnings().CreateIfAbsent(ctx, earning)
	if err != nil {
		return err
	}
	if !created {
		s.log.WithField("payment_id", payment.ID).Info("original earning already posted")
		return nil
	}

	s.log.WithFields(logrus.Fields{
		"earning_id": earning.ID,
		"driver_id":  driverID,
		"net":        net,
	}).Info("original earning posted")
	return nil
}

// postRefund writes the REFUND line negating the ORIGINAL inside the
// caller's transaction. A refund against a payment with no ORIGINAL line
// posts nothing: the driver was never credited, so there is nothing to
// claw back.
func (s *EarningService) postRefund(ctx context.Context, store repository.Store, payment *domain.Payment) error {
	original, err := store.Earnings().GetByPaymentAndType(ctx, payment.ID, domain.EarningTypeOriginal)
	if err != nil {
		return err
	}
	if original == nil {
		s.log.WithField("payment_id", payment.ID).Info("refund without original earning, nothing to negate")
		return nil
	}

	refund := &domain.DriverEarning{
		ID:               uuid.New().String(),
		DriverID:         original.DriverID,
		ShipmentID:       original.ShipmentID,
		PaymentID:        payment.ID,
		EarningType:      domain.EarningTypeRefund,
		GrossAmount:      -original.GrossAmount,
		CommissionAmount: -original.CommissionAmount,
		NetAmount:        -original.NetAmount,
		PayoutStatus:     domain.PayoutStatusPending,
		CreatedAt:        time.Now(),
	}

	created, err := store.Earnings().CreateIfAbsent(ctx, refund)
	if err != nil {
		return err
	}
	if !created {
		s.log.WithField("payment_id", payment.ID).Info("refund earning already posted")
	}
	return nil
}

// ListDriverEarnings retrieves a driver's ledger lines.
func (s *EarningService) ListDriverEarnings(ctx context.Context, driverID string) ([]*domain.DriverEarning, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}
	return s.uow.Store().Earnings().ListByDriver(ctx, driverID)
}

// GetSummary aggregates a driver's ledger.
func (s *EarningService) GetSummary(ctx context.Context, driverID string) (*domain.EarningsSummary, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}
	return s.uow.Store().Earnings().SummaryByDriver(ctx, driverID)
}

// MarkPaid flags an ORIGINAL line as paid out. Idempotent: marking an
// already-paid line succeeds without effect. REFUND lines are never paid
// out individually, they only offset future payouts.
func (s *EarningService) MarkPaid(ctx context.Context, earningID string) (*domain.DriverEarning, error) {
	if earningID == "" {
		return nil, ErrInvalidPaymentID
	}

	store := s.uow.Store()
	earning, err := store.Earnings().GetByID(ctx, earningID)
	if err != nil {
		return nil, err
	}
	if earning.EarningType != domain.EarningTypeOriginal {
		return nil, ErrPaymentNotSettled
	}
	if earning.PayoutStatus == domain.PayoutStatusPaid {
		return earning, nil
	}

	if err := store.Earnings().UpdatePayoutStatus(ctx, earningID, domain.PayoutStatusPaid); err != nil {
		return nil, err
	}
	earning.PayoutStatus = domain.PayoutStatusPaid
	return earning, nil
}

// MarkPaidBatch flags a payout run's lines as paid. The run stops at the
// first failure; since MarkPaid is idempotent the whole batch can simply
// be retried.
func (s *EarningService) MarkPaidBatch(ctx context.Context, earningIDs []string) ([]*domain.DriverEarning, error) {
	if len(earningIDs) == 0 {
		return nil, ErrInvalidPaymentID
	}

	paid := make([]*domain.DriverEarning, 0, len(earningIDs))
	for _, id := range earningIDs {
		earning, err := s.MarkPaid(ctx, id)
		if err != nil {
			return nil, err
		}
		paid = append(paid, earning)
	}

	s.log.WithField("count", len(paid)).Info("payout batch marked paid")
	return paid, nil
}
