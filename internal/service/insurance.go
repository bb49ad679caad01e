package service

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"shipmate/internal/config"
	"shipmate/internal/domain"
	"shipmate/internal/repository"
)

// InsuranceService handles compensation claims against insured shipments.
type InsuranceService struct {
	uow       repository.UnitOfWork
	gateway   PaymentGateway
	publisher EventPublisher
	policy    config.InsuranceConfig
	log       *logrus.Logger
}

// NewInsuranceService creates a new InsuranceService.
func NewInsuranceService(
	uow repository.UnitOfWork,
	gateway PaymentGateway,
	publisher EventPublisher,
	policy config.InsuranceConfig,
	log *logrus.Logger,
) *InsuranceService {
	return &InsuranceService{
		uow:       uow,
		gateway:   gateway,
		publisher: publisher,
		policy:    policy,
		log:       log,
	}
}

// FileClaimRequest contains the parameters for filing a claim.
type FileClaimRequest struct {
	ShipmentID  string
	ClaimantID  string
	Reason      domain.ClaimReason
	Description string
}

// FileClaim opens a claim against an insured shipment. The reason has
// to match the parcel's fate: LOST covers a parcel the driver cannot
// produce, whether already written off or still nominally in transit;
// DAMAGED and OTHER require the parcel to have arrived. The coverage
// terms are copied from the shipment so later policy changes never
// affect an open claim. One claim per shipment.
func (s *InsuranceService) FileClaim(ctx context.Context, req FileClaimRequest) (*domain.InsuranceClaim, error) {
	if req.ShipmentID == "" {
		return nil, ErrInvalidShipmentID
	}
	if req.ClaimantID == "" {
		return nil, ErrInvalidSenderID
	}
	switch req.Reason {
	case domain.ClaimReasonLost, domain.ClaimReasonDamaged, domain.ClaimReasonOther:
	default:
		return nil, ErrInvalidClaimReason
	}

	var claim *domain.InsuranceClaim

	err := s.uow.WithinTx(ctx, func(store repository.Store) error {
		shipment, err := store.Shipments().GetByIDForUpdate(ctx, req.ShipmentID)
		if err != nil {
			return err
		}
		if shipment.SenderID != req.ClaimantID {
			return ErrNotShipmentOwner
		}
		if !shipment.Insurance.Selected {
			return ErrShipmentNotInsured
		}
		var claimable bool
		switch req.Reason {
		case domain.ClaimReasonLost:
			claimable = shipment.Status == domain.ShipmentStatusInTransit ||
				shipment.Status == domain.ShipmentStatusLost
		default:
			claimable = shipment.Status == domain.ShipmentStatusDelivered
		}
		if !claimable {
			return ErrShipmentNotClaimable
		}

		windowStart := shipment.UpdatedAt
		if shipment.Status == domain.ShipmentStatusDelivered && !shipment.DeliveredAt.IsZero() {
			windowStart = shipment.DeliveredAt
		}
		if time.Since(windowStart) > s.policy.ClaimWindow {
			return ErrClaimWindowClosed
		}

		existing, err := store.Claims().GetByShipment(ctx, req.ShipmentID)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrClaimAlreadyExists
		}

		claim = &domain.InsuranceClaim{
			ID:             uuid.New().String(),
			ShipmentID:     shipment.ID,
			ClaimantID:     req.ClaimantID,
			Reason:         req.Reason,
			Description:    req.Description,
			Status:         domain.ClaimStatusSubmitted,
			DeclaredValue:  shipment.Insurance.DeclaredValue,
			CoverageAmount: shipment.Insurance.CoverageAmount,
			DeductibleRate: shipment.Insurance.DeductibleRate,
			CreatedAt:      time.Now(),
		}
		return store.Claims().Create(ctx, claim)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"claim_id":    claim.ID,
		"shipment_id": claim.ShipmentID,
		"reason":      claim.Reason,
	}).Info("insurance claim filed")

	return claim, nil
}

// GetClaim retrieves a claim for its claimant.
func (s *InsuranceService) GetClaim(ctx context.Context, claimID, claimantID string) (*domain.InsuranceClaim, error) {
	if claimID == "" {
		return nil, ErrInvalidShipmentID
	}
	claim, err := s.uow.Store().Claims().GetByID(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if claim.ClaimantID != claimantID {
		return nil, ErrNotShipmentOwner
	}
	return claim, nil
}

// ListOpenClaims retrieves submitted and in-review claims for admins.
func (s *InsuranceService) ListOpenClaims(ctx context.Context) ([]*domain.InsuranceClaim, error) {
	store := s.uow.Store()
	submitted, err := store.Claims().ListByStatus(ctx, domain.ClaimStatusSubmitted)
	if err != nil {
		return nil, err
	}
	inReview, err := store.Claims().ListByStatus(ctx, domain.ClaimStatusUnderReview)
	if err != nil {
		return nil, err
	}
	return append(submitted, inReview...), nil
}

// StartReview moves a submitted claim into review.
func (s *InsuranceService) StartReview(ctx context.Context, claimID, adminID string) (*domain.InsuranceClaim, error) {
	var claim *domain.InsuranceClaim
	err := s.uow.WithinTx(ctx, func(store repository.Store) error {
		var err error
		claim, err = store.Claims().GetByID(ctx, claimID)
		if err != nil {
			return err
		}
		if claim.Status != domain.ClaimStatusSubmitted {
			return ErrClaimNotOpen
		}
		claim.Status = domain.ClaimStatusUnderReview
		claim.AdminUserID = adminID
		return store.Claims().Update(ctx, claim)
	})
	if err != nil {
		return nil, err
	}
	return claim, nil
}

// ResolveClaimRequest contains the parameters for resolving a claim.
type ResolveClaimRequest struct {
	ClaimID string
	AdminID string
	Approve bool
	Notes   string
}

// ResolveClaim approves or rejects an open claim. Approval pays out the
// declared value capped at the coverage amount, minus the deductible,
// never below zero. Approving a LOST claim also writes off the shipment:
// it moves to LOST and the sender's payment is unwound, voiding an
// authorized hold or requesting a provider refund for a captured one.
func (s *InsuranceService) ResolveClaim(ctx context.Context, req ResolveClaimRequest) (*domain.InsuranceClaim, error) {
	var (
		claim *domain.InsuranceClaim
		buf   eventBuffer
		after func()
	)

	err := s.uow.WithinTx(ctx, func(store repository.Store) error {
		var err error
		claim, err = store.Claims().GetByID(ctx, req.ClaimID)
		if err != nil {
			return err
		}
		if claim.Status != domain.ClaimStatusSubmitted && claim.Status != domain.ClaimStatusUnderReview {
			return ErrClaimNotOpen
		}

		if req.Approve {
			claim.Status = domain.ClaimStatusApproved
			claim.CompensationAmount = compensationFor(claim)
			if claim.Reason == domain.ClaimReasonLost {
				after, err = s.writeOffShipment(ctx, store, claim.ShipmentID, &buf)
				if err != nil {
					return err
				}
			}
		} else {
			claim.Status = domain.ClaimStatusRejected
			claim.CompensationAmount = 0
		}
		claim.AdminUserID = req.AdminID
		claim.AdminNotes = req.Notes
		claim.ResolvedAt = time.Now()
		return store.Claims().Update(ctx, claim)
	})
	if err != nil {
		return nil, err
	}

	if after != nil {
		after()
	}
	buf.drain(ctx, s.publisher)

	s.log.WithFields(logrus.Fields{
		"claim_id":     claim.ID,
		"status":       claim.Status,
		"compensation": claim.CompensationAmount,
	}).Info("insurance claim resolved")

	return claim, nil
}

// writeOffShipment moves a shipment to LOST inside the caller's
// transaction and returns the post-commit provider call, if any. Only
// in-transit shipments can be written off; a parcel that reached any
// other terminal state after the claim was filed fails the resolution.
func (s *InsuranceService) writeOffShipment(ctx context.Context, store repository.Store, shipmentID string, buf *eventBuffer) (func(), error) {
	shipment, err := store.Shipments().GetByIDForUpdate(ctx, shipmentID)
	if err != nil {
		return nil, err
	}
	if shipment.Status == domain.ShipmentStatusLost {
		return nil, nil
	}
	if shipment.Status != domain.ShipmentStatusInTransit {
		return nil, ErrShipmentNotClaimable
	}

	shipment.Status = domain.ShipmentStatusLost
	shipment.UpdatedAt = time.Now()
	if err := store.Shipments().Update(ctx, shipment); err != nil {
		return nil, err
	}
	buf.add(domain.ShipmentStatusChanged{ShipmentID: shipment.ID, Status: shipment.Status})

	if shipment.BookingID != "" {
		if err := recalculateBooking(ctx, store, shipment.BookingID, buf); err != nil {
			return nil, err
		}
	}

	payment, err := store.Payments().GetByShipmentForUpdate(ctx, shipmentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, nil
	}

	switch payment.Status {
	case domain.PaymentStatusAuthorized:
		payment.Status = domain.PaymentStatusCancelled
		payment.UpdatedAt = time.Now()
		if err := store.Payments().Update(ctx, payment); err != nil {
			return nil, err
		}
		intentID := payment.IntentID
		return func() {
			if err := s.gateway.CancelIntent(ctx, intentID); err != nil {
				s.log.WithError(err).WithField("intent_id", intentID).
					Error("cancel intent request failed")
			}
		}, nil
	case domain.PaymentStatusCaptured:
		// Stays CAPTURED until the provider confirms; the refund webhook
		// posts the negating ledger line.
		intentID := payment.IntentID
		return func() {
			if err := s.gateway.RefundIntent(ctx, intentID); err != nil {
				s.log.WithError(err).WithField("intent_id", intentID).
					Error("refund request failed")
			}
		}, nil
	}
	return nil, nil
}

func compensationFor(claim *domain.InsuranceClaim) int64 {
	covered := claim.DeclaredValue
	if covered > claim.CoverageAmount {
		covered = claim.CoverageAmount
	}
	deductible := int64(math.Round(float64(claim.DeclaredValue) * claim.DeductibleRate))
	compensation := covered - deductible
	if compensation < 0 {
		compensation = 0
	}
	return compensation
}
