package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"shipmate/internal/domain"
	"shipmate/internal/redis"
	"shipmate/internal/repository"
)

// DeliveryService handles the delivery-code handoff: issuing the code to
// the sender, verifying it at the door and administering the lockout.
type DeliveryService struct {
	uow         repository.UnitOfWork
	vault       *CodeVault
	payments    *PaymentService
	lockStore   redis.LockStoreInterface
	publisher   EventPublisher
	maxAttempts int
	log         *logrus.Logger
}

// NewDeliveryService creates a new DeliveryService.
func NewDeliveryService(
	uow repository.UnitOfWork,
	vault *CodeVault,
	payments *PaymentService,
	lockStore redis.LockStoreInterface,
	publisher EventPublisher,
	maxAttempts int,
	log *logrus.Logger,
) *DeliveryService {
	return &DeliveryService{
		uow:         uow,
		vault:       vault,
		payments:    payments,
		lockStore:   lockStore,
		publisher:   publisher,
		maxAttempts: maxAttempts,
		log:         log,
	}
}

// VerifyCodeRequest contains the parameters for verifying a delivery code.
type VerifyCodeRequest struct {
	ShipmentID string
	DriverID   string
	Code       string
}

// VerifyCode checks the code the recipient read out to the driver. On a
// match the shipment is delivered and capture of the payment hold is
// requested. On a mismatch the attempt counter is incremented with a
// single autocommitted statement, outside any transaction, so a failed
// attempt is durable no matter what the caller does next. Format errors
// are rejected before any state is touched and do not consume attempts.
func (s *DeliveryService) VerifyCode(ctx context.Context, req VerifyCodeRequest) (*domain.Shipment, error) {
	if req.ShipmentID == "" {
		return nil, ErrInvalidShipmentID
	}
	if req.DriverID == "" {
		return nil, ErrInvalidDriverID
	}
	if !ValidFormat(req.Code) {
		return nil, ErrInvalidCodeFormat
	}

	if s.lockStore != nil {
		locked, err := s.lockStore.AcquireShipmentLock(ctx, req.ShipmentID, shipmentLockTTL)
		if err != nil {
			return nil, err
		}
		if !locked {
			return nil, ErrShipmentBusy
		}
		defer func() { _ = s.lockStore.ReleaseShipmentLock(ctx, req.ShipmentID) }()
	}

	root := s.uow.Store()
	shipment, err := root.Shipments().GetByID(ctx, req.ShipmentID)
	if err != nil {
		return nil, err
	}
	if shipment.BookingID == "" {
		return nil, ErrShipmentNotInTransit
	}

	booking, err := root.Bookings().GetByID(ctx, shipment.BookingID)
	if err != nil {
		return nil, err
	}
	if booking.DriverID != req.DriverID {
		return nil, ErrNotBookingDriver
	}
	if shipment.Status != domain.ShipmentStatusInTransit {
		return nil, ErrShipmentNotInTransit
	}
	if shipment.DeliveryLocked {
		return nil, ErrDeliveryLocked
	}
	if !shipment.Code.Issued() {
		return nil, ErrCodeNotIssued
	}
	if shipment.Code.Verified() {
		return nil, ErrCodeAlreadyVerified
	}
	if s.vault.Expired(shipment.Code, time.Now()) {
		return nil, ErrCodeExpired
	}

	if !s.vault.Matches(shipment.Code, req.Code) {
		attempts, lockedNow, incErr := root.Shipments().
			IncrementCodeAttempts(ctx, req.ShipmentID, s.maxAttempts)
		if incErr != nil {
			return nil, incErr
		}
		s.log.WithFields(logrus.Fields{
			"shipment_id": req.ShipmentID,
			"attempts":    attempts,
		}).Warn("delivery code mismatch")
		if lockedNow {
			s.publisher.Publish(ctx, domain.DeliveryLocked{
				ShipmentID: shipment.ID,
				BookingID:  shipment.BookingID,
				SenderID:   shipment.SenderID,
				DriverID:   booking.DriverID,
			})
		}
		return nil, ErrCodeMismatch
	}

	var buf eventBuffer
	err = s.uow.WithinTx(ctx, func(store repository.Store) error {
		var err error
		shipment, err = store.Shipments().GetByIDForUpdate(ctx, req.ShipmentID)
		if err != nil {
			return err
		}
		// Re-check under the row lock; the pre-checks ran unlocked.
		if shipment.Status != domain.ShipmentStatusInTransit {
			return ErrShipmentNotInTransit
		}
		if shipment.DeliveryLocked {
			return ErrDeliveryLocked
		}
		if shipment.Code.Verified() {
			return ErrCodeAlreadyVerified
		}

		now := time.Now()
		shipment.Code.VerifiedAt = now
		shipment.Status = domain.ShipmentStatusDelivered
		shipment.DeliveredAt = now
		shipment.UpdatedAt = now
		if err := store.Shipments().Update(ctx, shipment); err != nil {
			return err
		}
		buf.add(domain.ShipmentStatusChanged{ShipmentID: shipment.ID, Status: shipment.Status})

		return recalculateBooking(ctx, store, shipment.BookingID, &buf)
	})
	if err != nil {
		return nil, err
	}

	// The hold is settled only after the delivery has committed.
	s.payments.RequestCapture(ctx, req.ShipmentID)
	buf.drain(ctx, s.publisher)
	return shipment, nil
}

// PeekCode redisplays the delivery code and its expiry to the sender,
// decrypting the recovery copy. Ownership is checked before any state.
func (s *DeliveryService) PeekCode(ctx context.Context, shipmentID, senderID string) (string, time.Time, error) {
	if shipmentID == "" {
		return "", time.Time{}, ErrInvalidShipmentID
	}
	if senderID == "" {
		return "", time.Time{}, ErrInvalidSenderID
	}

	shipment, err := s.uow.Store().Shipments().GetByID(ctx, shipmentID)
	if err != nil {
		return "", time.Time{}, err
	}
	if shipment.SenderID != senderID {
		return "", time.Time{}, ErrNotShipmentOwner
	}
	if !shipment.Code.Issued() {
		return "", time.Time{}, ErrCodeNotIssued
	}
	if shipment.Code.Verified() {
		return "", time.Time{}, ErrCodeAlreadyVerified
	}
	if s.vault.Expired(shipment.Code, time.Now()) {
		return "", time.Time{}, ErrCodeExpired
	}

	code, err := s.vault.Decrypt(shipment.Code)
	if err != nil {
		return "", time.Time{}, err
	}
	return code, s.vault.ExpiresAt(shipment.Code), nil
}

// ResetCode discards the current code at the sender's request and
// issues a fresh one. Only possible while the shipment is still moving,
// the payment hold stands and the old code was never consumed; a locked
// shipment needs an admin unlock instead.
func (s *DeliveryService) ResetCode(ctx context.Context, shipmentID, senderID string) (*domain.Shipment, error) {
	if shipmentID == "" {
		return nil, ErrInvalidShipmentID
	}
	if senderID == "" {
		return nil, ErrInvalidSenderID
	}

	var (
		shipment *domain.Shipment
		buf      eventBuffer
	)

	err := s.uow.WithinTx(ctx, func(store repository.Store) error {
		var err error
		shipment, err = store.Shipments().GetByIDForUpdate(ctx, shipmentID)
		if err != nil {
			return err
		}
		if shipment.SenderID != senderID {
			return ErrNotShipmentOwner
		}
		if shipment.Status != domain.ShipmentStatusAssigned && shipment.Status != domain.ShipmentStatusInTransit {
			return ErrShipmentNotInTransit
		}
		if shipment.DeliveryLocked {
			return ErrDeliveryLocked
		}
		if !shipment.Code.Issued() {
			return ErrCodeNotIssued
		}
		if shipment.Code.Verified() {
			return ErrCodeAlreadyVerified
		}

		payment, err := store.Payments().GetByShipment(ctx, shipmentID)
		if err != nil {
			return err
		}
		if payment == nil || payment.Status != domain.PaymentStatusAuthorized {
			return ErrPaymentNotSettled
		}

		now := time.Now()
		code, stored, err := s.vault.Generate(now)
		if err != nil {
			return err
		}
		shipment.Code = stored
		shipment.UpdatedAt = now
		if err := store.Shipments().Update(ctx, shipment); err != nil {
			return err
		}

		buf.add(domain.DeliveryCodeIssued{
			ShipmentID: shipment.ID,
			SenderID:   shipment.SenderID,
			Code:       code,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithField("shipment_id", shipmentID).Info("delivery code reset")

	buf.drain(ctx, s.publisher)
	return shipment, nil
}

// Unlock clears a delivery lockout. The old code may have been guessed
// at, so a fresh one is issued and sent to the sender.
func (s *DeliveryService) Unlock(ctx context.Context, shipmentID, adminID string) (*domain.Shipment, error) {
	if shipmentID == "" {
		return nil, ErrInvalidShipmentID
	}

	var (
		shipment *domain.Shipment
		buf      eventBuffer
	)

	err := s.uow.WithinTx(ctx, func(store repository.Store) error {
		var err error
		shipment, err = store.Shipments().GetByIDForUpdate(ctx, shipmentID)
		if err != nil {
			return err
		}
		if !shipment.DeliveryLocked {
			return ErrDeliveryNotLocked
		}

		var driverID string
		if shipment.BookingID != "" {
			booking, err := store.Bookings().GetByID(ctx, shipment.BookingID)
			if err != nil {
				return err
			}
			driverID = booking.DriverID
		}

		now := time.Now()
		code, stored, err := s.vault.Generate(now)
		if err != nil {
			return err
		}
		shipment.Code = stored
		shipment.DeliveryLocked = false
		shipment.UpdatedAt = now
		if err := store.Shipments().Update(ctx, shipment); err != nil {
			return err
		}

		buf.add(domain.DeliveryUnlocked{
			ShipmentID: shipment.ID,
			SenderID:   shipment.SenderID,
			DriverID:   driverID,
		})
		buf.add(domain.DeliveryCodeIssued{
			ShipmentID: shipment.ID,
			SenderID:   shipment.SenderID,
			Code:       code,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"shipment_id": shipmentID,
		"admin_id":    adminID,
	}).Info("delivery lockout cleared")

	buf.drain(ctx, s.publisher)
	return shipment, nil
}
