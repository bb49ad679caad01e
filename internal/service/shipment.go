package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"shipmate/internal/domain"
	"shipmate/internal/redis"
	"shipmate/internal/repository"
)

const shipmentLockTTL = 10 * time.Second

// ShipmentService handles the sender-facing shipment lifecycle.
type ShipmentService struct {
	uow        repository.UnitOfWork
	pricing    *PricingService
	gateway    PaymentGateway
	lockStore  redis.LockStoreInterface
	cacheStore redis.CacheStoreInterface
	publisher  EventPublisher
	log        *logrus.Logger
}

// NewShipmentService creates a new ShipmentService.
func NewShipmentService(
	uow repository.UnitOfWork,
	pricing *PricingService,
	gateway PaymentGateway,
	lockStore redis.LockStoreInterface,
	cacheStore redis.CacheStoreInterface,
	publisher EventPublisher,
	log *logrus.Logger,
) *ShipmentService {
	return &ShipmentService{
		uow:        uow,
		pricing:    pricing,
		gateway:    gateway,
		lockStore:  lockStore,
		cacheStore: cacheStore,
		publisher:  publisher,
		log:        log,
	}
}

// CreateShipmentRequest contains the parameters for creating a shipment.
type CreateShipmentRequest struct {
	SenderID           string
	PickupAddress      string
	PickupLat          float64
	PickupLng          float64
	DeliveryAddress    string
	DeliveryLat        float64
	DeliveryLng        float64
	PackageDescription string
	PackageWeightKg    float64
	PackageValue       int64
	WithInsurance      bool
	DeclaredValue      int64
}

// CreateShipment registers a new shipment in CREATED state. The base
// price and insurance premium are computed once here and snapshotted;
// later policy changes never reprice an existing shipment.
func (s *ShipmentService) CreateShipment(ctx context.Context, req CreateShipmentRequest) (*domain.Shipment, error) {
	if req.SenderID == "" {
		return nil, ErrInvalidSenderID
	}
	if req.PickupAddress == "" || req.DeliveryAddress == "" {
		return nil, ErrInvalidAddress
	}
	if !validCoords(req.PickupLat, req.PickupLng) || !validCoords(req.DeliveryLat, req.DeliveryLng) {
		return nil, ErrInvalidLocation
	}
	if req.PackageWeightKg <= 0 {
		return nil, ErrInvalidWeight
	}

	distance := DistanceKm(req.PickupLat, req.PickupLng, req.DeliveryLat, req.DeliveryLng)
	basePrice := s.pricing.QuoteBasePrice(distance, req.PackageWeightKg)

	var insurance domain.Insurance
	if req.WithInsurance {
		var err error
		insurance, err = s.pricing.QuoteInsurance(req.DeclaredValue)
		if err != nil {
			return nil, err
		}
	}

	now := time.Now()
	shipment := &domain.Shipment{
		ID:                 uuid.New().String(),
		SenderID:           req.SenderID,
		Status:             domain.ShipmentStatusCreated,
		PickupAddress:      req.PickupAddress,
		PickupLat:          req.PickupLat,
		PickupLng:          req.PickupLng,
		DeliveryAddress:    req.DeliveryAddress,
		DeliveryLat:        req.DeliveryLat,
		DeliveryLng:        req.DeliveryLng,
		PackageDescription: req.PackageDescription,
		PackageWeightKg:    req.PackageWeightKg,
		PackageValue:       req.PackageValue,
		BasePrice:          basePrice,
		Insurance:          insurance,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.uow.Store().Shipments().Create(ctx, shipment); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"shipment_id": shipment.ID,
		"sender_id":   shipment.SenderID,
		"base_price":  shipment.BasePrice,
		"insured":     shipment.Insurance.Selected,
	}).Info("shipment created")

	return shipment, nil
}

// GetShipment retrieves a shipment for its owner.
func (s *ShipmentService) GetShipment(ctx context.Context, shipmentID, senderID string) (*domain.Shipment, error) {
	if shipmentID == "" {
		return nil, ErrInvalidShipmentID
	}
	shipment, err := s.uow.Store().Shipments().GetByID(ctx, shipmentID)
	if err != nil {
		return nil, err
	}
	if shipment.SenderID != senderID {
		return nil, ErrNotShipmentOwner
	}
	return shipment, nil
}

// ListSenderShipments retrieves all shipments of a sender.
func (s *ShipmentService) ListSenderShipments(ctx context.Context, senderID string) ([]*domain.Shipment, error) {
	if senderID == "" {
		return nil, ErrInvalidSenderID
	}
	return s.uow.Store().Shipments().ListBySender(ctx, senderID)
}

// CancelShipment cancels a shipment on behalf of its sender. Any
// shipment that has not reached a terminal state can be cancelled,
// including one already on the road. Ownership is checked before state
// so a foreign actor learns nothing about the shipment's progress. The
// payment, if any, is resolved according to how far it got:
// not-yet-authorized payments cancel locally, authorized ones void the
// provider intent, captured ones request a refund and wait for the
// provider's confirmation.
func (s *ShipmentService) CancelShipment(ctx context.Context, shipmentID, senderID string) (*domain.Shipment, error) {
	if shipmentID == "" {
		return nil, ErrInvalidShipmentID
	}
	if senderID == "" {
		return nil, ErrInvalidSenderID
	}

	if s.lockStore != nil {
		locked, err := s.lockStore.AcquireShipmentLock(ctx, shipmentID, shipmentLockTTL)
		if err != nil {
			return nil, err
		}
		if !locked {
			return nil, ErrShipmentBusy
		}
		defer func() { _ = s.lockStore.ReleaseShipmentLock(ctx, shipmentID) }()
	}

	var (
		shipment *domain.Shipment
		buf      eventBuffer
		after    func()
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
		if shipment.Status.IsTerminal() {
			return ErrShipmentNotCancellable
		}

		payment, err := store.Payments().GetByShipmentForUpdate(ctx, shipmentID)
		if err != nil {
			return err
		}
		if payment != nil {
			switch payment.Status {
			case domain.PaymentStatusRequired, domain.PaymentStatusProcessing, domain.PaymentStatusFailed:
				payment.Status = domain.PaymentStatusCancelled
				payment.UpdatedAt = time.Now()
				if err := store.Payments().Update(ctx, payment); err != nil {
					return err
				}
			case domain.PaymentStatusAuthorized:
				payment.Status = domain.PaymentStatusCancelled
				payment.UpdatedAt = time.Now()
				if err := store.Payments().Update(ctx, payment); err != nil {
					return err
				}
				intentID := payment.IntentID
				after = func() {
					if err := s.gateway.CancelIntent(ctx, intentID); err != nil {
						s.log.WithError(err).WithField("intent_id", intentID).
							Error("cancel intent request failed")
					}
				}
			case domain.PaymentStatusCaptured:
				// Stay CAPTURED until the provider confirms the refund.
				intentID := payment.IntentID
				after = func() {
					if err := s.gateway.RefundIntent(ctx, intentID); err != nil {
						s.log.WithError(err).WithField("intent_id", intentID).
							Error("refund request failed")
					}
				}
			}
		}

		shipment.Status = domain.ShipmentStatusCancelled
		shipment.UpdatedAt = time.Now()
		if err := store.Shipments().Update(ctx, shipment); err != nil {
			return err
		}
		buf.add(domain.ShipmentStatusChanged{ShipmentID: shipment.ID, Status: shipment.Status})

		if shipment.BookingID != "" {
			if err := recalculateBooking(ctx, store, shipment.BookingID, &buf); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.cacheStore != nil {
		_ = s.cacheStore.InvalidateShipment(ctx, shipmentID)
	}
	if after != nil {
		after()
	}
	buf.drain(ctx, s.publisher)

	return shipment, nil
}

// MarkInTransit records a pickup: the booking driver takes custody of an
// assigned shipment.
func (s *ShipmentService) MarkInTransit(ctx context.Context, shipmentID, driverID string) (*domain.Shipment, error) {
	if shipmentID == "" {
		return nil, ErrInvalidShipmentID
	}
	if driverID == "" {
		return nil, ErrInvalidDriverID
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
		if shipment.BookingID == "" {
			return ErrShipmentNotAssigned
		}

		booking, err := store.Bookings().GetByID(ctx, shipment.BookingID)
		if err != nil {
			return err
		}
		if booking.DriverID != driverID {
			return ErrNotBookingDriver
		}
		if booking.Status != domain.BookingStatusInProgress {
			return ErrBookingNotConfirmed
		}
		if shipment.Status != domain.ShipmentStatusAssigned {
			return ErrShipmentNotAssigned
		}

		// The hold must still stand; a payment that failed or was voided
		// since the trip started blocks custody.
		payment, err := store.Payments().GetByShipment(ctx, shipmentID)
		if err != nil {
			return err
		}
		if payment == nil ||
			(payment.Status != domain.PaymentStatusAuthorized && payment.Status != domain.PaymentStatusCaptured) {
			return ErrPaymentNotSettled
		}

		shipment.Status = domain.ShipmentStatusInTransit
		shipment.UpdatedAt = time.Now()
		if err := store.Shipments().Update(ctx, shipment); err != nil {
			return err
		}
		buf.add(domain.ShipmentStatusChanged{ShipmentID: shipment.ID, Status: shipment.Status})
		return nil
	})
	if err != nil {
		return nil, err
	}

	buf.drain(ctx, s.publisher)
	return shipment, nil
}

// ReportLost records that a shipment in the driver's custody cannot be
// delivered. Insured senders can file a claim afterwards.
func (s *ShipmentService) ReportLost(ctx context.Context, shipmentID, driverID string) (*domain.Shipment, error) {
	if shipmentID == "" {
		return nil, ErrInvalidShipmentID
	}
	if driverID == "" {
		return nil, ErrInvalidDriverID
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
		if shipment.BookingID == "" {
			return ErrShipmentNotInTransit
		}

		booking, err := store.Bookings().GetByID(ctx, shipment.BookingID)
		if err != nil {
			return err
		}
		if booking.DriverID != driverID {
			return ErrNotBookingDriver
		}
		if shipment.Status != domain.ShipmentStatusInTransit {
			return ErrShipmentNotInTransit
		}

		shipment.Status = domain.ShipmentStatusLost
		shipment.UpdatedAt = time.Now()
		if err := store.Shipments().Update(ctx, shipment); err != nil {
			return err
		}
		buf.add(domain.ShipmentStatusChanged{ShipmentID: shipment.ID, Status: shipment.Status})

		return recalculateBooking(ctx, store, shipment.BookingID, &buf)
	})
	if err != nil {
		return nil, err
	}

	buf.drain(ctx, s.publisher)
	return shipment, nil
}

func validCoords(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
