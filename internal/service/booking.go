package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"shipmate/internal/config"
	"shipmate/internal/domain"
	"shipmate/internal/redis"
	"shipmate/internal/repository"
)

const bookingLockTTL = 30 * time.Second

// BookingService handles the driver-facing booking lifecycle.
type BookingService struct {
	uow           repository.UnitOfWork
	pricing       *PricingService
	gateway       PaymentGateway
	locationStore redis.LocationStoreInterface
	lockStore     redis.LockStoreInterface
	publisher     EventPublisher
	policy        config.BookingConfig
	log           *logrus.Logger
}

// NewBookingService creates a new BookingService.
func NewBookingService(
	uow repository.UnitOfWork,
	pricing *PricingService,
	gateway PaymentGateway,
	locationStore redis.LocationStoreInterface,
	lockStore redis.LockStoreInterface,
	publisher EventPublisher,
	policy config.BookingConfig,
	log *logrus.Logger,
) *BookingService {
	return &BookingService{
		uow:           uow,
		pricing:       pricing,
		gateway:       gateway,
		locationStore: locationStore,
		lockStore:     lockStore,
		publisher:     publisher,
		policy:        policy,
		log:           log,
	}
}

// CreateBookingRequest contains the parameters for creating a booking.
type CreateBookingRequest struct {
	DriverID    string
	ShipmentIDs []string
}

// CreateBooking atomically claims a set of open shipments for a driver.
// Shipments are locked row by row inside one transaction, so when two
// drivers race for the same shipment exactly one booking succeeds. The
// booking price fields are snapshots of the shipments' prices at claim
// time.
func (s *BookingService) CreateBooking(ctx context.Context, req CreateBookingRequest) (*domain.Booking, error) {
	if req.DriverID == "" {
		return nil, ErrInvalidDriverID
	}
	if len(req.ShipmentIDs) == 0 {
		return nil, ErrNoShipmentsSelected
	}
	if len(req.ShipmentIDs) > s.policy.MaxShipments {
		return nil, ErrTooManyShipments
	}

	active, err := s.uow.Store().Bookings().GetActiveByDriver(ctx, req.DriverID,
		domain.BookingStatusPending, domain.BookingStatusConfirmed, domain.BookingStatusInProgress)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, ErrDriverHasActiveBooking
	}

	driverLoc, lastSeen, err := s.locationStore.GetLocation(ctx, req.DriverID)
	if err != nil {
		return nil, err
	}
	if driverLoc == nil || time.Since(lastSeen) > s.policy.LocationMaxAge {
		return nil, ErrStaleDriverLocation
	}

	var (
		booking *domain.Booking
		buf     eventBuffer
	)

	err = s.uow.WithinTx(ctx, func(store repository.Store) error {
		now := time.Now()
		booking = &domain.Booking{
			ID:        uuid.New().String(),
			DriverID:  req.DriverID,
			Status:    domain.BookingStatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		}

		var totalPrice int64
		var routeKm float64
		prevLat, prevLng := driverLoc.Lat, driverLoc.Lng

		for i, shipmentID := range req.ShipmentIDs {
			shipment, err := store.Shipments().GetByIDForUpdate(ctx, shipmentID)
			if err != nil {
				return err
			}
			if shipment.Status != domain.ShipmentStatusCreated || shipment.BookingID != "" {
				return ErrShipmentNotAvailable
			}

			pickupDist := DistanceKm(driverLoc.Lat, driverLoc.Lng, shipment.PickupLat, shipment.PickupLng)
			if pickupDist > s.policy.PickupRadiusKm {
				return ErrPickupTooFar
			}

			routeKm += DistanceKm(prevLat, prevLng, shipment.PickupLat, shipment.PickupLng)
			routeKm += DistanceKm(shipment.PickupLat, shipment.PickupLng, shipment.DeliveryLat, shipment.DeliveryLng)
			prevLat, prevLng = shipment.DeliveryLat, shipment.DeliveryLng

			shipment.Status = domain.ShipmentStatusAssigned
			shipment.BookingID = booking.ID
			shipment.PickupOrder = i + 1
			shipment.DeliveryOrder = i + 1
			shipment.UpdatedAt = now
			if err := store.Shipments().Update(ctx, shipment); err != nil {
				return err
			}

			totalPrice += s.pricing.ShipmentTotal(shipment)
			buf.add(domain.ShipmentStatusChanged{ShipmentID: shipment.ID, Status: shipment.Status})
		}

		if routeKm > s.policy.TripDistanceCapKm {
			return ErrTripTooLong
		}

		commission, net := s.pricing.CommissionSplit(totalPrice)
		booking.TotalPrice = totalPrice
		booking.PlatformCommission = commission
		booking.DriverEarnings = net

		if err := store.Bookings().Create(ctx, booking); err != nil {
			return err
		}
		buf.add(domain.BookingStatusChanged{BookingID: booking.ID, Status: booking.Status, ActorID: req.DriverID})
		return nil
	})
	if err != nil {
		return nil, err
	}

	buf.drain(ctx, s.publisher)

	s.log.WithFields(logrus.Fields{
		"booking_id":  booking.ID,
		"driver_id":   booking.DriverID,
		"shipments":   len(req.ShipmentIDs),
		"total_price": booking.TotalPrice,
	}).Info("booking created")

	return booking, nil
}

// ConfirmBooking locks the driver in and opens a payment in REQUIRED
// state for every attached shipment. Senders are notified that payment
// is due only after the confirmation has committed.
func (s *BookingService) ConfirmBooking(ctx context.Context, bookingID, driverID string) (*domain.Booking, error) {
	if bookingID == "" {
		return nil, ErrInvalidBookingID
	}
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	if s.lockStore != nil {
		locked, err := s.lockStore.AcquireBookingLock(ctx, bookingID, bookingLockTTL)
		if err != nil {
			return nil, err
		}
		if !locked {
			return nil, ErrBookingBusy
		}
		defer func() { _ = s.lockStore.ReleaseBookingLock(ctx, bookingID) }()
	}

	var (
		booking *domain.Booking
		buf     eventBuffer
	)

	err := s.uow.WithinTx(ctx, func(store repository.Store) error {
		var err error
		booking, err = store.Bookings().GetByIDForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if booking.DriverID != driverID {
			return ErrNotBookingDriver
		}
		if booking.Status != domain.BookingStatusPending {
			return ErrBookingNotPending
		}

		shipments, err := store.Shipments().ListByBooking(ctx, bookingID)
		if err != nil {
			return err
		}

		now := time.Now()
		for _, shipment := range shipments {
			if shipment.Status != domain.ShipmentStatusAssigned {
				continue
			}
			existing, err := store.Payments().GetByShipment(ctx, shipment.ID)
			if err != nil {
				return err
			}
			if existing != nil {
				continue
			}

			amount := s.pricing.ShipmentTotal(shipment)
			payment := &domain.Payment{
				ID:          uuid.New().String(),
				ShipmentID:  shipment.ID,
				SenderID:    shipment.SenderID,
				AmountTotal: amount,
				Currency:    "usd",
				Status:      domain.PaymentStatusRequired,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := store.Payments().Create(ctx, payment); err != nil {
				return err
			}
			buf.add(domain.PaymentRequired{ShipmentID: shipment.ID, SenderID: shipment.SenderID, Amount: amount})
		}

		booking.Status = domain.BookingStatusConfirmed
		booking.UpdatedAt = now
		if err := store.Bookings().Update(ctx, booking); err != nil {
			return err
		}
		buf.add(domain.BookingStatusChanged{BookingID: booking.ID, Status: booking.Status, ActorID: driverID})
		return nil
	})
	if err != nil {
		return nil, err
	}

	buf.drain(ctx, s.publisher)
	return booking, nil
}

// StartBooking moves a confirmed booking into progress. Every attached
// shipment must have an authorized payment; a single sender who never
// paid blocks the whole trip.
func (s *BookingService) StartBooking(ctx context.Context, bookingID, driverID string) (*domain.Booking, error) {
	if bookingID == "" {
		return nil, ErrInvalidBookingID
	}
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	var (
		booking *domain.Booking
		buf     eventBuffer
	)

	err := s.uow.WithinTx(ctx, func(store repository.Store) error {
		var err error
		booking, err = store.Bookings().GetByIDForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if booking.DriverID != driverID {
			return ErrNotBookingDriver
		}
		if booking.Status != domain.BookingStatusConfirmed {
			return ErrBookingNotConfirmed
		}

		shipments, err := store.Shipments().ListByBooking(ctx, bookingID)
		if err != nil {
			return err
		}

		for _, shipment := range shipments {
			if shipment.Status != domain.ShipmentStatusAssigned {
				continue
			}
			payment, err := store.Payments().GetByShipment(ctx, shipment.ID)
			if err != nil {
				return err
			}
			if payment == nil || payment.Status != domain.PaymentStatusAuthorized {
				return ErrPaymentNotSettled
			}
		}

		booking.Status = domain.BookingStatusInProgress
		booking.UpdatedAt = time.Now()
		if err := store.Bookings().Update(ctx, booking); err != nil {
			return err
		}
		buf.add(domain.BookingStatusChanged{BookingID: booking.ID, Status: booking.Status, ActorID: driverID})
		return nil
	})
	if err != nil {
		return nil, err
	}

	buf.drain(ctx, s.publisher)
	return booking, nil
}

// CompleteBooking closes out a running booking once the driver is done.
// Every attached shipment must have reached a terminal state; bookings
// usually complete automatically with the last delivery, so this is the
// explicit path for drivers wrapping up after losses or cancellations.
func (s *BookingService) CompleteBooking(ctx context.Context, bookingID, driverID string) (*domain.Booking, error) {
	if bookingID == "" {
		return nil, ErrInvalidBookingID
	}
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	var (
		booking *domain.Booking
		buf     eventBuffer
	)

	err := s.uow.WithinTx(ctx, func(store repository.Store) error {
		var err error
		booking, err = store.Bookings().GetByIDForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if booking.DriverID != driverID {
			return ErrNotBookingDriver
		}
		if booking.Status != domain.BookingStatusInProgress {
			return ErrBookingNotInProgress
		}

		shipments, err := store.Shipments().ListByBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		for _, shipment := range shipments {
			if !shipment.Status.IsTerminal() {
				return ErrShipmentsUnfinished
			}
		}

		booking.Status = domain.BookingStatusCompleted
		booking.UpdatedAt = time.Now()
		if err := store.Bookings().Update(ctx, booking); err != nil {
			return err
		}
		buf.add(domain.BookingStatusChanged{BookingID: booking.ID, Status: booking.Status, ActorID: driverID})
		return nil
	})
	if err != nil {
		return nil, err
	}

	buf.drain(ctx, s.publisher)
	return booking, nil
}

// CancelBooking releases the booking's shipments back to the open pool.
// Only pending and confirmed bookings can be cancelled; once shipments
// are moving, individual shipments must be resolved instead. Payments
// opened at confirmation are cancelled with the provider-branching rules
// the shipment cancellation uses.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID, driverID string) (*domain.Booking, error) {
	if bookingID == "" {
		return nil, ErrInvalidBookingID
	}
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	var (
		booking *domain.Booking
		buf     eventBuffer
		after   []func()
	)

	err := s.uow.WithinTx(ctx, func(store repository.Store) error {
		var err error
		booking, err = store.Bookings().GetByIDForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if booking.DriverID != driverID {
			return ErrNotBookingDriver
		}
		if booking.Status != domain.BookingStatusPending && booking.Status != domain.BookingStatusConfirmed {
			return ErrBookingNotCancellable
		}

		shipments, err := store.Shipments().ListByBooking(ctx, bookingID)
		if err != nil {
			return err
		}

		now := time.Now()
		for _, shipment := range shipments {
			if shipment.Status != domain.ShipmentStatusAssigned {
				continue
			}

			payment, err := store.Payments().GetByShipmentForUpdate(ctx, shipment.ID)
			if err != nil {
				return err
			}
			if payment != nil && !payment.Status.IsTerminal() {
				intentID := payment.IntentID
				needsVoid := payment.Status == domain.PaymentStatusAuthorized
				payment.Status = domain.PaymentStatusCancelled
				payment.UpdatedAt = now
				if err := store.Payments().Update(ctx, payment); err != nil {
					return err
				}
				if needsVoid && intentID != "" {
					after = append(after, func() {
						if err := s.gateway.CancelIntent(ctx, intentID); err != nil {
							s.log.WithError(err).WithField("intent_id", intentID).
								Error("cancel intent request failed")
						}
					})
				}
			}

			shipment.Status = domain.ShipmentStatusCreated
			shipment.BookingID = ""
			shipment.PickupOrder = 0
			shipment.DeliveryOrder = 0
			shipment.Code = domain.DeliveryCode{}
			shipment.UpdatedAt = now
			if err := store.Shipments().Update(ctx, shipment); err != nil {
				return err
			}
			buf.add(domain.ShipmentStatusChanged{ShipmentID: shipment.ID, Status: shipment.Status})
		}

		booking.Status = domain.BookingStatusCancelled
		booking.UpdatedAt = now
		if err := store.Bookings().Update(ctx, booking); err != nil {
			return err
		}
		buf.add(domain.BookingStatusChanged{BookingID: booking.ID, Status: booking.Status, ActorID: driverID})
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, fn := range after {
		fn()
	}
	buf.drain(ctx, s.publisher)
	return booking, nil
}

// GetBooking retrieves a booking with its shipments for the driver.
func (s *BookingService) GetBooking(ctx context.Context, bookingID, driverID string) (*domain.Booking, []*domain.Shipment, error) {
	if bookingID == "" {
		return nil, nil, ErrInvalidBookingID
	}
	store := s.uow.Store()
	booking, err := store.Bookings().GetByID(ctx, bookingID)
	if err != nil {
		return nil, nil, err
	}
	if booking.DriverID != driverID {
		return nil, nil, ErrNotBookingDriver
	}
	shipments, err := store.Shipments().ListByBooking(ctx, bookingID)
	if err != nil {
		return nil, nil, err
	}
	return booking, shipments, nil
}

// ListDriverBookings retrieves all bookings of a driver.
func (s *BookingService) ListDriverBookings(ctx context.Context, driverID string) ([]*domain.Booking, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}
	return s.uow.Store().Bookings().ListByDriver(ctx, driverID)
}

// recalculateBooking derives the booking status from its shipments after
// one of them reached a terminal state. All shipments cancelled cancels
// the booking; all shipments terminal with at least one delivery or loss
// completes it; anything else leaves the booking as it is.
func recalculateBooking(ctx context.Context, store repository.Store, bookingID string, buf *eventBuffer) error {
	booking, err := store.Bookings().GetByIDForUpdate(ctx, bookingID)
	if err != nil {
		return err
	}
	if booking.Status.IsTerminal() {
		return nil
	}

	shipments, err := store.Shipments().ListByBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	if len(shipments) == 0 {
		return nil
	}

	allCancelled := true
	allTerminal := true
	for _, shipment := range shipments {
		if shipment.Status != domain.ShipmentStatusCancelled {
			allCancelled = false
		}
		if !shipment.Status.IsTerminal() {
			allTerminal = false
		}
	}

	var next domain.BookingStatus
	switch {
	case allCancelled:
		next = domain.BookingStatusCancelled
	case allTerminal:
		next = domain.BookingStatusCompleted
	default:
		return nil
	}

	booking.Status = next
	booking.UpdatedAt = time.Now()
	if err := store.Bookings().Update(ctx, booking); err != nil {
		return err
	}
	buf.add(domain.BookingStatusChanged{BookingID: booking.ID, Status: booking.Status})
	return nil
}
