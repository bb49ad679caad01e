package service

import "errors"

// Validation errors.
var (
	// ErrInvalidSenderID is returned when sender ID is empty.
	ErrInvalidSenderID = errors.New("invalid sender id")

	// ErrInvalidDriverID is returned when driver ID is empty.
	ErrInvalidDriverID = errors.New("invalid driver id")

	// ErrInvalidShipmentID is returned when shipment ID is empty.
	ErrInvalidShipmentID = errors.New("invalid shipment id")

	// ErrInvalidBookingID is returned when booking ID is empty.
	ErrInvalidBookingID = errors.New("invalid booking id")

	// ErrInvalidPaymentID is returned when payment ID is empty.
	ErrInvalidPaymentID = errors.New("invalid payment id")

	// ErrInvalidAddress is returned when a pickup or delivery address is empty.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrInvalidLocation is returned when coordinates are out of range.
	ErrInvalidLocation = errors.New("invalid location")

	// ErrInvalidWeight is returned when the package weight is not positive.
	ErrInvalidWeight = errors.New("invalid package weight")

	// ErrInvalidDeclaredValue is returned when the declared value is out of
	// the insurable range.
	ErrInvalidDeclaredValue = errors.New("invalid declared value")

	// ErrInvalidCodeFormat is returned when a submitted delivery code is
	// not six digits.
	ErrInvalidCodeFormat = errors.New("invalid delivery code format")

	// ErrNoShipmentsSelected is returned when a booking request names no shipments.
	ErrNoShipmentsSelected = errors.New("no shipments selected")

	// ErrInvalidClaimReason is returned when the claim reason is unknown.
	ErrInvalidClaimReason = errors.New("invalid claim reason")
)

// State errors.
var (
	// ErrShipmentNotAvailable is returned when a shipment is not open for booking.
	ErrShipmentNotAvailable = errors.New("shipment not available for booking")

	// ErrShipmentNotAssigned is returned when a shipment is not in ASSIGNED state.
	ErrShipmentNotAssigned = errors.New("shipment not assigned")

	// ErrShipmentNotInTransit is returned when a shipment is not in IN_TRANSIT state.
	ErrShipmentNotInTransit = errors.New("shipment not in transit")

	// ErrShipmentNotCancellable is returned when a shipment is in a state
	// that cannot be cancelled.
	ErrShipmentNotCancellable = errors.New("shipment cannot be cancelled in current state")

	// ErrBookingNotPending is returned when a booking is not in PENDING state.
	ErrBookingNotPending = errors.New("booking not pending")

	// ErrBookingNotConfirmed is returned when a booking is not in CONFIRMED state.
	ErrBookingNotConfirmed = errors.New("booking not confirmed")

	// ErrBookingNotInProgress is returned when a booking is not in IN_PROGRESS state.
	ErrBookingNotInProgress = errors.New("booking not in progress")

	// ErrBookingNotCancellable is returned when a booking is in a state
	// that cannot be cancelled.
	ErrBookingNotCancellable = errors.New("booking cannot be cancelled in current state")

	// ErrShipmentsUnfinished is returned when completing a booking that
	// still has undelivered shipments.
	ErrShipmentsUnfinished = errors.New("booking has unfinished shipments")

	// ErrDriverHasActiveBooking is returned when the driver already has an
	// unfinished booking.
	ErrDriverHasActiveBooking = errors.New("driver already has an active booking")

	// ErrTooManyShipments is returned when a booking exceeds the shipment cap.
	ErrTooManyShipments = errors.New("too many shipments for one booking")

	// ErrPickupTooFar is returned when a shipment pickup is outside the
	// driver's pickup radius.
	ErrPickupTooFar = errors.New("shipment pickup outside driver radius")

	// ErrTripTooLong is returned when the planned route exceeds the trip
	// distance cap.
	ErrTripTooLong = errors.New("planned trip exceeds distance cap")

	// ErrStaleDriverLocation is returned when the driver's last known
	// location is too old to plan a booking.
	ErrStaleDriverLocation = errors.New("driver location is stale")

	// ErrPaymentNotSettled is returned when a payment is not in a state
	// that permits the requested operation.
	ErrPaymentNotSettled = errors.New("payment not in required state")

	// ErrPaymentTransition is returned when a payment status change is not
	// permitted by the state machine.
	ErrPaymentTransition = errors.New("payment status transition not allowed")

	// ErrCodeNotIssued is returned when no delivery code exists for the shipment.
	ErrCodeNotIssued = errors.New("delivery code not issued")

	// ErrCodeAlreadyVerified is returned when the delivery code was already consumed.
	ErrCodeAlreadyVerified = errors.New("delivery code already verified")

	// ErrCodeExpired is returned when the delivery code has passed its TTL.
	ErrCodeExpired = errors.New("delivery code expired")

	// ErrDeliveryLocked is returned when delivery verification is locked
	// after too many failed attempts.
	ErrDeliveryLocked = errors.New("delivery verification locked")

	// ErrDeliveryNotLocked is returned when unlocking a shipment that is not locked.
	ErrDeliveryNotLocked = errors.New("delivery verification not locked")

	// ErrShipmentBusy is returned when another operation holds the shipment lock.
	ErrShipmentBusy = errors.New("shipment is being processed")

	// ErrBookingBusy is returned when another operation holds the booking lock.
	ErrBookingBusy = errors.New("booking is being processed")

	// ErrShipmentNotClaimable is returned when filing a claim against a
	// shipment that is neither delivered nor lost.
	ErrShipmentNotClaimable = errors.New("shipment not eligible for claims")

	// ErrShipmentNotInsured is returned when filing a claim against an
	// uninsured shipment.
	ErrShipmentNotInsured = errors.New("shipment not insured")

	// ErrClaimAlreadyExists is returned when the shipment already has a claim.
	ErrClaimAlreadyExists = errors.New("claim already exists for shipment")

	// ErrClaimWindowClosed is returned when the claim is filed after the
	// claim window.
	ErrClaimWindowClosed = errors.New("claim window closed")

	// ErrClaimNotOpen is returned when resolving a claim that is already resolved.
	ErrClaimNotOpen = errors.New("claim already resolved")
)

// Authorization errors.
var (
	// ErrNotShipmentOwner is returned when the actor does not own the shipment.
	ErrNotShipmentOwner = errors.New("actor does not own shipment")

	// ErrNotBookingDriver is returned when the actor is not the booking's driver.
	ErrNotBookingDriver = errors.New("actor is not the booking driver")
)

// Security errors. ErrCodeMismatch is deliberately indistinguishable in
// message from a formatting problem so responses leak nothing about how
// close a guess was.
var (
	// ErrCodeMismatch is returned when a submitted delivery code does not
	// match the stored one.
	ErrCodeMismatch = errors.New("delivery code verification failed")

	// ErrWebhookSignature is returned when a webhook payload fails
	// signature verification.
	ErrWebhookSignature = errors.New("webhook signature verification failed")
)
