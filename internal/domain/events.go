package domain

// Event is a committed state change announced to external collaborators.
// Events are published strictly after the owning transaction commits, so
// listeners never observe a status that is later rolled back.
type Event interface {
	EventName() string
}

// BookingStatusChanged is emitted for every committed booking transition.
type BookingStatusChanged struct {
	BookingID string
	Status    BookingStatus
	ActorID   string
}

func (BookingStatusChanged) EventName() string { return "booking.status_changed" }

// ShipmentStatusChanged is emitted for every committed shipment transition.
type ShipmentStatusChanged struct {
	ShipmentID string
	Status     ShipmentStatus
}

func (ShipmentStatusChanged) EventName() string { return "shipment.status_changed" }

// DeliveryCodeIssued is emitted when a fresh delivery code has been
// generated for the sender. Code carries the plaintext and must only be
// delivered to the sender, never logged.
type DeliveryCodeIssued struct {
	ShipmentID string
	SenderID   string
	Code       string
}

func (DeliveryCodeIssued) EventName() string { return "delivery.code_issued" }

// DeliveryLocked is emitted when a shipment reaches the verification
// attempt ceiling.
type DeliveryLocked struct {
	ShipmentID string
	BookingID  string
	SenderID   string
	DriverID   string
}

func (DeliveryLocked) EventName() string { return "delivery.locked" }

// DeliveryUnlocked is emitted when an administrator clears a delivery
// lockout.
type DeliveryUnlocked struct {
	ShipmentID string
	SenderID   string
	DriverID   string
}

func (DeliveryUnlocked) EventName() string { return "delivery.unlocked" }

// PaymentRequired is emitted when a booking confirmation makes a
// shipment payable by its sender.
type PaymentRequired struct {
	ShipmentID string
	SenderID   string
	Amount     int64
}

func (PaymentRequired) EventName() string { return "payment.required" }

// PaymentCaptured is emitted when a payment reaches CAPTURED.
type PaymentCaptured struct {
	ShipmentID string
	SenderID   string
	Amount     int64
}

func (PaymentCaptured) EventName() string { return "payment.captured" }

// PaymentRefunded is emitted when a payment reaches REFUNDED.
type PaymentRefunded struct {
	ShipmentID string
	SenderID   string
	Amount     int64
}

func (PaymentRefunded) EventName() string { return "payment.refunded" }
