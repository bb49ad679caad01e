package domain

import "time"

// ShipmentStatus represents the current status of a shipment.
type ShipmentStatus string

const (
	ShipmentStatusCreated   ShipmentStatus = "CREATED"
	ShipmentStatusAssigned  ShipmentStatus = "ASSIGNED"
	ShipmentStatusInTransit ShipmentStatus = "IN_TRANSIT"
	ShipmentStatusDelivered ShipmentStatus = "DELIVERED"
	ShipmentStatusCancelled ShipmentStatus = "CANCELLED"
	ShipmentStatusLost      ShipmentStatus = "LOST"
)

// IsTerminal reports whether the status admits no further transitions.
func (s ShipmentStatus) IsTerminal() bool {
	return s == ShipmentStatusDelivered || s == ShipmentStatusCancelled || s == ShipmentStatusLost
}

// DeliveryCode holds the per-shipment handoff secret. The plaintext is
// never stored: Hash is HMAC-SHA256(salt+code) and Enc/IV are an
// independent AES-GCM encryption used to redisplay the code to the
// sender. All fields are empty when no code has been issued.
type DeliveryCode struct {
	Hash       string
	Salt       string
	Enc        string
	IV         string
	CreatedAt  time.Time
	VerifiedAt time.Time
	Attempts   int
}

// Issued reports whether a code is currently stored.
func (c DeliveryCode) Issued() bool {
	return c.Hash != "" && c.Salt != "" && c.Enc != "" && c.IV != "" && !c.CreatedAt.IsZero()
}

// Verified reports whether the stored code has been consumed.
func (c DeliveryCode) Verified() bool {
	return !c.VerifiedAt.IsZero()
}

// Insurance holds the optional coverage snapshot taken at shipment
// creation time.
type Insurance struct {
	Selected       bool
	DeclaredValue  int64 // cents
	Fee            int64 // cents
	CoverageAmount int64 // cents
	DeductibleRate float64
}

// Shipment represents one parcel move from pickup to delivery, owned by
// its sender. BookingID is empty until a driver attaches the shipment to
// a booking.
type Shipment struct {
	ID       string
	SenderID string
	BookingID string
	Status   ShipmentStatus

	PickupAddress   string
	PickupLat       float64
	PickupLng       float64
	DeliveryAddress string
	DeliveryLat     float64
	DeliveryLng     float64

	PackageDescription string
	PackageWeightKg    float64
	PackageValue       int64 // cents

	BasePrice int64 // cents
	Insurance Insurance

	PickupOrder   int
	DeliveryOrder int

	Code           DeliveryCode
	DeliveryLocked bool

	DeliveredAt time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
