package domain

import "time"

// BookingStatus represents the current status of a booking.
type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "PENDING"
	BookingStatusConfirmed  BookingStatus = "CONFIRMED"
	BookingStatusInProgress BookingStatus = "IN_PROGRESS"
	BookingStatusCompleted  BookingStatus = "COMPLETED"
	BookingStatusCancelled  BookingStatus = "CANCELLED"
)

// IsTerminal reports whether the status admits no further transitions.
func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled
}

// Booking represents a driver's commitment to carry a set of shipments
// on one trip. The pricing fields are snapshots taken when shipments are
// attached and are never recomputed afterwards.
type Booking struct {
	ID                 string
	DriverID           string
	Status             BookingStatus
	TotalPrice         int64 // cents
	PlatformCommission int64 // cents
	DriverEarnings     int64 // cents
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
