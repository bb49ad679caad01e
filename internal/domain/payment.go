package domain

import "time"

// PaymentStatus represents the current status of a payment.
type PaymentStatus string

const (
	PaymentStatusRequired   PaymentStatus = "REQUIRED"
	PaymentStatusProcessing PaymentStatus = "PROCESSING"
	PaymentStatusAuthorized PaymentStatus = "AUTHORIZED"
	PaymentStatusCaptured   PaymentStatus = "CAPTURED"
	PaymentStatusFailed     PaymentStatus = "FAILED"
	PaymentStatusCancelled  PaymentStatus = "CANCELLED"
	PaymentStatusRefunded   PaymentStatus = "REFUNDED"
)

// IsTerminal reports whether the status admits no further transitions.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusCancelled || s == PaymentStatusRefunded
}

// CanTransitionTo reports whether the state machine permits moving from
// s to next. Statuses only move forward except for the explicit
// cancellation and refund branches.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	switch s {
	case PaymentStatusRequired:
		return next == PaymentStatusProcessing ||
			next == PaymentStatusAuthorized ||
			next == PaymentStatusCancelled
	case PaymentStatusProcessing:
		return next == PaymentStatusAuthorized ||
			next == PaymentStatusFailed ||
			next == PaymentStatusCancelled
	case PaymentStatusAuthorized:
		return next == PaymentStatusCaptured ||
			next == PaymentStatusCancelled
	case PaymentStatusCaptured:
		return next == PaymentStatusRefunded
	case PaymentStatusFailed:
		return next == PaymentStatusProcessing
	default:
		return false
	}
}

// Payment tracks the monetary authorize/capture cycle for exactly one
// shipment. It is mutated only by the payment reconciler in response to
// provider signals, apart from intent creation.
type Payment struct {
	ID            string
	ShipmentID    string
	SenderID      string
	AmountTotal   int64 // cents
	Currency      string
	Status        PaymentStatus
	IntentID      string
	FailureReason string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
