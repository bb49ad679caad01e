package domain

import "time"

// EarningType distinguishes the two kinds of ledger lines.
type EarningType string

const (
	EarningTypeOriginal EarningType = "ORIGINAL"
	EarningTypeRefund   EarningType = "REFUND"
)

// PayoutStatus represents whether an earning has been paid out.
type PayoutStatus string

const (
	PayoutStatusPending PayoutStatus = "PENDING"
	PayoutStatusPaid    PayoutStatus = "PAID"
)

// DriverEarning is one append-only ledger line attributing net income to
// a driver for one payment event. At most one ORIGINAL and one REFUND
// line exist per payment; a REFUND line exactly negates its ORIGINAL.
// Lines are never mutated after creation except PayoutStatus.
type DriverEarning struct {
	ID               string
	DriverID         string
	ShipmentID       string
	PaymentID        string
	EarningType      EarningType
	GrossAmount      int64 // cents
	CommissionAmount int64 // cents
	NetAmount        int64 // cents
	PayoutStatus     PayoutStatus
	CreatedAt        time.Time
}

// EarningsSummary aggregates a driver's ledger.
type EarningsSummary struct {
	TotalGross      int64
	TotalCommission int64
	TotalNet        int64
	TotalPending    int64
	TotalPaid       int64
}
