package domain

import "time"

// ClaimReason is why the sender is claiming compensation.
type ClaimReason string

const (
	ClaimReasonLost    ClaimReason = "LOST"
	ClaimReasonDamaged ClaimReason = "DAMAGED"
	ClaimReasonOther   ClaimReason = "OTHER"
)

// ClaimStatus represents the review state of an insurance claim.
type ClaimStatus string

const (
	ClaimStatusSubmitted   ClaimStatus = "SUBMITTED"
	ClaimStatusUnderReview ClaimStatus = "UNDER_REVIEW"
	ClaimStatusApproved    ClaimStatus = "APPROVED"
	ClaimStatusRejected    ClaimStatus = "REJECTED"
)

// InsuranceClaim records a sender's compensation request for an insured
// shipment. Value and coverage fields are snapshots taken from the
// shipment when the claim is submitted.
type InsuranceClaim struct {
	ID                 string
	ShipmentID         string
	ClaimantID         string
	Reason             ClaimReason
	Description        string
	Status             ClaimStatus
	DeclaredValue      int64 // cents
	CoverageAmount     int64 // cents
	DeductibleRate     float64
	CompensationAmount int64 // cents
	AdminUserID        string
	AdminNotes         string
	ResolvedAt         time.Time
	CreatedAt          time.Time
}
