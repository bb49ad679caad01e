package service

import "context"

// PaymentIntent is the provider-side handle for an authorize/capture cycle.
type PaymentIntent struct {
	IntentID     string
	ClientSecret string
}

// PaymentGateway abstracts the card provider. Implementations must be
// safe to call outside database transactions; the reconciler never holds
// a transaction open across a gateway call.
type PaymentGateway interface {
	// CreateIntent opens a manual-capture intent for the given amount.
	CreateIntent(ctx context.Context, amountCents int64, currency, shipmentID string) (*PaymentIntent, error)

	// CaptureIntent captures a previously authorized intent.
	CaptureIntent(ctx context.Context, intentID string) error

	// CancelIntent voids an authorized but uncaptured intent.
	CancelIntent(ctx context.Context, intentID string) error

	// RefundIntent refunds a captured intent in full.
	RefundIntent(ctx context.Context, intentID string) error
}
