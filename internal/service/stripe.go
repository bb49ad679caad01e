package service

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"github.com/stripe/stripe-go/v76/refund"
	"github.com/stripe/stripe-go/v76/webhook"

	"shipmate/internal/config"
)

// StripeGateway is the Stripe implementation of PaymentGateway. Intents
// use manual capture so funds are only held at authorization and settled
// after delivery is confirmed.
type StripeGateway struct {
	webhookSecret string
}

// NewStripeGateway configures the Stripe client and returns the gateway.
func NewStripeGateway(cfg config.StripeConfig) *StripeGateway {
	stripe.Key = cfg.APIKey
	return &StripeGateway{webhookSecret: cfg.WebhookSecret}
}

func (g *StripeGateway) CreateIntent(ctx context.Context, amountCents int64, currency, shipmentID string) (*PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(amountCents),
		Currency:      stripe.String(currency),
		CaptureMethod: stripe.String(string(stripe.PaymentIntentCaptureMethodManual)),
	}
	params.Context = ctx
	params.AddMetadata("shipment_id", shipmentID)

	intent, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	return &PaymentIntent{IntentID: intent.ID, ClientSecret: intent.ClientSecret}, nil
}

func (g *StripeGateway) CaptureIntent(ctx context.Context, intentID string) error {
	params := &stripe.PaymentIntentCaptureParams{}
	params.Context = ctx
	if _, err := paymentintent.Capture(intentID, params); err != nil {
		return fmt.Errorf("capture payment intent: %w", err)
	}
	return nil
}

func (g *StripeGateway) CancelIntent(ctx context.Context, intentID string) error {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx
	if _, err := paymentintent.Cancel(intentID, params); err != nil {
		return fmt.Errorf("cancel payment intent: %w", err)
	}
	return nil
}

func (g *StripeGateway) RefundIntent(ctx context.Context, intentID string) error {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(intentID),
	}
	params.Context = ctx
	if _, err := refund.New(params); err != nil {
		return fmt.Errorf("refund payment intent: %w", err)
	}
	return nil
}

// VerifyWebhook checks the provider signature over the raw payload and
// returns the parsed event. Callers must pass the unmodified request body.
func (g *StripeGateway) VerifyWebhook(payload []byte, sigHeader string) (stripe.Event, error) {
	event, err := webhook.ConstructEvent(payload, sigHeader, g.webhookSecret)
	if err != nil {
		return stripe.Event{}, ErrWebhookSignature
	}
	return event, nil
}

var _ PaymentGateway = (*StripeGateway)(nil)
