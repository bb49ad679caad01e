package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v76"

	"shipmate/internal/domain"
	"shipmate/internal/repository"
)

// PaymentService reconciles local payment state with provider signals.
// All status changes flow through the payment state machine; webhook
// deliveries are treated as at-least-once, so every handler is a no-op
// when the signalled state has already been applied.
type PaymentService struct {
	uow       repository.UnitOfWork
	gateway   PaymentGateway
	vault     *CodeVault
	earnings  *EarningService
	publisher EventPublisher
	log       *logrus.Logger
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(
	uow repository.UnitOfWork,
	gateway PaymentGateway,
	vault *CodeVault,
	earnings *EarningService,
	publisher EventPublisher,
	log *logrus.Logger,
) *PaymentService {
	return &PaymentService{
		uow:       uow,
		gateway:   gateway,
		vault:     vault,
		earnings:  earnings,
		publisher: publisher,
		log:       log,
	}
}

// BeginCheckoutResponse carries what the sender's client needs to
// complete payment with the provider.
type BeginCheckoutResponse struct {
	Payment      *domain.Payment
	ClientSecret string
}

// BeginCheckout opens a provider intent for a payment in REQUIRED state
// (or retries a FAILED one). The gateway call happens before the
// transaction; only the returned intent ID is persisted inside it.
func (s *PaymentService) BeginCheckout(ctx context.Context, shipmentID, senderID string) (*BeginCheckoutResponse, error) {
	if shipmentID == "" {
		return nil, ErrInvalidShipmentID
	}
	if senderID == "" {
		return nil, ErrInvalidSenderID
	}

	store := s.uow.Store()
	payment, err := store.Payments().GetByShipment(ctx, shipmentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, repository.ErrNotFound
	}
	if payment.SenderID != senderID {
		return nil, ErrNotShipmentOwner
	}
	if !payment.Status.CanTransitionTo(domain.PaymentStatusProcessing) {
		return nil, ErrPaymentNotSettled
	}

	intent, err := s.gateway.CreateIntent(ctx, payment.AmountTotal, payment.Currency, shipmentID)
	if err != nil {
		return nil, fmt.Errorf("begin checkout: %w", err)
	}

	err = s.uow.WithinTx(ctx, func(store repository.Store) error {
		payment, err = store.Payments().GetByShipmentForUpdate(ctx, shipmentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return repository.ErrNotFound
		}
		if !payment.Status.CanTransitionTo(domain.PaymentStatusProcessing) {
			return ErrPaymentNotSettled
		}
		payment.Status = domain.PaymentStatusProcessing
		payment.IntentID = intent.IntentID
		payment.FailureReason = ""
		payment.UpdatedAt = time.Now()
		return store.Payments().Update(ctx, payment)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"payment_id": payment.ID,
		"intent_id":  intent.IntentID,
	}).Info("checkout started")

	return &BeginCheckoutResponse{Payment: payment, ClientSecret: intent.ClientSecret}, nil
}

// GetPayment retrieves the payment for a shipment on behalf of its sender.
func (s *PaymentService) GetPayment(ctx context.Context, shipmentID, senderID string) (*domain.Payment, error) {
	if shipmentID == "" {
		return nil, ErrInvalidShipmentID
	}
	payment, err := s.uow.Store().Payments().GetByShipment(ctx, shipmentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, repository.ErrNotFound
	}
	if payment.SenderID != senderID {
		return nil, ErrNotShipmentOwner
	}
	return payment, nil
}

// HandleProviderEvent dispatches a verified provider event to the
// matching reconciliation step. Unknown event types, unknown intents
// and malformed payloads are logged and dropped, not failed: the
// provider redelivers on errors and none of these is fixed by a retry.
func (s *PaymentService) HandleProviderEvent(ctx context.Context, event stripe.Event) error {
	switch event.Type {
	case "payment_intent.amount_capturable_updated":
		intentID, err := intentIDFromEvent(event)
		if err != nil {
			return s.dropMalformed(event, err)
		}
		return s.applyAuthorized(ctx, intentID)
	case "payment_intent.succeeded":
		intentID, err := intentIDFromEvent(event)
		if err != nil {
			return s.dropMalformed(event, err)
		}
		return s.applyCaptured(ctx, intentID)
	case "payment_intent.payment_failed":
		intentID, reason, err := failureFromEvent(event)
		if err != nil {
			return s.dropMalformed(event, err)
		}
		return s.applyFailed(ctx, intentID, reason)
	case "payment_intent.canceled":
		intentID, err := intentIDFromEvent(event)
		if err != nil {
			return s.dropMalformed(event, err)
		}
		return s.applyCancelled(ctx, intentID)
	case "charge.refunded":
		intentID, err := chargeIntentIDFromEvent(event)
		if err != nil {
			return s.dropMalformed(event, err)
		}
		return s.applyRefunded(ctx, intentID)
	default:
		s.log.WithField("event_type", event.Type).Debug("ignoring provider event")
		return nil
	}
}

// dropMalformed acknowledges an event whose payload could not be used;
// redelivering the same bytes can never succeed.
func (s *PaymentService) dropMalformed(event stripe.Event, err error) error {
	s.log.WithError(err).WithFields(logrus.Fields{
		"event_id":   event.ID,
		"event_type": event.Type,
	}).Warn("dropping malformed provider event")
	return nil
}

// applyAuthorized moves the payment to AUTHORIZED and issues the
// delivery code. Funds are held from this point, so the shipment must
// still be ASSIGNED; otherwise the hold is released again.
func (s *PaymentService) applyAuthorized(ctx context.Context, intentID string) error {
	var (
		buf        eventBuffer
		voidIntent bool
	)

	err := s.uow.WithinTx(ctx, func(store repository.Store) error {
		payment, err := store.Payments().GetByIntentIDForUpdate(ctx, intentID)
		if err != nil {
			return err
		}
		if payment == nil {
			s.log.WithField("intent_id", intentID).Warn("authorization for unknown intent")
			return nil
		}
		if payment.Status == domain.PaymentStatusAuthorized {
			return nil // Duplicate delivery.
		}
		if !payment.Status.CanTransitionTo(domain.PaymentStatusAuthorized) {
			s.log.WithFields(logrus.Fields{
				"payment_id": payment.ID,
				"status":     payment.Status,
			}).Warn("dropping authorization in unexpected state")
			return nil
		}

		shipment, err := store.Shipments().GetByIDForUpdate(ctx, payment.ShipmentID)
		if err != nil {
			return err
		}
		if shipment.Status != domain.ShipmentStatusAssigned {
			// Shipment moved on while the sender paid; release the hold.
			payment.Status = domain.PaymentStatusCancelled
			payment.UpdatedAt = time.Now()
			if err := store.Payments().Update(ctx, payment); err != nil {
				return err
			}
			voidIntent = true
			return nil
		}

		now := time.Now()
		code, stored, err := s.vault.Generate(now)
		if err != nil {
			return err
		}
		shipment.Code = stored
		shipment.DeliveryLocked = false
		shipment.UpdatedAt = now
		if err := store.Shipments().Update(ctx, shipment); err != nil {
			return err
		}

		payment.Status = domain.PaymentStatusAuthorized
		payment.UpdatedAt = now
		if err := store.Payments().Update(ctx, payment); err != nil {
			return err
		}

		buf.add(domain.DeliveryCodeIssued{
			ShipmentID: shipment.ID,
			SenderID:   shipment.SenderID,
			Code:       code,
		})
		return nil
	})
	if err != nil {
		return err
	}

	if voidIntent {
		if err := s.gateway.CancelIntent(ctx, intentID); err != nil {
			s.log.WithError(err).WithField("intent_id", intentID).Error("cancel intent request failed")
		}
	}
	buf.drain(ctx, s.publisher)
	return nil
}

// applyCaptured settles the payment and posts the driver's ORIGINAL
// earning in the same transaction, so money never settles without a
// ledger line and the line exists at most once.
func (s *PaymentService) applyCaptured(ctx context.Context, intentID string) error {
	var buf eventBuffer

	err := s.uow.WithinTx(ctx, func(store repository.Store) error {
		payment, err := store.Payments().GetByIntentIDForUpdate(ctx, intentID)
		if err != nil {
			return err
		}
		if payment == nil {
			s.log.WithField("intent_id", intentID).Warn("capture for unknown intent")
			return nil
		}
		if payment.Status == domain.PaymentStatusCaptured || payment.Status == domain.PaymentStatusRefunded {
			return nil // Duplicate delivery.
		}
		if !payment.Status.CanTransitionTo(domain.PaymentStatusCaptured) {
			s.log.WithFields(logrus.Fields{
				"payment_id": payment.ID,
				"status":     payment.Status,
			}).Warn("dropping capture in unexpected state")
			return nil
		}

		shipment, err := store.Shipments().GetByID(ctx, payment.ShipmentID)
		if err != nil {
			return err
		}
		if shipment.Status != domain.ShipmentStatusDelivered {
			// Out of order with the delivery, or a capture nothing on our
			// side asked for. Failing would only make the provider
			// redeliver into the same wall; drop it and leave the trail.
			s.log.WithFields(logrus.Fields{
				"payment_id":  payment.ID,
				"shipment_id": shipment.ID,
				"status":      shipment.Status,
			}).Error("capture signalled before delivery, dropping")
			return nil
		}

		payment.Status = domain.PaymentStatusCaptured
		payment.UpdatedAt = time.Now()
		if err := store.Payments().Update(ctx, payment); err != nil {
			return err
		}

		if shipment.BookingID != "" {
			booking, err := store.Bookings().GetByID(ctx, shipment.BookingID)
			if err != nil {
				return err
			}
			if err := s.earnings.postOriginal(ctx, store, payment, shipment, booking.DriverID); err != nil {
				return err
			}
		}

		buf.add(domain.PaymentCaptured{
			ShipmentID: payment.ShipmentID,
			SenderID:   payment.SenderID,
			Amount:     payment.AmountTotal,
		})
		return nil
	})
	if err != nil {
		return err
	}

	buf.drain(ctx, s.publisher)
	return nil
}

// applyFailed records a provider-side failure. The sender can retry
// checkout, which moves the payment back to PROCESSING.
func (s *PaymentService) applyFailed(ctx context.Context, intentID, reason string) error {
	return s.uow.WithinTx(ctx, func(store repository.Store) error {
		payment, err := store.Payments().GetByIntentIDForUpdate(ctx, intentID)
		if err != nil {
			return err
		}
		if payment == nil {
			s.log.WithField("intent_id", intentID).Warn("failure for unknown intent")
			return nil
		}
		if payment.Status == domain.PaymentStatusFailed {
			return nil // Duplicate delivery.
		}
		if !payment.Status.CanTransitionTo(domain.PaymentStatusFailed) {
			return nil
		}

		payment.Status = domain.PaymentStatusFailed
		payment.FailureReason = reason
		payment.UpdatedAt = time.Now()
		return store.Payments().Update(ctx, payment)
	})
}

// applyCancelled records a provider-side cancellation of the intent.
func (s *PaymentService) applyCancelled(ctx context.Context, intentID string) error {
	return s.uow.WithinTx(ctx, func(store repository.Store) error {
		payment, err := store.Payments().GetByIntentIDForUpdate(ctx, intentID)
		if err != nil {
			return err
		}
		if payment == nil || payment.Status == domain.PaymentStatusCancelled {
			return nil
		}
		if !payment.Status.CanTransitionTo(domain.PaymentStatusCancelled) {
			return nil
		}

		payment.Status = domain.PaymentStatusCancelled
		payment.UpdatedAt = time.Now()
		return store.Payments().Update(ctx, payment)
	})
}

// applyRefunded moves a captured payment to REFUNDED and posts the
// REFUND ledger line negating the ORIGINAL. A refund signal for a
// payment that never captured posts nothing.
func (s *PaymentService) applyRefunded(ctx context.Context, intentID string) error {
	var buf eventBuffer

	err := s.uow.WithinTx(ctx, func(store repository.Store) error {
		payment, err := store.Payments().GetByIntentIDForUpdate(ctx, intentID)
		if err != nil {
			return err
		}
		if payment == nil {
			s.log.WithField("intent_id", intentID).Warn("refund for unknown intent")
			return nil
		}
		if payment.Status == domain.PaymentStatusRefunded {
			return nil // Duplicate delivery.
		}
		if !payment.Status.CanTransitionTo(domain.PaymentStatusRefunded) {
			s.log.WithFields(logrus.Fields{
				"payment_id": payment.ID,
				"status":     payment.Status,
			}).Warn("dropping refund in unexpected state")
			return nil
		}

		payment.Status = domain.PaymentStatusRefunded
		payment.UpdatedAt = time.Now()
		if err := store.Payments().Update(ctx, payment); err != nil {
			return err
		}

		if err := s.earnings.postRefund(ctx, store, payment); err != nil {
			return err
		}

		buf.add(domain.PaymentRefunded{
			ShipmentID: payment.ShipmentID,
			SenderID:   payment.SenderID,
			Amount:     payment.AmountTotal,
		})
		return nil
	})
	if err != nil {
		return err
	}

	buf.drain(ctx, s.publisher)
	return nil
}

// RequestCapture asks the provider to settle an authorized payment.
// Fire-and-forget: the CAPTURED transition happens only when the
// provider confirms through the webhook.
func (s *PaymentService) RequestCapture(ctx context.Context, shipmentID string) {
	payment, err := s.uow.Store().Payments().GetByShipment(ctx, shipmentID)
	if err != nil || payment == nil {
		s.log.WithError(err).WithField("shipment_id", shipmentID).Error("capture lookup failed")
		return
	}
	if payment.Status != domain.PaymentStatusAuthorized {
		s.log.WithFields(logrus.Fields{
			"payment_id": payment.ID,
			"status":     payment.Status,
		}).Warn("skipping capture request in unexpected state")
		return
	}
	if err := s.gateway.CaptureIntent(ctx, payment.IntentID); err != nil {
		s.log.WithError(err).WithField("intent_id", payment.IntentID).Error("capture request failed")
	}
}

func intentIDFromEvent(event stripe.Event) (string, error) {
	var payload struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(event.Data.Raw, &payload); err != nil {
		return "", fmt.Errorf("parse intent event: %w", err)
	}
	if payload.ID == "" {
		return "", fmt.Errorf("intent event without id")
	}
	return payload.ID, nil
}

func failureFromEvent(event stripe.Event) (intentID, reason string, err error) {
	var payload struct {
		ID               string `json:"id"`
		LastPaymentError struct {
			Message string `json:"message"`
		} `json:"last_payment_error"`
	}
	if err := json.Unmarshal(event.Data.Raw, &payload); err != nil {
		return "", "", fmt.Errorf("parse failure event: %w", err)
	}
	if payload.ID == "" {
		return "", "", fmt.Errorf("failure event without id")
	}
	return payload.ID, payload.LastPaymentError.Message, nil
}

// chargeIntentIDFromEvent extracts the intent from a charge-scoped
// event, where the intent sits one level down from the object id.
func chargeIntentIDFromEvent(event stripe.Event) (string, error) {
	var payload struct {
		PaymentIntent string `json:"payment_intent"`
	}
	if err := json.Unmarshal(event.Data.Raw, &payload); err != nil {
		return "", fmt.Errorf("parse charge event: %w", err)
	}
	if payload.PaymentIntent == "" {
		return "", fmt.Errorf("charge event without payment intent")
	}
	return payload.PaymentIntent, nil
}
