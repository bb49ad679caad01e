package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"shipmate/internal/service"
)

// Keep oversized payloads from tying up the reconciler.
const maxWebhookBody = 64 * 1024

// WebhookHandler receives payment provider callbacks.
type WebhookHandler struct {
	gateway        *service.StripeGateway
	paymentService *service.PaymentService
	log            *logrus.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(gateway *service.StripeGateway, paymentService *service.PaymentService, log *logrus.Logger) *WebhookHandler {
	return &WebhookHandler{gateway: gateway, paymentService: paymentService, log: log}
}

// HandlePaymentEvent handles POST /v1/webhooks/payments. The signature
// is verified over the raw body before anything is parsed. Only an
// unreadable body or a bad signature returns non-2xx; once the event is
// authentic it is acknowledged no matter how reconciliation went, since
// a non-2xx makes the provider redeliver the same event into the same
// failure.
func (h *WebhookHandler) HandlePaymentEvent(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		respondJSON(c, http.StatusBadRequest, ErrorResponse{Error: "read payload failed"})
		return
	}

	event, err := h.gateway.VerifyWebhook(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.paymentService.HandleProviderEvent(c.Request.Context(), event); err != nil {
		h.log.WithError(err).WithFields(logrus.Fields{
			"event_id":   event.ID,
			"event_type": event.Type,
		}).Error("provider event processing failed")
	}

	c.Status(http.StatusOK)
}
