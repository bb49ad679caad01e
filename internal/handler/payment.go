package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"shipmate/internal/domain"
	"shipmate/internal/service"
)

// PaymentHandler handles HTTP requests for payments.
type PaymentHandler struct {
	paymentService *service.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentService *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// PaymentResponse is the HTTP response for payment operations.
type PaymentResponse struct {
	PaymentID     string `json:"payment_id"`
	ShipmentID    string `json:"shipment_id"`
	AmountTotal   int64  `json:"amount_total_cents"`
	Currency      string `json:"currency"`
	Status        string `json:"status"`
	FailureReason string `json:"failure_reason,omitempty"`
	ClientSecret  string `json:"client_secret,omitempty"`
	UpdatedAt     string `json:"updated_at"`
}

func toPaymentResponse(p *domain.Payment) PaymentResponse {
	return PaymentResponse{
		PaymentID:     p.ID,
		ShipmentID:    p.ShipmentID,
		AmountTotal:   p.AmountTotal,
		Currency:      p.Currency,
		Status:        string(p.Status),
		FailureReason: p.FailureReason,
		UpdatedAt:     p.UpdatedAt.Format(time.RFC3339),
	}
}

// CheckoutRequest identifies the sender starting checkout.
type CheckoutRequest struct {
	SenderID string `json:"sender_id" binding:"required"`
}

// Checkout handles POST /v1/shipments/:id/checkout
func (h *PaymentHandler) Checkout(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondJSON(c, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	result, err := h.paymentService.BeginCheckout(c.Request.Context(), c.Param("id"), req.SenderID)
	if err != nil {
		respondError(c, err)
		return
	}

	response := toPaymentResponse(result.Payment)
	response.ClientSecret = result.ClientSecret
	respondJSON(c, http.StatusOK, response)
}

// Get handles GET /v1/shipments/:id/payment?sender_id=
func (h *PaymentHandler) Get(c *gin.Context) {
	payment, err := h.paymentService.GetPayment(c.Request.Context(), c.Param("id"), c.Query("sender_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toPaymentResponse(payment))
}
