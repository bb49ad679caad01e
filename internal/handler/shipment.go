package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"shipmate/internal/domain"
	"shipmate/internal/service"
)

// ShipmentHandler handles HTTP requests for shipments.
type ShipmentHandler struct {
	shipmentService *service.ShipmentService
	deliveryService *service.DeliveryService
}

// NewShipmentHandler creates a new ShipmentHandler.
func NewShipmentHandler(shipmentService *service.ShipmentService, deliveryService *service.DeliveryService) *ShipmentHandler {
	return &ShipmentHandler{shipmentService: shipmentService, deliveryService: deliveryService}
}

// CreateShipmentRequest is the HTTP request for creating a shipment.
type CreateShipmentRequest struct {
	SenderID           string  `json:"sender_id" binding:"required"`
	PickupAddress      string  `json:"pickup_address" binding:"required"`
	PickupLat          float64 `json:"pickup_lat" binding:"required"`
	PickupLng          float64 `json:"pickup_lng" binding:"required"`
	DeliveryAddress    string  `json:"delivery_address" binding:"required"`
	DeliveryLat        float64 `json:"delivery_lat" binding:"required"`
	DeliveryLng        float64 `json:"delivery_lng" binding:"required"`
	PackageDescription string  `json:"package_description"`
	PackageWeightKg    float64 `json:"package_weight_kg" binding:"required"`
	PackageValue       int64   `json:"package_value_cents"`
	WithInsurance      bool    `json:"with_insurance"`
	DeclaredValue      int64   `json:"declared_value_cents"`
}

// ShipmentResponse is the HTTP response for shipment operations.
type ShipmentResponse struct {
	ShipmentID      string `json:"shipment_id"`
	SenderID        string `json:"sender_id"`
	BookingID       string `json:"booking_id,omitempty"`
	Status          string `json:"status"`
	PickupAddress   string `json:"pickup_address"`
	DeliveryAddress string `json:"delivery_address"`
	BasePrice       int64  `json:"base_price_cents"`
	InsuranceFee    int64  `json:"insurance_fee_cents,omitempty"`
	Insured         bool   `json:"insured"`
	DeliveryLocked  bool   `json:"delivery_locked,omitempty"`
	DeliveredAt     string `json:"delivered_at,omitempty"`
	CreatedAt       string `json:"created_at"`
}

func toShipmentResponse(s *domain.Shipment) ShipmentResponse {
	resp := ShipmentResponse{
		ShipmentID:      s.ID,
		SenderID:        s.SenderID,
		BookingID:       s.BookingID,
		Status:          string(s.Status),
		PickupAddress:   s.PickupAddress,
		DeliveryAddress: s.DeliveryAddress,
		BasePrice:       s.BasePrice,
		InsuranceFee:    s.Insurance.Fee,
		Insured:         s.Insurance.Selected,
		DeliveryLocked:  s.DeliveryLocked,
		CreatedAt:       s.CreatedAt.Format(time.RFC3339),
	}
	if !s.DeliveredAt.IsZero() {
		resp.DeliveredAt = s.DeliveredAt.Format(time.RFC3339)
	}
	return resp
}

// Create handles POST /v1/shipments
func (h *ShipmentHandler) Create(c *gin.Context) {
	var req CreateShipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondJSON(c, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	shipment, err := h.shipmentService.CreateShipment(c.Request.Context(), service.CreateShipmentRequest{
		SenderID:           req.SenderID,
		PickupAddress:      req.PickupAddress,
		PickupLat:          req.PickupLat,
		PickupLng:          req.PickupLng,
		DeliveryAddress:    req.DeliveryAddress,
		DeliveryLat:        req.DeliveryLat,
		DeliveryLng:        req.DeliveryLng,
		PackageDescription: req.PackageDescription,
		PackageWeightKg:    req.PackageWeightKg,
		PackageValue:       req.PackageValue,
		WithInsurance:      req.WithInsurance,
		DeclaredValue:      req.DeclaredValue,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toShipmentResponse(shipment))
}

// Get handles GET /v1/shipments/:id
func (h *ShipmentHandler) Get(c *gin.Context) {
	shipment, err := h.shipmentService.GetShipment(c.Request.Context(), c.Param("id"), c.Query("sender_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toShipmentResponse(shipment))
}

// List handles GET /v1/shipments?sender_id=
func (h *ShipmentHandler) List(c *gin.Context) {
	shipments, err := h.shipmentService.ListSenderShipments(c.Request.Context(), c.Query("sender_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]ShipmentResponse, 0, len(shipments))
	for _, s := range shipments {
		response = append(response, toShipmentResponse(s))
	}
	respondJSON(c, http.StatusOK, response)
}

// CancelShipmentRequest is the HTTP request for cancelling a shipment.
type CancelShipmentRequest struct {
	SenderID string `json:"sender_id" binding:"required"`
}

// Cancel handles POST /v1/shipments/:id/cancel
func (h *ShipmentHandler) Cancel(c *gin.Context) {
	var req CancelShipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondJSON(c, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	shipment, err := h.shipmentService.CancelShipment(c.Request.Context(), c.Param("id"), req.SenderID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toShipmentResponse(shipment))
}

// DriverActionRequest identifies the driver performing a custody action.
type DriverActionRequest struct {
	DriverID string `json:"driver_id" binding:"required"`
}

// Pickup handles POST /v1/shipments/:id/pickup
func (h *ShipmentHandler) Pickup(c *gin.Context) {
	var req DriverActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondJSON(c, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	shipment, err := h.shipmentService.MarkInTransit(c.Request.Context(), c.Param("id"), req.DriverID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toShipmentResponse(shipment))
}

// ReportLost handles POST /v1/shipments/:id/lost
func (h *ShipmentHandler) ReportLost(c *gin.Context) {
	var req DriverActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondJSON(c, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	shipment, err := h.shipmentService.ReportLost(c.Request.Context(), c.Param("id"), req.DriverID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toShipmentResponse(shipment))
}

// VerifyCodeRequest is the HTTP request for delivery verification.
type VerifyCodeRequest struct {
	DriverID string `json:"driver_id" binding:"required"`
	Code     string `json:"code" binding:"required"`
}

// Deliver handles POST /v1/shipments/:id/deliver
func (h *ShipmentHandler) Deliver(c *gin.Context) {
	var req VerifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondJSON(c, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	shipment, err := h.deliveryService.VerifyCode(c.Request.Context(), service.VerifyCodeRequest{
		ShipmentID: c.Param("id"),
		DriverID:   req.DriverID,
		Code:       req.Code,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toShipmentResponse(shipment))
}

// CodeResponse carries the redisplayed delivery code.
type CodeResponse struct {
	Code      string `json:"code"`
	ExpiresAt string `json:"expires_at"`
}

// PeekCode handles GET /v1/shipments/:id/code?sender_id=
func (h *ShipmentHandler) PeekCode(c *gin.Context) {
	code, expiresAt, err := h.deliveryService.PeekCode(c.Request.Context(), c.Param("id"), c.Query("sender_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, CodeResponse{
		Code:      code,
		ExpiresAt: expiresAt.Format(time.RFC3339),
	})
}

// ResetCodeRequest identifies the sender requesting a fresh code.
type ResetCodeRequest struct {
	SenderID string `json:"sender_id" binding:"required"`
}

// ResetCode handles POST /v1/shipments/:id/code/reset
func (h *ShipmentHandler) ResetCode(c *gin.Context) {
	var req ResetCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondJSON(c, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	shipment, err := h.deliveryService.ResetCode(c.Request.Context(), c.Param("id"), req.SenderID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toShipmentResponse(shipment))
}

// UnlockRequest identifies the admin clearing a lockout.
type UnlockRequest struct {
	AdminID string `json:"admin_id" binding:"required"`
}

// Unlock handles POST /v1/shipments/:id/unlock
func (h *ShipmentHandler) Unlock(c *gin.Context) {
	var req UnlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondJSON(c, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	shipment, err := h.deliveryService.Unlock(c.Request.Context(), c.Param("id"), req.AdminID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toShipmentResponse(shipment))
}
