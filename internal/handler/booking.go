package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"shipmate/internal/domain"
	"shipmate/internal/service"
)

// BookingHandler handles HTTP requests for bookings.
type BookingHandler struct {
	bookingService  *service.BookingService
	matchingService *service.MatchingService
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(bookingService *service.BookingService, matchingService *service.MatchingService) *BookingHandler {
	return &BookingHandler{bookingService: bookingService, matchingService: matchingService}
}

// BookingResponse is the HTTP response for booking operations.
type BookingResponse struct {
	BookingID          string             `json:"booking_id"`
	DriverID           string             `json:"driver_id"`
	Status             string             `json:"status"`
	TotalPrice         int64              `json:"total_price_cents"`
	PlatformCommission int64              `json:"platform_commission_cents"`
	DriverEarnings     int64              `json:"driver_earnings_cents"`
	Shipments          []ShipmentResponse `json:"shipments,omitempty"`
	CreatedAt          string             `json:"created_at"`
}

func toBookingResponse(b *domain.Booking, shipments []*domain.Shipment) BookingResponse {
	resp := BookingResponse{
		BookingID:          b.ID,
		DriverID:           b.DriverID,
		Status:             string(b.Status),
		TotalPrice:         b.TotalPrice,
		PlatformCommission: b.PlatformCommission,
		DriverEarnings:     b.DriverEarnings,
		CreatedAt:          b.CreatedAt.Format(time.RFC3339),
	}
	for _, s := range shipments {
		resp.Shipments = append(resp.Shipments, toShipmentResponse(s))
	}
	return resp
}

// CreateBookingRequest is the HTTP request for creating a booking.
type CreateBookingRequest struct {
	DriverID    string   `json:"driver_id" binding:"required"`
	ShipmentIDs []string `json:"shipment_ids" binding:"required"`
}

// Create handles POST /v1/bookings
func (h *BookingHandler) Create(c *gin.Context) {
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondJSON(c, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	booking, err := h.bookingService.CreateBooking(c.Request.Context(), service.CreateBookingRequest{
		DriverID:    req.DriverID,
		ShipmentIDs: req.ShipmentIDs,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toBookingResponse(booking, nil))
}

// Confirm handles POST /v1/bookings/:id/confirm
func (h *BookingHandler) Confirm(c *gin.Context) {
	var req DriverActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondJSON(c, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	booking, err := h.bookingService.ConfirmBooking(c.Request.Context(), c.Param("id"), req.DriverID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toBookingResponse(booking, nil))
}

// Start handles POST /v1/bookings/:id/start
func (h *BookingHandler) Start(c *gin.Context) {
	var req DriverActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondJSON(c, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	booking, err := h.bookingService.StartBooking(c.Request.Context(), c.Param("id"), req.DriverID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toBookingResponse(booking, nil))
}

// Complete handles POST /v1/bookings/:id/complete
func (h *BookingHandler) Complete(c *gin.Context) {
	var req DriverActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondJSON(c, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	booking, err := h.bookingService.CompleteBooking(c.Request.Context(), c.Param("id"), req.DriverID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toBookingResponse(booking, nil))
}

// Cancel handles POST /v1/bookings/:id/cancel
func (h *BookingHandler) Cancel(c *gin.Context) {
	var req DriverActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondJSON(c, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	booking, err := h.bookingService.CancelBooking(c.Request.Context(), c.Param("id"), req.DriverID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toBookingResponse(booking, nil))
}

// Get handles GET /v1/bookings/:id?driver_id=
func (h *BookingHandler) Get(c *gin.Context) {
	booking, shipments, err := h.bookingService.GetBooking(c.Request.Context(), c.Param("id"), c.Query("driver_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toBookingResponse(booking, shipments))
}

// List handles GET /v1/bookings?driver_id=
func (h *BookingHandler) List(c *gin.Context) {
	bookings, err := h.bookingService.ListDriverBookings(c.Request.Context(), c.Query("driver_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		response = append(response, toBookingResponse(b, nil))
	}
	respondJSON(c, http.StatusOK, response)
}

// CandidateResponse is one open shipment suggested to a driver.
type CandidateResponse struct {
	Shipment ShipmentResponse `json:"shipment"`
	PickupKm float64          `json:"pickup_km"`
}

// Candidates handles GET /v1/bookings/candidates?driver_id=
func (h *BookingHandler) Candidates(c *gin.Context) {
	candidates, err := h.matchingService.FindCandidates(c.Request.Context(), c.Query("driver_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]CandidateResponse, 0, len(candidates))
	for _, cand := range candidates {
		response = append(response, CandidateResponse{
			Shipment: toShipmentResponse(cand.Shipment),
			PickupKm: cand.PickupKm,
		})
	}
	respondJSON(c, http.StatusOK, response)
}
