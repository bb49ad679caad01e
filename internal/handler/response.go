package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"shipmate/internal/repository"
	"shipmate/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidSenderID),
		errors.Is(err, service.ErrInvalidDriverID),
		errors.Is(err, service.ErrInvalidShipmentID),
		errors.Is(err, service.ErrInvalidBookingID),
		errors.Is(err, service.ErrInvalidPaymentID),
		errors.Is(err, service.ErrInvalidAddress),
		errors.Is(err, service.ErrInvalidLocation),
		errors.Is(err, service.ErrInvalidWeight),
		errors.Is(err, service.ErrInvalidDeclaredValue),
		errors.Is(err, service.ErrInvalidCodeFormat),
		errors.Is(err, service.ErrNoShipmentsSelected),
		errors.Is(err, service.ErrInvalidClaimReason):
		return http.StatusBadRequest

	// Conflict errors - operation not valid in current state
	case errors.Is(err, service.ErrShipmentNotAvailable),
		errors.Is(err, service.ErrShipmentNotAssigned),
		errors.Is(err, service.ErrShipmentNotInTransit),
		errors.Is(err, service.ErrShipmentNotCancellable),
		errors.Is(err, service.ErrBookingNotPending),
		errors.Is(err, service.ErrBookingNotConfirmed),
		errors.Is(err, service.ErrBookingNotInProgress),
		errors.Is(err, service.ErrBookingNotCancellable),
		errors.Is(err, service.ErrShipmentsUnfinished),
		errors.Is(err, service.ErrDriverHasActiveBooking),
		errors.Is(err, service.ErrTooManyShipments),
		errors.Is(err, service.ErrPickupTooFar),
		errors.Is(err, service.ErrTripTooLong),
		errors.Is(err, service.ErrStaleDriverLocation),
		errors.Is(err, service.ErrPaymentNotSettled),
		errors.Is(err, service.ErrPaymentTransition),
		errors.Is(err, service.ErrCodeNotIssued),
		errors.Is(err, service.ErrCodeAlreadyVerified),
		errors.Is(err, service.ErrCodeExpired),
		errors.Is(err, service.ErrDeliveryNotLocked),
		errors.Is(err, service.ErrShipmentBusy),
		errors.Is(err, service.ErrBookingBusy),
		errors.Is(err, service.ErrShipmentNotInsured),
		errors.Is(err, service.ErrShipmentNotClaimable),
		errors.Is(err, service.ErrClaimAlreadyExists),
		errors.Is(err, service.ErrClaimWindowClosed),
		errors.Is(err, service.ErrClaimNotOpen):
		return http.StatusConflict

	// Forbidden - actor is not allowed to touch the resource
	case errors.Is(err, service.ErrNotShipmentOwner),
		errors.Is(err, service.ErrNotBookingDriver):
		return http.StatusForbidden

	// Security failures. The lockout is 423 so clients can tell "stop
	// retrying" apart from "wrong code".
	case errors.Is(err, service.ErrCodeMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrDeliveryLocked):
		return http.StatusLocked
	case errors.Is(err, service.ErrWebhookSignature):
		return http.StatusUnauthorized

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
