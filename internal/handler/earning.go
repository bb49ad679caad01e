package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"shipmate/internal/domain"
	"shipmate/internal/service"
)

// EarningHandler handles HTTP requests for the driver earnings ledger.
type EarningHandler struct {
	earningService *service.EarningService
}

// NewEarningHandler creates a new EarningHandler.
func NewEarningHandler(earningService *service.EarningService) *EarningHandler {
	return &EarningHandler{earningService: earningService}
}

// EarningResponse is one ledger line in HTTP form.
type EarningResponse struct {
	EarningID    string `json:"earning_id"`
	ShipmentID   string `json:"shipment_id"`
	PaymentID    string `json:"payment_id"`
	EarningType  string `json:"earning_type"`
	Gross        int64  `json:"gross_cents"`
	Commission   int64  `json:"commission_cents"`
	Net          int64  `json:"net_cents"`
	PayoutStatus string `json:"payout_status"`
	CreatedAt    string `json:"created_at"`
}

func toEarningResponse(e *domain.DriverEarning) EarningResponse {
	return EarningResponse{
		EarningID:    e.ID,
		ShipmentID:   e.ShipmentID,
		PaymentID:    e.PaymentID,
		EarningType:  string(e.EarningType),
		Gross:        e.GrossAmount,
		Commission:   e.CommissionAmount,
		Net:          e.NetAmount,
		PayoutStatus: string(e.PayoutStatus),
		CreatedAt:    e.CreatedAt.Format(time.RFC3339),
	}
}

// List handles GET /v1/drivers/:id/earnings
func (h *EarningHandler) List(c *gin.Context) {
	earnings, err := h.earningService.ListDriverEarnings(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]EarningResponse, 0, len(earnings))
	for _, e := range earnings {
		response = append(response, toEarningResponse(e))
	}
	respondJSON(c, http.StatusOK, response)
}

// SummaryResponse aggregates a driver's ledger in HTTP form.
type SummaryResponse struct {
	TotalGross      int64 `json:"total_gross_cents"`
	TotalCommission int64 `json:"total_commission_cents"`
	TotalNet        int64 `json:"total_net_cents"`
	TotalPending    int64 `json:"total_pending_cents"`
	TotalPaid       int64 `json:"total_paid_cents"`
}

// Summary handles GET /v1/drivers/:id/earnings/summary
func (h *EarningHandler) Summary(c *gin.Context) {
	summary, err := h.earningService.GetSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, SummaryResponse{
		TotalGross:      summary.TotalGross,
		TotalCommission: summary.TotalCommission,
		TotalNet:        summary.TotalNet,
		TotalPending:    summary.TotalPending,
		TotalPaid:       summary.TotalPaid,
	})
}

// MarkPaid handles POST /v1/earnings/:id/payout
func (h *EarningHandler) MarkPaid(c *gin.Context) {
	earning, err := h.earningService.MarkPaid(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toEarningResponse(earning))
}

// PayoutBatchRequest names the ledger lines of one payout run.
type PayoutBatchRequest struct {
	EarningIDs []string `json:"earning_ids" binding:"required"`
}

// MarkPaidBatch handles POST /v1/earnings/payout
func (h *EarningHandler) MarkPaidBatch(c *gin.Context) {
	var req PayoutBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondJSON(c, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	earnings, err := h.earningService.MarkPaidBatch(c.Request.Context(), req.EarningIDs)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]EarningResponse, 0, len(earnings))
	for _, e := range earnings {
		response = append(response, toEarningResponse(e))
	}
	respondJSON(c, http.StatusOK, response)
}
