package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"shipmate/internal/domain"
	"shipmate/internal/service"
)

// InsuranceHandler handles HTTP requests for insurance claims.
type InsuranceHandler struct {
	insuranceService *service.InsuranceService
}

// NewInsuranceHandler creates a new InsuranceHandler.
func NewInsuranceHandler(insuranceService *service.InsuranceService) *InsuranceHandler {
	return &InsuranceHandler{insuranceService: insuranceService}
}

// ClaimResponse is the HTTP response for claim operations.
type ClaimResponse struct {
	ClaimID        string `json:"claim_id"`
	ShipmentID     string `json:"shipment_id"`
	Reason         string `json:"reason"`
	Status         string `json:"status"`
	DeclaredValue  int64  `json:"declared_value_cents"`
	CoverageAmount int64  `json:"coverage_amount_cents"`
	Compensation   int64  `json:"compensation_cents,omitempty"`
	AdminNotes     string `json:"admin_notes,omitempty"`
	ResolvedAt     string `json:"resolved_at,omitempty"`
	CreatedAt      string `json:"created_at"`
}

func toClaimResponse(claim *domain.InsuranceClaim) ClaimResponse {
	resp := ClaimResponse{
		ClaimID:        claim.ID,
		ShipmentID:     claim.ShipmentID,
		Reason:         string(claim.Reason),
		Status:         string(claim.Status),
		DeclaredValue:  claim.DeclaredValue,
		CoverageAmount: claim.CoverageAmount,
		Compensation:   claim.CompensationAmount,
		AdminNotes:     claim.AdminNotes,
		CreatedAt:      claim.CreatedAt.Format(time.RFC3339),
	}
	if !claim.ResolvedAt.IsZero() {
		resp.ResolvedAt = claim.ResolvedAt.Format(time.RFC3339)
	}
	return resp
}

// FileClaimRequest is the HTTP request for filing a claim.
type FileClaimRequest struct {
	ShipmentID  string `json:"shipment_id" binding:"required"`
	ClaimantID  string `json:"claimant_id" binding:"required"`
	Reason      string `json:"reason" binding:"required"`
	Description string `json:"description"`
}

// File handles POST /v1/claims
func (h *InsuranceHandler) File(c *gin.Context) {
	var req FileClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondJSON(c, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	claim, err := h.insuranceService.FileClaim(c.Request.Context(), service.FileClaimRequest{
		ShipmentID:  req.ShipmentID,
		ClaimantID:  req.ClaimantID,
		Reason:      domain.ClaimReason(req.Reason),
		Description: req.Description,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusCreated, toClaimResponse(claim))
}

// Get handles GET /v1/claims/:id?claimant_id=
func (h *InsuranceHandler) Get(c *gin.Context) {
	claim, err := h.insuranceService.GetClaim(c.Request.Context(), c.Param("id"), c.Query("claimant_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toClaimResponse(claim))
}

// ListOpen handles GET /v1/claims
func (h *InsuranceHandler) ListOpen(c *gin.Context) {
	claims, err := h.insuranceService.ListOpenClaims(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]ClaimResponse, 0, len(claims))
	for _, claim := range claims {
		response = append(response, toClaimResponse(claim))
	}
	respondJSON(c, http.StatusOK, response)
}

// AdminActionRequest identifies the admin acting on a claim.
type AdminActionRequest struct {
	AdminID string `json:"admin_id" binding:"required"`
}

// StartReview handles POST /v1/claims/:id/review
func (h *InsuranceHandler) StartReview(c *gin.Context) {
	var req AdminActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondJSON(c, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	claim, err := h.insuranceService.StartReview(c.Request.Context(), c.Param("id"), req.AdminID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toClaimResponse(claim))
}

// ResolveClaimRequest is the HTTP request for resolving a claim.
type ResolveClaimRequest struct {
	AdminID string `json:"admin_id" binding:"required"`
	Approve bool   `json:"approve"`
	Notes   string `json:"notes"`
}

// Resolve handles POST /v1/claims/:id/resolve
func (h *InsuranceHandler) Resolve(c *gin.Context) {
	var req ResolveClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondJSON(c, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	claim, err := h.insuranceService.ResolveClaim(c.Request.Context(), service.ResolveClaimRequest{
		ClaimID: c.Param("id"),
		AdminID: req.AdminID,
		Approve: req.Approve,
		Notes:   req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toClaimResponse(claim))
}
