package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/nratax/nratax-api/internal/engine"
	"github.com/nratax/nratax-api/internal/rules"
)

// ComputationHandler handles tax computation operations
type ComputationHandler struct {
	common *CommonServices
}

// NewComputationHandler creates a new ComputationHandler instance
func NewComputationHandler(common *CommonServices) *ComputationHandler {
	return &ComputationHandler{common: common}
}

// ComputeRequest represents the request body for running a computation.
// The taxpayer snapshot and income items are validated by the engine, not
// here, so the API and any embedded caller reject inputs identically.
type ComputeRequest struct {
	RulesetVersion string                  `json:"ruleset_version" binding:"required"`
	Taxpayer       engine.TaxpayerSnapshot `json:"taxpayer" binding:"required"`
	Items          []engine.IncomeItem     `json:"items"`
}

// Compute runs the engine for a taxpayer year and stores the result.
// Responds 201 with the full computation, trace included.
func (h *ComputationHandler) Compute(c *gin.Context) {
	var req ComputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result, err := h.common.compute.Compute(c.Request.Context(), req.RulesetVersion, req.Taxpayer, req.Items)
	if err != nil {
		handleComputeError(c, err)
		return
	}

	sendSuccess(c, http.StatusCreated, result)
}

// handleComputeError maps engine and ruleset failures onto HTTP status
// codes. Bad input is the caller's fault; an ambiguous treaty match is an
// authoring defect in the ruleset and therefore a server error.
func handleComputeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, rules.ErrUnknownVersion):
		sendError(c, http.StatusBadRequest, "Unknown ruleset version", err)
	case engine.IsReason(err, engine.ReasonInvalidSnapshot):
		sendError(c, http.StatusBadRequest, "Invalid taxpayer snapshot", err)
	case engine.IsReason(err, engine.ReasonInvalidItem):
		sendError(c, http.StatusBadRequest, "Invalid income item", err)
	case engine.IsReason(err, engine.ReasonUnmappedIncomeType):
		sendError(c, http.StatusUnprocessableEntity, "Unsupported income type", err)
	case engine.IsReason(err, engine.ReasonAmbiguousTreatyMatch):
		sendError(c, http.StatusInternalServerError, "Ruleset defect: ambiguous treaty match", err)
	default:
		sendError(c, http.StatusInternalServerError, "Internal server error", err)
	}
}

// GetComputation returns a stored computation by id
func (h *ComputationHandler) GetComputation(c *gin.Context) {
	id, err := uuid.Parse(c.Param("computation_id"))
	if err != nil {
		sendError(c, http.StatusBadRequest, "Invalid computation ID format", err)
		return
	}

	result, err := h.common.compute.GetComputation(c.Request.Context(), id)
	if err != nil {
		handleStoreError(c, err, "Computation not found")
		return
	}

	sendSuccess(c, http.StatusOK, result)
}

// ListTaxpayerComputations returns a taxpayer's computation history,
// newest first, superseded results included
func (h *ComputationHandler) ListTaxpayerComputations(c *gin.Context) {
	taxpayerID, err := uuid.Parse(c.Param("taxpayer_id"))
	if err != nil {
		sendError(c, http.StatusBadRequest, "Invalid taxpayer ID format", err)
		return
	}

	results, err := h.common.compute.ListComputations(c.Request.Context(), taxpayerID)
	if err != nil {
		handleStoreError(c, err, "Taxpayer not found")
		return
	}
	if results == nil {
		results = []*engine.ComputationResult{}
	}

	sendList(c, results)
}
