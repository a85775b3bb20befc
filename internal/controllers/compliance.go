package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/juggajay/RiskSure.AI-sub002/internal/services"
)

type ComplianceHandler struct {
	service *services.ComplianceService
	log     *zap.Logger
}

func NewComplianceHandler(service *services.ComplianceService, log *zap.Logger) *ComplianceHandler {
	return &ComplianceHandler{service: service, log: log}
}

type pushComplianceRequest struct {
	CompanyID      string `json:"company_id"`
	VerificationID string `json:"verification_id"`
}

// HandlePush handles POST /api/subcontractors/{id}/compliance/push
func (h *ComplianceHandler) HandlePush(w http.ResponseWriter, r *http.Request) {
	subcontractorID := mux.Vars(r)["id"]

	var req pushComplianceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_json", "Failed to parse request body")
		return
	}

	result, err := h.service.PushCompliance(r.Context(), req.CompanyID, subcontractorID, req.VerificationID)
	if err != nil {
		h.log.Warn("compliance push failed",
			zap.String("company_id", req.CompanyID),
			zap.String("subcontractor_id", subcontractorID),
			zap.Error(err))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// HandleHistory handles GET /api/subcontractors/{id}/compliance/history
func (h *ComplianceHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	subcontractorID := mux.Vars(r)["id"]
	companyID := r.URL.Query().Get("company_id")

	records, err := h.service.GetPushHistory(r.Context(), companyID, subcontractorID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"history": records,
		"count":   len(records),
	})
}
