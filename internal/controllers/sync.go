package controllers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/juggajay/RiskSure.AI-sub002/internal/services"
)

// SyncHandler exposes the sync engine over HTTP. Handlers only decode,
// validate and encode; authentication sits in front of the adapter.
type SyncHandler struct {
	engine *services.SyncEngine
	log    *zap.Logger
}

func NewSyncHandler(engine *services.SyncEngine, log *zap.Logger) *SyncHandler {
	return &SyncHandler{engine: engine, log: log}
}

type syncVendorsRequest struct {
	CompanyID      string  `json:"company_id"`
	VendorIDs      []int64 `json:"vendor_ids"`
	ProjectID      int64   `json:"project_id"`
	UpdateExisting bool    `json:"update_existing"`
	SkipDuplicates bool    `json:"skip_duplicates"`
	MergeExisting  bool    `json:"merge_existing"`
}

type syncProjectsRequest struct {
	CompanyID      string  `json:"company_id"`
	ProjectIDs     []int64 `json:"project_ids"`
	UpdateExisting bool    `json:"update_existing"`
}

// HandleSyncVendors handles POST /api/sync/vendors
func (h *SyncHandler) HandleSyncVendors(w http.ResponseWriter, r *http.Request) {
	var req syncVendorsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_json", "Failed to parse request body")
		return
	}

	result, err := h.engine.SyncVendors(r.Context(), req.CompanyID, req.VendorIDs, services.SyncOptions{
		UpdateExisting: req.UpdateExisting,
		SkipDuplicates: req.SkipDuplicates,
		MergeExisting:  req.MergeExisting,
		ProjectID:      req.ProjectID,
	})
	if err != nil {
		h.log.Warn("vendor sync failed", zap.String("company_id", req.CompanyID), zap.Error(err))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// HandleSyncProjects handles POST /api/sync/projects
func (h *SyncHandler) HandleSyncProjects(w http.ResponseWriter, r *http.Request) {
	var req syncProjectsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_json", "Failed to parse request body")
		return
	}

	result, err := h.engine.SyncProjects(r.Context(), req.CompanyID, req.ProjectIDs, services.SyncOptions{
		UpdateExisting: req.UpdateExisting,
	})
	if err != nil {
		h.log.Warn("project sync failed", zap.String("company_id", req.CompanyID), zap.Error(err))
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}
