package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/juggajay/RiskSure.AI-sub002/internal/domains"
	"github.com/juggajay/RiskSure.AI-sub002/internal/services"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, domains.ErrorResponse{
		Error:   code,
		Message: message,
	})
}

// respondServiceError maps the service error taxonomy onto HTTP statuses.
func respondServiceError(w http.ResponseWriter, err error) {
	var notFound *services.NotFoundError
	var validation *services.ValidationError

	switch {
	case errors.As(err, &validation):
		respondError(w, http.StatusBadRequest, "bad_request", err.Error())
	case errors.As(err, &notFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, services.ErrNotConnected):
		respondError(w, http.StatusConflict, "not_connected", err.Error())
	case errors.Is(err, services.ErrPendingCompanySelection):
		respondError(w, http.StatusConflict, "pending_company_selection", err.Error())
	case errors.Is(err, services.ErrReauthorizationRequired):
		respondError(w, http.StatusUnauthorized, "reauthorization_required", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
