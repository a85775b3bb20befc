package controllers

import (
	"encoding/json"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/juggajay/RiskSure.AI-sub002/internal/services"
)

type OAuthHandler struct {
	service *services.OAuthService
	appURL  string
	log     *zap.Logger
}

func NewOAuthHandler(service *services.OAuthService, appURL string, log *zap.Logger) *OAuthHandler {
	return &OAuthHandler{
		service: service,
		appURL:  appURL,
		log:     log,
	}
}

// HandleCallback handles GET /oauth/callback
// The state parameter carries the RiskSure company id the flow was
// started for.
func (h *OAuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	companyID := r.URL.Query().Get("state")

	if code == "" {
		h.redirect(w, r, false, "missing authorization code")
		return
	}
	if companyID == "" {
		h.redirect(w, r, false, "missing state")
		return
	}

	if _, err := h.service.ExchangeCode(r.Context(), companyID, code); err != nil {
		h.log.Warn("token exchange failed", zap.String("company_id", companyID), zap.Error(err))
		h.redirect(w, r, false, "token exchange failed")
		return
	}

	h.redirect(w, r, true, "")
}

type selectCompanyRequest struct {
	CompanyID           string `json:"company_id"`
	ExternalCompanyID   string `json:"external_company_id"`
	ExternalCompanyName string `json:"external_company_name"`
}

// HandleSelectCompany handles POST /api/oauth/select-company
func (h *OAuthHandler) HandleSelectCompany(w http.ResponseWriter, r *http.Request) {
	var req selectCompanyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_json", "Failed to parse request body")
		return
	}

	err := h.service.SelectCompany(r.Context(), req.CompanyID, req.ExternalCompanyID, req.ExternalCompanyName)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type disconnectRequest struct {
	CompanyID string `json:"company_id"`
}

// HandleDisconnect handles POST /api/oauth/disconnect
func (h *OAuthHandler) HandleDisconnect(w http.ResponseWriter, r *http.Request) {
	var req disconnectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_json", "Failed to parse request body")
		return
	}

	if err := h.service.Disconnect(r.Context(), req.CompanyID); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *OAuthHandler) redirect(w http.ResponseWriter, r *http.Request, success bool, errMsg string) {
	if h.appURL == "" {
		// No app URL configured, return JSON
		if success {
			respondJSON(w, http.StatusOK, map[string]bool{"success": true})
		} else {
			respondError(w, http.StatusBadRequest, "oauth_failed", errMsg)
		}
		return
	}

	redirectURL := h.appURL + "/settings/integrations?"
	if success {
		redirectURL += "connected=true"
	} else {
		redirectURL += "error=" + url.QueryEscape(errMsg)
	}

	http.Redirect(w, r, redirectURL, http.StatusFound)
}
