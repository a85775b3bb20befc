package controllers

import (
	"encoding/json"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/juggajay/RiskSure.AI-sub002/internal/domains"
	"github.com/juggajay/RiskSure.AI-sub002/internal/services"
)

// WebhookHandler handles webhook HTTP requests from the external
// platform.
type WebhookHandler struct {
	service services.WebhookService
	log     *zap.Logger
}

func NewWebhookHandler(service services.WebhookService, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{service: service, log: log}
}

// HandleWebhook handles POST /hook
func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	signature := r.Header.Get("X-Webhook-Signature")
	eventType := r.Header.Get("X-Webhook-Event")

	if signature == "" {
		respondError(w, http.StatusUnauthorized, "missing_signature", "X-Webhook-Signature header is required")
		return
	}
	if eventType == "" {
		respondError(w, http.StatusBadRequest, "missing_event_type", "X-Webhook-Event header is required")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", "Failed to read request body")
		return
	}
	defer r.Body.Close()

	if !h.service.VerifySignature(body, signature) {
		respondError(w, http.StatusUnauthorized, "invalid_signature", "Webhook signature verification failed")
		return
	}

	var payload domains.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_json", "Failed to parse request body")
		return
	}

	if err := h.service.ProcessWebhook(eventType, payload.Data); err != nil {
		h.log.Warn("failed to process webhook", zap.String("event_type", eventType), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "process_failed", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, domains.WebhookResponse{
		Success: true,
		Message: "Webhook received and published",
	})
}

// HandleHealth handles GET /health
func (h *WebhookHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
