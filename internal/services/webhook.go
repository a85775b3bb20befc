package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

type webhookPublisher interface {
	PublishEvent(eventType, companyID string, data map[string]interface{}) error
}

// WebhookService verifies and relays change events from the external
// platform (vendor.updated and friends) so downstream consumers can
// trigger a targeted re-sync.
type WebhookService interface {
	VerifySignature(payload []byte, signature string) bool
	ProcessWebhook(eventType string, data map[string]interface{}) error
}

type webhookService struct {
	secret    string
	publisher webhookPublisher
}

// NewWebhookService creates a new webhook service.
func NewWebhookService(secret string, publisher webhookPublisher) WebhookService {
	return &webhookService{
		secret:    secret,
		publisher: publisher,
	}
}

// VerifySignature verifies the webhook signature using HMAC-SHA256.
func (s *webhookService) VerifySignature(payload []byte, signature string) bool {
	if s.secret == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(s.secret))
	mac.Write(payload)
	expectedSig := hex.EncodeToString(mac.Sum(nil))

	// Use constant-time comparison to prevent timing attacks
	return subtle.ConstantTimeCompare([]byte(signature), []byte(expectedSig)) == 1
}

// ProcessWebhook relays the verified event to the broker. company_id is
// set when the webhook subscription is registered and must be present.
func (s *webhookService) ProcessWebhook(eventType string, data map[string]interface{}) error {
	companyID := extractString(data, "company_id", "")
	if companyID == "" {
		return fmt.Errorf("company_id is required in payload")
	}

	return s.publisher.PublishEvent("external."+eventType, companyID, data)
}

// extractString extracts a string value from a map.
func extractString(data map[string]interface{}, key, defaultVal string) string {
	if val, ok := data[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return defaultVal
}
