package domains

import (
	"time"

	"github.com/google/uuid"
)

// WebhookPayload is the event body delivered by the external platform.
type WebhookPayload struct {
	EventType string                 `json:"event_type"`
	Timestamp string                 `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// EventMessage is what the adapter publishes to the broker when something
// happened: a sync run finished, a compliance status was pushed, or the
// external platform reported a change.
type EventMessage struct {
	EventID   string                 `json:"event_id"`
	EventType string                 `json:"event_type"`
	Timestamp string                 `json:"timestamp"`
	CompanyID string                 `json:"company_id"`
	Data      map[string]interface{} `json:"data"`
}

func NewEventMessage(eventType, companyID string, data map[string]interface{}) *EventMessage {
	return &EventMessage{
		EventID:   uuid.NewString(),
		EventType: eventType,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		CompanyID: companyID,
		Data:      data,
	}
}

// WebhookResponse is the acknowledgement returned to the platform.
type WebhookResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ErrorResponse is the error body for HTTP handlers.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
