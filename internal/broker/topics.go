package broker

import "strings"

// Topic layout:
//   events/{event_type}       adapter -> interested services
//   requests/{action}         trusted services -> adapter
//   responses/{request_id}    adapter -> requesting service

func EventTopic(eventType string) string {
	return "events/" + eventType
}

func ResponseTopic(requestID string) string {
	return "responses/" + requestID
}

// ParseEventTopic parses an event topic back to its event type.
func ParseEventTopic(topic string) (eventType string, ok bool) {
	parts := strings.SplitN(topic, "/", 2)
	if len(parts) != 2 || parts[0] != "events" {
		return "", false
	}
	return parts[1], true
}
