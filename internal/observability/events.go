package observability

import "time"

// EventEnvelope wraps websocket lifecycle events published to the broker.
type EventEnvelope struct {
	EventType  string      `json:"event_type"`
	EventName  string      `json:"event_name"`
	OccurredAt string      `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

// NewEnvelope stamps the envelope with the current time.
func NewEnvelope(eventType, eventName string, payload interface{}) EventEnvelope {
	return EventEnvelope{
		EventType:  eventType,
		EventName:  eventName,
		OccurredAt: time.Now().UTC().Format(time.RFC3339Nano),
		Payload:    payload,
	}
}

// BuildHeaders carries request correlation ids into the broker message.
func BuildHeaders(requestID, traceID string) map[string]string {
	headers := map[string]string{}
	if requestID != "" {
		headers["x-request-id"] = requestID
	}
	if traceID != "" {
		headers["trace_id"] = traceID
	}
	return headers
}
