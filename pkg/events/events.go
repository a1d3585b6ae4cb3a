// Package events defines the notification wire schema for request lifecycle
// transitions.
package events

import (
	"encoding/json"
	"time"

	"github.com/dukex/conductor/pkg/models"
)

// RequestsChannel is the notification channel carrying request transitions.
const RequestsChannel = "conductor.requests"

// NotificationEvent mirrors the public fields of a request ticket. The field
// set is a wire contract shared with external consumers; do not rename or
// drop fields.
type NotificationEvent struct {
	ID                string               `json:"id"`
	Status            models.RequestStatus `json:"status"`
	RequestType       string               `json:"request_type"`
	ExternalKey       string               `json:"external_key"`
	Source            string               `json:"source"`
	SourceReference   string               `json:"source_reference"`
	Payload           map[string]any       `json:"payload"`
	ResolutionPayload map[string]any       `json:"resolution_payload"`
	UpdatedAt         time.Time            `json:"updated_at"`
}

// FromRequest builds the notification event for a request's current state.
func FromRequest(request *models.Request) NotificationEvent {
	return NotificationEvent{
		ID:                request.ID,
		Status:            request.Status,
		RequestType:       request.RequestType,
		ExternalKey:       request.ExternalKey,
		Source:            request.Source,
		SourceReference:   request.SourceReference,
		Payload:           request.Payload,
		ResolutionPayload: request.ResolutionPayload,
		UpdatedAt:         request.UpdatedAt,
	}
}

// Decode parses a notification payload received from the bus.
func Decode(payload []byte) (NotificationEvent, error) {
	var event NotificationEvent

	err := json.Unmarshal(payload, &event)

	return event, err
}
