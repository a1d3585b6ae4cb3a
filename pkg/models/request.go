package models

import "time"

// RequestStatus represents the lifecycle state of a request ticket.
type RequestStatus string

const (
	RequestStatusPending    RequestStatus = "pending"
	RequestStatusInProgress RequestStatus = "in_progress"
	RequestStatusResolved   RequestStatus = "resolved"
	RequestStatusFailed     RequestStatus = "failed"
)

// Request is a long-lived ticket for background work. ExternalKey is the
// caller-supplied idempotency key: re-submitting the same key resets the
// existing ticket instead of creating a duplicate. Tickets are never hard
// deleted; failed ones re-enter the due queue once RetryAt passes.
type Request struct {
	ID                string         `json:"id"`
	RequestType       string         `json:"request_type"     validate:"required"`
	ExternalKey       string         `json:"external_key"     validate:"required"`
	Payload           map[string]any `json:"payload,omitempty"`
	Source            string         `json:"source,omitempty"`
	SourceReference   string         `json:"source_reference,omitempty"`
	Status            RequestStatus  `json:"status"`
	RetryAt           time.Time      `json:"retry_at"`
	LastError         string         `json:"last_error,omitempty"`
	ResolutionPayload map[string]any `json:"resolution_payload,omitempty"`
	Metadata          map[string]any `json:"metadata,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}
