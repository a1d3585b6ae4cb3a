// Package tracker implements the request lifecycle: enqueue, status
// transitions, and the reconciliation queries that make delivery of
// transitions effectively at-least-once.
package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/dukex/conductor/pkg/events"
	"github.com/dukex/conductor/pkg/models"
	"github.com/dukex/conductor/pkg/notify"
	"github.com/dukex/conductor/pkg/persistence"
	"github.com/dukex/conductor/pkg/telemetry"
)

// FollowUpScheduler receives resolved requests and schedules whatever
// dependent work the deployment needs. Injected so the tracker stays free of
// domain logic.
type FollowUpScheduler interface {
	Schedule(ctx context.Context, event events.NotificationEvent) error
}

// FollowUpFunc adapts a function to the FollowUpScheduler interface.
type FollowUpFunc func(ctx context.Context, event events.NotificationEvent) error

func (f FollowUpFunc) Schedule(ctx context.Context, event events.NotificationEvent) error {
	return f(ctx, event)
}

// Tracker coordinates request tickets. Status changes are persisted first
// and then published; the publish is best effort, the reconciliation sweep
// is the delivery guarantee.
type Tracker struct {
	requests  persistence.RequestRepository
	publisher notify.Publisher
	emitter   *telemetry.Emitter
	logger    *slog.Logger
	validate  *validator.Validate
	followUp  FollowUpScheduler
}

// NewTracker creates a tracker. followUp may be nil when the deployment has
// no dependent work to schedule.
func NewTracker(
	requests persistence.RequestRepository,
	publisher notify.Publisher,
	emitter *telemetry.Emitter,
	logger *slog.Logger,
	followUp FollowUpScheduler,
) *Tracker {
	return &Tracker{
		requests:  requests,
		publisher: publisher,
		emitter:   emitter,
		logger:    logger.With("module", "tracker"),
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		followUp:  followUp,
	}
}

// EnqueueAttrs are the caller-supplied fields of a new or re-submitted ticket.
type EnqueueAttrs struct {
	RequestType     string         `validate:"required"`
	ExternalKey     string         `validate:"required"`
	Payload         map[string]any
	Source          string
	SourceReference string
	Metadata        map[string]any
}

// Enqueue upserts a ticket keyed by external_key. Re-submitting the same key
// never creates a duplicate: the existing ticket is reset to pending with
// retry_at = now, and its last_error and resolution_payload are cleared.
func (t *Tracker) Enqueue(ctx context.Context, attrs EnqueueAttrs) (*models.Request, error) {
	err := t.validate.Struct(attrs)
	if err != nil {
		return nil, fmt.Errorf("invalid enqueue attributes: %w", err)
	}

	now := time.Now().UTC()

	request := &models.Request{
		ID:              uuid.New().String(),
		RequestType:     attrs.RequestType,
		ExternalKey:     attrs.ExternalKey,
		Payload:         attrs.Payload,
		Source:          attrs.Source,
		SourceReference: attrs.SourceReference,
		Status:          models.RequestStatusPending,
		RetryAt:         now,
		Metadata:        attrs.Metadata,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	stored, err := t.requests.Upsert(ctx, request)
	if err != nil {
		return nil, &persistence.RequestError{Op: "Enqueue", ExternalKey: attrs.ExternalKey, Err: err}
	}

	t.emitter.RequestEnqueued(ctx, stored.ID, stored.ExternalKey, stored.RequestType)
	t.logger.InfoContext(ctx, "Request enqueued", "request_id", stored.ID, "external_key", stored.ExternalKey)

	return stored, nil
}

// MarkInProgress transitions a pending ticket to in_progress.
func (t *Tracker) MarkInProgress(ctx context.Context, id string) (*models.Request, error) {
	return t.transition(ctx, id, func(request *models.Request) {
		request.Status = models.RequestStatusInProgress
	})
}

// MarkResolved transitions a ticket to resolved and records the resolution.
func (t *Tracker) MarkResolved(ctx context.Context, id string, resolutionPayload map[string]any) (*models.Request, error) {
	return t.transition(ctx, id, func(request *models.Request) {
		request.Status = models.RequestStatusResolved
		request.ResolutionPayload = resolutionPayload
		request.LastError = ""
	})
}

// FailOptions control MarkFailed. RetryAt schedules the ticket back into the
// due queue; a zero value leaves the ticket failed with retry_at = now.
type FailOptions struct {
	Error   string
	RetryAt time.Time
}

// MarkFailed transitions a ticket to failed. The ticket re-enters the due
// queue once opts.RetryAt passes.
func (t *Tracker) MarkFailed(ctx context.Context, id string, opts FailOptions) (*models.Request, error) {
	return t.transition(ctx, id, func(request *models.Request) {
		request.Status = models.RequestStatusFailed
		request.LastError = opts.Error

		if opts.RetryAt.IsZero() {
			request.RetryAt = time.Now().UTC()
		} else {
			request.RetryAt = opts.RetryAt
		}
	})
}

// transition loads, mutates, persists, and then publishes. The notification
// is fire-and-forget: a publish failure is logged but the transition stands,
// since the poll sweep re-surfaces it.
func (t *Tracker) transition(ctx context.Context, id string, mutate func(*models.Request)) (*models.Request, error) {
	request, err := t.requests.GetByID(ctx, id)
	if err != nil {
		return nil, &persistence.RequestError{Op: "Transition", RequestID: id, Err: err}
	}

	if request == nil {
		return nil, &persistence.RequestError{Op: "Transition", RequestID: id, Err: persistence.ErrRequestNotFound}
	}

	mutate(request)
	request.UpdatedAt = time.Now().UTC()

	err = t.requests.Save(ctx, request)
	if err != nil {
		return nil, &persistence.RequestError{Op: "Transition", RequestID: id, Err: err}
	}

	t.emitter.StatusChanged(ctx, request.ID, request.ExternalKey, string(request.Status))
	t.publish(ctx, request)

	return request, nil
}

func (t *Tracker) publish(ctx context.Context, request *models.Request) {
	if t.publisher == nil {
		return
	}

	event := events.FromRequest(request)

	payload, err := json.Marshal(event)
	if err != nil {
		t.logger.ErrorContext(ctx, "Failed to encode notification event", "error", err, "request_id", request.ID)

		return
	}

	err = t.publisher.Notify(ctx, events.RequestsChannel, payload)
	if err != nil {
		t.logger.WarnContext(ctx, "Failed to publish notification, poll sweep will recover",
			"error", err, "request_id", request.ID)
	}
}

// GetByID returns the ticket or a not-found error.
func (t *Tracker) GetByID(ctx context.Context, id string) (*models.Request, error) {
	request, err := t.requests.GetByID(ctx, id)
	if err != nil {
		return nil, &persistence.RequestError{Op: "GetByID", RequestID: id, Err: err}
	}

	if request == nil {
		return nil, &persistence.RequestError{Op: "GetByID", RequestID: id, Err: persistence.ErrRequestNotFound}
	}

	return request, nil
}

// DueForProcessing returns tickets in pending or failed whose retry_at has
// passed, FIFO by creation time, bounded by limit as a backpressure valve.
func (t *Tracker) DueForProcessing(ctx context.Context, limit int) ([]*models.Request, error) {
	return t.requests.DueForProcessing(ctx, limit)
}

// RecentlyResolved returns resolved tickets updated since the given time.
// Replaying these through DispatchEvent converts the at-most-once push
// channel into an effectively at-least-once system, bounded by the poll
// interval plus the poll window.
func (t *Tracker) RecentlyResolved(ctx context.Context, since time.Time) ([]*models.Request, error) {
	return t.requests.RecentlyResolved(ctx, since)
}
