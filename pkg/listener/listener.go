// Package listener runs the reconciliation loop: it consumes push
// notifications and independently sweeps the request table on a timer, so
// state transitions reach handlers even when the notification channel fails
// entirely.
package listener

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dukex/conductor/pkg/events"
	"github.com/dukex/conductor/pkg/notify"
	"github.com/dukex/conductor/pkg/resilience"
	"github.com/dukex/conductor/pkg/telemetry"
	"github.com/dukex/conductor/pkg/tracker"
)

// Config holds the reconciliation knobs.
type Config struct {
	// PollInterval is the sweep cadence.
	PollInterval time.Duration
	// PollWindow is the lookback for the recently-resolved resync. It must
	// comfortably exceed PollInterval so no transition falls between sweeps.
	PollWindow time.Duration
	// DueLimit bounds the due-ticket query per sweep.
	DueLimit int
}

// DefaultConfig returns the reconciliation defaults.
func DefaultConfig() Config {
	return Config{
		PollInterval: 30 * time.Second,
		PollWindow:   5 * time.Minute,
		DueLimit:     100,
	}
}

// Listener subscribes to the notification bus and runs the periodic poll
// sweep against the tracker.
type Listener struct {
	subscriber  notify.Subscriber
	tracker     *tracker.Tracker
	emitter     *telemetry.Emitter
	logger      *slog.Logger
	config      Config
	cron        *cron.Cron
	retryPolicy resilience.RetryPolicy
}

// NewListener creates a listener. Zero-valued config fields fall back to the
// defaults.
func NewListener(
	subscriber notify.Subscriber,
	trk *tracker.Tracker,
	emitter *telemetry.Emitter,
	logger *slog.Logger,
	config Config,
) *Listener {
	defaults := DefaultConfig()

	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}

	if config.PollWindow <= 0 {
		config.PollWindow = defaults.PollWindow
	}

	if config.DueLimit <= 0 {
		config.DueLimit = defaults.DueLimit
	}

	return &Listener{
		subscriber:  subscriber,
		tracker:     trk,
		emitter:     emitter,
		logger:      logger.With("module", "listener"),
		config:      config,
		cron:        cron.New(),
		retryPolicy: resilience.DefaultRetryPolicy(),
	}
}

// Start launches the consume loop and the poll schedule. It returns once
// both are running; Stop shuts the schedule down.
func (l *Listener) Start(ctx context.Context) error {
	go l.consume(ctx)

	_, err := l.cron.AddFunc(fmt.Sprintf("@every %s", l.config.PollInterval), func() {
		l.Sweep(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule poll sweep: %w", err)
	}

	l.cron.Start()
	l.logger.InfoContext(ctx, "Reconciliation listener started",
		"poll_interval", l.config.PollInterval,
		"poll_window", l.config.PollWindow,
	)

	return nil
}

// Stop halts the poll schedule and waits for a running sweep to finish.
func (l *Listener) Stop() {
	stopCtx := l.cron.Stop()
	<-stopCtx.Done()
}

// consume subscribes and forwards notifications to the tracker. A closed
// subscription channel means the transport dropped us; we resubscribe
// immediately with a warning. Only context cancellation ends the loop.
func (l *Listener) consume(ctx context.Context) {
	for ctx.Err() == nil {
		notifications, err := l.subscribe(ctx)
		if err != nil {
			return
		}

		for notification := range notifications {
			l.tracker.HandleNotification(ctx, notification.Payload)
		}

		if ctx.Err() == nil {
			l.logger.WarnContext(ctx, "Notification subscription lost, resubscribing")
		}
	}
}

// subscribe keeps attempting Listen until it succeeds or ctx is cancelled.
// There is no attempt cap: the push channel must come back whenever the
// transport does, and the poll sweep covers the gap until then. The delay
// between attempts follows the retry policy's backoff, capped at its
// MaxDelay.
func (l *Listener) subscribe(ctx context.Context) (<-chan notify.Notification, error) {
	for attempt := 0; ; attempt++ {
		notifications, err := l.subscriber.Listen(ctx, events.RequestsChannel)
		if err == nil {
			return notifications, nil
		}

		l.logger.WarnContext(ctx, "Failed to subscribe to notification channel",
			"attempt", attempt+1, "error", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retryPolicy.Delay(attempt)):
		}
	}
}

// Sweep runs one reconciliation cycle: due tickets are surfaced for
// visibility only, since actioning them is the owning service's job, and
// recently resolved tickets are replayed through the dispatcher to cover
// any notification the push channel dropped.
func (l *Listener) Sweep(ctx context.Context) {
	due, err := l.tracker.DueForProcessing(ctx, l.config.DueLimit)
	if err != nil {
		l.logger.ErrorContext(ctx, "Due-ticket query failed", "error", err)

		due = nil
	} else if len(due) > 0 {
		l.logger.InfoContext(ctx, "Tickets awaiting processing", "count", len(due))
	}

	since := time.Now().Add(-l.config.PollWindow)

	resolved, err := l.tracker.RecentlyResolved(ctx, since)
	if err != nil {
		l.logger.ErrorContext(ctx, "Recently-resolved query failed", "error", err)

		resolved = nil
	}

	for _, request := range resolved {
		l.tracker.DispatchEvent(ctx, events.FromRequest(request))
	}

	l.emitter.PollCycleCompleted(ctx, len(due), len(resolved))
	l.logger.DebugContext(ctx, "Poll cycle completed", "pending", len(due), "resolved", len(resolved))
}
