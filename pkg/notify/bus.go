// Package notify provides channel-based publish/subscribe with at-most-once
// delivery. Because a disconnected or lagging subscriber silently misses
// events, the request table remains the system of record; the reconciliation
// sweep re-surfaces anything lost here.
package notify

import "context"

// Notification is a raw payload received on a channel.
type Notification struct {
	Channel string
	Payload []byte
}

// Publisher publishes fire-and-forget notifications.
type Publisher interface {
	Notify(ctx context.Context, channel string, payload []byte) error
}

// Subscriber receives notifications for a channel. The returned channel is
// closed when the subscription ends, which listeners use to resubscribe.
type Subscriber interface {
	Listen(ctx context.Context, channel string) (<-chan Notification, error)
}

// Bus combines publish and subscribe over one transport.
type Bus interface {
	Publisher
	Subscriber
	Close() error
}
