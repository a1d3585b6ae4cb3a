package notify

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// WatermillBus adapts a watermill publisher/subscriber pair to the Bus
// interface. The notification channel name is used as the watermill topic.
type WatermillBus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
}

func NewWatermillBus(pub message.Publisher, sub message.Subscriber) *WatermillBus {
	return &WatermillBus{
		publisher:  pub,
		subscriber: sub,
	}
}

// Notify publishes a payload to the channel. Delivery is at-most-once:
// there is no retry and no confirmation that any subscriber saw it.
func (b *WatermillBus) Notify(ctx context.Context, channel string, payload []byte) error {
	msg := message.NewMessage("msg-"+watermill.NewULID(), payload)

	return b.publisher.Publish(channel, msg)
}

// Listen subscribes to a channel. Messages are acked on receipt, before the
// consumer processes them, which is what keeps the contract at-most-once.
func (b *WatermillBus) Listen(ctx context.Context, channel string) (<-chan Notification, error) {
	messages, err := b.subscriber.Subscribe(ctx, channel)
	if err != nil {
		return nil, err
	}

	out := make(chan Notification)

	go func() {
		defer close(out)

		for msg := range messages {
			msg.Ack()

			select {
			case out <- Notification{Channel: channel, Payload: msg.Payload}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

func (b *WatermillBus) Close() error {
	err := b.publisher.Close()
	if err != nil {
		return err
	}

	return b.subscriber.Close()
}
