package backplane

import "context"

const (
	// RoomTopicPrefix scopes per-room broadcasts.
	RoomTopicPrefix = "chat:room:"
	// GlobalTopic carries events every instance must see regardless of room
	// subscriptions (message retractions).
	GlobalTopic = "chat:global"
)

func RoomTopic(roomID string) string {
	return RoomTopicPrefix + roomID
}

// Handler receives the raw payload published on a topic.
type Handler func(payload []byte)

// Backplane relays events between server instances. A payload published on a
// topic reaches every instance subscribed to it, including the publisher.
type Backplane interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Subscribe(topic string, handler Handler) error
	Unsubscribe(topic string) error
	Close() error
}
