//go:generate go run go.uber.org/mock/mockgen -source=publisher.go -destination=../mocks/mock_publisher.go -package=mocks
package events

import (
	"context"
)

// Publisher emits domain events to whatever bus is configured. Delivery is best effort.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload any) error
	Close() error
}

type Topics struct {
	MessageSent     string
	PresenceChanged string
}

type Noop struct{}

func (Noop) Publish(context.Context, string, string, any) error { return nil }

func (Noop) Close() error { return nil }
