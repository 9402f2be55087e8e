package events

import (
	"context"
	"encoding/json"

	"github.com/nats-io/nats.go"
)

type NatsPublisher struct {
	nc *nats.Conn
}

func NewNatsPublisher(url string) (*NatsPublisher, error) {
	nc, err := nats.Connect(url, nats.Name("chat-app"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, err
	}
	return &NatsPublisher{nc: nc}, nil
}

// Publish uses the topic as the subject; the key travels as a header.
func (p *NatsPublisher) Publish(_ context.Context, topic, key string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	msg := nats.NewMsg(topic)
	msg.Data = b
	if key != "" {
		msg.Header.Set("key", key)
	}
	return p.nc.PublishMsg(msg)
}

func (p *NatsPublisher) Close() error {
	return p.nc.Drain()
}
