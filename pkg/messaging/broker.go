package messaging

import (
	"context"
)

// Broker publishes realtime events to subscribers outside this process.
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Close() error
}

type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type nopBroker struct{}

// NewNopBroker returns a broker that drops every message. Used when no
// Redis URL is configured.
func NewNopBroker() Broker {
	return nopBroker{}
}

func (nopBroker) Publish(context.Context, string, interface{}) error { return nil }

func (nopBroker) Close() error { return nil }
