// Package messagequeue defines the port interface for publishing save events.
package messagequeue

import "context"

// Handler processes a single message. Returning an error triggers redelivery.
type Handler func(subject string, data []byte) error

// Queue is the messaging port backed by NATS JetStream in production.
type Queue interface {
	Publish(ctx context.Context, subject string, data []byte) error
	Subscribe(ctx context.Context, subject string, handler Handler) (func(), error)
	Close() error
}
