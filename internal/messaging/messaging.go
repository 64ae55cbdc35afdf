package messaging

import (
	"context"

	"github.com/davidngn/go-order-system/internal/entity"
)

// Publisher defines an interface for publishing domain events to a
// message broker.
type Publisher interface {
	PublishEvent(ctx context.Context, topic string, key string, event entity.Event) error
}

// NopPublisher discards events. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishEvent(ctx context.Context, topic string, key string, event entity.Event) error {
	return nil
}
