package providers

import (
	"context"

	"github.com/medtravel/directory/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to events
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.SnapshotEvent) error

	// Subscribe delivers events until ctx is cancelled, then closes the channel
	Subscribe(ctx context.Context, channel string) (<-chan *entities.SnapshotEvent, error)

	// Close closes the event bus and all subscriptions
	Close() error
}

// EventChannelSnapshot carries snapshot invalidations between instances
const EventChannelSnapshot = "cms:snapshot:events"
