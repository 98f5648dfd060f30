package application

import (
	"context"

	"github.com/google/uuid"

	"github.com/helsingbuss/service-booking/internal/cache"
	"github.com/helsingbuss/service-booking/internal/notify"
)

// EventPublisher publishes domain events. Failures are logged by the caller
// and never fail the operation that produced the event.
type EventPublisher interface {
	Publish(ctx context.Context, topic, eventType, key string, data interface{}) error
}

// NotificationQueue accepts mail tasks for asynchronous delivery.
type NotificationQueue interface {
	Enqueue(ctx context.Context, task notify.Task) error
}

// AvailabilityCache holds departure availability snapshots.
type AvailabilityCache interface {
	Get(ctx context.Context, id uuid.UUID) (cache.Snapshot, bool)
	Set(ctx context.Context, s cache.Snapshot)
	Invalidate(ctx context.Context, id uuid.UUID)
}
