package usecase

import (
	"context"

	"killua-service-provider/internal/domain/entity"
)

// NotificationSink hands notifications to something outside the record store
type NotificationSink interface {
	// Name identifies the sink in the delivery log and metrics
	Name() string

	// Accepts determines if this sink wants notifications of the given event type
	Accepts(eventType entity.EventType) bool

	// Deliver sends one notification
	Deliver(ctx context.Context, notification *entity.Notification) error
}

// EventRouter routes notifications to the sinks interested in their event type
type EventRouter interface {
	// Register adds a sink
	Register(sink NotificationSink)

	// SinksFor returns every registered sink accepting eventType, in registration order
	SinksFor(eventType entity.EventType) []NotificationSink
}
