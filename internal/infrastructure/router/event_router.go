package router

import (
	"sync"

	"killua-service-provider/internal/domain/entity"
	"killua-service-provider/internal/usecase"
	"killua-service-provider/pkg/logger"
)

// EventRouter routes notifications to sinks based on event type
type EventRouter struct {
	mu     sync.RWMutex
	sinks  []usecase.NotificationSink
	logger logger.Logger
}

// NewEventRouter creates a new event router
func NewEventRouter(logger logger.Logger) *EventRouter {
	return &EventRouter{
		sinks:  make([]usecase.NotificationSink, 0),
		logger: logger,
	}
}

// Register registers a sink
func (r *EventRouter) Register(sink usecase.NotificationSink) {
	r.mu.Lock()
	r.sinks = append(r.sinks, sink)
	r.mu.Unlock()
	r.logger.Info("Registered sink", "sink", sink.Name())
}

// SinksFor returns the sinks accepting eventType
func (r *EventRouter) SinksFor(eventType entity.EventType) []usecase.NotificationSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]usecase.NotificationSink, 0, len(r.sinks))
	for _, sink := range r.sinks {
		if sink.Accepts(eventType) {
			matched = append(matched, sink)
		}
	}
	return matched
}

// Len returns the number of registered sinks
func (r *EventRouter) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sinks)
}
