package router

import (
	"context"
	"testing"

	"killua-service-provider/internal/domain/entity"
	"killua-service-provider/internal/usecase"
	"killua-service-provider/pkg/logger"

	"github.com/stretchr/testify/assert"
)

type namedSink struct {
	name   string
	events entity.EventSet
}

func (s namedSink) Name() string { return s.name }

func (s namedSink) Accepts(e entity.EventType) bool { return s.events.Matches(e) }

func (s namedSink) Deliver(context.Context, *entity.Notification) error { return nil }

func names(sinks []usecase.NotificationSink) []string {
	out := make([]string, 0, len(sinks))
	for _, s := range sinks {
		out = append(out, s.Name())
	}
	return out
}

func TestEventRouterSinksFor(t *testing.T) {
	r := NewEventRouter(logger.NewNopLogger())
	assert.Zero(t, r.Len())
	assert.Empty(t, r.SinksFor(entity.EventCreated))

	r.Register(namedSink{name: "rabbitmq"})
	r.Register(namedSink{name: "gmail", events: entity.NewEventSet([]string{"requested", "expired"})})
	r.Register(namedSink{name: "webhook", events: entity.NewEventSet([]string{"booked"})})

	assert.Equal(t, 3, r.Len())
	assert.Equal(t, []string{"rabbitmq"}, names(r.SinksFor(entity.EventCreated)))
	assert.Equal(t, []string{"rabbitmq", "gmail"}, names(r.SinksFor(entity.EventRequested)))
	assert.Equal(t, []string{"rabbitmq", "webhook"}, names(r.SinksFor(entity.EventBooked)))
	assert.Equal(t, []string{"rabbitmq", "gmail"}, names(r.SinksFor(entity.EventExpired)))
}
