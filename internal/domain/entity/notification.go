package entity

import (
	"strings"
	"time"
)

// EventType tags a notification with the lifecycle event that produced it
type EventType string

const (
	EventCreated   EventType = "created"
	EventRequested EventType = "requested"
	EventBooked    EventType = "booked"
	EventDenied    EventType = "denied"
	EventAvailable EventType = "available"
	EventExpired   EventType = "expired"
)

// Style is the presentation hint for an event type
type Style string

const (
	StyleInfo    Style = "info"
	StyleWarning Style = "warning"
	StyleSuccess Style = "success"
	StyleDanger  Style = "danger"
	StyleNeutral Style = "neutral"
)

// Style returns the presentation hint carried alongside the message
func (e EventType) Style() Style {
	switch e {
	case EventCreated, EventAvailable:
		return StyleInfo
	case EventRequested:
		return StyleWarning
	case EventBooked:
		return StyleSuccess
	case EventDenied:
		return StyleDanger
	case EventExpired:
		return StyleWarning
	default:
		return StyleNeutral
	}
}

// Notification is an append-only log entry describing a lifecycle event
type Notification struct {
	ID               string     `json:"id"`
	EventType        EventType  `json:"eventType"`
	ServiceID        string     `json:"serviceId,omitempty"`
	PackageID        int        `json:"packageId"`
	Message          string     `json:"message"`
	Read             bool       `json:"read"`
	CreatedAt        time.Time  `json:"createdAt"`
	DispatchedAt     *time.Time `json:"dispatchedAt,omitempty"`
	DispatchAttempts int        `json:"dispatchAttempts"`
}

// NotificationFilter narrows a notification listing
type NotificationFilter struct {
	UnreadOnly bool
	Limit      int
}

// EventTypes lists every event type in lifecycle order
var EventTypes = []EventType{
	EventCreated,
	EventRequested,
	EventBooked,
	EventDenied,
	EventAvailable,
	EventExpired,
}

// IsValid reports whether e is a known event type
func (e EventType) IsValid() bool {
	for _, known := range EventTypes {
		if e == known {
			return true
		}
	}
	return false
}

// EventSet is a set of event types. An empty set matches every event.
type EventSet map[EventType]struct{}

// NewEventSet builds a set from event type names, ignoring case and blanks
func NewEventSet(names []string) EventSet {
	set := make(EventSet, len(names))
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" {
			set[EventType(name)] = struct{}{}
		}
	}
	return set
}

// Matches reports whether e belongs to the set
func (s EventSet) Matches(e EventType) bool {
	if len(s) == 0 {
		return true
	}
	_, ok := s[e]
	return ok
}
