// Package lifecycle holds the service state machine and the notification wording.
// Everything here is pure: callers supply the clock and persist the outcome.
package lifecycle

import (
	"strings"
	"time"

	"killua-service-provider/internal/domain/entity"
	"killua-service-provider/pkg/utils"
)

// EffectiveStatus is the status shown to staff. An available service whose date
// lies before today is reported as expired; the stored status is left alone.
func EffectiveStatus(svc entity.Service, today time.Time) entity.Status {
	if svc.Status == entity.StatusAvailable && utils.DateOf(svc.AvailableDate).Before(utils.DateOf(today)) {
		return entity.StatusExpired
	}
	return svc.Status
}

// IsExpired reports whether svc is available but past its date
func IsExpired(svc entity.Service, today time.Time) bool {
	return EffectiveStatus(svc, today) == entity.StatusExpired
}

// Outcome is the result of a legal transition
type Outcome struct {
	// Service is the record as it looks after the transition
	Service entity.Service
	// From is the persisted status the write must still find
	From entity.Status
	// Update holds the fields to write; zero when only a notification is produced
	Update  entity.ServiceUpdate
	Event   entity.EventType
	Message string
}

// transition table keyed by effective status
var transitions = map[entity.Status]map[entity.Action]entity.EventType{
	entity.StatusAvailable: {entity.ActionRequest: entity.EventRequested},
	entity.StatusRequested: {
		entity.ActionAccept: entity.EventBooked,
		entity.ActionReject: entity.EventDenied,
	},
	entity.StatusDenied:  {entity.ActionReactivate: entity.EventAvailable},
	entity.StatusExpired: {entity.ActionNotifyExpired: entity.EventExpired},
}

// CanApply reports whether action is legal for svc today
func CanApply(svc entity.Service, action entity.Action, today time.Time) bool {
	_, ok := transitions[EffectiveStatus(svc, today)][action]
	return ok
}

// AllowedActions lists the actions legal for svc today, in a stable order
func AllowedActions(svc entity.Service, today time.Time) []entity.Action {
	order := []entity.Action{
		entity.ActionRequest,
		entity.ActionAccept,
		entity.ActionReject,
		entity.ActionReactivate,
		entity.ActionNotifyExpired,
	}
	actions := make([]entity.Action, 0, 2)
	for _, a := range order {
		if CanApply(svc, a, today) {
			actions = append(actions, a)
		}
	}
	return actions
}

// ApplyTransition validates action against the effective status of svc and
// returns the resulting record plus the notification to emit. now is used both
// as "today" for expiry and as the booking timestamp.
func ApplyTransition(svc entity.Service, action entity.Action, actor string, now time.Time) (Outcome, error) {
	from := EffectiveStatus(svc, now)
	event, ok := transitions[from][action]
	if !ok {
		return Outcome{}, &entity.InvalidTransitionError{From: from, Action: action}
	}

	var (
		update  entity.ServiceUpdate
		details MessageDetails
	)
	switch action {
	case entity.ActionRequest:
		actor = strings.TrimSpace(actor)
		if actor == "" {
			return Outcome{}, &entity.ValidationError{Field: "requestedBy", Reason: "must not be empty"}
		}
		update = entity.ServiceUpdate{Status: entity.StatusRequested, BookBy: &actor}
		details.RequestedBy = actor
	case entity.ActionAccept:
		bookedAt := now
		update = entity.ServiceUpdate{Status: entity.StatusBooked, BookDate: &bookedAt}
		if svc.BookBy != nil {
			details.BookedBy = *svc.BookBy
		}
	case entity.ActionReject:
		update = entity.ServiceUpdate{Status: entity.StatusDenied}
	case entity.ActionReactivate:
		update = entity.ServiceUpdate{Status: entity.StatusAvailable, ClearBookBy: true, ClearBookDate: true}
	case entity.ActionNotifyExpired:
		details.Date = utils.FormatDate(svc.AvailableDate)
	}

	return Outcome{
		Service: update.Apply(svc),
		From:    svc.Status,
		Update:  update,
		Event:   event,
		Message: FormatNotification(event, svc.PackageID, details),
	}, nil
}

// NewService validates a draft and returns an available service without
// storage-assigned fields. Dates before today are rejected.
func NewService(draft entity.ServiceDraft, today time.Time) (entity.Service, error) {
	priest := strings.TrimSpace(draft.PriestName)
	if priest == "" {
		return entity.Service{}, &entity.ValidationError{Field: "priestName", Reason: "must not be empty"}
	}
	if draft.AvailableDate.IsZero() {
		return entity.Service{}, &entity.ValidationError{Field: "availableDate", Reason: "must not be empty"}
	}
	venue := strings.TrimSpace(draft.ChurchVenue)
	if venue == "" {
		return entity.Service{}, &entity.ValidationError{Field: "churchVenue", Reason: "must not be empty"}
	}
	date := utils.DateOf(draft.AvailableDate)
	if date.Before(utils.DateOf(today)) {
		return entity.Service{}, &entity.ValidationError{Field: "availableDate", Reason: "must not be in the past"}
	}

	return entity.Service{
		PriestName:    priest,
		AvailableDate: date,
		ChurchVenue:   venue,
		Status:        entity.StatusAvailable,
	}, nil
}

// CreatedMessage renders the creation notice once the package id is known
func CreatedMessage(svc entity.Service) string {
	return FormatNotification(entity.EventCreated, svc.PackageID, MessageDetails{
		PriestName: svc.PriestName,
		Date:       utils.FormatDate(svc.AvailableDate),
		Venue:      svc.ChurchVenue,
	})
}

// NextPackageID returns one more than the largest positive id, or 1 when there is none
func NextPackageID(existing ...int) int {
	highest := 0
	for _, id := range existing {
		if id > highest {
			highest = id
		}
	}
	return highest + 1
}
