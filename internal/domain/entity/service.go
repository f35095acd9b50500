package entity

import (
	"time"
)

// Status is the persisted lifecycle state of a service
type Status string

const (
	StatusAvailable Status = "available"
	StatusRequested Status = "requested"
	StatusBooked    Status = "booked"
	StatusDenied    Status = "denied"

	// StatusExpired is derived from the available date and never stored
	StatusExpired Status = "expired"
)

// IsPersisted reports whether the status may be written to storage
func (s Status) IsPersisted() bool {
	switch s {
	case StatusAvailable, StatusRequested, StatusBooked, StatusDenied:
		return true
	}
	return false
}

// Action is a staff or requester operation on a service
type Action string

const (
	ActionCreate        Action = "create"
	ActionRequest       Action = "request"
	ActionAccept        Action = "accept"
	ActionReject        Action = "reject"
	ActionReactivate    Action = "reactivate"
	ActionNotifyExpired Action = "notify-expired"
)

// Service represents a bookable offering: a priest on a date at a venue
type Service struct {
	ID            string     `json:"id"`
	PackageID     int        `json:"packageId"`
	PriestName    string     `json:"priestName"`
	AvailableDate time.Time  `json:"availableDate"`
	ChurchVenue   string     `json:"churchVenue"`
	Status        Status     `json:"status"`
	BookBy        *string    `json:"bookBy"`
	BookDate      *time.Time `json:"bookDate"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// ServiceDraft holds the fields supplied by staff when creating a service
type ServiceDraft struct {
	PriestName    string
	AvailableDate time.Time
	ChurchVenue   string
}

// ServiceUpdate is the set of fields a transition writes.
// Nil pointers leave the column untouched; Clear* flags null it.
type ServiceUpdate struct {
	Status        Status
	BookBy        *string
	BookDate      *time.Time
	ClearBookBy   bool
	ClearBookDate bool
}

// IsZero reports whether the update writes nothing
func (u ServiceUpdate) IsZero() bool {
	return u.Status == "" && u.BookBy == nil && u.BookDate == nil && !u.ClearBookBy && !u.ClearBookDate
}

// Apply returns a copy of svc with the update applied
func (u ServiceUpdate) Apply(svc Service) Service {
	if u.Status != "" {
		svc.Status = u.Status
	}
	if u.ClearBookBy {
		svc.BookBy = nil
	} else if u.BookBy != nil {
		by := *u.BookBy
		svc.BookBy = &by
	}
	if u.ClearBookDate {
		svc.BookDate = nil
	} else if u.BookDate != nil {
		at := *u.BookDate
		svc.BookDate = &at
	}
	return svc
}

// Tab is a list view over services, named after the staff console tabs
type Tab string

const (
	TabAll       Tab = "all"
	TabAvailable Tab = "available"
	TabRequest   Tab = "request"
	TabBooked    Tab = "booked"
	TabDenied    Tab = "denied"
	TabExpired   Tab = "expired"
)

// ParseTab maps a query value to a Tab, defaulting to TabAll
func ParseTab(s string) (Tab, bool) {
	switch Tab(s) {
	case "", TabAll:
		return TabAll, true
	case TabAvailable, TabRequest, TabBooked, TabDenied, TabExpired:
		return Tab(s), true
	}
	return "", false
}

// ServiceCursor is a position in a listing ordered by available date, then id.
// A listing resumes strictly after it.
type ServiceCursor struct {
	AvailableDate time.Time
	ID            string
}

// CursorOf returns the position of svc
func CursorOf(svc *Service) *ServiceCursor {
	return &ServiceCursor{AvailableDate: svc.AvailableDate, ID: svc.ID}
}

// ServiceFilter narrows a service listing
type ServiceFilter struct {
	Status Status
	// DateBefore keeps services whose available date is strictly before it
	DateBefore *time.Time
	// DateFrom keeps services whose available date is on or after it
	DateFrom *time.Time
	Limit    int
}
