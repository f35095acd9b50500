package lifecycle

import (
	"fmt"

	"killua-service-provider/internal/domain/entity"
)

// MessageDetails carries the optional context a message template may reference.
// Unset fields render as empty strings.
type MessageDetails struct {
	PriestName  string
	Date        string
	Venue       string
	RequestedBy string
	BookedBy    string
}

// FormatNotification renders the human-readable text for an event.
// It never fails: unknown event types fall back to a generic message.
func FormatNotification(eventType entity.EventType, packageID int, d MessageDetails) string {
	switch eventType {
	case entity.EventCreated:
		return fmt.Sprintf("Service Package #%d is created with this information (%s, %s, %s).",
			packageID, d.PriestName, d.Date, d.Venue)
	case entity.EventRequested:
		return fmt.Sprintf("Service Package #%d is requested by %s.", packageID, d.RequestedBy)
	case entity.EventBooked:
		return fmt.Sprintf("Service Package #%d is booked by %s.", packageID, d.BookedBy)
	case entity.EventDenied:
		return fmt.Sprintf("Service Package #%d is denied.", packageID)
	case entity.EventAvailable:
		return fmt.Sprintf("Service Package #%d is now available again.", packageID)
	case entity.EventExpired:
		return fmt.Sprintf("Service Package #%d is expired (%s).", packageID, d.Date)
	default:
		return fmt.Sprintf("Notification about Service Package #%d.", packageID)
	}
}
