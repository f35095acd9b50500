package templates

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"killua-service-provider/internal/domain/entity"
)

// EmailContent is a rendered notification email
type EmailContent struct {
	Subject  string
	HTMLBody string
}

var eventTitles = map[entity.EventType]string{
	entity.EventCreated:   "New service available",
	entity.EventRequested: "Service requested",
	entity.EventBooked:    "Service booked",
	entity.EventDenied:    "Request denied",
	entity.EventAvailable: "Service available again",
	entity.EventExpired:   "Service expired",
}

var styleColors = map[entity.Style]string{
	entity.StyleInfo:    "#2563eb",
	entity.StyleWarning: "#d97706",
	entity.StyleSuccess: "#16a34a",
	entity.StyleDanger:  "#dc2626",
	entity.StyleNeutral: "#4b5563",
}

var notificationEmail = template.Must(template.New("notification").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #111827;">
  <h2 style="color: {{.Color}};">{{.Title}}</h2>
  <p>{{.Message}}</p>
  <p style="color: #6b7280; font-size: 12px;">Service Package #{{.PackageID}} &middot; {{.SentAt}}</p>
</body>
</html>
`))

// Title returns the headline used for an event type
func Title(eventType entity.EventType) string {
	if title, ok := eventTitles[eventType]; ok {
		return title
	}
	return "Service update"
}

// RenderNotificationEmail renders n as an HTML email. Times are shown in loc.
func RenderNotificationEmail(n *entity.Notification, loc *time.Location) (EmailContent, error) {
	if loc == nil {
		loc = time.UTC
	}

	title := Title(n.EventType)
	data := struct {
		Title     string
		Color     string
		Message   string
		PackageID int
		SentAt    string
	}{
		Title:     title,
		Color:     styleColors[n.EventType.Style()],
		Message:   n.Message,
		PackageID: n.PackageID,
		SentAt:    n.CreatedAt.In(loc).Format("02 Jan 2006 15:04 MST"),
	}

	var buf bytes.Buffer
	if err := notificationEmail.Execute(&buf, data); err != nil {
		return EmailContent{}, fmt.Errorf("render notification email: %w", err)
	}

	return EmailContent{
		Subject:  fmt.Sprintf("[Service Package #%d] %s", n.PackageID, title),
		HTMLBody: buf.String(),
	}, nil
}
