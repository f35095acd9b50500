package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"strings"
	"time"

	"killua-service-provider/internal/domain/entity"
	"killua-service-provider/pkg/logger"
	"killua-service-provider/templates"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// SinkName is how the mailer appears in the delivery log
const SinkName = "gmail"

type messageSender interface {
	Send(ctx context.Context, userID, raw string) error
}

type apiSender struct {
	service *gmail.Service
}

func (s *apiSender) Send(ctx context.Context, userID, raw string) error {
	_, err := s.service.Users.Messages.Send(userID, &gmail.Message{Raw: raw}).Context(ctx).Do()
	return err
}

// GmailMailer emails notifications through the Gmail API
type GmailMailer struct {
	sender   messageSender
	from     string
	to       []string
	events   entity.EventSet
	location *time.Location
	logger   logger.Logger
}

// MailerOptions configures a GmailMailer
type MailerOptions struct {
	// From is the sending account; "me" uses the authorised account
	From     string
	To       []string
	Events   entity.EventSet
	Location *time.Location
}

// NewGmailMailer creates a mailer using the given token source
func NewGmailMailer(ctx context.Context, tokenSource oauth2.TokenSource, opts MailerOptions, logger logger.Logger) (*GmailMailer, error) {
	service, err := gmail.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, err
	}
	return newGmailMailer(&apiSender{service: service}, opts, logger), nil
}

func newGmailMailer(sender messageSender, opts MailerOptions, logger logger.Logger) *GmailMailer {
	from := opts.From
	if from == "" {
		from = "me"
	}
	return &GmailMailer{
		sender:   sender,
		from:     from,
		to:       opts.To,
		events:   opts.Events,
		location: opts.Location,
		logger:   logger,
	}
}

// Name implements usecase.NotificationSink
func (m *GmailMailer) Name() string {
	return SinkName
}

// Accepts implements usecase.NotificationSink
func (m *GmailMailer) Accepts(eventType entity.EventType) bool {
	return m.events.Matches(eventType)
}

// Deliver renders n and sends it to every configured recipient
func (m *GmailMailer) Deliver(ctx context.Context, n *entity.Notification) error {
	if len(m.to) == 0 {
		return fmt.Errorf("no recipients configured")
	}

	content, err := templates.RenderNotificationEmail(n, m.location)
	if err != nil {
		return err
	}

	raw := base64.URLEncoding.EncodeToString(buildMessage(m.from, m.to, content))
	if err := m.sender.Send(ctx, m.from, raw); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	m.logger.Debug("Notification emailed",
		"notificationID", n.ID,
		"eventType", n.EventType,
		"recipients", len(m.to))
	return nil
}

// buildMessage assembles an RFC 822 message with an HTML body
func buildMessage(from string, to []string, content templates.EmailContent) []byte {
	var b strings.Builder
	if from != "me" {
		b.WriteString("From: " + from + "\r\n")
	}
	b.WriteString("To: " + strings.Join(to, ", ") + "\r\n")
	b.WriteString("Subject: " + mime.BEncoding.Encode("UTF-8", content.Subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(content.HTMLBody)
	return []byte(b.String())
}
