package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"killua-service-provider/internal/domain/entity"
	"killua-service-provider/pkg/logger"
)

// WebhookSinkName is how the webhook appears in the delivery log
const WebhookSinkName = "webhook"

// errorBodyLimit caps how much of a failed response is kept for the delivery log
const errorBodyLimit = 512

// WebhookSink posts notifications as JSON to an external endpoint
type WebhookSink struct {
	logger      logger.Logger
	url         string
	bearerToken string
	events      entity.EventSet
	client      *http.Client
}

// NewWebhookSink creates a webhook sink. An empty token sends no Authorization header.
func NewWebhookSink(url, bearerToken string, events entity.EventSet, logger logger.Logger) *WebhookSink {
	return &WebhookSink{
		logger:      logger,
		url:         url,
		bearerToken: bearerToken,
		events:      events,
		client:      &http.Client{Timeout: 30 * time.Second},
	}
}

type webhookPayload struct {
	NotificationID string           `json:"notificationId"`
	EventType      entity.EventType `json:"eventType"`
	Style          entity.Style     `json:"style"`
	ServiceID      string           `json:"serviceId,omitempty"`
	PackageID      int              `json:"packageId"`
	Message        string           `json:"message"`
	CreatedAt      string           `json:"createdAt"`
}

// Name implements usecase.NotificationSink
func (s *WebhookSink) Name() string {
	return WebhookSinkName
}

// Accepts implements usecase.NotificationSink
func (s *WebhookSink) Accepts(eventType entity.EventType) bool {
	return s.events.Matches(eventType)
}

// Deliver posts n to the webhook URL
func (s *WebhookSink) Deliver(ctx context.Context, n *entity.Notification) error {
	jsonData, err := json.Marshal(webhookPayload{
		NotificationID: n.ID,
		EventType:      n.EventType,
		Style:          n.EventType.Style(),
		ServiceID:      n.ServiceID,
		PackageID:      n.PackageID,
		Message:        n.Message,
		CreatedAt:      n.CreatedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Type", string(n.EventType))
	if s.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.bearerToken)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, err := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		if err != nil {
			return fmt.Errorf("webhook returned status %d (body unreadable: %v)", resp.StatusCode, err)
		}
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	s.logger.Debug("Notification posted to webhook",
		"notificationID", n.ID,
		"eventType", n.EventType,
		"status", resp.StatusCode)

	return nil
}
