package usecase

import (
	"context"

	"killua-service-provider/internal/domain/entity"
	"killua-service-provider/internal/domain/repository"
	"killua-service-provider/pkg/logger"
)

// NotificationService serves the staff notification feed
type NotificationService struct {
	notifications repository.NotificationRepository
	deliveries    repository.DeliveryRepository
	logger        logger.Logger
}

// NewNotificationService creates a notification service. deliveries may be nil
// when the delivery log is disabled.
func NewNotificationService(
	notifications repository.NotificationRepository,
	deliveries repository.DeliveryRepository,
	logger logger.Logger,
) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		deliveries:    deliveries,
		logger:        logger,
	}
}

// List returns notifications newest first
func (s *NotificationService) List(ctx context.Context, filter entity.NotificationFilter) ([]*entity.Notification, error) {
	return s.notifications.List(ctx, filter)
}

// UnreadCount returns the badge count
func (s *NotificationService) UnreadCount(ctx context.Context) (int64, error) {
	return s.notifications.CountUnread(ctx)
}

// MarkAsRead marks one notification as read
func (s *NotificationService) MarkAsRead(ctx context.Context, id string) error {
	if err := s.notifications.MarkAsRead(ctx, id); err != nil {
		return err
	}
	s.logger.Debug("Notification marked as read", "notificationID", id)
	return nil
}

// Deliveries lists the outbound attempts made for a notification
func (s *NotificationService) Deliveries(ctx context.Context, notificationID string) ([]*entity.Delivery, error) {
	if s.deliveries == nil {
		return []*entity.Delivery{}, nil
	}
	return s.deliveries.FindByNotificationID(ctx, notificationID)
}
