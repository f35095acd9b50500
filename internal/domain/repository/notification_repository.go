package repository

import (
	"context"
	"time"

	"killua-service-provider/internal/domain/entity"
)

// NotificationRepository defines the interface for notification storage operations
type NotificationRepository interface {
	Create(ctx context.Context, notification *entity.Notification) error
	List(ctx context.Context, filter entity.NotificationFilter) ([]*entity.Notification, error)
	CountUnread(ctx context.Context) (int64, error)
	MarkAsRead(ctx context.Context, id string) error
	FindUndispatched(ctx context.Context, limit int) ([]*entity.Notification, error)
	MarkDispatched(ctx context.Context, id string, at time.Time) error
	IncrementAttempts(ctx context.Context, id string) error
}
