package repository

import (
	"context"

	"killua-service-provider/internal/domain/entity"
)

// DeliveryRepository defines the interface for the outbound delivery log
type DeliveryRepository interface {
	Save(ctx context.Context, delivery *entity.Delivery) error
	FindByNotificationID(ctx context.Context, notificationID string) ([]*entity.Delivery, error)
}
