package repository

import (
	"context"
	"time"

	"killua-service-provider/internal/domain/entity"
	"killua-service-provider/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormNotificationRepository implements the NotificationRepository interface
type GormNotificationRepository struct {
	db *gorm.DB
}

// NewGormNotificationRepository creates a new GORM notification repository
func NewGormNotificationRepository(db *gorm.DB) repository.NotificationRepository {
	return &GormNotificationRepository{
		db: db,
	}
}

// Notifications GORM model for database mapping
type Notifications struct {
	ID               string     `gorm:"column:id;primaryKey;type:varchar(36)"`
	EventType        string     `gorm:"column:event_type;type:varchar(32);index"`
	ServiceID        string     `gorm:"column:service_id;type:varchar(36);index"`
	PackageID        int        `gorm:"column:package_id"`
	Message          string     `gorm:"column:message;not null"`
	Read             bool       `gorm:"column:read;not null;default:false;index"`
	CreatedAt        time.Time  `gorm:"column:created_at;index"`
	DispatchedAt     *time.Time `gorm:"column:dispatched_at;index"`
	DispatchAttempts int        `gorm:"column:dispatch_attempts;not null;default:0"`
}

// TableName overrides the default table name
func (Notifications) TableName() string {
	return "notifications"
}

func toNotificationEntity(m Notifications) *entity.Notification {
	return &entity.Notification{
		ID:               m.ID,
		EventType:        entity.EventType(m.EventType),
		ServiceID:        m.ServiceID,
		PackageID:        m.PackageID,
		Message:          m.Message,
		Read:             m.Read,
		CreatedAt:        m.CreatedAt,
		DispatchedAt:     m.DispatchedAt,
		DispatchAttempts: m.DispatchAttempts,
	}
}

// insertNotification stores n through tx, filling in its ID and creation time
func insertNotification(tx *gorm.DB, n *entity.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	model := Notifications{
		ID:               n.ID,
		EventType:        string(n.EventType),
		ServiceID:        n.ServiceID,
		PackageID:        n.PackageID,
		Message:          n.Message,
		Read:             n.Read,
		CreatedAt:        n.CreatedAt,
		DispatchedAt:     n.DispatchedAt,
		DispatchAttempts: n.DispatchAttempts,
	}
	return tx.Create(&model).Error
}

// Create inserts a notification that is not tied to a service update
func (r *GormNotificationRepository) Create(ctx context.Context, notification *entity.Notification) error {
	return entity.NewStoreError("create notification", insertNotification(r.db.WithContext(ctx), notification))
}

// List returns notifications newest first
func (r *GormNotificationRepository) List(ctx context.Context, filter entity.NotificationFilter) ([]*entity.Notification, error) {
	query := r.db.WithContext(ctx).Model(&Notifications{}).Order("created_at DESC")
	if filter.UnreadOnly {
		query = query.Where("read = ?", false)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var rows []Notifications
	if err := query.Find(&rows).Error; err != nil {
		return nil, entity.NewStoreError("list notifications", err)
	}

	notifications := make([]*entity.Notification, 0, len(rows))
	for _, row := range rows {
		notifications = append(notifications, toNotificationEntity(row))
	}
	return notifications, nil
}

// CountUnread counts notifications not yet marked as read
func (r *GormNotificationRepository) CountUnread(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Notifications{}).Where("read = ?", false).Count(&count).Error
	if err != nil {
		return 0, entity.NewStoreError("count unread notifications", err)
	}
	return count, nil
}

// MarkAsRead flips the read flag
func (r *GormNotificationRepository) MarkAsRead(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return entity.ErrNotificationNotFound
	}

	result := r.db.WithContext(ctx).Model(&Notifications{}).Where("id = ?", id).Update("read", true)
	if result.Error != nil {
		return entity.NewStoreError("mark notification read", result.Error)
	}
	if result.RowsAffected == 0 {
		return entity.ErrNotificationNotFound
	}
	return nil
}

// FindUndispatched returns the oldest notifications not yet handed to the sinks
func (r *GormNotificationRepository) FindUndispatched(ctx context.Context, limit int) ([]*entity.Notification, error) {
	var rows []Notifications
	err := r.db.WithContext(ctx).
		Where("dispatched_at IS NULL").
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, entity.NewStoreError("find undispatched notifications", err)
	}

	notifications := make([]*entity.Notification, 0, len(rows))
	for _, row := range rows {
		notifications = append(notifications, toNotificationEntity(row))
	}
	return notifications, nil
}

// MarkDispatched records that the notification left the outbox
func (r *GormNotificationRepository) MarkDispatched(ctx context.Context, id string, at time.Time) error {
	err := r.db.WithContext(ctx).Model(&Notifications{}).Where("id = ?", id).Update("dispatched_at", at).Error
	return entity.NewStoreError("mark notification dispatched", err)
}

// IncrementAttempts bumps the dispatch attempt counter
func (r *GormNotificationRepository) IncrementAttempts(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Model(&Notifications{}).
		Where("id = ?", id).
		Update("dispatch_attempts", gorm.Expr("dispatch_attempts + 1")).Error
	return entity.NewStoreError("increment dispatch attempts", err)
}
