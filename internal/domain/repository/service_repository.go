package repository

import (
	"context"
	"time"

	"killua-service-provider/internal/domain/entity"
)

// NotifyFunc builds the notification recorded alongside a newly created service.
// It runs inside the creating transaction, after storage fields are assigned.
type NotifyFunc func(svc *entity.Service) *entity.Notification

// ServiceRepository defines the interface for service storage operations
type ServiceRepository interface {
	// Create assigns ID, PackageID and timestamps, then stores svc and the
	// notification returned by notify as one unit.
	Create(ctx context.Context, svc *entity.Service, notify NotifyFunc) error
	FindByID(ctx context.Context, id string) (*entity.Service, error)
	List(ctx context.Context, filter entity.ServiceFilter) ([]*entity.Service, error)
	// MaxPackageID returns the largest package id and whether any service exists
	MaxPackageID(ctx context.Context) (int, bool, error)
	// Transition writes update only if the service still has status from, and
	// stores notification in the same unit. A zero update stores only the notification.
	Transition(ctx context.Context, id string, from entity.Status, update entity.ServiceUpdate, notification *entity.Notification) error
	// FindExpired returns available services dated before today ordered by
	// available date then id, starting after the cursor when one is given
	FindExpired(ctx context.Context, today time.Time, after *entity.ServiceCursor, limit int) ([]*entity.Service, error)
}
