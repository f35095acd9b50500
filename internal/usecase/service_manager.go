package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"killua-service-provider/internal/domain/entity"
	"killua-service-provider/internal/domain/lifecycle"
	"killua-service-provider/internal/domain/repository"
	"killua-service-provider/pkg/logger"
	"killua-service-provider/pkg/metrics"
	"killua-service-provider/pkg/utils"
)

const expiredScanBatch = 100

// ServiceView is a service together with what staff can see and do with it today
type ServiceView struct {
	entity.Service
	EffectiveStatus entity.Status
	AllowedActions  []entity.Action
}

// ServiceManagerOptions configures a ServiceManager
type ServiceManagerOptions struct {
	// Location decides which calendar day "today" is
	Location *time.Location
	// ExpiryGuard, when set, allows one expired notice per service per ExpiredNoticeTTL
	ExpiryGuard      repository.ExpiryNoticeGuard
	ExpiredNoticeTTL time.Duration
}

// ServiceManager runs the service lifecycle against the record store
type ServiceManager struct {
	services  repository.ServiceRepository
	guard     repository.ExpiryNoticeGuard
	noticeTTL time.Duration
	location  *time.Location
	metrics   *metrics.Metrics
	logger    logger.Logger
	now       func() time.Time
}

// NewServiceManager creates a new service manager
func NewServiceManager(
	services repository.ServiceRepository,
	metrics *metrics.Metrics,
	logger logger.Logger,
	opts ServiceManagerOptions,
) *ServiceManager {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	return &ServiceManager{
		services:  services,
		guard:     opts.ExpiryGuard,
		noticeTTL: opts.ExpiredNoticeTTL,
		location:  loc,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// clock returns the current time in the configured location
func (m *ServiceManager) clock() time.Time {
	return m.now().In(m.location)
}

func (m *ServiceManager) view(svc entity.Service, now time.Time) *ServiceView {
	return &ServiceView{
		Service:         svc,
		EffectiveStatus: lifecycle.EffectiveStatus(svc, now),
		AllowedActions:  lifecycle.AllowedActions(svc, now),
	}
}

// Create validates the draft and stores a new available service with its creation notice
func (m *ServiceManager) Create(ctx context.Context, draft entity.ServiceDraft) (*ServiceView, error) {
	now := m.clock()

	svc, err := lifecycle.NewService(draft, now)
	if err != nil {
		m.countTransition(entity.ActionCreate, err)
		return nil, err
	}

	err = m.services.Create(ctx, &svc, func(stored *entity.Service) *entity.Notification {
		return &entity.Notification{
			EventType: entity.EventCreated,
			ServiceID: stored.ID,
			PackageID: stored.PackageID,
			Message:   lifecycle.CreatedMessage(*stored),
		}
	})
	m.countTransition(entity.ActionCreate, err)
	if err != nil {
		m.logger.Error("Failed to create service", "error", err)
		return nil, fmt.Errorf("failed to create service: %w", err)
	}

	m.metrics.NotificationsCreated.WithLabelValues(string(entity.EventCreated)).Inc()
	m.logger.Info("Service created",
		"serviceID", svc.ID,
		"packageID", svc.PackageID,
		"availableDate", utils.FormatDate(svc.AvailableDate))

	return m.view(svc, now), nil
}

// Get returns one service
func (m *ServiceManager) Get(ctx context.Context, id string) (*ServiceView, error) {
	svc, err := m.services.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return m.view(*svc, m.clock()), nil
}

// List returns the services shown on a tab, newest first
func (m *ServiceManager) List(ctx context.Context, tab entity.Tab) ([]*ServiceView, error) {
	now := m.clock()
	today := utils.DateOf(now)

	var filter entity.ServiceFilter
	switch tab {
	case entity.TabAll:
	case entity.TabAvailable:
		filter = entity.ServiceFilter{Status: entity.StatusAvailable, DateFrom: &today}
	case entity.TabRequest:
		filter = entity.ServiceFilter{Status: entity.StatusRequested}
	case entity.TabBooked:
		filter = entity.ServiceFilter{Status: entity.StatusBooked}
	case entity.TabDenied:
		filter = entity.ServiceFilter{Status: entity.StatusDenied}
	case entity.TabExpired:
		filter = entity.ServiceFilter{Status: entity.StatusAvailable, DateBefore: &today}
	default:
		return nil, &entity.ValidationError{Field: "tab", Reason: fmt.Sprintf("unknown tab %q", tab)}
	}

	services, err := m.services.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	views := make([]*ServiceView, 0, len(services))
	for _, svc := range services {
		views = append(views, m.view(*svc, now))
	}
	return views, nil
}

// NextPackageID previews the id the next created service will receive
func (m *ServiceManager) NextPackageID(ctx context.Context) (int, error) {
	highest, found, err := m.services.MaxPackageID(ctx)
	if err != nil {
		return 0, err
	}
	if !found {
		return lifecycle.NextPackageID(), nil
	}
	return lifecycle.NextPackageID(highest), nil
}

// Request records a booking request by requestedBy
func (m *ServiceManager) Request(ctx context.Context, id, requestedBy string) (*ServiceView, error) {
	return m.Apply(ctx, id, entity.ActionRequest, requestedBy)
}

// Accept books a requested service
func (m *ServiceManager) Accept(ctx context.Context, id string) (*ServiceView, error) {
	return m.Apply(ctx, id, entity.ActionAccept, "")
}

// Reject denies a requested service
func (m *ServiceManager) Reject(ctx context.Context, id string) (*ServiceView, error) {
	return m.Apply(ctx, id, entity.ActionReject, "")
}

// Reactivate makes a denied service available again
func (m *ServiceManager) Reactivate(ctx context.Context, id string) (*ServiceView, error) {
	return m.Apply(ctx, id, entity.ActionReactivate, "")
}

// NotifyExpired records an expiry notice for an available service past its date
func (m *ServiceManager) NotifyExpired(ctx context.Context, id string) (*ServiceView, error) {
	return m.Apply(ctx, id, entity.ActionNotifyExpired, "")
}

// Apply runs action on the service and stores the result together with its notification
func (m *ServiceManager) Apply(ctx context.Context, id string, action entity.Action, actor string) (*ServiceView, error) {
	svc, err := m.services.FindByID(ctx, id)
	if err != nil {
		m.countTransition(action, err)
		return nil, err
	}

	now := m.clock()
	outcome, err := lifecycle.ApplyTransition(*svc, action, actor, now)
	if err != nil {
		m.countTransition(action, err)
		return nil, err
	}

	guarded := false
	if action == entity.ActionNotifyExpired && m.guard != nil {
		acquired, err := m.guard.Acquire(ctx, svc.ID, m.noticeTTL)
		if err != nil {
			m.countTransition(action, err)
			return nil, err
		}
		if !acquired {
			m.countTransition(action, entity.ErrAlreadyNotified)
			return nil, entity.ErrAlreadyNotified
		}
		guarded = true
	}

	notification := &entity.Notification{
		EventType: outcome.Event,
		ServiceID: svc.ID,
		PackageID: svc.PackageID,
		Message:   outcome.Message,
	}
	err = m.services.Transition(ctx, svc.ID, outcome.From, outcome.Update, notification)
	m.countTransition(action, err)
	if err != nil {
		if guarded {
			if releaseErr := m.guard.Release(ctx, svc.ID); releaseErr != nil {
				m.logger.Warn("Failed to release expiry notice", "serviceID", svc.ID, "error", releaseErr)
			}
		}
		m.logger.Error("Failed to apply transition",
			"serviceID", svc.ID,
			"action", action,
			"error", err)
		return nil, err
	}

	m.metrics.NotificationsCreated.WithLabelValues(string(outcome.Event)).Inc()
	m.logger.Info("Service transitioned",
		"serviceID", svc.ID,
		"packageID", svc.PackageID,
		"action", action,
		"from", outcome.From,
		"to", outcome.Service.Status)

	result := outcome.Service
	result.UpdatedAt = now
	return m.view(result, now), nil
}

// ScanExpired announces every expired service that has not been announced yet.
// Announced services stay available, so the scan pages past them instead of
// rereading the first batch. It returns how many notices were recorded.
func (m *ServiceManager) ScanExpired(ctx context.Context) (int, error) {
	today := utils.DateOf(m.clock())

	var (
		sent  int
		after *entity.ServiceCursor
	)
	for {
		page, err := m.services.FindExpired(ctx, today, after, expiredScanBatch)
		if err != nil {
			return sent, err
		}

		for _, svc := range page {
			if ctx.Err() != nil {
				return sent, ctx.Err()
			}

			_, err := m.NotifyExpired(ctx, svc.ID)
			switch {
			case err == nil:
				sent++
			case errors.Is(err, entity.ErrAlreadyNotified), errors.Is(err, entity.ErrInvalidTransition):
			default:
				m.logger.Error("Failed to notify expired service", "serviceID", svc.ID, "error", err)
			}
		}

		if len(page) < expiredScanBatch {
			return sent, nil
		}
		after = entity.CursorOf(page[len(page)-1])
	}
}

func (m *ServiceManager) countTransition(action entity.Action, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, entity.ErrValidation):
		result = "invalid_input"
	case errors.Is(err, entity.ErrInvalidTransition):
		result = "invalid_transition"
	case errors.Is(err, entity.ErrServiceNotFound):
		result = "not_found"
	case errors.Is(err, entity.ErrConcurrentUpdate):
		result = "conflict"
	case errors.Is(err, entity.ErrAlreadyNotified):
		result = "duplicate"
	default:
		result = "error"
		m.metrics.ErrorsCount.WithLabelValues(string(action)).Inc()
	}
	m.metrics.Transitions.WithLabelValues(string(action), result).Inc()
}
