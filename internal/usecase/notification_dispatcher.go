package usecase

import (
	"context"
	"fmt"
	"time"

	"killua-service-provider/internal/domain/entity"
	"killua-service-provider/internal/domain/repository"
	"killua-service-provider/pkg/logger"
	"killua-service-provider/pkg/metrics"
)

// DispatcherOptions configures a NotificationDispatcher
type DispatcherOptions struct {
	BatchSize   int
	MaxAttempts int
}

// NotificationDispatcher drains undispatched notifications to the outbound sinks
type NotificationDispatcher struct {
	notifications repository.NotificationRepository
	deliveries    repository.DeliveryRepository
	router        EventRouter
	metrics       *metrics.Metrics
	logger        logger.Logger
	batchSize     int
	maxAttempts   int
	now           func() time.Time
}

// NewNotificationDispatcher creates a dispatcher. deliveries may be nil.
func NewNotificationDispatcher(
	notifications repository.NotificationRepository,
	deliveries repository.DeliveryRepository,
	router EventRouter,
	metrics *metrics.Metrics,
	logger logger.Logger,
	opts DispatcherOptions,
) *NotificationDispatcher {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	return &NotificationDispatcher{
		notifications: notifications,
		deliveries:    deliveries,
		router:        router,
		metrics:       metrics,
		logger:        logger,
		batchSize:     opts.BatchSize,
		maxAttempts:   opts.MaxAttempts,
		now:           time.Now,
	}
}

// Start dispatches on every tick until ctx is cancelled
func (d *NotificationDispatcher) Start(ctx context.Context, interval time.Duration) {
	if _, err := d.DispatchPending(ctx); err != nil {
		d.logger.Error("Failed to dispatch pending notifications on startup", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Notification dispatcher stopped")
			return
		case <-ticker.C:
			if _, err := d.DispatchPending(ctx); err != nil {
				d.logger.Error("Error dispatching notifications", "error", err)
			}
		}
	}
}

// DispatchPending sends one batch and returns how many notifications left the outbox
func (d *NotificationDispatcher) DispatchPending(ctx context.Context) (int, error) {
	start := time.Now()
	defer func() {
		d.metrics.DispatchTime.Observe(time.Since(start).Seconds())
	}()

	pending, err := d.notifications.FindUndispatched(ctx, d.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to find undispatched notifications: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	d.logger.Info("Dispatching notifications", "count", len(pending))

	done := 0
	for _, n := range pending {
		if ctx.Err() != nil {
			return done, ctx.Err()
		}
		if d.dispatch(ctx, n) {
			done++
		}
	}
	return done, nil
}

// dispatch hands n to every accepting sink and reports whether it left the outbox
func (d *NotificationDispatcher) dispatch(ctx context.Context, n *entity.Notification) bool {
	attempt := n.DispatchAttempts + 1
	sinks := d.router.SinksFor(n.EventType)
	delivered := d.alreadyDelivered(ctx, n)

	failed := 0
	for _, sink := range sinks {
		if delivered[sink.Name()] {
			continue
		}

		status := entity.DeliveryStatusSent
		detail := ""
		if err := sink.Deliver(ctx, n); err != nil {
			failed++
			status = entity.DeliveryStatusFailed
			detail = err.Error()
			d.logger.Warn("Sink failed to deliver notification",
				"notificationID", n.ID,
				"sink", sink.Name(),
				"attempt", attempt,
				"error", err)
		}

		d.metrics.Deliveries.WithLabelValues(sink.Name(), status).Inc()
		d.record(ctx, n, sink.Name(), status, attempt, detail)
	}

	if failed == 0 {
		return d.markDispatched(ctx, n)
	}

	if err := d.notifications.IncrementAttempts(ctx, n.ID); err != nil {
		d.logger.Error("Failed to increment dispatch attempts", "notificationID", n.ID, "error", err)
	}
	if attempt >= d.maxAttempts {
		d.logger.Warn("Giving up on notification",
			"notificationID", n.ID,
			"eventType", n.EventType,
			"attempts", attempt,
			"failedSinks", failed)
		return d.markDispatched(ctx, n)
	}
	return false
}

// alreadyDelivered returns the sinks that accepted n on an earlier attempt
func (d *NotificationDispatcher) alreadyDelivered(ctx context.Context, n *entity.Notification) map[string]bool {
	delivered := make(map[string]bool)
	if d.deliveries == nil || n.DispatchAttempts == 0 {
		return delivered
	}

	previous, err := d.deliveries.FindByNotificationID(ctx, n.ID)
	if err != nil {
		d.logger.Warn("Failed to read delivery log", "notificationID", n.ID, "error", err)
		return delivered
	}
	for _, p := range previous {
		if p.Status == entity.DeliveryStatusSent {
			delivered[p.Sink] = true
		}
	}
	return delivered
}

func (d *NotificationDispatcher) record(ctx context.Context, n *entity.Notification, sink, status string, attempt int, detail string) {
	if d.deliveries == nil {
		return
	}
	err := d.deliveries.Save(ctx, &entity.Delivery{
		NotificationID: n.ID,
		EventType:      n.EventType,
		Sink:           sink,
		Status:         status,
		Attempt:        attempt,
		ErrorDetail:    detail,
		AttemptedAt:    d.now().UTC(),
	})
	if err != nil {
		d.logger.Error("Failed to record delivery", "notificationID", n.ID, "sink", sink, "error", err)
	}
}

func (d *NotificationDispatcher) markDispatched(ctx context.Context, n *entity.Notification) bool {
	if err := d.notifications.MarkDispatched(ctx, n.ID, d.now().UTC()); err != nil {
		d.logger.Error("Failed to mark notification dispatched", "notificationID", n.ID, "error", err)
		return false
	}
	return true
}
