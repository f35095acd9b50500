package usecase

import (
	"context"
	"time"

	"killua-service-provider/pkg/logger"
)

// ExpiryWorker periodically announces services that passed their date unbooked
type ExpiryWorker struct {
	manager  *ServiceManager
	interval time.Duration
	logger   logger.Logger
}

// NewExpiryWorker creates a new expiry worker
func NewExpiryWorker(manager *ServiceManager, interval time.Duration, logger logger.Logger) *ExpiryWorker {
	return &ExpiryWorker{
		manager:  manager,
		interval: interval,
		logger:   logger,
	}
}

// Start scans on every tick until ctx is cancelled
func (w *ExpiryWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("Expiry worker started", "interval", w.interval.String())

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Expiry worker stopped")
			return
		case <-ticker.C:
			w.scan(ctx)
		}
	}
}

func (w *ExpiryWorker) scan(ctx context.Context) {
	sent, err := w.manager.ScanExpired(ctx)
	if err != nil {
		w.logger.Error("Expiry scan failed", "error", err)
		return
	}
	if sent > 0 {
		w.logger.Info("Expired services announced", "count", sent)
	}
}
