package repository

import (
	"context"
	"time"
)

// ExpiryNoticeGuard remembers which services already had their expiry announced
type ExpiryNoticeGuard interface {
	// Acquire returns true the first time it is called for serviceID within ttl
	Acquire(ctx context.Context, serviceID string, ttl time.Duration) (bool, error)
	// Release forgets serviceID so a failed notice can be retried
	Release(ctx context.Context, serviceID string) error
}
