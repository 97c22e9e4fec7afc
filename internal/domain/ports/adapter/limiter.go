package adapter

import (
	"context"
	"time"
)

// RateLimiter counts hits per key in a fixed window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, error)
}

// Locker is a best-effort distributed mutex.
type Locker interface {
	// TryLock returns domain.ErrLockBusy when the key is held elsewhere.
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}
