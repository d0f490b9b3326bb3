package cache

import (
	"context"
	"errors"
	"time"
)

type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (hit bool, err error)
	SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// Locker serializes work on one key across processes.
type Locker interface {
	// Acquire blocks until the lock is held or ctx ends. The returned
	// release func is safe to call once the lock expired.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

var ErrLockNotAcquired = errors.New("lock not acquired")
