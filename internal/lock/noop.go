package lock

import (
	"context"
	"time"
)

// NoOpLocker always grants the lock. Used by one-shot CLI commands
// where the process has the work to itself.
type NoOpLocker struct{}

// NewNoOpLocker creates a locker that never blocks.
func NewNoOpLocker() *NoOpLocker {
	return &NoOpLocker{}
}

// Acquire always succeeds.
func (NoOpLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return true, ctx.Err()
}

// Release always succeeds.
func (NoOpLocker) Release(ctx context.Context, key string) (bool, error) {
	return true, ctx.Err()
}

// IsHeld always reports free.
func (NoOpLocker) IsHeld(ctx context.Context, key string) (bool, error) {
	return false, ctx.Err()
}

var _ Locker = NoOpLocker{}
