// Package lock coordinates singleton work across server instances.
// Single-node deployments use in-process locks; multi-instance
// deployments share locks through Redis.
package lock

import (
	"context"
	"time"
)

// Locker is a TTL-based advisory lock. A lock not released in time
// expires on its own, so a crashed holder never wedges the work.
type Locker interface {
	// Acquire takes the lock if it is free or expired. Returns false
	// when another holder has it.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release drops the lock. Returns false if it wasn't held.
	Release(ctx context.Context, key string) (bool, error)

	// IsHeld reports whether anyone currently holds the lock.
	IsHeld(ctx context.Context, key string) (bool, error)
}

// Keys provides the well-known lock keys.
var Keys = lockKeys{}

type lockKeys struct{}

// MediaGC is the key serializing media garbage collection sweeps.
// Only one instance may sweep orphaned media at a time.
func (lockKeys) MediaGC() string {
	return "lock:gc:media"
}
