package lock

import (
	"context"
	"sync"
	"time"
)

// MemoryLocker is a process-local Locker for single-node deployments.
// Expired entries are reaped lazily on access, so no background
// goroutine is needed.
type MemoryLocker struct {
	mu      sync.Mutex
	expires map[string]time.Time
}

// NewMemoryLocker creates a new in-process locker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{expires: make(map[string]time.Time)}
}

// Acquire takes the lock if it is free or expired.
func (m *MemoryLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if deadline, ok := m.expires[key]; ok && now.Before(deadline) {
		return false, nil
	}

	m.expires[key] = now.Add(ttl)
	return true, nil
}

// Release drops the lock.
func (m *MemoryLocker) Release(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.expires[key]; !ok {
		return false, nil
	}
	delete(m.expires, key)
	return true, nil
}

// IsHeld reports whether the lock is held and not expired.
func (m *MemoryLocker) IsHeld(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	deadline, ok := m.expires[key]
	if !ok {
		return false, nil
	}
	if time.Now().After(deadline) {
		delete(m.expires, key)
		return false, nil
	}
	return true, nil
}

var _ Locker = (*MemoryLocker)(nil)
