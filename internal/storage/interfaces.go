// Package storage defines interfaces for media storage backends.
// The storage layer persists raw media content (candle images) under
// opaque keys; the database holds the metadata rows pointing at them.
package storage

import (
	"context"
	"io"
	"time"
)

// ObjectInfo describes one stored object. ModTime drives the garbage
// collector's grace period: objects younger than the grace period are
// never collected even when no database row references them yet.
type ObjectInfo struct {
	Key     string    `json:"key"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// Backend defines the interface for media storage backends.
// Implementations include the local filesystem and S3-compatible object
// stores. The interface is stateless and safe for concurrent use.
type Backend interface {
	// Store persists content under the given key, overwriting any
	// previous content at that key.
	Store(ctx context.Context, key string, reader io.Reader, size int64) error

	// Retrieve returns a stream of the content at key.
	// The caller must close the returned ReadCloser.
	// Returns domain.ErrMediaNotFound if the key doesn't exist.
	Retrieve(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the content at key.
	// Returns domain.ErrMediaNotFound if the key doesn't exist.
	Delete(ctx context.Context, key string) error

	// Exists checks if content is stored under key.
	Exists(ctx context.Context, key string) (bool, error)

	// List enumerates every stored object. Used by the garbage
	// collector to find objects no database row references.
	List(ctx context.Context) ([]ObjectInfo, error)
}
