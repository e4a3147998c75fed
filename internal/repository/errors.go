package repository

import "errors"

// Repository errors
var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")

	// ErrConstraintViolation indicates a delete was rejected because the
	// entity is still referenced by dependent rows in a relation that does
	// not cascade.
	ErrConstraintViolation = errors.New("constraint violation")
)

// Cache errors
var (
	// ErrCacheMiss indicates the key was not found in cache.
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheUnavailable indicates the cache backend could not be reached.
	// Callers treat this as a miss and fall through to the repository.
	ErrCacheUnavailable = errors.New("cache unavailable")
)
