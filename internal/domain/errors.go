// Package domain contains the core business entities for Candela.
package domain

import "errors"

// Domain errors - these represent business rule violations.
// They are distinct from infrastructure errors (database, network, etc.).

var (
	// ===========================================
	// User Errors
	// ===========================================

	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists indicates a user with the same email exists.
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrUserReferenced indicates the user is referenced by dependent rows
	// in a relation that cannot be cascaded (order history).
	ErrUserReferenced = errors.New("user has live references")

	// ===========================================
	// Catalog Errors
	// ===========================================

	// ErrCandleNotFound indicates the requested candle does not exist.
	ErrCandleNotFound = errors.New("candle not found")

	// ErrCandleReferenced indicates the candle is referenced by dependent
	// rows in a relation that cannot be cascaded.
	ErrCandleReferenced = errors.New("candle has live references")

	// ErrCategoryNotFound indicates the requested category does not exist.
	ErrCategoryNotFound = errors.New("category not found")

	// ErrCategoryAlreadyExists indicates a category with the same name exists.
	ErrCategoryAlreadyExists = errors.New("category already exists")

	// ErrImageNotFound indicates the requested candle image does not exist.
	ErrImageNotFound = errors.New("image not found")

	// ===========================================
	// Media Storage Errors
	// ===========================================

	// ErrMediaNotFound indicates the stored media content does not exist.
	ErrMediaNotFound = errors.New("media not found")

	// ===========================================
	// Authentication/Authorization Errors
	// ===========================================

	// ErrAccessDenied indicates the user does not have permission.
	ErrAccessDenied = errors.New("access denied")
)
