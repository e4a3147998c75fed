// Package service provides business logic services for Candela.
package service

import "errors"

// Common service errors.
var (
	// Auth errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAdminKeyRequired   = errors.New("admin API key required")
	ErrInvalidPassword    = errors.New("invalid password: must be at least 8 characters")
	ErrInvalidEmail       = errors.New("invalid email format")

	// Validation errors
	ErrInvalidInput = errors.New("invalid input")

	// General errors
	ErrInternalError = errors.New("internal server error")
)
