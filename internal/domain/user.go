// Package domain contains the core business entities for Candela.
// These are pure Go structs with no external dependencies, representing
// the fundamental concepts of the shop backend.
package domain

import (
	"time"
)

// User represents a registered user in the system.
// Users place orders, keep wishlists and carts, and write reviews.
type User struct {
	// ID is the unique identifier for the user (auto-generated).
	ID int64 `json:"id"`

	// Email is the unique email address used for login.
	Email string `json:"email"`

	// PasswordHash is the bcrypt hash of the user's password.
	// It must never appear in API responses or logs.
	PasswordHash string `json:"-"`

	// FullName is the user's display name.
	FullName string `json:"full_name"`

	// Phone is an optional contact number.
	Phone string `json:"phone,omitempty"`

	// ProfilePicture is an optional URL to the user's avatar.
	ProfilePicture string `json:"profile_picture,omitempty"`

	// IsAdmin indicates whether the user has administrative privileges.
	// Admins manage the catalog and other users.
	IsAdmin bool `json:"is_admin"`

	// CreatedAt is the timestamp when the user was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the timestamp when the user was last updated.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewUser creates a new non-admin User with default values.
func NewUser(email, passwordHash, fullName string) *User {
	now := time.Now().UTC()
	return &User{
		Email:        email,
		PasswordHash: passwordHash,
		FullName:     fullName,
		IsAdmin:      false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
