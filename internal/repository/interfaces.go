// Package repository defines data access interfaces for Candela.
// These interfaces abstract database operations, allowing for different
// implementations (PostgreSQL, SQLite, in-memory for testing) while keeping
// the service layer clean.
package repository

import (
	"context"

	"github.com/candleworks/candela/internal/domain"
)

// =============================================================================
// User Repository
// =============================================================================

// UserRepository defines the interface for user data access.
type UserRepository interface {
	// Create creates a new user. Email uniqueness is enforced here:
	// a duplicate email returns domain.ErrUserAlreadyExists.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id int64) (*domain.User, error)

	// GetByEmail retrieves a user by email.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// Update updates an existing user.
	Update(ctx context.Context, user *domain.User) error

	// Delete deletes a user by ID.
	Delete(ctx context.Context, id int64) error

	// List returns all users with pagination.
	List(ctx context.Context, opts ListOptions) (*ListResult[domain.User], error)

	// ExistsByEmail checks if a user with the given email exists.
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// =============================================================================
// Candle Repository
// =============================================================================

// CandleRepository defines the interface for candle data access.
type CandleRepository interface {
	// Create creates a new candle.
	Create(ctx context.Context, candle *domain.Candle) error

	// GetByID retrieves a candle by ID.
	GetByID(ctx context.Context, id int64) (*domain.Candle, error)

	// List returns candles with pagination.
	List(ctx context.Context, opts ListOptions) (*ListResult[domain.Candle], error)

	// Update updates an existing candle.
	Update(ctx context.Context, candle *domain.Candle) error

	// Delete deletes a candle by ID in a single transaction.
	//
	// When cascadeDisposable is true, the disposable relations that the
	// schema does not cascade on its own (cart_items, wishlists, reviews)
	// are purged first; schema-cascaded relations (candle_images,
	// candle_tags) are handled by the database either way. When the candle
	// is still referenced by a blocking relation (order_items) the whole
	// transaction rolls back and ErrConstraintViolation is returned -
	// no disposable rows are left half-deleted.
	//
	// Returns ErrNotFound if the candle does not exist.
	Delete(ctx context.Context, id int64, cascadeDisposable bool) error

	// AddImage records image metadata for a candle.
	AddImage(ctx context.Context, img *domain.CandleImage) error

	// ListImages returns all image rows for a candle.
	ListImages(ctx context.Context, candleID int64) ([]*domain.CandleImage, error)

	// ListImageStorageKeys returns the storage keys of every image row.
	// Used by media garbage collection to identify orphan blobs.
	ListImageStorageKeys(ctx context.Context) ([]string, error)

	// ListTags returns all tags, ordered by name.
	ListTags(ctx context.Context) ([]*domain.Tag, error)
}

// =============================================================================
// Category Repository
// =============================================================================

// CategoryRepository defines the interface for category data access.
type CategoryRepository interface {
	// Create creates a new category. Duplicate names return
	// domain.ErrCategoryAlreadyExists.
	Create(ctx context.Context, category *domain.Category) error

	// GetByID retrieves a category by ID.
	GetByID(ctx context.Context, id int64) (*domain.Category, error)

	// List returns all categories.
	List(ctx context.Context) ([]*domain.Category, error)

	// Update updates an existing category.
	Update(ctx context.Context, category *domain.Category) error

	// Delete deletes a category by ID. Candles in the category are
	// detached (category_id set NULL by the schema), never deleted.
	Delete(ctx context.Context, id int64) error
}

// =============================================================================
// Reference Repository
// =============================================================================

// ReferenceRepository enumerates dependent rows referencing a candle.
// It is strictly read-only; the per-relation queries are driven by the
// domain.CandleRelations classification table.
type ReferenceRepository interface {
	// Audit returns, per dependent relation, the count of rows referencing
	// the candle and up to maxRows identifying rows each.
	Audit(ctx context.Context, candleID int64, maxRows int) (*domain.ReferenceAudit, error)
}

// =============================================================================
// Common Types
// =============================================================================

// ListOptions contains common pagination options.
type ListOptions struct {
	// Offset is the number of records to skip.
	Offset int

	// Limit is the maximum number of records to return.
	Limit int

	// OrderBy specifies the sort order.
	OrderBy string

	// Descending specifies descending order if true.
	Descending bool
}

// ListResult is a generic paginated list result.
type ListResult[T any] struct {
	// Items is the list of items.
	Items []*T

	// Total is the total number of items (without pagination).
	Total int64

	// Offset is the current offset.
	Offset int

	// Limit is the current limit.
	Limit int
}
