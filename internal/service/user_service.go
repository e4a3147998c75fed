package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/candleworks/candela/internal/domain"
	"github.com/candleworks/candela/internal/repository"
)

// UserService handles user profile operations.
type UserService struct {
	userRepo repository.UserRepository
	logger   zerolog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(userRepo repository.UserRepository, logger zerolog.Logger) *UserService {
	return &UserService{
		userRepo: userRepo,
		logger:   logger.With().Str("service", "user").Logger(),
	}
}

// UpdateProfileInput contains the profile fields a user may change.
// Nil fields are left untouched.
type UpdateProfileInput struct {
	UserID         int64
	FullName       *string
	Phone          *string
	ProfilePicture *string
}

// ListUsersInput contains pagination for listing users.
type ListUsersInput struct {
	Offset int
	Limit  int
}

// ListUsersOutput contains one page of users.
type ListUsersOutput struct {
	Users []*domain.User
	Total int64
}

// GetByID returns a user by ID.
func (s *UserService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		s.logger.Error().Err(err).Int64("user_id", id).Msg("failed to get user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return user, nil
}

// UpdateProfile updates the mutable profile fields of a user.
func (s *UserService) UpdateProfile(ctx context.Context, input UpdateProfileInput) (*domain.User, error) {
	user, err := s.GetByID(ctx, input.UserID)
	if err != nil {
		return nil, err
	}

	if input.FullName != nil {
		user.FullName = *input.FullName
	}
	if input.Phone != nil {
		user.Phone = *input.Phone
	}
	if input.ProfilePicture != nil {
		user.ProfilePicture = *input.ProfilePicture
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		s.logger.Error().Err(err).Int64("user_id", user.ID).Msg("failed to update user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().Int64("user_id", user.ID).Msg("profile updated")
	return user, nil
}

// List returns a page of users. Admin only; enforced at the route.
func (s *UserService) List(ctx context.Context, input ListUsersInput) (*ListUsersOutput, error) {
	limit := input.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	result, err := s.userRepo.List(ctx, repository.ListOptions{
		Offset: input.Offset,
		Limit:  limit,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list users")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	return &ListUsersOutput{
		Users: result.Items,
		Total: result.Total,
	}, nil
}

// Delete removes a user account. A user with order history cannot be
// deleted; order rows are sales records and never cascade with their
// owner.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	if err := s.userRepo.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return domain.ErrUserNotFound
		case errors.Is(err, repository.ErrConstraintViolation):
			s.logger.Info().Int64("user_id", id).Msg("delete blocked by references")
			return fmt.Errorf("%w: user %d is referenced by order history", domain.ErrUserReferenced, id)
		}
		s.logger.Error().Err(err).Int64("user_id", id).Msg("failed to delete user")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().Int64("user_id", id).Msg("user deleted")
	return nil
}
