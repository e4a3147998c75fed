package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/candleworks/candela/internal/domain"
	"github.com/candleworks/candela/internal/pkg/crypto"
	"github.com/candleworks/candela/internal/repository"
	"github.com/candleworks/candela/internal/token"
)

// AuthService handles registration and login.
type AuthService struct {
	userRepo    repository.UserRepository
	tokens      *token.Service
	adminAPIKey string
	logger      zerolog.Logger
}

// NewAuthService creates a new AuthService. adminAPIKey is the second
// factor demanded from admin accounts at login time; empty disables
// admin logins entirely.
func NewAuthService(
	userRepo repository.UserRepository,
	tokens *token.Service,
	adminAPIKey string,
	logger zerolog.Logger,
) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		tokens:      tokens,
		adminAPIKey: adminAPIKey,
		logger:      logger.With().Str("service", "auth").Logger(),
	}
}

// =============================================================================
// Input/Output Structs
// =============================================================================

// LoginInput contains the data needed to log in.
type LoginInput struct {
	Email    string
	Password string

	// APIKey is the admin second factor. Ignored for regular accounts.
	APIKey string
}

// LoginOutput contains the result of a successful login.
type LoginOutput struct {
	Token     string
	ExpiresIn int64 // seconds
	UserID    int64
	Email     string
	FullName  string
	IsAdmin   bool
}

// RegisterInput contains the data needed to register a new account.
type RegisterInput struct {
	Email    string
	Password string
	FullName string
}

// RegisterOutput contains the result of registering.
type RegisterOutput struct {
	User *domain.User
}

// CreateAdminInput contains the data needed to create an admin account.
type CreateAdminInput struct {
	Email       string
	Password    string
	FullName    string
	AdminAPIKey string
}

// CreateAdminOutput contains the result of creating an admin account.
type CreateAdminOutput struct {
	User *domain.User
}

// =============================================================================
// Service Methods
// =============================================================================

// Login verifies credentials and issues an access token.
// Admin accounts must additionally present the admin API key; a correct
// password without it is rejected with ErrAdminKeyRequired.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginOutput, error) {
	email := normalizeEmail(input.Email)

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Burn a comparison anyway so unknown emails cost the same
			// as wrong passwords.
			crypto.CheckPassword(input.Password, "")
			return nil, ErrInvalidCredentials
		}
		s.logger.Error().Err(err).Str("email", email).Msg("failed to look up user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if !crypto.CheckPassword(input.Password, user.PasswordHash) {
		s.logger.Debug().Str("email", email).Msg("login rejected: wrong password")
		return nil, ErrInvalidCredentials
	}

	if user.IsAdmin && !s.adminKeyMatches(input.APIKey) {
		s.logger.Warn().Str("email", email).Msg("admin login rejected: missing or wrong API key")
		return nil, ErrAdminKeyRequired
	}

	accessToken, expiresAt, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", user.ID).Msg("failed to issue token")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Int64("user_id", user.ID).
		Str("email", user.Email).
		Bool("is_admin", user.IsAdmin).
		Msg("user logged in")

	return &LoginOutput{
		Token:     accessToken,
		ExpiresIn: int64(time.Until(expiresAt).Seconds()),
		UserID:    user.ID,
		Email:     user.Email,
		FullName:  user.FullName,
		IsAdmin:   user.IsAdmin,
	}, nil
}

// Register creates a new non-admin account. There is no way to register
// an admin through this path.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*RegisterOutput, error) {
	email := normalizeEmail(input.Email)

	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, err
	}

	hash, err := crypto.HashPassword(input.Password)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to hash password")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	user := domain.NewUser(email, hash, input.FullName)

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUserAlreadyExists) {
			return nil, domain.ErrUserAlreadyExists
		}
		s.logger.Error().Err(err).Str("email", email).Msg("failed to create user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().Int64("user_id", user.ID).Str("email", user.Email).Msg("user registered")

	return &RegisterOutput{User: user}, nil
}

// CreateAdmin creates an admin account. Requires the admin API key.
func (s *AuthService) CreateAdmin(ctx context.Context, input CreateAdminInput) (*CreateAdminOutput, error) {
	if !s.adminKeyMatches(input.AdminAPIKey) {
		s.logger.Warn().Str("email", input.Email).Msg("admin creation rejected: wrong API key")
		return nil, ErrAdminKeyRequired
	}

	email := normalizeEmail(input.Email)

	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, err
	}

	hash, err := crypto.HashPassword(input.Password)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to hash password")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	user := domain.NewUser(email, hash, input.FullName)
	user.IsAdmin = true

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUserAlreadyExists) {
			return nil, domain.ErrUserAlreadyExists
		}
		s.logger.Error().Err(err).Str("email", email).Msg("failed to create admin")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().Int64("user_id", user.ID).Str("email", user.Email).Msg("admin created")

	return &CreateAdminOutput{User: user}, nil
}

// adminKeyMatches checks the admin second factor in constant time.
// An empty configured key never matches.
func (s *AuthService) adminKeyMatches(provided string) bool {
	if s.adminAPIKey == "" || provided == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(s.adminAPIKey)) == 1
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	at := strings.Index(email, "@")
	if at < 1 || at == len(email)-1 || len(email) > 255 {
		return ErrInvalidEmail
	}
	if !strings.Contains(email[at+1:], ".") {
		return ErrInvalidEmail
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return ErrInvalidPassword
	}
	return nil
}
