package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/candleworks/candela/internal/domain"
	"github.com/candleworks/candela/internal/pkg/crypto"
	"github.com/candleworks/candela/internal/token"
)

const testAdminKey = "test-admin-key"

func newAuthService(repo *MockUserRepository) *AuthService {
	tokens := token.NewService("test-secret", 30*time.Minute)
	return NewAuthService(repo, tokens, testAdminKey, zerolog.Nop())
}

func seedUser(t *testing.T, repo *MockUserRepository, email, password string, isAdmin bool) *domain.User {
	t.Helper()
	hash, err := crypto.HashPassword(password)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	user := domain.NewUser(email, hash, "Test User")
	user.IsAdmin = isAdmin
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return user
}

func TestAuthService_Login(t *testing.T) {
	tests := []struct {
		name    string
		input   LoginInput
		wantErr error
	}{
		{
			name:    "success",
			input:   LoginInput{Email: "alice@example.com", Password: "password123"},
			wantErr: nil,
		},
		{
			name:    "email is case insensitive",
			input:   LoginInput{Email: "Alice@Example.COM", Password: "password123"},
			wantErr: nil,
		},
		{
			name:    "unknown email",
			input:   LoginInput{Email: "nobody@example.com", Password: "password123"},
			wantErr: ErrInvalidCredentials,
		},
		{
			name:    "wrong password",
			input:   LoginInput{Email: "alice@example.com", Password: "wrong-password"},
			wantErr: ErrInvalidCredentials,
		},
		{
			name:    "admin with key",
			input:   LoginInput{Email: "root@example.com", Password: "password123", APIKey: testAdminKey},
			wantErr: nil,
		},
		{
			name:    "admin without key",
			input:   LoginInput{Email: "root@example.com", Password: "password123"},
			wantErr: ErrAdminKeyRequired,
		},
		{
			name:    "admin with wrong key",
			input:   LoginInput{Email: "root@example.com", Password: "password123", APIKey: "nope"},
			wantErr: ErrAdminKeyRequired,
		},
		{
			name:    "admin wrong password beats wrong key",
			input:   LoginInput{Email: "root@example.com", Password: "wrong", APIKey: "nope"},
			wantErr: ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewMockUserRepository()
			seedUser(t, repo, "alice@example.com", "password123", false)
			seedUser(t, repo, "root@example.com", "password123", true)
			svc := newAuthService(repo)

			output, err := svc.Login(context.Background(), tt.input)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if output.Token == "" {
				t.Error("expected a token")
			}
			if output.ExpiresIn <= 0 {
				t.Errorf("expected positive expires_in, got %d", output.ExpiresIn)
			}
		})
	}
}

func TestAuthService_Login_TokenResolvesToUser(t *testing.T) {
	repo := NewMockUserRepository()
	user := seedUser(t, repo, "alice@example.com", "password123", false)
	tokens := token.NewService("test-secret", 30*time.Minute)
	svc := NewAuthService(repo, tokens, testAdminKey, zerolog.Nop())

	output, err := svc.Login(context.Background(), LoginInput{
		Email:    "alice@example.com",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	subject, err := tokens.Verify(output.Token)
	if err != nil {
		t.Fatalf("issued token failed verification: %v", err)
	}
	if subject != user.ID {
		t.Errorf("expected subject %d, got %d", user.ID, subject)
	}
}

func TestAuthService_Register(t *testing.T) {
	tests := []struct {
		name    string
		input   RegisterInput
		setup   func(*testing.T, *MockUserRepository)
		wantErr error
	}{
		{
			name:    "success",
			input:   RegisterInput{Email: "new@example.com", Password: "password123", FullName: "New User"},
			wantErr: nil,
		},
		{
			name:  "duplicate email",
			input: RegisterInput{Email: "taken@example.com", Password: "password123"},
			setup: func(t *testing.T, repo *MockUserRepository) {
				seedUser(t, repo, "taken@example.com", "password123", false)
			},
			wantErr: domain.ErrUserAlreadyExists,
		},
		{
			name:  "duplicate email different case",
			input: RegisterInput{Email: "Taken@Example.com", Password: "password123"},
			setup: func(t *testing.T, repo *MockUserRepository) {
				seedUser(t, repo, "taken@example.com", "password123", false)
			},
			wantErr: domain.ErrUserAlreadyExists,
		},
		{
			name:    "short password",
			input:   RegisterInput{Email: "new@example.com", Password: "short"},
			wantErr: ErrInvalidPassword,
		},
		{
			name:    "bad email",
			input:   RegisterInput{Email: "not-an-email", Password: "password123"},
			wantErr: ErrInvalidEmail,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewMockUserRepository()
			if tt.setup != nil {
				tt.setup(t, repo)
			}
			svc := newAuthService(repo)

			output, err := svc.Register(context.Background(), tt.input)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if output.User.IsAdmin {
				t.Error("registered user must not be admin")
			}
			if output.User.PasswordHash == tt.input.Password {
				t.Error("password stored unhashed")
			}
			if !crypto.CheckPassword(tt.input.Password, output.User.PasswordHash) {
				t.Error("stored hash does not verify against the password")
			}
		})
	}
}

func TestAuthService_CreateAdmin(t *testing.T) {
	tests := []struct {
		name    string
		input   CreateAdminInput
		wantErr error
	}{
		{
			name: "success",
			input: CreateAdminInput{
				Email:       "root@example.com",
				Password:    "password123",
				AdminAPIKey: testAdminKey,
			},
			wantErr: nil,
		},
		{
			name: "wrong key",
			input: CreateAdminInput{
				Email:       "root@example.com",
				Password:    "password123",
				AdminAPIKey: "nope",
			},
			wantErr: ErrAdminKeyRequired,
		},
		{
			name: "missing key",
			input: CreateAdminInput{
				Email:    "root@example.com",
				Password: "password123",
			},
			wantErr: ErrAdminKeyRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewMockUserRepository()
			svc := newAuthService(repo)

			output, err := svc.CreateAdmin(context.Background(), tt.input)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !output.User.IsAdmin {
				t.Error("expected an admin user")
			}
		})
	}
}

func TestAuthService_CreateAdmin_EmptyConfiguredKey(t *testing.T) {
	repo := NewMockUserRepository()
	tokens := token.NewService("test-secret", 30*time.Minute)
	svc := NewAuthService(repo, tokens, "", zerolog.Nop())

	_, err := svc.CreateAdmin(context.Background(), CreateAdminInput{
		Email:       "root@example.com",
		Password:    "password123",
		AdminAPIKey: "",
	})
	if !errors.Is(err, ErrAdminKeyRequired) {
		t.Errorf("empty configured key must never match, got %v", err)
	}
}
