package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/candleworks/candela/internal/domain"
	"github.com/candleworks/candela/internal/repository"
	"github.com/candleworks/candela/internal/token"
)

type stubPrincipalStore struct {
	users map[int64]*domain.User
}

func (s *stubPrincipalStore) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return user, nil
}

func newTestAuthenticator(users ...*domain.User) (*Authenticator, *token.Service) {
	store := &stubPrincipalStore{users: make(map[int64]*domain.User)}
	for _, u := range users {
		store.users[u.ID] = u
	}
	tokens := token.NewService("test-secret", time.Hour)
	return NewAuthenticator(tokens, store, nil, zerolog.Nop()), tokens
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAuth(t *testing.T) {
	alice := &domain.User{ID: 1, Email: "alice@example.com"}
	a, tokens := newTestAuthenticator(alice)

	validToken, _, err := tokens.Issue(alice.ID)
	require.NoError(t, err)

	orphanToken, _, err := tokens.Issue(99)
	require.NoError(t, err)

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{
			name:       "valid token",
			authHeader: "Bearer " + validToken,
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing header",
			authHeader: "",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "malformed header",
			authHeader: "Token " + validToken,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "garbage token",
			authHeader: "Bearer not.a.token",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "token for deleted user",
			authHeader: "Bearer " + orphanToken,
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()

			a.RequireAuth(okHandler()).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestRequireAuth_AttachesPrincipal(t *testing.T) {
	alice := &domain.User{ID: 1, Email: "alice@example.com", IsAdmin: true}
	a, tokens := newTestAuthenticator(alice)

	validToken, _, err := tokens.Issue(alice.ID)
	require.NoError(t, err)

	var got *Principal
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = PrincipalFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+validToken)
	rec := httptest.NewRecorder()

	a.RequireAuth(inner).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got)
	assert.Equal(t, alice.ID, got.UserID)
	assert.Equal(t, alice.Email, got.Email)
	assert.True(t, got.IsAdmin)
}

func TestRequireAdmin(t *testing.T) {
	a, _ := newTestAuthenticator()

	tests := []struct {
		name       string
		principal  *Principal
		wantStatus int
	}{
		{
			name:       "admin",
			principal:  &Principal{UserID: 1, IsAdmin: true},
			wantStatus: http.StatusOK,
		},
		{
			name:       "regular user",
			principal:  &Principal{UserID: 2},
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "no principal",
			principal:  nil,
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.principal != nil {
				req = req.WithContext(WithPrincipal(req.Context(), tt.principal))
			}
			rec := httptest.NewRecorder()

			a.RequireAdmin(okHandler()).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestRequireAPIKey(t *testing.T) {
	mw := RequireAPIKey("secret-key")

	tests := []struct {
		name       string
		key        string
		wantStatus int
	}{
		{name: "correct key", key: "secret-key", wantStatus: http.StatusOK},
		{name: "wrong key", key: "wrong", wantStatus: http.StatusUnauthorized},
		{name: "empty key", key: "", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.key != "" {
				req.Header.Set("X-API-Key", tt.key)
			}
			rec := httptest.NewRecorder()

			mw(okHandler()).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}
