package auth

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/candleworks/candela/internal/domain"
	"github.com/candleworks/candela/internal/repository"
	"github.com/candleworks/candela/internal/token"
)

// principalCacheTTL bounds how long a deleted or demoted user keeps an
// already-cached principal.
const principalCacheTTL = 30 * time.Second

// PrincipalStore resolves a token subject to a live user row.
// A token whose subject no longer exists must not authenticate.
type PrincipalStore interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

// Authenticator authenticates HTTP requests.
type Authenticator struct {
	tokens *token.Service
	users  PrincipalStore
	cache  repository.Cache
	logger zerolog.Logger
}

// NewAuthenticator creates an Authenticator. The cache is optional;
// pass nil to resolve every request against the store.
func NewAuthenticator(tokens *token.Service, users PrincipalStore, cache repository.Cache, logger zerolog.Logger) *Authenticator {
	return &Authenticator{
		tokens: tokens,
		users:  users,
		cache:  cache,
		logger: logger.With().Str("component", "auth").Logger(),
	}
}

// RequireAuth verifies the bearer token and attaches the resolved
// principal to the request context. Missing, invalid or expired tokens,
// and tokens whose user has since been deleted, get 401.
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		userID, err := a.tokens.Verify(raw)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		principal, err := a.resolvePrincipal(r.Context(), userID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				// The account was deleted after the token was issued.
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			a.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to resolve principal")
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}

// RequireAdmin allows only authenticated admins through.
// Must be mounted inside RequireAuth.
func (a *Authenticator) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		if !principal.IsAdmin {
			writeError(w, http.StatusForbidden, "admin privileges required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAPIKey guards legacy write routes with a static X-API-Key
// header. The comparison is constant-time.
func RequireAPIKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := r.Header.Get("X-API-Key")
			if provided == "" ||
				subtle.ConstantTimeCompare([]byte(provided), []byte(key)) != 1 {
				writeError(w, http.StatusUnauthorized, "invalid API key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (a *Authenticator) resolvePrincipal(ctx context.Context, userID int64) (*Principal, error) {
	cacheKey := fmt.Sprintf("principal:%d", userID)

	if a.cache != nil {
		if data, err := a.cache.Get(ctx, cacheKey); err == nil {
			principal := &Principal{}
			if err := json.Unmarshal(data, principal); err == nil {
				return principal, nil
			}
		}
	}

	user, err := a.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	principal := PrincipalFromUser(user)

	if a.cache != nil {
		if data, err := json.Marshal(principal); err == nil {
			if err := a.cache.Set(ctx, cacheKey, data, principalCacheTTL); err != nil {
				a.logger.Debug().Err(err).Msg("failed to cache principal")
			}
		}
	}

	return principal, nil
}

// InvalidatePrincipal drops the cached principal for a user. Called
// after profile updates and deletions so stale identity doesn't linger.
func (a *Authenticator) InvalidatePrincipal(ctx context.Context, userID int64) {
	if a.cache == nil {
		return
	}
	if err := a.cache.Delete(ctx, fmt.Sprintf("principal:%d", userID)); err != nil {
		a.logger.Debug().Err(err).Int64("user_id", userID).Msg("failed to invalidate principal")
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
