// Package auth provides request authentication middleware.
// Identity comes from bearer tokens; legacy write routes use a static
// API key instead.
package auth

import (
	"context"

	"github.com/candleworks/candela/internal/domain"
)

// Principal is the authenticated identity attached to a request context.
type Principal struct {
	UserID  int64  `json:"user_id"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
}

// PrincipalFromUser builds a Principal from a user row.
func PrincipalFromUser(user *domain.User) *Principal {
	return &Principal{
		UserID:  user.ID,
		Email:   user.Email,
		IsAdmin: user.IsAdmin,
	}
}

type principalCtxKey struct{}

// WithPrincipal returns a context carrying the authenticated principal.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey{}, p)
}

// PrincipalFrom returns the authenticated principal, if any.
func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalCtxKey{}).(*Principal)
	return p, ok
}
