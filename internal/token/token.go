// Package token issues and verifies signed session tokens.
// Tokens are self-contained HS256 JWTs carrying the subject user id and an
// absolute expiry. There is no server-side revocation: a token stays valid
// for its full TTL, and logout is client-side token discard.
package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is the single verification failure. Bad signature, wrong
// algorithm, malformed structure, unparseable subject and expired tokens are
// all reported identically so callers cannot distinguish verification
// internals.
var ErrInvalidToken = errors.New("invalid token")

// Service issues and verifies session tokens with a process-wide secret.
// The secret must stay stable for the life of all outstanding tokens;
// rotating it invalidates every token already issued.
type Service struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewService creates a token Service with the given signing secret and TTL.
func NewService(secret string, ttl time.Duration) *Service {
	return &Service{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// TTL returns the configured token lifetime.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Issue mints a token for the given subject user id.
// Returns the signed token and its absolute expiry.
func (s *Service) Issue(subjectID int64) (string, time.Time, error) {
	now := s.now().UTC()
	expiresAt := now.Add(s.ttl)

	claims := jwt.MapClaims{
		"sub": strconv.FormatInt(subjectID, 10),
		"iat": now.Unix(),
		"exp": expiresAt.Unix(),
	}

	tk := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tk.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, expiresAt, nil
}

// Verify checks a token's signature and expiry and returns the subject
// user id. Any failure is ErrInvalidToken; no grace period is applied for
// clock skew.
func (s *Service) Verify(raw string) (int64, error) {
	keyfunc := func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}

	tk, err := jwt.Parse(raw, keyfunc,
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(func() time.Time { return s.now() }),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !tk.Valid {
		return 0, ErrInvalidToken
	}

	claims, ok := tk.Claims.(jwt.MapClaims)
	if !ok {
		return 0, ErrInvalidToken
	}

	sub, _ := claims["sub"].(string)
	subjectID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || subjectID <= 0 {
		return 0, ErrInvalidToken
	}

	return subjectID, nil
}
