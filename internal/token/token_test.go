package token

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newTestService(secret string, ttl time.Duration, at time.Time) *Service {
	s := NewService(secret, ttl)
	s.now = func() time.Time { return at }
	return s
}

func TestService_IssueVerify(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService("test-secret", 30*time.Minute, base)

	signed, expiresAt, err := svc.Issue(42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, want := expiresAt, base.Add(30*time.Minute); !got.Equal(want) {
		t.Errorf("expected expiry %v, got %v", want, got)
	}

	subject, err := svc.Verify(signed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if subject != 42 {
		t.Errorf("expected subject 42, got %d", subject)
	}
}

func TestService_VerifyExpired(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService("test-secret", 30*time.Minute, base)

	signed, _, err := svc.Issue(7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Advance the clock past the TTL. No grace period applies.
	svc.now = func() time.Time { return base.Add(31 * time.Minute) }

	if _, err := svc.Verify(signed); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestService_VerifyTampered(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService("test-secret", time.Hour, base)

	signed, _, err := svc.Issue(42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Flip one byte in every position of the payload segment; the MAC covers
	// the whole payload so each mutation must fail verification.
	parts := strings.Split(signed, ".")
	if len(parts) != 3 {
		t.Fatalf("expected compact JWT, got %q", signed)
	}
	for i := range parts[1] {
		mutated := []byte(parts[1])
		if mutated[i] == 'A' {
			mutated[i] = 'B'
		} else {
			mutated[i] = 'A'
		}
		forged := parts[0] + "." + string(mutated) + "." + parts[2]
		if _, err := svc.Verify(forged); err != ErrInvalidToken {
			t.Fatalf("expected ErrInvalidToken for tampered byte %d, got %v", i, err)
		}
	}
}

func TestService_VerifyWrongSecret(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	issuer := newTestService("secret-a", time.Hour, base)
	verifier := newTestService("secret-b", time.Hour, base)

	signed, _, err := issuer.Issue(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := verifier.Verify(signed); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken under a different secret, got %v", err)
	}
}

func TestService_VerifyMalformed(t *testing.T) {
	svc := NewService("test-secret", time.Hour)

	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"not a jwt", "definitely-not-a-token"},
		{"two segments", "aaaa.bbbb"},
		// alg=none must be rejected like any signature failure.
		{"unsigned", "eyJhbGciOiJub25lIn0.eyJzdWIiOiI0MiJ9."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Verify(tt.raw); err != ErrInvalidToken {
				t.Errorf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestService_VerifyNonNumericSubject(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService("test-secret", time.Hour, base)

	// Correctly signed, not expired, but the subject is not a user id.
	claims := jwt.MapClaims{
		"sub": "not-a-user-id",
		"iat": base.Unix(),
		"exp": base.Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := svc.Verify(signed); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken for non-numeric subject, got %v", err)
	}
}
