package auth

import (
	"errors"
	"testing"
	"time"
)

const testUserID = "0a1b2c3d-4e5f-4a6b-8c9d-0e1f2a3b4c5d"

func TestAccessTokenRoundTrip(t *testing.T) {
	m := NewJWTManager("secret", time.Minute)

	token, expiresAt, err := m.GenerateAccessToken(testUserID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := m.ParseAccessToken(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != testUserID || claims.TokenID == "" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if !claims.ExpiresAt.Equal(expiresAt.Truncate(time.Second)) {
		t.Fatalf("expected expiry %v, got %v", expiresAt, claims.ExpiresAt)
	}
}

func TestParseRejectsForeignAndExpiredTokens(t *testing.T) {
	issuer := NewJWTManager("secret", time.Minute)
	token, _, err := issuer.GenerateAccessToken(testUserID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	other := NewJWTManager("another-secret", time.Minute)
	if _, err := other.ParseAccessToken(token); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized for wrong secret, got %v", err)
	}

	late := NewJWTManager("secret", time.Minute)
	late.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if _, err := late.ParseAccessToken(token); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized for expired token, got %v", err)
	}

	if _, err := issuer.ParseAccessToken(""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized for empty token")
	}
}

func TestGenerateRejectsBadInput(t *testing.T) {
	if _, _, err := NewJWTManager("", time.Minute).GenerateAccessToken(testUserID); err == nil {
		t.Fatalf("expected error for empty secret")
	}
	if _, _, err := NewJWTManager("secret", time.Minute).GenerateAccessToken("42"); err == nil {
		t.Fatalf("expected error for non-uuid subject")
	}
}
