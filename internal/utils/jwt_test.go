package utils

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func TestNewAccessTokenRoundTrip(t *testing.T) {
	secret := "test-secret"
	at, err := NewAccessToken(secret, 42, "STUDENT", 30)
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}

	tok, err := jwt.Parse(at.Token, func(tk *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		t.Fatalf("issued token failed to parse: %v", err)
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		t.Fatal("unexpected claims type")
	}
	if sub, _ := claims["sub"].(float64); uint64(sub) != 42 {
		t.Errorf("sub = %v, want 42", claims["sub"])
	}
	if role, _ := claims["role"].(string); role != "STUDENT" {
		t.Errorf("role = %v, want STUDENT", claims["role"])
	}
}

func TestNewRefreshTokenUniqueness(t *testing.T) {
	a, err := NewRefreshToken(7)
	if err != nil {
		t.Fatalf("NewRefreshToken: %v", err)
	}
	b, err := NewRefreshToken(7)
	if err != nil {
		t.Fatalf("NewRefreshToken: %v", err)
	}
	if a.Raw == b.Raw {
		t.Error("two refresh tokens should never collide")
	}
	if len(a.Raw) != 96 {
		t.Errorf("raw token length = %d, want 96 hex chars", len(a.Raw))
	}
}

func TestHashRefreshRawStable(t *testing.T) {
	if HashRefreshRaw("abc") != HashRefreshRaw("abc") {
		t.Error("hash must be deterministic")
	}
	if HashRefreshRaw("abc") == HashRefreshRaw("abd") {
		t.Error("different tokens must hash differently")
	}
	if len(HashRefreshRaw("abc")) != 64 {
		t.Error("expected 64 hex chars for a SHA-256 digest")
	}
}
