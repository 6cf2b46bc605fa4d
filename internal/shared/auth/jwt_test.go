package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestSignAndVerifyRoundTrip(t *testing.T) {
	t.Setenv("ENV", "dev")
	t.Setenv("JWT_SECRET", "unit-secret")

	token, err := SignJWT(Claims{Sub: "google:1", Email: "a@example.com"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	claims, err := VerifyJWT(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Sub != "google:1" || claims.Email != "a@example.com" {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if claims.Iss != Issuer {
		t.Fatalf("expected issuer %q, got %q", Issuer, claims.Iss)
	}
}

func TestVerifyRejects(t *testing.T) {
	t.Setenv("ENV", "dev")
	t.Setenv("JWT_SECRET", "unit-secret")

	valid, err := SignJWT(Claims{Sub: "u"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	expired, err := SignJWT(Claims{Sub: "u", Iat: 1, Exp: time.Now().Add(-time.Minute).Unix()})
	if err != nil {
		t.Fatalf("sign expired: %v", err)
	}
	parts := strings.Split(valid, ".")

	tests := map[string]string{
		"malformed": "abc",
		"expired":   expired,
		"tampered":  parts[0] + "." + parts[1] + "x." + parts[2],
		"bad sig":   parts[0] + "." + parts[1] + ".AAAA",
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := VerifyJWT(token); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestSecretRequiredInProduction(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("JWT_SECRET", "")

	if _, err := SignJWT(Claims{Sub: "u"}); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("expected ErrMissingSecret, got %v", err)
	}
}
