package util

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func signToken(t *testing.T, method jwt.SigningMethod, claims jwt.Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(method, claims)
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}
	return signed
}

func TestValidateJWT(t *testing.T) {
	signed := signToken(t, jwt.SigningMethodHS256, &Claims{
		Email: "owner@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	claims, err := ValidateJWT(signed, testSecret)
	if err != nil {
		t.Fatal(err)
	}
	if claims.Subject != "user-1" || claims.Email != "owner@example.com" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestValidateJWTWrongSecret(t *testing.T) {
	signed := signToken(t, jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
	})
	if _, err := ValidateJWT(signed, "other-secret"); err == nil {
		t.Fatal("expected error for wrong secret")
	}
}

func TestValidateJWTExpired(t *testing.T) {
	signed := signToken(t, jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	if _, err := ValidateJWT(signed, testSecret); err == nil {
		t.Fatal("expected error for expired token")
	}
}

func TestValidateJWTMissingSubject(t *testing.T) {
	signed := signToken(t, jwt.SigningMethodHS256, &Claims{Email: "owner@example.com"})
	if _, err := ValidateJWT(signed, testSecret); err == nil {
		t.Fatal("expected error for token without subject")
	}
}
