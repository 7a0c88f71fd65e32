package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestGenerateAndValidateToken(t *testing.T) {
	a := New("test-secret-key", 24*time.Hour)

	token, err := a.GenerateToken("admin-1", "test@example.com", "professor")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	if token == "" {
		t.Fatal("generated token is empty")
	}

	claims, err := a.ValidateToken(token)
	if err != nil {
		t.Fatalf("failed to validate token: %v", err)
	}
	if claims.AdminID != "admin-1" {
		t.Errorf("expected AdminID admin-1, got %s", claims.AdminID)
	}
	if claims.Email != "test@example.com" {
		t.Errorf("expected Email test@example.com, got %s", claims.Email)
	}
	if claims.Role != "professor" {
		t.Errorf("expected Role professor, got %s", claims.Role)
	}
	if claims.ExpiresAt == nil || claims.ExpiresAt.Time.Before(time.Now()) {
		t.Error("expected a future expiry")
	}
}

func TestValidateToken_InvalidToken(t *testing.T) {
	a := New("test-secret-key", 0)
	if _, err := a.ValidateToken("invalid.token.here"); err == nil {
		t.Error("expected error for invalid token")
	}
}

func TestValidateToken_WrongSecret(t *testing.T) {
	a1 := New("secret-1", 0)
	token, err := a1.GenerateToken("admin-1", "test@example.com", "professor")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	a2 := New("secret-2", 0)
	if _, err := a2.ValidateToken(token); err == nil {
		t.Error("expected error when validating with the wrong secret")
	}
}

func TestValidateToken_ExpiredToken(t *testing.T) {
	a := New("test-secret-key", 0)

	claims := Claims{
		AdminID: "admin-1",
		Email:   "test@example.com",
		Role:    "professor",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-1 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte("test-secret-key"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	if _, err := a.ValidateToken(tokenString); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestGenerateToken_DefaultTTL(t *testing.T) {
	a := New("test-secret-key", 0)
	token, err := a.GenerateToken("admin-1", "test@example.com", "professor")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	claims, err := a.ValidateToken(token)
	if err != nil {
		t.Fatalf("failed to validate token: %v", err)
	}
	expected := time.Now().Add(24 * time.Hour)
	diff := expected.Sub(claims.ExpiresAt.Time)
	if diff > 5*time.Minute || diff < -5*time.Minute {
		t.Errorf("expected ~24h expiry, diff = %v", diff)
	}
}
