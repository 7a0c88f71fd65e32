// Package auth mints and validates the JWT sessions used by the
// course-administration API (professors and head TAs). Students never
// authenticate; they only ever hold evaluation Tokens.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"peereval/internal/apperr"
)

// Claims is the JWT payload for an authenticated admin session.
type Claims struct {
	AdminID string `json:"admin_id"`
	Email   string `json:"email"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator mints and validates sessions for one signing secret.
// Unlike the teacher's package-level jwtSecret global, the secret is
// held on the value and passed in explicitly at construction — every
// caller must have its own Authenticator rather than reaching for a
// process-wide singleton.
type Authenticator struct {
	secret []byte
	ttl    time.Duration
}

// New returns an Authenticator signing with HS256 using secret, with
// sessions valid for ttl (24h if ttl is zero).
func New(secret string, ttl time.Duration) *Authenticator {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &Authenticator{secret: []byte(secret), ttl: ttl}
}

// GenerateToken mints a signed session token for an admin.
func (a *Authenticator) GenerateToken(adminID, email, role string) (string, error) {
	claims := Claims{
		AdminID: adminID,
		Email:   email,
		Role:    role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(a.ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and verifies a session token, returning its claims.
func (a *Authenticator) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindForbidden, "invalid session token", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, apperr.New(apperr.KindForbidden, "invalid session token")
	}
	return claims, nil
}
