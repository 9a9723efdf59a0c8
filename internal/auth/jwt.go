// Package auth issues and validates the service tokens that protect the
// evaluation API. Callers are other internal services, not end users, so
// claims carry a service identity rather than a user account.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthError carries a machine-readable code alongside the message.
type AuthError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e AuthError) Error() string {
	return e.Message
}

// Common authentication errors
var (
	ErrInvalidToken = AuthError{Code: "INVALID_TOKEN", Message: "invalid or expired token"}
	ErrTokenExpired = AuthError{Code: "TOKEN_EXPIRED", Message: "token has expired"}
	ErrUnauthorized = AuthError{Code: "UNAUTHORIZED", Message: "unauthorized access"}
)

// ServiceClaims identifies the calling service.
type ServiceClaims struct {
	Service string `json:"service"`
	Role    string `json:"role"` // evaluator or reader
}

// Claims represents the JWT claims
type Claims struct {
	ServiceClaims
	jwt.RegisteredClaims
}

// TokenManager handles JWT token operations
type TokenManager struct {
	secret        []byte
	tokenDuration time.Duration
}

// NewTokenManager creates a new token manager
func NewTokenManager(secret string, tokenDuration time.Duration) *TokenManager {
	return &TokenManager{
		secret:        []byte(secret),
		tokenDuration: tokenDuration,
	}
}

// GenerateToken generates a signed service token
func (m *TokenManager) GenerateToken(claims ServiceClaims) (string, error) {
	now := time.Now()
	expiresAt := now.Add(m.tokenDuration)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		ServiceClaims: claims,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.Service,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "signal-engine",
			Audience:  []string{"signal-engine-api"},
		},
	})

	signedToken, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signedToken, nil
}

// ValidateToken validates a service token and returns the claims
func (m *TokenManager) ValidateToken(tokenString string) (*ServiceClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Validate signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return &claims.ServiceClaims, nil
}

// TokenDuration returns the configured token lifetime.
func (m *TokenManager) TokenDuration() time.Duration {
	return m.tokenDuration
}
