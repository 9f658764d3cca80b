// Package auth issues and validates the operator tokens that protect the
// mutating API routes.
package auth

import (
	"context"
	"time"
)

// OperatorTokenType is the "type" claim carried by operator tokens.
const OperatorTokenType = "operator"

// MinSecretLength is the minimum HMAC secret length.
const MinSecretLength = 32

// JWTService defines operations for managing operator tokens.
type JWTService interface {
	// GenerateToken creates a signed operator token for the named subject.
	GenerateToken(ctx context.Context, subject string) (string, error)

	// ValidateToken validates the provided token string and extracts the claims.
	// Returns ErrExpiredToken, ErrInvalidToken or ErrWrongTokenType on failure.
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims represents the validated contents of an operator token.
type Claims struct {
	// TokenType is always OperatorTokenType for a valid token.
	TokenType string `json:"type,omitempty"`

	Subject   string    `json:"sub,omitempty"`
	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
	ID        string    `json:"jti,omitempty"`
}
