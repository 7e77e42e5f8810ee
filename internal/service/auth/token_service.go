package auth

import (
	"context"
	"time"
)

// TokenTypeAdmin marks tokens that grant access to the engine admin API.
const TokenTypeAdmin = "admin"

// TokenService issues and validates admin API tokens.
type TokenService interface {
	// GenerateToken creates a signed admin token for subject, usually an
	// operator or service name.
	GenerateToken(ctx context.Context, subject string) (string, error)

	// ValidateToken validates the provided token string and extracts the claims.
	// Returns ErrExpiredToken, ErrTokenNotYetValid, ErrWrongTokenType or
	// ErrInvalidToken when validation fails.
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims represents the validated content of an admin token.
type Claims struct {
	// Subject identifies who the token was issued to.
	Subject string `json:"sub,omitempty"`

	// TokenType indicates the purpose of the token.
	TokenType string `json:"type,omitempty"`

	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
	ID        string    `json:"jti,omitempty"`
}
