package repository

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
)

// TokenService defines the interface for access token operations
type TokenService interface {
	GenerateToken(ctx context.Context, claims TokenSubject) (string, error)
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// TokenSubject is what an access token is issued for
type TokenSubject struct {
	UserID    string
	Email     string
	Roles     []string
	SessionID string
}

// Claims represents JWT claims
type Claims struct {
	UserID    string   `json:"userID"`
	Email     string   `json:"email"`
	Roles     []string `json:"roles,omitempty"`
	SessionID string   `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

// HasRole reports whether the token grants role
func (c *Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}
