package testutil

import (
	"time"

	"blog-cms/internal/auth/config"
	"blog-cms/internal/auth/domain/model"

	"golang.org/x/crypto/bcrypt"
)

// DefaultPassword satisfies the admin password rules
const DefaultPassword = "Passw0rd!"

// TestConfig returns an auth configuration suitable for tests
func TestConfig() *config.Config {
	return &config.Config{
		JWTSecretKey:    "test-secret-key-32-characters-long-12345",
		JWTIssuer:       "test-issuer",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
		CookieName:      "blog_admin_token",
		CookiePath:      "/",
		CookieHTTPOnly:  true,
		CookieSameSite:  "Lax",
	}
}

// AdminUser returns a user holding roles with DefaultPassword. The hash uses
// the minimum bcrypt cost to keep tests fast.
func AdminUser(id, email string, roles ...string) *model.AdminUser {
	if len(roles) == 0 {
		roles = []string{model.RoleAdmin}
	}
	hashed, _ := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.MinCost)
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &model.AdminUser{
		ID:                    id,
		Email:                 email,
		DisplayName:           "Test " + id,
		Roles:                 roles,
		PasswordHash:          string(hashed),
		CreatedTimestamp:      now,
		LastModifiedTimestamp: now,
	}
}

// Session returns a session for userID expiring after ttl
func Session(id, userID string, ttl time.Duration) *model.Session {
	now := time.Now().UTC()
	return &model.Session{ID: id, UserID: userID, CreatedAt: now, ExpiresAt: now.Add(ttl)}
}
