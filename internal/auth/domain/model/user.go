package model

import (
	"time"

	apperrors "blog-cms/internal/shared/errors"
)

// Admin roles
const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
)

// ValidRoles lists every role an admin user may hold
var ValidRoles = []string{RoleAdmin, RoleEditor}

// AdminUser is an account that can sign in to the admin panel
type AdminUser struct {
	ID                         string     `json:"id" bson:"_id"`
	Email                      string     `json:"email" bson:"email"`
	DisplayName                string     `json:"displayName,omitempty" bson:"displayName,omitempty"`
	AvatarURL                  string     `json:"avatarUrl,omitempty" bson:"avatarUrl,omitempty"`
	Roles                      []string   `json:"roles" bson:"roles"`
	PasswordHash               string     `json:"-" bson:"passwordHash"`
	CreatedTimestamp           time.Time  `json:"createdTimestamp" bson:"createdTimestamp"`
	LastModifiedTimestamp      time.Time  `json:"lastModifiedTimestamp" bson:"lastModifiedTimestamp"`
	LastAuthenticatedTimestamp *time.Time `json:"lastAuthenticatedTimestamp,omitempty" bson:"lastAuthenticatedTimestamp,omitempty"`
}

// HasRole reports whether the user holds role
func (u *AdminUser) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsValidRole reports whether role is a known admin role
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}

// Auth errors
var (
	ErrUserNotFound       = apperrors.NewNotFoundError("admin user")
	ErrSessionNotFound    = apperrors.NewAuthenticationError("session not found or expired")
	ErrEmailTaken         = apperrors.NewConflictError("email is already registered")
	ErrInvalidCredentials = apperrors.NewAuthenticationError("invalid email or password")
	ErrTokenInvalid       = apperrors.NewAuthenticationError("invalid or expired token")
)
