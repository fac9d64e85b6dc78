package repository

import (
	"context"

	"blog-cms/internal/auth/domain/model"
)

// AuthRepository defines the interface for admin user and session storage
type AuthRepository interface {
	// User operations
	CreateUser(ctx context.Context, user *model.AdminUser) error
	GetUserByEmail(ctx context.Context, email string) (*model.AdminUser, error)
	GetUserByID(ctx context.Context, id string) (*model.AdminUser, error)
	ListUsers(ctx context.Context, limit, offset int) ([]*model.AdminUser, error)
	CountUsers(ctx context.Context) (int64, error)
	UpdateUser(ctx context.Context, user *model.AdminUser) error
	DeleteUser(ctx context.Context, id string) error

	// Session operations
	CreateSession(ctx context.Context, session *model.Session) error
	GetSessionByID(ctx context.Context, id string) (*model.Session, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteUserSessions(ctx context.Context, userID string) error
}
