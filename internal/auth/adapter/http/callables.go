package http

import (
	"context"

	"blog-cms/internal/auth/domain/model"
	"blog-cms/internal/auth/usecase"
	"blog-cms/internal/shared/callable"
	apperrors "blog-cms/internal/shared/errors"
	"blog-cms/internal/shared/utils"
)

type userIDRequest struct {
	UserID string `json:"userId"`
}

type updateAdminUserRequest struct {
	UserID string `json:"userId"`
	usecase.UpdateUserRequest
}

type listAdminUsersRequest struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// RegisterCallables exposes admin user management. Every callable needs the admin role.
func RegisterCallables(reg *callable.Registry, uc usecase.AuthUsecaseInterface) {
	adminOnly := callable.RequireRole(model.RoleAdmin)

	reg.Register("createAdminUser", callable.Typed(uc.CreateUser), adminOnly)

	reg.Register("updateAdminUser", callable.Typed(func(ctx context.Context, req updateAdminUserRequest) (*model.AdminUser, error) {
		if req.UserID == utils.GetUserIDOrDefault(ctx, "") && req.Roles != nil {
			return nil, apperrors.NewPreconditionError("admins cannot change their own roles")
		}
		return uc.UpdateUser(ctx, req.UserID, req.UpdateUserRequest)
	}), adminOnly)

	reg.Register("getAdminUser", callable.Typed(func(ctx context.Context, req userIDRequest) (*model.AdminUser, error) {
		return uc.GetUserByID(ctx, req.UserID)
	}), adminOnly)

	reg.Register("listAdminUsers", callable.Typed(func(ctx context.Context, req listAdminUsersRequest) ([]*model.AdminUser, error) {
		return uc.ListUsers(ctx, req.Limit, req.Offset)
	}), adminOnly)

	reg.Register("deleteAdminUser", callable.NoResult(func(ctx context.Context, req userIDRequest) error {
		if req.UserID == utils.GetUserIDOrDefault(ctx, "") {
			return apperrors.NewPreconditionError("admins cannot delete themselves")
		}
		return uc.DeleteUser(ctx, req.UserID)
	}), adminOnly)
}
