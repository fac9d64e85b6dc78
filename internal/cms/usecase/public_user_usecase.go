package usecase

import (
	"context"
	"strings"

	"blog-cms/internal/cms/domain/model"
	apperrors "blog-cms/internal/shared/errors"
	"blog-cms/internal/shared/validation"
)

// PublicUserUsecaseInterface manages reader accounts in the public store.
type PublicUserUsecaseInterface interface {
	ListPublicUsers(ctx context.Context, req PageRequest) ([]*model.PublicUser, error)
	GetPublicUser(ctx context.Context, id string) (*model.PublicUser, error)
	UpdatePublicUser(ctx context.Context, req UpdatePublicUserRequest) (*model.PublicUser, error)
	DeletePublicUser(ctx context.Context, id string) error
	ExportPublicUsers(ctx context.Context, req ExportRequest) (*ExportFile, error)
}

type PublicUserUsecase struct {
	deps Dependencies
}

var _ PublicUserUsecaseInterface = (*PublicUserUsecase)(nil)

func NewPublicUserUsecase(deps Dependencies) *PublicUserUsecase {
	return &PublicUserUsecase{deps: deps.withDefaults()}
}

var publicUserExporter = exporter[model.PublicUser]{
	name:     "public-users",
	variable: "user",
	header:   []string{"id", "email", "displayName", "emailVerified", "optInConfirmed", "createdTimestamp", "lastAuthenticatedTimestamp"},
	row: func(u *model.PublicUser) []string {
		return []string{
			u.ID, u.Email, u.DisplayName,
			formatBool(u.EmailVerified), formatBool(u.OptInConfirmed),
			formatTime(u.CreatedTimestamp), formatTimePtr(u.LastAuthenticatedTimestamp),
		}
	},
}

// ListPublicUsers returns users, newest first.
func (uc *PublicUserUsecase) ListPublicUsers(ctx context.Context, req PageRequest) ([]*model.PublicUser, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	q := model.NewQuery().OrderBy(model.FieldCreatedTimestamp, model.Descending).WithLimit(req.Limit).WithOffset(req.Offset)
	users, err := uc.deps.Stores.PublicUsers.Find(ctx, q)
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to list public users")
	}
	return users, nil
}

func (uc *PublicUserUsecase) GetPublicUser(ctx context.Context, id string) (*model.PublicUser, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.NewValidationError("id is required")
	}
	user, err := uc.deps.Stores.PublicUsers.Get(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFoundError("public user").WithCause(err)
		}
		return nil, apperrors.WrapError(err, "failed to read public user")
	}
	return user, nil
}

// UpdatePublicUser changes the fields present in req.
func (uc *PublicUserUsecase) UpdatePublicUser(ctx context.Context, req UpdatePublicUserRequest) (*model.PublicUser, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	user, err := uc.GetPublicUser(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if req.DisplayName != nil {
		user.DisplayName = strings.TrimSpace(*req.DisplayName)
		fields[model.FieldDisplayName] = user.DisplayName
	}
	if req.AvatarURL != nil {
		user.AvatarURL = *req.AvatarURL
		if user.AvatarURL == "" {
			fields[model.FieldAvatarURL] = model.DeleteField
		} else {
			fields[model.FieldAvatarURL] = user.AvatarURL
		}
	}
	if req.OptInConfirmed != nil {
		user.OptInConfirmed = *req.OptInConfirmed
		fields[model.FieldOptInConfirmed] = user.OptInConfirmed
	}
	if len(fields) == 0 {
		return user, nil
	}
	user.LastModifiedTimestamp = uc.deps.now()
	fields[model.FieldLastModifiedTimestamp] = user.LastModifiedTimestamp

	if err := uc.deps.Stores.PublicUsers.Update(ctx, user.ID, fields); err != nil {
		return nil, apperrors.WrapError(err, "failed to update public user")
	}
	return user, nil
}

func (uc *PublicUserUsecase) DeletePublicUser(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return apperrors.NewValidationError("id is required")
	}
	if err := uc.deps.Stores.PublicUsers.Delete(ctx, id); err != nil {
		return apperrors.WrapError(err, "failed to delete public user")
	}
	return nil
}

// ExportPublicUsers exports every public user matching req.Filter, a CEL
// expression over the variable user.
func (uc *PublicUserUsecase) ExportPublicUsers(ctx context.Context, req ExportRequest) (*ExportFile, error) {
	users, err := uc.deps.Stores.PublicUsers.Find(ctx, model.NewQuery().OrderBy(model.FieldCreatedTimestamp, model.Ascending))
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to read public users")
	}
	return publicUserExporter.export(req, users, uc.deps.now())
}
